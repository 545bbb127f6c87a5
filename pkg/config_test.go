package decoder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	filename := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(filename, []byte(content), 0o644))
	return filename
}

func TestLoadConfigurationDefaults(t *testing.T) {
	filename := writeConfig(t, `{"files_in": ["run_1.tpx3"], "run_number": 7, "eps_spatial": 3}`)

	config, err := LoadConfiguration(filename)
	require.NoError(t, err)
	assert.Equal(t, []string{"run_1.tpx3"}, config.FilesIn)
	assert.Equal(t, 7, config.RunNumber)
	assert.Equal(t, 3.0, config.EpsSpatial)
	assert.Equal(t, DEFAULT_EPS_TIME, config.EpsTemporal)
	assert.Equal(t, DEFAULT_MIN_SAMPLES_SPACE, config.MinPtsSpatial)
	assert.True(t, config.SortSignals)
	assert.True(t, config.ClusterPixels)
	assert.True(t, config.NoDB)
	assert.Equal(t, 1, config.NumWorkers)
	assert.Equal(t, 4, config.CompressionLevel)
	assert.Equal(t, "localhost", config.Host)
	assert.Empty(t, config.User)
	assert.Empty(t, config.DBName)

	params := config.ClusterParams()
	assert.Equal(t, ClusterParams{
		EpsTime:         DEFAULT_EPS_TIME,
		MinSamplesTime:  DEFAULT_MIN_SAMPLES_TIME,
		EpsSpace:        3,
		MinSamplesSpace: DEFAULT_MIN_SAMPLES_SPACE,
	}, params)

	options := config.DecoderOptions(nil)
	assert.True(t, options.SortSignals)
	assert.Nil(t, options.ChipLayout)
}

func TestLoadConfigurationErrors(t *testing.T) {
	_, err := LoadConfiguration(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = LoadConfiguration(writeConfig(t, `{"files_in": [`))
	assert.Error(t, err)

	_, err = LoadConfiguration(writeConfig(t, `{}`))
	assert.ErrorContains(t, err, "files_in")

	_, err = LoadConfiguration(writeConfig(t, `{"files_in": ["a"], "min_pts_temporal": 0}`))
	assert.ErrorContains(t, err, "min samples")

	// clustering parameters are only checked when clustering is enabled
	_, err = LoadConfiguration(writeConfig(t, `{"files_in": ["a"], "min_pts_temporal": 0, "cluster_pixels": false}`))
	assert.NoError(t, err)

	_, err = LoadConfiguration(writeConfig(t, `{"files_in": ["a"], "no_db": false}`))
	assert.ErrorContains(t, err, "dbname")

	config, err := LoadConfiguration(writeConfig(t, `{"files_in": ["a"], "no_db": false, "dbname": "tpx3"}`))
	assert.NoError(t, err)
	assert.Equal(t, "tpx3", config.DBName)

	_, err = LoadConfiguration(writeConfig(t, `{"files_in": ["a"], "num_workers": 0, "compression_level": 12}`))
	assert.ErrorContains(t, err, "num_workers")
	assert.ErrorContains(t, err, "compression_level")
}
