package decoder

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodePhotonRecord(t *testing.T) {
	var record [PHOTON_RECORD_SIZE]byte
	encodePhotonRecord(record[:], Photon{X: 1, Y: 2, Toa: 3, Tof: 4})

	assert.Equal(t, uint64(0x3FF0000000000000), binary.LittleEndian.Uint64(record[0:]))
	assert.Equal(t, 2.0, math.Float64frombits(binary.LittleEndian.Uint64(record[8:])))
	assert.Equal(t, 3.0, math.Float64frombits(binary.LittleEndian.Uint64(record[16:])))
	assert.Equal(t, 4.0, math.Float64frombits(binary.LittleEndian.Uint64(record[24:])))
}

func TestPhotonListWriter(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "run.photons")
	writer, err := NewPhotonListWriter(filename)
	require.NoError(t, err)

	photons := []Photon{
		{TimeGroup: 1, SpaceGroup: 1, X: 11.5, Y: 10, Toa: 1e-6, Tof: 0.1e-6},
		{TimeGroup: 2, SpaceGroup: 1, X: 0, Y: 0, Toa: 2e-6, Tof: math.NaN()},
	}
	require.NoError(t, writer.Write(photons))
	require.NoError(t, writer.Close())
	assert.Equal(t, 2, writer.Records)

	data, err := os.ReadFile(filename)
	require.NoError(t, err)
	assert.Len(t, data, 2*PHOTON_RECORD_SIZE)

	read, err := ReadPhotonList(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, read, 2)
	assert.Equal(t, Photon{X: 11.5, Y: 10, Toa: 1e-6, Tof: 0.1e-6}, read[0])
	assert.Equal(t, 2e-6, read[1].Toa)
	assert.True(t, math.IsNaN(read[1].Tof))
}

func TestReadPhotonListTruncated(t *testing.T) {
	_, err := ReadPhotonList(bytes.NewReader(make([]byte, PHOTON_RECORD_SIZE+3)))
	assert.Error(t, err)
}

func TestNewPhotonListWriterBadPath(t *testing.T) {
	_, err := NewPhotonListWriter(filepath.Join(t.TempDir(), "missing", "run.photons"))
	var openErr *ErrOpenFile
	assert.ErrorAs(t, err, &openErr)
}
