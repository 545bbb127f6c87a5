package decoder

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

type Configuration struct {
	FilesIn          []string `json:"files_in"`
	OutputFolder     string   `json:"output_folder"`
	RunNumber        int      `json:"run_number"`
	MaxBuffers       int      `json:"max_buffers"`
	Skip             int      `json:"skip"`
	Verbosity        int      `json:"verbosity"`
	SortSignals      bool     `json:"sort_signals"`
	ClusterPixels    bool     `json:"cluster_pixels"`
	EpsSpatial       float64  `json:"eps_spatial"`
	EpsTemporal      float64  `json:"eps_temporal"`
	MinPtsSpatial    int      `json:"min_pts_spatial"`
	MinPtsTemporal   int      `json:"min_pts_temporal"`
	BruteForce       bool     `json:"brute_force"`
	WriteRawSignals  bool     `json:"write_raw_signals"`
	WritePhotons     bool     `json:"write_photons"`
	WritePhotonList  bool     `json:"write_photon_list"`
	CompressionLevel int      `json:"compression_level"`
	NumWorkers       int      `json:"num_workers"`
	NoDB             bool     `json:"no_db"`
	Host             string   `json:"host"`
	User             string   `json:"user"`
	Passwd           string   `json:"pass"`
	DBName           string   `json:"dbname"`
}

// DecoderOptions control one StreamDecoder.
type DecoderOptions struct {
	SortSignals bool
	// nil applies the default mosaic
	ChipLayout ChipLayout
	Verbosity  int
}

func (c Configuration) DecoderOptions(layout ChipLayout) DecoderOptions {
	return DecoderOptions{
		SortSignals: c.SortSignals,
		ChipLayout:  layout,
		Verbosity:   c.Verbosity,
	}
}

func (c Configuration) ClusterParams() ClusterParams {
	return ClusterParams{
		EpsTime:         c.EpsTemporal,
		MinSamplesTime:  c.MinPtsTemporal,
		EpsSpace:        c.EpsSpatial,
		MinSamplesSpace: c.MinPtsSpatial,
		BruteForce:      c.BruteForce,
	}
}

func LoadConfiguration(filename string) (Configuration, error) {
	var config Configuration

	// Set default values
	config.OutputFolder = "."
	config.MaxBuffers = 1000000000
	config.Skip = 0
	config.Verbosity = 0
	config.SortSignals = true
	config.ClusterPixels = true
	config.EpsSpatial = DEFAULT_EPS_SPACE
	config.EpsTemporal = DEFAULT_EPS_TIME
	config.MinPtsSpatial = DEFAULT_MIN_SAMPLES_SPACE
	config.MinPtsTemporal = DEFAULT_MIN_SAMPLES_TIME
	config.BruteForce = false
	config.WriteRawSignals = true
	config.WritePhotons = true
	config.WritePhotonList = false
	config.CompressionLevel = 4
	config.NumWorkers = 1
	config.NoDB = true
	config.Host = "localhost"
	config.User = ""
	config.Passwd = ""
	config.DBName = ""

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	err = json.Unmarshal(data, &config)
	if err != nil {
		return config, err
	}
	return config, config.Validate()
}

func (c Configuration) Validate() error {
	var errs []error
	if len(c.FilesIn) == 0 {
		errs = append(errs, errors.New("files_in is empty"))
	}
	if c.NumWorkers < 1 {
		errs = append(errs, fmt.Errorf("num_workers must be at least 1, got %d", c.NumWorkers))
	}
	if c.Skip < 0 || c.MaxBuffers < 0 {
		errs = append(errs, fmt.Errorf("skip and max_buffers must be non-negative, got %d and %d", c.Skip, c.MaxBuffers))
	}
	if c.CompressionLevel < 0 || c.CompressionLevel > 9 {
		errs = append(errs, fmt.Errorf("compression_level must be between 0 and 9, got %d", c.CompressionLevel))
	}
	if !c.NoDB && (c.Host == "" || c.DBName == "") {
		errs = append(errs, errors.New("host and dbname are required when no_db is false"))
	}
	if c.ClusterPixels {
		if err := c.ClusterParams().Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func PrintConfiguration(config Configuration) {
	logger.Info(fmt.Sprintf("Files in: %v", config.FilesIn), "config")
	logger.Info(fmt.Sprintf("Output folder: %s", config.OutputFolder), "config")
	logger.Info(fmt.Sprintf("Run number: %d", config.RunNumber), "config")
	logger.Info(fmt.Sprintf("Skip: %d", config.Skip), "config")
	logger.Info(fmt.Sprintf("Max buffers: %d", config.MaxBuffers), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
	logger.Info(fmt.Sprintf("Sort signals: %t", config.SortSignals), "config")
	logger.Info(fmt.Sprintf("Cluster pixels: %t", config.ClusterPixels), "config")
	logger.Info(fmt.Sprintf("Eps spatial: %g", config.EpsSpatial), "config")
	logger.Info(fmt.Sprintf("Eps temporal: %g", config.EpsTemporal), "config")
	logger.Info(fmt.Sprintf("Min pts spatial: %d", config.MinPtsSpatial), "config")
	logger.Info(fmt.Sprintf("Min pts temporal: %d", config.MinPtsTemporal), "config")
	logger.Info(fmt.Sprintf("Brute force: %t", config.BruteForce), "config")
	logger.Info(fmt.Sprintf("Write raw signals: %t", config.WriteRawSignals), "config")
	logger.Info(fmt.Sprintf("Write photons: %t", config.WritePhotons), "config")
	logger.Info(fmt.Sprintf("Write photon list: %t", config.WritePhotonList), "config")
	logger.Info(fmt.Sprintf("Compression level: %d", config.CompressionLevel), "config")
	logger.Info(fmt.Sprintf("Number of workers: %d", config.NumWorkers), "config")
	logger.Info(fmt.Sprintf("No DB: %t", config.NoDB), "config")
	logger.Info(fmt.Sprintf("Host: %s", config.Host), "config")
	logger.Info(fmt.Sprintf("DB name: %s", config.DBName), "config")
}
