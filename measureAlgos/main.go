package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	decoder "github.com/next-exp/tpx3_decoder/pkg"
)

var logger decoder.Logger

func init() {
	logger = decoder.NewSlogLogger(os.Stdout, os.Stderr)
}

// measureAlgos compares the indexed and the brute force clustering on the
// configured files and measures the HDF5 writing time and file size for
// every compression level.
func main() {
	configFilename := flag.String("config", "", "Configuration file path")
	repetitions := flag.Int("repetitions", 3, "Runs per measurement")
	flag.Parse()

	configuration, err := decoder.LoadConfiguration(*configFilename)
	if err != nil {
		message := fmt.Errorf("Error reading configuration file: %w", err)
		logger.Error(message.Error())
		os.Exit(1)
	}
	decoder.SetLogger(logger)
	if configuration.Verbosity > 0 {
		decoder.PrintConfiguration(configuration)
	}

	buffers, err := decodeFiles(configuration)
	if err != nil {
		message := fmt.Errorf("Error decoding files: %w", err)
		logger.Error(message.Error())
		os.Exit(1)
	}
	logger.Info(fmt.Sprintf("Buffers decoded: %d", len(buffers)), "main")

	params := configuration.ClusterParams()
	signals, photons, err := compareClustering(buffers, params, *repetitions)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	output := filepath.Join(configuration.OutputFolder, "measureAlgos.h5")
	for compressionLevel := 0; compressionLevel < 10; compressionLevel++ {
		for i := 0; i < *repetitions; i++ {
			start := time.Now()
			if err := writeFile(output, compressionLevel, signals, photons); err != nil {
				logger.Error(fmt.Sprintf("Error writing file: %v", err))
				continue
			}
			duration := time.Since(start)
			fileInfo, err := os.Stat(output)
			if err != nil {
				logger.Error(fmt.Sprintf("Error getting file info: %v", err))
				continue
			}
			message := fmt.Sprintf("(hdf5, comp %d) Time: %d ms, size %d bytes", compressionLevel, duration.Milliseconds(), fileInfo.Size())
			logger.Info(message, "compression")
		}
	}
}

// decodeFiles returns the signals of every buffer of the configured files,
// one slice per buffer.
func decodeFiles(configuration decoder.Configuration) ([][]decoder.Signal, error) {
	options := configuration.DecoderOptions(decoder.DefaultChipLayout())
	buffers := make([][]decoder.Signal, 0)
	for _, filename := range configuration.FilesIn {
		file, err := os.Open(filename)
		if err != nil {
			return buffers, &decoder.ErrOpenFile{Filename: filename, Err: err}
		}
		d := decoder.NewStreamDecoder(file, options)
		for {
			buffer, err := d.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				file.Close()
				return buffers, fmt.Errorf("%s: %w", filename, err)
			}
			buffers = append(buffers, buffer.Signals)
		}
		file.Close()
	}
	return buffers, nil
}

func clusterBuffers(buffers [][]decoder.Signal, params decoder.ClusterParams) (decoder.ClusterSummary, error) {
	var total decoder.ClusterSummary
	for _, signals := range buffers {
		summary, err := decoder.Cluster(signals, params)
		if err != nil {
			return total, err
		}
		total.TimeClusters += summary.TimeClusters
		total.SpaceClusters += summary.SpaceClusters
	}
	return total, nil
}

func copyBuffers(dst, src [][]decoder.Signal) {
	for i := range src {
		copy(dst[i], src[i])
	}
}

// compareClustering times both neighbor searches buffer by buffer and fails
// if they label any signal differently. It returns the clustered signals and
// their photons.
func compareClustering(buffers [][]decoder.Signal, params decoder.ClusterParams, repetitions int) ([]decoder.Signal, []decoder.Photon, error) {
	indexed := make([][]decoder.Signal, len(buffers))
	bruteForce := make([][]decoder.Signal, len(buffers))
	for i, signals := range buffers {
		indexed[i] = make([]decoder.Signal, len(signals))
		bruteForce[i] = make([]decoder.Signal, len(signals))
	}

	for _, useBruteForce := range []bool{false, true} {
		params.BruteForce = useBruteForce
		target := indexed
		if useBruteForce {
			target = bruteForce
		}
		for i := 0; i < repetitions; i++ {
			copyBuffers(target, buffers)
			start := time.Now()
			summary, err := clusterBuffers(target, params)
			if err != nil {
				return nil, nil, err
			}
			message := fmt.Sprintf("(brute force %t) Time: %d ms, %d time clusters, %d space clusters",
				useBruteForce, time.Since(start).Milliseconds(), summary.TimeClusters, summary.SpaceClusters)
			logger.Info(message, "clustering")
		}
	}

	signals := make([]decoder.Signal, 0)
	photons := make([]decoder.Photon, 0)
	for b := range indexed {
		for i := range indexed[b] {
			got, want := indexed[b][i], bruteForce[b][i]
			if got.TimeGroup != want.TimeGroup || got.SpaceGroup != want.SpaceGroup {
				return nil, nil, fmt.Errorf("buffer %d signal %d labelled (%d, %d) by the index and (%d, %d) by brute force",
					got.BufferNumber, i, got.TimeGroup, got.SpaceGroup, want.TimeGroup, want.SpaceGroup)
			}
		}
		signals = append(signals, indexed[b]...)
		photons = append(photons, decoder.BuildPhotons(indexed[b])...)
	}
	decoder.AssignTimeOfFlight(photons, signals)
	return signals, photons, nil
}

func writeFile(filename string, compressionLevel int, signals []decoder.Signal, photons []decoder.Photon) error {
	writer, err := decoder.NewWriter(filename, compressionLevel)
	if err != nil {
		return err
	}
	if err := writer.WriteSignals(signals); err != nil {
		writer.Close()
		return err
	}
	if err := writer.WritePhotons(photons); err != nil {
		writer.Close()
		return err
	}
	return writer.Close()
}
