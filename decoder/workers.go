package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	decoder "github.com/next-exp/tpx3_decoder/pkg"
)

func worker(id int, jobs <-chan string, results chan<- decoder.FileOutput,
	config decoder.Configuration, layout decoder.ChipLayout) {
	for filename := range jobs {
		if config.Verbosity > 0 {
			message := fmt.Sprintf("Worker %d processing file %s", id, filename)
			logger.Info(message, "worker")
		}
		results <- processFileSafely(id, filename, config, layout)
	}
}

func processFileSafely(id int, filename string, config decoder.Configuration,
	layout decoder.ChipLayout) (output decoder.FileOutput) {
	defer func() {
		if r := recover(); r != nil {
			errMessage := fmt.Errorf("worker %d recovered from panic on file %s: %v", id, filename, r)
			output = decoder.FileOutput{Filename: filename, RunNumber: config.RunNumber, Err: errMessage}
		}
	}()
	return processFile(filename, config, layout)
}

func sendFilesToWorkers(files []string, jobs chan<- string) {
	for _, filename := range files {
		jobs <- filename
	}
	close(jobs)
}

// runWorkers decodes files with config.NumWorkers workers and passes every
// result to consume from a single goroutine.
func runWorkers(files []string, config decoder.Configuration, layout decoder.ChipLayout,
	consume func(decoder.FileOutput)) {
	jobs := make(chan string, config.NumWorkers)
	results := make(chan decoder.FileOutput, config.NumWorkers)

	var wg sync.WaitGroup
	for w := 1; w <= config.NumWorkers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			worker(id, jobs, results, config, layout)
		}(w)
	}
	go sendFilesToWorkers(files, jobs)
	go func() {
		wg.Wait()
		close(results)
	}()

	for result := range results {
		consume(result)
	}
}

// ResultWriter owns the output files. It is only used from the goroutine
// consuming worker results.
type ResultWriter struct {
	Config decoder.Configuration
	Total  decoder.Diagnostics
	Failed int
}

func outputBasename(outputFolder, filename string) string {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outputFolder, base)
}

func (w *ResultWriter) processWorkerResult(result decoder.FileOutput) {
	failed := result.Err != nil
	if result.Err != nil {
		errMessage := fmt.Errorf("error decoding %s at byte %d: %w", result.Filename, result.Offset, result.Err)
		logger.Error(errMessage.Error())
	}

	if err := w.writeOutputs(result); err != nil {
		failed = true
		errMessage := fmt.Errorf("error writing output of %s: %w", result.Filename, err)
		logger.Error(errMessage.Error())
	}
	if failed {
		w.Failed++
	}
	w.Total.Add(result.Diagnostics)

	if w.Config.Verbosity > 0 {
		message := fmt.Sprintf("File %s: %d buffers, %d signals, %d photons", result.Filename,
			result.Diagnostics.Buffers, result.Diagnostics.Signals(), len(result.Photons))
		logger.Info(message, "results")
	}
	if w.Config.Verbosity > 1 {
		result.Diagnostics.Print("diagnostics")
	}
}

func (w *ResultWriter) writeOutputs(result decoder.FileOutput) error {
	basename := outputBasename(w.Config.OutputFolder, result.Filename)

	if w.Config.WriteRawSignals || w.Config.WritePhotons {
		writer, err := decoder.NewWriter(basename+".h5", w.Config.CompressionLevel)
		if err != nil {
			return err
		}
		writeErr := writer.WriteConfiguration(w.Config)
		if writeErr == nil {
			writeErr = writer.Flush(result, w.Config.WriteRawSignals, w.Config.WritePhotons)
		}
		if err := errors.Join(writeErr, writer.Close()); err != nil {
			return err
		}
	}

	if w.Config.WritePhotonList && len(result.Photons) > 0 {
		list, err := decoder.NewPhotonListWriter(basename + ".photons")
		if err != nil {
			return err
		}
		return errors.Join(list.Write(result.Photons), list.Close())
	}
	return nil
}
