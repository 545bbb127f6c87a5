package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	decoder "github.com/next-exp/tpx3_decoder/pkg"
)

var logger decoder.Logger

func init() {
	logger = decoder.NewSlogLogger(os.Stdout, os.Stderr)
}

func main() {
	configFilename := flag.String("config", "", "Configuration file path")
	flag.Parse()

	configuration, err := decoder.LoadConfiguration(*configFilename)
	if err != nil {
		message := fmt.Errorf("Error reading configuration file: %w", err)
		logger.Error(message.Error())
		os.Exit(1)
	}
	decoder.SetLogger(logger)

	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Reading configuration file: %s", *configFilename)
		logger.Info(message, "main")
		decoder.PrintConfiguration(configuration)
	}

	layout, err := loadChipLayout(configuration)
	if err != nil {
		message := fmt.Errorf("Error reading chip layout: %w", err)
		logger.Error(message.Error())
		os.Exit(1)
	}

	if err := os.MkdirAll(configuration.OutputFolder, 0o755); err != nil {
		message := fmt.Errorf("Error creating output folder: %w", err)
		logger.Error(message.Error())
		os.Exit(1)
	}

	start := time.Now()
	resultWriter := &ResultWriter{Config: configuration}
	runWorkers(configuration.FilesIn, configuration, layout, resultWriter.processWorkerResult)

	if configuration.Verbosity > 0 {
		resultWriter.Total.Print("main")
		message := fmt.Sprintf("Total time: %d ms", time.Since(start).Milliseconds())
		logger.Info(message, "main")
	}
	if resultWriter.Failed > 0 {
		logger.Error(fmt.Sprintf("%d of %d files failed", resultWriter.Failed, len(configuration.FilesIn)))
		os.Exit(1)
	}
}

func loadChipLayout(configuration decoder.Configuration) (decoder.ChipLayout, error) {
	if configuration.NoDB {
		return decoder.DefaultChipLayout(), nil
	}
	dbConn, err := decoder.ConnectToDatabase(configuration.User, configuration.Passwd, configuration.Host, configuration.DBName)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	defer dbConn.Close()
	return decoder.LoadChipLayout(dbConn, configuration.RunNumber, configuration.Verbosity)
}
