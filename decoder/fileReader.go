package main

import (
	"fmt"
	"io"
	"os"

	decoder "github.com/next-exp/tpx3_decoder/pkg"
)

// FileReader hands out the buffers of one TPX3 stream, skipping the first
// Skip buffers and stopping once MaxBuffers have been read.
type FileReader struct {
	Decoder    *decoder.StreamDecoder
	BufCount   int
	Skip       int
	MaxBuffers int
	Verbosity  int
	// Buffers read but not handed out
	Skipped []*decoder.Buffer
}

func NewFileReader(r io.Reader, config decoder.Configuration, layout decoder.ChipLayout) *FileReader {
	return &FileReader{
		Decoder:    decoder.NewStreamDecoder(r, config.DecoderOptions(layout)),
		Skip:       config.Skip,
		MaxBuffers: config.MaxBuffers,
		Verbosity:  config.Verbosity,
	}
}

func (f *FileReader) getNextBuffer() (*decoder.Buffer, error) {
	for {
		if f.BufCount >= f.MaxBuffers {
			if f.Verbosity > 0 {
				logger.Info("Max buffers reached", "fileReader")
			}
			return nil, io.EOF
		}
		buffer, err := f.Decoder.Next()
		if err != nil {
			return nil, err
		}
		f.BufCount++
		if f.BufCount <= f.Skip {
			if f.Verbosity > 1 {
				message := fmt.Sprintf("Skipping buffer %d at byte %d", buffer.Number, buffer.Offset)
				logger.Info(message, "fileReader")
			}
			f.Skipped = append(f.Skipped, buffer)
			continue
		}
		if f.Verbosity > 1 {
			message := fmt.Sprintf("Reading buffer %d with %d signals", buffer.Number, len(buffer.Signals))
			logger.Info(message, "fileReader")
		}
		return buffer, nil
	}
}

// Diagnostics returns the decoder counters without the skipped buffers.
func (f *FileReader) Diagnostics() decoder.Diagnostics {
	diagnostics := f.Decoder.Diagnostics()
	for _, buffer := range f.Skipped {
		diagnostics.Remove(buffer)
	}
	return diagnostics
}

// readSignals decodes the selected buffers of the file and hands each one
// to process before moving on. On a fatal decode error the signals read so
// far are returned together with the error.
func (f *FileReader) readSignals(process func(*decoder.Buffer) error) ([]decoder.Signal, error) {
	signals := make([]decoder.Signal, 0)
	for {
		buffer, err := f.getNextBuffer()
		if err == io.EOF {
			return signals, nil
		}
		if err != nil {
			return signals, err
		}
		if process != nil {
			if err := process(buffer); err != nil {
				return signals, err
			}
		}
		signals = append(signals, buffer.Signals...)
	}
}

// processFile decodes filename and, when enabled, reconstructs the photons
// of every buffer on its own. Cluster ids restart in each buffer; photons
// carry their buffer number to tell them apart.
func processFile(filename string, config decoder.Configuration, layout decoder.ChipLayout) decoder.FileOutput {
	output := decoder.FileOutput{Filename: filename, RunNumber: config.RunNumber}

	file, err := os.Open(filename)
	if err != nil {
		output.Err = &decoder.ErrOpenFile{Filename: filename, Err: err}
		return output
	}
	defer file.Close()

	fileReader := NewFileReader(file, config, layout)
	var reconstruction decoder.Diagnostics
	reconstruct := func(buffer *decoder.Buffer) error {
		if !config.ClusterPixels {
			return nil
		}
		photons, err := decoder.Reconstruct(buffer.Signals, config.ClusterParams(), &reconstruction, config.Verbosity)
		if err != nil {
			return fmt.Errorf("buffer %d: %w", buffer.Number, err)
		}
		output.Photons = append(output.Photons, photons...)
		return nil
	}

	output.Signals, output.Err = fileReader.readSignals(reconstruct)
	output.Offset = fileReader.Decoder.Offset()
	output.Diagnostics = fileReader.Diagnostics()
	output.Diagnostics.Add(reconstruction)
	clock := fileReader.Decoder.Clock()
	output.Clock = &clock

	// a trigger from an earlier buffer still opens the window of a photon
	decoder.AssignTimeOfFlight(output.Photons, output.Signals)
	return output
}
