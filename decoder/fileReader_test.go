package main

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	decoder "github.com/next-exp/tpx3_decoder/pkg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunk(chip uint8, pixels ...decoder.PixelData) []byte {
	var buf bytes.Buffer
	header := decoder.EncodeHeader(decoder.ChunkHeader{BufferSize: uint16(len(pixels) * decoder.WORD_SIZE), ChipNumber: chip})
	binary.Write(&buf, binary.LittleEndian, header)
	for _, p := range pixels {
		binary.Write(&buf, binary.LittleEndian, decoder.EncodePixel(p))
	}
	return buf.Bytes()
}

func testConfiguration() decoder.Configuration {
	return decoder.Configuration{
		MaxBuffers:      1000,
		SortSignals:     true,
		ClusterPixels:   true,
		EpsSpatial:      1.5,
		EpsTemporal:     100e-9,
		MinPtsSpatial:   2,
		MinPtsTemporal:  2,
		NumWorkers:      2,
		WriteRawSignals: false,
		WritePhotons:    false,
	}
}

// a photon: three neighboring pixels with the same time of arrival
func photonChunk(spidr uint16) []byte {
	return chunk(3,
		decoder.PixelData{Dcol: 5, Spix: 5, Pix: 0, SpidrTime: spidr, ToT: 10, FineToA: 0xF},
		decoder.PixelData{Dcol: 5, Spix: 5, Pix: 1, SpidrTime: spidr, ToT: 10, FineToA: 0xF},
		decoder.PixelData{Dcol: 5, Spix: 5, Pix: 4, SpidrTime: spidr, ToT: 20, FineToA: 0xF},
	)
}

func TestFileReaderSkipAndMax(t *testing.T) {
	var data []byte
	for i := 0; i < 4; i++ {
		data = append(data, photonChunk(uint16(i))...)
	}

	config := testConfiguration()
	config.Skip = 1
	config.MaxBuffers = 3
	fileReader := NewFileReader(bytes.NewReader(data), config, nil)

	buffer, err := fileReader.getNextBuffer()
	require.NoError(t, err)
	assert.Equal(t, uint32(2), buffer.Number)

	buffer, err = fileReader.getNextBuffer()
	require.NoError(t, err)
	assert.Equal(t, uint32(3), buffer.Number)

	_, err = fileReader.getNextBuffer()
	assert.Equal(t, io.EOF, err)
}

func TestFileReaderReadSignalsStopsOnError(t *testing.T) {
	data := append(photonChunk(1), 0, 0, 0, 0, 0, 0, 0, 0)

	fileReader := NewFileReader(bytes.NewReader(data), testConfiguration(), nil)
	signals, err := fileReader.readSignals(nil)
	assert.Len(t, signals, 3)
	var formatErr *decoder.ErrFormat
	assert.True(t, errors.As(err, &formatErr))
}

func writeStream(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	filename := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(filename, data, 0o644))
	return filename
}

func TestProcessFile(t *testing.T) {
	dir := t.TempDir()
	filename := writeStream(t, dir, "run_1.tpx3", append(photonChunk(1), photonChunk(100)...))

	output := processFile(filename, testConfiguration(), nil)
	require.NoError(t, output.Err)
	assert.Len(t, output.Signals, 6)
	require.Len(t, output.Photons, 2)
	assert.Equal(t, 3, output.Photons[0].Multiplicity)
	assert.Equal(t, 40.0*25, output.Photons[0].IntegratedTot)
	assert.Equal(t, 2, output.Diagnostics.Photons)
	assert.Equal(t, 2, output.Diagnostics.Buffers)
	assert.Equal(t, int64(64), output.Offset)
	require.NotNil(t, output.Clock)
	assert.False(t, output.Clock.Valid())
}

// Two photons at the same time, 20 pixels apart, in the first buffer and a
// later trail of hits joining their positions in the second one.
func bridgedBuffers() []byte {
	first := chunk(3,
		decoder.PixelData{Dcol: 0, Spix: 0, Pix: 0, SpidrTime: 1, ToT: 10, FineToA: 0xF},
		decoder.PixelData{Dcol: 0, Spix: 0, Pix: 1, SpidrTime: 1, ToT: 10, FineToA: 0xF},
		decoder.PixelData{Dcol: 10, Spix: 0, Pix: 0, SpidrTime: 1, ToT: 10, FineToA: 0xF},
		decoder.PixelData{Dcol: 10, Spix: 0, Pix: 1, SpidrTime: 1, ToT: 10, FineToA: 0xF},
	)
	trail := make([]decoder.PixelData, 0)
	for dcol := uint8(0); dcol <= 10; dcol++ {
		// pix 0 and 4 are the two columns of a double column
		trail = append(trail,
			decoder.PixelData{Dcol: dcol, Pix: 0, SpidrTime: 100, ToT: 10, FineToA: 0xF},
			decoder.PixelData{Dcol: dcol, Pix: 4, SpidrTime: 100, ToT: 10, FineToA: 0xF},
		)
	}
	return append(first, chunk(3, trail...)...)
}

func TestProcessFileClustersEachBuffer(t *testing.T) {
	filename := writeStream(t, t.TempDir(), "run_3.tpx3", bridgedBuffers())

	output := processFile(filename, testConfiguration(), nil)
	require.NoError(t, output.Err)
	assert.Len(t, output.Signals, 26)
	require.Len(t, output.Photons, 3)

	assert.Equal(t, uint32(1), output.Photons[0].BufferNumber)
	assert.Equal(t, 0.0, output.Photons[0].X)
	assert.Equal(t, 0.5, output.Photons[0].Y)
	assert.Equal(t, 2, output.Photons[0].Multiplicity)

	assert.Equal(t, uint32(1), output.Photons[1].BufferNumber)
	assert.Equal(t, 20.0, output.Photons[1].X)
	assert.Equal(t, 2, output.Photons[1].Multiplicity)

	assert.Equal(t, uint32(2), output.Photons[2].BufferNumber)
	assert.Equal(t, 22, output.Photons[2].Multiplicity)
	assert.Equal(t, 3, output.Diagnostics.Photons)
}

func TestProcessFileSkipLeavesDiagnostics(t *testing.T) {
	filename := writeStream(t, t.TempDir(), "run_4.tpx3", append(photonChunk(1), photonChunk(100)...))
	config := testConfiguration()
	config.Skip = 1

	output := processFile(filename, config, nil)
	require.NoError(t, output.Err)
	assert.Len(t, output.Signals, 3)
	assert.Len(t, output.Photons, 1)
	assert.Equal(t, 1, output.Diagnostics.Buffers)
	assert.Equal(t, 3, output.Diagnostics.PixelHits)
	assert.Equal(t, 3, output.Diagnostics.Signals())
	assert.Equal(t, int64(64), output.Diagnostics.BytesRead)
}

func TestProcessFileTimeOfFlightAcrossBuffers(t *testing.T) {
	var buf bytes.Buffer
	header := decoder.EncodeHeader(decoder.ChunkHeader{BufferSize: decoder.WORD_SIZE, ChipNumber: 3})
	binary.Write(&buf, binary.LittleEndian, header)
	// 100 ns before the photon of photonChunk(1), in 3.125 ns ticks
	binary.Write(&buf, binary.LittleEndian, decoder.EncodeTdc(decoder.TdcData{Timestamp: 131072 - 32}))
	filename := writeStream(t, t.TempDir(), "run_5.tpx3", append(buf.Bytes(), photonChunk(1)...))

	output := processFile(filename, testConfiguration(), nil)
	require.NoError(t, output.Err)
	require.Len(t, output.Photons, 1)
	assert.InDelta(t, 100e-9, output.Photons[0].Tof, 1e-15)
}

func TestProcessFileMissing(t *testing.T) {
	output := processFile(filepath.Join(t.TempDir(), "missing.tpx3"), testConfiguration(), nil)
	var openErr *decoder.ErrOpenFile
	assert.True(t, errors.As(output.Err, &openErr))
}

func TestRunWorkers(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeStream(t, dir, "a.tpx3", photonChunk(1)),
		writeStream(t, dir, "b.tpx3", append(photonChunk(1), photonChunk(50)...)),
		filepath.Join(dir, "missing.tpx3"),
	}

	var outputs []decoder.FileOutput
	runWorkers(files, testConfiguration(), nil, func(output decoder.FileOutput) {
		outputs = append(outputs, output)
	})
	require.Len(t, outputs, 3)
	sort.Slice(outputs, func(i, j int) bool { return outputs[i].Filename < outputs[j].Filename })

	assert.NoError(t, outputs[0].Err)
	assert.Len(t, outputs[0].Photons, 1)
	assert.NoError(t, outputs[1].Err)
	assert.Len(t, outputs[1].Photons, 2)
	assert.Error(t, outputs[2].Err)
}

func TestResultWriterPhotonList(t *testing.T) {
	dir := t.TempDir()
	config := testConfiguration()
	config.OutputFolder = dir
	config.WritePhotonList = true
	filename := writeStream(t, dir, "run_2.tpx3", photonChunk(1))

	resultWriter := &ResultWriter{Config: config}
	resultWriter.processWorkerResult(processFile(filename, config, nil))
	assert.Equal(t, 0, resultWriter.Failed)
	assert.Equal(t, 1, resultWriter.Total.Photons)

	file, err := os.Open(filepath.Join(dir, "run_2.photons"))
	require.NoError(t, err)
	defer file.Close()
	photons, err := decoder.ReadPhotonList(file)
	require.NoError(t, err)
	require.Len(t, photons, 1)
	assert.InDelta(t, 409600e-9, photons[0].Toa, 1e-15)
}

func TestResultWriterCountsFailures(t *testing.T) {
	resultWriter := &ResultWriter{Config: testConfiguration()}
	resultWriter.processWorkerResult(decoder.FileOutput{Filename: "broken.tpx3", Err: errors.New("boom")})
	assert.Equal(t, 1, resultWriter.Failed)
}

func TestOutputBasename(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "run_12"), outputBasename("out", "/data/run_12.tpx3"))
	assert.Equal(t, filepath.Join("out", "run"), outputBasename("out", "run"))
}
