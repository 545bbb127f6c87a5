package decoder

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// PHOTON_RECORD_SIZE is the size of one photon list record: x, y, toa and
// tof as little-endian float64.
const PHOTON_RECORD_SIZE = 4 * 8

// PhotonListWriter writes photons as fixed size binary records, the layout
// read by the event builder.
type PhotonListWriter struct {
	file    *os.File
	buf     *bufio.Writer
	record  [PHOTON_RECORD_SIZE]byte
	Records int
}

func NewPhotonListWriter(filename string) (*PhotonListWriter, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	return &PhotonListWriter{file: file, buf: bufio.NewWriter(file)}, nil
}

func (w *PhotonListWriter) Write(photons []Photon) error {
	for _, p := range photons {
		encodePhotonRecord(w.record[:], p)
		if _, err := w.buf.Write(w.record[:]); err != nil {
			return fmt.Errorf("error writing photon record %d: %w", w.Records, err)
		}
		w.Records++
	}
	return nil
}

func (w *PhotonListWriter) Close() error {
	return errors.Join(w.buf.Flush(), w.file.Close())
}

func encodePhotonRecord(record []byte, p Photon) {
	binary.LittleEndian.PutUint64(record[0:], math.Float64bits(p.X))
	binary.LittleEndian.PutUint64(record[8:], math.Float64bits(p.Y))
	binary.LittleEndian.PutUint64(record[16:], math.Float64bits(p.Toa))
	binary.LittleEndian.PutUint64(record[24:], math.Float64bits(p.Tof))
}

// ReadPhotonList reads back the records written by PhotonListWriter. Only
// position and times are stored, the group ids come back as zero.
func ReadPhotonList(r io.Reader) ([]Photon, error) {
	photons := make([]Photon, 0)
	var record [PHOTON_RECORD_SIZE]byte
	for {
		_, err := io.ReadFull(r, record[:])
		if err == io.EOF {
			return photons, nil
		}
		if err != nil {
			return photons, fmt.Errorf("error reading photon record %d: %w", len(photons), err)
		}
		photons = append(photons, Photon{
			X:   math.Float64frombits(binary.LittleEndian.Uint64(record[0:])),
			Y:   math.Float64frombits(binary.LittleEndian.Uint64(record[8:])),
			Toa: math.Float64frombits(binary.LittleEndian.Uint64(record[16:])),
			Tof: math.Float64frombits(binary.LittleEndian.Uint64(record[24:])),
		})
	}
}
