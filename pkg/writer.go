package decoder

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/jmbenlloch/go-hdf5"
)

type Writer struct {
	File               *hdf5.File
	Filename           string
	RunGroup           *hdf5.Group
	SignalsGroup       *hdf5.Group
	PhotonsGroup       *hdf5.Group
	RunInfoTable       *hdf5.Dataset
	ConfigurationTable *hdf5.Dataset
	DiagnosticsTable   *hdf5.Dataset
	SignalsTable       *hdf5.Dataset
	PhotonsTable       *hdf5.Dataset
	SignalCounter      int
	PhotonCounter      int
	DiagCounter        int
	RunInfoCounter     int
}

// NewWriter creates filename and the Run, Signals and Photons groups with
// their tables. Tables are compressed with deflate at compressionLevel, 0
// leaves them uncompressed.
func NewWriter(filename string, compressionLevel int) (*Writer, error) {
	logger.Info(fmt.Sprintf("Creating file: %s", filename), "hdf5writer")
	file, err := openFile(filename)
	if err != nil {
		return nil, err
	}
	writer := &Writer{File: file, Filename: filename}

	if err := writer.createLayout(compressionLevel); err != nil {
		return nil, errors.Join(err, writer.Close())
	}
	return writer, nil
}

func (w *Writer) createLayout(compressionLevel int) error {
	var err error
	if w.RunGroup, err = createGroup(w.File, "Run"); err != nil {
		return err
	}
	if w.SignalsGroup, err = createGroup(w.File, "Signals"); err != nil {
		return err
	}
	if w.PhotonsGroup, err = createGroup(w.File, "Photons"); err != nil {
		return err
	}
	if w.RunInfoTable, err = createTable(w.RunGroup, "runInfo", RunInfoHDF5{}, compressionLevel); err != nil {
		return err
	}
	if w.ConfigurationTable, err = createTable(w.RunGroup, "configuration", ConfigurationHDF5{}, compressionLevel); err != nil {
		return err
	}
	if w.DiagnosticsTable, err = createTable(w.RunGroup, "diagnostics", DiagnosticsHDF5{}, compressionLevel); err != nil {
		return err
	}
	if w.SignalsTable, err = createTable(w.SignalsGroup, "signals", SignalHDF5{}, compressionLevel); err != nil {
		return err
	}
	if w.PhotonsTable, err = createTable(w.PhotonsGroup, "photons", PhotonHDF5{}, compressionLevel); err != nil {
		return err
	}
	return nil
}

func (w *Writer) WriteSignals(signals []Signal) error {
	rows := signalRows(signals)
	if err := writeArrayToTable(w.SignalsTable, "signals", &rows, w.SignalCounter); err != nil {
		return err
	}
	w.SignalCounter += len(rows)
	return nil
}

func (w *Writer) WritePhotons(photons []Photon) error {
	rows := photonRows(photons)
	if err := writeArrayToTable(w.PhotonsTable, "photons", &rows, w.PhotonCounter); err != nil {
		return err
	}
	w.PhotonCounter += len(rows)
	return nil
}

func (w *Writer) WriteDiagnostics(d Diagnostics) error {
	if err := writeEntryToTable(w.DiagnosticsTable, "diagnostics", diagnosticsRow(d), w.DiagCounter); err != nil {
		return err
	}
	w.DiagCounter++
	return nil
}

func (w *Writer) WriteRunInfo(runNumber int, buffers int, clock *GlobalClock) error {
	row := runInfoRow(runNumber, buffers, clock)
	if err := writeEntryToTable(w.RunInfoTable, "runInfo", row, w.RunInfoCounter); err != nil {
		return err
	}
	w.RunInfoCounter++
	return nil
}

func (w *Writer) WriteConfiguration(config Configuration) error {
	entries := configurationRows(config)
	return writeArrayToTable(w.ConfigurationTable, "configuration", &entries, 0)
}

// configurationRows flattens the numeric and boolean settings of config into
// name/value pairs named after their json keys.
func configurationRows(config Configuration) []ConfigurationHDF5 {
	t := reflect.TypeOf(config)
	v := reflect.ValueOf(config)
	n := t.NumField()
	entries := make([]ConfigurationHDF5, 0, n)

	for i := 0; i < n; i++ {
		f := t.Field(i)
		paramName, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if paramName == "" || paramName == "-" {
			continue
		}
		var value float64
		switch f.Type.Kind() {
		case reflect.Int:
			value = float64(v.Field(i).Int())
		case reflect.Float64:
			value = v.Field(i).Float()
		case reflect.Bool:
			if v.Field(i).Bool() {
				value = 1
			}
		default:
			continue
		}
		entries = append(entries, ConfigurationHDF5{
			paramStr: convertToHdf5String(paramName),
			value:    value,
		})
	}
	return entries
}

// Flush writes everything the decoder produced for one file: the
// clustered signals, the photons and the diagnostics. Writing time is
// added to diagnostics before they are stored.
func (w *Writer) Flush(result FileOutput, writeSignals, writePhotons bool) error {
	start := time.Now()
	if writeSignals {
		if err := w.WriteSignals(result.Signals); err != nil {
			return err
		}
	}
	if writePhotons {
		if err := w.WritePhotons(result.Photons); err != nil {
			return err
		}
	}
	if err := w.WriteRunInfo(result.RunNumber, result.Diagnostics.Buffers, result.Clock); err != nil {
		return err
	}
	result.Diagnostics.WritingTime += time.Since(start)
	return w.WriteDiagnostics(result.Diagnostics)
}

type closer interface {
	Close() error
}

func (w *Writer) Close() error {
	logger.Info(fmt.Sprintf("Closing file %s", w.Filename), "hdf5writer")
	var errs []error

	resources := []struct {
		name string
		c    closer
	}{
		{"run info table", datasetCloser(w.RunInfoTable)},
		{"configuration table", datasetCloser(w.ConfigurationTable)},
		{"diagnostics table", datasetCloser(w.DiagnosticsTable)},
		{"signals table", datasetCloser(w.SignalsTable)},
		{"photons table", datasetCloser(w.PhotonsTable)},
		{"run group", groupCloser(w.RunGroup)},
		{"signals group", groupCloser(w.SignalsGroup)},
		{"photons group", groupCloser(w.PhotonsGroup)},
	}
	for _, r := range resources {
		if r.c == nil {
			continue
		}
		if err := r.c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing %s: %w", r.name, err))
		}
	}
	if w.File != nil {
		if err := w.File.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing file: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Typed nil pointers must not end up inside a non-nil interface.
func datasetCloser(d *hdf5.Dataset) closer {
	if d == nil {
		return nil
	}
	return d
}

func groupCloser(g *hdf5.Group) closer {
	if g == nil {
		return nil
	}
	return g
}
