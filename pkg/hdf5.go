package decoder

import (
	"math"

	"github.com/jmbenlloch/go-hdf5"
)

type RunInfoHDF5 struct {
	run_number int32
	buffers    int32
	acq_time   float64 // seconds on the global clock, NaN if never seen
}

type DiagnosticsHDF5 struct {
	bytes_read      int64
	buffers         int32
	pixel_hits      int32
	tdc_triggers    int32
	global_times    int32
	photons         int32
	unpacking_time  float64 // seconds
	sorting_time    float64
	clustering_time float64
	writing_time    float64
}

type SignalHDF5 struct {
	buffer_number uint32
	signal_type   uint8
	x             int32
	y             int32
	toa           float64
	tot           float64
	time_group    int32
	space_group   int32
}

type PhotonHDF5 struct {
	buffer_number uint32
	time_group    int32
	space_group   int32
	x             float64
	y             float64
	toa           float64
	tof           float64
	integrated    float64
	multiplicity  int32
}

type ConfigurationHDF5 struct {
	paramStr [STRLEN]byte
	value    float64
}

const STRLEN = 20

const TABLE_CHUNK = 32768

func convertToHdf5String(s string) [STRLEN]byte {
	var byteArray [STRLEN]byte
	copy(byteArray[:], s)
	return byteArray
}

func signalRows(signals []Signal) []SignalHDF5 {
	// The array MUST be allocated at creation, HDF5 reads it in place
	rows := make([]SignalHDF5, len(signals))
	for i, s := range signals {
		rows[i] = SignalHDF5{
			buffer_number: s.BufferNumber,
			signal_type:   uint8(s.Type),
			x:             int32(s.XPixel),
			y:             int32(s.YPixel),
			toa:           s.ToaFinal,
			tot:           s.TotFinal,
			time_group:    int32(s.TimeGroup),
			space_group:   int32(s.SpaceGroup),
		}
	}
	return rows
}

func photonRows(photons []Photon) []PhotonHDF5 {
	rows := make([]PhotonHDF5, len(photons))
	for i, p := range photons {
		rows[i] = PhotonHDF5{
			buffer_number: p.BufferNumber,
			time_group:    int32(p.TimeGroup),
			space_group:   int32(p.SpaceGroup),
			x:             p.X,
			y:             p.Y,
			toa:           p.Toa,
			tof:           p.Tof,
			integrated:    p.IntegratedTot,
			multiplicity:  int32(p.Multiplicity),
		}
	}
	return rows
}

func diagnosticsRow(d Diagnostics) DiagnosticsHDF5 {
	return DiagnosticsHDF5{
		bytes_read:      d.BytesRead,
		buffers:         int32(d.Buffers),
		pixel_hits:      int32(d.PixelHits),
		tdc_triggers:    int32(d.TdcTriggers),
		global_times:    int32(d.GlobalTimes),
		photons:         int32(d.Photons),
		unpacking_time:  d.UnpackingTime.Seconds(),
		sorting_time:    d.SortingTime.Seconds(),
		clustering_time: d.ClusteringTime.Seconds(),
		writing_time:    d.WritingTime.Seconds(),
	}
}

func runInfoRow(runNumber int, buffers int, clock *GlobalClock) RunInfoHDF5 {
	row := RunInfoHDF5{
		run_number: int32(runNumber),
		buffers:    int32(buffers),
		acq_time:   math.NaN(),
	}
	if clock != nil && clock.Valid() {
		row.acq_time = clock.Seconds()
	}
	return row
}

func openFile(fname string) (*hdf5.File, error) {
	f, err := hdf5.CreateFile(fname, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, &ErrOpenFile{Filename: fname, Err: err}
	}
	return f, nil
}

func createGroup(file *hdf5.File, groupName string) (*hdf5.Group, error) {
	g, err := file.CreateGroup(groupName)
	if err != nil {
		return nil, &ErrCreateGroup{GroupName: groupName, Err: err}
	}
	return g, nil
}

func createTable(group *hdf5.Group, name string, datatype interface{}, compression int) (*hdf5.Dataset, error) {
	dims := []uint{0}
	unlimitedDims := -1 // H5S_UNLIMITED is -1L
	maxDims := []uint{uint(unlimitedDims)}
	file_space, err := hdf5.CreateSimpleDataspace(dims, maxDims)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	defer file_space.Close()

	// create property list
	plist, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	defer plist.Close()

	chunks := []uint{TABLE_CHUNK}
	if err := plist.SetChunk(chunks); err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	if compression > 0 {
		if err := plist.SetDeflate(compression); err != nil {
			return nil, &ErrCreateTable{TableName: name, Err: err}
		}
	}

	// create the memory data type
	dtype, err := hdf5.NewDatatypeFromValue(datatype)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}

	dset, err := group.CreateDatasetWith(name, dtype, file_space, plist)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	return dset, nil
}

func writeEntryToTable[T any](dataset *hdf5.Dataset, name string, data T, rowCounter int) error {
	array := []T{data}
	return writeArrayToTable(dataset, name, &array, rowCounter)
}

// writeArrayToTable appends data after the first rowCounter rows of the
// table.
func writeArrayToTable[T any](dataset *hdf5.Dataset, name string, data *[]T, rowCounter int) error {
	length := uint(len(*data))
	if length == 0 {
		return nil
	}
	dims := []uint{length}
	dataspace, err := hdf5.CreateSimpleDataspace(dims, nil)
	if err != nil {
		return &ErrWriteTable{TableName: name, Err: err}
	}
	defer dataspace.Close()

	// extend
	rowsInFile := uint(rowCounter)
	newsize := []uint{rowsInFile + length}
	if err := dataset.Resize(newsize); err != nil {
		return &ErrWriteTable{TableName: name, Err: err}
	}
	filespace := dataset.Space()
	defer filespace.Close()

	start := []uint{rowsInFile}
	count := []uint{length}
	if err := filespace.SelectHyperslab(start, nil, count, nil); err != nil {
		return &ErrWriteTable{TableName: name, Err: err}
	}

	if err := dataset.WriteSubset(data, dataspace, filespace); err != nil {
		return &ErrWriteTable{TableName: name, Err: err}
	}
	return nil
}
