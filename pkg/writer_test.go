package decoder

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalRows(t *testing.T) {
	signal := labelledPixel(270, 20, 1e-6, 250, 3, 4)
	signal.BufferNumber = 9
	rows := signalRows([]Signal{signal, newSignal(2, TdcSignal)})
	require.Len(t, rows, 2)

	assert.Equal(t, SignalHDF5{
		buffer_number: 9,
		signal_type:   uint8(PixelSignal),
		x:             270,
		y:             20,
		toa:           1e-6,
		tot:           250,
		time_group:    3,
		space_group:   4,
	}, rows[0])
	assert.Equal(t, uint8(TdcSignal), rows[1].signal_type)
	assert.Equal(t, int32(Unvisited), rows[1].time_group)
}

func TestPhotonRows(t *testing.T) {
	rows := photonRows([]Photon{{BufferNumber: 5, TimeGroup: 1, SpaceGroup: 2, X: 1.5, Y: 2.5, Toa: 3, Tof: math.NaN(), IntegratedTot: 400, Multiplicity: 3}})
	require.Len(t, rows, 1)
	assert.Equal(t, uint32(5), rows[0].buffer_number)
	assert.Equal(t, int32(1), rows[0].time_group)
	assert.Equal(t, int32(2), rows[0].space_group)
	assert.Equal(t, 1.5, rows[0].x)
	assert.Equal(t, 2.5, rows[0].y)
	assert.True(t, math.IsNaN(rows[0].tof))
	assert.Equal(t, 400.0, rows[0].integrated)
	assert.Equal(t, int32(3), rows[0].multiplicity)
}

func TestDiagnosticsRow(t *testing.T) {
	row := diagnosticsRow(Diagnostics{BytesRead: 80, Buffers: 2, PixelHits: 7, UnpackingTime: 1500 * time.Millisecond})
	assert.Equal(t, int64(80), row.bytes_read)
	assert.Equal(t, int32(2), row.buffers)
	assert.Equal(t, int32(7), row.pixel_hits)
	assert.Equal(t, 1.5, row.unpacking_time)
}

func TestRunInfoRow(t *testing.T) {
	row := runInfoRow(12, 3, nil)
	assert.Equal(t, int32(12), row.run_number)
	assert.Equal(t, int32(3), row.buffers)
	assert.True(t, math.IsNaN(row.acq_time))

	clock := &GlobalClock{}
	clock.Update(GlobalTimeData{Flag: GLOBAL_TIME_LOW, Timestamp: 40})
	assert.True(t, math.IsNaN(runInfoRow(12, 3, clock).acq_time))
	clock.Update(GlobalTimeData{Flag: GLOBAL_TIME_HIGH})
	assert.InDelta(t, 1e-6, runInfoRow(12, 3, clock).acq_time, 1e-15)
}

func TestConfigurationRows(t *testing.T) {
	config := Configuration{
		FilesIn:         []string{"a.tpx3"},
		Host:            "localhost",
		RunNumber:       42,
		EpsSpatial:      2.5,
		SortSignals:     true,
		WritePhotonList: false,
	}
	rows := configurationRows(config)

	values := make(map[string]float64)
	for _, row := range rows {
		name := strings.TrimRight(string(row.paramStr[:]), "\x00")
		values[name] = row.value
	}
	assert.Equal(t, 42.0, values["run_number"])
	assert.Equal(t, 2.5, values["eps_spatial"])
	assert.Equal(t, 1.0, values["sort_signals"])
	assert.Equal(t, 0.0, values["write_photon_list"])
	assert.Contains(t, values, "compression_level")
	assert.NotContains(t, values, "host")
	assert.NotContains(t, values, "files_in")
}

func TestConvertToHdf5String(t *testing.T) {
	s := convertToHdf5String("a_very_long_parameter_name")
	assert.Equal(t, "a_very_long_paramete", string(s[:]))
}
