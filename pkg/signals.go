package decoder

import "sort"

type SignalType uint8

const (
	UnknownSignal SignalType = iota
	TdcSignal
	PixelSignal
	GlobalTimeSignal
)

func (s SignalType) String() string {
	switch s {
	case TdcSignal:
		return "TDC"
	case PixelSignal:
		return "Pixel"
	case GlobalTimeSignal:
		return "GlobalTime"
	default:
		return "Unknown"
	}
}

// Group labels written by the clustering passes.
const (
	Unvisited = -1
	Noise     = 0
)

// Signal is one decoded payload word.
type Signal struct {
	BufferNumber uint32
	Type         SignalType
	XPixel       int
	YPixel       int
	// Time of arrival in seconds
	ToaFinal float64
	// Time over threshold in nanoseconds, 0 for TDC and global time signals
	TotFinal   float64
	TimeGroup  int
	SpaceGroup int
}

func newSignal(bufferNumber uint32, signalType SignalType) Signal {
	return Signal{
		BufferNumber: bufferNumber,
		Type:         signalType,
		TimeGroup:    Unvisited,
		SpaceGroup:   Unvisited,
	}
}

// Buffer holds the signals decoded from one chunk.
type Buffer struct {
	Number  uint32
	Offset  int64 // byte offset of the chunk header in the stream
	Header  ChunkHeader
	Signals []Signal
}

// SortByToa stably sorts the buffer signals by ToaFinal. Order across
// buffers is not touched.
func (b *Buffer) SortByToa() {
	sort.SliceStable(b.Signals, func(i, j int) bool {
		return b.Signals[i].ToaFinal < b.Signals[j].ToaFinal
	})
}

// Photon is a group of pixel signals of one buffer sharing the same
// (TimeGroup, SpaceGroup) pair.
type Photon struct {
	BufferNumber  uint32
	TimeGroup     int
	SpaceGroup    int
	X             float64
	Y             float64
	Toa           float64
	Tof           float64
	IntegratedTot float64
	Multiplicity  int
}
