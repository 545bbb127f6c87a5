package decoder

import "fmt"

const WORD_SIZE = 8

// TPX3_MAGIC is "TPX3" read as a little-endian uint32. It fills the low 32
// bits of every chunk header.
const TPX3_MAGIC uint32 = uint32('3')<<24 | uint32('X')<<16 | uint32('P')<<8 | uint32('T')

type PacketType uint8

const (
	GlobalTimePacket PacketType = 0x4
	TdcPacket        PacketType = 0x6
	PixelPacket      PacketType = 0xB
)

func (p PacketType) String() string {
	switch p {
	case GlobalTimePacket:
		return "GlobalTime"
	case TdcPacket:
		return "TDC"
	case PixelPacket:
		return "Pixel"
	default:
		return fmt.Sprintf("0x%X", uint8(p))
	}
}

// Global time flags (bits 63-56)
const (
	GLOBAL_TIME_LOW  uint8 = 0x44
	GLOBAL_TIME_HIGH uint8 = 0x45
)

// Clock constants
const (
	SPIDR_TICK_NS    = 25.0 * 16384.0
	FINE_TOA_TICK_NS = 25.0 / 16
	TOT_TICK_NS      = 25.0
	TDC_TICK_S       = 3.125e-9
	TDC_STAMP_S      = 0.260e-9
	GLOBAL_TICK_S    = 25e-9
	NS_TO_S          = 1e-9
)

// Field layout: shift, mask
const (
	typeShift, typeMask = 60, 0xF

	headerMagicShift, headerMagicMask = 0, 0xFFFFFFFF
	headerSizeShift, headerSizeMask   = 48, 0xFFFF
	headerModeShift, headerModeMask   = 40, 0xFF
	headerChipShift, headerChipMask   = 32, 0xFF

	pixelDcolShift, pixelDcolMask   = 53, 0x7F
	pixelSpixShift, pixelSpixMask   = 47, 0x3F
	pixelPixShift, pixelPixMask     = 44, 0x7
	pixelToaShift, pixelToaMask     = 30, 0x3FFF
	pixelTotShift, pixelTotMask     = 20, 0x3FF
	pixelFtoaShift, pixelFtoaMask   = 16, 0xF
	pixelSpidrShift, pixelSpidrMask = 0, 0xFFFF

	tdcTypeShift, tdcTypeMask           = 56, 0xFF
	tdcTriggerShift, tdcTriggerMask     = 44, 0xFFF
	tdcTimestampShift, tdcTimestampMask = 9, 0x7FFFFFFFF
	tdcStampShift, tdcStampMask         = 5, 0xF
	tdcReservedShift, tdcReservedMask   = 0, 0x1F

	gtFlagShift, gtFlagMask   = 56, 0xFF
	gtLowShift, gtLowMask     = 16, 0xFFFFFFFF
	gtHighShift, gtHighMask   = 16, 0xFFFF
	gtSpidrShift, gtSpidrMask = 0, 0xFFFF
)

func TypeHeader(word uint64) PacketType {
	return field[PacketType](word, typeShift, typeMask)
}

type ChunkHeader struct {
	BufferSize uint16 // payload size in bytes
	Mode       uint8
	ChipNumber uint8
}

// Words returns the number of payload words announced by the header.
func (h ChunkHeader) Words() int {
	return int(h.BufferSize) / WORD_SIZE
}

func IsChunkHeader(word uint64) bool {
	return field[uint32](word, headerMagicShift, headerMagicMask) == TPX3_MAGIC
}

func ParseHeader(word uint64) ChunkHeader {
	return ChunkHeader{
		BufferSize: field[uint16](word, headerSizeShift, headerSizeMask),
		Mode:       field[uint8](word, headerModeShift, headerModeMask),
		ChipNumber: field[uint8](word, headerChipShift, headerChipMask),
	}
}

type PixelData struct {
	Dcol      uint8 // double column index, 7 bits
	Spix      uint8 // super pixel index, 6 bits
	Pix       uint8 // pixel inside the super pixel, 3 bits
	CoarseToA uint16
	FineToA   uint8
	ToT       uint16 // raw 25 ns counts
	SpidrTime uint16
	Chip      uint8
	// Chip-local and mosaic coordinates
	LocalX, LocalY int
	X, Y           int
}

// CToA combines the coarse and the inverted fine time of arrival.
func (p PixelData) CToA() uint32 {
	return uint32(p.CoarseToA)<<4 | uint32(^p.FineToA&0xF)
}

func (p PixelData) ToaNs() float64 {
	return float64(p.SpidrTime)*SPIDR_TICK_NS + float64(p.CToA())*FINE_TOA_TICK_NS
}

func (p PixelData) TotNs() float64 {
	return float64(p.ToT) * TOT_TICK_NS
}

func (p PixelData) Signal(bufferNumber uint32) Signal {
	signal := newSignal(bufferNumber, PixelSignal)
	signal.XPixel = p.X
	signal.YPixel = p.Y
	signal.ToaFinal = p.ToaNs() * NS_TO_S
	signal.TotFinal = p.TotNs()
	return signal
}

// ParsePixel decodes a pixel word. The address is corrected with layout for
// the chip announced by the enclosing chunk header; a nil layout applies the
// default mosaic.
func ParsePixel(word uint64, chip uint8, layout ChipLayout) PixelData {
	p := PixelData{
		Dcol:      field[uint8](word, pixelDcolShift, pixelDcolMask),
		Spix:      field[uint8](word, pixelSpixShift, pixelSpixMask),
		Pix:       field[uint8](word, pixelPixShift, pixelPixMask),
		CoarseToA: field[uint16](word, pixelToaShift, pixelToaMask),
		ToT:       field[uint16](word, pixelTotShift, pixelTotMask),
		FineToA:   field[uint8](word, pixelFtoaShift, pixelFtoaMask),
		SpidrTime: field[uint16](word, pixelSpidrShift, pixelSpidrMask),
		Chip:      chip,
	}
	// dcol and spix count columns in pairs and rows in fours
	p.LocalX = 2*int(p.Dcol) + int(p.Pix)/4
	p.LocalY = 4*int(p.Spix) + int(p.Pix&3)
	p.X, p.Y = layout.Map(chip, p.LocalX, p.LocalY)
	return p
}

type TdcData struct {
	Type           uint8
	TriggerCounter uint16
	Timestamp      uint64 // 3.125 ns counts
	Stamp          uint8  // 0.260 ns counts
	Reserved       uint8
}

func (t TdcData) ToaSeconds() float64 {
	return float64(t.Timestamp)*TDC_TICK_S + float64(t.Stamp)*TDC_STAMP_S
}

func (t TdcData) Signal(bufferNumber uint32) Signal {
	signal := newSignal(bufferNumber, TdcSignal)
	signal.ToaFinal = t.ToaSeconds()
	return signal
}

func ParseTdc(word uint64) TdcData {
	return TdcData{
		Type:           field[uint8](word, tdcTypeShift, tdcTypeMask),
		TriggerCounter: field[uint16](word, tdcTriggerShift, tdcTriggerMask),
		Timestamp:      ExtractField(word, tdcTimestampShift, tdcTimestampMask),
		Stamp:          field[uint8](word, tdcStampShift, tdcStampMask),
		Reserved:       field[uint8](word, tdcReservedShift, tdcReservedMask),
	}
}

type TimeHalf int

const (
	UnknownHalf TimeHalf = iota
	LowHalf
	HighHalf
)

func (h TimeHalf) String() string {
	switch h {
	case LowHalf:
		return "low"
	case HighHalf:
		return "high"
	default:
		return "unknown"
	}
}

// GlobalTimeData is one half of the 48-bit global clock. Joining the halves
// is left to GlobalClock.
type GlobalTimeData struct {
	Flag      uint8
	Timestamp uint64 // 32 bits for the low half, 16 bits for the high half
	SpidrTime uint16
}

func (g GlobalTimeData) Half() TimeHalf {
	switch g.Flag {
	case GLOBAL_TIME_LOW:
		return LowHalf
	case GLOBAL_TIME_HIGH:
		return HighHalf
	default:
		return UnknownHalf
	}
}

// The global time half is not a timestamp by itself, so the signal
// carries ToaFinal 0.
func (g GlobalTimeData) Signal(bufferNumber uint32) Signal {
	return newSignal(bufferNumber, GlobalTimeSignal)
}

func ParseGlobalTime(word uint64) GlobalTimeData {
	g := GlobalTimeData{
		Flag:      field[uint8](word, gtFlagShift, gtFlagMask),
		SpidrTime: field[uint16](word, gtSpidrShift, gtSpidrMask),
	}
	switch g.Half() {
	case LowHalf:
		g.Timestamp = ExtractField(word, gtLowShift, gtLowMask)
	case HighHalf:
		g.Timestamp = ExtractField(word, gtHighShift, gtHighMask)
	}
	return g
}

// ParsePacket decodes one payload word into a Signal. Words whose type
// header is not pixel, TDC or global time return *ErrUnknownPacketType with
// an unknown offset.
func ParsePacket(word uint64, chip uint8, layout ChipLayout, bufferNumber uint32) (Signal, error) {
	switch TypeHeader(word) {
	case PixelPacket:
		return ParsePixel(word, chip, layout).Signal(bufferNumber), nil
	case TdcPacket:
		return ParseTdc(word).Signal(bufferNumber), nil
	case GlobalTimePacket:
		return ParseGlobalTime(word).Signal(bufferNumber), nil
	}
	return Signal{}, &ErrUnknownPacketType{Offset: -1, TypeHeader: uint8(TypeHeader(word)), Word: word}
}

func EncodeHeader(h ChunkHeader) uint64 {
	word := uint64(TPX3_MAGIC)
	word = InsertField(word, headerSizeShift, headerSizeMask, uint64(h.BufferSize))
	word = InsertField(word, headerModeShift, headerModeMask, uint64(h.Mode))
	return InsertField(word, headerChipShift, headerChipMask, uint64(h.ChipNumber))
}

// EncodePixel builds a pixel word from its raw fields. Coordinates are
// derived on decode and ignored here.
func EncodePixel(p PixelData) uint64 {
	word := InsertField(0, typeShift, typeMask, uint64(PixelPacket))
	word = InsertField(word, pixelDcolShift, pixelDcolMask, uint64(p.Dcol))
	word = InsertField(word, pixelSpixShift, pixelSpixMask, uint64(p.Spix))
	word = InsertField(word, pixelPixShift, pixelPixMask, uint64(p.Pix))
	word = InsertField(word, pixelToaShift, pixelToaMask, uint64(p.CoarseToA))
	word = InsertField(word, pixelTotShift, pixelTotMask, uint64(p.ToT))
	word = InsertField(word, pixelFtoaShift, pixelFtoaMask, uint64(p.FineToA))
	return InsertField(word, pixelSpidrShift, pixelSpidrMask, uint64(p.SpidrTime))
}

// EncodeTdc builds a TDC word. A zero Type is written as 0x6F (TDC1 rising).
func EncodeTdc(t TdcData) uint64 {
	tdcType := t.Type
	if tdcType == 0 {
		tdcType = 0x6F
	}
	word := InsertField(0, tdcTypeShift, tdcTypeMask, uint64(tdcType))
	word = InsertField(word, tdcTriggerShift, tdcTriggerMask, uint64(t.TriggerCounter))
	word = InsertField(word, tdcTimestampShift, tdcTimestampMask, t.Timestamp)
	word = InsertField(word, tdcStampShift, tdcStampMask, uint64(t.Stamp))
	return InsertField(word, tdcReservedShift, tdcReservedMask, uint64(t.Reserved))
}

func EncodeGlobalTime(g GlobalTimeData) uint64 {
	word := InsertField(0, gtFlagShift, gtFlagMask, uint64(g.Flag))
	switch g.Half() {
	case LowHalf:
		word = InsertField(word, gtLowShift, gtLowMask, g.Timestamp)
	case HighHalf:
		word = InsertField(word, gtHighShift, gtHighMask, g.Timestamp)
	}
	return InsertField(word, gtSpidrShift, gtSpidrMask, uint64(g.SpidrTime))
}
