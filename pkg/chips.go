package decoder

// ChipTransform maps chip-local pixel coordinates into the mosaic. A flipped
// axis is mirrored around its offset (offset - v), otherwise shifted
// (v + offset).
type ChipTransform struct {
	XOffset int  `db:"XOffset"`
	YOffset int  `db:"YOffset"`
	FlipX   bool `db:"FlipX"`
	FlipY   bool `db:"FlipY"`
}

func (t ChipTransform) Apply(x, y int) (int, int) {
	if t.FlipX {
		x = t.XOffset - x
	} else {
		x = x + t.XOffset
	}
	if t.FlipY {
		y = t.YOffset - y
	} else {
		y = y + t.YOffset
	}
	return x, y
}

// ChipLayout holds the transform of each chip in the detector mosaic.
type ChipLayout map[uint8]ChipTransform

// Fixed quad mosaic. Chip numbers outside 0-2 have no known placement
// and pass through unchanged.
var defaultChipLayout = ChipLayout{
	0: {XOffset: 260, YOffset: 0},
	1: {XOffset: 515, YOffset: 515, FlipX: true, FlipY: true},
	2: {XOffset: 255, YOffset: 515, FlipX: true, FlipY: true},
}

func DefaultChipLayout() ChipLayout {
	layout := make(ChipLayout, len(defaultChipLayout))
	for chip, transform := range defaultChipLayout {
		layout[chip] = transform
	}
	return layout
}

// Map returns the mosaic coordinates of (x, y) on chip. A nil layout uses the
// default mosaic.
func (l ChipLayout) Map(chip uint8, x, y int) (int, int) {
	if l == nil {
		l = defaultChipLayout
	}
	transform, ok := l[chip]
	if !ok {
		return x, y
	}
	return transform.Apply(x, y)
}

// Merge returns a copy of l with the transforms in overrides replacing or
// adding chips.
func (l ChipLayout) Merge(overrides ChipLayout) ChipLayout {
	merged := DefaultChipLayout()
	if l != nil {
		merged = make(ChipLayout, len(l)+len(overrides))
		for chip, transform := range l {
			merged[chip] = transform
		}
	}
	for chip, transform := range overrides {
		merged[chip] = transform
	}
	return merged
}

func MapCoordinates(chip uint8, x, y int) (int, int) {
	return defaultChipLayout.Map(chip, x, y)
}
