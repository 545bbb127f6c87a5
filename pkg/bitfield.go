package decoder

import "golang.org/x/exp/constraints"

// ExtractField returns the bits selected by mask after shifting word right by
// shift. The word is never reinterpreted as signed, so fields that touch
// bit 63 come out intact.
func ExtractField(word uint64, shift uint, mask uint64) uint64 {
	return (word >> shift) & mask
}

// InsertField is the inverse of ExtractField: it clears the field in word and
// stores value (truncated to mask) in its place.
func InsertField(word uint64, shift uint, mask uint64, value uint64) uint64 {
	word &^= mask << shift
	return word | (value&mask)<<shift
}

func field[T constraints.Unsigned](word uint64, shift uint, mask uint64) T {
	return T(ExtractField(word, shift, mask))
}
