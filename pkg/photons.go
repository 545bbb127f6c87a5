package decoder

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Cluster ids restart in every buffer, so the buffer is part of the key.
type groupKey struct {
	BufferNumber uint32
	TimeGroup    int
	SpaceGroup   int
}

// BuildPhotons merges the pixel signals of a buffer that share a
// (TimeGroup, SpaceGroup) pair into one photon. Noise and unvisited pixels are ignored. The position
// is the ToT weighted centroid and the time of arrival is the earliest hit.
// Photons come out sorted by Toa.
func BuildPhotons(signals []Signal) []Photon {
	members := make(map[groupKey][]int)
	keys := make([]groupKey, 0)
	for i := range signals {
		s := &signals[i]
		if s.Type != PixelSignal || s.TimeGroup <= Noise || s.SpaceGroup <= Noise {
			continue
		}
		key := groupKey{BufferNumber: s.BufferNumber, TimeGroup: s.TimeGroup, SpaceGroup: s.SpaceGroup}
		if _, ok := members[key]; !ok {
			keys = append(keys, key)
		}
		members[key] = append(members[key], i)
	}

	photons := make([]Photon, 0, len(keys))
	for _, key := range keys {
		photons = append(photons, newPhoton(key, members[key], signals))
	}
	sort.SliceStable(photons, func(i, j int) bool {
		a, b := photons[i], photons[j]
		if a.Toa != b.Toa {
			return a.Toa < b.Toa
		}
		if a.BufferNumber != b.BufferNumber {
			return a.BufferNumber < b.BufferNumber
		}
		if a.TimeGroup != b.TimeGroup {
			return a.TimeGroup < b.TimeGroup
		}
		return a.SpaceGroup < b.SpaceGroup
	})
	return photons
}

func newPhoton(key groupKey, indexes []int, signals []Signal) Photon {
	xs := make([]float64, len(indexes))
	ys := make([]float64, len(indexes))
	weights := make([]float64, len(indexes))
	photon := Photon{
		BufferNumber: key.BufferNumber,
		TimeGroup:    key.TimeGroup,
		SpaceGroup:   key.SpaceGroup,
		Toa:          math.Inf(1),
		Tof:          math.NaN(),
		Multiplicity: len(indexes),
	}
	for k, i := range indexes {
		s := &signals[i]
		xs[k] = float64(s.XPixel)
		ys[k] = float64(s.YPixel)
		weights[k] = s.TotFinal
		photon.IntegratedTot += s.TotFinal
		if s.ToaFinal < photon.Toa {
			photon.Toa = s.ToaFinal
		}
	}
	if photon.IntegratedTot <= 0 {
		weights = nil
	}
	photon.X = stat.Mean(xs, weights)
	photon.Y = stat.Mean(ys, weights)
	return photon
}

// AssignTimeOfFlight sets the Tof of each photon to its Toa minus the latest
// TDC trigger at or before it. Photons with no earlier trigger get NaN.
func AssignTimeOfFlight(photons []Photon, signals []Signal) {
	triggers := make([]float64, 0)
	for i := range signals {
		if signals[i].Type == TdcSignal {
			triggers = append(triggers, signals[i].ToaFinal)
		}
	}
	sort.Float64s(triggers)

	for i := range photons {
		toa := photons[i].Toa
		// first trigger strictly after toa
		k := sort.Search(len(triggers), func(j int) bool { return triggers[j] > toa })
		if k == 0 {
			photons[i].Tof = math.NaN()
			continue
		}
		photons[i].Tof = toa - triggers[k-1]
	}
}

// GlobalClock joins the low and high halves of the 48-bit global timestamp.
type GlobalClock struct {
	low, high uint64
	seenLow   bool
	seenHigh  bool
}

// Update stores the half carried by g. Words with an unknown flag are
// ignored and reported as false.
func (c *GlobalClock) Update(g GlobalTimeData) bool {
	switch g.Half() {
	case LowHalf:
		c.low = g.Timestamp & 0xFFFFFFFF
		c.seenLow = true
	case HighHalf:
		c.high = g.Timestamp & 0xFFFF
		c.seenHigh = true
	default:
		return false
	}
	return true
}

// Valid reports whether both halves have been seen.
func (c *GlobalClock) Valid() bool {
	return c.seenLow && c.seenHigh
}

func (c *GlobalClock) Ticks() uint64 {
	return c.high<<32 | c.low
}

func (c *GlobalClock) Seconds() float64 {
	return float64(c.Ticks()) * GLOBAL_TICK_S
}
