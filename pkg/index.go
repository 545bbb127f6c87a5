package decoder

import (
	"math"
	"sort"
)

// timeIndex keeps the pixel signals ordered by ToaFinal. A query walks
// outwards from the signal's own rank and stops at the first point further
// than eps on each side, which yields the same set as a full scan because
// the distance grows monotonically along the sorted order.
type timeIndex struct {
	order []int // signal indexes sorted by ToaFinal
	rank  []int // position of each signal in order, -1 if not indexed
}

func newTimeIndex(signals []Signal) *timeIndex {
	idx := &timeIndex{
		order: make([]int, 0, len(signals)),
		rank:  make([]int, len(signals)),
	}
	for i := range signals {
		idx.rank[i] = -1
		// NaN has no neighbors, not even itself
		if signals[i].Type == PixelSignal && !math.IsNaN(signals[i].ToaFinal) {
			idx.order = append(idx.order, i)
		}
	}
	sort.SliceStable(idx.order, func(a, b int) bool {
		return signals[idx.order[a]].ToaFinal < signals[idx.order[b]].ToaFinal
	})
	for position, i := range idx.order {
		idx.rank[i] = position
	}
	return idx
}

func (idx *timeIndex) query(signals []Signal, eps float64) neighborQuery {
	return func(i int, buf []int) []int {
		position := idx.rank[i]
		if position < 0 {
			return buf
		}
		p := &signals[i]
		for k := position; k >= 0; k-- {
			j := idx.order[k]
			if !(timeDistance(p, &signals[j]) <= eps) {
				break
			}
			buf = append(buf, j)
		}
		for k := position + 1; k < len(idx.order); k++ {
			j := idx.order[k]
			if !(timeDistance(p, &signals[j]) <= eps) {
				break
			}
			buf = append(buf, j)
		}
		return buf
	}
}

type gridCell struct {
	X, Y int
}

// gridIndex buckets pixel signals in square cells no smaller than eps, so
// every neighbor of a point lies in the 3x3 block around its cell.
type gridIndex struct {
	cellSize float64
	cells    map[gridCell][]int
}

func newGridIndex(signals []Signal, eps float64) *gridIndex {
	cellSize := math.Max(eps, 1)
	if math.IsInf(cellSize, 1) {
		cellSize = math.MaxFloat64
	}
	idx := &gridIndex{
		cellSize: cellSize,
		cells:    make(map[gridCell][]int),
	}
	for i := range signals {
		if signals[i].Type != PixelSignal {
			continue
		}
		cell := idx.cellOf(&signals[i])
		idx.cells[cell] = append(idx.cells[cell], i)
	}
	return idx
}

func (idx *gridIndex) cellOf(s *Signal) gridCell {
	return gridCell{
		X: int(math.Floor(float64(s.XPixel) / idx.cellSize)),
		Y: int(math.Floor(float64(s.YPixel) / idx.cellSize)),
	}
}

func (idx *gridIndex) query(signals []Signal, eps float64) neighborQuery {
	return func(i int, buf []int) []int {
		p := &signals[i]
		center := idx.cellOf(p)
		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				cell := gridCell{X: center.X + dx, Y: center.Y + dy}
				for _, j := range idx.cells[cell] {
					if spaceDistance(p, &signals[j]) <= eps {
						buf = append(buf, j)
					}
				}
			}
		}
		return buf
	}
}
