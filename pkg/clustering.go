package decoder

import (
	"fmt"
	"math"
)

const (
	DEFAULT_EPS_TIME          = 100e-9 // seconds
	DEFAULT_MIN_SAMPLES_TIME  = 2
	DEFAULT_EPS_SPACE         = 2.0 // pixels
	DEFAULT_MIN_SAMPLES_SPACE = 2
)

// ClusterParams configures the time pass and the space pass.
type ClusterParams struct {
	EpsTime         float64
	MinSamplesTime  int
	EpsSpace        float64
	MinSamplesSpace int
	// Scan every pixel for every query instead of using the indexes
	BruteForce bool
}

func DefaultClusterParams() ClusterParams {
	return ClusterParams{
		EpsTime:         DEFAULT_EPS_TIME,
		MinSamplesTime:  DEFAULT_MIN_SAMPLES_TIME,
		EpsSpace:        DEFAULT_EPS_SPACE,
		MinSamplesSpace: DEFAULT_MIN_SAMPLES_SPACE,
	}
}

func (p ClusterParams) Validate() error {
	if err := validatePass("time", p.EpsTime, p.MinSamplesTime); err != nil {
		return err
	}
	return validatePass("space", p.EpsSpace, p.MinSamplesSpace)
}

func validatePass(name string, eps float64, minSamples int) error {
	if minSamples < 1 {
		return fmt.Errorf("%s pass: min samples must be at least 1, got %d", name, minSamples)
	}
	if eps < 0 || math.IsNaN(eps) {
		return fmt.Errorf("%s pass: eps must be non-negative, got %v", name, eps)
	}
	return nil
}

type ClusterSummary struct {
	TimeClusters  int
	SpaceClusters int
}

// Cluster resets the group labels of signals and runs the time pass and
// then the space pass. Labels are written in place.
func Cluster(signals []Signal, params ClusterParams) (ClusterSummary, error) {
	if err := params.Validate(); err != nil {
		return ClusterSummary{}, err
	}
	ResetLabels(signals)
	timeClusters := clusterTime(signals, params.EpsTime, params.MinSamplesTime, params.BruteForce)
	spaceClusters := clusterSpace(signals, params.EpsSpace, params.MinSamplesSpace, params.BruteForce)
	return ClusterSummary{TimeClusters: timeClusters, SpaceClusters: spaceClusters}, nil
}

func ResetLabels(signals []Signal) {
	for i := range signals {
		signals[i].TimeGroup = Unvisited
		signals[i].SpaceGroup = Unvisited
	}
}

// ClusterTime groups pixel signals by ToaFinal and writes TimeGroup. Only
// unvisited pixels seed clusters; new ids continue after the highest
// existing label. It returns the number of clusters created.
func ClusterTime(signals []Signal, eps float64, minSamples int, bruteForce bool) (int, error) {
	if err := validatePass("time", eps, minSamples); err != nil {
		return 0, err
	}
	return clusterTime(signals, eps, minSamples, bruteForce), nil
}

func clusterTime(signals []Signal, eps float64, minSamples int, bruteForce bool) int {
	var query neighborQuery
	if bruteForce {
		query = bruteForceQuery(signals, eps, timeDistance)
	} else {
		query = newTimeIndex(signals).query(signals, eps)
	}
	return densityPass(signals, timeLabel, query, minSamples)
}

// ClusterSpace groups pixel signals by (XPixel, YPixel) and writes
// SpaceGroup, with the same rules as ClusterTime.
func ClusterSpace(signals []Signal, eps float64, minSamples int, bruteForce bool) (int, error) {
	if err := validatePass("space", eps, minSamples); err != nil {
		return 0, err
	}
	return clusterSpace(signals, eps, minSamples, bruteForce), nil
}

func clusterSpace(signals []Signal, eps float64, minSamples int, bruteForce bool) int {
	var query neighborQuery
	if bruteForce {
		query = bruteForceQuery(signals, eps, spaceDistance)
	} else {
		query = newGridIndex(signals, eps).query(signals, eps)
	}
	return densityPass(signals, spaceLabel, query, minSamples)
}

func timeLabel(s *Signal) *int  { return &s.TimeGroup }
func spaceLabel(s *Signal) *int { return &s.SpaceGroup }

func timeDistance(a, b *Signal) float64 {
	return math.Abs(a.ToaFinal - b.ToaFinal)
}

func spaceDistance(a, b *Signal) float64 {
	dx := float64(a.XPixel - b.XPixel)
	dy := float64(a.YPixel - b.YPixel)
	return math.Sqrt(dx*dx + dy*dy)
}

// neighborQuery appends to buf the indexes of all pixel signals within eps
// of signal i, i included.
type neighborQuery func(i int, buf []int) []int

func bruteForceQuery(signals []Signal, eps float64, distance func(a, b *Signal) float64) neighborQuery {
	return func(i int, buf []int) []int {
		p := &signals[i]
		for j := range signals {
			if signals[j].Type != PixelSignal {
				continue
			}
			if distance(p, &signals[j]) <= eps {
				buf = append(buf, j)
			}
		}
		return buf
	}
}

// densityPass runs one density clustering pass. Unlike textbook DBSCAN a
// point already marked as noise is absorbed by a later cluster that
// reaches it, without being expanded.
func densityPass(signals []Signal, label func(*Signal) *int, query neighborQuery, minSamples int) int {
	lastID := 0
	for i := range signals {
		if id := *label(&signals[i]); id > lastID {
			lastID = id
		}
	}
	firstID := lastID

	var neighbors, work []int
	for i := range signals {
		p := &signals[i]
		if p.Type != PixelSignal || *label(p) != Unvisited {
			continue
		}
		neighbors = query(i, neighbors[:0])
		if len(neighbors) < minSamples {
			*label(p) = Noise
			continue
		}

		lastID++
		*label(p) = lastID
		work = append(work[:0], neighbors...)
		for j := 0; j < len(work); j++ {
			q := &signals[work[j]]
			switch *label(q) {
			case Unvisited:
				*label(q) = lastID
				neighbors = query(work[j], neighbors[:0])
				if len(neighbors) >= minSamples {
					work = appendOpen(work, neighbors, signals, label)
				}
			case Noise:
				*label(q) = lastID
			}
		}
	}
	return lastID - firstID
}

// appendOpen appends the neighbors that can still change label. Points
// already in a cluster would be skipped when popped anyway.
func appendOpen(work, neighbors []int, signals []Signal, label func(*Signal) *int) []int {
	for _, n := range neighbors {
		if l := *label(&signals[n]); l == Unvisited || l == Noise {
			work = append(work, n)
		}
	}
	return work
}
