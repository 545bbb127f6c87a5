package decoder

import (
	"fmt"
	"time"
)

// FileOutput is everything decoded and reconstructed from one input file.
type FileOutput struct {
	Filename    string
	RunNumber   int
	Signals     []Signal
	Photons     []Photon
	Diagnostics Diagnostics
	Clock       *GlobalClock
	// Offset of the first byte not decoded when Err is set
	Offset int64
	Err    error
}

// Reconstruct clusters the pixel signals in place and turns the clusters
// into photons with their time of flight. Clustering time and the photon
// count are added to diagnostics.
func Reconstruct(signals []Signal, params ClusterParams, diagnostics *Diagnostics, verbosity int) ([]Photon, error) {
	start := time.Now()
	summary, err := Cluster(signals, params)
	if err != nil {
		return nil, fmt.Errorf("error clustering signals: %w", err)
	}
	photons := BuildPhotons(signals)
	AssignTimeOfFlight(photons, signals)
	diagnostics.ClusteringTime += time.Since(start)
	diagnostics.Photons += len(photons)

	if verbosity > 1 {
		message := fmt.Sprintf("%d time clusters, %d space clusters, %d photons",
			summary.TimeClusters, summary.SpaceClusters, len(photons))
		logger.Info(message, "reconstruction")
	}
	return photons, nil
}
