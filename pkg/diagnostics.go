package decoder

import (
	"fmt"
	"time"
)

// Diagnostics collects counters and per-stage timings for one file.
type Diagnostics struct {
	BytesRead      int64
	Buffers        int
	PixelHits      int
	TdcTriggers    int
	GlobalTimes    int
	Photons        int
	UnpackingTime  time.Duration
	SortingTime    time.Duration
	ClusteringTime time.Duration
	WritingTime    time.Duration
}

func (d *Diagnostics) count(signalType SignalType) {
	switch signalType {
	case PixelSignal:
		d.PixelHits++
	case TdcSignal:
		d.TdcTriggers++
	case GlobalTimeSignal:
		d.GlobalTimes++
	}
}

// Remove takes a decoded buffer back out of the buffer and signal counters.
// Bytes read and timings are left as they are.
func (d *Diagnostics) Remove(b *Buffer) {
	d.Buffers--
	for i := range b.Signals {
		switch b.Signals[i].Type {
		case PixelSignal:
			d.PixelHits--
		case TdcSignal:
			d.TdcTriggers--
		case GlobalTimeSignal:
			d.GlobalTimes--
		}
	}
}

func (d Diagnostics) Signals() int {
	return d.PixelHits + d.TdcTriggers + d.GlobalTimes
}

// Add accumulates other into d.
func (d *Diagnostics) Add(other Diagnostics) {
	d.BytesRead += other.BytesRead
	d.Buffers += other.Buffers
	d.PixelHits += other.PixelHits
	d.TdcTriggers += other.TdcTriggers
	d.GlobalTimes += other.GlobalTimes
	d.Photons += other.Photons
	d.UnpackingTime += other.UnpackingTime
	d.SortingTime += other.SortingTime
	d.ClusteringTime += other.ClusteringTime
	d.WritingTime += other.WritingTime
}

func (d Diagnostics) Print(module string) {
	logger.Info(fmt.Sprintf("Bytes read: %d", d.BytesRead), module)
	logger.Info(fmt.Sprintf("Number of buffers: %d", d.Buffers), module)
	logger.Info(fmt.Sprintf("Number of pixel hits: %d", d.PixelHits), module)
	logger.Info(fmt.Sprintf("Number of TDC triggers: %d", d.TdcTriggers), module)
	logger.Info(fmt.Sprintf("Number of global time stamps: %d", d.GlobalTimes), module)
	logger.Info(fmt.Sprintf("Number of photons: %d", d.Photons), module)
	logger.Info(fmt.Sprintf("Unpacking time: %d ms", d.UnpackingTime.Milliseconds()), module)
	logger.Info(fmt.Sprintf("Sorting time: %d ms", d.SortingTime.Milliseconds()), module)
	logger.Info(fmt.Sprintf("Clustering time: %d ms", d.ClusteringTime.Milliseconds()), module)
	logger.Info(fmt.Sprintf("Writing time: %d ms", d.WritingTime.Milliseconds()), module)
}
