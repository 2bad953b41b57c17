package dataset_go

import (
	"sync"
)

// MixStats Snapshot of batch composition
//
// Batches - number of recorded batches
// Samples - number of recorded samples
// PerSource - PerSource[i] is the number of samples taken from i-th dataset
//
type MixStats struct {
	Batches   uint64
	Samples   uint64
	PerSource []uint64
}

// Ratios Returns share of samples taken from every dataset
func (s MixStats) Ratios() []float64 {
	ratios := make([]float64, len(s.PerSource))
	var total uint64
	for _, n := range s.PerSource {
		total += n
	}
	if total == 0 {
		return ratios
	}
	for i, n := range s.PerSource {
		ratios[i] = float64(n) / float64(total)
	}
	return ratios
}

// MixRecorder Collects composition of batches. Safe for concurrent use
type MixRecorder struct {
	mu    sync.Mutex
	stats MixStats
}

// NewMixRecorder Returns empty recorder
func NewMixRecorder() *MixRecorder {
	return &MixRecorder{}
}

// Record Accounts the batch
func (r *MixRecorder) Record(batch *Batch) {
	if batch == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.Batches++
	r.stats.Samples += uint64(len(batch.Samples))
	for _, src := range batch.Sources {
		if src < 0 {
			continue
		}
		for src >= len(r.stats.PerSource) {
			r.stats.PerSource = append(r.stats.PerSource, 0)
		}
		r.stats.PerSource[src]++
	}
}

// Stats Returns copy of collected statistics
func (r *MixRecorder) Stats() MixStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot := r.stats
	snapshot.PerSource = append([]uint64(nil), r.stats.PerSource...)
	return snapshot
}

// Reset Drops collected statistics
func (r *MixRecorder) Reset() {
	r.mu.Lock()
	r.stats = MixStats{}
	r.mu.Unlock()
}
