package calibration

import (
	"math"
	"sort"
	"sync"
)

// NormalizeScore maps a total onto 0..100. Values at or below 1 are taken to
// be fractions and scaled by 100 first; NaN becomes 0.
func NormalizeScore(s float64) float64 {
	if math.IsNaN(s) {
		return 0
	}
	if s <= 1.0001 {
		s *= 100
	}
	return math.Max(0, math.Min(100, s))
}

// Recorder collects normalised score samples against reference video time
// while a calibration routine plays.
type Recorder struct {
	mu      sync.Mutex
	samples []Sample
}

// Record stores total observed at videoMs and returns the normalised value.
func (r *Recorder) Record(videoMs, total float64) float64 {
	s := NormalizeScore(total)
	r.mu.Lock()
	r.samples = append(r.samples, Sample{TimeMs: videoMs, Score: s})
	r.mu.Unlock()
	return s
}

// Samples returns the recorded samples sorted by time.
func (r *Recorder) Samples() []Sample {
	r.mu.Lock()
	out := append([]Sample(nil), r.samples...)
	r.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].TimeMs < out[j].TimeMs })
	return out
}

// Len returns the number of samples recorded.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples)
}

// Reset discards all samples.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.samples = nil
	r.mu.Unlock()
}
