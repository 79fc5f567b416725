// Package calibration estimates the timing offset between a reference
// choreography and a performer's scored response.
package calibration

import (
	"math"
	"sort"
)

// DefaultEvents are the cue times, in milliseconds, marked on the built-in
// calibration routine.
var DefaultEvents = []float64{1500, 4900, 9000, 12500, 15000, 20500, 22000, 23500, 25000}

// Sample is a score observed at a point in reference video time.
type Sample struct {
	TimeMs float64 `json:"t"`
	Score  float64 `json:"s"`
}

// DelayConfig controls threshold-crossing delay estimation.
type DelayConfig struct {
	// Threshold is the score a sample must reach to count as a response.
	Threshold float64
	// MaxWindowMs bounds the search after each event.
	MaxWindowMs float64
	// MinEventGapMs collapses events closer than this to the previous one.
	MinEventGapMs float64
}

// DefaultDelayConfig returns a threshold of 95, a 2s window and a 300ms
// minimum event gap.
func DefaultDelayConfig() DelayConfig {
	return DelayConfig{Threshold: 95, MaxWindowMs: 2000, MinEventGapMs: 300}
}

// DelayResult summarises the delays found after each event.
type DelayResult struct {
	MedianMs float64   `json:"median_ms"`
	MADMs    float64   `json:"mad_ms"`
	OffsetMs int64     `json:"offset_ms"`
	Used     int       `json:"used"`
	Total    int       `json:"total"`
	Delays   []float64 `json:"delays_ms"`
}

// SanitizeEvents sorts and de-duplicates events, then drops any event closer
// than minGapMs to the last event kept.
func SanitizeEvents(events []float64, minGapMs float64) []float64 {
	a := append([]float64(nil), events...)
	sort.Float64s(a)
	out := make([]float64, 0, len(a))
	for _, t := range a {
		if len(out) > 0 && t-out[len(out)-1] < minGapMs {
			continue
		}
		out = append(out, t)
	}
	return out
}

// EstimateDelay measures, for each sanitised event t0, the time from t0 to the
// first sample in [t0, t0+MaxWindowMs] where the score rises from below the
// threshold to at or above it. Samples before t0 only establish whether the
// score was already above the threshold. Events with no crossing are left
// out of the median and counted in Total but not Used.
func EstimateDelay(events []float64, samples []Sample, cfg DelayConfig) DelayResult {
	evs := SanitizeEvents(events, cfg.MinEventGapMs)
	res := DelayResult{Total: len(evs)}
	if len(evs) == 0 || len(samples) == 0 {
		return res
	}

	sorted := append([]Sample(nil), samples...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].TimeMs < sorted[j].TimeMs })

	for _, t0 := range evs {
		if at, ok := firstCrossing(sorted, t0, cfg); ok {
			res.Delays = append(res.Delays, at-t0)
		}
	}
	res.Used = len(res.Delays)
	if res.Used == 0 {
		return res
	}
	res.MedianMs = Median(res.Delays)
	res.MADMs = MedianAbsoluteDeviation(res.Delays)
	res.OffsetMs = int64(math.Floor(res.MedianMs + 0.5))
	return res
}

func firstCrossing(samples []Sample, t0 float64, cfg DelayConfig) (float64, bool) {
	prevBelow := true
	for _, s := range samples {
		if s.TimeMs < t0 {
			prevBelow = s.Score < cfg.Threshold
			continue
		}
		if s.TimeMs > t0+cfg.MaxWindowMs {
			break
		}
		if prevBelow && s.Score >= cfg.Threshold {
			return s.TimeMs, true
		}
		prevBelow = s.Score < cfg.Threshold
	}
	return 0, false
}
