package session

import "github.com/banshee-data/dance.report/internal/timeline"

// IntervalScore is the average score over the history entries falling in an
// interval. Count is zero, PerAngle empty and Total zero when no entry fell
// in the interval.
type IntervalScore struct {
	Interval
	Count    int                `json:"count"`
	PerAngle map[string]float64 `json:"per_angle"`
	Total    float64            `json:"total"`
}

// IntervalScores aggregates the current history over each configured
// interval, in configuration order.
func (s *Scorer) IntervalScores() []IntervalScore {
	return AggregateIntervals(s.History(), s.intervals)
}

// AggregateIntervals averages history over each interval. history must be
// sorted by OriginalTimestamp. Each angle is averaged only over the entries
// that carry it; Total is averaged over every entry in the interval.
func AggregateIntervals(history []ScoredPose, intervals []Interval) []IntervalScore {
	out := make([]IntervalScore, len(intervals))
	for i, iv := range intervals {
		lo := timeline.LowerBound(history, originalTimestamp, iv.StartMs)
		hi := timeline.UpperBound(history, originalTimestamp, iv.EndMs)
		if hi < lo {
			hi = lo
		}
		out[i] = Average(history[lo:hi])
		out[i].Interval = iv
	}
	return out
}

// Average computes the sparse per-angle mean and the mean total of entries.
func Average(entries []ScoredPose) IntervalScore {
	res := IntervalScore{PerAngle: map[string]float64{}, Count: len(entries)}
	if len(entries) == 0 {
		return res
	}

	counts := map[string]int{}
	var total float64
	for _, e := range entries {
		total += e.Score.Total
		for name, v := range e.Score.PerAngle {
			res.PerAngle[name] += v
			counts[name]++
		}
	}
	for name, n := range counts {
		res.PerAngle[name] /= float64(n)
	}
	res.Total = total / float64(len(entries))
	return res
}
