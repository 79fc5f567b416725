// Package session scores a live pose stream against a reference track and
// keeps the per-reference-frame score history.
package session

import (
	"sync"

	"go.uber.org/zap"

	"github.com/banshee-data/dance.report/internal/compare"
	"github.com/banshee-data/dance.report/internal/pose"
	"github.com/banshee-data/dance.report/internal/timeline"
)

// Interval is an inclusive window of reference time in milliseconds.
type Interval struct {
	StartMs float64 `json:"start_ms"`
	EndMs   float64 `json:"end_ms"`
}

// Contains reports whether t lies in [StartMs, EndMs].
func (iv Interval) Contains(t float64) bool { return t >= iv.StartMs && t <= iv.EndMs }

// ScoredPose ties a reference timestamp to the live timestamp scored against
// it.
type ScoredPose struct {
	OriginalTimestamp float64       `json:"original_timestamp"`
	LiveTimestamp     float64       `json:"live_timestamp"`
	Score             compare.Score `json:"score"`
}

func originalTimestamp(s ScoredPose) float64 { return s.OriginalTimestamp }

// Scorer matches live poses to the nearest reference frame and records one
// score per reference timestamp. A later live pose matching the same
// reference frame replaces the earlier score. Scorer is safe for concurrent
// use; writes apply in the order ConsumePose calls acquire the lock.
type Scorer struct {
	track     []pose.TimestampedPoseSet
	intervals []Interval
	cmp       *compare.Comparator
	log       *zap.Logger
	offsetMs  float64

	mu      sync.Mutex
	history []ScoredPose
	last    compare.Score
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scorer) {
		if l != nil {
			s.log = l
		}
	}
}

// WithCalibrationOffset subtracts offsetMs from every live timestamp before
// it is recorded.
func WithCalibrationOffset(offsetMs float64) Option {
	return func(s *Scorer) { s.offsetMs = offsetMs }
}

// NewScorer returns a Scorer over track, which must be sorted by timestamp
// and is not modified. A nil comparator uses the default catalog and config.
func NewScorer(track []pose.TimestampedPoseSet, intervals []Interval, cmp *compare.Comparator, opts ...Option) *Scorer {
	if cmp == nil {
		cmp = compare.NewComparator(nil, compare.DefaultConfig())
	}
	s := &Scorer{
		track:     track,
		intervals: append([]Interval(nil), intervals...),
		cmp:       cmp,
		log:       zap.NewNop(),
		last:      compare.Score{PerAngle: map[string]float64{}},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ConsumePose scores live against the reference frame nearest to
// videoPositionMs and records the result. When there is nothing to compare
// (empty track, nobody detected live or in the reference frame) the previous
// score is returned and the history is left alone.
func (s *Scorer) ConsumePose(live pose.TimestampedPoseSet, videoPositionMs float64) compare.Score {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, ok := timeline.Nearest(s.track, videoPositionMs)
	if !ok {
		s.log.Debug("empty reference track, keeping last score")
		return s.last.Clone()
	}
	livePose, ok := live.Primary()
	if !ok {
		s.log.Debug("no live pose detected", zap.Float64("video_ms", videoPositionMs))
		return s.last.Clone()
	}
	refPose, ok := ref.Primary()
	if !ok {
		s.log.Debug("no reference pose at frame", zap.Float64("reference_ms", ref.Timestamp))
		return s.last.Clone()
	}

	score := s.cmp.CompareByAngles(livePose, refPose)
	s.upsert(ScoredPose{
		OriginalTimestamp: ref.Timestamp,
		LiveTimestamp:     live.Timestamp - s.offsetMs,
		Score:             score,
	})
	s.last = score
	return score.Clone()
}

func (s *Scorer) upsert(sp ScoredPose) {
	i := timeline.LowerBound(s.history, originalTimestamp, sp.OriginalTimestamp)
	if i < len(s.history) && s.history[i].OriginalTimestamp == sp.OriginalTimestamp {
		s.history[i] = sp
		return
	}
	s.history = append(s.history, ScoredPose{})
	copy(s.history[i+1:], s.history[i:])
	s.history[i] = sp
}

// LastScore returns the most recent score, initially a zero total.
func (s *Scorer) LastScore() compare.Score {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last.Clone()
}

// History returns a snapshot of the scored history, ascending by reference
// timestamp with no duplicates. Score maps are shared with the scorer and
// must not be modified.
func (s *Scorer) History() []ScoredPose {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ScoredPose(nil), s.history...)
}

// Len returns the number of history entries.
func (s *Scorer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// Intervals returns the configured intervals.
func (s *Scorer) Intervals() []Interval {
	return append([]Interval(nil), s.intervals...)
}

// Track returns the reference track.
func (s *Scorer) Track() []pose.TimestampedPoseSet { return s.track }

// Comparator returns the comparator used for scoring.
func (s *Scorer) Comparator() *compare.Comparator { return s.cmp }

// TimestampMappings returns the reference-to-live timestamp pairs recorded so
// far, sorted by reference timestamp.
func (s *Scorer) TimestampMappings() []timeline.Mapping {
	return Mappings(s.History())
}

// Mappings pairs each history entry's reference timestamp with its live
// timestamp. history is expected sorted by reference timestamp, as History
// and stored session histories are.
func Mappings(history []ScoredPose) []timeline.Mapping {
	out := make([]timeline.Mapping, len(history))
	for i, sp := range history {
		out[i] = timeline.Mapping{Original: sp.OriginalTimestamp, Mapped: sp.LiveTimestamp}
	}
	return out
}
