package calibration

import (
	"sort"

	"github.com/banshee-data/dance.report/internal/pose"
	"github.com/banshee-data/dance.report/internal/session"
	"github.com/banshee-data/dance.report/internal/timeline"
)

// DefaultMatchToleranceMs is the live-time window searched around each
// reference frame.
const DefaultMatchToleranceMs = 500

// MatchResult is the outcome of BestMatchOffset. Matched counts the reference
// frames that found a candidate out of Total.
type MatchResult struct {
	OffsetMs float64 `json:"offset_ms"`
	Matched  int     `json:"matched"`
	Total    int     `json:"total"`
}

func liveTimestamp(s session.ScoredPose) float64 { return s.LiveTimestamp }

// BestMatchOffset estimates the reference-minus-live offset. For each
// reference frame it takes the history entry with the highest total among
// those whose live timestamp is within toleranceMs of the frame timestamp,
// and averages frame minus live timestamp over frames with a candidate.
// Ties keep the earliest live timestamp. history is not modified.
func BestMatchOffset(track []pose.TimestampedPoseSet, history []session.ScoredPose, toleranceMs float64) MatchResult {
	res := MatchResult{Total: len(track)}
	if len(track) == 0 || len(history) == 0 {
		return res
	}

	byLive := append([]session.ScoredPose(nil), history...)
	sort.SliceStable(byLive, func(i, j int) bool { return byLive[i].LiveTimestamp < byLive[j].LiveTimestamp })

	var sum float64
	for _, frame := range track {
		i := timeline.LowerBound(byLive, liveTimestamp, frame.Timestamp-toleranceMs)
		best := -1
		for ; i < len(byLive) && byLive[i].LiveTimestamp <= frame.Timestamp+toleranceMs; i++ {
			if best < 0 || byLive[i].Score.Total > byLive[best].Score.Total {
				best = i
			}
		}
		if best < 0 {
			continue
		}
		sum += frame.Timestamp - byLive[best].LiveTimestamp
		res.Matched++
	}
	if res.Matched > 0 {
		res.OffsetMs = sum / float64(res.Matched)
	}
	return res
}
