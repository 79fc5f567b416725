// Package timeline provides nearest-timestamp lookup over sorted sequences.
package timeline

import (
	"math"
	"sort"

	"github.com/banshee-data/dance.report/internal/pose"
)

// NearestByTimestamp returns the element of sorted whose key is closest to
// target, and its index. sorted must be ordered ascending by key. The search
// keeps a running best by absolute difference and stops early on an exact
// match; targets outside the range clamp to the nearest endpoint. ok is false
// only when sorted is empty. Ties resolve to the first candidate visited.
func NearestByTimestamp[T any](sorted []T, key func(T) float64, target float64) (best T, idx int, ok bool) {
	if len(sorted) == 0 {
		return best, -1, false
	}

	lo, hi := 0, len(sorted)-1
	idx = 0
	bestDiff := math.Inf(1)
	for lo <= hi {
		mid := lo + (hi-lo)/2
		k := key(sorted[mid])
		if d := math.Abs(k - target); d < bestDiff {
			bestDiff = d
			idx = mid
		}
		switch {
		case k == target:
			return sorted[mid], mid, true
		case k < target:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return sorted[idx], idx, true
}

// LowerBound returns the first index whose key is >= target, or len(sorted).
func LowerBound[T any](sorted []T, key func(T) float64, target float64) int {
	return sort.Search(len(sorted), func(i int) bool { return key(sorted[i]) >= target })
}

// UpperBound returns the first index whose key is > target, or len(sorted).
func UpperBound[T any](sorted []T, key func(T) float64, target float64) int {
	return sort.Search(len(sorted), func(i int) bool { return key(sorted[i]) > target })
}

func frameTimestamp(s pose.TimestampedPoseSet) float64 { return s.Timestamp }

// Nearest returns the reference frame closest to t.
func Nearest(track []pose.TimestampedPoseSet, t float64) (pose.TimestampedPoseSet, bool) {
	f, _, ok := NearestByTimestamp(track, frameTimestamp, t)
	return f, ok
}

// IsSorted reports whether track timestamps are non-decreasing.
func IsSorted(track []pose.TimestampedPoseSet) bool {
	return sort.SliceIsSorted(track, func(i, j int) bool { return track[i].Timestamp < track[j].Timestamp })
}
