// Package level loads reference choreography: a title, the intervals of
// interest and the timestamp-sorted reference pose track.
package level

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/banshee-data/dance.report/internal/fsutil"
	"github.com/banshee-data/dance.report/internal/pose"
	"github.com/banshee-data/dance.report/internal/session"
	"github.com/banshee-data/dance.report/internal/timeline"
)

var (
	ErrUnsortedTrack   = errors.New("reference track timestamps must be non-decreasing")
	ErrInvalidInterval = errors.New("interval must be [start, end] with start <= end")
)

// Level is a reference choreography. The JSON layout matches the level
// documents produced by the level service.
type Level struct {
	Title     string                    `json:"title"`
	Intervals [][]float64               `json:"intervals"`
	PoseData  []pose.TimestampedPoseSet `json:"pose_data"`
}

// Validate checks interval shape and track ordering.
func (l *Level) Validate() error {
	for i, iv := range l.Intervals {
		if len(iv) != 2 || iv[0] > iv[1] {
			return fmt.Errorf("interval %d %v: %w", i, iv, ErrInvalidInterval)
		}
	}
	if !timeline.IsSorted(l.PoseData) {
		return ErrUnsortedTrack
	}
	return nil
}

// SessionIntervals converts the level intervals for a session scorer.
func (l *Level) SessionIntervals() []session.Interval {
	out := make([]session.Interval, 0, len(l.Intervals))
	for _, iv := range l.Intervals {
		if len(iv) == 2 {
			out = append(out, session.Interval{StartMs: iv[0], EndMs: iv[1]})
		}
	}
	return out
}

// PoseAt returns the first reference pose of the frame nearest to
// playbackMs, for showing the target pose at a given point in the video.
func (l *Level) PoseAt(playbackMs float64) (pose.Pose, float64, bool) {
	frame, ok := timeline.Nearest(l.PoseData, playbackMs)
	if !ok {
		return pose.Pose{}, 0, false
	}
	p, ok := frame.Primary()
	return p, frame.Timestamp, ok
}

// DurationMs returns the timestamp of the last reference frame, or the end
// of the last interval if that is later.
func (l *Level) DurationMs() float64 {
	var d float64
	if n := len(l.PoseData); n > 0 {
		d = l.PoseData[n-1].Timestamp
	}
	if n := len(l.Intervals); n > 0 && len(l.Intervals[n-1]) == 2 && l.Intervals[n-1][1] > d {
		d = l.Intervals[n-1][1]
	}
	return d
}

// Decode reads and validates a level document from r.
func Decode(r io.Reader) (*Level, error) {
	var l Level
	if err := json.NewDecoder(r).Decode(&l); err != nil {
		return nil, fmt.Errorf("decode level: %w", err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

// Load reads a level from path. Files ending in .gz or .zst are
// decompressed.
func Load(path string) (*Level, error) {
	r, err := fsutil.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	l, err := Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

// Save writes l to path, compressing by extension.
func Save(path string, l *Level) (err error) {
	w, err := fsutil.CreateWriter(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := json.NewEncoder(w).Encode(l); err != nil {
		return fmt.Errorf("encode level: %w", err)
	}
	return nil
}
