// Package source provides live pose streams for the session scorer: recorded
// JSONL files, a watched directory of per-frame detections and an adapter
// that runs a pose estimator over decoded video frames.
package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/banshee-data/dance.report/internal/fsutil"
	"github.com/banshee-data/dance.report/internal/pose"
)

// LiveFrame is one live detection together with the reference video
// position at the moment it was captured.
type LiveFrame struct {
	Set             pose.TimestampedPoseSet
	VideoPositionMs float64
}

// PoseSource yields live frames in capture order. Next returns io.EOF once
// the stream is exhausted.
type PoseSource interface {
	Next(ctx context.Context) (LiveFrame, error)
}

// record is the serialised form of a LiveFrame. video_ms defaults to the
// detection timestamp when absent.
type record struct {
	Timestamp float64     `json:"timestamp"`
	VideoMs   *float64    `json:"video_ms,omitempty"`
	Poses     []pose.Pose `json:"poses"`
}

func (r record) frame() LiveFrame {
	video := r.Timestamp
	if r.VideoMs != nil {
		video = *r.VideoMs
	}
	return LiveFrame{
		Set:             pose.TimestampedPoseSet{Timestamp: r.Timestamp, Poses: r.Poses},
		VideoPositionMs: video,
	}
}

// Encode writes f as a single JSON line.
func Encode(w io.Writer, f LiveFrame) error {
	v := f.VideoPositionMs
	return json.NewEncoder(w).Encode(record{Timestamp: f.Set.Timestamp, VideoMs: &v, Poses: f.Set.Poses})
}

const maxLineBytes = 4 * 1024 * 1024

// JSONLSource reads one LiveFrame per line. Blank lines are skipped.
type JSONLSource struct {
	sc     *bufio.Scanner
	closer io.Closer
	line   int
}

// NewJSONLSource reads frames from r.
func NewJSONLSource(r io.Reader) *JSONLSource {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &JSONLSource{sc: sc}
}

// OpenJSONL opens a JSONL recording, decompressing .gz and .zst files.
func OpenJSONL(path string) (*JSONLSource, error) {
	rc, err := fsutil.OpenReader(path)
	if err != nil {
		return nil, err
	}
	s := NewJSONLSource(rc)
	s.closer = rc
	return s, nil
}

// Next implements PoseSource.
func (s *JSONLSource) Next(ctx context.Context) (LiveFrame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return LiveFrame{}, err
		}
		if !s.sc.Scan() {
			if err := s.sc.Err(); err != nil {
				return LiveFrame{}, fmt.Errorf("read line %d: %w", s.line+1, err)
			}
			return LiveFrame{}, io.EOF
		}
		s.line++
		b := s.sc.Bytes()
		if len(bytes.TrimSpace(b)) == 0 {
			continue
		}
		var r record
		if err := json.Unmarshal(b, &r); err != nil {
			return LiveFrame{}, fmt.Errorf("line %d: %w", s.line, err)
		}
		return r.frame(), nil
	}
}

// Close releases the underlying file, if any.
func (s *JSONLSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// SliceSource replays an in-memory list of frames.
type SliceSource struct {
	frames []LiveFrame
	next   int
}

// NewSliceSource returns a source over frames.
func NewSliceSource(frames []LiveFrame) *SliceSource {
	return &SliceSource{frames: frames}
}

// Next implements PoseSource.
func (s *SliceSource) Next(ctx context.Context) (LiveFrame, error) {
	if err := ctx.Err(); err != nil {
		return LiveFrame{}, err
	}
	if s.next >= len(s.frames) {
		return LiveFrame{}, io.EOF
	}
	f := s.frames[s.next]
	s.next++
	return f, nil
}

// Len returns the total number of frames, used for progress reporting.
func (s *SliceSource) Len() int { return len(s.frames) }

// ReadAll drains src into a slice.
func ReadAll(ctx context.Context, src PoseSource) ([]LiveFrame, error) {
	var out []LiveFrame
	for {
		f, err := src.Next(ctx)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, f)
	}
}
