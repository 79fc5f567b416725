package source

import (
	"context"
	"fmt"
	"image"

	"github.com/banshee-data/dance.report/internal/pose"
)

// Frame is one decoded camera image.
type Frame struct {
	TimestampMs     float64
	VideoPositionMs float64
	Image           image.Image
}

// Estimator turns a camera frame into zero or more detected poses. Model
// loading and inference live behind this interface.
type Estimator interface {
	Estimate(ctx context.Context, f Frame) ([]pose.Pose, error)
}

// FrameSource yields camera frames, returning io.EOF at the end.
type FrameSource interface {
	NextFrame(ctx context.Context) (Frame, error)
}

// EstimatingSource runs an Estimator over every frame of a FrameSource.
type EstimatingSource struct {
	frames FrameSource
	est    Estimator
}

// NewEstimatingSource adapts frames and est into a PoseSource.
func NewEstimatingSource(frames FrameSource, est Estimator) *EstimatingSource {
	return &EstimatingSource{frames: frames, est: est}
}

// Next implements PoseSource. Estimator errors are returned wrapped with the
// frame timestamp; io.EOF from the frame source passes through unchanged.
func (s *EstimatingSource) Next(ctx context.Context) (LiveFrame, error) {
	f, err := s.frames.NextFrame(ctx)
	if err != nil {
		return LiveFrame{}, err
	}
	poses, err := s.est.Estimate(ctx, f)
	if err != nil {
		return LiveFrame{}, fmt.Errorf("estimate frame at %.0fms: %w", f.TimestampMs, err)
	}
	return LiveFrame{
		Set:             pose.TimestampedPoseSet{Timestamp: f.TimestampMs, Poses: poses},
		VideoPositionMs: f.VideoPositionMs,
	}, nil
}
