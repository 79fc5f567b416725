// Package replay drives a live pose stream through a session scorer and
// collects everything a finished run reports: history, interval scores,
// calibration samples and a summary.
package replay

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cheggaaa/pb/v3"
	"go.uber.org/zap"

	"github.com/banshee-data/dance.report/internal/calibration"
	"github.com/banshee-data/dance.report/internal/compare"
	"github.com/banshee-data/dance.report/internal/diagnostics"
	"github.com/banshee-data/dance.report/internal/level"
	"github.com/banshee-data/dance.report/internal/monitoring"
	"github.com/banshee-data/dance.report/internal/session"
	"github.com/banshee-data/dance.report/internal/source"
	"github.com/banshee-data/dance.report/internal/timeline"
)

const progressTemplate = `{{ string . "prefix" }} {{counters . "%s/%s" "%s/?"}} {{bar . }} {{percent . "%.03f%%" "?"}} {{etime . "%s elapsed"}}`

// Options configures Run. The zero value scores with the default comparator
// and logs to the logger carried by the context, if any.
type Options struct {
	Comparator          *compare.Comparator
	CalibrationOffsetMs float64
	Logger              *zap.Logger

	// Progress receives a progress bar when non-nil. Total is the expected
	// frame count; zero shows an open-ended counter.
	Progress io.Writer
	Total    int

	// OnScore is called after every consumed frame.
	OnScore func(f source.LiveFrame, score compare.Score)
}

// Result is the outcome of a replay.
type Result struct {
	Title     string                  `json:"title"`
	Frames    int                     `json:"frames"`
	Final     compare.Score           `json:"final"`
	History   []session.ScoredPose    `json:"history"`
	Intervals []session.IntervalScore `json:"intervals"`
	Mappings  []timeline.Mapping      `json:"mappings"`
	Samples   []calibration.Sample    `json:"samples"`
	Summary   diagnostics.Summary     `json:"summary"`
}

// Run consumes src until io.EOF, scoring each frame against lvl. On a
// source error or cancellation the partial result is returned with the
// error.
func Run(ctx context.Context, lvl *level.Level, src source.PoseSource, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = monitoring.LoggerFromContext(ctx).Named("replay")
	}

	scorer := session.NewScorer(lvl.PoseData, lvl.SessionIntervals(), opts.Comparator,
		session.WithLogger(log.Named("scorer")),
		session.WithCalibrationOffset(opts.CalibrationOffsetMs),
	)
	rec := &calibration.Recorder{}

	var bar *pb.ProgressBar
	if opts.Progress != nil {
		bar = pb.ProgressBarTemplate(progressTemplate).New(opts.Total).
			SetWriter(opts.Progress).
			Set("prefix", lvl.Title).
			Start()
	}

	log.Info("replay started",
		zap.String("title", lvl.Title),
		zap.Int("reference_frames", len(lvl.PoseData)),
		zap.Int("intervals", len(lvl.Intervals)),
		zap.Float64("calibration_offset_ms", opts.CalibrationOffsetMs))

	frames := 0
	var runErr error
	for {
		f, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			runErr = fmt.Errorf("frame %d: %w", frames+1, err)
			break
		}
		frames++
		score := scorer.ConsumePose(f.Set, f.VideoPositionMs)
		rec.Record(f.VideoPositionMs, score.Total)
		if opts.OnScore != nil {
			opts.OnScore(f, score)
		}
		if bar != nil {
			bar.Increment()
		}
	}
	if bar != nil {
		bar.Finish()
	}

	history := scorer.History()
	res := &Result{
		Title:     lvl.Title,
		Frames:    frames,
		Final:     scorer.LastScore(),
		History:   history,
		Intervals: scorer.IntervalScores(),
		Mappings:  scorer.TimestampMappings(),
		Samples:   rec.Samples(),
		Summary:   diagnostics.Summarize(history),
	}

	log.Info("replay finished",
		zap.Int("frames", frames),
		zap.Int("scored_reference_frames", len(history)),
		zap.Float64("mean_total", res.Summary.Total.Mean),
		zap.String("grade", string(res.Summary.Grade)),
		zap.Error(runErr))
	return res, runErr
}

// Calibrate estimates the output delay from a replay's samples.
func (r *Result) Calibrate(events []float64, cfg calibration.DelayConfig) calibration.DelayResult {
	return calibration.EstimateDelay(events, r.Samples, cfg)
}

// BestMatch estimates the timing offset from a replay's history.
func (r *Result) BestMatch(lvl *level.Level, toleranceMs float64) calibration.MatchResult {
	return calibration.BestMatchOffset(lvl.PoseData, r.History, toleranceMs)
}
