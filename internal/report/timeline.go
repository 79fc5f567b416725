// Package report renders scored sessions as PNG plots, interactive HTML
// charts and plain-text summaries.
package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/dance.report/internal/session"
)

// TotalPoints returns (reference time, total) pairs for history.
func TotalPoints(history []session.ScoredPose) plotter.XYs {
	pts := make(plotter.XYs, len(history))
	for i, sp := range history {
		pts[i] = plotter.XY{X: sp.OriginalTimestamp, Y: sp.Score.Total}
	}
	return pts
}

// AnglePoints returns (reference time, score) pairs for the entries of
// history that carry angle.
func AnglePoints(history []session.ScoredPose, angle string) plotter.XYs {
	pts := make(plotter.XYs, 0, len(history))
	for _, sp := range history {
		if v, ok := sp.Score.PerAngle[angle]; ok {
			pts = append(pts, plotter.XY{X: sp.OriginalTimestamp, Y: v})
		}
	}
	return pts
}

var (
	totalColor    = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	intervalColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// TimelinePlot builds a plot of the total score over reference time with
// each interval's mean drawn as a horizontal segment.
func TimelinePlot(title string, history []session.ScoredPose, intervals []session.IntervalScore) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Reference time (ms)"
	p.Y.Label.Text = "Score"

	if len(history) > 0 {
		line, err := plotter.NewLine(TotalPoints(history))
		if err != nil {
			return nil, fmt.Errorf("total line: %w", err)
		}
		line.Color = totalColor
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add("total", line)
	}

	labelled := false
	for _, iv := range intervals {
		if iv.Count == 0 {
			continue
		}
		seg, err := plotter.NewLine(plotter.XYs{{X: iv.StartMs, Y: iv.Total}, {X: iv.EndMs, Y: iv.Total}})
		if err != nil {
			return nil, fmt.Errorf("interval %v-%v: %w", iv.StartMs, iv.EndMs, err)
		}
		seg.Color = intervalColor
		seg.Width = vg.Points(2)
		p.Add(seg)
		if !labelled {
			p.Legend.Add("interval mean", seg)
			labelled = true
		}
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// WriteTimelinePNG renders TimelinePlot to path, creating parent
// directories. The image format follows the file extension.
func WriteTimelinePNG(path, title string, history []session.ScoredPose, intervals []session.IntervalScore) error {
	p, err := TimelinePlot(title, history, intervals)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create plot directory: %w", err)
	}
	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save timeline plot: %w", err)
	}
	return nil
}
