package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/dance.report/internal/session"
)

func lineData(pts [][2]float64) []opts.LineData {
	out := make([]opts.LineData, len(pts))
	for i, p := range pts {
		out[i] = opts.LineData{Value: []interface{}{p[0], p[1]}}
	}
	return out
}

func totalPairs(history []session.ScoredPose) [][2]float64 {
	out := make([][2]float64, len(history))
	for i, sp := range history {
		out[i] = [2]float64{sp.OriginalTimestamp, sp.Score.Total}
	}
	return out
}

func anglePairs(history []session.ScoredPose, angle string) [][2]float64 {
	var out [][2]float64
	for _, sp := range history {
		if v, ok := sp.Score.PerAngle[angle]; ok {
			out = append(out, [2]float64{sp.OriginalTimestamp, v})
		}
	}
	return out
}

func angleNames(history []session.ScoredPose) []string {
	seen := map[string]bool{}
	var names []string
	for _, sp := range history {
		for name := range sp.Score.PerAngle {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// TimelineChart builds an interactive line chart of the total and every
// per-angle score over reference time. Angle series start hidden.
func TimelineChart(title string, history []session.ScoredPose, intervals []session.IntervalScore) *charts.Line {
	line := charts.NewLine()
	subtitle := fmt.Sprintf("entries=%d intervals=%d", len(history), len(intervals))
	selected := map[string]bool{"total": true}
	names := angleNames(history)
	for _, name := range names {
		selected[name] = false
	}

	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom", Selected: selected}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "Reference time (ms)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "Score"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)

	line.AddSeries("total", lineData(totalPairs(history)),
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	for _, name := range names {
		line.AddSeries(name, lineData(anglePairs(history, name)),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	}

	var marks [][2]float64
	for _, iv := range intervals {
		if iv.Count > 0 {
			marks = append(marks, [2]float64{iv.StartMs, iv.Total}, [2]float64{iv.EndMs, iv.Total})
		}
	}
	if len(marks) > 0 {
		data := make([]opts.LineData, 0, len(marks)*3/2)
		for i := 0; i < len(marks); i += 2 {
			if i > 0 {
				// "-" is a missing value to echarts and splits the segments.
				data = append(data, opts.LineData{Value: []interface{}{marks[i][0], "-"}})
			}
			data = append(data, lineData(marks[i:i+2])...)
		}
		line.AddSeries("interval mean", data,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
			charts.WithLineStyleOpts(opts.LineStyle{Width: 3}))
	}
	return line
}

// RenderTimelineHTML writes a standalone HTML page with TimelineChart.
func RenderTimelineHTML(w io.Writer, title string, history []session.ScoredPose, intervals []session.IntervalScore) error {
	if err := TimelineChart(title, history, intervals).Render(w); err != nil {
		return fmt.Errorf("render timeline chart: %w", err)
	}
	return nil
}
