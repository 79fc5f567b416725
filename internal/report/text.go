package report

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/banshee-data/dance.report/internal/compare"
	"github.com/banshee-data/dance.report/internal/diagnostics"
	"github.com/banshee-data/dance.report/internal/session"
)

// WriteIntervals prints one row per interval score.
func WriteIntervals(w io.Writer, intervals []session.IntervalScore) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSTART\tEND\tENTRIES\tTOTAL\tGRADE")
	for i, iv := range intervals {
		grade := "-"
		if iv.Count > 0 {
			grade = string(diagnostics.GradeFor(iv.Total))
		}
		fmt.Fprintf(tw, "%d\t%.0f\t%.0f\t%d\t%.1f\t%s\n", i+1, iv.StartMs, iv.EndMs, iv.Count, iv.Total, grade)
	}
	return tw.Flush()
}

// WriteSummary prints the overall grade, total statistics, the worst angles
// and the weak joints of the final score.
func WriteSummary(w io.Writer, sum diagnostics.Summary, weak []string, worst int) error {
	if sum.Total.Count == 0 {
		_, err := fmt.Fprintln(w, "No poses were scored.")
		return err
	}
	fmt.Fprintf(w, "%s (%s)\n", sum.Grade.Header(), sum.Grade)
	fmt.Fprintf(w, "Total: mean %.1f  sd %.1f  min %.1f  max %.1f  over %d reference frames\n",
		sum.Total.Mean, sum.Total.StdDev, sum.Total.Min, sum.Total.Max, sum.Total.Count)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ANGLE\tMEAN\tMIN\tMAX")
	for _, name := range diagnostics.WorstAngles(sum, worst) {
		s := sum.PerAngle[name]
		fmt.Fprintf(tw, "%s\t%.1f\t%.1f\t%.1f\n", name, s.Mean, s.Min, s.Max)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(weak) > 0 {
		fmt.Fprintf(w, "Weak joints: %v\n", weak)
	}
	return nil
}

// WriteScore prints a single comparison: every angle in name order, the
// weighted total and the weak joints.
func WriteScore(w io.Writer, score compare.Score, weak []string) error {
	names := make([]string, 0, len(score.PerAngle))
	for name := range score.PerAngle {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ANGLE\tSCORE")
	for _, name := range names {
		fmt.Fprintf(tw, "%s\t%.1f\n", name, score.PerAngle[name])
	}
	fmt.Fprintf(tw, "total\t%.1f\n", score.Total)
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(weak) > 0 {
		fmt.Fprintf(w, "Weak joints: %v\n", weak)
	}
	return nil
}
