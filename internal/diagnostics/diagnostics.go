// Package diagnostics turns scores into joint-level hints, grades and
// summary statistics.
package diagnostics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/dance.report/internal/catalog"
	"github.com/banshee-data/dance.report/internal/compare"
	"github.com/banshee-data/dance.report/internal/session"
)

// DefaultWeakJointThreshold is the angle score below which a joint is
// flagged.
const DefaultWeakJointThreshold = 40

// WeakJoints returns the vertex keypoints of catalog angles scoring below
// threshold, in catalog order without repeats. Angles absent from the score
// are skipped.
func WeakJoints(cat *catalog.Catalog, score compare.Score, threshold float64) []string {
	var out []string
	seen := map[string]bool{}
	for _, spec := range cat.Specs() {
		v, ok := score.PerAngle[spec.Name]
		if !ok || v >= threshold {
			continue
		}
		if vertex := spec.Vertex(); !seen[vertex] {
			seen[vertex] = true
			out = append(out, vertex)
		}
	}
	return out
}

// Grade is a coarse bucket for an average score.
type Grade string

const (
	GradeGreat Grade = "great"
	GradeGood  Grade = "good"
	GradeOkay  Grade = "okay"
	GradeBad   Grade = "bad"
	GradePoor  Grade = "poor"
)

var tiers = []struct {
	min    float64
	grade  Grade
	header string
}{
	{90, GradeGreat, "Great!"},
	{70, GradeGood, "Good!"},
	{50, GradeOkay, "Okay"},
	{30, GradeBad, "Needs Improvement"},
}

// GradeFor buckets score: at least 90 is great, 70 good, 50 okay, 30 bad,
// anything lower poor.
func GradeFor(score float64) Grade {
	for _, t := range tiers {
		if score >= t.min {
			return t.grade
		}
	}
	return GradePoor
}

// Header returns the short message shown with a grade.
func (g Grade) Header() string {
	for _, t := range tiers {
		if t.grade == g {
			return t.header
		}
	}
	return "Needs Improvement"
}

// Stats describes a series of scores.
type Stats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

func describe(xs []float64) Stats {
	s := Stats{Count: len(xs)}
	switch len(xs) {
	case 0:
		return s
	case 1:
		s.Mean, s.Min, s.Max = xs[0], xs[0], xs[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(xs, nil)
	s.Min, s.Max = floats.Min(xs), floats.Max(xs)
	return s
}

// Summary holds statistics over a whole scored history.
type Summary struct {
	Total    Stats            `json:"total"`
	PerAngle map[string]Stats `json:"per_angle"`
	Grade    Grade            `json:"grade"`
}

// Summarize computes total and per-angle statistics over history. Angles are
// described only over the entries that carry them.
func Summarize(history []session.ScoredPose) Summary {
	totals := make([]float64, 0, len(history))
	angles := map[string][]float64{}
	for _, sp := range history {
		totals = append(totals, sp.Score.Total)
		for name, v := range sp.Score.PerAngle {
			angles[name] = append(angles[name], v)
		}
	}

	sum := Summary{Total: describe(totals), PerAngle: make(map[string]Stats, len(angles))}
	for name, xs := range angles {
		sum.PerAngle[name] = describe(xs)
	}
	if sum.Total.Count > 0 {
		sum.Grade = GradeFor(sum.Total.Mean)
	}
	return sum
}

// WorstAngles returns up to n angle names from summary ordered by ascending
// mean score. Ties order by name.
func WorstAngles(sum Summary, n int) []string {
	names := make([]string, 0, len(sum.PerAngle))
	for name, s := range sum.PerAngle {
		if !math.IsNaN(s.Mean) {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := sum.PerAngle[names[i]].Mean, sum.PerAngle[names[j]].Mean
		if a != b {
			return a < b
		}
		return names[i] < names[j]
	})
	if n >= 0 && len(names) > n {
		names = names[:n]
	}
	return names
}
