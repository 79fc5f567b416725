package diagnostics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/dance.report/internal/catalog"
	"github.com/banshee-data/dance.report/internal/compare"
	"github.com/banshee-data/dance.report/internal/session"
	"github.com/banshee-data/dance.report/internal/testutil"
)

func TestWeakJoints(t *testing.T) {
	score := compare.Score{PerAngle: map[string]float64{
		"left_elbow":     20,
		"right_knee":     39.9,
		"left_knee":      40,
		"top_left_chest": -10,
		"left_armpit":    10,
	}}

	got := WeakJoints(catalog.Default(), score, DefaultWeakJointThreshold)
	// top_left_chest and left_armpit share the left_shoulder vertex.
	assert.Equal(t, []string{"left_elbow", "right_knee", "left_shoulder"}, got)

	assert.Empty(t, WeakJoints(catalog.Default(), compare.Score{}, DefaultWeakJointThreshold))
}

func TestWeakJointsMatchComparator(t *testing.T) {
	cmp := compare.NewComparator(nil, compare.DefaultConfig())
	occluded := testutil.WithoutKeypoints(testutil.NeutralPose(), "left_ankle")
	score := cmp.CompareByAngles(occluded, testutil.NeutralPose())

	assert.Equal(t, []string{"left_knee"}, WeakJoints(cmp.Catalog(), score, DefaultWeakJointThreshold))
}

func TestGradeFor(t *testing.T) {
	tests := []struct {
		score float64
		want  Grade
	}{
		{100, GradeGreat},
		{90, GradeGreat},
		{89.9, GradeGood},
		{70, GradeGood},
		{50, GradeOkay},
		{30, GradeBad},
		{29, GradePoor},
		{-10, GradePoor},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GradeFor(tt.score), "score %v", tt.score)
	}
	assert.Equal(t, "Great!", GradeGreat.Header())
	assert.Equal(t, "Needs Improvement", GradePoor.Header())
}

func TestSummarize(t *testing.T) {
	history := []session.ScoredPose{
		{OriginalTimestamp: 0, Score: compare.Score{Total: 80, PerAngle: map[string]float64{"a": 70, "b": 10}}},
		{OriginalTimestamp: 1, Score: compare.Score{Total: 100, PerAngle: map[string]float64{"a": 90}}},
	}

	sum := Summarize(history)

	assert.Equal(t, 2, sum.Total.Count)
	assert.Equal(t, 90.0, sum.Total.Mean)
	assert.InDelta(t, math.Sqrt(200), sum.Total.StdDev, 1e-9)
	assert.Equal(t, 80.0, sum.Total.Min)
	assert.Equal(t, 100.0, sum.Total.Max)
	assert.Equal(t, GradeGreat, sum.Grade)

	require.Contains(t, sum.PerAngle, "b")
	assert.Equal(t, Stats{Count: 1, Mean: 10, Min: 10, Max: 10}, sum.PerAngle["b"])
	assert.Equal(t, []string{"b", "a"}, WorstAngles(sum, 5))
	assert.Equal(t, []string{"b"}, WorstAngles(sum, 1))
}

func TestSummarizeEmpty(t *testing.T) {
	sum := Summarize(nil)
	assert.Equal(t, 0, sum.Total.Count)
	assert.Equal(t, Grade(""), sum.Grade)
	assert.Empty(t, WorstAngles(sum, 3))
}
