package session

import (
	"math/rand"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/banshee-data/dance.report/internal/compare"
	"github.com/banshee-data/dance.report/internal/pose"
	"github.com/banshee-data/dance.report/internal/testutil"
)

const eps = 1e-9

func TestFullPipeline(t *testing.T) {
	s := NewScorer(testutil.Track(0), nil, nil, WithLogger(zaptest.NewLogger(t)))

	score := s.ConsumePose(testutil.Frame(33, testutil.NeutralPose()), 0)

	assert.InDelta(t, 100, score.Total, eps)
	h := s.History()
	require.Len(t, h, 1)
	assert.Equal(t, 0.0, h[0].OriginalTimestamp)
	assert.Equal(t, 33.0, h[0].LiveTimestamp)
}

func TestInitialLastScore(t *testing.T) {
	s := NewScorer(nil, nil, nil)
	last := s.LastScore()
	assert.Equal(t, 0.0, last.Total)
	assert.Empty(t, last.PerAngle)
}

func TestDegradedInputs(t *testing.T) {
	t.Run("empty track", func(t *testing.T) {
		s := NewScorer(nil, nil, nil)
		got := s.ConsumePose(testutil.Frame(0, testutil.NeutralPose()), 0)
		assert.Equal(t, 0.0, got.Total)
		assert.Zero(t, s.Len())
	})

	t.Run("no live pose returns last score", func(t *testing.T) {
		s := NewScorer(testutil.Track(0, 100), nil, nil)
		first := s.ConsumePose(testutil.Frame(0, testutil.RaisedArmPose()), 0)
		got := s.ConsumePose(pose.TimestampedPoseSet{Timestamp: 50}, 100)
		assert.Equal(t, first.Total, got.Total)
		assert.Equal(t, 1, s.Len())
	})

	t.Run("empty reference frame", func(t *testing.T) {
		track := []pose.TimestampedPoseSet{{Timestamp: 0}}
		s := NewScorer(track, nil, nil)
		got := s.ConsumePose(testutil.Frame(0, testutil.NeutralPose()), 0)
		assert.Equal(t, 0.0, got.Total)
		assert.Zero(t, s.Len())
	})
}

func TestUpsertMostRecentWins(t *testing.T) {
	s := NewScorer(testutil.Track(0, 100, 200), nil, nil)

	s.ConsumePose(testutil.Frame(10, testutil.NeutralPose()), 95)
	second := s.ConsumePose(testutil.Frame(20, testutil.RaisedArmPose()), 110)

	h := s.History()
	require.Len(t, h, 1)
	assert.Equal(t, 100.0, h[0].OriginalTimestamp)
	assert.Equal(t, 20.0, h[0].LiveTimestamp)
	assert.Equal(t, second.Total, h[0].Score.Total)
	assert.Less(t, h[0].Score.Total, 100.0)
}

func TestHistorySortedInvariant(t *testing.T) {
	track := testutil.Track(0, 100, 200, 300, 400, 500, 600, 700)
	s := NewScorer(track, nil, nil)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		p := testutil.NeutralPose()
		if i%3 == 0 {
			p = testutil.RaisedArmPose()
		}
		s.ConsumePose(testutil.Frame(float64(i), p), rng.Float64()*800-50)
	}

	h := s.History()
	require.NotEmpty(t, h)
	assert.LessOrEqual(t, len(h), len(track))
	for i := 1; i < len(h); i++ {
		assert.Less(t, h[i-1].OriginalTimestamp, h[i].OriginalTimestamp)
	}
}

func TestHistoryIsSnapshot(t *testing.T) {
	s := NewScorer(testutil.Track(0, 100), nil, nil)
	s.ConsumePose(testutil.Frame(0, testutil.NeutralPose()), 0)

	h := s.History()
	h[0].OriginalTimestamp = 999
	assert.Equal(t, 0.0, s.History()[0].OriginalTimestamp)
}

func TestReturnedScoreIsCopy(t *testing.T) {
	s := NewScorer(testutil.Track(0), nil, nil)
	got := s.ConsumePose(testutil.Frame(0, testutil.NeutralPose()), 0)
	got.PerAngle["left_elbow"] = -1
	assert.InDelta(t, 100, s.LastScore().PerAngle["left_elbow"], eps)
	assert.InDelta(t, 100, s.History()[0].Score.PerAngle["left_elbow"], eps)
}

func TestCalibrationOffset(t *testing.T) {
	s := NewScorer(testutil.Track(0, 100), nil, nil, WithCalibrationOffset(120))
	s.ConsumePose(testutil.Frame(500, testutil.NeutralPose()), 100)

	m := s.TimestampMappings()
	require.Len(t, m, 1)
	assert.Equal(t, 100.0, m[0].Original)
	assert.Equal(t, 380.0, m[0].Mapped)
}

func TestConcurrentConsume(t *testing.T) {
	track := testutil.Track(0, 50, 100, 150, 200)
	s := NewScorer(track, []Interval{{StartMs: 0, EndMs: 200}}, compare.NewComparator(nil, compare.DefaultConfig()))

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				s.ConsumePose(testutil.Frame(float64(i), testutil.NeutralPose()), float64((i*w)%220))
				_ = s.IntervalScores()
			}
		}(w)
	}
	wg.Wait()

	h := s.History()
	assert.True(t, sort.SliceIsSorted(h, func(i, j int) bool { return h[i].OriginalTimestamp < h[j].OriginalTimestamp }))
	seen := map[float64]bool{}
	for _, sp := range h {
		assert.False(t, seen[sp.OriginalTimestamp], "duplicate %v", sp.OriginalTimestamp)
		seen[sp.OriginalTimestamp] = true
	}
}
