package compare

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/dance.report/internal/pose"
	"github.com/banshee-data/dance.report/internal/testutil"
)

func TestNormalizedRMSD(t *testing.T) {
	p := testutil.NeutralPose()

	t.Run("identical", func(t *testing.T) {
		assert.InDelta(t, 0, NormalizedRMSD(p, p, LimbJoints), 1e-12)
	})

	t.Run("translation and scale invariant", func(t *testing.T) {
		moved := testutil.NeutralPose()
		for i := range moved.Keypoints {
			moved.Keypoints[i].X = moved.Keypoints[i].X*3 + 10
			moved.Keypoints[i].Y = moved.Keypoints[i].Y*3 - 4
		}
		assert.InDelta(t, 0, NormalizedRMSD(p, moved, LimbJoints), 1e-9)
	})

	t.Run("different pose", func(t *testing.T) {
		d := NormalizedRMSD(p, testutil.RaisedArmPose(), LimbJoints)
		assert.Greater(t, d, 0.1)
		assert.InDelta(t, d, NormalizedRMSD(testutil.RaisedArmPose(), p, LimbJoints), 1e-12)
	})

	t.Run("degenerate", func(t *testing.T) {
		assert.True(t, math.IsNaN(NormalizedRMSD(pose.Pose{}, p, LimbJoints)))
		single := pose.Pose{Keypoints: []pose.Keypoint{{Name: "left_wrist", X: 1, Y: 1}}}
		assert.True(t, math.IsNaN(NormalizedRMSD(single, p, LimbJoints)))
	})
}
