package compare

import (
	"math"

	"github.com/banshee-data/dance.report/internal/pose"
)

// LimbJoints is the joint set used by NormalizedRMSD.
var LimbJoints = []string{
	"left_wrist", "right_wrist",
	"left_elbow", "right_elbow",
	"left_knee", "right_knee",
	"left_ankle", "right_ankle",
}

// NormalizedRMSD compares the 2D keypoints of a and b after removing
// translation and scale. Each pose is centred on the centroid of all its
// keypoints and divided by its RMS distance from that centroid; the result is
// the root of the summed squared distances over joints present in both
// poses. Rotation is not normalised. Returns NaN if either pose has no
// keypoints or collapses to a single point.
func NormalizedRMSD(a, b pose.Pose, joints []string) float64 {
	na, okA := normalize2D(a.Keypoints)
	nb, okB := normalize2D(b.Keypoints)
	if !okA || !okB {
		return math.NaN()
	}

	var sum float64
	for _, name := range joints {
		pa, ok := na[name]
		if !ok {
			continue
		}
		pb, ok := nb[name]
		if !ok {
			continue
		}
		dx, dy := pa[0]-pb[0], pa[1]-pb[1]
		sum += dx*dx + dy*dy
	}
	return math.Sqrt(sum)
}

func normalize2D(kps []pose.Keypoint) (map[string][2]float64, bool) {
	if len(kps) == 0 {
		return nil, false
	}
	var cx, cy float64
	for _, kp := range kps {
		cx += kp.X
		cy += kp.Y
	}
	n := float64(len(kps))
	cx, cy = cx/n, cy/n

	var ss float64
	for _, kp := range kps {
		ss += (kp.X-cx)*(kp.X-cx) + (kp.Y-cy)*(kp.Y-cy)
	}
	scale := math.Sqrt(ss / n)
	if scale == 0 {
		return nil, false
	}

	out := make(map[string][2]float64, len(kps))
	for _, kp := range kps {
		if _, dup := out[kp.Name]; dup {
			continue
		}
		out[kp.Name] = [2]float64{(kp.X - cx) / scale, (kp.Y - cy) / scale}
	}
	return out, true
}
