// Package testutil provides pose fixtures shared by the package tests.
package testutil

import "github.com/banshee-data/dance.report/internal/pose"

// neutral is a standing pose, arms slightly out, in normalised image
// coordinates with a shallow depth offset per joint.
var neutral = []struct {
	name    string
	x, y, z float64
}{
	{"nose", 0.50, 0.10, 0.00},
	{"left_shoulder", 0.60, 0.25, 0.02},
	{"right_shoulder", 0.40, 0.25, 0.01},
	{"left_elbow", 0.68, 0.40, 0.05},
	{"right_elbow", 0.32, 0.40, 0.04},
	{"left_wrist", 0.72, 0.55, 0.08},
	{"right_wrist", 0.28, 0.55, 0.07},
	{"left_hip", 0.56, 0.55, 0.00},
	{"right_hip", 0.44, 0.55, 0.00},
	{"left_knee", 0.57, 0.75, 0.03},
	{"right_knee", 0.43, 0.75, 0.02},
	{"left_ankle", 0.58, 0.95, 0.01},
	{"right_ankle", 0.42, 0.95, 0.01},
}

// NeutralPose returns a fully visible pose with matching 2D and 3D
// keypoints, all at confidence 0.9.
func NeutralPose() pose.Pose {
	p := pose.Pose{}
	for _, kp := range neutral {
		p.Keypoints = append(p.Keypoints, pose.Keypoint{
			Name: kp.name, X: kp.x, Y: kp.y, Score: pose.Float(0.9),
		})
		p.Keypoints3D = append(p.Keypoints3D, pose.Keypoint{
			Name: kp.name, X: kp.x, Y: kp.y, Z: pose.Float(kp.z), Score: pose.Float(0.9),
		})
	}
	return p
}

// RaisedArmPose returns NeutralPose with the left arm lifted above the
// shoulder.
func RaisedArmPose() pose.Pose {
	p := NeutralPose()
	move := map[string][2]float64{
		"left_elbow": {0.72, 0.15},
		"left_wrist": {0.78, 0.02},
	}
	for _, set := range [][]pose.Keypoint{p.Keypoints, p.Keypoints3D} {
		for i := range set {
			if xy, ok := move[set[i].Name]; ok {
				set[i].X, set[i].Y = xy[0], xy[1]
			}
		}
	}
	return p
}

// WithoutKeypoints returns a copy of p with the named keypoints removed from
// both keypoint sets.
func WithoutKeypoints(p pose.Pose, names ...string) pose.Pose {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	filter := func(kps []pose.Keypoint) []pose.Keypoint {
		var out []pose.Keypoint
		for _, kp := range kps {
			if !drop[kp.Name] {
				out = append(out, kp)
			}
		}
		return out
	}
	return pose.Pose{Keypoints: filter(p.Keypoints), Keypoints3D: filter(p.Keypoints3D)}
}

// Track builds a reference track with one NeutralPose per timestamp.
func Track(timestamps ...float64) []pose.TimestampedPoseSet {
	out := make([]pose.TimestampedPoseSet, len(timestamps))
	for i, ts := range timestamps {
		out[i] = pose.TimestampedPoseSet{Timestamp: ts, Poses: []pose.Pose{NeutralPose()}}
	}
	return out
}

// Frame wraps p as a single-pose detection at ts.
func Frame(ts float64, p pose.Pose) pose.TimestampedPoseSet {
	return pose.TimestampedPoseSet{Timestamp: ts, Poses: []pose.Pose{p}}
}
