// Package pose defines the keypoint, pose and timestamped detection types
// shared by the scoring engine.
package pose

// Keypoint is a single named anatomical landmark. Z is set only for 3D
// keypoints. Score is the detector confidence in [0,1]; a keypoint with no
// score is never used for comparison.
type Keypoint struct {
	Name  string   `json:"name"`
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
	Z     *float64 `json:"z,omitempty"`
	Score *float64 `json:"score,omitempty"`
}

// Pose is the result of one detection pass for one person. Keypoints3D is
// optional and, when present, parallels Keypoints.
type Pose struct {
	Keypoints   []Keypoint `json:"keypoints"`
	Keypoints3D []Keypoint `json:"keypoints3D,omitempty"`
}

// TimestampedPoseSet is a detection result for one instant. Timestamp is in
// milliseconds. Poses may be empty (nobody detected); only the first pose is
// scored.
type TimestampedPoseSet struct {
	Timestamp float64 `json:"timestamp"`
	Poses     []Pose  `json:"poses"`
}

// Primary returns the first detected pose.
func (s TimestampedPoseSet) Primary() (Pose, bool) {
	if len(s.Poses) == 0 {
		return Pose{}, false
	}
	return s.Poses[0], true
}

// Point is a resolved keypoint position used by the geometry code.
type Point struct {
	X, Y, Z float64
	HasZ    bool
}

// Confident returns the keypoints whose score is positive and at least
// threshold, keyed by name. When the same name appears twice the first
// occurrence wins.
func Confident(kps []Keypoint, threshold float64) map[string]Point {
	out := make(map[string]Point, len(kps))
	for _, kp := range kps {
		if kp.Score == nil || *kp.Score <= 0 || *kp.Score < threshold {
			continue
		}
		if _, dup := out[kp.Name]; dup {
			continue
		}
		p := Point{X: kp.X, Y: kp.Y}
		if kp.Z != nil {
			p.Z = *kp.Z
			p.HasZ = true
		}
		out[kp.Name] = p
	}
	return out
}

// Float returns a pointer to v. It is a convenience for building keypoints.
func Float(v float64) *float64 { return &v }
