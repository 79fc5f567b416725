package pose

import "math"

// Synthetic keypoint names, derived as midpoints when the detector omits them.
const (
	MidHip      = "mid_hip"
	MidShoulder = "mid_shoulder"
)

// Vocabulary is the fixed anatomical keypoint vocabulary in detector order,
// followed by the synthetic midpoints.
var Vocabulary = []string{
	"nose",
	"left_eye_inner", "left_eye", "left_eye_outer",
	"right_eye_inner", "right_eye", "right_eye_outer",
	"left_ear", "right_ear",
	"mouth_left", "mouth_right",
	"left_shoulder", "right_shoulder",
	"left_elbow", "right_elbow",
	"left_wrist", "right_wrist",
	"left_pinky", "right_pinky",
	"left_index", "right_index",
	"left_thumb", "right_thumb",
	"left_hip", "right_hip",
	"left_knee", "right_knee",
	"left_ankle", "right_ankle",
	"left_heel", "right_heel",
	"left_foot_index", "right_foot_index",
	MidHip, MidShoulder,
}

var known = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Vocabulary))
	for _, n := range Vocabulary {
		m[n] = struct{}{}
	}
	return m
}()

// IsKnownKeypoint reports whether name belongs to the vocabulary.
func IsKnownKeypoint(name string) bool {
	_, ok := known[name]
	return ok
}

var midpoints = []struct {
	name, a, b string
}{
	{MidHip, "left_hip", "right_hip"},
	{MidShoulder, "left_shoulder", "right_shoulder"},
}

// SynthesizeMidpoints appends mid_hip and mid_shoulder to kps when they are
// absent and both source keypoints are present. The synthetic score is the
// lower of the two source scores; Z is set only when both sources carry one.
// The input slice is not modified.
func SynthesizeMidpoints(kps []Keypoint) []Keypoint {
	byName := make(map[string]Keypoint, len(kps))
	for _, kp := range kps {
		if _, ok := byName[kp.Name]; !ok {
			byName[kp.Name] = kp
		}
	}

	out := append([]Keypoint(nil), kps...)
	for _, m := range midpoints {
		if _, ok := byName[m.name]; ok {
			continue
		}
		a, okA := byName[m.a]
		b, okB := byName[m.b]
		if !okA || !okB {
			continue
		}
		mid := Keypoint{
			Name: m.name,
			X:    (a.X + b.X) / 2,
			Y:    (a.Y + b.Y) / 2,
		}
		if a.Z != nil && b.Z != nil {
			mid.Z = Float((*a.Z + *b.Z) / 2)
		}
		if a.Score != nil && b.Score != nil {
			mid.Score = Float(math.Min(*a.Score, *b.Score))
		}
		out = append(out, mid)
	}
	return out
}

// WithMidpoints returns a copy of p with midpoints synthesized in both the 2D
// and 3D keypoint sets.
func (p Pose) WithMidpoints() Pose {
	out := Pose{Keypoints: SynthesizeMidpoints(p.Keypoints)}
	if p.Keypoints3D != nil {
		out.Keypoints3D = SynthesizeMidpoints(p.Keypoints3D)
	}
	return out
}
