package catalog

// DefaultSpecs is the built-in angle set. Limb bends carry the most weight,
// hip spread less, and torso corners the least.
var DefaultSpecs = []AngleSpec{
	{Name: "left_elbow", Keypoints: [3]string{"left_shoulder", "left_elbow", "left_wrist"}, Weight: 3},
	{Name: "right_elbow", Keypoints: [3]string{"right_shoulder", "right_elbow", "right_wrist"}, Weight: 3},
	{Name: "left_knee", Keypoints: [3]string{"left_hip", "left_knee", "left_ankle"}, Weight: 3},
	{Name: "right_knee", Keypoints: [3]string{"right_hip", "right_knee", "right_ankle"}, Weight: 3},
	{Name: "left_armpit", Keypoints: [3]string{"left_hip", "left_shoulder", "left_elbow"}, Weight: 3},
	{Name: "right_armpit", Keypoints: [3]string{"right_hip", "right_shoulder", "right_elbow"}, Weight: 3},
	{Name: "between_legs_left", Keypoints: [3]string{"left_knee", "left_hip", "right_hip"}, Weight: 1.5},
	{Name: "between_legs_right", Keypoints: [3]string{"right_knee", "right_hip", "left_hip"}, Weight: 1.5},
	{Name: "top_left_chest", Keypoints: [3]string{"left_hip", "left_shoulder", "right_shoulder"}, Weight: 1},
	{Name: "top_right_chest", Keypoints: [3]string{"right_hip", "right_shoulder", "left_shoulder"}, Weight: 1},
	{Name: "bottom_left_chest", Keypoints: [3]string{"left_shoulder", "left_hip", "right_hip"}, Weight: 1},
	{Name: "bottom_right_chest", Keypoints: [3]string{"right_shoulder", "right_hip", "left_hip"}, Weight: 1},
}

var defaultCatalog = MustNew(DefaultSpecs)

// Default returns the built-in catalog. The value is shared and read-only.
func Default() *Catalog { return defaultCatalog }
