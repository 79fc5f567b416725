// Package compare scores the angular similarity of two poses.
package compare

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/dance.report/internal/catalog"
	"github.com/banshee-data/dance.report/internal/pose"
)

// Variant selects which keypoint set a Comparator reads.
type Variant string

const (
	Variant3D Variant = "3d"
	Variant2D Variant = "2d"
)

// ParseVariant accepts "3d" or "2d".
func ParseVariant(s string) (Variant, error) {
	switch v := Variant(s); v {
	case Variant3D, Variant2D:
		return v, nil
	}
	return "", fmt.Errorf("unknown comparison variant %q", s)
}

// Config holds the comparator tuning values.
type Config struct {
	Variant             Variant
	ConfidenceThreshold float64
	OcclusionPenalty    float64
}

// DefaultConfig returns the 3D comparator with a 0.1 confidence floor and a
// -10 penalty per occluded angle.
func DefaultConfig() Config {
	return Config{
		Variant:             Variant3D,
		ConfidenceThreshold: 0.1,
		OcclusionPenalty:    -10,
	}
}

// Score is the result of comparing two poses. PerAngle may be empty when the
// comparison short-circuits.
type Score struct {
	PerAngle map[string]float64 `json:"per_angle"`
	Total    float64            `json:"total"`
}

// Clone returns a deep copy of s.
func (s Score) Clone() Score {
	out := Score{Total: s.Total}
	if s.PerAngle != nil {
		out.PerAngle = make(map[string]float64, len(s.PerAngle))
		for k, v := range s.PerAngle {
			out.PerAngle[k] = v
		}
	}
	return out
}

// Comparator scores pose pairs against an immutable angle catalog.
type Comparator struct {
	cat *catalog.Catalog
	cfg Config
}

// NewComparator returns a Comparator. A nil catalog selects catalog.Default.
func NewComparator(cat *catalog.Catalog, cfg Config) *Comparator {
	if cat == nil {
		cat = catalog.Default()
	}
	if cfg.Variant == "" {
		cfg.Variant = Variant3D
	}
	return &Comparator{cat: cat, cfg: cfg}
}

// Catalog returns the catalog the comparator scores against.
func (c *Comparator) Catalog() *catalog.Catalog { return c.cat }

// Config returns the comparator configuration.
func (c *Comparator) Config() Config { return c.cfg }

// CompareByAngles scores every catalog angle of a against b and returns the
// per-angle scores with their weighted mean. An angle whose keypoints are
// missing or below the confidence threshold in either pose scores the
// occlusion penalty and still counts toward the total. In the 3D variant a
// pose with no 3D keypoints at all yields only Total = penalty. mid_hip and
// mid_shoulder are synthesized when absent.
func (c *Comparator) CompareByAngles(a, b pose.Pose) Score {
	a, b = a.WithMidpoints(), b.WithMidpoints()
	var kpsA, kpsB []pose.Keypoint
	if c.cfg.Variant == Variant2D {
		kpsA, kpsB = a.Keypoints, b.Keypoints
	} else {
		if len(a.Keypoints3D) == 0 || len(b.Keypoints3D) == 0 {
			return Score{PerAngle: map[string]float64{}, Total: c.cfg.OcclusionPenalty}
		}
		kpsA, kpsB = a.Keypoints3D, b.Keypoints3D
	}

	ptsA := pose.Confident(kpsA, c.cfg.ConfidenceThreshold)
	ptsB := pose.Confident(kpsB, c.cfg.ConfidenceThreshold)

	score := Score{PerAngle: make(map[string]float64, c.cat.Len())}
	var weighted float64
	for _, spec := range c.cat.Specs() {
		s := c.angleScore(spec, ptsA, ptsB)
		score.PerAngle[spec.Name] = s
		weighted += s * spec.Weight
	}
	score.Total = weighted / c.cat.TotalWeight()
	return score
}

func (c *Comparator) angleScore(spec catalog.AngleSpec, ptsA, ptsB map[string]pose.Point) float64 {
	triA, okA := triple(spec, ptsA, c.cfg.Variant == Variant3D)
	triB, okB := triple(spec, ptsB, c.cfg.Variant == Variant3D)
	if !okA || !okB {
		return c.cfg.OcclusionPenalty
	}

	var thetaA, thetaB float64
	if c.cfg.Variant == Variant2D {
		thetaA, thetaB = Angle2D(triA[0], triA[1], triA[2]), Angle2D(triB[0], triB[1], triB[2])
	} else {
		thetaA, thetaB = Angle3D(triA[0], triA[1], triA[2]), Angle3D(triB[0], triB[1], triB[2])
	}
	return AngleSimilarity(thetaA, thetaB)
}

func triple(spec catalog.AngleSpec, pts map[string]pose.Point, needZ bool) ([3]pose.Point, bool) {
	var out [3]pose.Point
	for i, name := range spec.Keypoints {
		p, ok := pts[name]
		if !ok || (needZ && !p.HasZ) {
			return out, false
		}
		out[i] = p
	}
	return out, true
}

// AngleSimilarity maps an angle difference to a score: 100 for identical
// angles, 0 for a difference of pi. The result is not clamped.
func AngleSimilarity(a, b float64) float64 {
	return 100 - 100*math.Abs(a-b)/math.Pi
}

// Angle2D returns the undirected angle at vertex between p1 and p3 in the
// image plane, in [0, pi].
func Angle2D(p1, vertex, p3 pose.Point) float64 {
	u := r2.Sub(r2.Vec{X: p1.X, Y: p1.Y}, r2.Vec{X: vertex.X, Y: vertex.Y})
	v := r2.Sub(r2.Vec{X: p3.X, Y: p3.Y}, r2.Vec{X: vertex.X, Y: vertex.Y})
	theta := math.Atan2(u.Y, u.X) - math.Atan2(v.Y, v.X)
	theta = math.Mod(theta, 2*math.Pi)
	if theta < 0 {
		theta += 2 * math.Pi
	}
	if theta > math.Pi {
		theta = 2*math.Pi - theta
	}
	return theta
}

// Angle3D returns the angle at vertex between p1 and p3, in [0, pi]. A
// zero-length arm yields 0.
func Angle3D(p1, vertex, p3 pose.Point) float64 {
	o := r3.Vec{X: vertex.X, Y: vertex.Y, Z: vertex.Z}
	u := r3.Sub(r3.Vec{X: p1.X, Y: p1.Y, Z: p1.Z}, o)
	v := r3.Sub(r3.Vec{X: p3.X, Y: p3.Y, Z: p3.Z}, o)
	norms := r3.Norm(u) * r3.Norm(v)
	if norms == 0 {
		return 0
	}
	cos := r3.Dot(u, v) / norms
	// Rounding can push the cosine just outside [-1, 1].
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos)
}
