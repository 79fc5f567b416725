// Package catalog holds the registry of weighted joint angles used for
// scoring and joint-level diagnostics.
package catalog

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/dance.report/internal/pose"
)

var (
	ErrEmpty           = errors.New("catalog has no angles")
	ErrDuplicateAngle  = errors.New("duplicate angle name")
	ErrUnknownKeypoint = errors.New("unknown keypoint")
	ErrInvalidWeight   = errors.New("angle weight must be positive and finite")
)

// AngleSpec names a joint angle. Keypoints[1] is the vertex.
type AngleSpec struct {
	Name      string    `json:"name" toml:"name"`
	Keypoints [3]string `json:"keypoints" toml:"keypoints"`
	Weight    float64   `json:"weight" toml:"weight"`
}

// Vertex returns the keypoint at which the angle is measured.
func (a AngleSpec) Vertex() string { return a.Keypoints[1] }

// Catalog is an immutable, ordered set of angles. The zero value is not
// usable; build one with New or Default.
type Catalog struct {
	specs       []AngleSpec
	index       map[string]int
	totalWeight float64
}

// New validates specs and builds a Catalog. Validation fails on an empty set,
// an empty or repeated name, a keypoint outside the pose vocabulary, or a
// weight that is not strictly positive.
func New(specs []AngleSpec) (*Catalog, error) {
	if len(specs) == 0 {
		return nil, ErrEmpty
	}
	c := &Catalog{
		specs: make([]AngleSpec, len(specs)),
		index: make(map[string]int, len(specs)),
	}
	for i, s := range specs {
		if s.Name == "" {
			return nil, fmt.Errorf("angle %d: name is required", i)
		}
		if _, dup := c.index[s.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateAngle, s.Name)
		}
		for _, kp := range s.Keypoints {
			if !pose.IsKnownKeypoint(kp) {
				return nil, fmt.Errorf("angle %q: %w %q", s.Name, ErrUnknownKeypoint, kp)
			}
		}
		if !(s.Weight > 0) || math.IsInf(s.Weight, 0) {
			return nil, fmt.Errorf("angle %q: %w, got %v", s.Name, ErrInvalidWeight, s.Weight)
		}
		c.specs[i] = s
		c.index[s.Name] = i
		c.totalWeight += s.Weight
	}
	return c, nil
}

// MustNew is like New but panics on error. It is intended for compiled-in
// catalogs.
func MustNew(specs []AngleSpec) *Catalog {
	c, err := New(specs)
	if err != nil {
		panic(fmt.Sprintf("catalog: %v", err))
	}
	return c
}

// Specs returns a copy of the angles in catalog order.
func (c *Catalog) Specs() []AngleSpec {
	return append([]AngleSpec(nil), c.specs...)
}

// Len returns the number of angles.
func (c *Catalog) Len() int { return len(c.specs) }

// TotalWeight is the sum of all angle weights.
func (c *Catalog) TotalWeight() float64 { return c.totalWeight }

// Lookup returns the angle with the given name.
func (c *Catalog) Lookup(name string) (AngleSpec, bool) {
	i, ok := c.index[name]
	if !ok {
		return AngleSpec{}, false
	}
	return c.specs[i], true
}

// Names returns the angle names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.specs))
	for i, s := range c.specs {
		names[i] = s.Name
	}
	return names
}
