package timeline

import "math"

// DefaultMaxMappingDiffMs bounds how far a mapping lookup may stray from the
// requested reference timestamp.
const DefaultMaxMappingDiffMs = 1000

// Mapping ties a reference timestamp to the live timestamp that was scored
// against it.
type Mapping struct {
	Original float64 `json:"originalTimestamp"`
	Mapped   float64 `json:"mappedTimestamp"`
}

func mappingOriginal(m Mapping) float64 { return m.Original }

// MapTimestamp translates a reference timestamp into live time using the
// nearest mapping. mappings must be sorted by Original. It returns false when
// there are no mappings or the nearest one is more than maxDiff away.
func MapTimestamp(mappings []Mapping, original, maxDiff float64) (float64, bool) {
	m, _, ok := NearestByTimestamp(mappings, mappingOriginal, original)
	if !ok || math.Abs(m.Original-original) > maxDiff {
		return 0, false
	}
	return m.Mapped, true
}
