package builder

import (
	"math"
	"sort"
)

// coordPrecision rounds geographic values to 6 decimal digits (~11cm),
// applied once at first computation and idempotent thereafter.
func round6(value float64) float64 {
	return math.Round(value*1e6) / 1e6
}

type seqPoint struct {
	seq      int
	lat, lon float64
}

// dedupeAndSimplifyShape turns raw shape rows into a bounded polyline:
// points ordered by sequence number, coordinates rounded, consecutive
// duplicates collapsed, then downsampled to at most maxPoints while always
// keeping the first and last point. A result under budget is returned as-is,
// so re-simplifying is a no-op.
func dedupeAndSimplifyShape(points []seqPoint, maxPoints int) [][]float64 {
	ordered := make([]seqPoint, len(points))
	copy(ordered, points)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].seq < ordered[j].seq })

	cleaned := make([][]float64, 0, len(ordered))
	for _, p := range ordered {
		current := []float64{round6(p.lat), round6(p.lon)}
		if n := len(cleaned); n > 0 && cleaned[n-1][0] == current[0] && cleaned[n-1][1] == current[1] {
			continue
		}
		cleaned = append(cleaned, current)
	}

	if len(cleaned) <= maxPoints {
		return cleaned
	}

	step := int(math.Ceil(float64(len(cleaned)) / float64(maxPoints)))
	if step < 1 {
		step = 1
	}
	simplified := [][]float64{cleaned[0]}
	for idx := step; idx < len(cleaned)-1; idx += step {
		simplified = append(simplified, cleaned[idx])
	}
	simplified = append(simplified, cleaned[len(cleaned)-1])

	// Integer stride rounding can still overshoot the budget by one; a
	// second proportional pass settles it.
	if len(simplified) > maxPoints {
		ratio := float64(len(simplified)) / float64(maxPoints)
		out := [][]float64{simplified[0]}
		cursor := ratio
		for len(out) < maxPoints-1 {
			out = append(out, simplified[int(cursor)])
			cursor += ratio
		}
		out = append(out, simplified[len(simplified)-1])
		simplified = out
	}

	return simplified
}

// shapeDirectionKeys selects the direction keys to tag a shape with: the
// route's canonical order filtered to the directions observed on the shape,
// any unordered extras appended alphabetically, and the route's full
// direction list when the shape had no direction signal at all.
func shapeDirectionKeys(routeOrder []string, observed map[string]struct{}) []string {
	keys := make([]string, 0, len(observed))
	inOrder := make(map[string]struct{}, len(routeOrder))
	for _, key := range routeOrder {
		inOrder[key] = struct{}{}
		if _, ok := observed[key]; ok {
			keys = append(keys, key)
		}
	}

	extras := make([]string, 0)
	for key := range observed {
		if _, ok := inOrder[key]; !ok {
			extras = append(extras, key)
		}
	}
	sort.Strings(extras)
	keys = append(keys, extras...)

	if len(keys) == 0 {
		if len(routeOrder) > 0 {
			keys = append(keys, routeOrder...)
		} else {
			keys = append(keys, defaultDirectionKey)
		}
	}
	return keys
}
