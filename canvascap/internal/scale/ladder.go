// Package scale models the discrete zoom levels a canvas can be rendered at
// and switches between them through a UI control.
package scale

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Default is the scale used when none is requested and the fallback after a
// failed scale change.
const Default = 100

// Levels are the supported scale percentages.
var Levels = Ladder{10, 50, 75, 100, 150, 200, 250}

// Ladder is an ascending list of supported scale percentages.
type Ladder []int

// Normalize returns a sorted, de-duplicated copy of l with non-positive
// entries dropped. An empty result falls back to Levels.
func (l Ladder) Normalize() Ladder {
	out := make(Ladder, 0, len(l))
	for _, p := range l {
		if p > 0 {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	out = slices.Compact(out)
	if len(out) == 0 {
		return slices.Clone(Levels)
	}
	return out
}

// Snap returns the smallest level at or above p. Requests above the largest
// level clamp to it; p <= 0 means Default.
func (l Ladder) Snap(p int) int {
	if p <= 0 {
		p = Default
	}
	for _, lv := range l {
		if lv >= p {
			return lv
		}
	}
	return l[len(l)-1]
}

// Detour returns the level used to force a redraw of p: the next larger
// level, or one step down when p is already the largest.
func (l Ladder) Detour(p int) int {
	i := slices.Index(l, p)
	switch {
	case len(l) < 2:
		return p
	case i < 0:
		return l.Snap(p + 1)
	case i == len(l)-1:
		return l[i-1]
	default:
		return l[i+1]
	}
}

// Contains reports whether p is a supported level.
func (l Ladder) Contains(p int) bool { return slices.Contains(l, p) }

// Factor converts a percentage to a multiplier.
func Factor(p int) float64 { return float64(p) / 100 }

// ParsePercent reads a control label such as "150%" or " 75 % ".
func ParsePercent(s string) (int, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	p, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("scale: parse %q: %w", s, err)
	}
	return p, nil
}
