package expand

import (
	"paramgen/internal/source"
)

// Segment is one line of the root template's skeleton. A segment with a
// non-empty Marker is an insertion point to be replaced by fragments; any
// other segment is literal output.
type Segment struct {
	Text   string
	Marker string
	Indent string
	Span   source.Span
}

// Fragment is one rendered line addressed to an insertion point.
type Fragment struct {
	Text string
	Span source.Span
}

// Expansion is the result of expanding a root template.
type Expansion struct {
	Skeleton []Segment
	Points   map[string][]Fragment
	// Order lists insertion points in the order they first received a
	// fragment.
	Order []string
}

func newExpansion() *Expansion {
	return &Expansion{Points: make(map[string][]Fragment)}
}

func (x *Expansion) addFragment(point string, f Fragment) {
	if _, ok := x.Points[point]; !ok {
		x.Order = append(x.Order, point)
	}
	x.Points[point] = append(x.Points[point], f)
}

// HasMarker reports whether the skeleton contains an insertion point.
func (x *Expansion) HasMarker(point string) bool {
	for _, s := range x.Skeleton {
		if s.Marker == point {
			return true
		}
	}
	return false
}

// Markers lists the distinct insertion points of the skeleton in order.
func (x *Expansion) Markers() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, s := range x.Skeleton {
		if s.Marker == "" {
			continue
		}
		if _, ok := seen[s.Marker]; ok {
			continue
		}
		seen[s.Marker] = struct{}{}
		out = append(out, s.Marker)
	}
	return out
}
