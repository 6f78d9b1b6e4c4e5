package directive

import "strings"

// Wildcard is the filter label that selects every parameter.
const Wildcard = "all"

// Filter is the bracketed tag list of a repeat directive.
type Filter struct {
	Labels []string
}

// ParseFilter parses the contents between '[' and ']', e.g. "a|b".
// Blank labels are dropped; ok is false when none remain.
func ParseFilter(s string) (f Filter, ok bool) {
	for _, part := range strings.Split(s, "|") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f.Labels = append(f.Labels, part)
	}
	return f, len(f.Labels) > 0
}

// IsWildcard reports whether the filter selects every parameter.
func (f Filter) IsWildcard() bool {
	for _, l := range f.Labels {
		if l == Wildcard {
			return true
		}
	}
	return false
}

// Matches reports whether any label equals one of tags.
func (f Filter) Matches(tags []string) bool {
	if f.IsWildcard() {
		return true
	}
	for _, l := range f.Labels {
		for _, t := range tags {
			if l == t {
				return true
			}
		}
	}
	return false
}

func (f Filter) String() string {
	return "[" + strings.Join(f.Labels, "|") + "]"
}
