package main

import (
	"fmt"
	"strings"
)

// parseVars turns repeated k=v flag values into ordered bindings. Later
// values of the same key win when bound in order.
func parseVars(values []string) ([][2]string, error) {
	out := make([][2]string, 0, len(values))
	for _, v := range values {
		name, value, ok := strings.Cut(v, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --var %q (expected name=value)", v)
		}
		if strings.ContainsAny(name, " \t$") {
			return nil, fmt.Errorf("invalid --var name %q", name)
		}
		out = append(out, [2]string{name, value})
	}
	return out, nil
}
