package contract

import (
	"strings"
	"testing"
)

func TestEveryFixedPointHasTemplate(t *testing.T) {
	for _, p := range Points {
		data, err := Template(p)
		if err != nil {
			t.Fatalf("%s: %v", p, err)
		}
		if !strings.HasSuffix(string(data), "\n") {
			t.Errorf("%s: template must end with a newline", p)
		}
		if !IsFixed(p) {
			t.Errorf("%s: IsFixed = false", p)
		}
	}
	if IsFixed("par_specific") {
		t.Error("custom points are not fixed")
	}
}
