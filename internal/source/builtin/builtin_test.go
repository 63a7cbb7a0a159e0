package builtin

import (
	"testing"

	"github.com/hyperifyio/gorecipe/internal/source/sourcetest"
)

func TestAdapters_OrderAndRules(t *testing.T) {
	adapters := Adapters(sourcetest.Unreachable{T: t})
	names := Names()
	if len(adapters) != len(names) {
		t.Fatalf("got %d adapters, %d names", len(adapters), len(names))
	}
	for i, a := range adapters {
		if a.Name() != names[i] {
			t.Fatalf("adapter %d = %q, want %q", i, a.Name(), names[i])
		}
		if len(a.URLMatches()) == 0 {
			t.Fatalf("%s declares no rules", a.Name())
		}
		for _, r := range a.URLMatches() {
			if err := r.Validate(); err != nil {
				t.Fatalf("%s: invalid rule %s: %v", a.Name(), r, err)
			}
		}
	}
}
