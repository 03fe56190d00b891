package fault

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestKindOfWalksWrapChain(t *testing.T) {
	base := New(KindBackend, "invoker.invoke", "exit status 1")
	wrapped := fmt.Errorf("phase planning: %w", base)

	if got := KindOf(wrapped); got != KindBackend {
		t.Fatalf("KindOf = %s, want %s", got, KindBackend)
	}
	if got := KindOf(errors.New("plain")); got != KindInternal {
		t.Fatalf("KindOf(plain) = %s, want %s", got, KindInternal)
	}
}

func TestWrapNilIsNil(t *testing.T) {
	if err := Wrap(KindShape, "orchestrator.parse", nil); err != nil {
		t.Fatalf("Wrap(nil) = %v, want nil", err)
	}
}

func TestIsCancelled(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"taxonomy", New(KindCancelled, "orchestrator.process", "user abort"), true},
		{"wrapped taxonomy", fmt.Errorf("outer: %w", New(KindCancelled, "op", "")), true},
		{"context", context.Canceled, true},
		{"backend", New(KindBackend, "op", "boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsCancelled(tc.err); got != tc.want {
				t.Fatalf("IsCancelled = %v, want %v", got, tc.want)
			}
		})
	}
}
