package testfixtures

import (
	"slices"
	"testing"
)

func TestIDGeneratorProducesSequentialIDs(t *testing.T) {
	gen := NewIDGenerator("signup")
	next := gen.NextFunc()

	first := next()
	second := gen.Next()

	if first != "signup-1" || second != "signup-2" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}
	if got := gen.Issued(); !slices.Equal(got, []string{"signup-1", "signup-2"}) {
		t.Fatalf("unexpected issued list %v", got)
	}
}

func TestIDGeneratorDefaultPrefix(t *testing.T) {
	if id := NewIDGenerator("").Next(); id != "id-1" {
		t.Fatalf("expected id-1, got %q", id)
	}
}
