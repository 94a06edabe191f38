package decoder

import (
	"reflect"
	"testing"
)

func TestLineRingLastNBeforeWrap(t *testing.T) {
	r := newLineRing(4)
	r.Add("a")
	r.Add("b")

	got := r.LastN(10)
	want := []string{"a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestLineRingWrapsAndKeepsOrder(t *testing.T) {
	r := newLineRing(3)
	for _, line := range []string{"a", "b", "c", "d", "e"} {
		r.Add(line)
	}
	got := r.LastN(10)
	want := []string{"c", "d", "e"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestLineRingLastNLimitsCount(t *testing.T) {
	r := newLineRing(5)
	for _, line := range []string{"a", "b", "c"} {
		r.Add(line)
	}
	got := r.LastN(2)
	want := []string{"b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestLineRingZeroCapacityIsNoop(t *testing.T) {
	r := newLineRing(0)
	r.Add("a")
	got := r.LastN(10)
	if len(got) != 0 {
		t.Fatalf("expected no lines retained for zero-capacity ring, got %v", got)
	}
}
