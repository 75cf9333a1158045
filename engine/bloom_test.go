package engine

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// bloomView flattens a resolved set for go-cmp.
type bloomView struct {
	Error          float64
	Elements       uint64
	Storage        uint64
	Hashes         uint64
	BitsPerElement float64
}

func viewBloom(b *Bloom) bloomView {
	var v bloomView
	v.Error, _ = b.Error()
	v.Elements, _ = b.Elements()
	v.Storage, _ = b.Storage()
	v.Hashes, _ = b.Hashes()
	v.BitsPerElement, _ = b.BitsPerElement()
	return v
}

func TestBloomGolden(t *testing.T) {
	b := NewBloom(Constraints{Storage: uptr(9585058), Error: fptr(0.001)}, nil)
	want := bloomView{
		Error:          0.000999993364221088,
		Elements:       666666,
		Storage:        9585058,
		Hashes:         10,
		BitsPerElement: 14.377601377601378,
	}
	if diff := cmp.Diff(want, viewBloom(b), cmpopts.EquateApprox(1e-12, 0)); diff != "" {
		t.Errorf("resolved set mismatch (-want +got):\n%s", diff)
	}
}

func TestBloomStorage(t *testing.T) {
	b := NewBloom(Constraints{Elements: uptr(1000000), Error: fptr(0.01)}, nil)
	storage, ok := b.Storage()
	if !ok || storage != 9585059 {
		t.Errorf("Storage() = %v, %v, want 9585059", storage, ok)
	}
	hashes, ok := b.Hashes()
	if !ok || hashes != 7 {
		t.Errorf("Hashes() = %v, %v, want 7", hashes, ok)
	}
	// the achieved error is recomputed from the ceiling'd storage, so it
	// is at least as tight as requested
	err, ok := b.Error()
	if !ok || err > 0.01 {
		t.Errorf("Error() = %v, %v, want <= 0.01", err, ok)
	}
}

func TestBloomStorageBound(t *testing.T) {
	// the ceiling'd storage never under-provisions the requested error
	tests := []struct {
		name     string
		elements uint64
		err      float64
	}{
		{"small", 100, 0.01},
		{"1M", 1000000, 0.001},
		{"tight", 5000, 0.000001},
		{"loose", 123456, 0.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBloom(Constraints{Elements: uptr(tt.elements), Error: fptr(tt.err)}, nil)
			storage, ok := b.Storage()
			if !ok {
				t.Fatal("storage unresolved")
			}
			exact := -float64(tt.elements) * math.Log(tt.err) / ln2sq
			if float64(storage) < exact {
				t.Errorf("storage %d under-provisions exact requirement %v", storage, exact)
			}
		})
	}
}

func TestBloomCapacityBound(t *testing.T) {
	// the floored element count never exceeds the exact capacity
	tests := []struct {
		name    string
		storage uint64
		err     float64
	}{
		{"1Mb", 1000000, 0.01},
		{"golden", 9585058, 0.001},
		{"tiny", 512, 0.05},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBloom(Constraints{Storage: uptr(tt.storage), Error: fptr(tt.err)}, nil)
			elements, ok := b.Elements()
			if !ok {
				t.Fatal("elements unresolved")
			}
			exact := -float64(tt.storage) * ln2sq / math.Log(tt.err)
			if float64(elements) > exact {
				t.Errorf("elements %d exceeds exact capacity %v", elements, exact)
			}
		})
	}
}

func TestBloomForcedHashes(t *testing.T) {
	// a caller-forced hash count is never overwritten and the supplied
	// error survives (rule 3 only fires for an inferred count)
	b := NewBloom(Constraints{Elements: uptr(1000000), Error: fptr(0.01)}, uptr(5))
	hashes, ok := b.Hashes()
	if !ok || hashes != 5 {
		t.Errorf("Hashes() = %v, %v, want 5", hashes, ok)
	}
	err, ok := b.Error()
	if !ok || err != 0.01 {
		t.Errorf("Error() = %v, %v, want 0.01", err, ok)
	}
}

func TestBloomIdempotence(t *testing.T) {
	// feeding a resolved (elements, storage) pair back in reproduces the
	// achieved error and hash count
	first := NewBloom(Constraints{Storage: uptr(9585058), Error: fptr(0.001)}, nil)
	elements, _ := first.Elements()
	storage, _ := first.Storage()
	second := NewBloom(Constraints{Elements: uptr(elements), Storage: uptr(storage)}, nil)
	if diff := cmp.Diff(viewBloom(first), viewBloom(second), cmpopts.EquateApprox(1e-12, 0)); diff != "" {
		t.Errorf("re-resolved set mismatch (-first +second):\n%s", diff)
	}
}

func TestBloomGate(t *testing.T) {
	tests := []struct {
		name string
		c    Constraints
		want Constraint
	}{
		{"none", Constraints{}, Underconstrained},
		{"one", Constraints{Storage: uptr(4096)}, Underconstrained},
		{"all", Constraints{Error: fptr(0.01), Elements: uptr(10), Storage: uptr(100)}, Overconstrained},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBloom(tt.c, nil)
			if got := b.Constraint(); got != tt.want {
				t.Errorf("Constraint() = %v, want %v", got, tt.want)
			}
			if _, ok := b.Hashes(); ok {
				t.Error("Hashes() resolved on a gated set")
			}
			if _, ok := b.BitsPerElement(); ok {
				t.Error("BitsPerElement() resolved on a gated set")
			}
		})
	}
}
