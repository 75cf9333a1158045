package server

import (
	"testing"

	"github.com/jpillora/probset/engine"
)

func testServer() *Server {
	s := &Server{}
	s.state.Config = engine.Config{
		CuckooHashes: 2,
		CuckooSlots:  4,
		CuckooUtil:   0.95,
	}
	return s
}

func TestResolveRendersAllThree(t *testing.T) {
	s := testServer()
	res := s.resolve(Request{Error: "0.1%", Elements: "1M"})
	if res.Constraint != "resolved" {
		t.Fatalf("Constraint = %q, want resolved", res.Constraint)
	}
	if res.Fields != nil {
		t.Errorf("unexpected field errors: %v", res.Fields)
	}
	if res.Theory.BitsPerElement == "" || res.Theory.Storage == "" {
		t.Errorf("theory view incomplete: %+v", res.Theory)
	}
	if res.Bloom.Hashes == "" || res.Bloom.StorageBits == "" || res.Bloom.Error == "" {
		t.Errorf("bloom view incomplete: %+v", res.Bloom)
	}
	if res.Cuckoo.Fingerprint == "" || res.Cuckoo.Buckets == "" {
		t.Errorf("cuckoo view incomplete: %+v", res.Cuckoo)
	}
	// element counts render comma'd
	if res.Bloom.Elements != "1,000,000" {
		t.Errorf("Bloom.Elements = %q, want 1,000,000", res.Bloom.Elements)
	}
}

func TestResolveOverconstrained(t *testing.T) {
	s := testServer()
	res := s.resolve(Request{Error: "0.01", Elements: "10", Storage: "100"})
	if res.Constraint != "overconstrained" {
		t.Fatalf("Constraint = %q, want overconstrained", res.Constraint)
	}
	// inputs echo back, derived fields stay blank
	if res.Bloom.Hashes != "" || res.Cuckoo.Fingerprint != "" || res.Theory.BitsPerElement != "" {
		t.Errorf("derived fields rendered on an over-constrained set: %+v", res)
	}
	if res.Bloom.Elements != "10" {
		t.Errorf("Bloom.Elements = %q, want 10", res.Bloom.Elements)
	}
}

func TestResolveFieldErrors(t *testing.T) {
	s := testServer()
	res := s.resolve(Request{Error: "2", Elements: "abc"})
	if res.Fields["error"] == "" {
		t.Error("out of range error rate not flagged")
	}
	if res.Fields["elements"] == "" {
		t.Error("malformed element count not flagged")
	}
	if _, ok := res.Fields["storage"]; ok {
		t.Error("blank storage flagged as a parse failure")
	}
	if res.Constraint != "underconstrained" {
		t.Errorf("Constraint = %q, want underconstrained", res.Constraint)
	}
}

func TestResolveSuppressedOnFieldError(t *testing.T) {
	s := testServer()
	// elements and storage are a complete constraint set on their own,
	// but the typo'd rate means the operator asked for something else
	res := s.resolve(Request{Error: "0.x1", Elements: "1M", Storage: "10Mb"})
	if res.Fields["error"] == "" {
		t.Fatal("malformed error rate not flagged")
	}
	if res.Constraint != "underconstrained" {
		t.Errorf("Constraint = %q, want underconstrained", res.Constraint)
	}
	if res.Bloom != (View{}) || res.Cuckoo != (View{}) || res.Theory != (View{}) {
		t.Errorf("results rendered despite a parse failure: %+v", res)
	}
}

func TestResolveHyperparameterOverrides(t *testing.T) {
	s := testServer()
	slots := uint64(8)
	util := 0.5
	res := s.resolve(Request{
		Error:       "1%",
		Elements:    "1000",
		CuckooSlots: &slots,
		CuckooUtil:  &util,
	})
	// ceil(log2(0.5*8*2 / 0.01)) = ceil(log2(800)) = 10
	if res.Cuckoo.Fingerprint != "10" {
		t.Errorf("Cuckoo.Fingerprint = %q, want 10", res.Cuckoo.Fingerprint)
	}
	// overrides never leak into the stored defaults
	if got := s.state.Config.CuckooSlots; got != 4 {
		t.Errorf("stored CuckooSlots = %d, want 4", got)
	}
}
