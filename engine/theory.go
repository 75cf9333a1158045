package engine

import "math"

// Theory is the information-theoretic lower bound relating error rate,
// element count and storage: log2(1/error) bits per element. It applies
// no rounding at all, every quantity stays a continuous real, so it is
// the exact baseline the Bloom and Cuckoo solvers are compared against.
type Theory struct {
	err      opt
	elements opt
	storage  opt
	bits     opt

	constraint Constraint
}

// NewTheory resolves the Shannon-type bound from the given constraints.
func NewTheory(c Constraints) *Theory {
	t := &Theory{constraint: c.gate()}
	t.err, t.elements, t.storage = c.opts()
	if t.constraint == Resolved {
		t.infer()
	}
	return t
}

func (t *Theory) infer() {
	// the dependency chain is at most two deep (primary -> bits ->
	// remaining primaries), the second pass is headroom
	for pass := 0; pass < 2; pass++ {
		if !t.bits.ok && t.err.ok {
			t.bits = known(math.Log2(1 / t.err.val))
		}
		if !t.bits.ok && t.storage.ok && t.elements.ok {
			t.bits = known(t.storage.val / t.elements.val)
		}
		if !t.bits.ok {
			continue
		}
		if !t.storage.ok && t.elements.ok {
			t.storage = known(t.bits.val * t.elements.val)
		}
		if !t.elements.ok && t.storage.ok {
			t.elements = known(t.storage.val / t.bits.val)
		}
		if !t.err.ok {
			t.err = known(math.Pow(2, -t.bits.val))
		}
	}
}

func (t *Theory) Constraint() Constraint { return t.constraint }

func (t *Theory) Error() (float64, bool) { return t.err.float() }

func (t *Theory) Elements() (uint64, bool) { return t.elements.uint() }

func (t *Theory) Storage() (uint64, bool) { return t.storage.uint() }

func (t *Theory) BitsPerElement() (float64, bool) { return t.bits.float() }
