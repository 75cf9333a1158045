package engine

import "math"

// Bloom sizes a classical bloom filter. Capacity-like results are
// floored (never promise more elements than the bits can carry at the
// requested error) and requirement-like results are ceiling'd (never
// hand out fewer bits than the requested error needs). Once storage and
// elements are fixed the achieved error is recomputed from them, so a
// supplied error that was consumed deriving the other two is replaced by
// the rate the final integer parameters actually deliver.
type Bloom struct {
	err      opt
	elements opt
	storage  opt
	hashes   opt

	constraint Constraint
}

// NewBloom resolves bloom filter parameters from the given constraints.
// A non-nil hashes forces the hash count, otherwise the classical
// optimum round(storage/elements * ln2) is used.
func NewBloom(c Constraints, hashes *uint64) *Bloom {
	b := &Bloom{constraint: c.gate()}
	b.err, b.elements, b.storage = c.opts()
	if hashes != nil {
		b.hashes = known(float64(*hashes))
	}
	if b.constraint == Resolved {
		b.infer()
	}
	return b
}

func (b *Bloom) infer() {
	for pass := 0; pass < 4; pass++ {
		// capacity at the requested error, floored
		if b.storage.ok && b.err.ok && !b.elements.ok {
			b.elements = known(math.Floor(-(b.storage.val * ln2sq) / math.Log(b.err.val)))
		}
		// bits required for the requested error, ceiling'd
		if b.elements.ok && b.err.ok && !b.storage.ok {
			b.storage = known(math.Ceil(-(b.elements.val * math.Log(b.err.val)) / ln2sq))
		}
		if !b.elements.ok || !b.storage.ok {
			continue
		}
		if !b.hashes.ok {
			// fixing the hash count changes the achievable error,
			// drop it and recompute below
			b.err = opt{}
			b.hashes = known(math.Round(b.storage.val / b.elements.val * math.Ln2))
		}
		if !b.err.ok {
			b.err = known(math.Exp(-(b.storage.val * ln2sq) / b.elements.val))
		}
	}
}

func (b *Bloom) Constraint() Constraint { return b.constraint }

func (b *Bloom) Error() (float64, bool) { return b.err.float() }

func (b *Bloom) Elements() (uint64, bool) { return b.elements.uint() }

func (b *Bloom) Storage() (uint64, bool) { return b.storage.uint() }

// Hashes is the number of hash functions, forced or inferred.
func (b *Bloom) Hashes() (uint64, bool) { return b.hashes.uint() }

func (b *Bloom) BitsPerElement() (float64, bool) {
	if b.constraint != Resolved || !b.storage.ok || !b.elements.ok {
		return 0, false
	}
	return b.storage.val / b.elements.val, true
}
