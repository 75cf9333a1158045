package engine

import "math"

// CuckooConfig are the fixed hyperparameters of a cuckoo filter. They
// are inputs to the solver, never inferred.
type CuckooConfig struct {
	Hashes uint64  // candidate buckets per element (normally 2)
	Slots  uint64  // slots per bucket (e.g. 4)
	Util   float64 // target load factor, in (0,1]
	Sorted bool    // partial-sort bucket compression
}

// Cuckoo sizes a cuckoo filter: fingerprint width and bucket count on
// top of the three primaries. The variables are more entangled than in
// the bloom case - fingerprint, buckets, storage and elements unblock
// each other across passes - so resolution loops until the set is solved
// or the pass cap is hit.
type Cuckoo struct {
	err      opt
	elements opt
	storage  opt

	// inferred structural parameters
	fingerprint opt // bits
	buckets     opt

	// hyperparameters
	hashes float64
	slots  float64
	util   float64

	// average bits saved per cell by keeping bucket contents sorted.
	// Computed when Sorted is set but not applied to any sizing formula.
	save   float64
	sorted bool

	constraint Constraint
}

// NewCuckoo resolves cuckoo filter parameters from the given constraints
// and hyperparameters.
func NewCuckoo(c Constraints, cfg CuckooConfig) *Cuckoo {
	f := &Cuckoo{
		hashes:     float64(cfg.Hashes),
		slots:      float64(cfg.Slots),
		util:       cfg.Util,
		sorted:     cfg.Sorted,
		constraint: c.gate(),
	}
	f.err, f.elements, f.storage = c.opts()
	if cfg.Sorted {
		for i := uint64(1); i <= cfg.Slots; i++ {
			f.save += math.Log2(float64(i))
		}
		f.save /= f.slots
	}
	if f.constraint == Resolved {
		f.infer()
	}
	return f
}

func (f *Cuckoo) solved() bool {
	return f.err.ok && f.elements.ok && f.storage.ok && f.fingerprint.ok && f.buckets.ok
}

func (f *Cuckoo) infer() {
	for pass := 0; pass < 8 && !f.solved(); pass++ {
		// fingerprint from storage+elements: bits each stored cell may
		// spend at the target utilization, floored
		if !f.fingerprint.ok && f.elements.ok && f.storage.ok {
			f.fingerprint = known(math.Floor(f.storage.val * f.util / f.elements.val))
		}
		// fingerprint from the requested error, ceiling'd and at least
		// one bit wide (a loose error against few probed cells can push
		// the log term to zero or below). Fixing the integer width
		// changes the achievable error, drop it and recompute below.
		if !f.fingerprint.ok && f.err.ok {
			w := math.Ceil(math.Log2(f.util * f.slots * f.hashes / f.err.val))
			if w < 1 {
				w = 1
			}
			f.fingerprint = known(w)
			f.err = opt{}
		}
		if f.fingerprint.ok {
			// achieved false positive rate of the integer width: one
			// fingerprint collides with probability 2^-w, a query
			// inspects slots*hashes cells at utilization util
			if !f.err.ok {
				okOne := 1 - math.Pow(2, -f.fingerprint.val)
				f.err = known(1 - math.Pow(okOne, f.slots*f.hashes*f.util))
			}
			// buckets needed for the elements, ceiling'd
			if !f.buckets.ok && f.elements.ok {
				cells := math.Ceil(f.elements.val / f.util)
				f.buckets = known(math.Ceil(cells / f.slots))
			}
			// buckets the storage can hold, floored
			if !f.buckets.ok && f.storage.ok {
				cells := math.Floor(f.storage.val / f.fingerprint.val)
				f.buckets = known(math.Floor(cells / f.slots))
			}
			if !f.storage.ok && f.buckets.ok {
				f.storage = known(f.buckets.val * f.slots * f.fingerprint.val)
			}
		}
		// elements the buckets hold at the target utilization, floored
		if !f.elements.ok && f.buckets.ok {
			f.elements = known(math.Floor(f.buckets.val * f.slots * f.util))
		}
	}
}

func (f *Cuckoo) Constraint() Constraint { return f.constraint }

func (f *Cuckoo) Error() (float64, bool) { return f.err.float() }

func (f *Cuckoo) Elements() (uint64, bool) { return f.elements.uint() }

func (f *Cuckoo) Storage() (uint64, bool) { return f.storage.uint() }

// Fingerprint is the per-element signature width in bits.
func (f *Cuckoo) Fingerprint() (uint64, bool) { return f.fingerprint.uint() }

// Buckets is the number of fixed-capacity buckets in the table.
func (f *Cuckoo) Buckets() (uint64, bool) { return f.buckets.uint() }

func (f *Cuckoo) Slots() uint64 { return uint64(f.slots) }

func (f *Cuckoo) Util() float64 { return f.util }

// SortedSavings reports the average bits saved per cell by partial-sort
// compression, when enabled. Informational only, the sizing formulas
// above do not account for it.
func (f *Cuckoo) SortedSavings() (float64, bool) { return f.save, f.sorted }

func (f *Cuckoo) BitsPerElement() (float64, bool) {
	if f.constraint != Resolved || !f.storage.ok || !f.elements.ok {
		return 0, false
	}
	return f.storage.val / f.elements.val, true
}
