// Package engine sizes probabilistic membership filters. It contains
// three independent solvers - Theory, Bloom and Cuckoo - each a pure
// function from a partial set of constraints (false positive rate,
// element count, storage budget in bits) to a resolved parameter set.
// Supply any two of the three primaries and the solver infers the rest,
// rounding in the direction that keeps the stated budget or bound
// honored. The solvers only size a filter, they never build one.
package engine

import "math"

// opt is an optional quantity. The zero value is unknown.
type opt struct {
	val float64
	ok  bool
}

func known(v float64) opt { return opt{val: v, ok: true} }

func (o opt) float() (float64, bool) {
	return o.val, o.ok
}

// uint truncates towards zero. Non-finite or negative values report
// unknown rather than wrapping.
func (o opt) uint() (uint64, bool) {
	if !o.ok || math.IsNaN(o.val) || math.IsInf(o.val, 0) || o.val < 0 {
		return 0, false
	}
	return uint64(o.val), true
}

// Constraints are the operator supplied primaries. A nil field means the
// operator left it blank. Error, when set, must lie in the open interval
// (0,1); rejecting out of range values is the caller's job (see
// ParseError). Storage is measured in bits.
type Constraints struct {
	Error    *float64
	Elements *uint64
	Storage  *uint64
}

func (c Constraints) opts() (err, elements, storage opt) {
	if c.Error != nil {
		err = known(*c.Error)
	}
	if c.Elements != nil {
		elements = known(float64(*c.Elements))
	}
	if c.Storage != nil {
		storage = known(float64(*c.Storage))
	}
	return
}

func (c Constraints) gate() Constraint {
	n := 0
	if c.Error != nil {
		n++
	}
	if c.Elements != nil {
		n++
	}
	if c.Storage != nil {
		n++
	}
	switch n {
	case 2:
		return Resolved
	case 3:
		return Overconstrained
	}
	return Underconstrained
}

// Constraint is the outcome of the constraint gate. Inference only runs
// when exactly two primaries are supplied; anything else echoes the
// inputs back untouched. Neither case is an error, flagging them to the
// operator is the presentation layer's job.
type Constraint int

const (
	Underconstrained Constraint = iota
	Resolved
	Overconstrained
)

func (c Constraint) String() string {
	switch c {
	case Resolved:
		return "resolved"
	case Overconstrained:
		return "overconstrained"
	}
	return "underconstrained"
}

// Params is the read side common to all three solvers.
type Params interface {
	Constraint() Constraint
	Error() (float64, bool)
	Elements() (uint64, bool)
	Storage() (uint64, bool)
	BitsPerElement() (float64, bool)
}

// ln2sq is ln(2)^2, the constant tying storage, elements and error
// together in the classical bloom identities.
const ln2sq = math.Ln2 * math.Ln2
