package server

import (
	"math"
	"strconv"

	"github.com/c2h5oh/datasize"
	"github.com/dustin/go-humanize"
	"github.com/jpillora/probset/engine"
)

// Request is the raw form state as entered by the operator. The three
// primaries stay strings so that blank and malformed fields can be told
// apart; hyperparameter overrides are optional and fall back to the
// configured defaults.
type Request struct {
	Error    string `json:"error"`
	Elements string `json:"elements"`
	Storage  string `json:"storage"`

	BloomHashes  *uint64  `json:"bloomHashes,omitempty"`
	CuckooHashes *uint64  `json:"cuckooHashes,omitempty"`
	CuckooSlots  *uint64  `json:"cuckooSlots,omitempty"`
	CuckooUtil   *float64 `json:"cuckooUtil,omitempty"`
	CuckooSorted *bool    `json:"cuckooSorted,omitempty"`
}

// View is one solver's resolved set rendered for display. An empty
// string is an unresolved field and renders blank, never as an error.
type View struct {
	Error          string `json:"error,omitempty"`
	Elements       string `json:"elements,omitempty"`
	Storage        string `json:"storage,omitempty"`
	StorageBits    string `json:"storageBits,omitempty"`
	BitsPerElement string `json:"bitsPerElement,omitempty"`
	Hashes         string `json:"hashes,omitempty"`
	Fingerprint    string `json:"fingerprint,omitempty"`
	Buckets        string `json:"buckets,omitempty"`
	SortedSavings  string `json:"sortedSavings,omitempty"`
}

// Resolution ties the operator's inputs to the three rendered outputs.
type Resolution struct {
	Inputs Request `json:"inputs"`
	// per-field parse failures, keyed by field name. A key being absent
	// means the field was blank or parsed fine.
	Fields     map[string]string `json:"fieldErrors,omitempty"`
	Constraint string            `json:"constraint"`
	Theory     View              `json:"theory"`
	Bloom      View              `json:"bloom"`
	Cuckoo     View              `json:"cuckoo"`
}

// resolve feeds the parsed constraints into all three solvers. The
// solvers never fail: gated or partially resolved sets simply come back
// with blanks.
func (s *Server) resolve(req Request) Resolution {
	res := Resolution{Inputs: req}
	fields := map[string]string{}
	var cons engine.Constraints
	if v, err := engine.ParseError(req.Error); err != nil {
		fields["error"] = err.Error()
	} else {
		cons.Error = v
	}
	if v, err := engine.ParseElements(req.Elements); err != nil {
		fields["elements"] = err.Error()
	} else {
		cons.Elements = v
	}
	if v, err := engine.ParseStorage(req.Storage); err != nil {
		fields["storage"] = err.Error()
	} else {
		cons.Storage = v
	}
	if len(fields) > 0 {
		// a typo'd field must not resolve as if it were blank, so a
		// parse failure suppresses the whole set
		res.Fields = fields
		cons = engine.Constraints{}
	}

	//overlay request overrides on the configured defaults, clamped the
	//same way the config file is
	s.state.Lock()
	conf := s.state.Config
	s.state.Unlock()
	if req.BloomHashes != nil {
		conf.BloomHashes = *req.BloomHashes
	}
	if req.CuckooHashes != nil {
		conf.CuckooHashes = *req.CuckooHashes
	}
	if req.CuckooSlots != nil {
		conf.CuckooSlots = *req.CuckooSlots
	}
	if req.CuckooUtil != nil {
		conf.CuckooUtil = *req.CuckooUtil
	}
	if req.CuckooSorted != nil {
		conf.CuckooSorted = *req.CuckooSorted
	}
	conf.Normalize()

	th := engine.NewTheory(cons)
	bl := engine.NewBloom(cons, conf.ForcedHashes())
	ck := engine.NewCuckoo(cons, conf.Cuckoo())

	res.Constraint = th.Constraint().String()
	res.Theory = baseView(th)
	res.Bloom = bloomView(bl)
	res.Cuckoo = cuckooView(ck)
	return res
}

func baseView(p engine.Params) View {
	var v View
	if e, ok := p.Error(); ok {
		v.Error = fmtError(e)
	}
	if n, ok := p.Elements(); ok {
		v.Elements = fmtCount(n)
	}
	if b, ok := p.Storage(); ok {
		v.StorageBits = fmtCount(b)
		v.Storage = datasize.ByteSize(b / 8).HumanReadable()
	}
	if bpe, ok := p.BitsPerElement(); ok {
		v.BitsPerElement = strconv.FormatFloat(bpe, 'f', 3, 64)
	}
	return v
}

func bloomView(b *engine.Bloom) View {
	v := baseView(b)
	if h, ok := b.Hashes(); ok {
		v.Hashes = strconv.FormatUint(h, 10)
	}
	return v
}

func cuckooView(f *engine.Cuckoo) View {
	v := baseView(f)
	if fp, ok := f.Fingerprint(); ok {
		v.Fingerprint = strconv.FormatUint(fp, 10)
	}
	if bk, ok := f.Buckets(); ok {
		v.Buckets = fmtCount(bk)
	}
	if save, ok := f.SortedSavings(); ok {
		v.SortedSavings = strconv.FormatFloat(save, 'f', 3, 64)
	}
	return v
}

func fmtError(e float64) string {
	return strconv.FormatFloat(e, 'g', 6, 64)
}

func fmtCount(n uint64) string {
	if n > math.MaxInt64 {
		return strconv.FormatUint(n, 10)
	}
	return humanize.Comma(int64(n))
}
