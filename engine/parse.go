package engine

import (
	"fmt"
	"math/bits"
	"regexp"
	"strconv"
	"strings"
)

// Operator input parsing. The contract with the form is that a blank
// field means "not constrained" (nil, nil) while a malformed field is a
// parse failure - the two must render differently.

var (
	errorRe    = regexp.MustCompile(`^([\d.]+)\s*(%)?$`)
	elementsRe = regexp.MustCompile(`^(\d+)\s*([KMGT])?$`)
	storageRe  = regexp.MustCompile(`^(\d+)\s*([KMGT](?:iB|B|b)?)?$`)
)

// ParseError parses a false positive rate, plain ("0.001") or percent
// ("0.1%"). The rate must lie strictly between 0 and 1.
func ParseError(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	m := errorRe.FindStringSubmatch(s)
	if m == nil {
		return nil, fmt.Errorf("malformed rate %q", s)
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil, fmt.Errorf("malformed rate %q", s)
	}
	if m[2] == "%" {
		f /= 100
	}
	if f <= 0 || f >= 1 {
		return nil, fmt.Errorf("rate %v out of range (0,1)", f)
	}
	return &f, nil
}

// ParseElements parses an element count with an optional K/M/G/T
// (x1000^n) suffix.
func ParseElements(s string) (*uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	m := elementsRe.FindStringSubmatch(s)
	if m == nil {
		return nil, fmt.Errorf("malformed count %q", s)
	}
	n, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed count %q", s)
	}
	var mul uint64 = 1
	switch m[2] {
	case "K":
		mul = 1e3
	case "M":
		mul = 1e6
	case "G":
		mul = 1e9
	case "T":
		mul = 1e12
	}
	v, err := mulCheck(n, mul)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ParseStorage parses a storage budget in bits. Bare suffixes and "b"
// suffixes (K, Kb, ...) are SI-decimal bits, "B" suffixes (KB, ...) are
// SI-decimal bytes and "iB" suffixes (KiB, ...) are binary bytes.
func ParseStorage(s string) (*uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	m := storageRe.FindStringSubmatch(s)
	if m == nil {
		return nil, fmt.Errorf("malformed size %q", s)
	}
	n, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed size %q", s)
	}
	var mul uint64 = 1
	switch m[2] {
	case "":
	// SI bits
	case "K", "Kb":
		mul = 1e3
	case "M", "Mb":
		mul = 1e6
	case "G", "Gb":
		mul = 1e9
	case "T", "Tb":
		mul = 1e12
	// SI bytes
	case "KB":
		mul = 8 * 1e3
	case "MB":
		mul = 8 * 1e6
	case "GB":
		mul = 8 * 1e9
	case "TB":
		mul = 8 * 1e12
	// binary bytes
	case "KiB":
		mul = 8 << 10
	case "MiB":
		mul = 8 << 20
	case "GiB":
		mul = 8 << 30
	case "TiB":
		mul = 8 << 40
	}
	v, err := mulCheck(n, mul)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func mulCheck(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, fmt.Errorf("%d overflows the unit multiplier", a)
	}
	return lo, nil
}
