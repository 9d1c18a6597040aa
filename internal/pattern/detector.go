package pattern

import (
	"net"
	"strconv"
)

// Result is what a successful detect() call recovers from a line (spec §4.2).
type Result struct {
	Hour   uint8
	Minute uint8
	IP     [4]byte
}

// PatternSet tests a line against every pattern in a single pass and reports
// the lowest-indexed matching pattern, if any. Two implementations exist —
// see set_hyperscan.go and set_fallback.go — selected by build tags so a
// cgo-free build still works.
type PatternSet interface {
	// Match returns the index into the original patterns slice of the
	// lowest-indexed pattern matching line, and ok=false if none match.
	Match(line string) (index int, ok bool)
	Close() error
}

// Detector matches a line against a compiled observer's patterns and
// extracts (hour, minute, ip) from the winning one (spec §4.2).
type Detector struct {
	patterns []*Compiled
	set      PatternSet
}

// NewDetector builds a Detector over already-compiled patterns. Patterns
// must be non-empty.
func NewDetector(patterns []*Compiled) (*Detector, error) {
	expanded := make([]string, len(patterns))
	for i, p := range patterns {
		expanded[i] = p.Expanded
	}
	set, err := newPatternSet(expanded)
	if err != nil {
		return nil, err
	}
	return &Detector{patterns: patterns, set: set}, nil
}

// Close releases any resources held by the underlying pattern set (the
// Hyperscan backend holds a compiled database and scratch space).
func (d *Detector) Close() error { return d.set.Close() }

// Detect tests line against the pattern set and, on a match, extracts and
// validates (hour, minute, ip). Any parse failure or out-of-range value
// yields no result (spec §4.2: "silently ignored, not an error").
func (d *Detector) Detect(line string) (Result, bool) {
	idx, ok := d.set.Match(line)
	if !ok {
		return Result{}, false
	}

	p := d.patterns[idx]
	caps := p.Regex.FindStringSubmatch(line)
	if caps == nil {
		return Result{}, false
	}

	hour, ok := parseBoundedUint8(groupAt(caps, p.PosHour), 23)
	if !ok {
		return Result{}, false
	}
	minute, ok := parseBoundedUint8(groupAt(caps, p.PosMinute), 59)
	if !ok {
		return Result{}, false
	}
	ip, ok := parseIPv4(groupAt(caps, p.PosIP))
	if !ok {
		return Result{}, false
	}

	return Result{Hour: hour, Minute: minute, IP: ip}, true
}

func groupAt(caps []string, pos int) string {
	if pos < 0 || pos >= len(caps) {
		return ""
	}
	return caps[pos]
}

func parseBoundedUint8(s string, max uint8) (uint8, bool) {
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil || uint8(n) > max {
		return 0, false
	}
	return uint8(n), true
}

func parseIPv4(s string) ([4]byte, bool) {
	ip := net.ParseIP(s)
	if ip == nil {
		return [4]byte{}, false
	}
	v4 := ip.To4()
	if v4 == nil {
		return [4]byte{}, false
	}
	return [4]byte{v4[0], v4[1], v4[2], v4[3]}, true
}
