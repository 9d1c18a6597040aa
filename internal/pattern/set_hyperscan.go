//go:build cgo && hyperscan

package pattern

import (
	"fmt"

	"github.com/flier/gohs/hyperscan"
)

// newPatternSet on a cgo build tagged "hyperscan" compiles every expanded
// regex into a single hyperscan.BlockDatabase and scans a line in one pass,
// the direct analogue of the original Rust implementation's
// regex::RegexSet. Capture-group extraction still happens afterwards
// through the individual pattern's regexp.Regexp (see Detector.Detect) —
// Hyperscan itself reports match/no-match per pattern ID, nothing more.
func newPatternSet(expanded []string) (PatternSet, error) {
	patterns := make([]*hyperscan.Pattern, len(expanded))
	for i, e := range expanded {
		p := hyperscan.NewPattern(e, 0)
		p.Id = i
		patterns[i] = p
	}

	db, err := hyperscan.NewBlockDatabase(patterns...)
	if err != nil {
		return nil, fmt.Errorf("compiling hyperscan database: %w", err)
	}

	scratch, err := hyperscan.NewScratch(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("allocating hyperscan scratch: %w", err)
	}

	return &hyperscanSet{db: db, scratch: scratch}, nil
}

type hyperscanSet struct {
	db      hyperscan.BlockDatabase
	scratch *hyperscan.Scratch
}

// Match scans line once and keeps the lowest pattern ID that fired — the
// spec's "stable tie-break" (spec §3, "on a hit, the lowest-indexed matching
// pattern wins").
func (s *hyperscanSet) Match(line string) (int, bool) {
	best := -1
	onMatch := func(id uint, from, to uint64, flags uint, context interface{}) error {
		if best == -1 || int(id) < best {
			best = int(id)
		}
		return nil
	}

	if err := s.db.Scan([]byte(line), s.scratch, onMatch, nil); err != nil {
		return 0, false
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}

func (s *hyperscanSet) Close() error {
	if s.scratch != nil {
		if err := s.scratch.Free(); err != nil {
			return err
		}
		s.scratch = nil
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return err
		}
		s.db = nil
	}
	return nil
}
