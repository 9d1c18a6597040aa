//go:build !cgo || !hyperscan

package pattern

import "regexp"

// newPatternSet on a non-cgo or non-hyperscan-tagged build returns a pure
// regexp.Regexp loop: each pattern is tested in order and the first match
// wins. Externally identical to the Hyperscan-backed set (lowest index
// wins), just O(n) per line instead of one scan.
func newPatternSet(expanded []string) (PatternSet, error) {
	regexes := make([]*regexp.Regexp, len(expanded))
	for i, e := range expanded {
		re, err := regexp.Compile(e)
		if err != nil {
			return nil, err
		}
		regexes[i] = re
	}
	return &fallbackSet{regexes: regexes}, nil
}

type fallbackSet struct {
	regexes []*regexp.Regexp
}

func (s *fallbackSet) Match(line string) (int, bool) {
	for i, re := range s.regexes {
		if re.MatchString(line) {
			return i, true
		}
	}
	return 0, false
}

func (s *fallbackSet) Close() error { return nil }
