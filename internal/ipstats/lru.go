// Package ipstats holds the bounded per-observer IP → HourStat mapping
// (spec §3 "Per-Observer IP Statistics"). Each observer's tailer owns one
// Store exclusively — there is no locking because nothing else ever touches
// it (spec §5).
package ipstats

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/arn-sec/sentryd/internal/window"
)

// Capacity is the fixed per-observer bound from spec §3: "bounded LRU...
// capacity 5000 per observer."
const Capacity = 5000

// Store is a least-recently-touched-eviction cache of window.HourStat
// keyed by IPv4 address, bounded to Capacity entries.
type Store struct {
	cache *lru.Cache[[4]byte, *window.HourStat]
}

// NewStore builds a Store with the spec-mandated capacity.
func NewStore() *Store {
	// lru.New only errors when size <= 0; Capacity is a positive constant.
	c, _ := lru.New[[4]byte, *window.HourStat](Capacity)
	return &Store{cache: c}
}

// Get returns the HourStat for ip, touching it as most-recently-used.
func (s *Store) Get(ip [4]byte) (*window.HourStat, bool) {
	return s.cache.Get(ip)
}

// Put inserts or replaces the HourStat for ip, possibly evicting the least
// recently touched entry if the store is at Capacity.
func (s *Store) Put(ip [4]byte, stat *window.HourStat) {
	s.cache.Add(ip, stat)
}

// Remove evicts ip immediately — used when an IP crosses the jail threshold
// so it starts from zero on its next activity (spec §4.4 step 3).
func (s *Store) Remove(ip [4]byte) {
	s.cache.Remove(ip)
}

// Len reports the current number of tracked IPs, always <= Capacity
// (spec §8 invariant).
func (s *Store) Len() int {
	return s.cache.Len()
}
