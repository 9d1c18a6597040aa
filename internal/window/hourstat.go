// Package window implements the per-IP sliding-window hit counter
// (spec §3 "HourStat", §4.3).
package window

// HourStat holds 60 per-minute counters for a single anchor hour. It is the
// bounded, O(1)-per-hit datum stored per IP in an ipstats LRU.
type HourStat struct {
	anchorHour uint8
	minutes    [60]uint32
}

// NewHourStat creates a HourStat seeded with a single hit.
func NewHourStat(hour, minute uint8) *HourStat {
	h := &HourStat{anchorHour: hour}
	h.minutes[minute] = 1
	return h
}

// absDiff is the unsigned absolute difference used throughout spec §4.3 to
// decide whether two hours are "close enough" to share counters.
func absDiff(a, b uint8) uint8 {
	if a >= b {
		return a - b
	}
	return b - a
}

// Record adds n to the bucket for minute, resetting all 60 counters first if
// hour has drifted more than 1 away from the current anchor (spec §4.3).
func (h *HourStat) Record(hour, minute uint8, n uint32) {
	if absDiff(h.anchorHour, hour) > 1 {
		h.minutes = [60]uint32{}
	}
	h.anchorHour = hour
	h.minutes[minute] += n
}

// WindowSum returns the sum of the trailing w one-minute buckets ending at
// minute, within the current anchor hour. If hour has drifted more than 1
// away from the anchor, the stat is considered stale and 0 is returned
// without consulting any bucket (spec §4.3).
//
// The wrap from minute-i is purely numeric modulo 60: it never reaches into
// a different anchor hour's counts even across a real 59→00 rollover. This
// is the same "same-hour ring buffer" approximation as the original
// implementation — see DESIGN.md Open Questions for why it is kept as-is.
func (h *HourStat) WindowSum(hour, minute uint8, w uint8) uint32 {
	if absDiff(h.anchorHour, hour) > 1 {
		return 0
	}
	var total uint32
	for i := uint8(0); i < w; i++ {
		var idx uint8
		if minute >= i {
			idx = minute - i
		} else {
			idx = 60 + minute - i
		}
		total += h.minutes[idx]
	}
	return total
}

// AnchorHour reports the hour this stat currently represents, for tests and
// diagnostics.
func (h *HourStat) AnchorHour() uint8 { return h.anchorHour }
