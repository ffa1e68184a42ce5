// Package confidence debounces the per-frame marker stream into a stable
// active scenario.
//
// Every known scenario identifier carries a streak counter. A frame in which
// the identifier is visible increments it; any other frame resets it to zero.
// The identifier with the highest counter at or above Threshold becomes
// active. When nothing qualifies the previous active identifier is kept, so
// a brief occlusion of the board does not flicker back to "no scenario".
package confidence

import (
	"sort"
)

// DefaultThreshold is the number of consecutive visible frames an
// identifier needs before it can become active.
const DefaultThreshold = 3

// Config holds voter tunables
type Config struct {
	Threshold int

	// StaleAfter clears the sticky active identifier after this many
	// consecutive frames in which nothing qualifies. Zero keeps it forever.
	StaleAfter int
}

// DefaultConfig returns the reference tuning
func DefaultConfig() Config {
	return Config{Threshold: DefaultThreshold}
}

// Voter holds the confidence table for one AR session.
// It is not safe for concurrent use; the owning session serialises access.
type Voter struct {
	config Config

	ids     []int // known identifiers, ascending
	counter map[int]int

	active    int
	hasActive bool
	idle      int // consecutive frames without a qualifying id
}

// New creates a voter over the given known identifiers. Duplicates are
// ignored. Iteration is always in ascending id order.
func New(cfg Config, known []int) *Voter {
	if cfg.Threshold < 1 {
		cfg.Threshold = DefaultThreshold
	}

	v := &Voter{
		config:  cfg,
		counter: make(map[int]int, len(known)),
	}
	for _, id := range known {
		if _, dup := v.counter[id]; dup {
			continue
		}
		v.counter[id] = 0
		v.ids = append(v.ids, id)
	}
	sort.Ints(v.ids)
	return v
}

// Update feeds one frame's visible identifiers and returns the (possibly
// unchanged) active identifier. Visible ids that are not known are ignored.
// The work is proportional to the number of known ids so that every
// invisible identifier is reliably zeroed.
func (v *Voter) Update(visible map[int]bool) (int, bool) {
	for _, id := range v.ids {
		if visible[id] {
			v.counter[id]++
		} else {
			v.counter[id] = 0
		}
	}

	best, bestCount := 0, 0
	found := false
	for _, id := range v.ids {
		c := v.counter[id]
		// strictly greater over ascending ids: lowest id wins ties
		if c >= v.config.Threshold && c > bestCount {
			best, bestCount = id, c
			found = true
		}
	}

	if found {
		v.active = best
		v.hasActive = true
		v.idle = 0
		return v.active, true
	}

	v.idle++
	if v.config.StaleAfter > 0 && v.idle >= v.config.StaleAfter {
		v.hasActive = false
		v.active = 0
	}
	return v.active, v.hasActive
}

// UpdateIDs is Update for a slice of visible ids.
func (v *Voter) UpdateIDs(visible []int) (int, bool) {
	set := make(map[int]bool, len(visible))
	for _, id := range visible {
		set[id] = true
	}
	return v.Update(set)
}

// Active returns the current active identifier
func (v *Voter) Active() (int, bool) {
	return v.active, v.hasActive
}

// Count returns the streak counter of id; unknown ids report zero
func (v *Voter) Count(id int) int {
	return v.counter[id]
}

// Known reports whether id is tracked by the table
func (v *Voter) Known(id int) bool {
	_, ok := v.counter[id]
	return ok
}

// Snapshot returns a copy of the confidence table
func (v *Voter) Snapshot() map[int]int {
	out := make(map[int]int, len(v.counter))
	for id, c := range v.counter {
		out[id] = c
	}
	return out
}

// Reset zeroes every counter and clears the active identifier
func (v *Voter) Reset() {
	for id := range v.counter {
		v.counter[id] = 0
	}
	v.active = 0
	v.hasActive = false
	v.idle = 0
}
