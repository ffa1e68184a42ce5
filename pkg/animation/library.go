package animation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/automatar/internal/log"
)

// Library is the in-memory catalog of animations, grouped by marker tag.
// It is safe for concurrent use; loads run off the tick path.
type Library struct {
	mu       sync.RWMutex
	all      []Animation
	byID     map[string]int
	byMarker map[int][]int // tag -> indexes into all, catalog order
	loaded   bool
	loadedAt time.Time
	lastErr  error
	log      *slog.Logger
}

// NewLibrary creates an empty, not-yet-loaded library
func NewLibrary() *Library {
	return &Library{
		byID:     make(map[string]int),
		byMarker: make(map[int][]int),
		log:      log.With("component", "animation.library"),
	}
}

// Load fetches every record from src and replaces the catalog.
// Rows that fail to decode are skipped. On error the previous catalog is
// kept and the library stays in whatever loaded state it had.
func (l *Library) Load(ctx context.Context, src Source) error {
	if src == nil {
		return ErrNoSource
	}

	rows, err := src.ListAnimations(ctx)
	if err != nil {
		l.mu.Lock()
		l.lastErr = err
		l.mu.Unlock()
		return fmt.Errorf("load animations: %w", err)
	}

	anims := make([]Animation, 0, len(rows))
	for _, r := range rows {
		a, err := Decode(r)
		if err != nil {
			l.log.Warn("skipping animation row", "error", err)
			continue
		}
		anims = append(anims, a)
	}

	l.Replace(anims)
	l.log.Info("animations loaded", "count", len(anims), "markers", l.MarkerCount())
	return nil
}

// Replace installs anims as the catalog and marks the library loaded
func (l *Library) Replace(anims []Animation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.all = make([]Animation, 0, len(anims))
	l.byID = make(map[string]int, len(anims))
	l.byMarker = make(map[int][]int)

	for _, a := range anims {
		if _, dup := l.byID[a.ID]; dup {
			continue
		}
		idx := len(l.all)
		l.all = append(l.all, a)
		l.byID[a.ID] = idx
		for _, tag := range a.Tags {
			l.byMarker[tag] = append(l.byMarker[tag], idx)
		}
	}
	l.loaded = true
	l.loadedAt = time.Now()
	l.lastErr = nil
}

// Clear drops the cached catalog and returns to the not-loaded state
func (l *Library) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.all = nil
	l.byID = make(map[string]int)
	l.byMarker = make(map[int][]int)
	l.loaded = false
	l.loadedAt = time.Time{}
}

// Loaded reports whether a load has completed since the last Clear
func (l *Library) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded
}

// LoadedAt returns when the catalog was last installed
func (l *Library) LoadedAt() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loadedAt
}

// LastError returns the error of the most recent failed load
func (l *Library) LastError() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastErr
}

// Candidates returns the animations tagged with marker id, in catalog order
func (l *Library) Candidates(markerID int) []Animation {
	l.mu.RLock()
	defer l.mu.RUnlock()

	idx := l.byMarker[markerID]
	out := make([]Animation, 0, len(idx))
	for _, i := range idx {
		out = append(out, l.all[i])
	}
	return out
}

// CandidateCount returns len(Candidates(markerID)) without copying
func (l *Library) CandidateCount(markerID int) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.byMarker[markerID])
}

// Get returns the animation with the given id
func (l *Library) Get(id string) (Animation, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.byID[id]
	if !ok {
		return Animation{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return l.all[i], nil
}

// All returns every animation in catalog order
func (l *Library) All() []Animation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Animation, len(l.all))
	copy(out, l.all)
	return out
}

// Len returns the number of cached animations
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.all)
}

// MarkerCount returns the number of distinct tags in the catalog
func (l *Library) MarkerCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.byMarker)
}

// MultiMarkers returns how many tags have more than one candidate
func (l *Library) MultiMarkers() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, idx := range l.byMarker {
		if len(idx) > 1 {
			n++
		}
	}
	return n
}
