package animation

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/teslashibe/automatar/pkg/kvstore"
	"github.com/teslashibe/automatar/pkg/marker"
)

// PreferencesKey is the durable namespace of the marker -> animation map
const PreferencesKey = "automatAR_animationPreferences"

// Preferences maps marker id to the chosen animation id. The in-memory map
// is authoritative; Save mirrors it to the store.
type Preferences struct {
	mu    sync.RWMutex
	store kvstore.Store
	m     map[int]string
}

// NewPreferences creates an empty preference map backed by store.
// A nil store keeps preferences in memory only.
func NewPreferences(store kvstore.Store) *Preferences {
	return &Preferences{store: store, m: make(map[int]string)}
}

// Load replaces the in-memory map with the stored one. A missing key is an
// empty map. Entries whose key is not an integral marker id are dropped.
func (p *Preferences) Load() error {
	if p.store == nil {
		return nil
	}

	data, err := p.store.Get(PreferencesKey)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			p.mu.Lock()
			p.m = make(map[int]string)
			p.mu.Unlock()
			return nil
		}
		return fmt.Errorf("load preferences: %w", err)
	}

	m, err := decodePreferences(data)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.m = m
	p.mu.Unlock()
	return nil
}

func decodePreferences(data []byte) (map[int]string, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse preferences: %w", err)
	}
	m := make(map[int]string, len(raw))
	for k, v := range raw {
		id, ok := marker.NormalizeID(k)
		if !ok {
			continue
		}
		if anim := IDString(v); anim != "" {
			m[id] = anim
		}
	}
	return m, nil
}

// Save writes the current map to the store
func (p *Preferences) Save() error {
	if p.store == nil {
		return nil
	}

	p.mu.RLock()
	out := make(map[string]string, len(p.m))
	for id, anim := range p.m {
		out[strconv.Itoa(id)] = anim
	}
	p.mu.RUnlock()

	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}
	if err := p.store.Set(PreferencesKey, data); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}

// Get returns the preferred animation id for marker id
func (p *Preferences) Get(markerID int) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.m[markerID]
	return v, ok
}

// Set records a preference in memory
func (p *Preferences) Set(markerID int, animationID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.m[markerID] = animationID
}

// Delete removes a preference from memory, reporting whether one existed
func (p *Preferences) Delete(markerID int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.m[markerID]
	delete(p.m, markerID)
	return ok
}

// Markers returns the marker ids with a stored preference, ascending
func (p *Preferences) Markers() []int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]int, 0, len(p.m))
	for id := range p.m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// All returns a copy of the map
func (p *Preferences) All() map[int]string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[int]string, len(p.m))
	for k, v := range p.m {
		out[k] = v
	}
	return out
}

// Len returns the number of stored preferences
func (p *Preferences) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.m)
}
