package render

import "sync"

// Event is one recorded display call
type Event struct {
	Op        string // create, show, move, remove, place, clear
	MarkerID  int
	URL       string
	Rect      Rect
	Placement Placement
}

// Recorder implements Display and Renderer for testing and records every
// call. It also tracks which surfaces are still alive.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	live   map[int]int // marker id -> live surface count
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{live: make(map[int]int)}
}

func (r *Recorder) add(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// CreateSurface records the creation and returns a recording surface
func (r *Recorder) CreateSurface(markerID int) Surface {
	r.mu.Lock()
	r.live[markerID]++
	r.mu.Unlock()
	r.add(Event{Op: "create", MarkerID: markerID})
	return &recSurface{rec: r, id: markerID}
}

// PlaceModel records the placement
func (r *Recorder) PlaceModel(p Placement) {
	r.add(Event{Op: "place", MarkerID: p.MarkerID, Placement: p})
}

// ClearModels records the call
func (r *Recorder) ClearModels() {
	r.add(Event{Op: "clear"})
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many events match op and marker id; id < 0 matches any
func (r *Recorder) Count(op string, markerID int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Op == op && (markerID < 0 || e.MarkerID == markerID) {
			n++
		}
	}
	return n
}

// Live returns the number of surfaces for markerID not yet removed
func (r *Recorder) Live(markerID int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live[markerID]
}

// LiveTotal returns the number of surfaces not yet removed
func (r *Recorder) LiveTotal() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.live {
		n += c
	}
	return n
}

// Reset clears recorded events, keeping surface liveness
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type recSurface struct {
	rec     *Recorder
	id      int
	removed bool
}

func (s *recSurface) Show(url string) {
	s.rec.add(Event{Op: "show", MarkerID: s.id, URL: url})
}

func (s *recSurface) Move(r Rect) {
	s.rec.add(Event{Op: "move", MarkerID: s.id, Rect: r})
}

func (s *recSurface) Remove() {
	if s.removed {
		return
	}
	s.removed = true
	s.rec.mu.Lock()
	s.rec.live[s.id]--
	if s.rec.live[s.id] == 0 {
		delete(s.rec.live, s.id)
	}
	s.rec.mu.Unlock()
	s.rec.add(Event{Op: "remove", MarkerID: s.id})
}

// Ensure Recorder implements both interfaces
var (
	_ Display  = (*Recorder)(nil)
	_ Renderer = (*Recorder)(nil)
)
