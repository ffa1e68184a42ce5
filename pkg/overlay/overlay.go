// Package overlay plays 2D animations over markers. Each animating marker
// owns a display surface and a repeating frame-advance task registered in a
// Registry, so every timer can be found and cancelled.
package overlay

import (
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/teslashibe/automatar/internal/log"
	"github.com/teslashibe/automatar/pkg/animation"
	"github.com/teslashibe/automatar/pkg/marker"
	"github.com/teslashibe/automatar/pkg/render"
)

// State is the playback state of one animating marker
type State struct {
	Animation  animation.Animation
	FrameIndex int
	Marker     marker.Marker
}

type entry struct {
	State
	surface render.Surface
	gen     uint64
}

// Config holds overlay tunables
type Config struct {
	Size     float64
	Viewport render.Viewport
}

// DefaultConfig returns a 200px overlay with a 1:1 viewport
func DefaultConfig() Config {
	return Config{Size: render.DefaultOverlaySize}
}

// Manager owns every active overlay.
//
// All methods except the task callbacks must be called with lock held; the
// callbacks acquire it themselves, so lock is normally the session mutex.
type Manager struct {
	cfg     Config
	display render.Display
	sched   Scheduler
	reg     *Registry
	lock    sync.Locker

	overlays map[int]*entry
	gen      uint64

	log *slog.Logger
}

// NewManager creates a manager. lock guards callbacks against the caller's
// own state; pass the mutex the caller holds around Start/Stop/Reposition.
func NewManager(cfg Config, display render.Display, sched Scheduler, reg *Registry, lock sync.Locker) *Manager {
	if cfg.Size <= 0 {
		cfg.Size = render.DefaultOverlaySize
	}
	if sched == nil {
		sched = RealScheduler{}
	}
	if reg == nil {
		reg = NewRegistry()
	}
	return &Manager{
		cfg:      cfg,
		display:  display,
		sched:    sched,
		reg:      reg,
		lock:     lock,
		overlays: make(map[int]*entry),
		log:      log.With("component", "overlay"),
	}
}

// TaskKey is the registry key of a marker's frame-advance task
func TaskKey(markerID int) string {
	return fmt.Sprintf("overlay:%d", markerID)
}

// SetViewport updates the detector-to-display projection
func (m *Manager) SetViewport(vp render.Viewport) {
	m.cfg.Viewport = vp
}

// Viewport returns the current projection
func (m *Manager) Viewport() render.Viewport {
	return m.cfg.Viewport
}

// Start begins playback of a for marker mk. It renders frame 0 at once and
// schedules frame advance at the animation's frame rate. It returns false
// if the marker already has an overlay.
func (m *Manager) Start(mk marker.Marker, a animation.Animation) bool {
	if _, ok := m.overlays[mk.ID]; ok {
		return false
	}

	m.gen++
	e := &entry{
		State:   State{Animation: a, Marker: mk},
		surface: m.display.CreateSurface(mk.ID),
		gen:     m.gen,
	}
	m.overlays[mk.ID] = e

	e.surface.Move(m.rect(mk))
	if len(a.Frames) == 0 {
		m.log.Debug("overlay has no frames", "marker", mk.ID, "animation", a.ID)
		return true
	}
	m.show(e)

	id, gen := mk.ID, e.gen
	cancel := m.sched.Every(a.Period(), func() { m.advance(id, gen) })
	m.reg.Register(TaskKey(id), cancel)

	m.log.Debug("overlay started", "marker", id, "animation", a.ID, "frames", len(a.Frames), "period", a.Period())
	return true
}

func (m *Manager) advance(markerID int, gen uint64) {
	m.lock.Lock()
	defer m.lock.Unlock()

	e, ok := m.overlays[markerID]
	if !ok || e.gen != gen {
		return
	}
	e.FrameIndex = (e.FrameIndex + 1) % len(e.Animation.Frames)
	m.show(e)
}

func (m *Manager) show(e *entry) {
	u := e.Animation.Frames[e.FrameIndex].URL
	if !ValidURL(u) {
		return
	}
	e.surface.Show(u)
}

// Reposition moves the marker's overlay to its latest pose
func (m *Manager) Reposition(mk marker.Marker) bool {
	e, ok := m.overlays[mk.ID]
	if !ok {
		return false
	}
	e.Marker = mk
	e.surface.Move(m.rect(mk))
	return true
}

func (m *Manager) rect(mk marker.Marker) render.Rect {
	return m.cfg.Viewport.Centered(mk.Center(), m.cfg.Size)
}

// Stop cancels the marker's task and then removes its surface
func (m *Manager) Stop(markerID int) bool {
	e, ok := m.overlays[markerID]
	if !ok {
		return false
	}
	m.reg.Cancel(TaskKey(markerID))
	delete(m.overlays, markerID)
	e.surface.Remove()
	m.log.Debug("overlay stopped", "marker", markerID)
	return true
}

// StopMissing stops every overlay whose marker is not in visible
func (m *Manager) StopMissing(visible map[int]marker.Marker) []int {
	var stopped []int
	for _, id := range m.IDs() {
		if _, ok := visible[id]; !ok {
			m.Stop(id)
			stopped = append(stopped, id)
		}
	}
	return stopped
}

// StopAll stops every overlay
func (m *Manager) StopAll() {
	for _, id := range m.IDs() {
		m.Stop(id)
	}
}

// Active reports whether markerID has an overlay
func (m *Manager) Active(markerID int) bool {
	_, ok := m.overlays[markerID]
	return ok
}

// Get returns a copy of the marker's playback state
func (m *Manager) Get(markerID int) (State, bool) {
	e, ok := m.overlays[markerID]
	if !ok {
		return State{}, false
	}
	return e.State, true
}

// IDs returns the animating marker ids, ascending
func (m *Manager) IDs() []int {
	ids := make([]int, 0, len(m.overlays))
	for id := range m.overlays {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Len returns the number of active overlays
func (m *Manager) Len() int {
	return len(m.overlays)
}

// ValidURL reports whether a frame URL can be rendered
func ValidURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "http", "https":
		return u.Host != ""
	case "data", "blob":
		return true
	case "":
		return u.Path != ""
	default:
		return false
	}
}
