// Package ar runs one augmented-reality session: it turns the per-frame
// marker stream into a sticky active scenario, resolves and plays marker
// animations, and falls back to static model placement.
//
// Every entry point (Tick, user commands, timer callbacks) holds the session
// mutex, so the session behaves as a single logical writer.
package ar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/automatar/internal/log"
	"github.com/teslashibe/automatar/pkg/animation"
	"github.com/teslashibe/automatar/pkg/confidence"
	"github.com/teslashibe/automatar/pkg/kvstore"
	"github.com/teslashibe/automatar/pkg/marker"
	"github.com/teslashibe/automatar/pkg/overlay"
	"github.com/teslashibe/automatar/pkg/render"
	"github.com/teslashibe/automatar/pkg/scenario"
)

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("ar: session closed")

// Config holds session tunables
type Config struct {
	Voter confidence.Config

	// ExtraIDs are voted on in addition to the catalog's identifier tags
	ExtraIDs []int

	Overlay        overlay.Config
	TickInterval   time.Duration
	ReopenDelay    time.Duration
	NoticeDuration time.Duration
}

// DefaultConfig returns the reference tuning: threshold 3, ids 6-31 on top
// of the scenario tags, 300ms menu reopen delay.
func DefaultConfig() Config {
	extra := make([]int, 0, 26)
	for id := 6; id <= 31; id++ {
		extra = append(extra, id)
	}
	return Config{
		Voter:          confidence.DefaultConfig(),
		ExtraIDs:       extra,
		Overlay:        overlay.DefaultConfig(),
		TickInterval:   33 * time.Millisecond,
		ReopenDelay:    300 * time.Millisecond,
		NoticeDuration: animation.DefaultNoticeDuration,
	}
}

// Deps are the collaborators of a session. Only Catalog is required.
type Deps struct {
	Catalog   *scenario.Catalog
	Library   *animation.Library
	Source    animation.Source
	Store     kvstore.Store
	Presenter animation.Presenter
	Display   render.Display
	Renderer  render.Renderer
	Scheduler overlay.Scheduler
	Detector  marker.Detector
	Clock     func() time.Time
	Logger    *slog.Logger
}

// Session owns all mutable state of one AR run.
type Session struct {
	mu sync.Mutex

	id       string
	cfg      Config
	catalog  *scenario.Catalog
	voter    *confidence.Voter
	lib      *animation.Library
	prefs    *animation.Preferences
	resolver *animation.Resolver
	overlays *overlay.Manager
	tasks    *overlay.Registry
	sched    overlay.Scheduler
	source   animation.Source
	renderer render.Renderer
	detector marker.Detector

	status       Status
	frames       uint64
	modelsPlaced int
	started      bool
	closed       bool

	loadCtx    context.Context
	loadCancel context.CancelFunc
	loads      sync.WaitGroup

	log *slog.Logger
}

// New creates a session. Start must be called before ticking.
func New(cfg Config, deps Deps) (*Session, error) {
	if deps.Catalog == nil {
		return nil, errors.New("ar: scenario catalog required")
	}
	if deps.Library == nil {
		deps.Library = animation.NewLibrary()
	}
	if deps.Presenter == nil {
		deps.Presenter = animation.NopPresenter{}
	}
	if deps.Display == nil || deps.Renderer == nil {
		rec := render.NewRecorder()
		if deps.Display == nil {
			deps.Display = rec
		}
		if deps.Renderer == nil {
			deps.Renderer = rec
		}
	}
	if deps.Scheduler == nil {
		deps.Scheduler = overlay.RealScheduler{}
	}
	if deps.Logger == nil {
		deps.Logger = log.L()
	}
	if cfg.ReopenDelay <= 0 {
		cfg.ReopenDelay = 300 * time.Millisecond
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 33 * time.Millisecond
	}

	id := uuid.NewString()
	logger := deps.Logger.With("component", "ar.session", "session", id[:8])

	known := append(deps.Catalog.IdentifierTags(), cfg.ExtraIDs...)

	opts := []animation.Option{
		animation.WithNoticeDuration(cfg.NoticeDuration),
		animation.WithLogger(logger),
	}
	if deps.Clock != nil {
		opts = append(opts, animation.WithClock(deps.Clock))
	}

	s := &Session{
		id:       id,
		cfg:      cfg,
		catalog:  deps.Catalog,
		voter:    confidence.New(cfg.Voter, known),
		lib:      deps.Library,
		prefs:    animation.NewPreferences(deps.Store),
		tasks:    overlay.NewRegistry(),
		sched:    deps.Scheduler,
		source:   deps.Source,
		renderer: deps.Renderer,
		detector: deps.Detector,
		log:      logger,
	}
	s.resolver = animation.NewResolver(s.lib, s.prefs, deps.Presenter, opts...)
	s.overlays = overlay.NewManager(cfg.Overlay, deps.Display, s.sched, s.tasks, &s.mu)
	s.status = Status{SessionID: id, Markers: []MarkerStatus{}}
	s.status.describe()
	return s, nil
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// Start loads stored preferences and begins the catalog load in the
// background. Ticks before the load completes resolve to no animation.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.started {
		return nil
	}
	s.started = true

	if err := s.prefs.Load(); err != nil {
		s.log.Warn("preferences not loaded", "error", err)
	} else {
		s.log.Info("preferences loaded", "count", s.prefs.Len())
	}

	s.loadCtx, s.loadCancel = context.WithCancel(ctx)
	if s.source != nil && !s.lib.Loaded() {
		s.loadAsync()
	}

	s.log.Info("session started", "known_ids", len(s.voter.Snapshot()), "scenarios", s.catalog.Len())
	return nil
}

// loadAsync must be called with mu held
func (s *Session) loadAsync() {
	ctx := s.loadCtx
	s.loads.Add(1)
	go func() {
		defer s.loads.Done()
		if err := s.lib.Load(ctx, s.source); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Warn("animation catalog unavailable", "error", err)
		}
	}()
}

// Tick processes one frame's detections in order: stop overlays of vanished
// markers, vote, then per visible marker start or move its overlay or place
// a fallback model, and finally publish the status line.
func (s *Session) Tick(markers []marker.Marker) Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.status
	}
	s.frames++

	visible := marker.Index(markers)
	ordered := marker.Dedupe(markers)

	s.overlays.StopMissing(visible)

	ids := make(map[int]bool, len(visible))
	for id := range visible {
		ids[id] = true
	}
	active, hasActive := s.voter.Update(ids)

	var activeScenario *scenario.Scenario
	if hasActive {
		if sc, err := s.catalog.Get(active); err == nil {
			activeScenario = &sc
		}
	}

	if s.modelsPlaced > 0 {
		s.renderer.ClearModels()
		s.modelsPlaced = 0
	}

	vp := s.overlays.Viewport()
	statuses := make([]MarkerStatus, 0, len(ordered))
	for _, m := range ordered {
		st := MarkerStatus{ID: m.ID, Kind: KindNone}

		res := s.resolver.Resolve(m.ID)
		if res.Animation != nil {
			if !s.overlays.Reposition(m) {
				s.overlays.Start(m, *res.Animation)
			}
			st.Kind = KindAnimation
			st.Candidates = res.Candidates
			st.Provisional = res.Provisional
			if cur, ok := s.overlays.Get(m.ID); ok {
				st.Animation = cur.Animation.Name
				st.AnimationID = cur.Animation.ID
			}
			statuses = append(statuses, st)
			continue
		}

		if model, ok := s.fallbackModel(m.ID, activeScenario); ok {
			p := vp.PlacementFor(m, model)
			if activeScenario != nil {
				p.Scenario = activeScenario.IdentifierTag
			}
			s.renderer.PlaceModel(p)
			s.modelsPlaced++
			st.Kind = KindModel
			st.Model = model
		}
		statuses = append(statuses, st)
	}

	s.status = Status{
		SessionID:     s.id,
		Frame:         s.frames,
		Markers:       statuses,
		Overlays:      s.overlays.Len(),
		Animations:    s.lib.Len(),
		LibraryLoaded: s.lib.Loaded(),
	}
	if activeScenario != nil {
		s.status.ActiveScenario = &ScenarioInfo{Tag: activeScenario.IdentifierTag, Name: activeScenario.Name}
	}
	s.status.describe()
	return s.status
}

// fallbackModel looks up the direct model map first, then the active
// scenario's objects.
func (s *Session) fallbackModel(id int, active *scenario.Scenario) (string, bool) {
	if model, ok := s.catalog.DirectModel(id); ok {
		return model, true
	}
	if active != nil {
		return active.ObjectModel(id)
	}
	return "", false
}

// Select stores the user's choice for a marker and stops its overlay so
// the next tick starts the chosen animation.
func (s *Session) Select(markerID int, animationID string) (animation.Animation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return animation.Animation{}, ErrClosed
	}
	a, err := s.resolver.Select(markerID, animationID)
	if err != nil {
		return animation.Animation{}, err
	}
	s.overlays.Stop(markerID)
	return a, nil
}

func reopenKey(markerID int) string {
	return fmt.Sprintf("reopen:%d", markerID)
}

// ResetPreference forgets the choice for a marker, stops its overlay and,
// when the marker has several candidates, reopens the menu after the
// configured delay.
func (s *Session) ResetPreference(markerID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	multi := s.resolver.ResetPreference(markerID)
	s.overlays.Stop(markerID)
	if !multi {
		return nil
	}

	key := reopenKey(markerID)
	var gen uint64
	cancel := s.sched.After(s.cfg.ReopenDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		// a later reset re-registered the key; its own task reopens
		if s.closed || !s.tasks.Release(key, gen) {
			return
		}
		s.resolver.OpenMenu(markerID)
	})
	gen = s.tasks.Register(key, cancel)
	return nil
}

// CloseMenu hides the selection menu
func (s *Session) CloseMenu() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolver.CloseMenu()
}

// Menu returns the open selection menu
func (s *Session) Menu() (animation.Menu, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolver.CurrentMenu()
}

// Refresh stops every overlay, drops the cached catalog and reloads it.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	src := s.source
	if src == nil {
		s.mu.Unlock()
		return animation.ErrNoSource
	}
	s.overlays.StopAll()
	s.resolver.Reset()
	s.lib.Clear()
	s.mu.Unlock()

	if err := s.lib.Load(ctx, src); err != nil {
		return err
	}
	s.log.Info("animation catalog refreshed", "count", s.lib.Len())
	return nil
}

// SetViewport updates the detector-to-display projection
func (s *Session) SetViewport(vp render.Viewport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overlays.SetViewport(vp)
}

// SetDisplaySize changes only the display side of the projection
func (s *Session) SetDisplaySize(width, height float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vp := s.overlays.Viewport()
	vp.DisplayWidth, vp.DisplayHeight = width, height
	s.overlays.SetViewport(vp)
}

// SetSourceSize changes only the detector side of the projection
func (s *Session) SetSourceSize(width, height float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vp := s.overlays.Viewport()
	if vp.SourceWidth == width && vp.SourceHeight == height {
		return
	}
	vp.SourceWidth, vp.SourceHeight = width, height
	s.overlays.SetViewport(vp)
}

// Viewport returns the current projection
func (s *Session) Viewport() render.Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlays.Viewport()
}

// Settings returns the preference overview
func (s *Session) Settings() animation.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolver.Settings()
}

// Status returns the status of the last tick
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status
	st.Markers = append([]MarkerStatus(nil), s.status.Markers...)
	return st
}

// ActiveScenario returns the sticky active scenario
func (s *Session) ActiveScenario() (scenario.Scenario, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.voter.Active()
	if !ok {
		return scenario.Scenario{}, false
	}
	sc, err := s.catalog.Get(id)
	if err != nil {
		return scenario.Scenario{IdentifierTag: id}, true
	}
	return sc, true
}

// Catalog returns the scenario catalog
func (s *Session) Catalog() *scenario.Catalog {
	return s.catalog
}

// Library returns the animation catalog
func (s *Session) Library() *animation.Library {
	return s.lib
}

// Closed reports whether Close has run
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Preferences returns the stored marker choices
func (s *Session) Preferences() map[int]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs.All()
}

// PendingTasks returns the number of registered timers
func (s *Session) PendingTasks() int {
	return s.tasks.Len()
}

// Close cancels every timer, removes every overlay surface and resets the
// confidence table. It waits for an in-flight catalog load to return.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true

	s.tasks.CancelAll()
	s.overlays.StopAll()
	s.voter.Reset()
	s.resolver.CloseMenu()
	if s.modelsPlaced > 0 {
		s.renderer.ClearModels()
		s.modelsPlaced = 0
	}
	if s.loadCancel != nil {
		s.loadCancel()
	}
	s.mu.Unlock()

	s.loads.Wait()
	s.log.Info("session closed", "frames", s.frames)
	return nil
}
