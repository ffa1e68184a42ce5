package ar

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/teslashibe/automatar/internal/log"
	"github.com/teslashibe/automatar/pkg/animation"
	"github.com/teslashibe/automatar/pkg/kvstore"
	"github.com/teslashibe/automatar/pkg/marker"
	"github.com/teslashibe/automatar/pkg/overlay"
	"github.com/teslashibe/automatar/pkg/render"
	"github.com/teslashibe/automatar/pkg/scenario"
)

type harness struct {
	s         *Session
	rec       *render.Recorder
	sched     *overlay.ManualScheduler
	presenter *animation.MockPresenter
	store     *kvstore.MemoryStore
	lib       *animation.Library
}

func testCatalog(t *testing.T) *scenario.Catalog {
	t.Helper()
	c, err := scenario.New([]scenario.Scenario{
		{IdentifierTag: 0, Name: "Cam-A", Objects: []scenario.Object{{Tag: 6, ModelPath: "ray.stl"}}},
		{IdentifierTag: 1, Name: "Cam-C", Objects: []scenario.Object{{Tag: 6, ModelPath: "jelly.stl"}}},
	}, map[int]string{20: "direct.stl"})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return c
}

func testAnimations() []animation.Animation {
	return []animation.Animation{
		{ID: "A", Name: "Alpha", Tags: []int{5}, Frames: []animation.Frame{{URL: "https://cdn/a0.png"}}},
		{ID: "B", Name: "Beta", Tags: []int{5}, Frames: []animation.Frame{{URL: "https://cdn/b0.png"}}},
		{ID: "solo", Name: "Solo", Tags: []int{7}, Frames: []animation.Frame{
			{URL: "https://cdn/s0.png"},
			{URL: "https://cdn/s1.png"},
		}},
	}
}

type harnessOpt func(*Deps)

func newHarness(t *testing.T, anims []animation.Animation, opts ...harnessOpt) *harness {
	t.Helper()

	h := &harness{
		rec:       render.NewRecorder(),
		sched:     overlay.NewManualScheduler(),
		presenter: animation.NewMockPresenter(),
		store:     kvstore.NewMemoryStore(),
		lib:       animation.NewLibrary(),
	}
	if anims != nil {
		h.lib.Replace(anims)
	}

	deps := Deps{
		Catalog:   testCatalog(t),
		Library:   h.lib,
		Store:     h.store,
		Presenter: h.presenter,
		Display:   h.rec,
		Renderer:  h.rec,
		Scheduler: h.sched,
		Logger:    log.Discard(),
	}
	for _, o := range opts {
		o(&deps)
	}

	s, err := New(DefaultConfig(), deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	h.s = s
	return h
}

func mk(id int, x float64) marker.Marker {
	return marker.Marker{ID: id, Corners: [4]marker.Point{
		{X: x, Y: 10}, {X: x + 20, Y: 10}, {X: x + 20, Y: 30}, {X: x, Y: 30},
	}}
}

func TestTick_HugeFrameRate(t *testing.T) {
	fast := animation.Animation{
		ID: "fast", Name: "Fast", Tags: []int{9},
		Frames:   []animation.Frame{{URL: "https://cdn/f0.png"}, {URL: "https://cdn/f1.png"}},
		Metadata: animation.Metadata{FrameRate: 5e9},
	}
	h := newHarness(t, []animation.Animation{fast}, func(d *Deps) {
		d.Scheduler = overlay.RealScheduler{}
	})

	st := h.s.Tick([]marker.Marker{mk(9, 0)})
	if len(st.Markers) != 1 || st.Markers[0].Kind != KindAnimation {
		t.Fatalf("markers = %+v", st.Markers)
	}
	if st.Overlays != 1 {
		t.Errorf("overlays = %d, want 1", st.Overlays)
	}
}

func TestNew_RequiresCatalog(t *testing.T) {
	if _, err := New(DefaultConfig(), Deps{}); err == nil {
		t.Error("expected error without catalog")
	}
}

func TestTick_ActiveScenarioAfterThreshold(t *testing.T) {
	h := newHarness(t, []animation.Animation{})

	for i := 1; i <= 2; i++ {
		st := h.s.Tick([]marker.Marker{mk(0, 0), mk(6, 100)})
		if st.ActiveScenario != nil {
			t.Fatalf("tick %d: active too early: %+v", i, st.ActiveScenario)
		}
	}
	if n := h.rec.Count("place", 6); n != 0 {
		t.Fatalf("object placed before a scenario was active: %d", n)
	}

	// 0 and 6 tie at three frames; the lowest id wins
	st := h.s.Tick([]marker.Marker{mk(0, 0), mk(6, 100)})
	if st.ActiveScenario == nil || st.ActiveScenario.Tag != 0 {
		t.Fatalf("active = %+v, want tag 0", st.ActiveScenario)
	}
	if n := h.rec.Count("place", 6); n != 1 {
		t.Fatalf("place count = %d, want 1", n)
	}
	events := h.rec.Events()
	last := events[len(events)-1]
	if last.Placement.ModelPath != "ray.stl" || last.Placement.Scenario != 0 {
		t.Errorf("placement = %+v", last.Placement)
	}

	// scenario is sticky while its marker is gone
	st = h.s.Tick(nil)
	if st.ActiveScenario == nil || st.ActiveScenario.Tag != 0 {
		t.Errorf("active after marker loss = %+v, want sticky 0", st.ActiveScenario)
	}
	if sc, ok := h.s.ActiveScenario(); !ok || sc.Name != "Cam-A" {
		t.Errorf("ActiveScenario() = %+v, %v", sc, ok)
	}
}

func TestTick_DirectModel(t *testing.T) {
	h := newHarness(t, []animation.Animation{})

	st := h.s.Tick([]marker.Marker{mk(20, 0)})
	if len(st.Markers) != 1 || st.Markers[0].Kind != KindModel || st.Markers[0].Model != "direct.stl" {
		t.Fatalf("markers = %+v", st.Markers)
	}
	if h.rec.Count("clear", -1) != 0 {
		t.Error("nothing to clear on first tick")
	}

	h.s.Tick([]marker.Marker{mk(20, 5)})
	if h.rec.Count("clear", -1) != 1 {
		t.Errorf("clear count = %d, want 1", h.rec.Count("clear", -1))
	}
	if h.rec.Count("place", 20) != 2 {
		t.Errorf("place count = %d, want 2", h.rec.Count("place", 20))
	}
}

func TestTick_OverlayPlayback(t *testing.T) {
	h := newHarness(t, testAnimations())

	st := h.s.Tick([]marker.Marker{mk(7, 0)})
	if st.Markers[0].Kind != KindAnimation || st.Markers[0].AnimationID != "solo" {
		t.Fatalf("status = %+v", st.Markers[0])
	}
	if h.rec.Count("create", 7) != 1 || h.rec.Count("show", 7) != 1 {
		t.Fatalf("create=%d show=%d, want 1/1", h.rec.Count("create", 7), h.rec.Count("show", 7))
	}

	// default 2 fps: one frame per 500ms, wrapping around
	h.sched.Advance(500 * time.Millisecond)
	h.sched.Advance(500 * time.Millisecond)
	var shown []string
	for _, e := range h.rec.Events() {
		if e.Op == "show" {
			shown = append(shown, e.URL)
		}
	}
	want := []string{"https://cdn/s0.png", "https://cdn/s1.png", "https://cdn/s0.png"}
	if len(shown) != len(want) {
		t.Fatalf("shown = %v, want %v", shown, want)
	}
	for i := range want {
		if shown[i] != want[i] {
			t.Errorf("frame %d = %q, want %q", i, shown[i], want[i])
		}
	}

	moves := h.rec.Count("move", 7)
	h.s.Tick([]marker.Marker{mk(7, 40)})
	if h.rec.Count("create", 7) != 1 {
		t.Error("visible marker must not restart its overlay")
	}
	if h.rec.Count("move", 7) != moves+1 {
		t.Error("overlay not repositioned")
	}

	h.s.Tick(nil)
	if h.rec.Live(7) != 0 {
		t.Error("overlay survived marker loss")
	}
	if h.sched.Pending() != 0 {
		t.Errorf("pending tasks = %d, want 0", h.sched.Pending())
	}
}

func TestTick_MultipleCandidates(t *testing.T) {
	h := newHarness(t, testAnimations())

	st := h.s.Tick([]marker.Marker{mk(5, 0)})
	m := st.Markers[0]
	if !m.Provisional || m.Candidates != 2 || m.AnimationID != "A" {
		t.Fatalf("status = %+v", m)
	}
	h.s.Tick([]marker.Marker{mk(5, 0)})
	if n := h.presenter.CallCount("ShowMenu"); n != 1 {
		t.Fatalf("ShowMenu calls = %d, want 1", n)
	}

	if _, err := h.s.Select(5, "B"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if h.rec.Live(5) != 0 {
		t.Error("select must stop the current overlay")
	}
	if got := h.s.Preferences()[5]; got != "B" {
		t.Errorf("preference = %q, want B", got)
	}
	if _, err := h.store.Get(animation.PreferencesKey); err != nil {
		t.Errorf("preference not persisted: %v", err)
	}

	st = h.s.Tick([]marker.Marker{mk(5, 0)})
	if st.Markers[0].AnimationID != "B" || st.Markers[0].Provisional {
		t.Errorf("after select = %+v", st.Markers[0])
	}

	if _, err := h.s.Select(5, "missing"); !errors.Is(err, animation.ErrUnknownAnimation) {
		t.Errorf("Select(missing) error = %v", err)
	}
}

// lateScheduler hands out cancels that cannot stop an already-due callback
type lateScheduler struct {
	after []func()
}

func (l *lateScheduler) Every(time.Duration, func()) overlay.Cancel { return func() {} }

func (l *lateScheduler) After(_ time.Duration, fn func()) overlay.Cancel {
	l.after = append(l.after, fn)
	return func() {}
}

func TestResetPreference_StaleReopenKeepsNewerTask(t *testing.T) {
	late := &lateScheduler{}
	h := newHarness(t, testAnimations(), func(d *Deps) { d.Scheduler = late })

	if err := h.s.ResetPreference(5); err != nil {
		t.Fatal(err)
	}
	if err := h.s.ResetPreference(5); err != nil {
		t.Fatal(err)
	}
	if len(late.after) != 2 {
		t.Fatalf("scheduled %d reopen callbacks, want 2", len(late.after))
	}

	// the first callback was already due when the second reset replaced it
	late.after[0]()
	if h.presenter.CallCount("ShowMenu") != 0 {
		t.Error("stale callback reopened the menu")
	}
	if h.s.PendingTasks() != 1 {
		t.Fatalf("pending = %d, newer reopen task was dropped", h.s.PendingTasks())
	}

	late.after[1]()
	if h.presenter.CallCount("ShowMenu") != 1 {
		t.Errorf("ShowMenu calls = %d, want 1", h.presenter.CallCount("ShowMenu"))
	}
	if h.s.PendingTasks() != 0 {
		t.Errorf("pending = %d after reopen", h.s.PendingTasks())
	}
}

func TestResetPreference_ReopensMenu(t *testing.T) {
	store := kvstore.NewMemoryStore()
	if err := store.Set(animation.PreferencesKey, []byte(`{"5":"B"}`)); err != nil {
		t.Fatal(err)
	}
	h := newHarness(t, testAnimations(), func(d *Deps) { d.Store = store })

	st := h.s.Tick([]marker.Marker{mk(5, 0)})
	if st.Markers[0].AnimationID != "B" {
		t.Fatalf("stored preference ignored: %+v", st.Markers[0])
	}
	if h.presenter.CallCount("ShowMenu") != 0 {
		t.Fatal("menu opened despite valid preference")
	}

	if err := h.s.ResetPreference(5); err != nil {
		t.Fatalf("ResetPreference: %v", err)
	}
	if h.rec.Live(5) != 0 {
		t.Error("reset must stop the overlay")
	}
	if h.s.PendingTasks() != 1 {
		t.Fatalf("pending = %d, want reopen task", h.s.PendingTasks())
	}

	h.sched.Advance(299 * time.Millisecond)
	if h.presenter.CallCount("ShowMenu") != 0 {
		t.Fatal("menu reopened early")
	}
	h.sched.Advance(time.Millisecond)
	if h.presenter.CallCount("ShowMenu") != 1 {
		t.Errorf("ShowMenu calls = %d, want 1", h.presenter.CallCount("ShowMenu"))
	}
	if h.s.PendingTasks() != 0 {
		t.Errorf("reopen task not forgotten")
	}
	if _, ok := h.s.Preferences()[5]; ok {
		t.Error("preference not removed")
	}
}

func TestResetPreference_SingleCandidate(t *testing.T) {
	h := newHarness(t, testAnimations())
	if err := h.s.ResetPreference(7); err != nil {
		t.Fatal(err)
	}
	if h.s.PendingTasks() != 0 {
		t.Error("single candidate marker must not schedule a reopen")
	}
}

func TestNoToastBeforeLoad(t *testing.T) {
	h := newHarness(t, nil)

	h.s.Tick([]marker.Marker{mk(5, 0)})
	if n := h.presenter.CallCount("Notify"); n != 0 {
		t.Errorf("Notify before load = %d, want 0", n)
	}

	h.lib.Replace([]animation.Animation{})
	h.s.Tick([]marker.Marker{mk(5, 0)})
	h.s.Tick([]marker.Marker{mk(5, 0)})
	if n := h.presenter.CallCount("Notify"); n != 1 {
		t.Errorf("Notify after load = %d, want 1", n)
	}
}

func TestRefresh(t *testing.T) {
	src := &animation.MockSource{Rows: []animation.Row{{
		ID:         "fresh",
		Name:       "Fresh",
		MarkerTags: []any{7},
		FrameURLs:  []animation.FrameRow{{URL: "https://cdn/f0.png"}},
	}}}
	h := newHarness(t, testAnimations(), func(d *Deps) { d.Source = src })

	h.s.Tick([]marker.Marker{mk(7, 0)})
	if h.rec.Live(7) != 1 {
		t.Fatal("overlay not started")
	}

	if err := h.s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if h.rec.Live(7) != 0 {
		t.Error("refresh must stop all overlays")
	}
	if src.Calls() != 1 {
		t.Errorf("source calls = %d, want 1", src.Calls())
	}

	st := h.s.Tick([]marker.Marker{mk(7, 0)})
	if st.Markers[0].AnimationID != "fresh" {
		t.Errorf("after refresh = %+v", st.Markers[0])
	}
}

func TestRefresh_NoSource(t *testing.T) {
	h := newHarness(t, testAnimations())
	if err := h.s.Refresh(context.Background()); !errors.Is(err, animation.ErrNoSource) {
		t.Errorf("Refresh() error = %v, want ErrNoSource", err)
	}
	if !h.s.Library().Loaded() {
		t.Error("library should stay loaded when there is no source")
	}
}

func TestClose_Teardown(t *testing.T) {
	h := newHarness(t, testAnimations())

	h.s.Tick([]marker.Marker{mk(5, 0), mk(7, 50), mk(20, 100)})
	if err := h.s.ResetPreference(5); err != nil {
		t.Fatal(err)
	}
	if h.rec.LiveTotal() == 0 || h.sched.Pending() == 0 {
		t.Fatal("expected live overlays and timers before close")
	}

	if err := h.s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if h.sched.Pending() != 0 {
		t.Errorf("pending timers = %d, want 0", h.sched.Pending())
	}
	if h.rec.LiveTotal() != 0 {
		t.Errorf("live surfaces = %d, want 0", h.rec.LiveTotal())
	}
	if _, ok := h.s.ActiveScenario(); ok {
		t.Error("voter not reset")
	}

	before := len(h.rec.Events())
	h.s.Tick([]marker.Marker{mk(7, 0)})
	if len(h.rec.Events()) != before {
		t.Error("tick after close touched the display")
	}
	if _, err := h.s.Select(5, "A"); !errors.Is(err, ErrClosed) {
		t.Errorf("Select after close = %v", err)
	}
	if err := h.s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

type scriptedDetector struct {
	results [][]marker.Marker
	errs    []error
	calls   int
}

func (d *scriptedDetector) Detect([]byte) ([]marker.Marker, error) {
	i := d.calls
	d.calls++
	return d.results[i], d.errs[i]
}

func (d *scriptedDetector) Close() error { return nil }

type sliceSource struct {
	n int
}

func (s *sliceSource) Next(ctx context.Context) (Frame, error) {
	if s.n == 0 {
		return Frame{}, io.EOF
	}
	s.n--
	return Frame{JPEG: []byte{0xFF, 0xD8}, Width: 640, Height: 480}, nil
}

func TestRun_SkipsFailedDetection(t *testing.T) {
	det := &scriptedDetector{
		results: [][]marker.Marker{{mk(20, 0)}, nil, {mk(20, 0)}},
		errs:    []error{nil, errors.New("decode failed"), nil},
	}
	h := newHarness(t, testAnimations(), func(d *Deps) { d.Detector = det })

	var ticks int
	err := h.s.Run(context.Background(), &sliceSource{n: 3}, func(Frame, Status) { ticks++ })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if det.calls != 3 {
		t.Errorf("detect calls = %d, want 3", det.calls)
	}
	if ticks != 2 {
		t.Errorf("ticks = %d, want 2", ticks)
	}
	if h.s.Status().Frame != 2 {
		t.Errorf("frame = %d, want 2", h.s.Status().Frame)
	}
	if vp := h.s.Viewport(); vp.SourceWidth != 640 || vp.SourceHeight != 480 {
		t.Errorf("viewport = %+v", vp)
	}
}

func TestRun_NoDetector(t *testing.T) {
	h := newHarness(t, testAnimations())
	if err := h.s.Run(context.Background(), &sliceSource{}, nil); !errors.Is(err, ErrNoDetector) {
		t.Errorf("Run() error = %v", err)
	}
}

func TestStatus_Describe(t *testing.T) {
	h := newHarness(t, testAnimations())

	st := h.s.Status()
	if st.Title != "No markers detected" {
		t.Errorf("idle title = %q", st.Title)
	}

	st = h.s.Tick([]marker.Marker{mk(5, 0), mk(20, 50)})
	if st.Title != "Alpha (2 available) - ID: 5, Model: direct.stl (ID: 20)" {
		t.Errorf("title = %q", st.Title)
	}
	want := "Displaying 1 animation(s) and 1 3D model(s) • 1 marker(s) have multiple animations • 3 animations cached"
	if st.Description != want {
		t.Errorf("description = %q, want %q", st.Description, want)
	}
}
