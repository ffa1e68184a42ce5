package animation

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/automatar/internal/log"
)

// DefaultNoticeDuration is how long a toast stays up, and the minimum gap
// between two "no animation" toasts for the same marker.
const DefaultNoticeDuration = 2 * time.Second

// Resolution is the outcome of resolving one marker
type Resolution struct {
	// Animation to play, nil when the marker has no candidates
	Animation *Animation

	// Candidates is the number of animations tagged with the marker
	Candidates int

	// Provisional is set when several candidates exist and no valid
	// preference picked one; Animation is then the first candidate.
	Provisional bool

	// MenuOpened is set when this call opened the selection menu
	MenuOpened bool
}

// Resolver decides which animation plays for a marker.
// It is not safe for concurrent use; the owning session serialises access.
type Resolver struct {
	lib       *Library
	prefs     *Preferences
	presenter Presenter

	now        func() time.Time
	noticeTTL  time.Duration
	lastNotice map[int]time.Time

	menu *Menu // nil when closed

	log *slog.Logger
}

// Option configures a Resolver
type Option func(*Resolver)

// WithClock overrides time.Now, for notice rate limiting in tests
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// WithNoticeDuration sets the toast lifetime
func WithNoticeDuration(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.noticeTTL = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// NewResolver creates a resolver over lib and prefs. A nil presenter
// discards menu and toast output.
func NewResolver(lib *Library, prefs *Preferences, presenter Presenter, opts ...Option) *Resolver {
	if presenter == nil {
		presenter = NopPresenter{}
	}
	r := &Resolver{
		lib:        lib,
		prefs:      prefs,
		presenter:  presenter,
		now:        time.Now,
		noticeTTL:  DefaultNoticeDuration,
		lastNotice: make(map[int]time.Time),
		log:        log.With("component", "animation.resolver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Library returns the catalog the resolver reads
func (r *Resolver) Library() *Library {
	return r.lib
}

// Preferences returns the preference map
func (r *Resolver) Preferences() *Preferences {
	return r.prefs
}

// Resolve picks the animation for a visible marker. With zero candidates it
// shows a "no animation" toast and returns no animation; with one it returns
// it; with several a still-valid preference wins, otherwise the selection
// menu opens and the first candidate plays provisionally.
func (r *Resolver) Resolve(markerID int) Resolution {
	candidates := r.lib.Candidates(markerID)
	res := Resolution{Candidates: len(candidates)}

	switch len(candidates) {
	case 0:
		r.notifyMissing(markerID)
		return res
	case 1:
		res.Animation = &candidates[0]
		return res
	}

	if pref, ok := r.validPreference(markerID, candidates); ok {
		res.Animation = &pref
		return res
	}

	res.Provisional = true
	res.Animation = &candidates[0]
	if !r.MenuOpenFor(markerID) {
		r.openMenu(markerID, candidates)
		res.MenuOpened = true
	}
	return res
}

// Select records animationID as the choice for markerID. The menu stays
// open with the new selection highlighted. A persistence failure is logged;
// the in-memory choice still applies.
func (r *Resolver) Select(markerID int, animationID string) (Animation, error) {
	candidates := r.lib.Candidates(markerID)
	if len(candidates) == 0 {
		return Animation{}, fmt.Errorf("%w: %d", ErrNoCandidates, markerID)
	}

	var chosen *Animation
	for i := range candidates {
		if candidates[i].ID == animationID {
			chosen = &candidates[i]
			break
		}
	}
	if chosen == nil {
		return Animation{}, fmt.Errorf("%w: marker %d, animation %s", ErrUnknownAnimation, markerID, animationID)
	}

	r.prefs.Set(markerID, animationID)
	if err := r.prefs.Save(); err != nil {
		r.log.Warn("preference not persisted", "marker", markerID, "error", err)
	}

	if r.MenuOpenFor(markerID) {
		r.menu.Selected = animationID
		r.presenter.UpdateMenuSelection(markerID, animationID)
	}

	r.presenter.Notify(NewNotification(KindSuccess, markerID,
		fmt.Sprintf("Selected %q for marker %d", chosen.Name, markerID), r.noticeTTL))

	r.log.Info("animation selected", "marker", markerID, "animation", animationID, "name", chosen.Name)
	return *chosen, nil
}

// ResetPreference forgets the choice for markerID. It reports whether the
// marker has several candidates, in which case the caller reopens the menu.
func (r *Resolver) ResetPreference(markerID int) bool {
	existed := r.prefs.Delete(markerID)
	if err := r.prefs.Save(); err != nil {
		r.log.Warn("preference reset not persisted", "marker", markerID, "error", err)
	}
	r.log.Info("preference reset", "marker", markerID, "existed", existed)
	return r.lib.CandidateCount(markerID) > 1
}

// OpenMenu shows the selection menu for markerID if it has several
// candidates and the menu is not already open for it.
func (r *Resolver) OpenMenu(markerID int) bool {
	candidates := r.lib.Candidates(markerID)
	if len(candidates) <= 1 || r.MenuOpenFor(markerID) {
		return false
	}
	r.openMenu(markerID, candidates)
	return true
}

func (r *Resolver) openMenu(markerID int, candidates []Animation) {
	selected := candidates[0].ID
	if pref, ok := r.validPreference(markerID, candidates); ok {
		selected = pref.ID
	}
	m := buildMenu(markerID, candidates, selected)
	r.menu = &m
	r.presenter.ShowMenu(m)
	r.log.Debug("selection menu opened", "marker", markerID, "options", len(candidates))
}

// CloseMenu hides the selection menu
func (r *Resolver) CloseMenu() {
	if r.menu == nil {
		return
	}
	r.menu = nil
	r.presenter.HideMenu()
}

// MenuOpenFor reports whether the menu is showing markerID
func (r *Resolver) MenuOpenFor(markerID int) bool {
	return r.menu != nil && r.menu.MarkerID == markerID
}

// CurrentMenu returns the open menu
func (r *Resolver) CurrentMenu() (Menu, bool) {
	if r.menu == nil {
		return Menu{}, false
	}
	return *r.menu, true
}

// Reset closes the menu and clears toast rate limiting, used after a
// catalog refresh.
func (r *Resolver) Reset() {
	r.CloseMenu()
	r.lastNotice = make(map[int]time.Time)
}

func (r *Resolver) validPreference(markerID int, candidates []Animation) (Animation, bool) {
	id, ok := r.prefs.Get(markerID)
	if !ok {
		return Animation{}, false
	}
	for _, a := range candidates {
		if a.ID == id {
			return a, true
		}
	}
	return Animation{}, false
}

// notifyMissing shows at most one toast per marker per toast lifetime, and
// none until the catalog has loaded.
func (r *Resolver) notifyMissing(markerID int) {
	if !r.lib.Loaded() {
		return
	}
	now := r.now()
	if last, ok := r.lastNotice[markerID]; ok && now.Sub(last) < r.noticeTTL {
		return
	}
	r.lastNotice[markerID] = now
	r.presenter.Notify(NewNotification(KindWarning, markerID,
		fmt.Sprintf("No animations available for Marker ID: %d", markerID), r.noticeTTL))
	r.log.Debug("no animation for marker", "marker", markerID)
}

// SettingsEntry is one stored preference on a marker with several candidates
type SettingsEntry struct {
	MarkerID      int    `json:"marker_id"`
	AnimationID   string `json:"animation_id"`
	AnimationName string `json:"animation_name"`
	Candidates    int    `json:"candidates"`
}

// Settings is the preference overview
type Settings struct {
	Entries             []SettingsEntry `json:"entries"`
	MarkersWithMultiple int             `json:"markers_with_multiple"`
	PreferencesSet      int             `json:"preferences_set"`
}

// Settings lists stored preferences for markers that still have several
// candidates, ordered by marker id.
func (r *Resolver) Settings() Settings {
	s := Settings{
		Entries:             []SettingsEntry{},
		MarkersWithMultiple: r.lib.MultiMarkers(),
		PreferencesSet:      r.prefs.Len(),
	}
	for _, markerID := range r.prefs.Markers() {
		candidates := r.lib.Candidates(markerID)
		if len(candidates) <= 1 {
			continue
		}
		animID, _ := r.prefs.Get(markerID)
		name := "Unknown"
		for _, a := range candidates {
			if a.ID == animID {
				name = a.Name
				break
			}
		}
		s.Entries = append(s.Entries, SettingsEntry{
			MarkerID:      markerID,
			AnimationID:   animID,
			AnimationName: name,
			Candidates:    len(candidates),
		})
	}
	return s
}
