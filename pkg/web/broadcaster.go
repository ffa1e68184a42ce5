package web

import (
	"github.com/teslashibe/automatar/pkg/animation"
	"github.com/teslashibe/automatar/pkg/hub"
	"github.com/teslashibe/automatar/pkg/protocol"
	"github.com/teslashibe/automatar/pkg/render"
)

// Broadcaster turns presenter and display calls into protocol events on
// a hub. The browser owns the actual DOM surfaces and the 3D scene.
type Broadcaster struct {
	hub *hub.Hub
}

// NewBroadcaster creates a broadcaster publishing on h
func NewBroadcaster(h *hub.Hub) *Broadcaster {
	return &Broadcaster{hub: h}
}

// ShowMenu publishes menu.show
func (b *Broadcaster) ShowMenu(menu animation.Menu) {
	b.hub.Publish(protocol.TypeMenuShow, menu)
}

// UpdateMenuSelection publishes menu.select
func (b *Broadcaster) UpdateMenuSelection(markerID int, animationID string) {
	b.hub.Publish(protocol.TypeMenuSelect, protocol.MenuSelectData{MarkerID: markerID, AnimationID: animationID})
}

// HideMenu publishes menu.hide
func (b *Broadcaster) HideMenu() {
	b.hub.Publish(protocol.TypeMenuHide, nil)
}

// Notify publishes a toast
func (b *Broadcaster) Notify(n animation.Notification) {
	b.hub.Publish(protocol.TypeNotify, n)
}

// CreateSurface publishes overlay.create and returns a surface whose
// updates are published as overlay events
func (b *Broadcaster) CreateSurface(markerID int) render.Surface {
	b.hub.Publish(protocol.TypeOverlayCreate, protocol.OverlayData{MarkerID: markerID})
	return &surface{hub: b.hub, markerID: markerID}
}

// PlaceModel publishes model.place
func (b *Broadcaster) PlaceModel(p render.Placement) {
	b.hub.Publish(protocol.TypeModelPlace, p)
}

// ClearModels publishes model.clear
func (b *Broadcaster) ClearModels() {
	b.hub.Publish(protocol.TypeModelClear, nil)
}

type surface struct {
	hub      *hub.Hub
	markerID int
}

func (s *surface) Show(url string) {
	s.hub.Publish(protocol.TypeOverlayShow, protocol.OverlayData{MarkerID: s.markerID, URL: url})
}

func (s *surface) Move(r render.Rect) {
	s.hub.Publish(protocol.TypeOverlayMove, protocol.OverlayData{MarkerID: s.markerID, Rect: &r})
}

func (s *surface) Remove() {
	s.hub.Publish(protocol.TypeOverlayRemove, protocol.OverlayData{MarkerID: s.markerID})
}

var (
	_ animation.Presenter = (*Broadcaster)(nil)
	_ render.Display      = (*Broadcaster)(nil)
	_ render.Renderer     = (*Broadcaster)(nil)
)
