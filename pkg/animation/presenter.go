package animation

import (
	"time"

	"github.com/google/uuid"
)

// MenuOption is one candidate in the selection menu
type MenuOption struct {
	AnimationID string `json:"animation_id"`
	Name        string `json:"name"`
	FrameCount  int    `json:"frame_count"`
	Thumbnail   string `json:"thumbnail,omitempty"`
}

// Menu is the selection menu for an ambiguous marker
type Menu struct {
	MarkerID int          `json:"marker_id"`
	Options  []MenuOption `json:"options"`
	Selected string       `json:"selected"`
}

// NotificationKind styles a toast
type NotificationKind string

const (
	KindInfo    NotificationKind = "info"
	KindSuccess NotificationKind = "success"
	KindWarning NotificationKind = "warning"
)

// Notification is a transient, auto-dismissing toast
type Notification struct {
	ID         string           `json:"id"`
	Kind       NotificationKind `json:"kind"`
	Message    string           `json:"message"`
	MarkerID   int              `json:"marker_id"`
	DurationMs int64            `json:"duration_ms"`
}

// NewNotification creates a toast with a fresh id
func NewNotification(kind NotificationKind, markerID int, msg string, d time.Duration) Notification {
	return Notification{
		ID:         uuid.NewString(),
		Kind:       kind,
		Message:    msg,
		MarkerID:   markerID,
		DurationMs: d.Milliseconds(),
	}
}

// Presenter is the user-facing surface the resolver drives.
// Implementations must not block.
type Presenter interface {
	ShowMenu(menu Menu)
	UpdateMenuSelection(markerID int, animationID string)
	HideMenu()
	Notify(n Notification)
}

// NopPresenter discards every call
type NopPresenter struct{}

func (NopPresenter) ShowMenu(Menu)                   {}
func (NopPresenter) UpdateMenuSelection(int, string) {}
func (NopPresenter) HideMenu()                       {}
func (NopPresenter) Notify(Notification)             {}

func buildMenu(markerID int, candidates []Animation, selected string) Menu {
	m := Menu{MarkerID: markerID, Selected: selected}
	for _, a := range candidates {
		m.Options = append(m.Options, MenuOption{
			AnimationID: a.ID,
			Name:        a.Name,
			FrameCount:  len(a.Frames),
			Thumbnail:   a.Thumbnail(),
		})
	}
	return m
}
