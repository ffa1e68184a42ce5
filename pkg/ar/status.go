package ar

import (
	"fmt"
	"strings"
)

// MarkerKind is what a visible marker is currently showing
type MarkerKind string

const (
	KindAnimation MarkerKind = "animation"
	KindModel     MarkerKind = "model"
	KindNone      MarkerKind = "none"
)

// MarkerStatus describes one visible marker
type MarkerStatus struct {
	ID          int        `json:"id"`
	Kind        MarkerKind `json:"kind"`
	Animation   string     `json:"animation,omitempty"`
	AnimationID string     `json:"animation_id,omitempty"`
	Candidates  int        `json:"candidates,omitempty"`
	Provisional bool       `json:"provisional,omitempty"`
	Model       string     `json:"model,omitempty"`
}

// ScenarioInfo names the active scenario
type ScenarioInfo struct {
	Tag  int    `json:"tag"`
	Name string `json:"name"`
}

// Status is the per-tick summary shown as the kit info line
type Status struct {
	SessionID      string         `json:"session_id"`
	Frame          uint64         `json:"frame"`
	ActiveScenario *ScenarioInfo  `json:"active_scenario,omitempty"`
	Markers        []MarkerStatus `json:"markers"`
	Overlays       int            `json:"overlays"`
	Animations     int            `json:"animations"`
	LibraryLoaded  bool           `json:"library_loaded"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
}

// describe fills Title and Description from the marker list
func (s *Status) describe() {
	if len(s.Markers) == 0 {
		s.Title = "No markers detected"
		s.Description = "Point your camera at a marker to see content"
		if s.Animations > 0 {
			s.Description += fmt.Sprintf(" • %d animations ready", s.Animations)
		}
		return
	}

	var infos []string
	var anims, models, multi, none int
	for _, m := range s.Markers {
		switch m.Kind {
		case KindAnimation:
			anims++
			if m.Candidates > 1 {
				multi++
				infos = append(infos, fmt.Sprintf("%s (%d available) - ID: %d", m.Animation, m.Candidates, m.ID))
			} else {
				infos = append(infos, fmt.Sprintf("Animation: %q (ID: %d)", m.Animation, m.ID))
			}
		case KindModel:
			models++
			infos = append(infos, fmt.Sprintf("Model: %s (ID: %d)", m.Model, m.ID))
		default:
			none++
			infos = append(infos, fmt.Sprintf("Marker ID: %d (no content)", m.ID))
		}
	}
	s.Title = strings.Join(infos, ", ")

	var parts []string
	if anims > 0 {
		parts = append(parts, fmt.Sprintf("%d animation(s)", anims))
	}
	if models > 0 {
		parts = append(parts, fmt.Sprintf("%d 3D model(s)", models))
	}
	desc := "No content available for detected markers"
	if len(parts) > 0 {
		desc = "Displaying " + strings.Join(parts, " and ")
	}
	if multi > 0 {
		desc += fmt.Sprintf(" • %d marker(s) have multiple animations", multi)
	}
	if none > 0 {
		desc += fmt.Sprintf(" • %d marker(s) have no animations", none)
	}
	if s.Animations > 0 {
		desc += fmt.Sprintf(" • %d animations cached", s.Animations)
	}
	s.Description = desc
}
