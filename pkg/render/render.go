// Package render defines the display-side collaborators of an AR session:
// static model placement and 2D overlay surfaces.
package render

import (
	"github.com/teslashibe/automatar/pkg/marker"
)

// DefaultOverlaySize is the edge length of an overlay surface in display pixels
const DefaultOverlaySize = 200.0

// Rect is an on-screen rectangle in display pixels, origin top-left
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Placement positions a static model over a marker
type Placement struct {
	MarkerID  int             `json:"marker_id"`
	ModelPath string          `json:"model"`
	Scenario  int             `json:"scenario,omitempty"`
	Center    marker.Point    `json:"center"`
	Corners   [4]marker.Point `json:"corners"`
	Size      float64         `json:"size"`
}

// Renderer places static 3D models
type Renderer interface {
	PlaceModel(p Placement)
	ClearModels()
}

// Surface is one overlay image layer on top of the camera feed
type Surface interface {
	// Show displays the frame image at url
	Show(url string)

	// Move repositions the surface
	Move(r Rect)

	// Remove destroys the surface
	Remove()
}

// Display creates overlay surfaces
type Display interface {
	CreateSurface(markerID int) Surface
}

// Viewport maps detector pixel space to display pixel space with a linear
// per-axis scale.
type Viewport struct {
	SourceWidth   float64 `json:"source_width"`
	SourceHeight  float64 `json:"source_height"`
	DisplayWidth  float64 `json:"display_width"`
	DisplayHeight float64 `json:"display_height"`
}

// Scale returns the x and y scale factors. A zero dimension maps 1:1.
func (v Viewport) Scale() (float64, float64) {
	sx, sy := 1.0, 1.0
	if v.SourceWidth > 0 && v.DisplayWidth > 0 {
		sx = v.DisplayWidth / v.SourceWidth
	}
	if v.SourceHeight > 0 && v.DisplayHeight > 0 {
		sy = v.DisplayHeight / v.SourceHeight
	}
	return sx, sy
}

// Project converts a detector point to display pixels
func (v Viewport) Project(p marker.Point) marker.Point {
	sx, sy := v.Scale()
	return marker.Point{X: p.X * sx, Y: p.Y * sy}
}

// Centered returns a size x size rect centred on the projected point
func (v Viewport) Centered(p marker.Point, size float64) Rect {
	c := v.Project(p)
	return Rect{X: c.X - size/2, Y: c.Y - size/2, W: size, H: size}
}

// PlacementFor builds the projected model placement for m
func (v Viewport) PlacementFor(m marker.Marker, model string) Placement {
	p := Placement{
		MarkerID:  m.ID,
		ModelPath: model,
		Center:    v.Project(m.Center()),
	}
	for i, c := range m.Corners {
		p.Corners[i] = v.Project(c)
	}
	sx, _ := v.Scale()
	p.Size = m.Size() * sx
	return p
}
