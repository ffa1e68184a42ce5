// Package marker defines fiducial marker detections and the detector interface
package marker

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Point is a 2D position in detector pixel space
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Marker is one fiducial marker found in a frame
type Marker struct {
	ID      int      `json:"id"`
	Corners [4]Point `json:"corners"`
}

// Center returns the centroid of the four corners
func (m Marker) Center() Point {
	var p Point
	for _, c := range m.Corners {
		p.X += c.X
		p.Y += c.Y
	}
	p.X /= 4
	p.Y /= 4
	return p
}

// Size returns the mean side length in pixels
func (m Marker) Size() float64 {
	total := 0.0
	for i := range m.Corners {
		a := m.Corners[i]
		b := m.Corners[(i+1)%4]
		total += math.Hypot(b.X-a.X, b.Y-a.Y)
	}
	return total / 4
}

// Detector is the interface for marker detection backends
type Detector interface {
	// Detect finds markers in a JPEG frame. Each id appears at most once.
	Detect(jpeg []byte) ([]Marker, error)

	// Close releases resources
	Close() error
}

// Index maps marker id to marker, dropping duplicate ids after the first
func Index(markers []Marker) map[int]Marker {
	out := make(map[int]Marker, len(markers))
	for _, m := range markers {
		if _, seen := out[m.ID]; !seen {
			out[m.ID] = m
		}
	}
	return out
}

// Dedupe returns markers with duplicate ids removed, keeping detection order
func Dedupe(markers []Marker) []Marker {
	seen := make(map[int]bool, len(markers))
	out := markers[:0:0]
	for _, m := range markers {
		if seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		out = append(out, m)
	}
	return out
}

// NormalizeID converts a marker id in any of the representations that reach
// us (detector ints, JSON numbers, strings from the catalog or preference
// file) into the canonical int. ok is false when v is not an integral id.
func NormalizeID(v any) (int, bool) {
	switch id := v.(type) {
	case int:
		return id, true
	case int32:
		return int(id), true
	case int64:
		return int(id), true
	case uint:
		return int(id), true
	case float32:
		return floatID(float64(id))
	case float64:
		return floatID(id)
	case json.Number:
		if n, err := id.Int64(); err == nil {
			return int(n), true
		}
		if f, err := id.Float64(); err == nil {
			return floatID(f)
		}
		return 0, false
	case string:
		return parseID(id)
	case []byte:
		return parseID(string(id))
	default:
		return 0, false
	}
}

// NormalizeIDs normalizes every element, dropping the ones that are not ids.
// Duplicates are collapsed, first occurrence wins.
func NormalizeIDs(values []any) []int {
	out := make([]int, 0, len(values))
	seen := make(map[int]bool, len(values))
	for _, v := range values {
		id, ok := NormalizeID(v)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func parseID(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return floatID(f)
	}
	return 0, false
}

func floatID(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
