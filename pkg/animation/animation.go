// Package animation resolves which saved 2D animation to play for a visible
// marker, and keeps the per-marker user preference when several animations
// share a tag.
package animation

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/teslashibe/automatar/pkg/marker"
)

// DefaultFrameRate is used when a record has no usable frame rate
const DefaultFrameRate = 2.0

// MinPeriod is the shortest frame-advance interval Period returns
const MinPeriod = time.Millisecond

// Frame is one image of an animation
type Frame struct {
	URL       string    `json:"url"`
	Timestamp time.Time `json:"timestamp,omitempty"`
	CellIndex int       `json:"cell_index"`
}

// Metadata carries the descriptive fields of a record
type Metadata struct {
	FrameCount int            `json:"frame_count"`
	FrameRate  float64        `json:"frame_rate"`
	CreatedAt  time.Time      `json:"created_at,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
}

// Animation is a saved 2D frame sequence tagged to one or more markers
type Animation struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Frames   []Frame  `json:"frames"`
	Tags     []int    `json:"tags"`
	Metadata Metadata `json:"metadata"`
}

// FrameRate returns the playback rate, falling back to DefaultFrameRate
func (a *Animation) FrameRate() float64 {
	if a.Metadata.FrameRate > 0 {
		return a.Metadata.FrameRate
	}
	return DefaultFrameRate
}

// Period returns the frame-advance interval, 1000ms / frame rate, never
// shorter than MinPeriod
func (a *Animation) Period() time.Duration {
	p := time.Duration(float64(time.Second) / a.FrameRate())
	if p < MinPeriod {
		return MinPeriod
	}
	return p
}

// HasTag reports whether the animation is tagged with marker id
func (a *Animation) HasTag(id int) bool {
	for _, t := range a.Tags {
		if t == id {
			return true
		}
	}
	return false
}

// Thumbnail returns the first frame URL, used as the menu preview
func (a *Animation) Thumbnail() string {
	if len(a.Frames) == 0 {
		return ""
	}
	return a.Frames[0].URL
}

// Source supplies raw catalog rows
type Source interface {
	ListAnimations(ctx context.Context) ([]Row, error)
}

// Row is the storage shape of an animation record. Tags and ids arrive
// as numbers or strings depending on how the record was written.
type Row struct {
	ID         any            `json:"id,omitempty"`
	Name       string         `json:"name"`
	FrameCount int            `json:"frame_count"`
	FrameRate  float64        `json:"frame_rate"`
	MarkerTags []any          `json:"marker_tags"`
	FrameURLs  []FrameRow     `json:"frame_urls"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  string         `json:"created_at,omitempty"`
}

// FrameRow is one entry of the frame_urls column
type FrameRow struct {
	URL        string `json:"url"`
	CellIndex  int    `json:"cell_index"`
	Timestamp  any    `json:"timestamp,omitempty"`
	FrameIndex int    `json:"frame_index"`
	Markers    []any  `json:"markers,omitempty"`
}

// Decode converts a storage row into an Animation. Tags are normalized to
// integers; tags that are not integral ids are dropped.
func Decode(r Row) (Animation, error) {
	id := IDString(r.ID)
	if id == "" {
		return Animation{}, fmt.Errorf("animation %q: missing id", r.Name)
	}

	a := Animation{
		ID:   id,
		Name: r.Name,
		Tags: marker.NormalizeIDs(r.MarkerTags),
		Metadata: Metadata{
			FrameCount: r.FrameCount,
			FrameRate:  r.FrameRate,
			CreatedAt:  parseTime(r.CreatedAt),
			Extra:      r.Metadata,
		},
	}
	if a.Name == "" {
		a.Name = "Animation " + id
	}

	a.Frames = make([]Frame, 0, len(r.FrameURLs))
	for _, f := range r.FrameURLs {
		a.Frames = append(a.Frames, Frame{
			URL:       strings.TrimSpace(f.URL),
			Timestamp: parseTime(f.Timestamp),
			CellIndex: f.CellIndex,
		})
	}
	if a.Metadata.FrameCount == 0 {
		a.Metadata.FrameCount = len(a.Frames)
	}
	// a frameRate inside metadata overrides the column
	if rate, ok := positiveNumber(r.Metadata["frameRate"]); ok {
		a.Metadata.FrameRate = rate
	}
	return a, nil
}

func positiveNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case json.Number:
		var err error
		if f, err = n.Float64(); err != nil {
			return 0, false
		}
	case string:
		var err error
		if f, err = strconv.ParseFloat(strings.TrimSpace(n), 64); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	return f, f > 0
}

// Encode converts an Animation into its storage row
func Encode(a Animation) Row {
	tags := make([]any, 0, len(a.Tags))
	for _, t := range a.Tags {
		tags = append(tags, t)
	}

	frames := make([]FrameRow, 0, len(a.Frames))
	for i, f := range a.Frames {
		fr := FrameRow{URL: f.URL, CellIndex: f.CellIndex, FrameIndex: i}
		if !f.Timestamp.IsZero() {
			fr.Timestamp = f.Timestamp.UnixMilli()
		}
		frames = append(frames, fr)
	}

	frameCount := a.Metadata.FrameCount
	if frameCount == 0 {
		frameCount = len(a.Frames)
	}

	r := Row{
		Name:       a.Name,
		FrameCount: frameCount,
		FrameRate:  a.FrameRate(),
		MarkerTags: tags,
		FrameURLs:  frames,
		Metadata:   a.Metadata.Extra,
	}
	if a.ID != "" {
		r.ID = a.ID
	}
	if !a.Metadata.CreatedAt.IsZero() {
		r.CreatedAt = a.Metadata.CreatedAt.UTC().Format(time.RFC3339)
	}
	return r
}

// IDString renders a record id, which may be numeric or textual
func IDString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(id)
	case json.Number:
		return id.String()
	}
	if n, ok := marker.NormalizeID(v); ok {
		return strconv.Itoa(n)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func parseTime(v any) time.Time {
	switch t := v.(type) {
	case string:
		t = strings.TrimSpace(t)
		if t == "" {
			return time.Time{}
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05.999999-07"} {
			if ts, err := time.Parse(layout, t); err == nil {
				return ts
			}
		}
		if ms, err := strconv.ParseInt(t, 10, 64); err == nil {
			return time.UnixMilli(ms)
		}
	case float64:
		return time.UnixMilli(int64(t))
	case int64:
		return time.UnixMilli(t)
	case int:
		return time.UnixMilli(int64(t))
	case json.Number:
		if ms, err := t.Int64(); err == nil {
			return time.UnixMilli(ms)
		}
	}
	return time.Time{}
}
