// Package protocol defines the WebSocket message types between the AR
// session server and the browser client.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/teslashibe/automatar/pkg/animation"
	"github.com/teslashibe/automatar/pkg/render"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Server → Client messages
	TypeFrame         MessageType = "frame"          // Camera frame
	TypeMenuShow      MessageType = "menu.show"      // Open the selection menu
	TypeMenuSelect    MessageType = "menu.select"    // Move the menu highlight
	TypeMenuHide      MessageType = "menu.hide"      // Close the selection menu
	TypeNotify        MessageType = "notify"         // Transient toast
	TypeOverlayCreate MessageType = "overlay.create" // New overlay surface
	TypeOverlayShow   MessageType = "overlay.show"   // Overlay frame image
	TypeOverlayMove   MessageType = "overlay.move"   // Overlay position
	TypeOverlayRemove MessageType = "overlay.remove" // Overlay destroyed
	TypeModelPlace    MessageType = "model.place"    // Static model placement
	TypeModelClear    MessageType = "model.clear"    // Clear static models
	TypeStatus        MessageType = "status"         // Kit info line

	// Client → Server messages
	TypeSelect    MessageType = "select"     // Choose an animation
	TypeReset     MessageType = "reset"      // Forget a marker's choice
	TypeMenuClose MessageType = "menu.close" // Dismiss the menu
	TypeViewport  MessageType = "viewport"   // Display size changed
	TypeRefresh   MessageType = "refresh"    // Reload the catalog

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// =============================================================================
// Server → Client Message Types
// =============================================================================

// FrameData contains a camera frame
type FrameData struct {
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Format  string `json:"format"` // "jpeg"
	Data    string `json:"data"`   // base64 encoded
	FrameID uint64 `json:"frame_id,omitempty"`
}

// MenuSelectData moves the highlight of an open menu
type MenuSelectData struct {
	MarkerID    int    `json:"marker_id"`
	AnimationID string `json:"animation_id"`
}

// OverlayData describes one overlay surface update
type OverlayData struct {
	MarkerID int          `json:"marker_id"`
	URL      string       `json:"url,omitempty"`
	Rect     *render.Rect `json:"rect,omitempty"`
}

// MenuData is the selection menu payload
type MenuData = animation.Menu

// NotifyData is the toast payload
type NotifyData = animation.Notification

// PlacementData is the model placement payload
type PlacementData = render.Placement

// =============================================================================
// Client → Server Message Types
// =============================================================================

// SelectCommand chooses an animation for a marker
type SelectCommand struct {
	MarkerID    int    `json:"marker_id"`
	AnimationID string `json:"animation_id"`
}

// ResetCommand forgets the stored choice for a marker
type ResetCommand struct {
	MarkerID int `json:"marker_id"`
}

// ViewportData reports the client's display size
type ViewportData struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
