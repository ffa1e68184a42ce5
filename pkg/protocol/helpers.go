package protocol

import (
	"encoding/base64"

	"github.com/teslashibe/automatar/pkg/animation"
	"github.com/teslashibe/automatar/pkg/render"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewFrameMessage creates a frame message from raw JPEG data
func NewFrameMessage(width, height int, jpegData []byte, frameID uint64) (*Message, error) {
	return NewMessage(TypeFrame, FrameData{
		Width:   width,
		Height:  height,
		Format:  "jpeg",
		Data:    base64.StdEncoding.EncodeToString(jpegData),
		FrameID: frameID,
	})
}

// NewMenuShowMessage creates a menu.show message
func NewMenuShowMessage(menu animation.Menu) (*Message, error) {
	return NewMessage(TypeMenuShow, menu)
}

// NewMenuSelectMessage creates a menu.select message
func NewMenuSelectMessage(markerID int, animationID string) (*Message, error) {
	return NewMessage(TypeMenuSelect, MenuSelectData{MarkerID: markerID, AnimationID: animationID})
}

// NewMenuHideMessage creates a menu.hide message
func NewMenuHideMessage() (*Message, error) {
	return NewMessage(TypeMenuHide, nil)
}

// NewNotifyMessage creates a toast message
func NewNotifyMessage(n animation.Notification) (*Message, error) {
	return NewMessage(TypeNotify, n)
}

// NewOverlayMessage creates an overlay.* message
func NewOverlayMessage(t MessageType, markerID int, url string, rect *render.Rect) (*Message, error) {
	return NewMessage(t, OverlayData{MarkerID: markerID, URL: url, Rect: rect})
}

// NewModelPlaceMessage creates a model.place message
func NewModelPlaceMessage(p render.Placement) (*Message, error) {
	return NewMessage(TypeModelPlace, p)
}

// NewModelClearMessage creates a model.clear message
func NewModelClearMessage() (*Message, error) {
	return NewMessage(TypeModelClear, nil)
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: 0, // Will be set by NewMessage
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetFrameData extracts frame data from a message
func (m *Message) GetFrameData() (*FrameData, error) {
	var data FrameData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DecodeFrameData decodes the base64 image data
func (f *FrameData) DecodeFrameData() ([]byte, error) {
	return base64.StdEncoding.DecodeString(f.Data)
}

// GetMenu extracts the menu from a menu.show message
func (m *Message) GetMenu() (*MenuData, error) {
	var data MenuData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetOverlayData extracts overlay data from a message
func (m *Message) GetOverlayData() (*OverlayData, error) {
	var data OverlayData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSelectCommand extracts a select command from a message
func (m *Message) GetSelectCommand() (*SelectCommand, error) {
	var data SelectCommand
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetResetCommand extracts a reset command from a message
func (m *Message) GetResetCommand() (*ResetCommand, error) {
	var data ResetCommand
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetViewportData extracts viewport data from a message
func (m *Message) GetViewportData() (*ViewportData, error) {
	var data ViewportData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
