package protocol

import (
	"testing"
	"time"

	"github.com/teslashibe/automatar/pkg/animation"
	"github.com/teslashibe/automatar/pkg/render"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		data    interface{}
		wantErr bool
	}{
		{
			name:    "frame message",
			msgType: TypeFrame,
			data:    FrameData{Width: 640, Height: 480, Format: "jpeg"},
		},
		{
			name:    "overlay move",
			msgType: TypeOverlayMove,
			data:    OverlayData{MarkerID: 7, Rect: &render.Rect{X: 1, Y: 2, W: 200, H: 200}},
		},
		{
			name:    "nil data",
			msgType: TypeMenuHide,
			data:    nil,
		},
		{
			name:    "unmarshalable",
			msgType: TypeStatus,
			data:    make(chan int),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.msgType, tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if msg.Type != tt.msgType {
				t.Errorf("NewMessage() type = %v, want %v", msg.Type, tt.msgType)
			}
			if msg.Timestamp == 0 {
				t.Error("NewMessage() timestamp should be set")
			}
		})
	}
}

func TestParseMessage_MissingType(t *testing.T) {
	if _, err := ParseMessage([]byte(`{"data": {}}`)); err == nil {
		t.Error("expected error for message without type")
	}
	if _, err := ParseMessage([]byte(`not json`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestFrameMessage(t *testing.T) {
	jpegData := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10} // Fake JPEG header

	msg, err := NewFrameMessage(640, 480, jpegData, 1)
	if err != nil {
		t.Fatalf("NewFrameMessage() error = %v", err)
	}

	raw, err := msg.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := ParseMessage(raw)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}

	frameData, err := parsed.GetFrameData()
	if err != nil {
		t.Fatalf("GetFrameData() error = %v", err)
	}
	if frameData.Width != 640 || frameData.Format != "jpeg" || frameData.FrameID != 1 {
		t.Errorf("frame = %+v", frameData)
	}

	decoded, err := frameData.DecodeFrameData()
	if err != nil {
		t.Fatalf("DecodeFrameData() error = %v", err)
	}
	if len(decoded) != len(jpegData) {
		t.Errorf("Decoded length = %v, want %v", len(decoded), len(jpegData))
	}
}

func TestMenuShowMessage(t *testing.T) {
	menu := animation.Menu{
		MarkerID: 5,
		Selected: "b",
		Options: []animation.MenuOption{
			{AnimationID: "a", Name: "Alpha", FrameCount: 4},
			{AnimationID: "b", Name: "Beta", FrameCount: 2, Thumbnail: "https://cdn/b0.png"},
		},
	}

	msg, err := NewMenuShowMessage(menu)
	if err != nil {
		t.Fatal(err)
	}
	got, err := msg.GetMenu()
	if err != nil {
		t.Fatal(err)
	}
	if got.MarkerID != 5 || got.Selected != "b" || len(got.Options) != 2 {
		t.Errorf("menu = %+v", got)
	}
	if got.Options[1].Thumbnail != "https://cdn/b0.png" {
		t.Errorf("thumbnail = %q", got.Options[1].Thumbnail)
	}
}

func TestOverlayMessage(t *testing.T) {
	msg, err := NewOverlayMessage(TypeOverlayShow, 7, "f1.png", nil)
	if err != nil {
		t.Fatal(err)
	}
	data, err := msg.GetOverlayData()
	if err != nil {
		t.Fatal(err)
	}
	if data.MarkerID != 7 || data.URL != "f1.png" || data.Rect != nil {
		t.Errorf("overlay = %+v", data)
	}
}

func TestClientCommands(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		check func(t *testing.T, m *Message)
	}{
		{
			name: "select",
			raw:  `{"type":"select","data":{"marker_id":5,"animation_id":"b"}}`,
			check: func(t *testing.T, m *Message) {
				cmd, err := m.GetSelectCommand()
				if err != nil || cmd.MarkerID != 5 || cmd.AnimationID != "b" {
					t.Errorf("select = %+v, %v", cmd, err)
				}
			},
		},
		{
			name: "reset",
			raw:  `{"type":"reset","data":{"marker_id":9}}`,
			check: func(t *testing.T, m *Message) {
				cmd, err := m.GetResetCommand()
				if err != nil || cmd.MarkerID != 9 {
					t.Errorf("reset = %+v, %v", cmd, err)
				}
			},
		},
		{
			name: "viewport",
			raw:  `{"type":"viewport","data":{"width":1280,"height":720}}`,
			check: func(t *testing.T, m *Message) {
				vp, err := m.GetViewportData()
				if err != nil || vp.Width != 1280 || vp.Height != 720 {
					t.Errorf("viewport = %+v, %v", vp, err)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseMessage([]byte(tt.raw))
			if err != nil {
				t.Fatal(err)
			}
			tt.check(t, m)
		})
	}
}

func TestPingPongMessage(t *testing.T) {
	pingMsg, err := NewPingMessage("test-123")
	if err != nil {
		t.Fatalf("NewPingMessage() error = %v", err)
	}

	pingData, err := pingMsg.GetPingData()
	if err != nil {
		t.Fatalf("GetPingData() error = %v", err)
	}
	if pingData.ID != "test-123" {
		t.Errorf("ID = %v, want test-123", pingData.ID)
	}

	now := time.Now().UnixMilli()
	pongMsg, err := NewPongMessage("test-123", pingMsg.Timestamp, now)
	if err != nil {
		t.Fatalf("NewPongMessage() error = %v", err)
	}

	pongData, err := pongMsg.GetPongData()
	if err != nil {
		t.Fatalf("GetPongData() error = %v", err)
	}
	if pongData.LatencyMs < 0 {
		t.Errorf("LatencyMs = %v, should be >= 0", pongData.LatencyMs)
	}
}
