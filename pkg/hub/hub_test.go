package hub

import (
	"context"
	"testing"
	"time"

	"github.com/teslashibe/automatar/pkg/protocol"
)

func recv(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case m, ok := <-c.send:
		if !ok {
			t.Fatal("send channel closed")
		}
		return m
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Message{}
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	h := New("test")
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h, cancel
}

func TestHub_Broadcast(t *testing.T) {
	h, _ := startHub(t)

	a, b := newClient(h, nil), newClient(h, nil)
	h.register <- a
	h.register <- b

	h.Publish(protocol.TypeMenuHide, nil)

	for _, c := range []*Client{a, b} {
		m := recv(t, c)
		if m.Type != JSONMessage {
			t.Fatalf("type = %v, want JSON", m.Type)
		}
		parsed, err := protocol.ParseMessage(m.Data)
		if err != nil {
			t.Fatal(err)
		}
		if parsed.Type != protocol.TypeMenuHide {
			t.Errorf("message type = %v", parsed.Type)
		}
	}
	if h.ClientCount() != 2 {
		t.Errorf("ClientCount() = %d, want 2", h.ClientCount())
	}

	h.BroadcastBinary([]byte{1, 2, 3})
	if m := recv(t, a); m.Type != BinaryMessage || len(m.Data) != 3 {
		t.Errorf("binary = %+v", m)
	}
}

func TestHub_Unregister(t *testing.T) {
	h, _ := startHub(t)
	c := newClient(h, nil)
	h.register <- c
	h.unregister <- c

	select {
	case _, ok := <-c.send:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}
	if c.trySend(NewJSONMessage(nil)) {
		t.Error("trySend on closed client should fail")
	}
}

func TestHub_Handle(t *testing.T) {
	h := New("test")
	var got protocol.MessageType
	h.SetHandler(func(msg *protocol.Message) *protocol.Message {
		got = msg.Type
		reply, _ := protocol.NewMessage(protocol.TypeStatus, map[string]string{"ok": "yes"})
		return reply
	})
	c := newClient(h, nil)

	h.handle(c, []byte(`{"type":"select","data":{"marker_id":5,"animation_id":"b"}}`))
	if got != protocol.TypeSelect {
		t.Errorf("handler saw %q", got)
	}
	reply, err := protocol.ParseMessage(recv(t, c).Data)
	if err != nil || reply.Type != protocol.TypeStatus {
		t.Errorf("reply = %+v, %v", reply, err)
	}

	// malformed input is dropped without a reply
	h.handle(c, []byte(`{bad`))
	select {
	case m := <-c.send:
		t.Errorf("unexpected reply %s", m.Data)
	default:
	}
}

func TestHub_Ping(t *testing.T) {
	h := New("test")
	c := newClient(h, nil)

	ping, err := protocol.NewPingMessage("p1")
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := ping.Bytes()
	h.handle(c, raw)

	reply, err := protocol.ParseMessage(recv(t, c).Data)
	if err != nil {
		t.Fatal(err)
	}
	pong, err := reply.GetPongData()
	if err != nil {
		t.Fatal(err)
	}
	if pong.ID != "p1" || pong.LatencyMs < 0 {
		t.Errorf("pong = %+v", pong)
	}
}

func TestHub_Shutdown(t *testing.T) {
	h, cancel := startHub(t)
	c := newClient(h, nil)
	h.register <- c

	cancel()
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	if h.IsRunning() {
		t.Error("IsRunning() after shutdown")
	}
	if _, ok := <-c.send; ok {
		t.Error("client channel left open")
	}

	// registering after shutdown must not block
	late := NewClient(h, nil)
	if late.trySend(NewJSONMessage(nil)) {
		t.Error("late client should be closed")
	}
}
