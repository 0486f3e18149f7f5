package ingest

import (
	"errors"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"

	"github.com/splitg/go-splitg/pkg/protocol"
)

func TestNewHub(t *testing.T) {
	hub := NewHub()

	if hub.AgentCount() != 0 {
		t.Error("AgentCount should be 0 initially")
	}

	stats := hub.GetStats()
	if stats.AgentCount != 0 || stats.FramesReceived != 0 {
		t.Errorf("fresh stats = %+v", stats)
	}
}

func TestSource_AgentNotFound(t *testing.T) {
	hub := NewHub()

	if _, err := hub.Source("nobody"); !errors.Is(err, ErrAgentNotFound) {
		t.Errorf("err = %v, want ErrAgentNotFound", err)
	}
}

func TestAgentConnectionAndFrames(t *testing.T) {
	hub := NewHub()
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	hub.RegisterRoutes(app)

	go app.Listen(":18090")
	defer app.Shutdown()
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18090/ws/agent/cam-test", nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()

	time.Sleep(50 * time.Millisecond)
	if hub.AgentCount() != 1 {
		t.Fatalf("AgentCount = %d, want 1", hub.AgentCount())
	}

	// Attach a source, then stream a frame through the hub
	src, err := hub.Source("cam-test")
	if err != nil {
		t.Fatalf("Source: %v", err)
	}
	defer src.Close()

	msg, _ := protocol.NewFrameMessage(720, 960, []byte("jpeg-bytes"), 1)
	data, _ := msg.Bytes()
	ws.WriteMessage(websocket.TextMessage, data)

	deadline := time.Now().Add(time.Second)
	var frame []byte
	for time.Now().Before(deadline) {
		frame, err = src.CaptureFrame()
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("CaptureFrame: %v", err)
	}
	if string(frame) != "jpeg-bytes" {
		t.Errorf("frame = %q", frame)
	}

	if stats := hub.GetStats(); stats.FramesReceived != 1 {
		t.Errorf("FramesReceived = %d, want 1", stats.FramesReceived)
	}

	// Disconnect unregisters the agent
	ws.Close()
	time.Sleep(100 * time.Millisecond)
	if hub.AgentCount() != 0 {
		t.Errorf("AgentCount = %d, want 0 after disconnect", hub.AgentCount())
	}
}

func TestSourceReplacement_KeepsAgentStreaming(t *testing.T) {
	hub := NewHub()
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	hub.RegisterRoutes(app)

	go app.Listen(":18092")
	defer app.Shutdown()
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18092/ws/agent/cam-replace", nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()
	time.Sleep(50 * time.Millisecond)

	// Back-to-back sessions on the same agent: the new source attaches
	// before the old session's source is closed.
	src1, err := hub.Source("cam-replace")
	if err != nil {
		t.Fatalf("Source 1: %v", err)
	}
	src2, err := hub.Source("cam-replace")
	if err != nil {
		t.Fatalf("Source 2: %v", err)
	}
	defer src2.Close()

	src1.Close()

	// Frames still flow into the surviving source
	msg, _ := protocol.NewFrameMessage(720, 960, []byte("still-streaming"), 2)
	data, _ := msg.Bytes()
	ws.WriteMessage(websocket.TextMessage, data)

	deadline := time.Now().Add(time.Second)
	var frame []byte
	for time.Now().Before(deadline) {
		frame, err = src2.CaptureFrame()
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("CaptureFrame after replacement: %v", err)
	}
	if string(frame) != "still-streaming" {
		t.Errorf("frame = %q", frame)
	}

	// The agent must see only resume signals; a pause here would stop
	// the stream feeding the live source.
	ws.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			break // deadline, no more control traffic
		}
		ctrl, err := protocol.ParseMessage(data)
		if err != nil {
			t.Fatalf("parse control message: %v", err)
		}
		if ctrl.Type == protocol.TypePause {
			t.Fatal("agent was paused while a live source is attached")
		}
	}
}

func TestSourceCloseDetaches(t *testing.T) {
	hub := NewHub()
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	hub.RegisterRoutes(app)

	go app.Listen(":18091")
	defer app.Shutdown()
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18091/ws/agent/cam-detach", nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()
	time.Sleep(50 * time.Millisecond)

	src, err := hub.Source("cam-detach")
	if err != nil {
		t.Fatalf("Source: %v", err)
	}
	src.Close()

	hub.mu.RLock()
	_, attached := hub.sources["cam-detach"]
	hub.mu.RUnlock()
	if attached {
		t.Error("closed source should be detached from the hub")
	}
}
