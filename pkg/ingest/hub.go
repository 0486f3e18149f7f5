// Package ingest accepts frames from remote camera agents over
// WebSocket. An agent (cmd/splitg-cam) registers with a hello message
// and streams JPEG frames; the hub exposes each agent as a camera
// source for the session gate loop.
package ingest

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/splitg/go-splitg/internal/log"
	"github.com/splitg/go-splitg/pkg/camera"
	"github.com/splitg/go-splitg/pkg/protocol"
)

// AgentConnection represents a connected camera agent
type AgentConnection struct {
	ID        string
	Name      string
	Conn      *websocket.Conn
	Connected time.Time
	LastSeen  time.Time

	mu sync.Mutex
}

// Send sends a message to the agent
func (a *AgentConnection) Send(msg *protocol.Message) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	return a.Conn.WriteMessage(websocket.TextMessage, data)
}

// Stats holds hub counters
type Stats struct {
	AgentCount       int    `json:"agent_count"`
	MessagesReceived uint64 `json:"messages_received"`
	FramesReceived   uint64 `json:"frames_received"`
}

// Hub manages WebSocket connections from camera agents
type Hub struct {
	mu      sync.RWMutex
	agents  map[string]*AgentConnection
	sources map[string]*camera.PushSource

	// Stats
	messagesReceived atomic.Uint64
	framesReceived   atomic.Uint64
}

// NewHub creates a new camera agent hub
func NewHub() *Hub {
	return &Hub{
		agents:  make(map[string]*AgentConnection),
		sources: make(map[string]*camera.PushSource),
	}
}

// RegisterRoutes registers WebSocket routes on a Fiber app
func (h *Hub) RegisterRoutes(app *fiber.App) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/agent", websocket.New(h.handleAgent))
	app.Get("/ws/agent/:id", websocket.New(h.handleAgent))
}

// handleAgent handles a camera agent WebSocket connection
func (h *Hub) handleAgent(c *websocket.Conn) {
	agentID := c.Params("id")
	if agentID == "" {
		agentID = uuid.NewString()
	}

	agent := &AgentConnection{
		ID:        agentID,
		Conn:      c,
		Connected: time.Now(),
		LastSeen:  time.Now(),
	}

	h.mu.Lock()
	h.agents[agentID] = agent
	count := len(h.agents)
	h.mu.Unlock()

	log.Info("camera agent connected", "agent_id", agentID, "total", count)

	defer func() {
		h.mu.Lock()
		delete(h.agents, agentID)
		count := len(h.agents)
		h.mu.Unlock()
		log.Info("camera agent disconnected", "agent_id", agentID, "total", count)
	}()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			return
		}

		agent.mu.Lock()
		agent.LastSeen = time.Now()
		agent.mu.Unlock()

		h.messagesReceived.Add(1)
		h.handleMessage(agent, data)
	}
}

// handleMessage processes one incoming agent message
func (h *Hub) handleMessage(agent *AgentConnection, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		log.Warn("agent message parse error", "agent_id", agent.ID, "error", err)
		return
	}

	switch msg.Type {
	case protocol.TypeHello:
		hello, err := msg.GetHelloData()
		if err != nil {
			return
		}
		agent.mu.Lock()
		agent.Name = hello.Name
		agent.mu.Unlock()

	case protocol.TypeFrame:
		h.framesReceived.Add(1)
		frame, err := msg.GetFrameData()
		if err != nil {
			return
		}
		jpeg, err := frame.DecodeFrameData()
		if err != nil {
			log.Warn("bad frame payload", "agent_id", agent.ID, "error", err)
			return
		}

		h.mu.RLock()
		src := h.sources[agent.ID]
		h.mu.RUnlock()
		if src != nil {
			src.Push(jpeg)
		}

	case protocol.TypePing:
		pong, err := protocol.NewPongMessage("", msg.Timestamp, time.Now().UnixMilli())
		if err == nil {
			agent.Send(pong)
		}
	}
}

// Source returns a camera source fed by the given agent's frames. The
// agent is told to resume sending; closing the source detaches it and
// pauses the agent again.
func (h *Hub) Source(agentID string) (*camera.PushSource, error) {
	h.mu.Lock()
	agent, ok := h.agents[agentID]
	if !ok {
		h.mu.Unlock()
		return nil, ErrAgentNotFound
	}
	src := camera.NewPushSource()
	h.sources[agentID] = src
	h.mu.Unlock()

	src.OnClose = func() {
		h.mu.Lock()
		active := h.sources[agentID] == src
		if active {
			delete(h.sources, agentID)
		}
		h.mu.Unlock()

		// A replaced source must not pause the agent: the newer source
		// still wants frames.
		if active {
			h.signal(agentID, protocol.TypePause)
		}
	}

	if msg, err := protocol.NewMessage(protocol.TypeResume, nil); err == nil {
		agent.Send(msg)
	}
	return src, nil
}

// signal sends a bare control message to an agent, ignoring send errors
// (a gone agent unregisters itself).
func (h *Hub) signal(agentID string, t protocol.MessageType) {
	h.mu.RLock()
	agent := h.agents[agentID]
	h.mu.RUnlock()
	if agent == nil {
		return
	}
	if msg, err := protocol.NewMessage(t, nil); err == nil {
		agent.Send(msg)
	}
}

// Agents returns the ids of connected agents.
func (h *Hub) Agents() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.agents))
	for id := range h.agents {
		ids = append(ids, id)
	}
	return ids
}

// AgentCount returns the number of connected agents.
func (h *Hub) AgentCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.agents)
}

// GetStats returns hub counters.
func (h *Hub) GetStats() Stats {
	return Stats{
		AgentCount:       h.AgentCount(),
		MessagesReceived: h.messagesReceived.Load(),
		FramesReceived:   h.framesReceived.Load(),
	}
}
