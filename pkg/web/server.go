// Package web serves the pour-scoring page and its API: session
// control, the live feedback feed, and WebRTC camera signalling.
package web

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/splitg/go-splitg/internal/log"
	"github.com/splitg/go-splitg/pkg/camera"
	"github.com/splitg/go-splitg/pkg/classify"
	"github.com/splitg/go-splitg/pkg/ingest"
	"github.com/splitg/go-splitg/pkg/session"
	"github.com/splitg/go-splitg/pkg/stream"
)

// Server is the splitg web server.
type Server struct {
	app  *fiber.App
	addr string

	manager *session.Manager
	agents  *ingest.Hub

	// Live feedback fan-out to connected pages
	feed *stream.Hub

	// WebRTC camera source awaiting session start, keyed by nothing:
	// the page negotiates one camera at a time.
	pendingMu     sync.Mutex
	pendingSource camera.Source

	// DeviceOpener is swappable in tests; defaults to camera.OpenDevice.
	DeviceOpener func(deviceID int) (camera.Source, error)
}

// NewServer creates the web server around a session manager and the
// camera agent hub (agents may be nil when agent ingest is disabled).
func NewServer(addr string, manager *session.Manager, agents *ingest.Hub) *Server {
	s := &Server{
		addr:    addr,
		manager: manager,
		agents:  agents,
		feed:    stream.New("feed"),
		DeviceOpener: func(deviceID int) (camera.Source, error) {
			return camera.OpenDevice(deviceID)
		},
	}

	// Session updates flow out over the feed
	manager.OnUpdate = s.onSessionUpdate

	app := fiber.New(fiber.Config{
		AppName:               "splitg",
		DisableStartupMessage: true,
	})

	app.Use(cors.New())

	// Static page
	app.Static("/", "./web")

	api := app.Group("/api")
	api.Post("/session", s.handleStartSession)
	api.Delete("/session", s.handleStopSession)
	api.Get("/session", s.handleSessionStatus)
	api.Post("/session/capture", s.handleCapture)
	api.Get("/session/result", s.handleResult)
	api.Post("/webrtc/offer", s.handleWebRTCOffer)
	api.Get("/agents", s.handleAgents)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/feed", websocket.New(s.handleFeedWS))

	s.app = app
	return s
}

// Start runs the feed hub and listens. Blocks.
func (s *Server) Start() error {
	go s.feed.Run()
	log.Info("web server listening", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// Shutdown gracefully stops the web server and the active session.
func (s *Server) Shutdown() error {
	s.manager.Stop()
	if src := s.takePendingSource(); src != nil {
		src.Close()
	}
	return s.app.Shutdown()
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App { return s.app }

// onSessionUpdate broadcasts session snapshots, and the annotated
// result frame once scoring finishes.
func (s *Server) onSessionUpdate(snap session.Snapshot) {
	s.feed.BroadcastJSON(snap)

	if snap.State != session.StateResult {
		return
	}
	if sess := s.manager.Current(); sess != nil {
		if r := sess.Result(); r != nil && r.Visualization != nil {
			s.feed.BroadcastBinary(r.Visualization)
		}
	}
}

// setPendingSource stores a negotiated WebRTC camera, closing any
// source the page abandoned.
func (s *Server) setPendingSource(src camera.Source) {
	s.pendingMu.Lock()
	old := s.pendingSource
	s.pendingSource = src
	s.pendingMu.Unlock()

	if old != nil {
		old.Close()
	}
}

// takePendingSource hands over the negotiated WebRTC camera, if any.
func (s *Server) takePendingSource() camera.Source {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	src := s.pendingSource
	s.pendingSource = nil
	return src
}

// resultView is the JSON shape of a scored session.
type resultView struct {
	Outcome       classify.Outcome      `json:"outcome"`
	Predictions   []classify.Prediction `json:"predictions"`
	Visualization string                `json:"visualization,omitempty"` // base64 JPEG
}
