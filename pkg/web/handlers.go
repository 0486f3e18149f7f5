package web

import (
	"context"
	"encoding/base64"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/splitg/go-splitg/pkg/camera"
	"github.com/splitg/go-splitg/pkg/stream"
)

// StartSessionRequest selects the camera source for a new session.
type StartSessionRequest struct {
	// Source is "webrtc" (default), "device", or "agent".
	Source string `json:"source"`
	// DeviceID selects the local camera for the device source. The
	// environment-facing camera is usually a higher index.
	DeviceID int `json:"device_id"`
	// AgentID selects a connected camera agent.
	AgentID string `json:"agent_id"`
}

// handleStartSession starts a capture session over the chosen camera.
func (s *Server) handleStartSession(c *fiber.Ctx) error {
	var req StartSessionRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	var src camera.Source
	switch req.Source {
	case "", "webrtc":
		pending := s.takePendingSource()
		if pending == nil {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "no camera negotiated; POST /api/webrtc/offer first",
			})
		}
		src = pending

	case "device":
		opened, err := s.DeviceOpener(req.DeviceID)
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
		}
		src = opened

	case "agent":
		if s.agents == nil {
			return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{"error": "agent ingest disabled"})
		}
		agentSrc, err := s.agents.Source(req.AgentID)
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		src = agentSrc

	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown source: " + req.Source})
	}

	// The session outlives this request; it gets its own context.
	sess, err := s.manager.Start(context.Background(), src)
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(sess.Snapshot())
}

// handleStopSession stops the active session.
func (s *Server) handleStopSession(c *fiber.Ctx) error {
	s.manager.Stop()
	return c.SendStatus(fiber.StatusNoContent)
}

// handleSessionStatus returns the active session's snapshot.
func (s *Server) handleSessionStatus(c *fiber.Ctx) error {
	sess := s.manager.Current()
	if sess == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no session"})
	}
	return c.JSON(sess.Snapshot())
}

// handleCapture submits the current frame immediately.
func (s *Server) handleCapture(c *fiber.Ctx) error {
	sess := s.manager.Current()
	if sess == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no session"})
	}
	if err := sess.CaptureNow(context.Background()); err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(sess.Snapshot())
}

// handleResult returns the scored outcome.
func (s *Server) handleResult(c *fiber.Ctx) error {
	sess := s.manager.Current()
	if sess == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no session"})
	}

	r := sess.Result()
	if r == nil {
		snap := sess.Snapshot()
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "no result yet",
			"state": snap.State,
		})
	}

	view := resultView{
		Outcome:     r.Outcome,
		Predictions: r.Predictions,
	}
	if r.Visualization != nil {
		view.Visualization = base64.StdEncoding.EncodeToString(r.Visualization)
	}
	return c.JSON(view)
}

// WebRTCOfferRequest carries the browser's SDP offer.
type WebRTCOfferRequest struct {
	SDP string `json:"sdp"`
}

// handleWebRTCOffer negotiates a WebRTC camera: the browser's offer in,
// the server's answer out. The source is held until the session starts.
func (s *Server) handleWebRTCOffer(c *fiber.Ctx) error {
	var req WebRTCOfferRequest
	if err := c.BodyParser(&req); err != nil || req.SDP == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "sdp required"})
	}

	src, answer, err := camera.NewWebRTCSource(req.SDP)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	s.setPendingSource(src)
	return c.JSON(fiber.Map{"sdp": answer})
}

// handleAgents lists connected camera agents.
func (s *Server) handleAgents(c *fiber.Ctx) error {
	if s.agents == nil {
		return c.JSON(fiber.Map{"agents": []string{}, "stats": nil})
	}
	return c.JSON(fiber.Map{
		"agents": s.agents.Agents(),
		"stats":  s.agents.GetStats(),
	})
}

// handleFeedWS attaches a page to the live feedback feed.
func (s *Server) handleFeedWS(c *websocket.Conn) {
	client := stream.NewClient(s.feed, c)

	// Send the current state so a late page catches up
	if sess := s.manager.Current(); sess != nil {
		s.feed.BroadcastJSON(sess.Snapshot())
	}

	client.Run()
}
