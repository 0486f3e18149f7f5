// Package session implements the live capture session: a fixed-cadence
// detection gate loop over a camera source, and the one-shot handoff of
// the gated frame to the scoring workflow.
package session

import "github.com/splitg/go-splitg/pkg/detect"

// State is the session lifecycle state.
type State string

const (
	// StateIdle means no capture is running.
	StateIdle State = "idle"
	// StateCameraStarting means the camera source is being acquired.
	StateCameraStarting State = "camera-starting"
	// StateLive means the gate loop is polling the camera.
	StateLive State = "live"
	// StateSubmitting means a frame was frozen and is being scored.
	StateSubmitting State = "submitting"
	// StateResult means scoring finished and an outcome is available.
	StateResult State = "result"
	// StateError means the session failed; a new session is required.
	StateError State = "error"
	// StateStopped means the session was stopped explicitly.
	StateStopped State = "stopped"
)

// User-facing guidance shown while the gate loop runs.
const (
	FeedbackNoGlass   = "No pint glass in view. Point the camera at your glass."
	FeedbackNoG       = "Glass found. Make sure the G mark is facing the camera."
	FeedbackCentered  = "Keep the glass centered in the frame."
	FeedbackHoldStill = "Hold still..."
	FeedbackScoring   = "Looking good. Scoring your pour..."
)

// gate tracks the consecutive-detection streak that decides when a frame
// is steady enough to score.
type gate struct {
	streak        int
	gateThreshold int
	holdThreshold int
}

// advance applies one tick's detections and returns the feedback to show
// and whether the gate opened. The streak resets whenever either class
// is missing, glass taking priority in the feedback.
func (g *gate) advance(dets []detect.Detection) (feedback string, ready bool) {
	hasGlass := detect.HasClass(dets, detect.ClassGlass)
	hasG := detect.HasClass(dets, detect.ClassG)

	if !hasGlass {
		g.streak = 0
		return FeedbackNoGlass, false
	}
	if !hasG {
		g.streak = 0
		return FeedbackNoG, false
	}

	g.streak++
	switch {
	case g.streak >= g.gateThreshold:
		return FeedbackScoring, true
	case g.streak >= g.holdThreshold:
		return FeedbackHoldStill, false
	default:
		return FeedbackCentered, false
	}
}
