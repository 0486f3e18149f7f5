// Package camera provides frame sources for the live gate loop.
// A Source yields JPEG frames; the session owns exactly one Source at a
// time and must Close it on every exit path.
package camera

import "errors"

// Target capture resolution. Portrait, matching the pour-scoring page.
const (
	TargetWidth  = 720
	TargetHeight = 960
)

var (
	// ErrNoFrame is returned when no frame is available yet.
	ErrNoFrame = errors.New("camera: no frame available")

	// ErrClosed is returned when capturing from a closed source.
	ErrClosed = errors.New("camera: source closed")
)

// Source is the capability interface for camera access.
type Source interface {
	// CaptureFrame returns the current frame as JPEG data.
	CaptureFrame() ([]byte, error)

	// Close releases the underlying device or stream. Safe to call
	// more than once.
	Close() error
}
