// Package detect provides local object detection for the pour scorer.
// A Detector reports which of the qualifying classes (the pint glass and
// the printed G mark) are visible in a frame; the gate loop decides from
// that when a frame is steady enough to score.
package detect

// Class labels produced by the split-G model.
const (
	ClassGlass = "glass"
	ClassG     = "G"
)

// Detection represents one detected object instance in a frame
type Detection struct {
	Class      string  // Class label ("glass", "G")
	Confidence float64 // Detection confidence (0-1)
	X, Y       float64 // Top-left position (0-1 normalized)
	W, H       float64 // Width and height (0-1 normalized)
}

// Center returns the center point of the detection
func (d Detection) Center() (x, y float64) {
	return d.X + d.W/2, d.Y + d.H/2
}

// Detector is the interface for detection backends
type Detector interface {
	// Detect finds objects in the JPEG image
	Detect(jpeg []byte) ([]Detection, error)

	// Close releases resources
	Close() error
}

// Config holds detector configuration
type Config struct {
	ModelPath        string   // Path to ONNX model
	Classes          []string // Class labels in model output order
	ConfidenceThresh float32  // Minimum confidence (default 0.4)
	NMSThresh        float32  // Non-max suppression threshold
	InputWidth       int      // Model input width
	InputHeight      int      // Model input height
}

// DefaultConfig returns production defaults for the split-G model
func DefaultConfig() Config {
	return Config{
		ModelPath:        "models/split-g.onnx",
		Classes:          []string{ClassGlass, ClassG},
		ConfidenceThresh: 0.4,
		NMSThresh:        0.45,
		InputWidth:       640,
		InputHeight:      640,
	}
}

// HasClass reports whether any detection carries the given class label.
func HasClass(dets []Detection, class string) bool {
	for _, d := range dets {
		if d.Class == class {
			return true
		}
	}
	return false
}

// Best returns the highest-confidence detection of the given class, or
// nil when the class is absent.
func Best(dets []Detection, class string) *Detection {
	var best *Detection
	for i := range dets {
		if dets[i].Class != class {
			continue
		}
		if best == nil || dets[i].Confidence > best.Confidence {
			best = &dets[i]
		}
	}
	return best
}
