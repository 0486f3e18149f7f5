package camera

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// DeviceSource captures frames from a local camera device through OpenCV.
type DeviceSource struct {
	capture *gocv.VideoCapture
	quality int

	mu     sync.Mutex // Protects capture
	closed bool
}

// OpenDevice opens camera deviceID at the target resolution.
// On multi-camera hardware the rear (environment-facing) camera is
// usually the higher index; callers pick via deviceID.
func OpenDevice(deviceID int) (*DeviceSource, error) {
	capture, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, fmt.Errorf("camera: open device %d: %w", deviceID, err)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(TargetWidth))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(TargetHeight))

	return &DeviceSource{
		capture: capture,
		quality: 85,
	}, nil
}

// CaptureFrame grabs the current frame and encodes it as JPEG.
func (s *DeviceSource) CaptureFrame() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	img := gocv.NewMat()
	defer img.Close()

	if ok := s.capture.Read(&img); !ok || img.Empty() {
		return nil, ErrNoFrame
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img,
		[]int{gocv.IMWriteJpegQuality, s.quality})
	if err != nil {
		return nil, fmt.Errorf("camera: encode frame: %w", err)
	}
	defer buf.Close()

	jpeg := make([]byte, buf.Len())
	copy(jpeg, buf.GetBytes())
	return jpeg, nil
}

// Close releases the capture device.
func (s *DeviceSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.capture.Close()
}
