package camera

import (
	"bytes"
	"fmt"
	"os/exec"
	"sync"
	"time"
)

// H264Decoder converts H264 NAL data to JPEG frames by piping through
// ffmpeg. Single-shot with pipes rather than temp files; rate limited so
// a fast track does not spawn a subprocess per packet.
type H264Decoder struct {
	// Latest decoded frame
	latestFrame []byte
	frameMu     sync.RWMutex

	// Decode rate limiting
	lastDecode  time.Time
	minInterval time.Duration
	mu          sync.Mutex
}

// NewH264Decoder creates a decoder. decodeInterval controls how often a
// frame is actually decoded (e.g. 100ms = at most 10 FPS).
func NewH264Decoder(decodeInterval time.Duration) *H264Decoder {
	return &H264Decoder{
		minInterval: decodeInterval,
		lastDecode:  time.Now(),
	}
}

// DecodeNAL decodes buffered H264 NAL units to a JPEG frame. Returns the
// previously decoded frame when rate limited or when ffmpeg could not
// produce a frame from the data it was given.
func (d *H264Decoder) DecodeNAL(nalData []byte) ([]byte, error) {
	if len(nalData) < 100 {
		return nil, nil
	}

	d.mu.Lock()
	if time.Since(d.lastDecode) < d.minInterval {
		d.mu.Unlock()
		return d.LatestFrame(), nil
	}
	d.lastDecode = time.Now()
	d.mu.Unlock()

	cmd := exec.Command("ffmpeg",
		"-f", "h264", // Input format
		"-i", "pipe:0", // Read from stdin
		"-vframes", "1", // Just one frame
		"-f", "image2pipe", // Output as pipe
		"-vcodec", "mjpeg", // Output as JPEG
		"-q:v", "3", // Quality (1-31, lower is better)
		"pipe:1", // Write to stdout
	)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("camera: ffmpeg stdin: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("camera: start ffmpeg: %w", err)
	}

	go func() {
		stdin.Write(nalData)
		stdin.Close()
	}()

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			// ffmpeg exits nonzero when the buffer held no full frame
			return nil, nil
		}
	case <-time.After(200 * time.Millisecond):
		cmd.Process.Kill()
		<-done
		return nil, nil
	}

	jpeg := stdout.Bytes()
	if len(jpeg) > 1000 {
		d.frameMu.Lock()
		d.latestFrame = jpeg
		d.frameMu.Unlock()
		return jpeg, nil
	}

	return d.LatestFrame(), nil
}

// LatestFrame returns the most recently decoded frame, or nil.
func (d *H264Decoder) LatestFrame() []byte {
	d.frameMu.RLock()
	defer d.frameMu.RUnlock()

	if d.latestFrame == nil {
		return nil
	}

	frame := make([]byte, len(d.latestFrame))
	copy(frame, d.latestFrame)
	return frame
}
