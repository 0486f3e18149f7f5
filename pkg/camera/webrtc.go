package camera

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"

	"github.com/splitg/go-splitg/internal/log"
)

// WebRTCSource receives the browser's camera track over WebRTC and
// exposes decoded JPEG frames. The page captures the device camera with
// getUserMedia and sends a single recvonly video track here.
type WebRTCSource struct {
	pc      *webrtc.PeerConnection
	decoder *H264Decoder

	frameMu     sync.RWMutex
	latestFrame []byte
	received    time.Time

	mu     sync.Mutex
	closed bool
}

// NewWebRTCSource answers the browser's SDP offer and starts consuming
// its video track. The returned answer (with ICE candidates gathered)
// goes back to the browser.
func NewWebRTCSource(offerSDP string) (*WebRTCSource, string, error) {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return nil, "", fmt.Errorf("camera: peer connection: %w", err)
	}

	s := &WebRTCSource{
		pc:      pc,
		decoder: NewH264Decoder(100 * time.Millisecond),
	}

	if _, err = pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	}); err != nil {
		pc.Close()
		return nil, "", fmt.Errorf("camera: add transceiver: %w", err)
	}

	pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		log.Debug("webrtc track", "kind", track.Kind().String(), "codec", track.Codec().MimeType)
		if track.Kind() == webrtc.RTPCodecTypeVideo {
			go s.consumeTrack(track)
		}
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		log.Debug("webrtc connection state", "state", state.String())
		if state == webrtc.PeerConnectionStateFailed || state == webrtc.PeerConnectionStateClosed {
			s.Close()
		}
	})

	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: offerSDP}
	if err := pc.SetRemoteDescription(offer); err != nil {
		pc.Close()
		return nil, "", fmt.Errorf("camera: set remote description: %w", err)
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		pc.Close()
		return nil, "", fmt.Errorf("camera: create answer: %w", err)
	}

	// Non-trickle: wait for ICE gathering so the answer carries all
	// candidates and no follow-up signalling is needed.
	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		pc.Close()
		return nil, "", fmt.Errorf("camera: set local description: %w", err)
	}

	select {
	case <-gatherComplete:
	case <-time.After(5 * time.Second):
		pc.Close()
		return nil, "", fmt.Errorf("camera: ICE gathering timed out")
	}

	return s, pc.LocalDescription().SDP, nil
}

// consumeTrack collects H264 NAL units from RTP packets and decodes
// them periodically.
func (s *WebRTCSource) consumeTrack(track *webrtc.TrackRemote) {
	var nalBuffer bytes.Buffer
	lastDecode := time.Now()

	for {
		s.mu.Lock()
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return
		}

		rtpPacket, _, err := track.ReadRTP()
		if err != nil {
			return
		}

		nalBuffer.Write(nalPayload(rtpPacket))

		if time.Since(lastDecode) > 100*time.Millisecond {
			if jpeg, err := s.decoder.DecodeNAL(nalBuffer.Bytes()); err == nil && jpeg != nil {
				s.frameMu.Lock()
				s.latestFrame = jpeg
				s.received = time.Now()
				s.frameMu.Unlock()
			}
			nalBuffer.Reset()
			lastDecode = time.Now()
		}
	}
}

// nalPayload extracts the H264 payload from an RTP packet, dropping
// padding-only packets.
func nalPayload(pkt *rtp.Packet) []byte {
	if pkt == nil || len(pkt.Payload) == 0 {
		return nil
	}
	return pkt.Payload
}

// CaptureFrame returns the latest decoded frame.
func (s *WebRTCSource) CaptureFrame() ([]byte, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.mu.Unlock()

	s.frameMu.RLock()
	defer s.frameMu.RUnlock()

	if s.latestFrame == nil || time.Since(s.received) > DefaultMaxAge {
		return nil, ErrNoFrame
	}

	frame := make([]byte, len(s.latestFrame))
	copy(frame, s.latestFrame)
	return frame, nil
}

// Close tears down the peer connection.
func (s *WebRTCSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	return s.pc.Close()
}
