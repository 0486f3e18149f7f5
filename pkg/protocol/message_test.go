package protocol

import (
	"testing"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		data    interface{}
	}{
		{
			name:    "frame message",
			msgType: TypeFrame,
			data:    FrameData{Width: 720, Height: 960, Format: "jpeg"},
		},
		{
			name:    "hello message",
			msgType: TypeHello,
			data:    HelloData{AgentID: "cam-1", Name: "kitchen"},
		},
		{
			name:    "nil data",
			msgType: TypePing,
			data:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.msgType, tt.data)
			if err != nil {
				t.Fatalf("NewMessage() error = %v", err)
			}
			if msg.Type != tt.msgType {
				t.Errorf("NewMessage() type = %v, want %v", msg.Type, tt.msgType)
			}
			if msg.Timestamp == 0 {
				t.Error("NewMessage() timestamp should be set")
			}
		})
	}
}

func TestFrameMessageRoundTrip(t *testing.T) {
	jpeg := []byte{0xff, 0xd8, 0xff, 0xe0, 0x01, 0x02}

	msg, err := NewFrameMessage(720, 960, jpeg, 42)
	if err != nil {
		t.Fatalf("NewFrameMessage() error = %v", err)
	}

	encoded, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	parsed, err := ParseMessage(encoded)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	if parsed.Type != TypeFrame {
		t.Fatalf("parsed type = %v, want frame", parsed.Type)
	}

	frame, err := parsed.GetFrameData()
	if err != nil {
		t.Fatalf("GetFrameData() error = %v", err)
	}
	if frame.Width != 720 || frame.Height != 960 || frame.FrameID != 42 {
		t.Errorf("frame header = %dx%d id %d", frame.Width, frame.Height, frame.FrameID)
	}

	decoded, err := frame.DecodeFrameData()
	if err != nil {
		t.Fatalf("DecodeFrameData() error = %v", err)
	}
	if string(decoded) != string(jpeg) {
		t.Error("frame payload did not survive the round trip")
	}
}

func TestParseMessage_Invalid(t *testing.T) {
	if _, err := ParseMessage([]byte("{not json")); err == nil {
		t.Error("ParseMessage should fail on malformed input")
	}
}
