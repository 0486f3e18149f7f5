// splitg-cam - standalone camera agent
// Captures frames from a local camera and streams them to a splitg
// server's agent hub over websocket. Lets the scoring server run on a
// machine with no camera of its own.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/splitg/go-splitg/internal/log"
	"github.com/splitg/go-splitg/pkg/camera"
	"github.com/splitg/go-splitg/pkg/protocol"
)

func main() {
	server := flag.String("server", "localhost:8090", "splitg agent hub host:port")
	deviceID := flag.Int("device", 0, "camera device index")
	agentID := flag.String("id", "", "agent id (default: random)")
	name := flag.String("name", "", "agent display name")
	fps := flag.Int("fps", 4, "frames per second to stream")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	log.Init(*logLevel)

	id := *agentID
	if id == "" {
		id = uuid.NewString()
	}
	displayName := *name
	if displayName == "" {
		host, _ := os.Hostname()
		displayName = host
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *server, id, displayName, *deviceID, *fps); err != nil {
		log.Error("agent stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, server, id, name string, deviceID, fps int) error {
	src, err := camera.OpenDevice(deviceID)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", deviceID, err)
	}
	defer src.Close()

	url := fmt.Sprintf("ws://%s/ws/agent/%s", server, id)
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", url, err)
	}
	defer conn.Close()

	log.Info("connected", "server", server, "agent_id", id)

	hello, err := protocol.NewHelloMessage(id, name, camera.TargetWidth, camera.TargetHeight)
	if err != nil {
		return err
	}
	data, err := hello.Bytes()
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("send hello: %w", err)
	}

	// Control messages are handled in this loop so the connection has a
	// single writer.
	ctrl := make(chan *protocol.Message, 8)
	go readControl(conn, ctrl)

	interval := time.Second / time.Duration(fps)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var frameID uint64
	streaming := false

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ctrl:
			if !ok {
				return fmt.Errorf("connection lost")
			}
			change, reply := applyControl(msg)
			if change != nil && *change != streaming {
				streaming = *change
				log.Info("streaming state changed", "streaming", streaming)
			}
			if reply != nil {
				data, err := reply.Bytes()
				if err != nil {
					continue
				}
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					return fmt.Errorf("send reply: %w", err)
				}
			}
		case <-ticker.C:
			if !streaming {
				continue
			}
			frame, err := src.CaptureFrame()
			if err != nil {
				log.Debug("no frame", "error", err)
				continue
			}
			frameID++
			msg, err := protocol.NewFrameMessage(camera.TargetWidth, camera.TargetHeight, frame, frameID)
			if err != nil {
				continue
			}
			data, err := msg.Bytes()
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return fmt.Errorf("send frame: %w", err)
			}
		}
	}
}

// readControl forwards server messages to the run loop. Closes the
// channel when the connection drops.
func readControl(conn *websocket.Conn, ctrl chan<- *protocol.Message) {
	defer close(ctrl)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil {
			log.Warn("bad control message", "error", err)
			continue
		}
		ctrl <- msg
	}
}

// applyControl maps one server control message to a streaming-state
// change and an optional reply. Nil means no effect.
func applyControl(msg *protocol.Message) (streaming *bool, reply *protocol.Message) {
	switch msg.Type {
	case protocol.TypePause:
		off := false
		return &off, nil
	case protocol.TypeResume:
		on := true
		return &on, nil
	case protocol.TypePing:
		ping, err := msg.GetPingData()
		if err != nil {
			return nil, nil
		}
		pong, err := protocol.NewPongMessage(ping.ID, msg.Timestamp, time.Now().UnixMilli())
		if err != nil {
			return nil, nil
		}
		return nil, pong
	}
	return nil, nil
}
