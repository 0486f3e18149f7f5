// splitg - camera-gated pour scoring server
// Watches a camera for a glass with a visible G, freezes the frame when
// the detection streak holds, and scores the pour on a hosted workflow.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/splitg/go-splitg/internal/config"
	"github.com/splitg/go-splitg/internal/log"
	"github.com/splitg/go-splitg/pkg/classify"
	"github.com/splitg/go-splitg/pkg/detect"
	"github.com/splitg/go-splitg/pkg/ingest"
	"github.com/splitg/go-splitg/pkg/session"
	"github.com/splitg/go-splitg/pkg/web"
)

func main() {
	addr := flag.String("addr", config.Addr(), "web server listen address")
	agentAddr := flag.String("agent-addr", config.AgentAddr(), "camera agent hub listen address (empty disables agent ingest)")
	modelPath := flag.String("model", config.ModelPath(), "path to the detection model")
	workflowURL := flag.String("workflow", config.WorkflowURL(), "hosted classification workflow URL")
	logLevel := flag.String("log-level", config.LogLevel(), "log level: debug, info, warn, error")
	flag.Parse()

	log.Init(*logLevel)

	apiKey := config.APIKey()

	detCfg := detect.DefaultConfig()
	detCfg.ModelPath = *modelPath
	detector, err := detect.NewONNX(detCfg)
	if err != nil {
		log.Error("failed to load detection model", "path", *modelPath, "error", err)
		os.Exit(1)
	}
	defer detector.Close()

	classifier, err := classify.NewWorkflowClient(
		classify.WithWorkflowURL(*workflowURL),
		classify.WithAPIKey(apiKey),
		classify.WithLogger(log.L()),
	)
	if err != nil {
		log.Error("failed to build workflow client", "error", err)
		os.Exit(1)
	}

	sessCfg := session.DefaultConfig()
	sessCfg.Logger = log.L()
	sessCfg.GateThreshold = config.EnvInt("SPLITG_GATE_STREAK", sessCfg.GateThreshold)
	sessCfg.HoldThreshold = config.EnvInt("SPLITG_HOLD_STREAK", sessCfg.HoldThreshold)
	if ms := config.EnvInt("SPLITG_POLL_MS", 0); ms > 0 {
		sessCfg.PollInterval = time.Duration(ms) * time.Millisecond
	}
	manager := session.NewManager(detector, classifier, sessCfg)

	// Camera agents dial in on their own listener, kept off the public
	// web port.
	var agents *ingest.Hub
	if *agentAddr != "" {
		agents = ingest.NewHub()
		agentApp := fiber.New(fiber.Config{
			AppName:               "splitg-agent-hub",
			DisableStartupMessage: true,
		})
		agents.RegisterRoutes(agentApp)
		go func() {
			log.Info("agent hub listening", "addr", *agentAddr)
			if err := agentApp.Listen(*agentAddr); err != nil {
				log.Error("agent hub stopped", "error", err)
			}
		}()
		defer agentApp.Shutdown()
	}

	server := web.NewServer(*addr, manager, agents)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			log.Error("web server stopped", "error", err)
		}
	}

	if err := server.Shutdown(); err != nil {
		log.Error("shutdown error", "error", err)
	}
}
