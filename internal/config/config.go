// Package config provides configuration helpers for splitg commands.
// All settings come from the environment with sensible defaults; boot-time
// flags in cmd/ may override them.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Defaults for the server and the detection model.
const (
	DefaultAddr        = ":8080"
	DefaultAgentAddr   = ":8090"
	DefaultModelPath   = "models/split-g.onnx"
	DefaultWorkflowURL = "https://serverless.roboflow.com/infer/workflows/split-g/score-pour"
)

// APIKey returns the hosted workflow API key from SPLITG_API_KEY.
// Exits with a usage hint if not set.
func APIKey() string {
	key := os.Getenv("SPLITG_API_KEY")
	if key == "" {
		fmt.Fprintln(os.Stderr, "Error: SPLITG_API_KEY environment variable is required")
		fmt.Fprintln(os.Stderr, "Usage: SPLITG_API_KEY=your-key go run ./cmd/splitg")
		os.Exit(1)
	}
	return key
}

// WorkflowURL returns the classification workflow endpoint from
// SPLITG_WORKFLOW_URL, falling back to the default.
func WorkflowURL() string {
	if url := os.Getenv("SPLITG_WORKFLOW_URL"); url != "" {
		return url
	}
	return DefaultWorkflowURL
}

// ModelPath returns the local detector model path from SPLITG_MODEL_PATH.
func ModelPath() string {
	if p := os.Getenv("SPLITG_MODEL_PATH"); p != "" {
		return p
	}
	return DefaultModelPath
}

// Addr returns the web server listen address from SPLITG_ADDR.
func Addr() string {
	if a := os.Getenv("SPLITG_ADDR"); a != "" {
		return a
	}
	return DefaultAddr
}

// AgentAddr returns the camera agent hub listen address from
// SPLITG_AGENT_ADDR.
func AgentAddr() string {
	if a := os.Getenv("SPLITG_AGENT_ADDR"); a != "" {
		return a
	}
	return DefaultAgentAddr
}

// LogLevel returns the log level from SPLITG_LOG_LEVEL (default "info").
func LogLevel() string {
	if l := os.Getenv("SPLITG_LOG_LEVEL"); l != "" {
		return l
	}
	return "info"
}

// EnvInt reads an integer from the environment, falling back to def when
// unset or malformed.
func EnvInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
