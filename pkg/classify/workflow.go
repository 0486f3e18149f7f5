package classify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WorkflowClient is the HTTP client for the hosted scoring workflow.
type WorkflowClient struct {
	config *Config
}

// NewWorkflowClient creates a workflow client.
func NewWorkflowClient(opts ...Option) (*WorkflowClient, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if cfg.WorkflowURL == "" {
		return nil, ErrNoWorkflowURL
	}
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	cfg.Logger = cfg.Logger.With("component", "classify.workflow")
	return &WorkflowClient{config: cfg}, nil
}

// workflowRequest is the wire format the workflow expects.
type workflowRequest struct {
	APIKey string         `json:"api_key"`
	Inputs workflowInputs `json:"inputs"`
}

type workflowInputs struct {
	Image workflowImage `json:"image"`
}

type workflowImage struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// workflowResponse mirrors the workflow's output envelope.
type workflowResponse struct {
	Outputs []struct {
		ModelPredictions struct {
			Predictions []Prediction `json:"predictions"`
		} `json:"model_predictions"`
		BoundingBoxVisualization *struct {
			Value string `json:"value"`
		} `json:"bounding_box_visualization"`
	} `json:"outputs"`
}

// Classify submits one JPEG frame to the workflow and maps the response.
func (c *WorkflowClient) Classify(ctx context.Context, jpeg []byte) (*Result, error) {
	if len(jpeg) == 0 {
		return nil, ErrEmptyFrame
	}

	start := time.Now()

	payload := workflowRequest{
		APIKey: c.config.APIKey,
		Inputs: workflowInputs{
			Image: workflowImage{
				Type:  "base64",
				Value: base64.StdEncoding.EncodeToString(jpeg),
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("classify: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.WorkflowURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("classify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.config.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("classify: workflow request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("classify: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.parseError(resp.StatusCode, respBody)
	}

	var wr workflowResponse
	if err := json.Unmarshal(respBody, &wr); err != nil {
		return nil, fmt.Errorf("classify: decode response: %w", err)
	}

	result := &Result{Outcome: OutcomeNoGlass}
	if len(wr.Outputs) > 0 {
		out := wr.Outputs[0]
		result.Predictions = out.ModelPredictions.Predictions
		result.Outcome = MapOutcome(result.Predictions)

		if out.BoundingBoxVisualization != nil && out.BoundingBoxVisualization.Value != "" {
			vis, err := base64.StdEncoding.DecodeString(out.BoundingBoxVisualization.Value)
			if err != nil {
				// An unreadable visualization is cosmetic, the score stands
				c.config.Logger.Warn("dropping malformed visualization", "error", err)
			} else {
				result.Visualization = vis
			}
		}
	}

	c.config.Logger.Info("frame scored",
		"outcome", result.Outcome,
		"predictions", len(result.Predictions),
		"latency_ms", time.Since(start).Milliseconds())

	return result, nil
}

// parseError extracts a message from an error response body.
func (c *WorkflowClient) parseError(status int, body []byte) error {
	var errResp struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	msg := ""
	if err := json.Unmarshal(body, &errResp); err == nil {
		msg = errResp.Message
		if msg == "" {
			msg = errResp.Error
		}
	}
	return &APIError{StatusCode: status, Message: msg}
}
