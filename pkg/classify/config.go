package classify

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/splitg/go-splitg/internal/httpc"
)

// Config holds workflow client configuration.
type Config struct {
	// WorkflowURL is the hosted workflow endpoint.
	WorkflowURL string
	// APIKey authenticates the request; it travels in the request body
	// per the workflow contract.
	APIKey string

	// Timeout bounds one classification call.
	Timeout time.Duration

	// HTTPClient overrides the shared client (tests).
	HTTPClient *http.Client

	// Logger is the structured logger.
	Logger *slog.Logger
}

// Option is a functional option for configuring the workflow client.
type Option func(*Config)

// WithWorkflowURL sets the workflow endpoint.
func WithWorkflowURL(url string) Option {
	return func(c *Config) { c.WorkflowURL = url }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Config) { c.HTTPClient = hc }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns sensible defaults for the hosted workflow.
func DefaultConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
		Logger:  slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// client returns the configured HTTP client, deriving one from the
// shared defaults when none was supplied.
func (c *Config) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	if c.Timeout > 0 && c.Timeout != httpc.DefaultTimeout {
		return httpc.NewClient(c.Timeout)
	}
	return httpc.Client
}
