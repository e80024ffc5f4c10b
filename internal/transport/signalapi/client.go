// Package signalapi is the HTTP client for the external recommendation
// signal service. One call per operation, bounded timeout, no retries: a
// failed or timed-out call surfaces as an unsuccessful response.
package signalapi

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/signalrank/signalrank/internal/domain"
	"github.com/signalrank/signalrank/internal/domain/signal"
	"github.com/signalrank/signalrank/internal/metrics"
)

const (
	defaultBaseURL = "https://api.recompi.com"
	defaultTimeout = 10 * time.Second

	// EnvAPIKey is the process-wide credential fallback.
	EnvAPIKey = "SIGNALRANK_API_KEY"
)

// Config holds the signal service client settings.
type Config struct {
	// APIKey authenticates the campaign. Falls back to the EnvAPIKey
	// environment variable when empty.
	APIKey string
	// BaseURL overrides the service endpoint.
	BaseURL string
	// Secure downgrades to plain HTTP when false and BaseURL is unset.
	Secure *bool
	// Salt digests secure profile IDs before transmission.
	Salt string
	// Timeout bounds each call.
	Timeout time.Duration
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Compile-time check: Client implements signal.Client.
var _ signal.Client = (*Client)(nil)

// Client talks to the signal service.
type Client struct {
	apiKey  string
	baseURL string
	salt    string
	http    *http.Client
	logger  *zap.Logger
}

// New creates a signal service client. The credential resolves from the
// config, then the process environment; none found is ErrMissingCredential.
func New(cfg Config) (*Client, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(EnvAPIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: no API key in config or $%s", domain.ErrMissingCredential, EnvAPIKey)
	}
	if strings.TrimSpace(apiKey) != apiKey || apiKey == "" {
		return nil, fmt.Errorf("%w: API key must not carry surrounding whitespace", domain.ErrValidation)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
		if cfg.Secure != nil && !*cfg.Secure {
			baseURL = strings.Replace(baseURL, "https://", "http://", 1)
		}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		salt:    cfg.Salt,
		http:    httpClient,
		logger:  logger,
	}, nil
}

// WithCredential returns a client using the given API key.
func (c *Client) WithCredential(key string) signal.Client {
	out := *c
	out.apiKey = key
	return &out
}

type recommendRequest struct {
	Campaign string        `json:"campaign"`
	Labels   []string      `json:"labels"`
	Profiles []wireProfile `json:"profiles,omitempty"`
	Geo      *signal.Geo   `json:"geo,omitempty"`
}

type trackRequest struct {
	Campaign string           `json:"campaign"`
	Label    string           `json:"label"`
	Tags     []signal.Tag     `json:"tags"`
	Profiles []wireProfile    `json:"profiles,omitempty"`
	Location *signal.Location `json:"location,omitempty"`
	Geo      *signal.Geo      `json:"geo,omitempty"`
}

type wireProfile struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Recommend requests signals for the namespaced labels.
func (c *Client) Recommend(
	ctx context.Context, labels []string,
	profiles []signal.Profile, geo *signal.Geo,
) (*signal.Response, error) {
	req := recommendRequest{
		Campaign: c.apiKey,
		Labels:   labels,
		Profiles: c.wireProfiles(profiles),
		Geo:      geo,
	}
	return c.post(ctx, "recom", "/v1/recom", req)
}

// Track pushes an interaction's tags.
func (c *Client) Track(
	ctx context.Context, label string, tags []signal.Tag,
	profiles []signal.Profile, location *signal.Location, geo *signal.Geo,
) (*signal.Response, error) {
	if tags == nil {
		tags = []signal.Tag{}
	}
	req := trackRequest{
		Campaign: c.apiKey,
		Label:    label,
		Tags:     tags,
		Profiles: c.wireProfiles(profiles),
		Location: location,
		Geo:      geo,
	}
	return c.post(ctx, "push", "/v1/push", req)
}

// wireProfiles digests secure profile IDs so plaintext identities never
// leave the process.
func (c *Client) wireProfiles(profiles []signal.Profile) []wireProfile {
	out := make([]wireProfile, len(profiles))
	for i, p := range profiles {
		id := p.ID
		if p.Secure {
			id = signal.Digest(id, c.salt)
		}
		out[i] = wireProfile{Name: p.Name, ID: id}
	}
	return out
}

func (c *Client) post(ctx context.Context, op, path string, payload any) (*signal.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", op, err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	duration := time.Since(start)

	if err != nil {
		metrics.SignalRequestsTotal.WithLabelValues(op, "error").Inc()
		c.logger.Warn("signal service call failed",
			zap.String("op", op), zap.Duration("duration", duration), zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrServiceUnavailable, op, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	metrics.SignalRequestDuration.WithLabelValues(op).Observe(duration.Seconds())

	var resp signal.Response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		metrics.SignalRequestsTotal.WithLabelValues(op, "error").Inc()
		return nil, fmt.Errorf("%w: %s: decode response: %v", domain.ErrServiceUnavailable, op, err)
	}
	resp.Status = httpResp.StatusCode

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		resp.Success = false
	}

	status := "success"
	if !resp.Success {
		status = "rejected"
	}
	metrics.SignalRequestsTotal.WithLabelValues(op, status).Inc()

	return &resp, nil
}
