package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/handsign/internal/log"
)

// Default client settings.
const (
	DefaultBaseURL        = "http://localhost:5000"
	DefaultTimeout        = 5 * time.Second
	DefaultConnectTimeout = 2 * time.Second

	maxResponseBytes = 1 << 20
)

// Config holds gateway configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// DefaultConfig returns a Config pointing at a local classifier.
func DefaultConfig() Config {
	return Config{
		BaseURL: DefaultBaseURL,
		Timeout: DefaultTimeout,
	}
}

// Gateway is a stateless wrapper around the classifier endpoints.
// It never retries and never returns errors to the pipeline: failures are
// logged and reported as a Result without text.
type Gateway struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewGateway creates a Gateway.
func NewGateway(cfg Config) *Gateway {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	client := cfg.HTTPClient
	if client == nil {
		client = newHTTPClient(cfg.Timeout)
	}

	return &Gateway{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		http:    client,
		logger:  log.Component(cfg.Logger, "classify.gateway"),
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DefaultConnectTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// response covers both /classify and /reset_text answers.
type response struct {
	Text     *string `json:"text"`
	Gesture  *string `json:"gesture"`
	Accepted bool    `json:"accepted"`
	Error    string  `json:"error"`
}

// Classify posts a payload to /classify.
func (g *Gateway) Classify(ctx context.Context, p Payload) Result {
	body, err := json.Marshal(p)
	if err != nil {
		g.logger.Warn("encode payload", "error", err)
		return Result{}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/classify", bytes.NewReader(body))
	if err != nil {
		g.logger.Warn("build classify request", "error", err)
		return Result{}
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := g.do(req)
	if err != nil {
		g.report("classify", err)
		return Result{}
	}
	return res
}

// ResetText asks the backend to clear its recognized-text state. The
// returned text, when present, is the new authoritative display value.
func (g *Gateway) ResetText(ctx context.Context) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/reset_text", nil)
	if err != nil {
		g.logger.Warn("build reset request", "error", err)
		return Result{}
	}

	res, err := g.do(req)
	if err != nil {
		g.report("reset_text", err)
		return Result{}
	}
	return res
}

func (g *Gateway) do(req *http.Request) (Result, error) {
	req.Header.Set("Accept", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}

	var r response
	decodeErr := json.Unmarshal(data, &r)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, &APIError{StatusCode: resp.StatusCode, Message: r.Error}
	}
	if decodeErr != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedResponse, decodeErr)
	}
	if r.Error != "" {
		return Result{}, &APIError{StatusCode: resp.StatusCode, Message: r.Error}
	}

	res := Result{Text: r.Text, Accepted: r.Accepted}
	if r.Gesture != nil {
		res.Gesture = *r.Gesture
	}
	return res, nil
}

// report logs a failed call. Cancellation is expected when a session stops,
// so it is logged at debug level only.
func (g *Gateway) report(endpoint string, err error) {
	if errors.Is(err, context.Canceled) {
		g.logger.Debug("request cancelled", "endpoint", endpoint)
		return
	}
	g.logger.Warn("classifier request failed", "endpoint", endpoint, "error", err)
}
