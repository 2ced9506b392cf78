package powerbi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://wabi-us-gov-iowa-api.analysis.usgovcloudapi.net/public/reports"

	ResourceKeyHeader = "X-PowerBI-ResourceKey"
)

type Option func(*Client)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

func WithResourceKey(key string) Option {
	return func(c *Client) {
		c.resourceKey = key
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = timeout
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// Client issues report queries against the public reports API.
type Client struct {
	baseURL     string
	resourceKey string
	http        *http.Client
	logger      *zap.Logger
}

func New(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// QueryData posts a query body to the querydata endpoint and returns the
// parsed response. Numbers are kept as json.Number.
func (c *Client) QueryData(ctx context.Context, body []byte) (map[string]any, error) {
	if c.resourceKey == "" {
		return nil, fmt.Errorf("powerbi: resource key is required")
	}

	endpoint := c.baseURL + "/querydata"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(ResourceKeyHeader, c.resourceKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("powerbi: querydata: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("querydata response",
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("powerbi: querydata: unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	return DecodeResponse(resp.Body)
}

// DecodeResponse parses a querydata response body.
func DecodeResponse(r io.Reader) (map[string]any, error) {
	v, err := DecodeResponseValue(r)
	if err != nil {
		return nil, err
	}
	out, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("powerbi: decoding response: %T is not an object", v)
	}
	return out, nil
}

// DecodeResponseValue parses any JSON value the way responses are parsed,
// keeping numbers as json.Number.
func DecodeResponseValue(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("powerbi: decoding response: %w", err)
	}
	return out, nil
}
