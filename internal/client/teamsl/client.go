package teamsl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"spielebasar/internal/metrics"
)

const (
	DefaultBaseURL = "https://www.basketball-bund.net"
	maxBodyBytes   = 8 << 20
	maxErrorBody   = 512
)

type Options struct {
	BaseURL      string
	Timeout      time.Duration
	RequestRate  float64
	RequestBurst int
	// Location decides which local midnight the search date starts from.
	Location   *time.Location
	HTTPClient *http.Client
}

// Client talks to the federation's referee portal. It holds no session state;
// every call takes the *Session returned by Authenticate.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	location   *time.Location
	logger     *zap.Logger
	now        func() time.Time
}

func New(opts Options, logger *zap.Logger) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	hc := &http.Client{Timeout: timeout}
	if opts.HTTPClient != nil {
		// Work on a copy so a shared client keeps its redirect policy.
		cp := *opts.HTTPClient
		hc = &cp
	}
	// Redirects are answers here: the login form replies with one, and an
	// expired session bounces REST calls to the login page.
	hc.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	limit := rate.Inf
	if opts.RequestRate > 0 {
		limit = rate.Limit(opts.RequestRate)
	}
	burst := opts.RequestBurst
	if burst <= 0 {
		burst = 1
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    base,
		httpClient: hc,
		limiter:    rate.NewLimiter(limit, burst),
		location:   loc,
		logger:     logger,
		now:        time.Now,
	}
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (c *Client) do(ctx context.Context, endpoint string, req *http.Request) (*response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &FetchError{Endpoint: endpoint, Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(endpoint, "error").Inc()
		return nil, &FetchError{Endpoint: endpoint, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	metrics.UpstreamRequests.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &FetchError{Endpoint: endpoint, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	return &response{status: resp.StatusCode, header: resp.Header, body: body}, nil
}

// doJSON sends an authenticated REST call and decodes a 200 answer into out.
func (c *Client) doJSON(ctx context.Context, endpoint, method, path string, sess *Session, payload any, out any) ([]byte, error) {
	if sess == nil || sess.Cookie == "" {
		return nil, &AuthError{Reason: "no session"}
	}
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", endpoint, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Cookie", sess.Cookie)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.do(ctx, endpoint, req)
	if err != nil {
		return nil, err
	}
	if resp.status != http.StatusOK {
		return nil, &FetchError{Endpoint: endpoint, Status: resp.status, Body: truncate(resp.body)}
	}
	if out != nil {
		if err := json.Unmarshal(resp.body, out); err != nil {
			return resp.body, &FetchError{Endpoint: endpoint, Status: resp.status, Err: fmt.Errorf("decode: %w", err)}
		}
	}
	return resp.body, nil
}

func truncate(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}
