// Package client is the HTTP client for the peer voting API.
//
// The client is a thin wrapper: it injects the session credential, decodes JSON,
// and classifies failures into an *Error. It never retries, backs off, or caches.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/good-yellow-bee/peervote/internal/metrics"
	"github.com/good-yellow-bee/peervote/internal/session"
)

// maxBodySize bounds how much of a response body is read.
const maxBodySize = 4 << 20

// Config configures a Client.
type Config struct {
	BaseURL    string        // e.g. http://localhost:8000
	AuthScheme string        // Authorization scheme prefix (default: JWT)
	Timeout    time.Duration // per-request timeout; 0 means no client-side limit
	UserAgent  string
	Transport  http.RoundTripper // base transport (default: http.DefaultTransport)
	Logger     *slog.Logger
}

// Client talks to the voting API on behalf of the holder of a Session.
type Client struct {
	baseURL string
	origin  *url.URL
	http    *http.Client
	session session.Session
	logger  *slog.Logger
}

// New creates a Client that reads its credential from sess.
func New(cfg Config, sess session.Session) (*Client, error) {
	if sess == nil {
		return nil, fmt.Errorf("session is required")
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url must be absolute: %q", cfg.BaseURL)
	}

	scheme := cfg.AuthScheme
	if scheme == "" {
		scheme = "JWT"
	}
	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		origin:  u,
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &authTransport{
				base:      base,
				session:   sess,
				scheme:    scheme,
				origin:    u,
				userAgent: cfg.UserAgent,
			},
		},
		session: sess,
		logger:  logger,
	}, nil
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Session returns the credential holder.
func (c *Client) Session() session.Session {
	return c.session
}

// sameOrigin checks that a link returned by the server points at the API host.
// Relative links are returned unchanged and resolved by do.
func (c *Client) sameOrigin(link string) (string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("parse link %q: %w", link, err)
	}
	if !u.IsAbs() {
		return link, nil
	}
	if !sameHost(u, c.origin) {
		return "", fmt.Errorf("link %q leaves %s://%s", link, c.origin.Scheme, c.origin.Host)
	}
	return link, nil
}

func sameHost(a, b *url.URL) bool {
	return strings.EqualFold(a.Scheme, b.Scheme) && strings.EqualFold(a.Host, b.Host)
}

// do performs one request. target is either a path under the base URL or an
// absolute URL (pagination links). out may be nil when the body is not consumed.
func (c *Client) do(ctx context.Context, op, method, target string, in, out any) error {
	endpoint := target
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		endpoint = c.baseURL + target
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return &Error{Op: op, Kind: KindUnexpected, Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return &Error{Op: op, Kind: KindUnexpected, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.APIRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.APIRequestsTotal.WithLabelValues(op, "transport_error").Inc()
		c.logger.Debug("api request failed", "op", op, "method", method, "url", endpoint, "error", err)
		return &Error{Op: op, Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	metrics.APIRequestsTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()
	c.logger.Debug("api request",
		"op", op,
		"method", method,
		"url", endpoint,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &Error{Op: op, Kind: KindTransport, Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{
			Op:     op,
			Kind:   kindForStatus(resp.StatusCode),
			Status: resp.StatusCode,
			Detail: parseDetail(data),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Op: op, Kind: KindUnexpected, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// errNoToken is wrapped when the server accepts a login but sends no token.
var errNoToken = errors.New("response carried no access token")
