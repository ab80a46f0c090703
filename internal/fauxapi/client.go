// Package fauxapi is a minimal client for the pfSense FauxAPI package.
package fauxapi

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/3cpo-dev/metrics-pfsense/internal/stats"
	"github.com/3cpo-dev/metrics-pfsense/pkg/api"
)

// AuthHeader carries the request token.
const AuthHeader = "fauxapi-auth"

// DefaultTimeout bounds a single request when Target.Timeout is unset.
const DefaultTimeout = 30 * time.Second

const maxErrorBody = 512

// maxResponseBody caps how much of a response is read into memory.
var maxResponseBody int64 = 8 << 20

var (
	// ErrRequest wraps transport and TLS failures.
	ErrRequest = errors.New("fauxapi request failed")
	// ErrDecode wraps malformed response bodies.
	ErrDecode = errors.New("fauxapi response is not valid JSON")
	// ErrMissingStats is returned when data.stats is absent.
	ErrMissingStats = errors.New("fauxapi response has no data.stats")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("fauxapi status %d", e.Code)
	}
	return fmt.Sprintf("fauxapi status %d: %s", e.Code, e.Message)
}

// Target describes where and how to reach the firewall.
type Target struct {
	Host     string
	Port     int
	HTTPS    bool
	Insecure bool
	Verbose  bool
	Timeout  time.Duration
}

// Scheme returns "https" when HTTPS is set, else "http".
func (t Target) Scheme() string {
	if t.HTTPS {
		return "https"
	}
	return "http"
}

// BaseURL returns scheme://host:port.
func (t Target) BaseURL() string {
	return t.Scheme() + "://" + net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// Client talks to a single firewall.
type Client struct {
	target    Target
	signer    *Signer
	http      *http.Client
	userAgent string
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The caller is then
// responsible for its TLS settings.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithSigner replaces the default signer.
func WithSigner(s *Signer) Option {
	return func(c *Client) { c.signer = s }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient creates a client for target authenticated with creds.
func NewClient(target Target, creds Credentials, opts ...Option) *Client {
	timeout := target.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		target:    target,
		signer:    NewSigner(creds),
		http:      &http.Client{Timeout: timeout, Transport: newTransport(target.Insecure)},
		userAgent: "metrics-pfsense",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newTransport(insecure bool) *http.Transport {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: insecure}
	return tr
}

// Endpoint returns the URL for action, with __debug mirroring Verbose.
func (c *Client) Endpoint(action api.Action) string {
	debug := "FALSE"
	if c.target.Verbose {
		debug = "TRUE"
	}
	return fmt.Sprintf("%s/fauxapi/v1/?action=%s&__debug=%s", c.target.BaseURL(), action, debug)
}

// SystemStats fetches data.stats from the system_stats action.
func (c *Client) SystemStats(ctx context.Context) (*stats.Object, error) {
	var data api.SystemStatsData
	if err := c.getJSON(ctx, api.ActionSystemStats, &data); err != nil {
		return nil, err
	}
	if len(data.Stats) == 0 || string(data.Stats) == "null" {
		return nil, ErrMissingStats
	}
	obj, err := stats.ParseObject(data.Stats)
	if err != nil {
		return nil, fmt.Errorf("%w: data.stats: %v", ErrDecode, err)
	}
	return obj, nil
}

// getJSON performs one signed GET and decodes the envelope's data member
// into out.
func (c *Client) getJSON(ctx context.Context, action api.Action, out interface{}) error {
	token, err := c.signer.Sign()
	if err != nil {
		return fmt.Errorf("sign request: %w", err)
	}
	url := c.Endpoint(action)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrRequest, err)
	}
	req.Header.Set(AuthHeader, token)
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	log.Debug().
		Str("url", url).
		Str("key", c.signer.Credentials.Key).
		Bool("tls_verify", !c.target.Insecure).
		Msg("Requesting FauxAPI action")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody+1))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrRequest, err)
	}
	if int64(len(body)) > maxResponseBody {
		return fmt.Errorf("%w: response body exceeds %d bytes", ErrRequest, maxResponseBody)
	}
	log.Debug().
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Dur("duration", time.Since(start)).
		Msg("FauxAPI responded")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Message: errorMessage(body)}
	}

	var env api.Response
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		if env.Message != "" {
			return fmt.Errorf("%w (message: %s)", ErrMissingStats, env.Message)
		}
		return ErrMissingStats
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: data: %v", ErrDecode, err)
	}
	return nil
}

// errorMessage prefers the envelope message and falls back to the
// beginning of the raw body.
func errorMessage(body []byte) string {
	var env api.Response
	if err := json.Unmarshal(body, &env); err == nil && env.Message != "" {
		return env.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody] + "..."
	}
	return msg
}
