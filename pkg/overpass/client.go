// Package overpass is a small client for the Overpass API interpreter
// endpoint. It issues one query shape: ways carrying a tag key around a point.
package overpass

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/roadtype-cli/internal/resilience"
)

const (
	// DefaultEndpoint is the public interpreter instance.
	DefaultEndpoint = "https://overpass-api.de/api/interpreter"
	// DefaultUserAgent identifies this client to the public instance.
	DefaultUserAgent = "ADAS-Overpass-Client/1.0"
	// DefaultRequestTimeout bounds one HTTP round trip, independent of the
	// server-side timeout declared in the query.
	DefaultRequestTimeout = 60 * time.Second

	maxErrorBody = 512
)

// ErrEmptyResponse is returned when the server answers 2xx with no body.
var ErrEmptyResponse = eris.New("overpass: empty response body")

// Client runs queries against the interpreter endpoint.
type Client interface {
	// Interpreter submits q and decodes the response.
	Interpreter(ctx context.Context, q Query) (*Response, error)
}

// Option configures the client.
type Option func(*client)

// WithEndpoint overrides the interpreter URL.
func WithEndpoint(endpoint string) Option {
	return func(c *client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithTimeout sets the overall per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRateLimit caps requests per second. rps <= 0 leaves requests unlimited.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		if rps <= 0 {
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

type client struct {
	endpoint   string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a Client for the public endpoint unless overridden.
func NewClient(opts ...Option) Client {
	c := &client{
		endpoint:   DefaultEndpoint,
		userAgent:  DefaultUserAgent,
		httpClient: &http.Client{Timeout: DefaultRequestTimeout},
		limiter:    rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Interpreter implements Client. Non-2xx responses are errors. Overload
// statuses, request timeouts and dropped connections are wrapped as
// resilience.TransientError.
func (c *client) Interpreter(ctx context.Context, q Query) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "overpass: rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(q.String()))
	if err != nil {
		return nil, eris.Wrap(err, "overpass: build request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		wrapped := eris.Wrap(err, "overpass: request")
		if ctx.Err() == nil && transientTransport(err) {
			return nil, resilience.NewTransientError(wrapped, 0)
		}
		return nil, wrapped
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := eris.Errorf("overpass: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "overpass: read body")
	}
	if len(body) == 0 {
		return nil, ErrEmptyResponse
	}

	return DecodeResponse(body)
}

// transientTransport reports whether a round-trip error is a timeout or a
// connection the server dropped. A refused connection is not transient.
func transientTransport(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}
