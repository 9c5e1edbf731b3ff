package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/amishk599/jobmatch/internal/ratelimit"
	"github.com/amishk599/jobmatch/internal/retry"
)

const maxBodyBytes = 10 << 20

// Kind classifies a failed fetch.
type Kind int

const (
	KindNetwork     Kind = iota + 1 // timeout, reset, proxy failure, 5xx
	KindRateLimited                 // HTTP 429
	KindBlocked                     // HTTP 403 or a block marker in the body
	KindStatus                      // any other non-2xx status
	KindInvalid                     // the request could not be built
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindRateLimited:
		return "rate_limited"
	case KindBlocked:
		return "blocked"
	case KindStatus:
		return "status"
	case KindInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Error is the only error type Fetch returns.
type Error struct {
	URL        string
	Kind       Kind
	StatusCode int // zero for network failures
	Attempts   int
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Attempts > 1 {
		msg += fmt.Sprintf(" after %d attempts", e.Attempts)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Response is a fully read, UTF-8 decoded response.
type Response struct {
	URL        string // final URL after redirects
	StatusCode int
	Header     http.Header
	Body       string
}

// Options configures a Client. Zero values fall back to DefaultOptions.
type Options struct {
	UserAgents    []string
	Proxies       []string // proxy URLs, consumed round-robin
	Timeout       time.Duration
	MaxAttempts   int
	RotateMin     int // rotate the user agent after a random number of requests in [RotateMin, RotateMax]
	RotateMax     int
	RateLimitWait ratelimit.Range
	BlockWait     ratelimit.Range
	NetworkWait   ratelimit.Range
	BlockMarkers  []string // lowercase substrings that mark a body as a block page
	Limiter       *ratelimit.HostLimiter
	Transport     http.RoundTripper // overrides the proxy-aware default transport
	Logger        *slog.Logger
}

// DefaultOptions returns the production tuning.
func DefaultOptions() Options {
	return Options{
		UserAgents:    DefaultUserAgents,
		Timeout:       15 * time.Second,
		MaxAttempts:   3,
		RotateMin:     3,
		RotateMax:     7,
		RateLimitWait: ratelimit.Between(30, 60),
		BlockWait:     ratelimit.Between(10, 20),
		NetworkWait:   ratelimit.Between(2, 5),
		BlockMarkers:  []string{"captcha", "unusual traffic", "request blocked", "access denied"},
	}
}

// Client issues GET requests with rotating identities and retries blocked,
// rate-limited, and failed requests. Each source owns its own Client.
type Client struct {
	http    *http.Client
	pool    *identityPool
	policy  retry.Policy
	timeout time.Duration
	markers []string
	limiter *ratelimit.HostLimiter
	logger  *slog.Logger
	rlWait  ratelimit.Range
	blkWait ratelimit.Range
	netWait ratelimit.Range
}

type proxyKey struct{}

// proxyFromContext selects the proxy chosen for this request by the identity pool.
func proxyFromContext(req *http.Request) (*url.URL, error) {
	if u, ok := req.Context().Value(proxyKey{}).(*url.URL); ok && u != nil {
		return u, nil
	}
	return nil, nil
}

// New creates a Client. It fails only on malformed proxy URLs.
func New(opts Options) (*Client, error) {
	def := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = def.MaxAttempts
	}
	if opts.RotateMin <= 0 {
		opts.RotateMin, opts.RotateMax = def.RotateMin, def.RotateMax
	}
	if opts.BlockMarkers == nil {
		opts.BlockMarkers = def.BlockMarkers
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	proxies := make([]*url.URL, 0, len(opts.Proxies))
	for _, raw := range opts.Proxies {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("invalid proxy %q", raw)
		}
		proxies = append(proxies, u)
	}

	transport := opts.Transport
	if transport == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.Proxy = proxyFromContext
		transport = t
	}

	markers := make([]string, len(opts.BlockMarkers))
	for i, m := range opts.BlockMarkers {
		markers[i] = strings.ToLower(m)
	}

	c := &Client{
		http:    &http.Client{Transport: transport},
		pool:    newIdentityPool(opts.UserAgents, proxies, opts.RotateMin, opts.RotateMax),
		timeout: opts.Timeout,
		markers: markers,
		limiter: opts.Limiter,
		logger:  opts.Logger,
		rlWait:  opts.RateLimitWait,
		blkWait: opts.BlockWait,
		netWait: opts.NetworkWait,
	}
	c.policy = retry.Policy{
		MaxAttempts: opts.MaxAttempts,
		Classify:    classify,
		Backoff:     c.backoff,
		OnRotate:    c.onRotate,
	}
	return c, nil
}

// Identity returns the persona the next request will start from.
func (c *Client) Identity() Identity {
	return c.pool.Current()
}

// Fetch GETs rawURL with the header shape of p. Every failure, including
// exhausted retries, is returned as *Error.
func (c *Client) Fetch(ctx context.Context, rawURL string, p Profile) (*Response, error) {
	policy := c.policy
	policy.Logger = c.logger.With("url", rawURL, "profile", p.Name)

	var (
		resp     *Response
		attempts int
	)
	err := policy.Do(ctx, func(ctx context.Context, attempt int) error {
		attempts = attempt
		r, err := c.do(ctx, rawURL, p)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err == nil {
		return resp, nil
	}

	var fe *Error
	if errors.As(err, &fe) {
		out := *fe
		out.Attempts = attempts
		return nil, &out
	}
	return nil, &Error{URL: rawURL, Kind: KindNetwork, Attempts: attempts, Err: err}
}

func (c *Client) do(ctx context.Context, rawURL string, p Profile) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.WaitURL(ctx, rawURL); err != nil {
			return nil, &Error{URL: rawURL, Kind: KindNetwork, Err: err}
		}
	}

	id := c.pool.next()

	rctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if id.Proxy != nil {
		rctx = context.WithValue(rctx, proxyKey{}, id.Proxy)
	}

	req, err := http.NewRequestWithContext(rctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{URL: rawURL, Kind: KindInvalid, Err: err}
	}
	applyHeaders(req, p, id)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{URL: rawURL, Kind: KindNetwork, Err: err}
	}
	defer res.Body.Close()

	body, err := readBody(res)
	if err != nil {
		return nil, &Error{URL: rawURL, Kind: KindNetwork, StatusCode: res.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	switch {
	case res.StatusCode == http.StatusTooManyRequests:
		return nil, &Error{URL: rawURL, Kind: KindRateLimited, StatusCode: res.StatusCode}
	case res.StatusCode == http.StatusForbidden:
		return nil, &Error{URL: rawURL, Kind: KindBlocked, StatusCode: res.StatusCode}
	case res.StatusCode >= 500:
		return nil, &Error{URL: rawURL, Kind: KindNetwork, StatusCode: res.StatusCode}
	case res.StatusCode < 200 || res.StatusCode > 299:
		return nil, &Error{URL: rawURL, Kind: KindStatus, StatusCode: res.StatusCode}
	case c.isBlockPage(body):
		return nil, &Error{URL: rawURL, Kind: KindBlocked, StatusCode: res.StatusCode, Err: errors.New("block marker in body")}
	}

	finalURL := rawURL
	if res.Request != nil && res.Request.URL != nil {
		finalURL = res.Request.URL.String()
	}

	c.logger.Debug("fetched", "url", rawURL, "status", res.StatusCode, "bytes", len(body))
	return &Response{
		URL:        finalURL,
		StatusCode: res.StatusCode,
		Header:     res.Header,
		Body:       body,
	}, nil
}

func readBody(res *http.Response) (string, error) {
	var r io.Reader = io.LimitReader(res.Body, maxBodyBytes)
	if utf8Reader, err := charset.NewReader(r, res.Header.Get("Content-Type")); err == nil {
		r = utf8Reader
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c *Client) isBlockPage(body string) bool {
	if len(c.markers) == 0 {
		return false
	}
	lower := strings.ToLower(body)
	for _, m := range c.markers {
		if m != "" && strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// classify maps fetch failures to retry decisions: 429 waits and retries as-is,
// blocks and network failures change identity first, anything else fails.
func classify(err error) retry.Decision {
	var fe *Error
	if !errors.As(err, &fe) {
		return retry.Transient(err)
	}
	switch fe.Kind {
	case KindRateLimited:
		return retry.Retry
	case KindBlocked, KindNetwork:
		return retry.Rotate
	default:
		return retry.Fail
	}
}

func (c *Client) backoff(_ int, err error) time.Duration {
	var fe *Error
	if !errors.As(err, &fe) {
		return c.netWait.Pick()
	}
	switch fe.Kind {
	case KindRateLimited:
		return c.rlWait.Pick()
	case KindBlocked:
		return c.blkWait.Pick()
	default:
		return c.netWait.Pick()
	}
}

func (c *Client) onRotate(err error) {
	var fe *Error
	if errors.As(err, &fe) && fe.Kind == KindNetwork {
		id := c.pool.advanceProxy()
		c.logger.Debug("advanced proxy after network error", "proxy", proxyLabel(id.Proxy))
		return
	}
	id := c.pool.rotate(true)
	c.logger.Info("rotated identity after block", "proxy", proxyLabel(id.Proxy))
}

func proxyLabel(u *url.URL) string {
	if u == nil {
		return "direct"
	}
	return u.Host
}
