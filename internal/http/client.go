package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fivetwenty-io/ledgerdesk/internal/constants"
	"github.com/fivetwenty-io/ledgerdesk/pkg/ledger"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

// Request is a fully built call. It is not modified while being sent, so
// every attempt carries the same method, URL, headers and body.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    []byte
	Headers map[string]string

	// Timeout applies to each attempt. If 0, DefaultHTTPTimeout is used.
	Timeout time.Duration
	// MaxRetries is the number of attempts allowed after the first one.
	MaxRetries int
	// RetryServerErrors also retries 5xx responses.
	RetryServerErrors bool
}

// Response is the last HTTP response received for a Request.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Attempts   int
}

// GiveUpError is returned when every attempt failed without a response.
type GiveUpError struct {
	Kind     ledger.ErrorKind
	Attempts int
	Err      error
}

func (e *GiveUpError) Error() string {
	return fmt.Sprintf("giving up after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *GiveUpError) Unwrap() error {
	return e.Err
}

// Client sends Requests with per-attempt timeouts and transient-failure retries.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	logger       ledger.Logger
	observer     ledger.Observer
	debug        bool
	userAgent    string
	retryWaitMin time.Duration
	retryWaitMax time.Duration
}

// Option configures the client.
type Option func(*clientOptions)

type clientOptions struct {
	logger       ledger.Logger
	observer     ledger.Observer
	debug        bool
	userAgent    string
	retryWaitMin time.Duration
	retryWaitMax time.Duration
	transport    http.RoundTripper
	limiter      *rate.Limiter
}

// WithLogger sets the logger.
func WithLogger(logger ledger.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithDebug enables request/response logging.
func WithDebug(debug bool) Option {
	return func(o *clientOptions) {
		o.debug = debug
	}
}

// WithUserAgent sets the User-Agent sent when a Request carries none.
func WithUserAgent(userAgent string) Option {
	return func(o *clientOptions) {
		o.userAgent = userAgent
	}
}

// WithBackoff enables capped exponential backoff between retries. With a
// zero max, retries are immediate.
func WithBackoff(waitMin, waitMax time.Duration) Option {
	return func(o *clientOptions) {
		o.retryWaitMin = waitMin
		o.retryWaitMax = waitMax
	}
}

// WithTransport replaces the underlying round tripper.
func WithTransport(transport http.RoundTripper) Option {
	return func(o *clientOptions) {
		o.transport = transport
	}
}

// WithRateLimit caps attempts per second across all calls of this client.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(o *clientOptions) {
		if perSecond <= 0 {
			o.limiter = nil
			return
		}

		if burst < 1 {
			burst = 1
		}

		o.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithObserver sets the hook notified of retries.
func WithObserver(observer ledger.Observer) Option {
	return func(o *clientOptions) {
		o.observer = observer
	}
}

// NewClient creates a client for baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	options := &clientOptions{userAgent: constants.DefaultUserAgent}
	for _, opt := range opts {
		opt(options)
	}

	next := options.transport
	if next == nil {
		next = cleanhttp.DefaultPooledTransport()
	}

	observer := options.observer
	if observer == nil {
		observer = ledger.NoopObserver{}
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Transport: &attemptTransport{next: next, limiter: options.limiter},
		},
		logger:       options.logger,
		observer:     observer,
		debug:        options.debug,
		userAgent:    options.userAgent,
		retryWaitMin: options.retryWaitMin,
		retryWaitMax: options.retryWaitMax,
	}
}

// BaseURL returns the prefix applied to every request path.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends req, retrying transient failures. Any HTTP status is returned as
// a Response; an error is returned only when no attempt got a response.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeout
	}

	ctx = withAttemptTimeout(ctx, timeout)

	var body interface{}
	if len(req.Body) > 0 {
		body = req.Body
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, c.buildURL(req), body)
	if err != nil {
		return nil, &GiveUpError{Kind: ledger.KindNetwork, Err: fmt.Errorf("creating request: %w", err)}
	}

	httpReq.Header.Set("User-Agent", c.userAgent)

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	attempts := 0
	started := time.Now()

	var lastErr error

	retryClient := &retryablehttp.Client{
		HTTPClient:   c.httpClient,
		RetryMax:     req.MaxRetries,
		RetryWaitMin: c.retryWaitMin,
		RetryWaitMax: c.retryWaitMax,
		CheckRetry:   checkRetry(req.RetryServerErrors, &lastErr),
		Backoff:      backoff,
		ErrorHandler: retryablehttp.PassthroughErrorHandler,
		RequestLogHook: func(_ retryablehttp.Logger, r *http.Request, attempt int) {
			attempts = attempt + 1
			started = time.Now()

			if attempt > 0 {
				c.observer.OnRetryAttempt(req.Method, req.Path, attempt, lastErr)
			}

			c.logDebug("HTTP Request", map[string]interface{}{
				"method":  r.Method,
				"url":     r.URL.Redacted(),
				"attempt": attempts,
			})
		},
		ResponseLogHook: func(_ retryablehttp.Logger, resp *http.Response) {
			c.logDebug("HTTP Response", map[string]interface{}{
				"status":   resp.StatusCode,
				"attempt":  attempts,
				"duration": time.Since(started).String(),
			})
		},
	}

	if c.debug && c.logger != nil {
		retryClient.Logger = &leveledLogger{logger: c.logger}
	}

	resp, err := retryClient.Do(httpReq)
	if err != nil {
		return nil, giveUp(ctx, attempts, err)
	}

	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &GiveUpError{Kind: ledger.KindNetwork, Attempts: attempts, Err: fmt.Errorf("reading response body: %w", err)}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
		Attempts:   attempts,
	}, nil
}

func (c *Client) buildURL(req *Request) string {
	fullURL := c.baseURL + req.Path
	if len(req.Query) > 0 {
		fullURL += "?" + req.Query.Encode()
	}

	return fullURL
}

func (c *Client) logDebug(msg string, fields map[string]interface{}) {
	if c.debug && c.logger != nil {
		c.logger.Debug(msg, fields)
	}
}

// checkRetry retries every failed attempt and, when enabled, 5xx responses.
// Everything else is final.
func checkRetry(retryServerErrors bool, lastErr *error) retryablehttp.CheckRetry {
	return func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}

		*lastErr = err

		if err != nil {
			return true, nil
		}

		return retryServerErrors && resp.StatusCode >= http.StatusInternalServerError, nil
	}
}

func backoff(waitMin, waitMax time.Duration, attemptNum int, resp *http.Response) time.Duration {
	if waitMax <= 0 {
		return 0
	}

	return retryablehttp.DefaultBackoff(waitMin, waitMax, attemptNum, resp)
}

func giveUp(ctx context.Context, attempts int, err error) *GiveUpError {
	if attempts == 0 {
		attempts = 1
	}

	var attemptErr *AttemptError
	if errors.As(err, &attemptErr) {
		return &GiveUpError{Kind: attemptErr.Kind, Attempts: attempts, Err: attemptErr}
	}

	// The caller's context ended between attempts.
	return &GiveUpError{Kind: classifyAttemptError(ctx, ctx, 0, err).Kind, Attempts: attempts, Err: err}
}
