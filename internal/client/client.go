package client

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/fivetwenty-io/ledgerdesk/internal/auth"
	"github.com/fivetwenty-io/ledgerdesk/internal/constants"
	internalhttp "github.com/fivetwenty-io/ledgerdesk/internal/http"
	"github.com/fivetwenty-io/ledgerdesk/pkg/ledger"
)

// Client implements the ledger.Client interface.
type Client struct {
	httpClient        *internalhttp.Client
	credentials       *auth.CredentialStore
	logger            ledger.Logger
	observer          ledger.Observer
	headers           map[string]string
	retryServerErrors bool
	autoRefresh       bool

	mu      sync.RWMutex
	timeout time.Duration
	retries int

	// Resource clients
	products    ledger.ProductsClient
	customers   ledger.CustomersClient
	invoices    ledger.InvoicesClient
	treasury    ledger.TreasuryClient
	backups     ledger.BackupsClient
	diagnostics ledger.DiagnosticsClient
}

// New creates a client from config and loads any mirrored session.
func New(ctx context.Context, config *ledger.Config) (*Client, error) {
	if config == nil {
		return nil, ledger.ErrConfigRequired
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	client := &Client{
		logger:            config.Logger,
		observer:          config.Observer,
		headers:           maps.Clone(config.Headers),
		retryServerErrors: config.RetryServerErrors,
		autoRefresh:       config.AutoRefresh,
		timeout:           config.Timeout,
		retries:           config.RetryMax,
	}

	if client.observer == nil {
		client.observer = ledger.NoopObserver{}
	}

	if client.timeout == 0 {
		client.timeout = constants.DefaultHTTPTimeout
	}

	switch {
	case config.DisableRetries:
		client.retries = 0
	case client.retries == 0:
		client.retries = constants.DefaultRetryMax
	}

	client.httpClient = internalhttp.NewClient(config.BaseURL, createHTTPClientOptions(config)...)
	client.credentials = auth.NewCredentialStore(auth.Options{
		Persistence: config.Persistence,
		Logger:      config.Logger,
		LoginPath:   config.LoginPath,
		LogoutPath:  config.LogoutPath,
		RefreshPath: config.RefreshPath,
	})

	if err := client.credentials.Rehydrate(ctx); err != nil && client.logger != nil {
		client.logger.Warn("Could not load mirrored session, starting unauthenticated", map[string]interface{}{
			"error": err.Error(),
		})
	}

	client.initializeResourceClients()

	return client, nil
}

func validateConfig(config *ledger.Config) error {
	if config.BaseURL == "" {
		return ledger.ErrBaseURLRequired
	}

	parsed, err := url.Parse(config.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ledger.ErrInvalidBaseURL, err)
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%w: %q", ledger.ErrInvalidBaseURL, config.BaseURL)
	}

	if config.Timeout < 0 {
		return ledger.ErrInvalidTimeout
	}

	if config.RetryMax < 0 {
		return ledger.ErrNegativeRetries
	}

	return nil
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *ledger.Config) []internalhttp.Option {
	var httpOpts []internalhttp.Option

	if config.Logger != nil {
		httpOpts = append(httpOpts, internalhttp.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, internalhttp.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, internalhttp.WithUserAgent(config.UserAgent))
	}

	if config.Observer != nil {
		httpOpts = append(httpOpts, internalhttp.WithObserver(config.Observer))
	}

	if config.Transport != nil {
		httpOpts = append(httpOpts, internalhttp.WithTransport(config.Transport))
	}

	if config.RateLimit > 0 {
		httpOpts = append(httpOpts, internalhttp.WithRateLimit(config.RateLimit, config.RateBurst))
	}

	if config.RetryWaitMin > 0 || config.RetryWaitMax > 0 {
		retryWaitMax := config.RetryWaitMax
		if retryWaitMax == 0 {
			retryWaitMax = constants.DefaultRetryWaitMax
		}

		httpOpts = append(httpOpts, internalhttp.WithBackoff(config.RetryWaitMin, retryWaitMax))
	}

	return httpOpts
}

// BaseURL returns the URL every request path is appended to.
func (c *Client) BaseURL() string {
	return c.httpClient.BaseURL()
}

// Get implements ledger.CallClient.Get.
func (c *Client) Get(ctx context.Context, path string, query url.Values, opts ...ledger.CallOption) ledger.Result[json.RawMessage] {
	return c.Do(ctx, &ledger.Request{Method: http.MethodGet, Path: path, Query: query, Options: opts})
}

// Post implements ledger.CallClient.Post.
func (c *Client) Post(ctx context.Context, path string, body interface{}, opts ...ledger.CallOption) ledger.Result[json.RawMessage] {
	return c.Do(ctx, &ledger.Request{Method: http.MethodPost, Path: path, Body: body, Options: opts})
}

// Put implements ledger.CallClient.Put.
func (c *Client) Put(ctx context.Context, path string, body interface{}, opts ...ledger.CallOption) ledger.Result[json.RawMessage] {
	return c.Do(ctx, &ledger.Request{Method: http.MethodPut, Path: path, Body: body, Options: opts})
}

// Patch implements ledger.CallClient.Patch.
func (c *Client) Patch(ctx context.Context, path string, body interface{}, opts ...ledger.CallOption) ledger.Result[json.RawMessage] {
	return c.Do(ctx, &ledger.Request{Method: http.MethodPatch, Path: path, Body: body, Options: opts})
}

// Delete implements ledger.CallClient.Delete.
func (c *Client) Delete(ctx context.Context, path string, opts ...ledger.CallOption) ledger.Result[json.RawMessage] {
	return c.Do(ctx, &ledger.Request{Method: http.MethodDelete, Path: path, Options: opts})
}

// Do implements ledger.CallClient.Do.
func (c *Client) Do(ctx context.Context, req *ledger.Request) ledger.Result[json.RawMessage] {
	if req == nil {
		return ledger.Fail[json.RawMessage](invalidRequest("request is nil"))
	}

	return c.execute(ctx, req, c.autoRefresh)
}

// execute runs one logical call: build, send with retries, normalize.
func (c *Client) execute(ctx context.Context, req *ledger.Request, refresh bool) ledger.Result[json.RawMessage] {
	opts := ledger.ApplyCallOptions(req.Options...)
	started := time.Now()

	c.observer.OnRequestStart(req.Method, req.Path)

	result := c.send(ctx, req, &opts, refresh)

	c.observer.OnRequestEnd(req.Method, req.Path, time.Since(started), result.Failure)

	return result
}

func (c *Client) send(ctx context.Context, req *ledger.Request, opts *ledger.CallOptions, refresh bool) ledger.Result[json.RawMessage] {
	if refresh && !opts.SkipAuth {
		c.refreshIfExpiring(ctx)
	}

	built, token, failure := c.build(req, opts)
	if failure != nil {
		return ledger.Fail[json.RawMessage](failure)
	}

	resp, err := c.httpClient.Do(ctx, built)

	return c.normalize(ctx, resp, err, opts, token)
}

// refreshIfExpiring renews a token that is about to expire. A failed
// refresh is logged and the call goes out with the current token.
func (c *Client) refreshIfExpiring(ctx context.Context) {
	result := c.credentials.RefreshIfExpiring(ctx, exchanger{c}, constants.TokenExpirationBuffer)
	if result.Failure != nil && c.logger != nil {
		c.logger.Warn("Token refresh failed", map[string]interface{}{
			"kind":   string(result.Failure.Kind),
			"status": result.Failure.Status,
		})
	}
}

// exchanger sends authentication calls without triggering a refresh.
type exchanger struct {
	c *Client
}

func (e exchanger) Exchange(ctx context.Context, method, path string, body interface{}, opts ...ledger.CallOption) ledger.Result[json.RawMessage] {
	return e.c.execute(ctx, &ledger.Request{Method: method, Path: path, Body: body, Options: opts}, false)
}

// Login implements ledger.AuthClient.Login.
func (c *Client) Login(ctx context.Context, creds ledger.Credentials) ledger.Result[ledger.UserSummary] {
	return c.credentials.Login(ctx, exchanger{c}, creds)
}

// Logout implements ledger.AuthClient.Logout.
func (c *Client) Logout(ctx context.Context) ledger.Result[struct{}] {
	return c.credentials.Logout(ctx, exchanger{c})
}

// Refresh implements ledger.AuthClient.Refresh.
func (c *Client) Refresh(ctx context.Context) ledger.Result[struct{}] {
	return c.credentials.Refresh(ctx, exchanger{c})
}

// IsAuthenticated implements ledger.AuthClient.IsAuthenticated.
func (c *Client) IsAuthenticated() bool {
	return c.credentials.IsAuthenticated()
}

// GetToken returns the current access token without any network activity.
func (c *Client) GetToken() string {
	return c.credentials.Token()
}

// Session implements ledger.AuthClient.Session.
func (c *Client) Session() ledger.Session {
	return c.credentials.Session()
}

// SetTimeout changes the default per-attempt timeout for later calls.
func (c *Client) SetTimeout(d time.Duration) error {
	if d <= 0 {
		return ledger.ErrInvalidTimeout
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.timeout = d

	return nil
}

// SetRetries changes the default retry budget for later calls.
func (c *Client) SetRetries(n int) error {
	if n < 0 {
		return ledger.ErrNegativeRetries
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.retries = n

	return nil
}

func (c *Client) defaults() (time.Duration, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.timeout, c.retries
}

// Resource client accessors

// Products implements ledger.Client.Products.
func (c *Client) Products() ledger.ProductsClient {
	return c.products
}

// Customers implements ledger.Client.Customers.
func (c *Client) Customers() ledger.CustomersClient {
	return c.customers
}

// Invoices implements ledger.Client.Invoices.
func (c *Client) Invoices() ledger.InvoicesClient {
	return c.invoices
}

// Treasury implements ledger.Client.Treasury.
func (c *Client) Treasury() ledger.TreasuryClient {
	return c.treasury
}

// Backups implements ledger.Client.Backups.
func (c *Client) Backups() ledger.BackupsClient {
	return c.backups
}

// Diagnostics implements ledger.Client.Diagnostics.
func (c *Client) Diagnostics() ledger.DiagnosticsClient {
	return c.diagnostics
}

// initializeResourceClients initializes all resource-specific clients.
func (c *Client) initializeResourceClients() {
	c.products = NewProductsClient(c)
	c.customers = NewCustomersClient(c)
	c.invoices = NewInvoicesClient(c)
	c.treasury = NewTreasuryClient(c)
	c.backups = NewBackupsClient(c)
	c.diagnostics = NewDiagnosticsClient(c)
}

var _ ledger.Client = (*Client)(nil)
