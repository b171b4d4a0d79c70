package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"
)

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Observer receives hooks for every logical call. Implementations must be
// fast and safe for concurrent use.
//
// Example implementation:
//
//	type LogObserver struct{ logger *log.Logger }
//
//	func (o *LogObserver) OnRequestStart(method, path string) {
//	    o.logger.Printf("[START] %s %s", method, path)
//	}
type Observer interface {
	// OnRequestStart is called once per logical call, before the first attempt.
	OnRequestStart(method, path string)
	// OnRetryAttempt is called before every attempt after the first one.
	// attempt counts retries from 1; err is the failure that caused it, nil
	// when a 5xx response triggered the retry.
	OnRetryAttempt(method, path string, attempt int, err error)
	// OnRequestEnd is called once the result has been normalized.
	OnRequestEnd(method, path string, duration time.Duration, failure *Failure)
}

// NoopObserver ignores every hook.
type NoopObserver struct{}

func (NoopObserver) OnRequestStart(string, string) {}

func (NoopObserver) OnRetryAttempt(string, string, int, error) {}

func (NoopObserver) OnRequestEnd(string, string, time.Duration, *Failure) {}

// Client is the single HTTP access point for every business screen.
//
// All call methods return a Result: expected failures (network, timeout,
// HTTP status, malformed body) are reported as a Failure and never panic.
type Client interface {
	CallClient
	AuthClient
	ResourceClients

	// SetTimeout changes the default per-attempt timeout for later calls.
	SetTimeout(d time.Duration) error
	// SetRetries changes the default retry budget for later calls.
	SetRetries(n int) error
}

// CallClient sends raw JSON calls.
type CallClient interface {
	Get(ctx context.Context, path string, query url.Values, opts ...CallOption) Result[json.RawMessage]
	Post(ctx context.Context, path string, body interface{}, opts ...CallOption) Result[json.RawMessage]
	Put(ctx context.Context, path string, body interface{}, opts ...CallOption) Result[json.RawMessage]
	Patch(ctx context.Context, path string, body interface{}, opts ...CallOption) Result[json.RawMessage]
	Delete(ctx context.Context, path string, opts ...CallOption) Result[json.RawMessage]
	Do(ctx context.Context, req *Request) Result[json.RawMessage]
}

// AuthClient manages the session.
type AuthClient interface {
	Login(ctx context.Context, creds Credentials) Result[UserSummary]
	Logout(ctx context.Context) Result[struct{}]
	Refresh(ctx context.Context) Result[struct{}]
	IsAuthenticated() bool
	GetToken() string
	Session() Session
}

// ResourceClients provides access to all resource-specific clients.
type ResourceClients interface {
	Products() ProductsClient
	Customers() CustomersClient
	Invoices() InvoicesClient
	Treasury() TreasuryClient
	Backups() BackupsClient
	Diagnostics() DiagnosticsClient
}

// ProductsClient manages inventory items.
type ProductsClient interface {
	List(ctx context.Context, query url.Values) Result[[]Product]
	Get(ctx context.Context, id string) Result[Product]
	Create(ctx context.Context, req *ProductCreate) Result[Product]
	Update(ctx context.Context, id string, req *ProductUpdate) Result[Product]
	Delete(ctx context.Context, id string) Result[struct{}]
	AdjustStock(ctx context.Context, id string, adj *StockAdjustment) Result[Product]
}

// CustomersClient manages customers.
type CustomersClient interface {
	List(ctx context.Context, query url.Values) Result[[]Customer]
	Get(ctx context.Context, id string) Result[Customer]
	Create(ctx context.Context, req *CustomerRequest) Result[Customer]
	Update(ctx context.Context, id string, req *CustomerRequest) Result[Customer]
	Delete(ctx context.Context, id string) Result[struct{}]
}

// InvoicesClient manages invoices.
type InvoicesClient interface {
	List(ctx context.Context, query url.Values) Result[[]Invoice]
	Get(ctx context.Context, id string) Result[Invoice]
	Create(ctx context.Context, req *InvoiceCreate) Result[Invoice]
	MarkPaid(ctx context.Context, id string, payment *Payment) Result[Invoice]
	Delete(ctx context.Context, id string) Result[struct{}]
}

// TreasuryClient reads and records cash movements.
type TreasuryClient interface {
	Accounts(ctx context.Context) Result[[]TreasuryAccount]
	Movements(ctx context.Context, accountID string, query url.Values) Result[[]Movement]
	RecordMovement(ctx context.Context, accountID string, req *MovementCreate) Result[Movement]
}

// BackupsClient manages server-side backups.
type BackupsClient interface {
	List(ctx context.Context) Result[[]Backup]
	Create(ctx context.Context) Result[Backup]
	Restore(ctx context.Context, id string) Result[struct{}]
	Delete(ctx context.Context, id string) Result[struct{}]
	Upload(ctx context.Context, filename string, archive []byte) Result[Backup]
}

// DiagnosticsClient reports server health.
type DiagnosticsClient interface {
	Health(ctx context.Context) Result[HealthReport]
}

// Config represents client configuration for building a Client.
//
// # Timeouts and retries
//
// Timeout is applied to every attempt separately, so a call that retries
// twice may take up to three times Timeout. Only transport failures
// (network errors and timeouts) are retried unless RetryServerErrors is set.
// Retries are immediate unless RetryWaitMax is set.
//
// # Sessions
//
// When Persistence is set, a session stored by an earlier process is loaded
// during construction and every login, refresh and logout is written through.
type Config struct {
	// BaseURL is prefixed to every request path (e.g., "https://erp.example.com/api").
	BaseURL string

	// Timeout is the default per-attempt timeout. If 0, 30s is used.
	Timeout time.Duration
	// RetryMax is the default number of retries after the first attempt.
	// If 0, 3 is used; set DisableRetries to send every call once.
	RetryMax int
	// DisableRetries forces a default retry budget of zero.
	DisableRetries bool
	// RetryWaitMin: minimum backoff between retries.
	RetryWaitMin time.Duration
	// RetryWaitMax: maximum backoff between retries. Zero retries immediately.
	RetryWaitMax time.Duration
	// RetryServerErrors also retries 5xx responses.
	RetryServerErrors bool

	// AutoRefresh refreshes the access token before a call when it expires
	// within 30s. Only tokens carrying a JWT exp claim are considered.
	AutoRefresh bool
	// LoginPath, LogoutPath and RefreshPath override the auth endpoints.
	LoginPath   string
	LogoutPath  string
	RefreshPath string

	// Persistence is the durable mirror of the session. If nil, the session
	// lives in memory only.
	Persistence CredentialPersistence

	// UserAgent overrides the default User-Agent header.
	UserAgent string
	// Headers are sent with every call; per-call headers win on conflict.
	Headers map[string]string

	// RateLimit caps attempts per second; zero means unlimited.
	RateLimit float64
	// RateBurst is the burst allowed by RateLimit. If 0, 1 is used.
	RateBurst int

	// Transport overrides the underlying round tripper, mostly for tests.
	Transport http.RoundTripper

	// Debug enables request/response logging when a Logger is provided.
	Debug bool
	// Logger: optional structured logger.
	Logger Logger
	// Observer: optional call hooks, e.g. metrics.
	Observer Observer
}
