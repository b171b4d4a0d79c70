package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	. "github.com/fivetwenty-io/ledgerdesk/internal/client"
	"github.com/fivetwenty-io/ledgerdesk/internal/testutil"
	"github.com/fivetwenty-io/ledgerdesk/pkg/ledger"
	"github.com/fivetwenty-io/ledgerdesk/pkg/persistence"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errConnectionRefused = errors.New("connection refused")

// countingTransport fails the first `failures` round trips (all of them
// when failures is negative), then delegates to http.DefaultTransport.
type countingTransport struct {
	mu         sync.Mutex
	failures   int
	attempts   int
	requestIDs []string
}

func (c *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	c.attempts++
	attempt := c.attempts
	c.requestIDs = append(c.requestIDs, req.Header.Get("X-Request-ID"))
	c.mu.Unlock()

	if c.failures < 0 || attempt <= c.failures {
		return nil, errConnectionRefused
	}

	return http.DefaultTransport.RoundTrip(req)
}

func (c *countingTransport) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.attempts
}

type recordingObserver struct {
	ledger.NoopObserver

	mu       sync.Mutex
	started  []string
	failures []*ledger.Failure
}

func (o *recordingObserver) OnRequestStart(method, path string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.started = append(o.started, method+" "+path)
}

func (o *recordingObserver) OnRequestEnd(_, _ string, _ time.Duration, failure *ledger.Failure) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.failures = append(o.failures, failure)
}

func newTestClient(t *testing.T, baseURL string, configure ...func(*ledger.Config)) (*Client, *persistence.Memory) {
	t.Helper()

	mirror := persistence.NewMemory()
	config := &ledger.Config{
		BaseURL:     baseURL,
		Timeout:     5 * time.Second,
		Persistence: mirror,
	}

	for _, fn := range configure {
		fn(config)
	}

	client, err := New(context.Background(), config)
	require.NoError(t, err)

	return client, mirror
}

func login(t *testing.T, client *Client) {
	t.Helper()

	_, err := client.Login(context.Background(), ledger.Credentials{Username: "test", Password: "password"}).Unwrap()
	require.NoError(t, err)
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  *ledger.Config
		wantErr error
	}{
		{name: "nil config", config: nil, wantErr: ledger.ErrConfigRequired},
		{name: "requires base URL", config: &ledger.Config{}, wantErr: ledger.ErrBaseURLRequired},
		{name: "rejects URL without scheme", config: &ledger.Config{BaseURL: "erp.example.com"}, wantErr: ledger.ErrInvalidBaseURL},
		{name: "rejects negative timeout", config: &ledger.Config{BaseURL: "https://erp.example.com", Timeout: -time.Second}, wantErr: ledger.ErrInvalidTimeout},
		{name: "rejects negative retries", config: &ledger.Config{BaseURL: "https://erp.example.com", RetryMax: -1}, wantErr: ledger.ErrNegativeRetries},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client, err := New(context.Background(), tt.config)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, client)
		})
	}

	t.Run("creates client with defaults", func(t *testing.T) {
		t.Parallel()

		client, err := New(context.Background(), &ledger.Config{BaseURL: "https://erp.example.com/api/"})
		require.NoError(t, err)
		assert.Equal(t, "https://erp.example.com/api", client.BaseURL())
		assert.False(t, client.IsAuthenticated())
		assert.NotNil(t, client.Products())
		assert.NotNil(t, client.Customers())
		assert.NotNil(t, client.Invoices())
		assert.NotNil(t, client.Treasury())
		assert.NotNil(t, client.Backups())
		assert.NotNil(t, client.Diagnostics())
	})

	t.Run("rehydrates mirrored session", func(t *testing.T) {
		t.Parallel()

		stub := testutil.NewStubAPI(t)
		stub.Issue("persisted")

		mirror := persistence.NewMemory()
		require.NoError(t, mirror.Set(context.Background(), ledger.KeyAccessToken, "persisted"))

		client, err := New(context.Background(), &ledger.Config{BaseURL: stub.URL(), Persistence: mirror})
		require.NoError(t, err)
		assert.True(t, client.IsAuthenticated())
		assert.Equal(t, "persisted", client.GetToken())

		assert.True(t, client.Products().List(context.Background(), nil).Success())
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Login(t *testing.T) {
	t.Parallel()

	t.Run("stores issued token", func(t *testing.T) {
		t.Parallel()

		stub := testutil.NewStubAPI(t)
		client, mirror := newTestClient(t, stub.URL())

		user, err := client.Login(context.Background(), ledger.Credentials{Username: "test", Password: "password"}).Unwrap()
		require.NoError(t, err)
		assert.Equal(t, ledger.ID("1"), user.ID)

		assert.True(t, client.IsAuthenticated())
		assert.Equal(t, "A", client.GetToken())
		assert.Equal(t, "B", client.Session().RefreshToken)

		stored, err := mirror.Get(context.Background(), ledger.KeyAccessToken)
		require.NoError(t, err)
		assert.Equal(t, "A", stored)

		req, ok := stub.LastRequest("/auth/login")
		require.True(t, ok)
		assert.JSONEq(t, `{"username":"test","password":"password"}`, string(req.Body))
		assert.Empty(t, req.Header.Get("Authorization"))
	})

	t.Run("bad credentials keep prior session", func(t *testing.T) {
		t.Parallel()

		stub := testutil.NewStubAPI(t)
		client, _ := newTestClient(t, stub.URL())
		login(t, client)

		result := client.Login(context.Background(), ledger.Credentials{Username: "test", Password: "wrong"})
		require.False(t, result.Success())
		assert.Equal(t, ledger.KindUnauthorized, result.Failure.Kind)
		assert.Equal(t, http.StatusUnauthorized, result.Failure.Status)
		assert.Equal(t, "invalid username or password", result.Failure.Message)
		assert.Equal(t, "A", client.GetToken())
	})

	t.Run("unreachable server", func(t *testing.T) {
		t.Parallel()

		transport := &countingTransport{failures: -1}
		client, _ := newTestClient(t, "http://ledger.invalid", func(c *ledger.Config) {
			c.Transport = transport
			c.RetryMax = 2
		})

		result := client.Login(context.Background(), ledger.Credentials{Username: "test", Password: "password"})
		assert.Equal(t, ledger.KindNetwork, result.Kind())
		assert.Equal(t, 3, transport.count())
		assert.False(t, client.IsAuthenticated())
	})
}

func TestClient_Logout(t *testing.T) {
	t.Parallel()

	t.Run("clears session and mirror", func(t *testing.T) {
		t.Parallel()

		stub := testutil.NewStubAPI(t)
		client, mirror := newTestClient(t, stub.URL())
		login(t, client)

		require.True(t, client.Logout(context.Background()).Success())
		assert.False(t, client.IsAuthenticated())
		assert.Empty(t, client.GetToken())
		assert.Equal(t, 0, mirror.Len())

		req, ok := stub.LastRequest("/auth/logout")
		require.True(t, ok)
		assert.Equal(t, "Bearer A", req.Header.Get("Authorization"))
	})

	t.Run("clears session when the server is unreachable", func(t *testing.T) {
		t.Parallel()

		mirror := persistence.NewMemory()
		require.NoError(t, mirror.Set(context.Background(), ledger.KeyAccessToken, "A"))

		transport := &countingTransport{failures: -1}
		client, err := New(context.Background(), &ledger.Config{
			BaseURL:        "http://ledger.invalid",
			Persistence:    mirror,
			Transport:      transport,
			DisableRetries: true,
		})
		require.NoError(t, err)
		require.True(t, client.IsAuthenticated())

		assert.True(t, client.Logout(context.Background()).Success())
		assert.False(t, client.IsAuthenticated())
		assert.Equal(t, 0, mirror.Len())
		assert.Equal(t, 1, transport.count())
	})

	t.Run("logout when unauthenticated is a no-op", func(t *testing.T) {
		t.Parallel()

		stub := testutil.NewStubAPI(t)
		client, _ := newTestClient(t, stub.URL())

		assert.True(t, client.Logout(context.Background()).Success())
		assert.Equal(t, 0, stub.Hits(http.MethodPost, "/auth/logout"))
	})
}

func TestClient_Authorization(t *testing.T) {
	t.Parallel()

	stub := testutil.NewStubAPI(t)
	client, mirror := newTestClient(t, stub.URL())

	require.True(t, client.Diagnostics().Health(context.Background()).Success())

	req, ok := stub.LastRequest("/health")
	require.True(t, ok)
	assert.Empty(t, req.Header.Get("Authorization"))

	login(t, client)

	require.True(t, client.Products().List(context.Background(), nil).Success())

	req, ok = stub.LastRequest("/products")
	require.True(t, ok)
	assert.Equal(t, "Bearer A", req.Header.Get("Authorization"))

	// the server forgets the token: the session is dropped
	stub.Revoke("A")

	result := client.Products().List(context.Background(), nil)
	assert.Equal(t, ledger.KindUnauthorized, result.Kind())
	assert.True(t, ledger.IsUnauthorized(result.Failure))
	assert.False(t, client.IsAuthenticated())
	assert.Equal(t, 0, mirror.Len())

	// fail fast until the caller logs in again
	assert.Equal(t, ledger.KindUnauthorized, client.Products().List(context.Background(), nil).Kind())

	req, ok = stub.LastRequest("/products")
	require.True(t, ok)
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestClient_CallerAuthorization(t *testing.T) {
	t.Parallel()

	stub := testutil.NewStubAPI(t)
	client, mirror := newTestClient(t, stub.URL(), func(c *ledger.Config) { c.DisableRetries = true })
	login(t, client)

	// a rejected caller-supplied credential leaves the session alone
	result := client.Get(context.Background(), "/products", nil, ledger.CallHeader("authorization", "Bearer other"))
	assert.Equal(t, ledger.KindUnauthorized, result.Kind())

	req, ok := stub.LastRequest("/products")
	require.True(t, ok)
	assert.Equal(t, "Bearer other", req.Header.Get("Authorization"))

	assert.True(t, client.IsAuthenticated())
	assert.Equal(t, "A", client.GetToken())

	value, err := mirror.Get(context.Background(), ledger.KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "A", value)

	require.True(t, client.Products().List(context.Background(), nil).Success())
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Retries(t *testing.T) {
	t.Parallel()

	t.Run("set retries to one with a dead network", func(t *testing.T) {
		t.Parallel()

		transport := &countingTransport{failures: -1}
		client, _ := newTestClient(t, "http://ledger.invalid", func(c *ledger.Config) { c.Transport = transport })
		require.NoError(t, client.SetRetries(1))

		result := client.Get(context.Background(), "/products", nil)
		require.False(t, result.Success())
		assert.Equal(t, ledger.KindNetwork, result.Failure.Kind)
		assert.Equal(t, 2, result.Failure.Attempts)
		assert.Equal(t, 2, transport.count())
		assert.ErrorIs(t, result.Failure, ledger.ErrNetwork)
		assert.ErrorIs(t, result.Failure, errConnectionRefused)
	})

	t.Run("n transient failures then success", func(t *testing.T) {
		t.Parallel()

		for _, n := range []int{0, 1, 3} {
			stub := testutil.NewStubAPI(t)
			transport := &countingTransport{failures: n}
			client, _ := newTestClient(t, stub.URL(), func(c *ledger.Config) { c.Transport = transport })
			require.NoError(t, client.SetRetries(n))

			result := client.Get(context.Background(), "/health", nil)
			require.True(t, result.Success(), "n=%d", n)
			assert.Equal(t, n+1, transport.count(), "n=%d", n)
		}
	})

	t.Run("every attempt carries the same request id", func(t *testing.T) {
		t.Parallel()

		stub := testutil.NewStubAPI(t)
		transport := &countingTransport{failures: 2}
		client, _ := newTestClient(t, stub.URL(), func(c *ledger.Config) { c.Transport = transport })

		require.True(t, client.Get(context.Background(), "/health", nil).Success())
		require.Len(t, transport.requestIDs, 3)
		assert.NotEmpty(t, transport.requestIDs[0])
		assert.Equal(t, transport.requestIDs[0], transport.requestIDs[1])
		assert.Equal(t, transport.requestIDs[0], transport.requestIDs[2])

		// a new logical call gets a new id
		require.True(t, client.Get(context.Background(), "/health", nil).Success())
		assert.NotEqual(t, transport.requestIDs[0], transport.requestIDs[3])
	})

	t.Run("per-call retries override the default", func(t *testing.T) {
		t.Parallel()

		transport := &countingTransport{failures: -1}
		client, _ := newTestClient(t, "http://ledger.invalid", func(c *ledger.Config) {
			c.Transport = transport
			c.RetryMax = 5
		})

		result := client.Get(context.Background(), "/products", nil, ledger.CallRetries(0))
		assert.Equal(t, ledger.KindNetwork, result.Kind())
		assert.Equal(t, 1, transport.count())
	})

	t.Run("default retry budget", func(t *testing.T) {
		t.Parallel()

		transport := &countingTransport{failures: -1}
		client, _ := newTestClient(t, "http://ledger.invalid", func(c *ledger.Config) { c.Transport = transport })

		client.Get(context.Background(), "/products", nil)
		assert.Equal(t, 4, transport.count())
	})

	t.Run("server errors are final unless enabled", func(t *testing.T) {
		t.Parallel()

		var (
			mu    sync.Mutex
			calls int
		)

		stub := testutil.NewStubAPI(t, testutil.WithRoutes(func(r chi.Router) {
			r.Get("/flaky", func(w http.ResponseWriter, _ *http.Request) {
				mu.Lock()
				calls++
				n := calls
				mu.Unlock()

				if n <= 2 {
					testutil.Fail(w, http.StatusBadGateway, "upstream unavailable")
					return
				}

				testutil.JSON(w, http.StatusOK, map[string]bool{"ok": true})
			})
		}))

		client, _ := newTestClient(t, stub.URL())
		result := client.Get(context.Background(), "/flaky", nil)
		assert.Equal(t, ledger.KindServerError, result.Kind())
		assert.Equal(t, "upstream unavailable", result.Failure.Message)

		retrying, _ := newTestClient(t, stub.URL(), func(c *ledger.Config) { c.RetryServerErrors = true })
		result = retrying.Get(context.Background(), "/flaky", nil)
		require.True(t, result.Success())
		assert.JSONEq(t, `{"ok":true}`, string(result.Data))
		assert.Equal(t, 3, stub.Hits(http.MethodGet, "/flaky"))
	})
}

func TestClient_Timeouts(t *testing.T) {
	t.Parallel()

	slowRoute := testutil.WithRoutes(func(r chi.Router) {
		r.Get("/slow", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(2 * time.Second):
				testutil.JSON(w, http.StatusOK, map[string]bool{"ok": true})
			case <-r.Context().Done():
			}
		})
	})

	t.Run("set timeout cuts a slow call short", func(t *testing.T) {
		t.Parallel()

		stub := testutil.NewStubAPI(t, slowRoute)
		client, _ := newTestClient(t, stub.URL(), func(c *ledger.Config) { c.DisableRetries = true })
		require.NoError(t, client.SetTimeout(time.Second))

		start := time.Now()
		result := client.Get(context.Background(), "/slow", nil)
		elapsed := time.Since(start)

		assert.Equal(t, ledger.KindTimeout, result.Kind())
		assert.True(t, ledger.IsTimeout(result.Failure))
		assert.GreaterOrEqual(t, elapsed, 900*time.Millisecond)
		assert.Less(t, elapsed, 1500*time.Millisecond)
	})

	t.Run("timeout applies to each attempt", func(t *testing.T) {
		t.Parallel()

		stub := testutil.NewStubAPI(t, slowRoute)
		client, _ := newTestClient(t, stub.URL())

		start := time.Now()
		result := client.Get(context.Background(), "/slow", nil, ledger.CallTimeout(100*time.Millisecond), ledger.CallRetries(2))
		elapsed := time.Since(start)

		assert.Equal(t, ledger.KindTimeout, result.Kind())
		assert.Equal(t, 3, result.Failure.Attempts)
		assert.Equal(t, 3, stub.Hits(http.MethodGet, "/slow"))
		assert.Less(t, elapsed, time.Second)
	})
}

func TestClient_Setters(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, "https://erp.example.com")

	require.ErrorIs(t, client.SetTimeout(0), ledger.ErrInvalidTimeout)
	require.ErrorIs(t, client.SetTimeout(-time.Second), ledger.ErrInvalidTimeout)
	require.NoError(t, client.SetTimeout(time.Second))

	require.ErrorIs(t, client.SetRetries(-1), ledger.ErrNegativeRetries)
	require.NoError(t, client.SetRetries(0))
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Requests(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		received *http.Request
		body     []byte
	)

	stub := testutil.NewStubAPI(t, testutil.WithRoutes(func(r chi.Router) {
		r.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
			data, _ := io.ReadAll(r.Body)

			mu.Lock()
			received = r
			body = data
			mu.Unlock()

			testutil.JSON(w, http.StatusOK, map[string]string{"method": r.Method})
		})
	}))

	last := func() (*http.Request, string) {
		mu.Lock()
		defer mu.Unlock()

		return received, string(body)
	}

	client, _ := newTestClient(t, stub.URL(), func(c *ledger.Config) {
		c.UserAgent = "ledger-tests/1.0"
		c.Headers = map[string]string{"x-tenant": "acme", "X-Trace": "client"}
	})

	t.Run("methods", func(t *testing.T) {
		ctx := context.Background()

		for method, call := range map[string]func() ledger.Result[json.RawMessage]{
			http.MethodGet:    func() ledger.Result[json.RawMessage] { return client.Get(ctx, "/echo", nil) },
			http.MethodPost:   func() ledger.Result[json.RawMessage] { return client.Post(ctx, "/echo", nil) },
			http.MethodPut:    func() ledger.Result[json.RawMessage] { return client.Put(ctx, "/echo", nil) },
			http.MethodPatch:  func() ledger.Result[json.RawMessage] { return client.Patch(ctx, "/echo", nil) },
			http.MethodDelete: func() ledger.Result[json.RawMessage] { return client.Delete(ctx, "/echo") },
		} {
			result := call()
			require.True(t, result.Success(), method)
			assert.JSONEq(t, `{"method":"`+method+`"}`, string(result.Data))
		}
	})

	t.Run("headers and query", func(t *testing.T) {
		result := client.Get(context.Background(), "echo?page=2", url.Values{"search": {"widget"}},
			ledger.CallHeader("X-Trace", "call"))
		require.True(t, result.Success())

		req, _ := last()
		assert.Equal(t, "2", req.URL.Query().Get("page"))
		assert.Equal(t, "widget", req.URL.Query().Get("search"))
		assert.Equal(t, "ledger-tests/1.0", req.Header.Get("User-Agent"))
		assert.Equal(t, "application/json", req.Header.Get("Accept"))
		assert.Equal(t, "acme", req.Header.Get("X-Tenant"))
		assert.Equal(t, "call", req.Header.Get("X-Trace"))
		assert.NotEmpty(t, req.Header.Get("X-Request-ID"))
	})

	t.Run("json body", func(t *testing.T) {
		require.True(t, client.Post(context.Background(), "/echo", map[string]int{"delta": 3}).Success())

		req, sent := last()
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		assert.JSONEq(t, `{"delta":3}`, sent)
	})

	t.Run("string body is sent untouched", func(t *testing.T) {
		require.True(t, client.Post(context.Background(), "/echo", `{"raw": true}`).Success())

		req, sent := last()
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		assert.Equal(t, `{"raw": true}`, sent)
	})

	t.Run("binary body carries its own content type", func(t *testing.T) {
		payload := ledger.Binary{ContentType: "application/zip", Data: []byte("PK\x03\x04")}
		require.True(t, client.Put(context.Background(), "/echo", payload).Success())

		req, sent := last()
		assert.Equal(t, "application/zip", req.Header.Get("Content-Type"))
		assert.Equal(t, "PK\x03\x04", sent)

		require.True(t, client.Put(context.Background(), "/echo", []byte("raw bytes")).Success())

		req, sent = last()
		assert.Empty(t, req.Header.Get("Content-Type"))
		assert.Equal(t, "raw bytes", sent)
	})
}

func TestClient_InvalidRequests(t *testing.T) {
	t.Parallel()

	transport := &countingTransport{failures: -1}
	client, _ := newTestClient(t, "http://ledger.invalid", func(c *ledger.Config) { c.Transport = transport })
	ctx := context.Background()

	tests := []struct {
		name    string
		failure *ledger.Failure
	}{
		{name: "empty path", failure: client.Get(ctx, "", nil).Failure},
		{name: "absolute URL", failure: client.Get(ctx, "https://evil.example.com/steal", nil).Failure},
		{name: "unsupported method", failure: client.Do(ctx, &ledger.Request{Method: "TRACE", Path: "/products"}).Failure},
		{name: "nil request", failure: client.Do(ctx, nil).Failure},
		{name: "unencodable body", failure: client.Post(ctx, "/products", map[string]interface{}{"ch": make(chan int)}).Failure},
		{name: "negative per-call retries", failure: client.Get(ctx, "/products", nil, ledger.CallRetries(-1)).Failure},
		{name: "empty identifier", failure: client.Products().Delete(ctx, "").Failure},
		{name: "upload without filename", failure: client.Backups().Upload(ctx, "", []byte("zip")).Failure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			require.NotNil(t, tt.failure)
			assert.Equal(t, ledger.KindInvalidRequest, tt.failure.Kind)
			assert.ErrorIs(t, tt.failure, ledger.ErrInvalidRequest)
		})
	}

	assert.Equal(t, 0, transport.count())
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Normalization(t *testing.T) {
	t.Parallel()

	stub := testutil.NewStubAPI(t, testutil.WithRoutes(func(r chi.Router) {
		r.Get("/status/{code}", func(w http.ResponseWriter, r *http.Request) {
			code, _ := strconv.Atoi(chi.URLParam(r, "code"))
			testutil.JSON(w, code, map[string]string{"error": "status says so"})
		})
		r.Get("/plain", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
			_, _ = w.Write([]byte("short and stout"))
		})
		r.Get("/garbage", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("<html>not json</html>"))
		})
		r.Get("/empty", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
		r.Get("/nested-errors", func(w http.ResponseWriter, _ *http.Request) {
			testutil.JSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"errors": []map[string]string{{"detail": "sku already exists"}},
			})
		})
		r.Get("/envelope", func(w http.ResponseWriter, _ *http.Request) {
			testutil.Envelope(w, http.StatusOK, map[string]int{"id": 7})
		})
		r.Get("/rejected", func(w http.ResponseWriter, _ *http.Request) {
			testutil.Fail(w, http.StatusOK, "period is closed")
		})
		r.Get("/items", func(w http.ResponseWriter, _ *http.Request) {
			testutil.JSON(w, http.StatusOK, map[string]interface{}{"items": []int{1, 2}, "total": 2})
		})
	}))

	client, _ := newTestClient(t, stub.URL(), func(c *ledger.Config) { c.DisableRetries = true })
	ctx := context.Background()

	statusTests := []struct {
		code int
		kind ledger.ErrorKind
	}{
		{http.StatusBadRequest, ledger.KindValidation},
		{http.StatusUnauthorized, ledger.KindUnauthorized},
		{http.StatusForbidden, ledger.KindUnauthorized},
		{http.StatusNotFound, ledger.KindNotFound},
		{http.StatusConflict, ledger.KindUnknownHTTP},
		{http.StatusUnprocessableEntity, ledger.KindValidation},
		{http.StatusInternalServerError, ledger.KindServerError},
		{http.StatusServiceUnavailable, ledger.KindServerError},
	}

	for _, tt := range statusTests {
		result := client.Get(ctx, "/status/"+strconv.Itoa(tt.code), nil)
		require.False(t, result.Success(), tt.code)
		assert.Equal(t, tt.kind, result.Failure.Kind, tt.code)
		assert.Equal(t, tt.code, result.Failure.Status)
		assert.Equal(t, "status says so", result.Failure.Message)
	}

	result := client.Get(ctx, "/plain", nil)
	assert.Equal(t, ledger.KindUnknownHTTP, result.Kind())
	assert.Equal(t, "short and stout", result.Failure.Message)

	assert.Equal(t, ledger.KindParseError, client.Get(ctx, "/garbage", nil).Kind())

	result = client.Get(ctx, "/empty", nil)
	require.True(t, result.Success())
	assert.Equal(t, "null", string(result.Data))
	assert.Equal(t, ledger.KindParseError, client.Get(ctx, "/empty", nil, ledger.ExpectShape(ledger.ShapeEnvelope)).Kind())

	result = client.Get(ctx, "/nested-errors", nil)
	assert.Equal(t, "sku already exists", result.Failure.Message)

	result = client.Get(ctx, "/envelope", nil, ledger.ExpectShape(ledger.ShapeEnvelope))
	require.True(t, result.Success())
	assert.JSONEq(t, `{"id":7}`, string(result.Data))

	result = client.Get(ctx, "/envelope", nil)
	require.True(t, result.Success())
	assert.JSONEq(t, `{"success":true,"data":{"id":7}}`, string(result.Data))

	result = client.Get(ctx, "/rejected", nil, ledger.ExpectShape(ledger.ShapeEnvelope))
	assert.Equal(t, ledger.KindValidation, result.Kind())
	assert.Equal(t, http.StatusOK, result.Failure.Status)
	assert.Equal(t, "period is closed", result.Failure.Message)

	result = client.Get(ctx, "/items", nil, ledger.ExpectShape(ledger.ShapeItems))
	require.True(t, result.Success())
	assert.JSONEq(t, `[1,2]`, string(result.Data))

	assert.Equal(t, ledger.KindParseError, client.Get(ctx, "/envelope", nil, ledger.ExpectShape(ledger.ShapeItems)).Kind())
	assert.Equal(t, ledger.KindParseError, client.Get(ctx, "/items", nil, ledger.ExpectShape(ledger.ShapeEnvelope)).Kind())
}

func TestClient_AutoRefresh(t *testing.T) {
	t.Parallel()

	sign := func(exp time.Time) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("stub"))
		require.NoError(t, err)

		return token
	}

	expiring := sign(time.Now().Add(10 * time.Second))
	fresh := sign(time.Now().Add(time.Hour))

	stub := testutil.NewStubAPI(t, testutil.WithTokens(expiring, "B", fresh))

	t.Run("disabled by default", func(t *testing.T) {
		t.Parallel()

		client, _ := newTestClient(t, stub.URL())
		login(t, client)

		require.True(t, client.Products().List(context.Background(), nil).Success())
		assert.Equal(t, expiring, client.GetToken())
	})

	t.Run("refreshes an expiring token before the call", func(t *testing.T) {
		t.Parallel()

		client, mirror := newTestClient(t, stub.URL(), func(c *ledger.Config) { c.AutoRefresh = true })
		login(t, client)

		require.True(t, client.Products().List(context.Background(), nil).Success())
		assert.Equal(t, fresh, client.GetToken())

		stored, _ := mirror.Get(context.Background(), ledger.KeyAccessToken)
		assert.Equal(t, fresh, stored)
	})
}

func TestClient_Observer(t *testing.T) {
	t.Parallel()

	stub := testutil.NewStubAPI(t)
	observer := &recordingObserver{}
	client, _ := newTestClient(t, stub.URL(), func(c *ledger.Config) { c.Observer = observer })

	login(t, client)
	client.Products().Get(context.Background(), "404")

	observer.mu.Lock()
	defer observer.mu.Unlock()

	assert.Equal(t, []string{"POST /auth/login", "GET /products/404"}, observer.started)
	require.Len(t, observer.failures, 2)
	assert.Nil(t, observer.failures[0])
	assert.Equal(t, ledger.KindNotFound, observer.failures[1].Kind)
}
