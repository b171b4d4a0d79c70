// Package testutil provides an in-process ledger API for client tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fivetwenty-io/ledgerdesk/pkg/ledger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxUploadMemory = 1 << 20

// RecordedRequest is a request as the stub received it.
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// StubAPI serves the authentication endpoints, products, backups and
// health. Extra routes can be added with WithRoutes; they must not reuse a
// built-in method and pattern.
type StubAPI struct {
	Server *httptest.Server

	mu             sync.Mutex
	username       string
	password       string
	accessToken    string
	refreshToken   string
	refreshedToken string
	valid          map[string]bool
	requests       []RecordedRequest
	products       map[string]ledger.Product
	backups        []ledger.Backup
	nextID         int
	routes         []func(chi.Router)
}

// Option configures a StubAPI.
type Option func(*StubAPI)

// WithCredentials sets the only username and password the login accepts.
func WithCredentials(username, password string) Option {
	return func(s *StubAPI) {
		s.username = username
		s.password = password
	}
}

// WithTokens sets the token pair issued by login and the access token
// issued by refresh.
func WithTokens(access, refresh, refreshed string) Option {
	return func(s *StubAPI) {
		s.accessToken = access
		s.refreshToken = refresh
		s.refreshedToken = refreshed
	}
}

// WithRoutes registers additional handlers.
func WithRoutes(register func(r chi.Router)) Option {
	return func(s *StubAPI) {
		s.routes = append(s.routes, register)
	}
}

// NewStubAPI starts a stub server that is closed when the test ends. By
// default it accepts test/password and issues the tokens "A" and "B".
func NewStubAPI(t testing.TB, opts ...Option) *StubAPI {
	t.Helper()

	s := &StubAPI{
		username:       "test",
		password:       "password",
		accessToken:    "A",
		refreshToken:   "B",
		refreshedToken: "A2",
		valid:          make(map[string]bool),
		products:       make(map[string]ledger.Product),
		nextID:         1,
	}

	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.record)

	for _, register := range s.routes {
		register(r)
	}

	r.Post("/auth/login", s.login)
	r.Post("/auth/refresh", s.refresh)
	r.Get("/health", s.health)

	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)

		r.Post("/auth/logout", s.logout)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", s.listProducts)
			r.Post("/", s.createProduct)
			r.Get("/{id}", s.getProduct)
			r.Patch("/{id}", s.updateProduct)
			r.Delete("/{id}", s.deleteProduct)
			r.Post("/{id}/stock", s.adjustStock)
		})

		r.Route("/backups", func(r chi.Router) {
			r.Get("/", s.listBackups)
			r.Post("/", s.createBackup)
			r.Post("/upload", s.uploadBackup)
		})
	})

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Server.Close)

	return s
}

// URL returns the base URL of the stub.
func (s *StubAPI) URL() string {
	return s.Server.URL
}

// Requests returns every request received so far.
func (s *StubAPI) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]RecordedRequest(nil), s.requests...)
}

// Hits counts the requests received for method and path.
func (s *StubAPI) Hits(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0

	for _, req := range s.requests {
		if req.Method == method && req.Path == path {
			n++
		}
	}

	return n
}

// LastRequest returns the most recent request for path.
func (s *StubAPI) LastRequest(path string) (RecordedRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.requests) - 1; i >= 0; i-- {
		if s.requests[i].Path == path {
			return s.requests[i], true
		}
	}

	return RecordedRequest{}, false
}

// Revoke invalidates token on the server side.
func (s *StubAPI) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.valid, token)
}

// Issue marks token as valid without a login.
func (s *StubAPI) Issue(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.valid[token] = true
}

// SeedProduct stores a product and returns its identifier.
func (s *StubAPI) SeedProduct(product ledger.Product) ledger.ID {
	s.mu.Lock()
	defer s.mu.Unlock()

	product.ID = s.newID()
	s.products[product.ID.String()] = product

	return product.ID
}

func (s *StubAPI) newID() ledger.ID {
	id := ledger.ID(strconv.Itoa(s.nextID))
	s.nextID++

	return id
}

func (s *StubAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   body,
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *StubAPI) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")

		s.mu.Lock()
		valid := ok && s.valid[token]
		s.mu.Unlock()

		if !valid {
			Fail(w, http.StatusUnauthorized, "token is missing or expired")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *StubAPI) login(w http.ResponseWriter, r *http.Request) {
	var creds ledger.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		Fail(w, http.StatusBadRequest, "malformed credentials")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if creds.Username != s.username || creds.Password != s.password {
		Fail(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	s.valid[s.accessToken] = true

	Envelope(w, http.StatusOK, map[string]interface{}{
		"access_token":  s.accessToken,
		"refresh_token": s.refreshToken,
		"user":          map[string]interface{}{"id": "1", "username": creds.Username},
	})
}

func (s *StubAPI) logout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	s.mu.Lock()
	delete(s.valid, token)
	s.mu.Unlock()

	JSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "logged out"})
}

func (s *StubAPI) refresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		Fail(w, http.StatusBadRequest, "malformed refresh request")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if body.RefreshToken == "" || body.RefreshToken != s.refreshToken {
		Fail(w, http.StatusUnauthorized, "refresh token revoked")
		return
	}

	s.valid[s.refreshedToken] = true

	Envelope(w, http.StatusOK, map[string]interface{}{"access_token": s.refreshedToken})
}

func (s *StubAPI) health(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, ledger.HealthReport{Status: "ok", Version: "test", Database: "ok"})
}

func (s *StubAPI) listProducts(w http.ResponseWriter, r *http.Request) {
	search := strings.ToLower(r.URL.Query().Get("search"))

	s.mu.Lock()
	defer s.mu.Unlock()

	products := make([]ledger.Product, 0, len(s.products))

	for _, product := range s.products {
		if search == "" || strings.Contains(strings.ToLower(product.Name), search) {
			products = append(products, product)
		}
	}

	sort.Slice(products, func(i, j int) bool {
		a, _ := products[i].ID.Int()
		b, _ := products[j].ID.Int()

		return a < b
	})

	Envelope(w, http.StatusOK, products)
}

func (s *StubAPI) getProduct(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[chi.URLParam(r, "id")]
	if !ok {
		Fail(w, http.StatusNotFound, "product not found")
		return
	}

	Envelope(w, http.StatusOK, product)
}

func (s *StubAPI) createProduct(w http.ResponseWriter, r *http.Request) {
	var req ledger.ProductCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Fail(w, http.StatusBadRequest, "malformed product")
		return
	}

	if req.Name == "" {
		Fail(w, http.StatusUnprocessableEntity, "name is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product := ledger.Product{
		ID:        s.newID(),
		SKU:       req.SKU,
		Name:      req.Name,
		Price:     req.Price,
		Stock:     req.Stock,
		CreatedAt: time.Now().UTC(),
	}
	s.products[product.ID.String()] = product

	Envelope(w, http.StatusCreated, product)
}

func (s *StubAPI) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req ledger.ProductUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Fail(w, http.StatusBadRequest, "malformed product update")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := chi.URLParam(r, "id")

	product, ok := s.products[id]
	if !ok {
		Fail(w, http.StatusNotFound, "product not found")
		return
	}

	if req.Name != nil {
		product.Name = *req.Name
	}

	if req.Price != nil {
		product.Price = *req.Price
	}

	product.UpdatedAt = time.Now().UTC()
	s.products[id] = product

	Envelope(w, http.StatusOK, product)
}

func (s *StubAPI) deleteProduct(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := chi.URLParam(r, "id")
	if _, ok := s.products[id]; !ok {
		Fail(w, http.StatusNotFound, "product not found")
		return
	}

	delete(s.products, id)

	JSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "product deleted"})
}

// adjustStock answers an impossible adjustment with a 200 envelope
// reporting success=false, as the real server does.
func (s *StubAPI) adjustStock(w http.ResponseWriter, r *http.Request) {
	var adj ledger.StockAdjustment
	if err := json.NewDecoder(r.Body).Decode(&adj); err != nil {
		Fail(w, http.StatusBadRequest, "malformed adjustment")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := chi.URLParam(r, "id")

	product, ok := s.products[id]
	if !ok {
		Fail(w, http.StatusNotFound, "product not found")
		return
	}

	if product.Stock+adj.Delta < 0 {
		Fail(w, http.StatusOK, "insufficient stock")
		return
	}

	product.Stock += adj.Delta
	s.products[id] = product

	Envelope(w, http.StatusOK, product)
}

func (s *StubAPI) listBackups(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	JSON(w, http.StatusOK, map[string]interface{}{"items": append([]ledger.Backup{}, s.backups...)})
}

func (s *StubAPI) createBackup(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	backup := s.addBackup(fmt.Sprintf("backup-%d.zip", s.nextID), 0)

	Envelope(w, http.StatusCreated, backup)
}

func (s *StubAPI) uploadBackup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		Fail(w, http.StatusBadRequest, "expected multipart form")
		return
	}

	file, header, err := r.FormFile("archive")
	if err != nil {
		Fail(w, http.StatusUnprocessableEntity, "archive is required")
		return
	}
	defer func() { _ = file.Close() }()

	size, _ := io.Copy(io.Discard, file)

	s.mu.Lock()
	defer s.mu.Unlock()

	Envelope(w, http.StatusCreated, s.addBackup(header.Filename, size))
}

func (s *StubAPI) addBackup(filename string, size int64) ledger.Backup {
	backup := ledger.Backup{
		ID:        s.newID(),
		Filename:  filename,
		SizeBytes: size,
		CreatedAt: time.Now().UTC(),
	}
	s.backups = append(s.backups, backup)

	return backup
}

// JSON writes v as the response body.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Envelope writes {"success": true, "data": data}.
func Envelope(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, map[string]interface{}{"success": true, "data": data})
}

// Fail writes {"success": false, "message": message}.
func Fail(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]interface{}{"success": false, "message": message})
}
