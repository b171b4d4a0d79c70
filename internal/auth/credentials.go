package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/fivetwenty-io/ledgerdesk/internal/constants"
	"github.com/fivetwenty-io/ledgerdesk/pkg/ledger"
)

// Exchanger sends authentication calls through the client's request pipeline.
type Exchanger interface {
	Exchange(ctx context.Context, method, path string, body interface{}, opts ...ledger.CallOption) ledger.Result[json.RawMessage]
}

// Options configures a CredentialStore.
type Options struct {
	Persistence ledger.CredentialPersistence
	Logger      ledger.Logger
	LoginPath   string
	LogoutPath  string
	RefreshPath string
}

// CredentialStore owns the session: it logs in and out, refreshes tokens and
// writes every change through to the durable mirror.
type CredentialStore struct {
	store       *SessionStore
	persistence ledger.CredentialPersistence
	logger      ledger.Logger
	loginPath   string
	logoutPath  string
	refreshPath string

	refreshMu sync.Mutex
}

type tokenData struct {
	AccessToken  string              `json:"access_token"`
	RefreshToken string              `json:"refresh_token"`
	User         *ledger.UserSummary `json:"user"`
}

// NewCredentialStore creates a store with an empty session. Call Rehydrate
// to load a mirrored session.
func NewCredentialStore(opts Options) *CredentialStore {
	store := &CredentialStore{
		store:       NewSessionStore(),
		persistence: opts.Persistence,
		logger:      opts.Logger,
		loginPath:   opts.LoginPath,
		logoutPath:  opts.LogoutPath,
		refreshPath: opts.RefreshPath,
	}

	if store.loginPath == "" {
		store.loginPath = constants.LoginPath
	}

	if store.logoutPath == "" {
		store.logoutPath = constants.LogoutPath
	}

	if store.refreshPath == "" {
		store.refreshPath = constants.RefreshPath
	}

	return store
}

// Rehydrate loads the session from the durable mirror. A missing or
// partial mirror leaves the store unauthenticated.
func (c *CredentialStore) Rehydrate(ctx context.Context) error {
	if c.persistence == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, constants.PersistenceTimeout)
	defer cancel()

	accessToken, err := c.persistence.Get(ctx, ledger.KeyAccessToken)
	if err != nil {
		return fmt.Errorf("reading mirrored access token: %w", err)
	}

	if accessToken == "" {
		return nil
	}

	refreshToken, err := c.persistence.Get(ctx, ledger.KeyRefreshToken)
	if err != nil {
		return fmt.Errorf("reading mirrored refresh token: %w", err)
	}

	var user *ledger.UserSummary

	rawUser, err := c.persistence.Get(ctx, ledger.KeyUser)
	if err != nil {
		return fmt.Errorf("reading mirrored user: %w", err)
	}

	if rawUser != "" {
		user = &ledger.UserSummary{}
		if err := json.Unmarshal([]byte(rawUser), user); err != nil {
			c.warn("Ignoring unreadable mirrored user", map[string]interface{}{"error": err.Error()})

			user = nil
		}
	}

	c.store.Set(NewToken(accessToken, refreshToken), user)

	return nil
}

// Login exchanges credentials for a session. On failure any existing
// session is left untouched.
func (c *CredentialStore) Login(ctx context.Context, ex Exchanger, creds ledger.Credentials) ledger.Result[ledger.UserSummary] {
	result := ex.Exchange(ctx, http.MethodPost, c.loginPath, creds,
		ledger.ExpectShape(ledger.ShapeEnvelope),
		ledger.KeepSessionOnUnauthorized(),
		ledger.Anonymous(),
	)
	if result.Failure != nil {
		return ledger.Fail[ledger.UserSummary](loginFailure(result.Failure))
	}

	var data tokenData
	if err := json.Unmarshal(result.Data, &data); err != nil {
		return ledger.Fail[ledger.UserSummary](
			ledger.NewFailure(ledger.KindParseError, http.StatusOK, "malformed login response").WithCause(err))
	}

	if data.AccessToken == "" {
		return ledger.Fail[ledger.UserSummary](
			ledger.NewFailure(ledger.KindUnauthorized, http.StatusOK, constants.ErrMissingToken.Error()).WithCause(constants.ErrMissingToken))
	}

	user := data.User
	if user == nil {
		user = &ledger.UserSummary{Username: creds.Username}
	}

	c.establish(ctx, NewToken(data.AccessToken, data.RefreshToken), user)

	return ledger.Succeed(*user)
}

// loginFailure reports a rejected login (success=false) as Unauthorized.
func loginFailure(f *ledger.Failure) *ledger.Failure {
	if f.Kind == ledger.KindValidation && f.Status >= 200 && f.Status < 300 {
		return &ledger.Failure{
			Kind:     ledger.KindUnauthorized,
			Message:  f.Message,
			Status:   f.Status,
			Attempts: f.Attempts,
		}
	}

	return f
}

// Logout tells the server (best effort) and clears the session in memory
// and in the mirror regardless of the server's answer.
func (c *CredentialStore) Logout(ctx context.Context, ex Exchanger) ledger.Result[struct{}] {
	if !c.IsAuthenticated() {
		return ledger.Succeed(struct{}{})
	}

	result := ex.Exchange(ctx, http.MethodPost, c.logoutPath, nil,
		ledger.KeepSessionOnUnauthorized(),
		ledger.CallTimeout(constants.ShortHTTPTimeout),
	)
	if result.Failure != nil {
		c.warn("Logout request failed, clearing local session anyway", map[string]interface{}{
			"kind":   string(result.Failure.Kind),
			"status": result.Failure.Status,
		})
	}

	c.Clear(ctx)

	return ledger.Succeed(struct{}{})
}

// Refresh exchanges the refresh token for a new token pair.
func (c *CredentialStore) Refresh(ctx context.Context, ex Exchanger) ledger.Result[struct{}] {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	return c.refreshLocked(ctx, ex)
}

// RefreshIfExpiring refreshes when the access token expires within d.
// Concurrent callers share one refresh.
func (c *CredentialStore) RefreshIfExpiring(ctx context.Context, ex Exchanger, d time.Duration) ledger.Result[struct{}] {
	if !c.store.Get().ExpiresWithin(d) {
		return ledger.Succeed(struct{}{})
	}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	// another caller may have refreshed while we waited
	token := c.store.Get()
	if token == nil || !token.ExpiresWithin(d) {
		return ledger.Succeed(struct{}{})
	}

	return c.refreshLocked(ctx, ex)
}

func (c *CredentialStore) refreshLocked(ctx context.Context, ex Exchanger) ledger.Result[struct{}] {
	current := c.store.Get()
	if current == nil || current.RefreshToken == "" {
		return ledger.Fail[struct{}](
			ledger.NewFailure(ledger.KindUnauthorized, 0, ledger.ErrNoRefreshToken.Error()).WithCause(ledger.ErrNoRefreshToken))
	}

	result := ex.Exchange(ctx, http.MethodPost, c.refreshPath,
		map[string]string{"refresh_token": current.RefreshToken},
		ledger.ExpectShape(ledger.ShapeEnvelope),
		ledger.KeepSessionOnUnauthorized(),
		ledger.Anonymous(),
	)
	if result.Failure != nil {
		return ledger.Fail[struct{}](result.Failure)
	}

	var data tokenData
	if err := json.Unmarshal(result.Data, &data); err != nil || data.AccessToken == "" {
		if err == nil {
			err = constants.ErrMissingToken
		}

		return ledger.Fail[struct{}](
			ledger.NewFailure(ledger.KindParseError, http.StatusOK, "malformed refresh response").WithCause(err))
	}

	refreshToken := data.RefreshToken
	if refreshToken == "" {
		refreshToken = current.RefreshToken
	}

	token := NewToken(data.AccessToken, refreshToken)
	c.store.SetToken(token)
	c.mirrorTokens(ctx, token)

	return ledger.Succeed(struct{}{})
}

// Clear drops the session from memory and from the mirror.
func (c *CredentialStore) Clear(ctx context.Context) {
	c.store.Clear()

	if c.persistence == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.PersistenceTimeout)
	defer cancel()

	var errs []error

	for _, key := range []string{ledger.KeyAccessToken, ledger.KeyRefreshToken, ledger.KeyUser} {
		if err := c.persistence.Clear(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		c.warn("Failed to clear mirrored session", map[string]interface{}{"error": err.Error()})
	}
}

// IsAuthenticated reports whether an access token is held.
func (c *CredentialStore) IsAuthenticated() bool {
	return c.store.AccessToken() != ""
}

// Token returns the access token, or "" when unauthenticated.
func (c *CredentialStore) Token() string {
	return c.store.AccessToken()
}

// Session returns a copy of the current session.
func (c *CredentialStore) Session() ledger.Session {
	return c.store.Session()
}

// establish stores a new session in memory and then in the mirror.
func (c *CredentialStore) establish(ctx context.Context, token *Token, user *ledger.UserSummary) {
	c.store.Set(token, user)
	c.mirrorTokens(ctx, token)

	if c.persistence == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.PersistenceTimeout)
	defer cancel()

	rawUser, err := json.Marshal(user)
	if err == nil {
		err = c.persistence.Set(ctx, ledger.KeyUser, string(rawUser))
	}

	if err != nil {
		c.warn("Failed to mirror user", map[string]interface{}{"error": err.Error()})
	}
}

func (c *CredentialStore) mirrorTokens(ctx context.Context, token *Token) {
	if c.persistence == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.PersistenceTimeout)
	defer cancel()

	err := c.persistence.Set(ctx, ledger.KeyAccessToken, token.AccessToken)
	if err == nil {
		if token.RefreshToken != "" {
			err = c.persistence.Set(ctx, ledger.KeyRefreshToken, token.RefreshToken)
		} else {
			err = c.persistence.Clear(ctx, ledger.KeyRefreshToken)
		}
	}

	if err != nil {
		c.warn("Failed to mirror session tokens", map[string]interface{}{"error": err.Error()})
	}
}

func (c *CredentialStore) warn(msg string, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.Warn(msg, fields)
	}
}
