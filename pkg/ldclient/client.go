package ldclient

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/fivetwenty-io/ledgerdesk/internal/client"
	"github.com/fivetwenty-io/ledgerdesk/pkg/ledger"
)

var (
	defaultMu     sync.RWMutex
	defaultClient ledger.Client
)

// New creates a new ledgerdesk API client. The config is copied, so later
// changes by the caller have no effect on the returned client.
func New(ctx context.Context, config *ledger.Config) (ledger.Client, error) {
	if config == nil {
		return nil, ledger.ErrConfigRequired
	}

	if strings.TrimSpace(config.BaseURL) == "" {
		return nil, ledger.ErrBaseURLRequired
	}

	resolved := *config
	resolved.BaseURL = normalizeBaseURL(config.BaseURL)

	c, err := client.New(ctx, &resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return c, nil
}

// normalizeBaseURL trims trailing slashes and assumes https when no scheme
// is given.
func normalizeBaseURL(baseURL string) string {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}

	return baseURL
}

// NewWithEndpoint creates a new client with just a base URL.
func NewWithEndpoint(ctx context.Context, endpoint string) (ledger.Client, error) {
	return New(ctx, &ledger.Config{
		BaseURL: endpoint,
	})
}

// SetDefault registers the process-wide client returned by Default. Passing
// nil unregisters it.
func SetDefault(c ledger.Client) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	defaultClient = c
}

// Default returns the client registered with SetDefault.
func Default() (ledger.Client, error) {
	defaultMu.RLock()
	defer defaultMu.RUnlock()

	if defaultClient == nil {
		return nil, ledger.ErrNoDefaultClient
	}

	return defaultClient, nil
}
