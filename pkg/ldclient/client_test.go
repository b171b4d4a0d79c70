package ldclient_test

import (
	"context"
	"testing"

	"github.com/fivetwenty-io/ledgerdesk/internal/testutil"
	"github.com/fivetwenty-io/ledgerdesk/pkg/ldclient"
	"github.com/fivetwenty-io/ledgerdesk/pkg/ledger"
	"github.com/fivetwenty-io/ledgerdesk/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("requires config", func(t *testing.T) {
		t.Parallel()

		_, err := ldclient.New(context.Background(), nil)
		require.ErrorIs(t, err, ledger.ErrConfigRequired)
	})

	t.Run("requires base URL", func(t *testing.T) {
		t.Parallel()

		_, err := ldclient.New(context.Background(), &ledger.Config{BaseURL: "  "})
		require.ErrorIs(t, err, ledger.ErrBaseURLRequired)
	})

	t.Run("wraps validation errors", func(t *testing.T) {
		t.Parallel()

		_, err := ldclient.New(context.Background(), &ledger.Config{
			BaseURL:  "https://erp.example.com",
			RetryMax: -1,
		})
		require.ErrorIs(t, err, ledger.ErrNegativeRetries)
	})

	tests := []struct {
		name     string
		baseURL  string
		expected string
	}{
		{"adds https", "erp.example.com/api", "https://erp.example.com/api"},
		{"trims trailing slashes", "https://erp.example.com/api//", "https://erp.example.com/api"},
		{"keeps http", "http://localhost:8080", "http://localhost:8080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			config := &ledger.Config{BaseURL: tt.baseURL}

			client, err := ldclient.New(context.Background(), config)
			require.NoError(t, err)

			baseURLer, ok := client.(interface{ BaseURL() string })
			require.True(t, ok)
			assert.Equal(t, tt.expected, baseURLer.BaseURL())
			assert.Equal(t, tt.baseURL, config.BaseURL, "caller config must not change")
		})
	}
}

func TestNewWithEndpoint(t *testing.T) {
	t.Parallel()

	client, err := ldclient.NewWithEndpoint(context.Background(), "https://erp.example.com")
	require.NoError(t, err)
	assert.NotNil(t, client)
	assert.False(t, client.IsAuthenticated())
}

func TestInstancesAreIsolated(t *testing.T) {
	t.Parallel()

	stub := testutil.NewStubAPI(t)
	ctx := context.Background()

	first, err := ldclient.New(ctx, &ledger.Config{BaseURL: stub.URL(), Persistence: persistence.NewMemory()})
	require.NoError(t, err)

	second, err := ldclient.New(ctx, &ledger.Config{BaseURL: stub.URL(), Persistence: persistence.NewMemory()})
	require.NoError(t, err)

	_, err = first.Login(ctx, ledger.Credentials{Username: "test", Password: "password"}).Unwrap()
	require.NoError(t, err)

	assert.True(t, first.IsAuthenticated())
	assert.False(t, second.IsAuthenticated())

	require.NoError(t, first.SetRetries(0))
	health := second.Diagnostics().Health(ctx)
	assert.True(t, health.Success())
}

//nolint:paralleltest // mutates the process-wide default client
func TestDefault(t *testing.T) {
	ldclient.SetDefault(nil)
	t.Cleanup(func() { ldclient.SetDefault(nil) })

	_, err := ldclient.Default()
	require.ErrorIs(t, err, ledger.ErrNoDefaultClient)

	client, err := ldclient.NewWithEndpoint(context.Background(), "https://erp.example.com")
	require.NoError(t, err)

	ldclient.SetDefault(client)

	got, err := ldclient.Default()
	require.NoError(t, err)
	assert.Same(t, client, got)
}
