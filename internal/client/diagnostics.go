package client

import (
	"context"

	"github.com/fivetwenty-io/ledgerdesk/internal/constants"
	"github.com/fivetwenty-io/ledgerdesk/pkg/ledger"
)

// DiagnosticsClient implements ledger.DiagnosticsClient.
type DiagnosticsClient struct {
	api ledger.CallClient
}

// NewDiagnosticsClient creates a new diagnostics client.
func NewDiagnosticsClient(api ledger.CallClient) *DiagnosticsClient {
	return &DiagnosticsClient{
		api: api,
	}
}

// Health implements ledger.DiagnosticsClient.Health.
func (c *DiagnosticsClient) Health(ctx context.Context) ledger.Result[ledger.HealthReport] {
	return ledger.Decode[ledger.HealthReport](c.api.Get(ctx, constants.HealthPath, nil))
}
