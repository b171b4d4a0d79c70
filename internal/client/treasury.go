package client

import (
	"context"
	"net/url"

	"github.com/fivetwenty-io/ledgerdesk/pkg/ledger"
)

const treasuryAccountsPath = "/treasury/accounts"

// TreasuryClient implements ledger.TreasuryClient.
type TreasuryClient struct {
	api ledger.CallClient
}

// NewTreasuryClient creates a new treasury client.
func NewTreasuryClient(api ledger.CallClient) *TreasuryClient {
	return &TreasuryClient{
		api: api,
	}
}

// Accounts implements ledger.TreasuryClient.Accounts.
func (c *TreasuryClient) Accounts(ctx context.Context) ledger.Result[[]ledger.TreasuryAccount] {
	return ledger.Decode[[]ledger.TreasuryAccount](c.api.Get(ctx, treasuryAccountsPath, nil, envelopeShape))
}

// Movements lists the movements of one account. The endpoint answers with
// an items list rather than an envelope.
func (c *TreasuryClient) Movements(ctx context.Context, accountID string, query url.Values) ledger.Result[[]ledger.Movement] {
	path, failure := resourcePath(treasuryAccountsPath, accountID, "movements")
	if failure != nil {
		return ledger.Fail[[]ledger.Movement](failure)
	}

	return ledger.Decode[[]ledger.Movement](c.api.Get(ctx, path, query, itemsShape))
}

// RecordMovement implements ledger.TreasuryClient.RecordMovement.
func (c *TreasuryClient) RecordMovement(ctx context.Context, accountID string, req *ledger.MovementCreate) ledger.Result[ledger.Movement] {
	path, failure := resourcePath(treasuryAccountsPath, accountID, "movements")
	if failure != nil {
		return ledger.Fail[ledger.Movement](failure)
	}

	return ledger.Decode[ledger.Movement](c.api.Post(ctx, path, req, envelopeShape))
}
