package client

import (
	"context"
	"net/url"

	"github.com/fivetwenty-io/ledgerdesk/pkg/ledger"
)

const invoicesPath = "/invoices"

// InvoicesClient implements ledger.InvoicesClient.
type InvoicesClient struct {
	api ledger.CallClient
}

// NewInvoicesClient creates a new invoices client.
func NewInvoicesClient(api ledger.CallClient) *InvoicesClient {
	return &InvoicesClient{
		api: api,
	}
}

// List implements ledger.InvoicesClient.List.
func (c *InvoicesClient) List(ctx context.Context, query url.Values) ledger.Result[[]ledger.Invoice] {
	return ledger.Decode[[]ledger.Invoice](c.api.Get(ctx, invoicesPath, query, envelopeShape))
}

// Get implements ledger.InvoicesClient.Get.
func (c *InvoicesClient) Get(ctx context.Context, id string) ledger.Result[ledger.Invoice] {
	path, failure := resourcePath(invoicesPath, id)
	if failure != nil {
		return ledger.Fail[ledger.Invoice](failure)
	}

	return ledger.Decode[ledger.Invoice](c.api.Get(ctx, path, nil, envelopeShape))
}

// Create implements ledger.InvoicesClient.Create.
func (c *InvoicesClient) Create(ctx context.Context, req *ledger.InvoiceCreate) ledger.Result[ledger.Invoice] {
	return ledger.Decode[ledger.Invoice](c.api.Post(ctx, invoicesPath, req, envelopeShape))
}

// MarkPaid implements ledger.InvoicesClient.MarkPaid.
func (c *InvoicesClient) MarkPaid(ctx context.Context, id string, payment *ledger.Payment) ledger.Result[ledger.Invoice] {
	path, failure := resourcePath(invoicesPath, id, "pay")
	if failure != nil {
		return ledger.Fail[ledger.Invoice](failure)
	}

	return ledger.Decode[ledger.Invoice](c.api.Post(ctx, path, payment, envelopeShape))
}

// Delete implements ledger.InvoicesClient.Delete.
func (c *InvoicesClient) Delete(ctx context.Context, id string) ledger.Result[struct{}] {
	path, failure := resourcePath(invoicesPath, id)
	if failure != nil {
		return ledger.Fail[struct{}](failure)
	}

	return ledger.Discard(c.api.Delete(ctx, path, envelopeShape))
}
