package client

import (
	"context"
	"net/url"

	"github.com/fivetwenty-io/ledgerdesk/pkg/ledger"
)

const customersPath = "/customers"

// CustomersClient implements ledger.CustomersClient.
type CustomersClient struct {
	api ledger.CallClient
}

// NewCustomersClient creates a new customers client.
func NewCustomersClient(api ledger.CallClient) *CustomersClient {
	return &CustomersClient{
		api: api,
	}
}

// List implements ledger.CustomersClient.List.
func (c *CustomersClient) List(ctx context.Context, query url.Values) ledger.Result[[]ledger.Customer] {
	return ledger.Decode[[]ledger.Customer](c.api.Get(ctx, customersPath, query, envelopeShape))
}

// Get implements ledger.CustomersClient.Get.
func (c *CustomersClient) Get(ctx context.Context, id string) ledger.Result[ledger.Customer] {
	path, failure := resourcePath(customersPath, id)
	if failure != nil {
		return ledger.Fail[ledger.Customer](failure)
	}

	return ledger.Decode[ledger.Customer](c.api.Get(ctx, path, nil, envelopeShape))
}

// Create implements ledger.CustomersClient.Create.
func (c *CustomersClient) Create(ctx context.Context, req *ledger.CustomerRequest) ledger.Result[ledger.Customer] {
	return ledger.Decode[ledger.Customer](c.api.Post(ctx, customersPath, req, envelopeShape))
}

// Update implements ledger.CustomersClient.Update.
func (c *CustomersClient) Update(ctx context.Context, id string, req *ledger.CustomerRequest) ledger.Result[ledger.Customer] {
	path, failure := resourcePath(customersPath, id)
	if failure != nil {
		return ledger.Fail[ledger.Customer](failure)
	}

	return ledger.Decode[ledger.Customer](c.api.Put(ctx, path, req, envelopeShape))
}

// Delete implements ledger.CustomersClient.Delete.
func (c *CustomersClient) Delete(ctx context.Context, id string) ledger.Result[struct{}] {
	path, failure := resourcePath(customersPath, id)
	if failure != nil {
		return ledger.Fail[struct{}](failure)
	}

	return ledger.Discard(c.api.Delete(ctx, path, envelopeShape))
}
