package client

import (
	"context"
	"net/url"

	"github.com/fivetwenty-io/ledgerdesk/pkg/ledger"
)

const productsPath = "/products"

// ProductsClient implements ledger.ProductsClient.
type ProductsClient struct {
	api ledger.CallClient
}

// NewProductsClient creates a new products client.
func NewProductsClient(api ledger.CallClient) *ProductsClient {
	return &ProductsClient{
		api: api,
	}
}

// List implements ledger.ProductsClient.List.
func (c *ProductsClient) List(ctx context.Context, query url.Values) ledger.Result[[]ledger.Product] {
	return ledger.Decode[[]ledger.Product](c.api.Get(ctx, productsPath, query, envelopeShape))
}

// Get implements ledger.ProductsClient.Get.
func (c *ProductsClient) Get(ctx context.Context, id string) ledger.Result[ledger.Product] {
	path, failure := resourcePath(productsPath, id)
	if failure != nil {
		return ledger.Fail[ledger.Product](failure)
	}

	return ledger.Decode[ledger.Product](c.api.Get(ctx, path, nil, envelopeShape))
}

// Create implements ledger.ProductsClient.Create.
func (c *ProductsClient) Create(ctx context.Context, req *ledger.ProductCreate) ledger.Result[ledger.Product] {
	return ledger.Decode[ledger.Product](c.api.Post(ctx, productsPath, req, envelopeShape))
}

// Update implements ledger.ProductsClient.Update.
func (c *ProductsClient) Update(ctx context.Context, id string, req *ledger.ProductUpdate) ledger.Result[ledger.Product] {
	path, failure := resourcePath(productsPath, id)
	if failure != nil {
		return ledger.Fail[ledger.Product](failure)
	}

	return ledger.Decode[ledger.Product](c.api.Patch(ctx, path, req, envelopeShape))
}

// Delete implements ledger.ProductsClient.Delete.
func (c *ProductsClient) Delete(ctx context.Context, id string) ledger.Result[struct{}] {
	path, failure := resourcePath(productsPath, id)
	if failure != nil {
		return ledger.Fail[struct{}](failure)
	}

	return ledger.Discard(c.api.Delete(ctx, path, envelopeShape))
}

// AdjustStock implements ledger.ProductsClient.AdjustStock.
func (c *ProductsClient) AdjustStock(ctx context.Context, id string, adj *ledger.StockAdjustment) ledger.Result[ledger.Product] {
	path, failure := resourcePath(productsPath, id, "stock")
	if failure != nil {
		return ledger.Fail[ledger.Product](failure)
	}

	return ledger.Decode[ledger.Product](c.api.Post(ctx, path, adj, envelopeShape))
}
