package commands

import (
	"strconv"

	"github.com/fivetwenty-io/ledgerdesk/pkg/ledger"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewProductsCommand creates the products command group.
func NewProductsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "products",
		Aliases: []string{"product"},
		Short:   "Manage inventory products",
		Long:    "List and inspect products in the inventory",
	}

	cmd.AddCommand(newProductsListCommand())
	cmd.AddCommand(newProductsGetCommand())

	return cmd
}

func newProductsListCommand() *cobra.Command {
	var query []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List products",
		Long:  "List inventory products, optionally filtered with --query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseQuery(query)
			if err != nil {
				return err
			}

			client, release, err := newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			products, err := client.Products().List(cmd.Context(), params).Unwrap()
			if err != nil {
				return err
			}

			if len(products) == 0 && isTableOutput() {
				writeLine(cmd.OutOrStdout(), "No products found")
				return nil
			}

			return render(cmd.OutOrStdout(), products, func(table *tablewriter.Table) {
				table.Header("ID", "SKU", "Name", "Price", "Stock")

				for _, product := range products {
					_ = table.Append(productRow(product))
				}
			})
		},
	}

	cmd.Flags().StringArrayVarP(&query, "query", "q", nil, "filter as key=value, e.g. search=chair (repeatable)")

	return cmd
}

func newProductsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get PRODUCT_ID",
		Short: "Get product details",
		Long:  "Display detailed information about a specific product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, release, err := newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			product, err := client.Products().Get(cmd.Context(), args[0]).Unwrap()
			if err != nil {
				return err
			}

			return render(cmd.OutOrStdout(), product, func(table *tablewriter.Table) {
				table.Header("Property", "Value")
				_ = table.Append([]string{"ID", string(product.ID)})
				_ = table.Append([]string{"SKU", product.SKU})
				_ = table.Append([]string{"Name", product.Name})
				_ = table.Append([]string{"Price", formatPrice(product.Price)})
				_ = table.Append([]string{"Stock", strconv.Itoa(product.Stock)})
			})
		},
	}
}

func productRow(product ledger.Product) []string {
	return []string{
		string(product.ID),
		product.SKU,
		product.Name,
		formatPrice(product.Price),
		strconv.Itoa(product.Stock),
	}
}

func formatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', 2, 64)
}
