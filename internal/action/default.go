package action

import "github.com/okhotin/agentgate/internal/permission"

// Action categories. The sandbox cost model and guardrail rules key
// off these.
const (
	CategorySearch   = "search"
	CategoryContent  = "content"
	CategoryPurchase = "purchase"
	CategoryAccount  = "account"
)

// defaultDefinitions is the built-in catalog used when no operator
// catalog file is configured.
func defaultDefinitions() []Definition {
	return []Definition{
		{
			ID:                 "act-search-products",
			Name:               "search_products",
			Description:        "Search the product catalog by keyword, with optional price bounds.",
			RequiredPermission: permission.Read,
			Category:           CategorySearch,
			Params: []Param{
				{Name: "query", Type: "string", Description: "search keywords", Required: true},
				{Name: "max_price", Type: "number", Description: "upper price bound"},
				{Name: "limit", Type: "integer", Description: "maximum results, default 10"},
			},
			Enabled: true,
		},
		{
			ID:                 "act-get-product",
			Name:               "get_product",
			Description:        "Fetch full details for a single product by id.",
			RequiredPermission: permission.Read,
			Category:           CategoryContent,
			Params: []Param{
				{Name: "product_id", Type: "string", Required: true},
			},
			Enabled: true,
		},
		{
			ID:                 "act-add-to-cart",
			Name:               "add_to_cart",
			Description:        "Add a product to the caller's cart.",
			RequiredPermission: permission.Write,
			Category:           CategoryPurchase,
			Params: []Param{
				{Name: "product_id", Type: "string", Required: true},
				{Name: "quantity", Type: "integer", Description: "default 1"},
			},
			Enabled: true,
		},
		{
			ID:                   "act-checkout",
			Name:                 "checkout",
			Description:          "Place an order for the current cart. Charges the stored payment method.",
			RequiredPermission:   permission.Execute,
			ConfirmationRequired: true,
			Category:             CategoryPurchase,
			Params: []Param{
				{Name: "cart_id", Type: "string", Required: true},
				{Name: "amount", Type: "number", Description: "expected total, for mismatch detection", Required: true},
			},
			Enabled: true,
		},
		{
			ID:                   "act-cancel-order",
			Name:                 "cancel_order",
			Description:          "Cancel a placed order that has not shipped.",
			RequiredPermission:   permission.Execute,
			ConfirmationRequired: true,
			Category:             CategoryAccount,
			Params: []Param{
				{Name: "order_id", Type: "string", Required: true},
			},
			Enabled: true,
		},
		{
			ID:                 "act-get-order-status",
			Name:               "get_order_status",
			Description:        "Look up the status of an order.",
			RequiredPermission: permission.Read,
			Category:           CategoryAccount,
			Params: []Param{
				{Name: "order_id", Type: "string", Required: true},
			},
			Enabled: true,
		},
	}
}
