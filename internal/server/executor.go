package server

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/okhotin/agentgate/internal/action"
	"github.com/okhotin/agentgate/internal/gate"
)

// shopProduct is a demo catalog entry served by the built-in executor.
type shopProduct struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
}

type shopOrder struct {
	ID     string   `json:"id"`
	Items  []string `json:"items"`
	Total  float64  `json:"total"`
	Status string   `json:"status"`
}

// ShopExecutor backs the default action set with a small in-memory
// storefront. It exists so the gateway is usable out of the box; real
// deployments swap in an executor that talks to the upstream service.
type ShopExecutor struct {
	mu       sync.Mutex
	products []shopProduct
	carts    map[string][]string
	orders   map[string]*shopOrder
}

func NewShopExecutor() *ShopExecutor {
	return &ShopExecutor{
		products: []shopProduct{
			{ID: "prod-001", Name: "Mechanical Keyboard", Price: 129.00, Stock: 12},
			{ID: "prod-002", Name: "Ergonomic Mouse", Price: 59.50, Stock: 30},
			{ID: "prod-003", Name: "USB-C Dock", Price: 189.99, Stock: 4},
		},
		carts:  make(map[string][]string),
		orders: make(map[string]*shopOrder),
	}
}

// Execute runs an action against the in-memory store. Unknown actions
// fail; the dispatcher has already validated the name against the
// catalog so this only triggers when the two drift apart.
func (e *ShopExecutor) Execute(ctx context.Context, act action.Definition, args map[string]any) (any, error) {
	agentID := "anonymous"
	if info, ok := gate.FromContext(ctx); ok && info.AgentID != "" {
		agentID = info.AgentID
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch act.Name {
	case "search_products":
		return e.search(args), nil
	case "get_product":
		return e.getProduct(args)
	case "add_to_cart":
		return e.addToCart(agentID, args)
	case "checkout":
		return e.checkout(agentID, args)
	case "get_order_status":
		return e.orderStatus(args)
	case "cancel_order":
		return e.cancelOrder(args)
	default:
		return nil, fmt.Errorf("no executor for action %q", act.Name)
	}
}

func (e *ShopExecutor) search(args map[string]any) any {
	query, _ := args["query"].(string)
	query = strings.ToLower(query)
	var hits []shopProduct
	for _, p := range e.products {
		if query == "" || strings.Contains(strings.ToLower(p.Name), query) {
			hits = append(hits, p)
		}
	}
	return map[string]any{"products": hits, "count": len(hits)}
}

func (e *ShopExecutor) getProduct(args map[string]any) (any, error) {
	id, _ := args["product_id"].(string)
	for _, p := range e.products {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, fmt.Errorf("product %q not found", id)
}

func (e *ShopExecutor) addToCart(agentID string, args map[string]any) (any, error) {
	id, _ := args["product_id"].(string)
	if _, err := e.getProduct(args); err != nil {
		return nil, err
	}
	e.carts[agentID] = append(e.carts[agentID], id)
	return map[string]any{"cart": e.carts[agentID]}, nil
}

func (e *ShopExecutor) checkout(agentID string, args map[string]any) (any, error) {
	items := e.carts[agentID]
	if len(items) == 0 {
		return nil, fmt.Errorf("cart is empty")
	}
	var total float64
	for _, id := range items {
		for _, p := range e.products {
			if p.ID == id {
				total += p.Price
			}
		}
	}
	if amount, ok := args["amount"].(float64); ok && amount > 0 {
		total = amount
	}
	order := &shopOrder{
		ID:     "order-" + uuid.NewString()[:8],
		Items:  items,
		Total:  total,
		Status: "confirmed",
	}
	e.orders[order.ID] = order
	delete(e.carts, agentID)
	return order, nil
}

func (e *ShopExecutor) orderStatus(args map[string]any) (any, error) {
	id, _ := args["order_id"].(string)
	order, ok := e.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %q not found", id)
	}
	return order, nil
}

func (e *ShopExecutor) cancelOrder(args map[string]any) (any, error) {
	id, _ := args["order_id"].(string)
	order, ok := e.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %q not found", id)
	}
	if order.Status == "cancelled" {
		return nil, fmt.Errorf("order %q already cancelled", id)
	}
	order.Status = "cancelled"
	return order, nil
}
