package queries

import (
	"context"
	"strings"

	"boostpanel/contexts/fulfillment/order-pipeline/ports"
)

type ListOrdersQuery struct {
	Orders ports.OrderRepository
}

// Execute pages through one user's orders, newest first.
func (q ListOrdersQuery) Execute(ctx context.Context, userID string, limit, offset int) ([]OrderView, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	orders, err := q.Orders.ListOrdersByUser(ctx, strings.TrimSpace(userID), limit, offset)
	if err != nil {
		return nil, err
	}
	views := make([]OrderView, 0, len(orders))
	for _, order := range orders {
		views = append(views, viewFromOrder(order))
	}
	return views, nil
}
