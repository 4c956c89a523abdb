package queries

import (
	"context"
	"strings"

	"boostpanel/contexts/fulfillment/order-pipeline/domain/entities"
	"boostpanel/contexts/fulfillment/order-pipeline/ports"
)

// OrderView is the externally visible order shape. Status uses the public
// vocabulary, never the internal state machine names.
type OrderView struct {
	OrderID      string
	ServiceID    string
	Link         string
	Quantity     int
	Charge       string
	StartCount   int64
	Remains      int
	Status       entities.PublicStatus
	ErrorMessage string
	CreatedAt    string
}

type GetOrderQuery struct {
	Orders ports.OrderRepository
}

func (q GetOrderQuery) Execute(ctx context.Context, orderID string) (OrderView, error) {
	order, err := q.Orders.GetOrder(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return OrderView{}, err
	}
	return viewFromOrder(order), nil
}

func viewFromOrder(order entities.Order) OrderView {
	return OrderView{
		OrderID:      order.OrderID,
		ServiceID:    order.ServiceID,
		Link:         order.Link,
		Quantity:     order.Quantity,
		Charge:       order.Charge.StringFixed(entities.ChargeScale),
		StartCount:   order.StartCount,
		Remains:      order.Remains,
		Status:       entities.PublicStatusFor(order.Status, order.Quantity, order.Remains),
		ErrorMessage: order.ErrorMessage,
		CreatedAt:    order.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}
