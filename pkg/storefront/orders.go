package storefront

import (
	"context"
	"net/http"
	"strings"

	"git.sr.ht/~jakintosh/storefront/pkg/api"
)

// Orders places and tracks orders. Admins see every account's orders.
type Orders struct {
	shop *Shop
}

func (o *Orders) List(ctx context.Context) ([]api.Order, error) {
	orders := []api.Order{}
	err := o.shop.get(ctx, api.RouteOrders, &orders)
	return orders, err
}

// Get fetches an order and checks it belongs to the signed-in account,
// unless that account is an admin.
func (o *Orders) Get(ctx context.Context, id int64) (*api.Order, error) {
	identity, err := o.shop.identity(ctx)
	if err != nil {
		return nil, err
	}

	order := new(api.Order)
	if err := o.shop.get(ctx, api.OrderPath(id), order); err != nil {
		return nil, err
	}
	if order.User != identity.ID && !identity.IsAdmin() {
		return nil, ErrOrderNotOwned
	}
	return order, nil
}

// Create checks out the whole cart to address.
func (o *Orders) Create(ctx context.Context, address string) (*api.Order, error) {
	order := new(api.Order)
	err := o.shop.call(ctx, http.MethodPost, api.RouteOrders,
		api.OrderRequest{Address: strings.TrimSpace(address)}, order)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (o *Orders) UpdateStatus(ctx context.Context, id int64, status string) (*api.Order, error) {
	order := new(api.Order)
	err := o.shop.call(ctx, http.MethodPatch, api.OrderPath(id),
		api.StatusRequest{Status: status}, order)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (o *Orders) Cancel(ctx context.Context, id int64) (*api.Order, error) {
	return o.UpdateStatus(ctx, id, api.OrderCancelled)
}

// Reorder places a new order for exactly the items of an earlier one, to the
// same address. The cart is left as it is.
func (o *Orders) Reorder(ctx context.Context, id int64) (*api.Order, error) {
	previous, err := o.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	lines := make([]api.OrderLine, 0, len(previous.Items))
	for _, item := range previous.Items {
		lines = append(lines, api.OrderLine{Product: item.Product.ID, Quantity: item.Quantity})
	}

	order := new(api.Order)
	err = o.shop.call(ctx, http.MethodPost, api.RouteOrders,
		api.OrderRequest{Address: previous.Address, Items: lines}, order)
	if err != nil {
		return nil, err
	}
	return order, nil
}
