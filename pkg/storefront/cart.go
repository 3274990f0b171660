package storefront

import (
	"context"
	"net/http"

	"git.sr.ht/~jakintosh/storefront/pkg/api"
)

// Cart manages the signed-in account's cart.
type Cart struct {
	shop *Shop
}

func (c *Cart) List(ctx context.Context) ([]api.CartItem, error) {
	items := []api.CartItem{}
	err := c.shop.get(ctx, api.RouteCart, &items)
	return items, err
}

// Add puts one of the product in the cart, bumping the quantity of an
// existing line rather than adding a second one.
func (c *Cart) Add(ctx context.Context, productID int64) (*api.CartItem, error) {
	items, err := c.List(ctx)
	if err != nil {
		return nil, err
	}

	item := new(api.CartItem)
	for _, existing := range items {
		if existing.Product.ID != productID {
			continue
		}
		err := c.shop.call(ctx, http.MethodPatch, api.CartItemPath(existing.ID),
			api.QuantityRequest{Quantity: existing.Quantity + 1}, item)
		if err != nil {
			return nil, err
		}
		return item, nil
	}

	err = c.shop.call(ctx, http.MethodPost, api.RouteCart,
		api.CartItemRequest{ProductID: productID, Quantity: 1}, item)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateQuantity moves a line's quantity by delta. It never drops below
// one; use Remove to take the line out.
func (c *Cart) UpdateQuantity(ctx context.Context, itemID int64, delta int) (*api.CartItem, error) {
	current := new(api.CartItem)
	if err := c.shop.get(ctx, api.CartItemPath(itemID), current); err != nil {
		return nil, err
	}

	quantity := max(current.Quantity+delta, 1)
	if quantity == current.Quantity {
		return current, nil
	}

	item := new(api.CartItem)
	err := c.shop.call(ctx, http.MethodPatch, api.CartItemPath(itemID),
		api.QuantityRequest{Quantity: quantity}, item)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (c *Cart) Remove(ctx context.Context, itemID int64) error {
	return c.shop.call(ctx, http.MethodDelete, api.CartItemPath(itemID), nil, nil)
}

// Clear removes every line, stopping at the first failure.
func (c *Cart) Clear(ctx context.Context) error {
	items, err := c.List(ctx)
	if err != nil {
		return err
	}
	for _, item := range items {
		if err := c.Remove(ctx, item.ID); err != nil {
			return err
		}
	}
	return nil
}

// Total sums the cart lines.
func Total(items []api.CartItem) api.Price {
	var total api.Price
	for _, item := range items {
		total += item.Product.Price * api.Price(item.Quantity)
	}
	return total
}
