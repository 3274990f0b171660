package service

import (
	"database/sql"
	"errors"
	"fmt"

	"git.sr.ht/~jakintosh/storefront/pkg/api"
)

func (s *Service) ListCart(
	actor *api.User,
) (
	[]api.CartItem,
	error,
) {
	items, err := s.cart.ListCart(actor.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return items, nil
}

// AddToCart puts quantity of a product in the cart. A product already in
// the cart has its line incremented instead.
func (s *Service) AddToCart(
	actor *api.User,
	productID int64,
	quantity int,
) (
	*api.CartItem,
	error,
) {
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return nil, fieldError("quantity", "Ensure this value is greater than or equal to 1.")
	}
	if _, err := s.products.GetProduct(productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fieldError("product_id", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", productID))
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	existing, err := s.cart.FindCartItem(actor.ID, productID)
	switch {
	case err == nil:
		if _, err := s.cart.UpdateCartQuantity(actor.ID, existing.ID, existing.Quantity+quantity); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInternal, err)
		}
		return s.GetCartItem(actor, existing.ID)
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	id, err := s.cart.InsertCartItem(actor.ID, productID, quantity)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return s.GetCartItem(actor, id)
}

func (s *Service) UpdateCartItem(
	actor *api.User,
	itemID int64,
	quantity int,
) (
	*api.CartItem,
	error,
) {
	if quantity < 1 {
		return nil, fieldError("quantity", "Ensure this value is greater than or equal to 1.")
	}
	updated, err := s.cart.UpdateCartQuantity(actor.ID, itemID, quantity)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if !updated {
		return nil, fmt.Errorf("%w: cart item %d", ErrNotFound, itemID)
	}
	return s.GetCartItem(actor, itemID)
}

func (s *Service) RemoveCartItem(
	actor *api.User,
	itemID int64,
) error {
	deleted, err := s.cart.DeleteCartItem(actor.ID, itemID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if !deleted {
		return fmt.Errorf("%w: cart item %d", ErrNotFound, itemID)
	}
	return nil
}

func (s *Service) GetCartItem(actor *api.User, itemID int64) (*api.CartItem, error) {
	item, err := s.cart.GetCartItem(actor.ID, itemID)
	if err != nil {
		return nil, storeErr(err, fmt.Sprintf("cart item %d", itemID))
	}
	return item, nil
}
