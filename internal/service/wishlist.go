package service

import (
	"database/sql"
	"errors"
	"fmt"

	"git.sr.ht/~jakintosh/storefront/pkg/api"
)

const MsgAlreadyInWishlist = "Product is already in the wishlist."

func (s *Service) ListWishlist(
	actor *api.User,
) (
	[]api.WishlistItem,
	error,
) {
	items, err := s.wishlist.ListWishlist(actor.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return items, nil
}

func (s *Service) AddToWishlist(
	actor *api.User,
	productID int64,
) (
	*api.WishlistItem,
	error,
) {
	product, err := s.products.GetProduct(productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fieldError("product", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", productID))
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	contains, err := s.wishlist.WishlistContains(actor.ID, productID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if contains {
		return nil, fieldError("product", MsgAlreadyInWishlist)
	}

	id, err := s.wishlist.InsertWishlistItem(actor.ID, productID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return &api.WishlistItem{
		ID: id,
		ProductDetails: api.ProductSummary{
			ID:       product.ID,
			Name:     product.Name,
			Price:    product.Price,
			Category: product.Category,
		},
	}, nil
}

func (s *Service) RemoveFromWishlist(
	actor *api.User,
	itemID int64,
) error {
	deleted, err := s.wishlist.DeleteWishlistItem(actor.ID, itemID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if !deleted {
		return fmt.Errorf("%w: wishlist item %d", ErrNotFound, itemID)
	}
	return nil
}
