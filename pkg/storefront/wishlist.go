package storefront

import (
	"context"
	"net/http"

	"git.sr.ht/~jakintosh/storefront/pkg/api"
)

type Wishlist struct {
	shop *Shop
}

func (w *Wishlist) List(ctx context.Context) ([]api.WishlistItem, error) {
	items := []api.WishlistItem{}
	err := w.shop.get(ctx, api.RouteWishlist, &items)
	return items, err
}

// Add saves a product. A product already on the list is ErrAlreadyInWishlist,
// whether the list or the server noticed first.
func (w *Wishlist) Add(ctx context.Context, productID int64) (*api.WishlistItem, error) {
	items, err := w.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if item.ProductDetails.ID == productID {
			return nil, ErrAlreadyInWishlist
		}
	}

	item := new(api.WishlistItem)
	err = w.shop.call(ctx, http.MethodPost, api.RouteWishlist,
		api.WishlistRequest{Product: productID}, item)
	if len(fieldMessages(err, "product")) > 0 {
		return nil, ErrAlreadyInWishlist
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (w *Wishlist) Remove(ctx context.Context, itemID int64) error {
	return w.shop.call(ctx, http.MethodDelete, api.WishlistPath(itemID), nil, nil)
}
