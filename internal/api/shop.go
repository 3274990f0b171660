package api

import (
	"net/http"

	"git.sr.ht/~jakintosh/storefront/pkg/api"
)

func (a *API) ListCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := a.service.ListCart(currentUser(r))
		if err != nil {
			returnError(w, r, err)
			return
		}
		returnJson(w, http.StatusOK, items)
	}
}

func (a *API) AddToCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := api.CartItemRequest{}
		if ok := decodeRequest(&req, w, r); !ok {
			return
		}
		item, err := a.service.AddToCart(currentUser(r), req.ProductID, req.Quantity)
		if err != nil {
			returnError(w, r, err)
			return
		}
		returnJson(w, http.StatusCreated, item)
	}
}

func (a *API) GetCartItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		item, err := a.service.GetCartItem(currentUser(r), id)
		if err != nil {
			returnError(w, r, err)
			return
		}
		returnJson(w, http.StatusOK, item)
	}
}

func (a *API) UpdateCartItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		req := api.QuantityRequest{}
		if ok := decodeRequest(&req, w, r); !ok {
			return
		}
		item, err := a.service.UpdateCartItem(currentUser(r), id, req.Quantity)
		if err != nil {
			returnError(w, r, err)
			return
		}
		returnJson(w, http.StatusOK, item)
	}
}

func (a *API) RemoveCartItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		if err := a.service.RemoveCartItem(currentUser(r), id); err != nil {
			returnError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (a *API) ListWishlist() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := a.service.ListWishlist(currentUser(r))
		if err != nil {
			returnError(w, r, err)
			return
		}
		returnJson(w, http.StatusOK, items)
	}
}

func (a *API) AddToWishlist() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := api.WishlistRequest{}
		if ok := decodeRequest(&req, w, r); !ok {
			return
		}
		item, err := a.service.AddToWishlist(currentUser(r), req.Product)
		if err != nil {
			returnError(w, r, err)
			return
		}
		returnJson(w, http.StatusCreated, item)
	}
}

func (a *API) RemoveFromWishlist() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		if err := a.service.RemoveFromWishlist(currentUser(r), id); err != nil {
			returnError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (a *API) ListOrders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orders, err := a.service.ListOrders(currentUser(r))
		if err != nil {
			returnError(w, r, err)
			return
		}
		returnJson(w, http.StatusOK, orders)
	}
}

func (a *API) CreateOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := api.OrderRequest{}
		if ok := decodeRequest(&req, w, r); !ok {
			return
		}
		order, err := a.service.CreateOrder(currentUser(r), req.Address, req.Items)
		if err != nil {
			returnError(w, r, err)
			return
		}
		returnJson(w, http.StatusCreated, order)
	}
}

func (a *API) GetOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		order, err := a.service.GetOrder(currentUser(r), id)
		if err != nil {
			returnError(w, r, err)
			return
		}
		returnJson(w, http.StatusOK, order)
	}
}

func (a *API) UpdateOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		req := api.StatusRequest{}
		if ok := decodeRequest(&req, w, r); !ok {
			return
		}
		order, err := a.service.UpdateOrderStatus(currentUser(r), id, req.Status)
		if err != nil {
			returnError(w, r, err)
			return
		}
		returnJson(w, http.StatusOK, order)
	}
}
