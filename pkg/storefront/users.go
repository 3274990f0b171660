package storefront

import (
	"context"
	"net/http"

	"git.sr.ht/~jakintosh/storefront/pkg/api"
)

// Users administers accounts. Non-admins only ever see themselves.
type Users struct {
	shop *Shop
}

func (u *Users) List(ctx context.Context) ([]api.User, error) {
	users := []api.User{}
	err := u.shop.get(ctx, api.RouteUsers, &users)
	return users, err
}

func (u *Users) Get(ctx context.Context, id int64) (*api.User, error) {
	user := new(api.User)
	if err := u.shop.get(ctx, api.UserPath(id), user); err != nil {
		return nil, err
	}
	return user, nil
}

func (u *Users) SetBlocked(ctx context.Context, id int64, blocked bool) (*api.User, error) {
	return u.patch(ctx, id, api.UserPatch{Blocked: &blocked})
}

func (u *Users) SetRole(ctx context.Context, id int64, role api.Role) (*api.User, error) {
	return u.patch(ctx, id, api.UserPatch{Role: &role})
}

func (u *Users) Delete(ctx context.Context, id int64) error {
	return u.shop.call(ctx, http.MethodDelete, api.UserPath(id), nil, nil)
}

func (u *Users) patch(ctx context.Context, id int64, patch api.UserPatch) (*api.User, error) {
	user := new(api.User)
	if err := u.shop.call(ctx, http.MethodPatch, api.UserPath(id), patch, user); err != nil {
		return nil, err
	}
	return user, nil
}
