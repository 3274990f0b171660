package service

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"git.sr.ht/~jakintosh/storefront/pkg/api"
)

var orderStatuses = []string{
	api.OrderPending,
	api.OrderShipped,
	api.OrderDelivered,
	api.OrderCancelled,
}

// canonicalStatus matches status against the known order statuses,
// ignoring case.
func canonicalStatus(status string) (string, bool) {
	for _, known := range orderStatuses {
		if strings.EqualFold(strings.TrimSpace(status), known) {
			return known, true
		}
	}
	return "", false
}

// ListOrders returns the caller's orders, or every order for an
// administrator.
func (s *Service) ListOrders(
	actor *api.User,
) (
	[]api.Order,
	error,
) {
	var orders []api.Order
	var err error
	if actor.IsAdmin() {
		orders, err = s.orders.ListAllOrders()
	} else {
		orders, err = s.orders.ListOrders(actor.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return orders, nil
}

func (s *Service) GetOrder(
	actor *api.User,
	id int64,
) (
	*api.Order,
	error,
) {
	order, err := s.orders.GetOrder(id)
	if err != nil {
		return nil, storeErr(err, fmt.Sprintf("order %d", id))
	}
	if !canSee(actor, order.User) {
		return nil, fmt.Errorf("%w: order %d", ErrNotFound, id)
	}
	return order, nil
}

// CreateOrder places an order. With no lines it checks out everything in the
// caller's cart and empties it; otherwise it orders exactly the given lines
// and leaves the cart alone.
func (s *Service) CreateOrder(
	actor *api.User,
	address string,
	lines []api.OrderLine,
) (
	*api.Order,
	error,
) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fieldError("address", "This field may not be blank.")
	}
	if len(lines) > 0 {
		return s.createOrderFromLines(actor, address, lines)
	}

	order, err := s.orders.CreateOrderFromCart(actor.ID, address)
	if err != nil {
		if errors.Is(err, ErrCartEmpty) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return order, nil
}

func (s *Service) createOrderFromLines(
	actor *api.User,
	address string,
	lines []api.OrderLine,
) (
	*api.Order,
	error,
) {
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, fieldError("items", "Ensure quantity is greater than or equal to 1.")
		}
	}

	order, err := s.orders.CreateOrder(actor.ID, address, lines)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fieldError("items", "Invalid pk - product does not exist.")
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return order, nil
}

// UpdateOrderStatus changes an order's status. Owners may only cancel their
// own pending orders; administrators may set any status.
func (s *Service) UpdateOrderStatus(
	actor *api.User,
	id int64,
	status string,
) (
	*api.Order,
	error,
) {
	canonical, ok := canonicalStatus(status)
	if !ok {
		return nil, fieldError("status", fmt.Sprintf("\"%s\" is not a valid choice.", status))
	}

	order, err := s.GetOrder(actor, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		if canonical != api.OrderCancelled {
			return nil, ErrForbidden
		}
		if order.Status != api.OrderPending {
			return nil, fieldError("status", fmt.Sprintf("Only pending orders can be cancelled, this one is %s.", order.Status))
		}
	}

	if _, err := s.orders.UpdateOrderStatus(id, canonical); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	order.Status = canonical
	return order, nil
}
