package service

import (
	"fmt"

	"git.sr.ht/~jakintosh/storefront/pkg/api"
)

const (
	AnalyticsTopProducts = 5
	DefaultTopSelling    = 3
	MaxTopSelling        = 50
)

// Analytics returns shop-wide figures for administrators.
func (s *Service) Analytics(
	actor *api.User,
) (
	*api.Analytics,
	error,
) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	a, err := s.analytics.Analytics(AnalyticsTopProducts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return a, nil
}

// TopSelling returns the best selling products. A limit outside
// 1..MaxTopSelling falls back to DefaultTopSelling.
func (s *Service) TopSelling(
	limit int,
) (
	[]api.Product,
	error,
) {
	if limit < 1 || limit > MaxTopSelling {
		limit = DefaultTopSelling
	}
	products, err := s.analytics.TopSelling(limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return products, nil
}
