package database

import (
	"fmt"

	"git.sr.ht/~jakintosh/storefront/internal/service"
	"git.sr.ht/~jakintosh/storefront/pkg/api"
)

func (s *SQLiteStore) AnalyticsStore() service.AnalyticsStore {
	return s
}

// Analytics summarises the shop. Sales figures and best sellers leave out
// cancelled orders; order and status counts include them.
func (s *SQLiteStore) Analytics(
	topProducts int,
) (
	*api.Analytics,
	error,
) {
	a := &api.Analytics{
		MonthlySales: []api.MonthlySales{},
		StatusCounts: map[string]int{},
		TopProducts:  []api.TopProduct{},
	}

	var sales int64
	if err := s.db.QueryRow(`
		SELECT
			(SELECT COALESCE(SUM(total), 0) FROM orders WHERE status != ?1),
			(SELECT COUNT(*) FROM orders),
			(SELECT COUNT(*) FROM users WHERE role != ?2),
			(SELECT COUNT(*) FROM users WHERE role = ?2),
			(SELECT COUNT(*) FROM products);`,
		api.OrderCancelled,
		string(api.RoleAdmin),
	).Scan(
		&sales,
		&a.Totals.TotalOrders,
		&a.Totals.TotalUsers,
		&a.Totals.TotalAdmins,
		&a.Totals.TotalProducts,
	); err != nil {
		return nil, fmt.Errorf("couldn't scan totals: %v", err)
	}
	a.Totals.TotalSales = api.Price(sales)

	if err := s.monthlySales(a); err != nil {
		return nil, err
	}
	if err := s.statusCounts(a); err != nil {
		return nil, err
	}

	top, err := s.bestSellers(topProducts)
	if err != nil {
		return nil, err
	}
	a.TopProducts = top
	return a, nil
}

func (s *SQLiteStore) monthlySales(a *api.Analytics) error {
	rows, err := s.db.Query(`
		SELECT strftime('%Y-%m', created, 'unixepoch') AS month,
			SUM(total), COUNT(*)
		FROM orders
		WHERE status != ?1
		GROUP BY month
		ORDER BY month;`,
		api.OrderCancelled,
	)
	if err != nil {
		return fmt.Errorf("couldn't query monthly sales: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m api.MonthlySales
		var sales int64
		if err := rows.Scan(&m.Month, &sales, &m.Orders); err != nil {
			return fmt.Errorf("couldn't scan monthly sales: %v", err)
		}
		m.Sales = api.Price(sales)
		a.MonthlySales = append(a.MonthlySales, m)
	}
	return rows.Err()
}

func (s *SQLiteStore) statusCounts(a *api.Analytics) error {
	rows, err := s.db.Query(`
		SELECT status, COUNT(*)
		FROM orders
		GROUP BY status;`,
	)
	if err != nil {
		return fmt.Errorf("couldn't query status counts: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return fmt.Errorf("couldn't scan status count: %v", err)
		}
		a.StatusCounts[status] = count
	}
	return rows.Err()
}

// bestSellers ranks products by units sold, most first; ties go to the
// lower id. Products that no longer exist keep the name they were sold
// under.
func (s *SQLiteStore) bestSellers(limit int) ([]api.TopProduct, error) {
	rows, err := s.db.Query(`
		SELECT i.product_id, MAX(i.name), SUM(i.quantity) AS sold
		FROM order_items i
		JOIN orders o ON i.order_id = o.id
		WHERE o.status != ?1
		GROUP BY i.product_id
		ORDER BY sold DESC, i.product_id
		LIMIT ?2;`,
		api.OrderCancelled,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't query best sellers: %v", err)
	}
	defer rows.Close()

	top := []api.TopProduct{}
	for rows.Next() {
		var p api.TopProduct
		if err := rows.Scan(&p.ID, &p.Name, &p.Sold); err != nil {
			return nil, fmt.Errorf("couldn't scan best seller: %v", err)
		}
		top = append(top, p)
	}
	return top, rows.Err()
}

// TopSelling returns catalog products ordered by units sold, most first.
// Products that never sold are left out.
func (s *SQLiteStore) TopSelling(
	limit int,
) (
	[]api.Product,
	error,
) {
	rows, err := s.db.Query(`
		SELECT p.id, p.name, p.brand, p.gender, p.category, p.price, p.image, p.description
		FROM products p
		JOIN (
			SELECT i.product_id, SUM(i.quantity) AS sold
			FROM order_items i
			JOIN orders o ON i.order_id = o.id
			WHERE o.status != ?1
			GROUP BY i.product_id
		) s ON s.product_id = p.id
		ORDER BY s.sold DESC, p.id
		LIMIT ?2;`,
		api.OrderCancelled,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't query top selling products: %v", err)
	}
	defer rows.Close()

	products := []api.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("couldn't scan product: %v", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}
