package database

import (
	"database/sql"
	"fmt"
	"time"

	"git.sr.ht/~jakintosh/storefront/internal/service"
	"git.sr.ht/~jakintosh/storefront/pkg/api"
)

func (s *SQLiteStore) OrderStore() service.OrderStore {
	return s
}

// CreateOrderFromCart turns the user's cart into a Pending order and empties
// the cart, in one transaction. The total and line prices are taken from the
// catalog at the time of the order.
func (s *SQLiteStore) CreateOrderFromCart(
	userID int64,
	address string,
) (
	*api.Order,
	error,
) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("couldn't begin order transaction: %v", err)
	}
	defer tx.Rollback()

	var lines int
	var total int64
	if err := tx.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(p.price * c.quantity), 0)
		FROM cart_items c
		JOIN products p ON c.product_id = p.id
		WHERE c.user_id=?1;`,
		userID,
	).Scan(&lines, &total); err != nil {
		return nil, fmt.Errorf("couldn't total cart: %v", err)
	}
	if lines == 0 {
		return nil, service.ErrCartEmpty
	}

	result, err := tx.Exec(`
		INSERT INTO orders (user_id, total, address, status, created)
		VALUES (?1, ?2, ?3, ?4, ?5);`,
		userID,
		total,
		address,
		api.OrderPending,
		time.Now().Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't insert into orders: %v", err)
	}
	orderID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("couldn't read new order id: %v", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO order_items (order_id, product_id, name, price, quantity)
		SELECT ?1, p.id, p.name, p.price, c.quantity
		FROM cart_items c
		JOIN products p ON c.product_id = p.id
		WHERE c.user_id=?2
		ORDER BY c.id;`,
		orderID,
		userID,
	); err != nil {
		return nil, fmt.Errorf("couldn't insert into order_items: %v", err)
	}

	if _, err := tx.Exec(`
		DELETE FROM cart_items
		WHERE user_id=?1;`,
		userID,
	); err != nil {
		return nil, fmt.Errorf("couldn't clear cart_items: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("couldn't commit order: %v", err)
	}
	return s.GetOrder(orderID)
}

// CreateOrder places a Pending order for the given lines without touching
// the cart. Prices are taken from the catalog; an unknown product fails the
// whole order with sql.ErrNoRows.
func (s *SQLiteStore) CreateOrder(
	userID int64,
	address string,
	lines []api.OrderLine,
) (
	*api.Order,
	error,
) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("couldn't begin order transaction: %v", err)
	}
	defer tx.Rollback()

	type priced struct {
		product  int64
		name     string
		price    int64
		quantity int
	}
	items := make([]priced, 0, len(lines))
	var total int64
	for _, line := range lines {
		item := priced{product: line.Product, quantity: line.Quantity}
		if err := tx.QueryRow(`
			SELECT name, price
			FROM products
			WHERE id=?1;`,
			line.Product,
		).Scan(&item.name, &item.price); err != nil {
			return nil, fmt.Errorf("couldn't price product %d: %w", line.Product, err)
		}
		total += item.price * int64(item.quantity)
		items = append(items, item)
	}

	result, err := tx.Exec(`
		INSERT INTO orders (user_id, total, address, status, created)
		VALUES (?1, ?2, ?3, ?4, ?5);`,
		userID,
		total,
		address,
		api.OrderPending,
		time.Now().Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't insert into orders: %v", err)
	}
	orderID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("couldn't read new order id: %v", err)
	}

	for _, item := range items {
		if _, err := tx.Exec(`
			INSERT INTO order_items (order_id, product_id, name, price, quantity)
			VALUES (?1, ?2, ?3, ?4, ?5);`,
			orderID,
			item.product,
			item.name,
			item.price,
			item.quantity,
		); err != nil {
			return nil, fmt.Errorf("couldn't insert into order_items: %v", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("couldn't commit order: %v", err)
	}
	return s.GetOrder(orderID)
}

func (s *SQLiteStore) ListOrders(
	userID int64,
) (
	[]api.Order,
	error,
) {
	return s.listOrders(`
		SELECT id, user_id, total, address, status, created
		FROM orders
		WHERE user_id=?1
		ORDER BY id;`,
		userID,
	)
}

func (s *SQLiteStore) ListAllOrders() (
	[]api.Order,
	error,
) {
	return s.listOrders(`
		SELECT id, user_id, total, address, status, created
		FROM orders
		ORDER BY id;`,
	)
}

func (s *SQLiteStore) listOrders(query string, args ...any) ([]api.Order, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("couldn't query orders: %v", err)
	}

	orders := []api.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("couldn't scan order: %v", err)
		}
		orders = append(orders, *order)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("couldn't read orders: %v", err)
	}

	// items are read once the order rows are closed; the store holds a
	// single connection
	for i := range orders {
		items, err := s.orderItems(orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

func (s *SQLiteStore) GetOrder(
	id int64,
) (
	*api.Order,
	error,
) {
	row := s.db.QueryRow(`
		SELECT id, user_id, total, address, status, created
		FROM orders
		WHERE id=?1;`,
		id,
	)
	order, err := scanOrder(row)
	if err != nil {
		return nil, fmt.Errorf("couldn't scan order: %w", err)
	}

	order.Items, err = s.orderItems(order.ID)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *SQLiteStore) UpdateOrderStatus(
	id int64,
	status string,
) (
	bool,
	error,
) {
	result, err := s.db.Exec(`
		UPDATE orders SET status=?2
		WHERE id=?1;`,
		id,
		status,
	)
	if err != nil {
		return false, fmt.Errorf("couldn't update orders: %v", err)
	}
	return !resultsEmpty(result), nil
}

func scanOrder(row scanner) (*api.Order, error) {
	var order api.Order
	var total, created int64
	if err := row.Scan(
		&order.ID,
		&order.User,
		&total,
		&order.Address,
		&order.Status,
		&created,
	); err != nil {
		return nil, err
	}
	order.Total = api.Price(total)
	order.Date = time.Unix(created, 0).UTC()
	return &order, nil
}

// orderItems reads the lines of one order. Name and price come from the
// snapshot taken when the order was placed; the rest of the product comes
// from the catalog if the product still exists.
func (s *SQLiteStore) orderItems(orderID int64) ([]api.OrderItem, error) {
	rows, err := s.db.Query(`
		SELECT i.id, i.quantity, i.product_id, i.name, i.price,
			p.brand, p.gender, p.category, p.image, p.description
		FROM order_items i
		LEFT JOIN products p ON i.product_id = p.id
		WHERE i.order_id=?1
		ORDER BY i.id;`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't query order_items: %v", err)
	}
	defer rows.Close()

	items := []api.OrderItem{}
	for rows.Next() {
		var item api.OrderItem
		var price int64
		var brand, gender, category, image, description sql.NullString
		if err := rows.Scan(
			&item.ID,
			&item.Quantity,
			&item.Product.ID,
			&item.Product.Name,
			&price,
			&brand,
			&gender,
			&category,
			&image,
			&description,
		); err != nil {
			return nil, fmt.Errorf("couldn't scan order item: %v", err)
		}
		item.Product.Price = api.Price(price)
		item.Product.Brand = brand.String
		item.Product.Gender = gender.String
		item.Product.Category = category.String
		item.Product.Image = image.String
		item.Product.Description = description.String
		items = append(items, item)
	}
	return items, rows.Err()
}
