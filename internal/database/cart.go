package database

import (
	"fmt"

	"git.sr.ht/~jakintosh/storefront/internal/service"
	"git.sr.ht/~jakintosh/storefront/pkg/api"
)

func (s *SQLiteStore) CartStore() service.CartStore {
	return s
}

const cartColumns = `c.id, c.quantity, ` +
	`p.id, p.name, p.brand, p.gender, p.category, p.price, p.image, p.description`

func scanCartItem(row scanner) (*api.CartItem, error) {
	var item api.CartItem
	var price int64
	if err := row.Scan(
		&item.ID,
		&item.Quantity,
		&item.Product.ID,
		&item.Product.Name,
		&item.Product.Brand,
		&item.Product.Gender,
		&item.Product.Category,
		&price,
		&item.Product.Image,
		&item.Product.Description,
	); err != nil {
		return nil, err
	}
	item.Product.Price = api.Price(price)
	return &item, nil
}

func (s *SQLiteStore) ListCart(
	userID int64,
) (
	[]api.CartItem,
	error,
) {
	rows, err := s.db.Query(`
		SELECT `+cartColumns+`
		FROM cart_items c
		JOIN products p ON c.product_id = p.id
		WHERE c.user_id=?1
		ORDER BY c.id;`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't query cart_items: %v", err)
	}
	defer rows.Close()

	items := []api.CartItem{}
	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			return nil, fmt.Errorf("couldn't scan cart item: %v", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (s *SQLiteStore) GetCartItem(
	userID int64,
	itemID int64,
) (
	*api.CartItem,
	error,
) {
	row := s.db.QueryRow(`
		SELECT `+cartColumns+`
		FROM cart_items c
		JOIN products p ON c.product_id = p.id
		WHERE c.user_id=?1 AND c.id=?2;`,
		userID,
		itemID,
	)
	item, err := scanCartItem(row)
	if err != nil {
		return nil, fmt.Errorf("couldn't scan cart item: %w", err)
	}
	return item, nil
}

func (s *SQLiteStore) FindCartItem(
	userID int64,
	productID int64,
) (
	*api.CartItem,
	error,
) {
	row := s.db.QueryRow(`
		SELECT `+cartColumns+`
		FROM cart_items c
		JOIN products p ON c.product_id = p.id
		WHERE c.user_id=?1 AND c.product_id=?2;`,
		userID,
		productID,
	)
	item, err := scanCartItem(row)
	if err != nil {
		return nil, fmt.Errorf("couldn't scan cart item: %w", err)
	}
	return item, nil
}

func (s *SQLiteStore) InsertCartItem(
	userID int64,
	productID int64,
	quantity int,
) (
	int64,
	error,
) {
	result, err := s.db.Exec(`
		INSERT INTO cart_items (user_id, product_id, quantity)
		VALUES (?1, ?2, ?3);`,
		userID,
		productID,
		quantity,
	)
	if err != nil {
		return 0, fmt.Errorf("couldn't insert into cart_items: %v", err)
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) UpdateCartQuantity(
	userID int64,
	itemID int64,
	quantity int,
) (
	bool,
	error,
) {
	result, err := s.db.Exec(`
		UPDATE cart_items SET quantity=?3
		WHERE user_id=?1 AND id=?2;`,
		userID,
		itemID,
		quantity,
	)
	if err != nil {
		return false, fmt.Errorf("couldn't update cart_items: %v", err)
	}
	return !resultsEmpty(result), nil
}

func (s *SQLiteStore) DeleteCartItem(
	userID int64,
	itemID int64,
) (
	bool,
	error,
) {
	result, err := s.db.Exec(`
		DELETE FROM cart_items
		WHERE user_id=?1 AND id=?2;`,
		userID,
		itemID,
	)
	if err != nil {
		return false, fmt.Errorf("couldn't delete from cart_items: %v", err)
	}
	return !resultsEmpty(result), nil
}
