package database

import (
	"fmt"

	"git.sr.ht/~jakintosh/storefront/internal/service"
	"git.sr.ht/~jakintosh/storefront/pkg/api"
)

func (s *SQLiteStore) WishlistStore() service.WishlistStore {
	return s
}

func (s *SQLiteStore) ListWishlist(
	userID int64,
) (
	[]api.WishlistItem,
	error,
) {
	rows, err := s.db.Query(`
		SELECT w.id, p.id, p.name, p.price, p.category
		FROM wishlist w
		JOIN products p ON w.product_id = p.id
		WHERE w.user_id=?1
		ORDER BY w.id;`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't query wishlist: %v", err)
	}
	defer rows.Close()

	items := []api.WishlistItem{}
	for rows.Next() {
		var item api.WishlistItem
		var price int64
		if err := rows.Scan(
			&item.ID,
			&item.ProductDetails.ID,
			&item.ProductDetails.Name,
			&price,
			&item.ProductDetails.Category,
		); err != nil {
			return nil, fmt.Errorf("couldn't scan wishlist item: %v", err)
		}
		item.ProductDetails.Price = api.Price(price)
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *SQLiteStore) WishlistContains(
	userID int64,
	productID int64,
) (
	bool,
	error,
) {
	return s.exists(`
		SELECT EXISTS(SELECT 1 FROM wishlist WHERE user_id=?1 AND product_id=?2);`,
		userID,
		productID,
	)
}

func (s *SQLiteStore) InsertWishlistItem(
	userID int64,
	productID int64,
) (
	int64,
	error,
) {
	result, err := s.db.Exec(`
		INSERT INTO wishlist (user_id, product_id)
		VALUES (?1, ?2);`,
		userID,
		productID,
	)
	if err != nil {
		return 0, fmt.Errorf("couldn't insert into wishlist: %v", err)
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) DeleteWishlistItem(
	userID int64,
	itemID int64,
) (
	bool,
	error,
) {
	result, err := s.db.Exec(`
		DELETE FROM wishlist
		WHERE user_id=?1 AND id=?2;`,
		userID,
		itemID,
	)
	if err != nil {
		return false, fmt.Errorf("couldn't delete from wishlist: %v", err)
	}
	return !resultsEmpty(result), nil
}
