package database

import (
	"database/sql"
	"fmt"

	"git.sr.ht/~jakintosh/storefront/internal/service"
	"git.sr.ht/~jakintosh/storefront/pkg/api"
)

func (s *SQLiteStore) ProductStore() service.ProductStore {
	return s
}

const productColumns = `id, name, brand, gender, category, price, image, description`

func scanProduct(row scanner) (*api.Product, error) {
	var p api.Product
	var price int64
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Brand,
		&p.Gender,
		&p.Category,
		&price,
		&p.Image,
		&p.Description,
	); err != nil {
		return nil, err
	}
	p.Price = api.Price(price)
	return &p, nil
}

// ListProducts returns the catalog, or one category of it when category is
// not empty. Categories match case-insensitively.
func (s *SQLiteStore) ListProducts(
	category string,
) (
	[]api.Product,
	error,
) {
	rows, err := s.db.Query(`
		SELECT `+productColumns+`
		FROM products
		WHERE ?1 = '' OR category = ?1 COLLATE NOCASE
		ORDER BY id;`,
		category,
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't query products: %v", err)
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

func (s *SQLiteStore) GetProduct(
	id int64,
) (
	*api.Product,
	error,
) {
	row := s.db.QueryRow(`
		SELECT `+productColumns+`
		FROM products
		WHERE id=?1;`,
		id,
	)
	p, err := scanProduct(row)
	if err != nil {
		return nil, fmt.Errorf("couldn't scan product: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) InsertProduct(
	p *api.Product,
) (
	*api.Product,
	error,
) {
	result, err := s.db.Exec(`
		INSERT INTO products (name, brand, gender, category, price, image, description)
		VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7);`,
		p.Name,
		p.Brand,
		p.Gender,
		p.Category,
		int64(p.Price),
		p.Image,
		p.Description,
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't insert into products: %v", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("couldn't read new product id: %v", err)
	}
	return s.GetProduct(id)
}

func (s *SQLiteStore) UpdateProduct(
	p *api.Product,
) error {
	result, err := s.db.Exec(`
		UPDATE products SET
			name=?2, brand=?3, gender=?4, category=?5,
			price=?6, image=?7, description=?8
		WHERE id=?1;`,
		p.ID,
		p.Name,
		p.Brand,
		p.Gender,
		p.Category,
		int64(p.Price),
		p.Image,
		p.Description,
	)
	if err != nil {
		return fmt.Errorf("couldn't update products: %v", err)
	}
	if resultsEmpty(result) {
		return fmt.Errorf("couldn't update product %d: %w", p.ID, sql.ErrNoRows)
	}
	return nil
}

func (s *SQLiteStore) DeleteProduct(
	id int64,
) (
	bool,
	error,
) {
	result, err := s.db.Exec(`
		DELETE FROM products
		WHERE id=?1;`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("couldn't delete from products: %v", err)
	}
	return !resultsEmpty(result), nil
}

func (s *SQLiteStore) InsertImage(
	name string,
	contentType string,
	data []byte,
) error {
	_, err := s.db.Exec(`
		INSERT INTO product_images (name, content_type, data)
		VALUES (?1, ?2, ?3)
		ON CONFLICT (name) DO UPDATE SET
			content_type=excluded.content_type,
			data=excluded.data;`,
		name,
		contentType,
		data,
	)
	if err != nil {
		return fmt.Errorf("couldn't insert into product_images: %v", err)
	}
	return nil
}

func (s *SQLiteStore) GetImage(
	name string,
) (
	string,
	[]byte,
	error,
) {
	row := s.db.QueryRow(`
		SELECT content_type, data
		FROM product_images
		WHERE name=?1;`,
		name,
	)

	var contentType string
	var data []byte
	if err := row.Scan(&contentType, &data); err != nil {
		return "", nil, fmt.Errorf("couldn't scan image: %w", err)
	}
	return contentType, data, nil
}
