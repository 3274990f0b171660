// Package database provides SQLite persistence for the storefront API:
// accounts, refresh tokens, the catalog, carts, wishlists, orders, contact
// messages and password reset codes.
package database

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"git.sr.ht/~jakintosh/storefront/internal/service"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// one connection keeps ":memory:" databases whole and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init database schema: couldn't enable foreign keys: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Stores hands every store the service needs, all backed by this database.
func (s *SQLiteStore) Stores() service.Stores {
	return service.Stores{
		Users:     s.UserStore(),
		Refresh:   s.RefreshStore(),
		Products:  s.ProductStore(),
		Cart:      s.CartStore(),
		Wishlist:  s.WishlistStore(),
		Orders:    s.OrderStore(),
		Contact:   s.ContactStore(),
		Resets:    s.ResetStore(),
		Analytics: s.AnalyticsStore(),
	}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var tables = []struct {
	name   string
	schema string
}{
	{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id          INTEGER PRIMARY KEY,
			username    TEXT NOT NULL UNIQUE,
			email       TEXT NOT NULL UNIQUE,
			secret      BLOB NOT NULL,
			role        TEXT NOT NULL DEFAULT 'user',
			status      TEXT NOT NULL DEFAULT 'active',
			blocked     INTEGER NOT NULL DEFAULT 0
		);`,
	},
	{"refresh", `
		CREATE TABLE IF NOT EXISTS refresh (
			jti         TEXT PRIMARY KEY,
			owner       INTEGER NOT NULL,
			expiration  INTEGER NOT NULL,
			FOREIGN KEY (owner) REFERENCES users (id) ON DELETE CASCADE
		);`,
	},
	{"products", `
		CREATE TABLE IF NOT EXISTS products (
			id          INTEGER PRIMARY KEY,
			name        TEXT NOT NULL,
			brand       TEXT NOT NULL DEFAULT '',
			gender      TEXT NOT NULL DEFAULT '',
			category    TEXT NOT NULL DEFAULT '',
			price       INTEGER NOT NULL,
			image       TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT ''
		);`,
	},
	{"product_images", `
		CREATE TABLE IF NOT EXISTS product_images (
			name         TEXT PRIMARY KEY,
			content_type TEXT NOT NULL,
			data         BLOB NOT NULL
		);`,
	},
	{"cart_items", `
		CREATE TABLE IF NOT EXISTS cart_items (
			id          INTEGER PRIMARY KEY,
			user_id     INTEGER NOT NULL,
			product_id  INTEGER NOT NULL,
			quantity    INTEGER NOT NULL CHECK (quantity > 0),
			UNIQUE (user_id, product_id),
			FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE,
			FOREIGN KEY (product_id) REFERENCES products (id) ON DELETE CASCADE
		);`,
	},
	{"wishlist", `
		CREATE TABLE IF NOT EXISTS wishlist (
			id          INTEGER PRIMARY KEY,
			user_id     INTEGER NOT NULL,
			product_id  INTEGER NOT NULL,
			UNIQUE (user_id, product_id),
			FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE,
			FOREIGN KEY (product_id) REFERENCES products (id) ON DELETE CASCADE
		);`,
	},
	{"orders", `
		CREATE TABLE IF NOT EXISTS orders (
			id          INTEGER PRIMARY KEY,
			user_id     INTEGER NOT NULL,
			total       INTEGER NOT NULL,
			address     TEXT NOT NULL,
			status      TEXT NOT NULL DEFAULT 'Pending',
			created     INTEGER NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
		);`,
	},
	{"order_items", `
		CREATE TABLE IF NOT EXISTS order_items (
			id          INTEGER PRIMARY KEY,
			order_id    INTEGER NOT NULL,
			product_id  INTEGER NOT NULL,
			name        TEXT NOT NULL,
			price       INTEGER NOT NULL,
			quantity    INTEGER NOT NULL,
			FOREIGN KEY (order_id) REFERENCES orders (id) ON DELETE CASCADE
		);`,
	},
	{"contact_messages", `
		CREATE TABLE IF NOT EXISTS contact_messages (
			id          INTEGER PRIMARY KEY,
			name        TEXT NOT NULL,
			email       TEXT NOT NULL,
			message     TEXT NOT NULL,
			is_read     INTEGER NOT NULL DEFAULT 0,
			replied     INTEGER NOT NULL DEFAULT 0,
			created     INTEGER NOT NULL
		);`,
	},
	{"password_resets", `
		CREATE TABLE IF NOT EXISTS password_resets (
			email       TEXT PRIMARY KEY,
			code        BLOB NOT NULL,
			expiration  INTEGER NOT NULL,
			attempts    INTEGER NOT NULL DEFAULT 0
		);`,
	},
	{"credentials", `
		CREATE TABLE IF NOT EXISTS credentials (
			key         TEXT PRIMARY KEY,
			value       TEXT NOT NULL
		);`,
	},
}

func initSchema(db *sql.DB) error {
	for _, table := range tables {
		if err := initTable(db, table.name, table.schema); err != nil {
			return err
		}
	}
	return nil
}

func initTable(
	db *sql.DB,
	name string,
	sql string,
) error {
	if _, err := db.Exec(sql); err != nil {
		return fmt.Errorf("failed to init '%s' table schema: %v", name, err)
	}
	return nil
}

func resultsEmpty(result sql.Result) bool {
	count, err := result.RowsAffected()
	if err != nil {
		return false
	}
	return count == 0
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
