package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"git.sr.ht/~jakintosh/storefront/internal/config"
	"git.sr.ht/~jakintosh/storefront/internal/database"
	"git.sr.ht/~jakintosh/storefront/pkg/credentials"
)

// openStore opens the configured session store. The returned func releases
// whatever the store holds open.
func openStore(
	ctx context.Context,
	cfg config.StoreConfig,
) (
	credentials.Store,
	func(),
	error,
) {
	switch cfg.Kind {
	case config.StoreMemory:
		return credentials.NewMemoryStore(), func() {}, nil

	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return credentials.NewRedisStore(rdb, cfg.RedisPrefix), func() { _ = rdb.Close() }, nil

	case config.StoreSQLite:
		path, err := cfg.SessionPath()
		if err != nil {
			return nil, nil, err
		}
		db, err := database.NewSQLiteStore(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open session database: %w", err)
		}
		return db.CredentialStore(), func() { _ = db.Close() }, nil

	case config.StoreFile, "":
		path, err := cfg.SessionPath()
		if err != nil {
			return nil, nil, err
		}
		fs, err := credentials.NewFileStore(path)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() { _ = fs.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
	}
}
