package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"git.sr.ht/~jakintosh/storefront/internal/config"
	"git.sr.ht/~jakintosh/storefront/pkg/credentials"
	"git.sr.ht/~jakintosh/storefront/pkg/storefronttest"
)

type cli struct {
	server *storefronttest.Server
	config string
	store  string
}

func setupCLI(t *testing.T, opts ...storefronttest.Option) *cli {
	t.Helper()

	server := storefronttest.New(t, opts...)
	dir := t.TempDir()
	storePath := filepath.Join(dir, "session.json")
	yaml := fmt.Sprintf("env: \"local\"\napi:\n  base_url: %q\nstore:\n  kind: \"file\"\n  path: %q\n",
		server.BaseURL(), storePath)
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(yaml), 0o600))

	return &cli{server: server, config: configPath, store: storePath}
}

func (c *cli) run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), append([]string{"--config", c.config}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_NoCommand(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), nil, &stdout, &stderr)
	require.Equal(t, 2, code)
	require.Contains(t, stderr.String(), "usage: storefront")
}

func TestRun_UnknownCommand(t *testing.T) {
	t.Parallel()
	c := setupCLI(t)

	code, _, stderr := c.run(t, "teleport")
	require.Equal(t, 2, code)
	require.Contains(t, stderr, "usage: storefront")
}

func TestRun_LoginShopLogout(t *testing.T) {
	t.Parallel()
	c := setupCLI(t)
	c.server.CreateUser(t, "alice")
	lamp := c.server.Products[0]

	code, out, stderr := c.run(t, "login", "-email", "alice@example.com", "-password", storefronttest.Password)
	require.Equal(t, 0, code, stderr)
	require.Contains(t, out, "signed in as alice")

	code, out, _ = c.run(t, "whoami", "-verify")
	require.Equal(t, 0, code)
	require.Contains(t, out, "alice <alice@example.com>")

	code, out, _ = c.run(t, "products", "-category", "lighting")
	require.Equal(t, 0, code)
	require.Contains(t, out, "Desk Lamp")
	require.NotContains(t, out, "Trail Runner")

	code, out, _ = c.run(t, "cart", "add", fmt.Sprint(lamp.ID))
	require.Equal(t, 0, code)
	require.Contains(t, out, "x1 in cart")

	code, out, _ = c.run(t, "cart")
	require.Equal(t, 0, code)
	require.Contains(t, out, lamp.Price.String())

	code, out, _ = c.run(t, "orders", "create", "-address", "1 Main St")
	require.Equal(t, 0, code)
	require.Contains(t, out, "ship to: 1 Main St")

	code, out, _ = c.run(t, "logout")
	require.Equal(t, 0, code)
	require.Contains(t, out, "signed out")

	code, _, stderr = c.run(t, "whoami")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "not signed in")
}

func TestRun_LoginFailure(t *testing.T) {
	t.Parallel()
	c := setupCLI(t)
	c.server.CreateUser(t, "alice")

	code, _, stderr := c.run(t, "login", "-email", "alice@example.com", "-password", "nope-nope")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "invalid email or password")
}

func TestRun_ExpiredSessionRefreshes(t *testing.T) {
	t.Parallel()
	c := setupCLI(t)
	user := c.server.CreateUser(t, "alice")

	store, err := credentials.NewFileStore(c.store)
	require.NoError(t, err)
	c.server.SignIn(t, store, user, -time.Minute)

	code, out, stderr := c.run(t, "wishlist")
	require.Equal(t, 0, code, stderr)
	require.Contains(t, out, "ENTRY")
	require.Equal(t, 1, c.server.RefreshCalls())
}

func TestRun_RefreshFailureSignsOut(t *testing.T) {
	t.Parallel()
	c := setupCLI(t)
	user := c.server.CreateUser(t, "alice")

	store, err := credentials.NewFileStore(c.store)
	require.NoError(t, err)
	session := c.server.SignIn(t, store, user, -time.Minute)
	require.NoError(t, c.server.Service.RevokeRefreshToken(session.RefreshToken))

	code, _, stderr := c.run(t, "cart")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "session ended")
	require.Contains(t, stderr, "storefront login")
}

func TestRun_InvalidID(t *testing.T) {
	t.Parallel()
	c := setupCLI(t)

	code, _, stderr := c.run(t, "products", "show", "lamp")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, `invalid id "lamp"`)
}

func TestOpenStore_Kinds(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mr := miniredis.RunT(t)
	dir := t.TempDir()

	tests := []struct {
		name string
		cfg  config.StoreConfig
	}{
		{"memory", config.StoreConfig{Kind: config.StoreMemory}},
		{"file", config.StoreConfig{Kind: config.StoreFile, Path: filepath.Join(dir, "s.json")}},
		{"sqlite", config.StoreConfig{Kind: config.StoreSQLite, Path: filepath.Join(dir, "s.db")}},
		{"redis", config.StoreConfig{Kind: config.StoreRedis, RedisAddr: mr.Addr(), RedisPrefix: "cli"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, closeStore, err := openStore(ctx, tt.cfg)
			require.NoError(t, err)
			defer closeStore()

			require.NoError(t, credentials.SavePair(ctx, store, "a", "r"))
			refresh, ok, err := store.Get(ctx, credentials.KeyRefresh)
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, "r", refresh)
		})
	}
}

func TestOpenStore_RedisUnreachable(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, _, err := openStore(context.Background(), config.StoreConfig{Kind: config.StoreRedis, RedisAddr: addr})
	require.Error(t, err)
}

func TestRun_ContactAndMessages(t *testing.T) {
	t.Parallel()
	c := setupCLI(t)
	c.server.CreateAdmin(t, "root")

	code, out, stderr := c.run(t, "contact", "-name", "Ana", "-email", "ana@example.com", "-message", "Hello")
	require.Equal(t, 0, code, stderr)
	require.Contains(t, out, "Thank you")

	code, _, stderr = c.run(t, "login", "-email", "root@example.com", "-password", storefronttest.Password)
	require.Equal(t, 0, code, stderr)

	code, out, _ = c.run(t, "messages")
	require.Equal(t, 0, code)
	require.Contains(t, out, "Ana <ana@example.com>")

	code, out, _ = c.run(t, "messages", "replied", "1")
	require.Equal(t, 0, code)
	require.Contains(t, out, "read=true replied=true")

	code, out, _ = c.run(t, "analytics")
	require.Equal(t, 0, code)
	require.Contains(t, out, "admins 1")

	code, out, _ = c.run(t, "messages", "delete", "1")
	require.Equal(t, 0, code)
	require.Contains(t, out, "deleted message 1")
}

func TestRun_PasswordReset(t *testing.T) {
	t.Parallel()
	c := setupCLI(t)
	c.server.CreateUser(t, "alice")

	code, out, stderr := c.run(t, "password", "reset-request", "-email", "alice@example.com")
	require.Equal(t, 0, code, stderr)
	require.Contains(t, out, "OTP has been sent")

	otp := c.server.ResetCode(t, "alice@example.com")
	code, out, stderr = c.run(t, "password", "reset", "-email", "alice@example.com", "-code", otp, "-new", "brand-new-pass")
	require.Equal(t, 0, code, stderr)
	require.Contains(t, out, "reset successfully")

	code, _, stderr = c.run(t, "login", "-email", "alice@example.com", "-password", "brand-new-pass")
	require.Equal(t, 0, code, stderr)
}
