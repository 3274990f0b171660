// Package testutil provides test environment setup and utilities for internal package tests.
package testutil

import (
	"fmt"
	"net/http"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"git.sr.ht/~jakintosh/storefront/internal/api"
	"git.sr.ht/~jakintosh/storefront/internal/database"
	"git.sr.ht/~jakintosh/storefront/internal/service"
	"git.sr.ht/~jakintosh/storefront/internal/tokens"
	apitypes "git.sr.ht/~jakintosh/storefront/pkg/api"
)

const (
	TestIssuer   = "test.storefront.local"
	TestPassword = "password123"
)

var testSigningKey = []byte("test-signing-key-for-storefront")

// TestEnv provides all dependencies needed for testing
type TestEnv struct {
	DB             *database.SQLiteStore
	Service        *service.Service
	Router         http.Handler
	TokenIssuer    tokens.Issuer
	TokenValidator tokens.Validator
}

// SetupTestEnv creates an isolated test environment with in-memory SQLite
func SetupTestEnv(
	t *testing.T,
) *TestEnv {
	t.Helper()
	return SetupTestEnvWithConfig(t, service.Config{})
}

// SetupTestEnvWithConfig is SetupTestEnv with custom token settings.
func SetupTestEnvWithConfig(
	t *testing.T,
	config service.Config,
) *TestEnv {
	t.Helper()

	// create in-memory SQLite database
	db, err := database.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// create token issuer/validator
	issuer, validator := tokens.InitServer(testSigningKey, TestIssuer)

	// create service
	config.PasswordMode = service.PasswordModeTesting
	svc := service.New(
		db.Stores(),
		issuer,
		validator,
		config,
	)

	// setup cleanup
	t.Cleanup(func() {
		_ = db.Close()
	})

	return &TestEnv{
		DB:             db,
		Service:        svc,
		TokenIssuer:    issuer,
		TokenValidator: validator,
	}
}

// SetupTestEnvWithRouter creates TestEnv and configures the API router
func SetupTestEnvWithRouter(
	t *testing.T,
) *TestEnv {
	t.Helper()
	env := SetupTestEnv(t)
	a := api.New(env.Service, apitypes.DefaultPrefix)
	env.Router = a.Router()
	return env
}

// CatalogDir returns the path to the seed catalog in testdata
func CatalogDir() string {
	_, filename, _, _ := runtime.Caller(0)
	// Go up from internal/testutil to repo root, then into testdata
	return filepath.Join(filepath.Dir(filename), "..", "..", "testdata", "catalog")
}

// SeedCatalog loads the testdata catalog into the environment
func (env *TestEnv) SeedCatalog(
	t *testing.T,
) []apitypes.Product {
	t.Helper()
	products, err := service.LoadCatalog(CatalogDir())
	if err != nil {
		t.Fatalf("failed to load test catalog: %v", err)
	}
	if err := env.Service.SeedProducts(products); err != nil {
		t.Fatalf("failed to seed test catalog: %v", err)
	}
	seeded, err := env.Service.ListProducts("")
	if err != nil {
		t.Fatalf("failed to list seeded catalog: %v", err)
	}
	return seeded
}

// RegisterTestUser creates a test user with TestPassword and returns it
func (env *TestEnv) RegisterTestUser(
	t *testing.T,
	username string,
) *apitypes.User {
	t.Helper()
	res, err := env.Service.Register(username, username+"@example.com", TestPassword)
	if err != nil {
		t.Fatalf("failed to register test user: %v", err)
	}
	return &res.User
}

// RegisterTestAdmin creates an administrator with TestPassword and returns it
func (env *TestEnv) RegisterTestAdmin(
	t *testing.T,
	username string,
) *apitypes.User {
	t.Helper()
	user, err := env.Service.CreateAdmin(username, username+"@example.com", TestPassword)
	if err != nil {
		t.Fatalf("failed to create test admin: %v", err)
	}
	return user
}

// IssueTestRefreshToken creates a refresh token for testing
func (env *TestEnv) IssueTestRefreshToken(
	t *testing.T,
	userID int64,
) *tokens.Token {
	t.Helper()
	token, err := env.TokenIssuer.IssueRefreshToken(userID, time.Hour)
	if err != nil {
		t.Fatalf("failed to issue test refresh token: %v", err)
	}
	return token
}

// IssueTestAccessToken creates an access token for testing
func (env *TestEnv) IssueTestAccessToken(
	t *testing.T,
	userID int64,
) *tokens.Token {
	t.Helper()
	token, err := env.TokenIssuer.IssueAccessToken(userID, 30*time.Minute)
	if err != nil {
		t.Fatalf("failed to issue test access token: %v", err)
	}
	return token
}

// StoreTestRefreshToken issues and stores a refresh token in the database
func (env *TestEnv) StoreTestRefreshToken(
	t *testing.T,
	userID int64,
) *tokens.Token {
	t.Helper()
	token := env.IssueTestRefreshToken(t, userID)
	if err := env.DB.InsertRefreshToken(token); err != nil {
		t.Fatalf("failed to store test refresh token: %v", err)
	}
	return token
}

// Bearer returns an Authorization header carrying a fresh access token
func (env *TestEnv) Bearer(
	t *testing.T,
	user *apitypes.User,
) Header {
	t.Helper()
	token := env.IssueTestAccessToken(t, user.ID)
	return Header{
		Key:   "Authorization",
		Value: fmt.Sprintf("Bearer %s", token.Encoded()),
	}
}
