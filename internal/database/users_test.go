package database_test

import (
	"database/sql"
	"errors"
	"testing"

	"git.sr.ht/~jakintosh/storefront/internal/service"
	"git.sr.ht/~jakintosh/storefront/pkg/api"
)

func TestInsertUser_Defaults(t *testing.T) {
	t.Parallel()
	store := setupStore(t)

	// new accounts are active and unblocked
	user := insertUser(t, store, "alice")
	if user.ID == 0 {
		t.Error("expected assigned id")
	}
	if user.Role != api.RoleUser {
		t.Errorf("role = %q, want user", user.Role)
	}
	if user.Status != api.StatusActive {
		t.Errorf("status = %q, want active", user.Status)
	}
	if user.Blocked {
		t.Error("new user should not be blocked")
	}
}

func TestInsertUser_DuplicateEmail(t *testing.T) {
	t.Parallel()
	store := setupStore(t)

	// setup env
	insertUser(t, store, "alice")

	// the same email cannot register twice
	_, err := store.InsertUser("alice2", "alice@example.com", []byte("hash"), api.RoleUser)
	if err == nil {
		t.Fatal("expected error for duplicate email")
	}
}

func TestGetUserByEmail(t *testing.T) {
	t.Parallel()
	store := setupStore(t)

	// setup env
	insertUser(t, store, "alice")

	// lookup by email returns the stored secret
	user, secret, err := store.GetUserByEmail("alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("username = %q", user.Username)
	}
	if string(secret) != "hash" {
		t.Errorf("secret = %q", secret)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	t.Parallel()
	store := setupStore(t)

	// a missing user reports sql.ErrNoRows
	_, err := store.GetUser(99)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestExists(t *testing.T) {
	t.Parallel()
	store := setupStore(t)

	// setup env
	insertUser(t, store, "alice")

	if ok, err := store.UsernameExists("alice"); err != nil || !ok {
		t.Errorf("UsernameExists(alice) = %v, %v", ok, err)
	}
	if ok, err := store.UsernameExists("bob"); err != nil || ok {
		t.Errorf("UsernameExists(bob) = %v, %v", ok, err)
	}
	if ok, err := store.EmailExists("alice@example.com"); err != nil || !ok {
		t.Errorf("EmailExists = %v, %v", ok, err)
	}
}

func TestUpdateUser_PartialFields(t *testing.T) {
	t.Parallel()
	store := setupStore(t)

	// setup env
	user := insertUser(t, store, "alice")
	blocked := true

	// only provided fields change
	updated, err := store.UpdateUser(user.ID, service.UserUpdate{Blocked: &blocked})
	if err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	if !updated.Blocked {
		t.Error("expected user to be blocked")
	}
	if updated.Role != api.RoleUser || updated.Status != api.StatusActive {
		t.Errorf("unexpected changes: %+v", updated)
	}

	// secret survives an update that does not carry one
	_, secret, err := store.GetUserByEmail("alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if string(secret) != "hash" {
		t.Errorf("secret changed to %q", secret)
	}
}

func TestUpdateUser_Secret(t *testing.T) {
	t.Parallel()
	store := setupStore(t)

	// setup env
	user := insertUser(t, store, "alice")

	if _, err := store.UpdateUser(user.ID, service.UserUpdate{Secret: []byte("new-hash")}); err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	_, secret, _ := store.GetUserByEmail("alice@example.com")
	if string(secret) != "new-hash" {
		t.Errorf("secret = %q, want new-hash", secret)
	}
}

func TestUpdateUser_NotFound(t *testing.T) {
	t.Parallel()
	store := setupStore(t)

	role := api.RoleAdmin
	_, err := store.UpdateUser(42, service.UserUpdate{Role: &role})
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestListAndDeleteUsers(t *testing.T) {
	t.Parallel()
	store := setupStore(t)

	// setup env
	alice := insertUser(t, store, "alice")
	insertUser(t, store, "bob")

	users, err := store.ListUsers()
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 2 || users[0].Username != "alice" {
		t.Fatalf("unexpected users: %+v", users)
	}

	deleted, err := store.DeleteUser(alice.ID)
	if err != nil || !deleted {
		t.Fatalf("DeleteUser = %v, %v", deleted, err)
	}
	deleted, err = store.DeleteUser(alice.ID)
	if err != nil || deleted {
		t.Errorf("second DeleteUser = %v, %v", deleted, err)
	}
}
