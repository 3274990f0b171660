package service_test

import (
	"errors"
	"testing"

	"git.sr.ht/~jakintosh/storefront/internal/service"
	"git.sr.ht/~jakintosh/storefront/internal/testutil"
	"git.sr.ht/~jakintosh/storefront/pkg/api"
)

func TestListUsers_Visibility(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	// setup env
	admin := env.RegisterTestAdmin(t, "root")
	alice := env.RegisterTestUser(t, "alice")
	env.RegisterTestUser(t, "bob")

	all, err := env.Service.ListUsers(admin)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("admin sees %d users, want 3", len(all))
	}

	// a regular user sees only themselves
	mine, err := env.Service.ListUsers(alice)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != alice.ID {
		t.Errorf("unexpected users: %+v", mine)
	}
}

func TestGetUser_OtherAccountHidden(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	// setup env
	alice := env.RegisterTestUser(t, "alice")
	bob := env.RegisterTestUser(t, "bob")

	if _, err := env.Service.GetUser(alice, alice.ID); err != nil {
		t.Errorf("reading own account failed: %v", err)
	}
	if _, err := env.Service.GetUser(alice, bob.ID); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateUser_BlockRevokesSessions(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	// setup env
	admin := env.RegisterTestAdmin(t, "root")
	alice := env.RegisterTestUser(t, "alice")
	login, err := env.Service.Login("alice@example.com", testutil.TestPassword)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	blocked := true
	user, err := env.Service.UpdateUser(admin, alice.ID, api.UserPatch{Blocked: &blocked})
	if err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	if !user.Blocked {
		t.Error("expected account to be blocked")
	}

	// the blocked account can no longer renew its session
	if _, err := env.Service.RefreshTokens(login.Refresh); !errors.Is(err, service.ErrTokenNotFound) {
		t.Errorf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestUpdateUser_SelfPasswordOnly(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	// setup env
	alice := env.RegisterTestUser(t, "alice")
	password := "a-new-password"

	if _, err := env.Service.UpdateUser(alice, alice.ID, api.UserPatch{Password: &password}); err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	if _, err := env.Service.Login("alice@example.com", password); err != nil {
		t.Errorf("login with new password failed: %v", err)
	}

	// role changes need an administrator
	role := api.RoleAdmin
	_, err := env.Service.UpdateUser(alice, alice.ID, api.UserPatch{Role: &role})
	if !errors.Is(err, service.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func TestUpdateUser_InvalidValues(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	// setup env
	admin := env.RegisterTestAdmin(t, "root")
	alice := env.RegisterTestUser(t, "alice")
	role := api.Role("owner")
	short := "short"

	_, err := env.Service.UpdateUser(admin, alice.ID, api.UserPatch{Role: &role, Password: &short})
	var v *service.ValidationError
	if !errors.As(err, &v) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if _, ok := v.Fields["role"]; !ok {
		t.Errorf("missing role error: %v", v.Fields)
	}
	if _, ok := v.Fields["password"]; !ok {
		t.Errorf("missing password error: %v", v.Fields)
	}
}

func TestDeleteUser(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	// setup env
	admin := env.RegisterTestAdmin(t, "root")
	alice := env.RegisterTestUser(t, "alice")

	if err := env.Service.DeleteUser(alice, alice.ID); !errors.Is(err, service.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	if err := env.Service.DeleteUser(admin, alice.ID); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	if err := env.Service.DeleteUser(admin, alice.ID); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
