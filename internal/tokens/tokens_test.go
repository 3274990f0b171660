package tokens

import (
	"errors"
	"testing"
	"time"
)

func setupServer(t *testing.T) *Server {
	t.Helper()
	return NewServer([]byte("test-signing-key"), "test.storefront.local")
}

func TestIssueAccessToken_RoundTrip(t *testing.T) {
	t.Parallel()
	server := setupServer(t)

	token, err := server.IssueAccessToken(42, time.Minute)
	if err != nil {
		t.Fatalf("IssueAccessToken failed: %v", err)
	}

	decoded, err := server.Validate(KindAccess, token.Encoded())
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if decoded.UserID() != 42 {
		t.Errorf("user id = %d, want 42", decoded.UserID())
	}
	if decoded.ID() != token.ID() {
		t.Errorf("token id = %s, want %s", decoded.ID(), token.ID())
	}
	if decoded.Issuer() != "test.storefront.local" {
		t.Errorf("issuer = %s", decoded.Issuer())
	}
}

func TestIssue_UniqueIDs(t *testing.T) {
	t.Parallel()
	server := setupServer(t)

	// tokens minted in the same second still differ
	a, _ := server.IssueRefreshToken(1, time.Hour)
	b, _ := server.IssueRefreshToken(1, time.Hour)
	if a.Encoded() == b.Encoded() {
		t.Error("expected distinct refresh tokens")
	}
}

func TestValidate_WrongKind(t *testing.T) {
	t.Parallel()
	server := setupServer(t)

	// a refresh token cannot be used as an access token
	refresh, _ := server.IssueRefreshToken(1, time.Hour)
	_, err := server.Validate(KindAccess, refresh.Encoded())
	if !errors.Is(err, ErrTokenWrongType) {
		t.Errorf("expected ErrTokenWrongType, got %v", err)
	}
}

func TestValidate_Expired(t *testing.T) {
	t.Parallel()
	server := setupServer(t)

	// setup: issue in the past
	server.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, _ := server.IssueAccessToken(1, time.Minute)
	server.now = time.Now

	_, err := server.Validate(KindAccess, token.Encoded())
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestValidate_Malformed(t *testing.T) {
	t.Parallel()
	server := setupServer(t)

	_, err := server.Validate(KindAccess, "not-a-jwt")
	if !errors.Is(err, ErrTokenMalformed) {
		t.Errorf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestValidate_ForeignKey(t *testing.T) {
	t.Parallel()
	server := setupServer(t)
	other := NewServer([]byte("another-key"), "test.storefront.local")

	// signature from a different key is rejected
	token, _ := other.IssueAccessToken(1, time.Minute)
	_, err := server.Validate(KindAccess, token.Encoded())
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestValidate_ForeignIssuer(t *testing.T) {
	t.Parallel()
	server := setupServer(t)
	other := NewServer([]byte("test-signing-key"), "elsewhere.local")

	token, _ := other.IssueAccessToken(1, time.Minute)
	_, err := server.Validate(KindAccess, token.Encoded())
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
}
