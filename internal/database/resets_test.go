package database_test

import (
	"database/sql"
	"errors"
	"testing"
	"time"
)

func TestResetCodes(t *testing.T) {
	t.Parallel()
	store := setupStore(t)

	if _, err := store.GetResetCode("ana@example.com"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}

	expiration := time.Now().Add(10 * time.Minute)
	if err := store.PutResetCode("ana@example.com", []byte("first"), expiration); err != nil {
		t.Fatalf("PutResetCode failed: %v", err)
	}
	if err := store.CountResetAttempt("ana@example.com"); err != nil {
		t.Fatalf("CountResetAttempt failed: %v", err)
	}
	if err := store.CountResetAttempt("ana@example.com"); err != nil {
		t.Fatalf("CountResetAttempt failed: %v", err)
	}

	code, err := store.GetResetCode("ana@example.com")
	if err != nil {
		t.Fatalf("GetResetCode failed: %v", err)
	}
	if string(code.Hash) != "first" || code.Attempts != 2 || code.Expiration.Unix() != expiration.Unix() {
		t.Errorf("unexpected code: %+v", code)
	}

	// a new code replaces the old one and its attempts
	if err := store.PutResetCode("ana@example.com", []byte("second"), expiration); err != nil {
		t.Fatalf("PutResetCode failed: %v", err)
	}
	code, err = store.GetResetCode("ana@example.com")
	if err != nil {
		t.Fatalf("GetResetCode failed: %v", err)
	}
	if string(code.Hash) != "second" || code.Attempts != 0 {
		t.Errorf("unexpected code: %+v", code)
	}

	if err := store.DeleteResetCode("ana@example.com"); err != nil {
		t.Fatalf("DeleteResetCode failed: %v", err)
	}
	if _, err := store.GetResetCode("ana@example.com"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows after delete, got %v", err)
	}
}
