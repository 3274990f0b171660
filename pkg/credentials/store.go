// Package credentials defines the durable key-value contract the storefront
// client keeps its session in, plus the stores that implement it.
//
// A session is three independent string entries: the access credential, the
// refresh credential and the serialized identity record. Absence of any
// entry is a valid "signed out" state. No atomicity is promised across keys;
// [Purge] removes them in an order that leaves a signed-out-looking store if
// it is interrupted.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	KeyAccess  = "access"
	KeyRefresh = "refresh"
	KeyUser    = "user"
)

var (
	ErrIdentityAbsent  = errors.New("identity absent")
	ErrIdentityCorrupt = errors.New("identity corrupt")
)

// Store is the durable storage the client reads and writes its session in.
// A missing key is reported as ok=false with a nil error.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key string, value string) error
	Remove(ctx context.Context, key string) error
}

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Identity is the cached snapshot of the signed-in account. The server stays
// the source of truth for authorization.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	Status   string `json:"status,omitempty"`
	Blocked  bool   `json:"blocked"`
}

func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

// SavePair stores both credentials, access first.
func SavePair(
	ctx context.Context,
	s Store,
	access string,
	refresh string,
) error {
	if err := s.Set(ctx, KeyAccess, access); err != nil {
		return fmt.Errorf("store access credential: %w", err)
	}
	if err := s.Set(ctx, KeyRefresh, refresh); err != nil {
		return fmt.Errorf("store refresh credential: %w", err)
	}
	return nil
}

func LoadIdentity(
	ctx context.Context,
	s Store,
) (
	*Identity,
	error,
) {
	raw, ok, err := s.Get(ctx, KeyUser)
	if err != nil {
		return nil, fmt.Errorf("load identity: %w", err)
	}
	if !ok || raw == "" {
		return nil, ErrIdentityAbsent
	}

	identity := new(Identity)
	if err := json.Unmarshal([]byte(raw), identity); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIdentityCorrupt, err)
	}
	return identity, nil
}

func SaveIdentity(
	ctx context.Context,
	s Store,
	identity *Identity,
) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	if err := s.Set(ctx, KeyUser, string(data)); err != nil {
		return fmt.Errorf("store identity: %w", err)
	}
	return nil
}

// Purge removes the whole session. The refresh credential goes first so an
// interrupted purge can never leave a session that is able to renew itself.
// Every key is attempted; the first error is returned.
func Purge(
	ctx context.Context,
	s Store,
) error {
	var firstErr error
	for _, key := range []string{KeyRefresh, KeyAccess, KeyUser} {
		if err := s.Remove(ctx, key); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("remove %s: %w", key, err)
		}
	}
	return firstErr
}
