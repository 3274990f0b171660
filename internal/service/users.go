package service

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"git.sr.ht/~jakintosh/storefront/pkg/api"
)

var validStatuses = map[string]bool{
	api.StatusActive: true,
	"inactive":       true,
}

func requireAdmin(actor *api.User) error {
	if actor == nil || !actor.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

// canSee reports whether actor may read the account with id.
func canSee(actor *api.User, id int64) bool {
	return actor != nil && (actor.IsAdmin() || actor.ID == id)
}

func (s *Service) ListUsers(
	actor *api.User,
) (
	[]api.User,
	error,
) {
	if !actor.IsAdmin() {
		// everyone else sees only themselves
		return []api.User{*actor}, nil
	}
	users, err := s.users.ListUsers()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return users, nil
}

func (s *Service) GetUser(
	actor *api.User,
	id int64,
) (
	*api.User,
	error,
) {
	if !canSee(actor, id) {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, id)
	}
	user, err := s.users.GetUser(id)
	if err != nil {
		return nil, storeErr(err, fmt.Sprintf("user %d", id))
	}
	return user, nil
}

// UpdateUser applies a patch. Administrators may change anything; a user
// may only change their own password.
func (s *Service) UpdateUser(
	actor *api.User,
	id int64,
	patch api.UserPatch,
) (
	*api.User,
	error,
) {
	if !canSee(actor, id) {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, id)
	}
	adminFields := patch.Blocked != nil || patch.Role != nil || patch.Status != nil
	if adminFields {
		if err := requireAdmin(actor); err != nil {
			return nil, err
		}
	}

	v := &ValidationError{}
	update := UserUpdate{Blocked: patch.Blocked, Status: patch.Status}
	if patch.Role != nil {
		role := api.Role(strings.ToLower(string(*patch.Role)))
		if role != api.RoleUser && role != api.RoleAdmin {
			v.add("role", fmt.Sprintf("\"%s\" is not a valid choice.", *patch.Role))
		}
		update.Role = &role
	}
	if patch.Status != nil && !validStatuses[*patch.Status] {
		v.add("status", fmt.Sprintf("\"%s\" is not a valid choice.", *patch.Status))
	}
	if patch.Password != nil {
		if err := validatePassword(*patch.Password); err != nil {
			v.add("password", err.Error())
		} else {
			hash, err := bcrypt.GenerateFromPassword([]byte(*patch.Password), s.config.PasswordMode.Cost())
			if err != nil {
				return nil, fmt.Errorf("%w: failed to hash password: %v", ErrInternal, err)
			}
			update.Secret = hash
		}
	}
	if err := v.orNil(); err != nil {
		return nil, err
	}

	user, err := s.users.UpdateUser(id, update)
	if err != nil {
		return nil, storeErr(err, fmt.Sprintf("user %d", id))
	}

	// a blocked account loses its ability to renew sessions
	if user.Blocked {
		if err := s.refresh.DeleteUserRefreshTokens(id); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInternal, err)
		}
	}
	return user, nil
}

func (s *Service) DeleteUser(
	actor *api.User,
	id int64,
) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	deleted, err := s.users.DeleteUser(id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if !deleted {
		return fmt.Errorf("%w: user %d", ErrNotFound, id)
	}
	return nil
}
