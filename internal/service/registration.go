package service

import (
	"fmt"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"git.sr.ht/~jakintosh/storefront/pkg/api"
)

const (
	MinPasswordLength = 8
	MaxUsernameLength = 150
)

// Register creates an account and signs it in. Field problems come back as
// a *ValidationError.
func (s *Service) Register(
	username string,
	email string,
	password string,
) (
	*api.RegisterResponse,
	error,
) {
	username = strings.TrimSpace(username)
	email = normalizeEmail(email)

	if err := s.validateRegistration(username, email, password); err != nil {
		return nil, err
	}

	user, err := s.createUser(username, email, password, api.RoleUser)
	if err != nil {
		return nil, err
	}

	access, refresh, err := s.issuePair(user.ID)
	if err != nil {
		return nil, err
	}

	return &api.RegisterResponse{
		User:    *user,
		Access:  access,
		Refresh: refresh,
	}, nil
}

// CreateAdmin seeds an administrator account.
func (s *Service) CreateAdmin(
	username string,
	email string,
	password string,
) (
	*api.User,
	error,
) {
	username = strings.TrimSpace(username)
	email = normalizeEmail(email)
	if err := s.validateRegistration(username, email, password); err != nil {
		return nil, err
	}
	return s.createUser(username, email, password, api.RoleAdmin)
}

func (s *Service) createUser(
	username string,
	email string,
	password string,
	role api.Role,
) (
	*api.User,
	error,
) {
	hashPass, err := bcrypt.GenerateFromPassword([]byte(password), s.config.PasswordMode.Cost())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to hash password: %v", ErrInternal, err)
	}

	user, err := s.users.InsertUser(username, email, hashPass, role)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to insert account: %v", ErrInternal, err)
	}
	return user, nil
}

func (s *Service) validateRegistration(
	username string,
	email string,
	password string,
) error {
	v := &ValidationError{}

	switch {
	case username == "":
		v.add("username", "This field may not be blank.")
	case len(username) > MaxUsernameLength:
		v.add("username", fmt.Sprintf("Ensure this field has no more than %d characters.", MaxUsernameLength))
	default:
		exists, err := s.users.UsernameExists(username)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInternal, err)
		}
		if exists {
			v.add("username", "A user with that username already exists.")
		}
	}

	if email == "" {
		v.add("email", "This field may not be blank.")
	} else if _, err := mail.ParseAddress(email); err != nil {
		v.add("email", "Enter a valid email address.")
	} else {
		exists, err := s.users.EmailExists(email)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInternal, err)
		}
		if exists {
			v.add("email", "user with this email already exists.")
		}
	}

	if err := validatePassword(password); err != nil {
		v.add("password", err.Error())
	}

	return v.orNil()
}

type passwordError string

func (e passwordError) Error() string { return string(e) }

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return passwordError(fmt.Sprintf(
			"This password is too short. It must contain at least %d characters.",
			MinPasswordLength,
		))
	}
	return nil
}
