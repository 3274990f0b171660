package service

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"git.sr.ht/~jakintosh/storefront/internal/tokens"
	"git.sr.ht/~jakintosh/storefront/pkg/api"
)

// Login checks an email and password and issues a token pair. Blocked
// accounts still sign in; the client decides what to do with them.
func (s *Service) Login(
	email string,
	password string,
) (
	*api.LoginResponse,
	error,
) {
	user, err := s.authenticate(email, password)
	if err != nil {
		return nil, err
	}

	access, refresh, err := s.issuePair(user.ID)
	if err != nil {
		return nil, err
	}

	return &api.LoginResponse{
		Access:  access,
		Refresh: refresh,
		User:    *user,
	}, nil
}

func (s *Service) authenticate(
	email string,
	password string,
) (
	*api.User,
	error,
) {
	user, hash, err := s.users.GetUserByEmail(normalizeEmail(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, email)
		}
		return nil, fmt.Errorf("%w: failed to retrieve secret: %v", ErrInternal, err)
	}

	err = bcrypt.CompareHashAndPassword(hash, []byte(password))
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// issuePair mints an access token and a stored refresh token.
func (s *Service) issuePair(
	userID int64,
) (
	string,
	string,
	error,
) {
	accessToken, err := s.tokenIssuer.IssueAccessToken(userID, s.config.AccessTTL)
	if err != nil {
		return "", "", fmt.Errorf("%w: couldn't issue access token: %v", ErrInternal, err)
	}

	refreshToken, err := s.tokenIssuer.IssueRefreshToken(userID, s.config.RefreshTTL)
	if err != nil {
		return "", "", fmt.Errorf("%w: couldn't issue refresh token: %v", ErrInternal, err)
	}

	if err := s.refresh.InsertRefreshToken(refreshToken); err != nil {
		return "", "", fmt.Errorf("%w: failed to store refresh token: %v", ErrInternal, err)
	}

	return accessToken.Encoded(), refreshToken.Encoded(), nil
}

// RefreshTokens exchanges a refresh token for a new access token. With
// rotation enabled the old refresh token is revoked and a new one returned.
func (s *Service) RefreshTokens(
	encodedRefreshToken string,
) (
	*api.RefreshResponse,
	error,
) {
	token, err := s.tokenValidator.Validate(tokens.KindRefresh, encodedRefreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: couldn't decode refresh token: %v", ErrTokenInvalid, err)
	}

	exists, err := s.refresh.RefreshTokenExists(token.ID())
	if err != nil {
		return nil, fmt.Errorf("%w: couldn't look up refresh token: %v", ErrInternal, err)
	}
	if !exists {
		return nil, ErrTokenNotFound
	}

	if !s.config.RotateRefresh {
		accessToken, err := s.tokenIssuer.IssueAccessToken(token.UserID(), s.config.AccessTTL)
		if err != nil {
			return nil, fmt.Errorf("%w: couldn't issue access token: %v", ErrInternal, err)
		}
		return &api.RefreshResponse{Access: accessToken.Encoded()}, nil
	}

	deleted, err := s.refresh.DeleteRefreshToken(token.ID())
	if err != nil {
		return nil, fmt.Errorf("%w: refresh token couldn't be deleted: %v", ErrInternal, err)
	}
	if !deleted {
		return nil, ErrTokenNotFound
	}

	access, refresh, err := s.issuePair(token.UserID())
	if err != nil {
		return nil, err
	}
	return &api.RefreshResponse{Access: access, Refresh: refresh}, nil
}

// RevokeRefreshToken forgets a refresh token so it can no longer be
// exchanged.
func (s *Service) RevokeRefreshToken(
	encodedRefreshToken string,
) error {
	token, err := s.tokenValidator.Validate(tokens.KindRefresh, encodedRefreshToken)
	if err != nil {
		return fmt.Errorf("%w: couldn't decode refresh token: %v", ErrTokenInvalid, err)
	}

	deleted, err := s.refresh.DeleteRefreshToken(token.ID())
	if err != nil {
		return fmt.Errorf("%w: failed to delete refresh token: %v", ErrInternal, err)
	}
	if !deleted {
		return ErrTokenNotFound
	}
	return nil
}

// Authenticate resolves an access token to the account it was issued to.
func (s *Service) Authenticate(
	encodedAccessToken string,
) (
	*api.User,
	error,
) {
	token, err := s.tokenValidator.Validate(tokens.KindAccess, encodedAccessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	user, err := s.users.GetUser(token.UserID())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: account %d is gone", ErrTokenInvalid, token.UserID())
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
