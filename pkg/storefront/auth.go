package storefront

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"git.sr.ht/~jakintosh/storefront/pkg/api"
	"git.sr.ht/~jakintosh/storefront/pkg/client"
	"git.sr.ht/~jakintosh/storefront/pkg/credentials"
)

// Auth signs accounts in and out and keeps the stored session current.
type Auth struct {
	shop *Shop
}

// Login signs in and stores the session. Blocked accounts are refused and
// leave no session behind.
func (a *Auth) Login(
	ctx context.Context,
	email string,
	password string,
) (
	*credentials.Identity,
	error,
) {
	var res api.LoginResponse
	err := a.shop.call(ctx, http.MethodPost, api.RouteLogin,
		api.LoginRequest{Email: normalizeEmail(email), Password: password},
		&res, client.WithoutRefresh())
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
		}
		return nil, err
	}

	if res.User.Blocked {
		return nil, a.refuseBlocked(ctx, res.Refresh)
	}
	return a.saveSession(ctx, res.Access, res.Refresh, &res.User)
}

// refuseBlocked hands the fresh refresh token straight back and clears the
// store. The result always matches ErrAccountBlocked; it also carries any
// revoke or purge failure.
func (a *Auth) refuseBlocked(ctx context.Context, refresh string) error {
	errs := []error{ErrAccountBlocked}
	err := a.shop.call(ctx, http.MethodPost, api.RouteLogout,
		api.RefreshRequest{Refresh: refresh}, nil, client.WithoutRefresh())
	if err != nil {
		errs = append(errs, fmt.Errorf("revoke refresh token: %w", err))
	}
	if err := credentials.Purge(ctx, a.shop.store()); err != nil {
		errs = append(errs, fmt.Errorf("clear session: %w", err))
	}
	return errors.Join(errs...)
}

// Register creates an account and signs it in. Taken usernames and emails
// come back as ErrUsernameTaken and ErrEmailTaken; any other field problem
// as ErrInvalidRegistration carrying the API's message.
func (a *Auth) Register(
	ctx context.Context,
	username string,
	email string,
	password string,
) (
	*credentials.Identity,
	error,
) {
	var res api.RegisterResponse
	err := a.shop.call(ctx, http.MethodPost, api.RouteRegister,
		api.RegisterRequest{
			Username: strings.TrimSpace(username),
			Email:    normalizeEmail(email),
			Password: password,
		},
		&res, client.WithoutRefresh())
	if err != nil {
		return nil, registrationError(err)
	}
	return a.saveSession(ctx, res.Access, res.Refresh, &res.User)
}

func registrationError(err error) error {
	if msgs := fieldMessages(err, "email"); len(msgs) > 0 {
		if strings.Contains(msgs[0], "exists") {
			return ErrEmailTaken
		}
		return fmt.Errorf("%w: %s", ErrInvalidRegistration, msgs[0])
	}
	if msgs := fieldMessages(err, "username"); len(msgs) > 0 {
		if strings.Contains(msgs[0], "exists") {
			return ErrUsernameTaken
		}
		return fmt.Errorf("%w: %s", ErrInvalidRegistration, msgs[0])
	}
	if msgs := fieldMessages(err, "password"); len(msgs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRegistration, msgs[0])
	}
	return err
}

func (a *Auth) saveSession(
	ctx context.Context,
	access string,
	refresh string,
	user *api.User,
) (
	*credentials.Identity,
	error,
) {
	store := a.shop.store()
	if err := credentials.SavePair(ctx, store, access, refresh); err != nil {
		return nil, err
	}
	identity := identityOf(user)
	if err := credentials.SaveIdentity(ctx, store, identity); err != nil {
		return nil, err
	}
	return identity, nil
}

// Logout revokes the refresh token on the server, if it can, and clears the
// stored session either way.
func (a *Auth) Logout(ctx context.Context) error {
	store := a.shop.store()
	refresh, ok, err := store.Get(ctx, credentials.KeyRefresh)
	if err == nil && ok && refresh != "" {
		// the server forgetting the token is best effort
		_ = a.shop.call(ctx, http.MethodPost, api.RouteLogout,
			api.RefreshRequest{Refresh: refresh}, nil, client.WithoutRefresh())
	}
	return credentials.Purge(ctx, store)
}

// CurrentUser returns the cached identity of the signed-in account.
func (a *Auth) CurrentUser(ctx context.Context) (*credentials.Identity, error) {
	return a.shop.identity(ctx)
}

// VerifyStatus re-reads the signed-in account from the server. A blocked
// account is signed out and reported as ErrAccountBlocked.
func (a *Auth) VerifyStatus(ctx context.Context) (*credentials.Identity, error) {
	identity, err := a.shop.identity(ctx)
	if err != nil {
		return nil, err
	}

	var user api.User
	if err := a.shop.get(ctx, api.UserPath(identity.ID), &user); err != nil {
		return nil, err
	}

	if user.Blocked {
		if err := a.Logout(ctx); err != nil {
			return nil, err
		}
		return nil, ErrAccountBlocked
	}

	fresh := identityOf(&user)
	if err := credentials.SaveIdentity(ctx, a.shop.store(), fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

// UpdatePassword changes the signed-in account's password.
func (a *Auth) UpdatePassword(ctx context.Context, password string) error {
	identity, err := a.shop.identity(ctx)
	if err != nil {
		return err
	}
	err = a.shop.call(ctx, http.MethodPatch, api.UserPath(identity.ID),
		api.UserPatch{Password: &password}, nil)
	if msgs := fieldMessages(err, "password"); len(msgs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRegistration, msgs[0])
	}
	return err
}

// RequestPasswordReset asks for a one-time code to be mailed to email. The
// answer is the same whether or not the account exists.
func (a *Auth) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	var res api.MessageResponse
	err := a.shop.call(ctx, http.MethodPost, api.RouteResetRequest,
		api.ResetRequest{Email: normalizeEmail(email)}, &res, client.WithoutRefresh())
	if err != nil {
		return "", resetError(err)
	}
	return res.Message, nil
}

// ResetPassword sets a new password using the code from
// RequestPasswordReset. Every session of the account ends with it; the
// caller signs in again with the new password.
func (a *Auth) ResetPassword(
	ctx context.Context,
	email string,
	code string,
	newPassword string,
) (
	string,
	error,
) {
	var res api.MessageResponse
	err := a.shop.call(ctx, http.MethodPost, api.RouteResetVerify,
		api.ResetVerifyRequest{
			Email:       normalizeEmail(email),
			OTP:         strings.TrimSpace(code),
			NewPassword: newPassword,
		},
		&res, client.WithoutRefresh())
	if err != nil {
		return "", resetError(err)
	}
	return res.Message, nil
}

func resetError(err error) error {
	var apiErr *client.Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
		return err
	}
	detail := apiErr.Detail()
	if detail == api.ErrorResetCodeInvalid {
		return ErrResetCodeInvalid
	}
	return fmt.Errorf("%w: %s", ErrResetRefused, detail)
}
