package service

import (
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/mail"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	ResetCodeDigits  = 6
	MaxResetAttempts = 5
)

// Mailer delivers a password reset code to the owner of email.
type Mailer interface {
	SendResetCode(email string, code string) error
}

// LogMailer writes reset codes to the log instead of sending them.
type LogMailer struct {
	Log *slog.Logger
}

func (m LogMailer) SendResetCode(email string, code string) error {
	log := m.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("password_reset_code", "email", email, "code", code)
	return nil
}

// RequestPasswordReset mails a one-time code to the account behind email.
// Unknown emails succeed silently, so the answer does not reveal which
// accounts exist.
func (s *Service) RequestPasswordReset(
	email string,
) error {
	email = normalizeEmail(email)
	if email == "" {
		return fieldError("email", "This field may not be blank.")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fieldError("email", "Enter a valid email address.")
	}

	if _, _, err := s.users.GetUserByEmail(email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	code, err := newResetCode()
	if err != nil {
		return fmt.Errorf("%w: couldn't generate reset code: %v", ErrInternal, err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.config.PasswordMode.Cost())
	if err != nil {
		return fmt.Errorf("%w: failed to hash reset code: %v", ErrInternal, err)
	}
	if err := s.resets.PutResetCode(email, hash, time.Now().Add(s.config.ResetCodeTTL)); err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	if err := s.config.Mailer.SendResetCode(email, code); err != nil {
		return fmt.Errorf("%w: couldn't deliver reset code: %v", ErrInternal, err)
	}
	return nil
}

// ResetPassword sets a new password when code matches the one mailed to
// email. A code works once, expires, and is discarded after too many wrong
// guesses. The account's sessions end with the reset.
func (s *Service) ResetPassword(
	email string,
	code string,
	newPassword string,
) error {
	email = normalizeEmail(email)
	if err := validatePassword(newPassword); err != nil {
		return fieldError("new_password", err.Error())
	}

	stored, err := s.resets.GetResetCode(email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrResetCodeInvalid
		}
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if time.Now().After(stored.Expiration) || stored.Attempts >= MaxResetAttempts {
		if err := s.resets.DeleteResetCode(email); err != nil {
			return fmt.Errorf("%w: %v", ErrInternal, err)
		}
		return ErrResetCodeInvalid
	}
	if err := bcrypt.CompareHashAndPassword(stored.Hash, []byte(code)); err != nil {
		if err := s.resets.CountResetAttempt(email); err != nil {
			return fmt.Errorf("%w: %v", ErrInternal, err)
		}
		return ErrResetCodeInvalid
	}

	user, _, err := s.users.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrResetCodeInvalid
		}
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.config.PasswordMode.Cost())
	if err != nil {
		return fmt.Errorf("%w: failed to hash password: %v", ErrInternal, err)
	}
	if _, err := s.users.UpdateUser(user.ID, UserUpdate{Secret: hash}); err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	if err := s.resets.DeleteResetCode(email); err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if err := s.refresh.DeleteUserRefreshTokens(user.ID); err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return nil
}

func newResetCode() (string, error) {
	limit := big.NewInt(1)
	for range ResetCodeDigits {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", ResetCodeDigits, n.Int64()), nil
}
