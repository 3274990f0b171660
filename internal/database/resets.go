package database

import (
	"fmt"
	"time"

	"git.sr.ht/~jakintosh/storefront/internal/service"
)

func (s *SQLiteStore) ResetStore() service.ResetStore {
	return s
}

// PutResetCode stores the hashed code for email, replacing any earlier one
// and its attempt count.
func (s *SQLiteStore) PutResetCode(
	email string,
	code []byte,
	expiration time.Time,
) error {
	_, err := s.db.Exec(`
		INSERT INTO password_resets (email, code, expiration, attempts)
		VALUES (?1, ?2, ?3, 0)
		ON CONFLICT (email) DO UPDATE SET
			code=excluded.code,
			expiration=excluded.expiration,
			attempts=0;`,
		email,
		code,
		expiration.Unix(),
	)
	if err != nil {
		return fmt.Errorf("couldn't upsert password_resets: %v", err)
	}
	return nil
}

// GetResetCode fails with sql.ErrNoRows when no code is pending for email.
func (s *SQLiteStore) GetResetCode(
	email string,
) (
	*service.ResetCode,
	error,
) {
	var code service.ResetCode
	var expiration int64
	if err := s.db.QueryRow(`
		SELECT code, expiration, attempts
		FROM password_resets
		WHERE email=?1;`,
		email,
	).Scan(&code.Hash, &expiration, &code.Attempts); err != nil {
		return nil, fmt.Errorf("couldn't scan reset code: %w", err)
	}
	code.Expiration = time.Unix(expiration, 0)
	return &code, nil
}

func (s *SQLiteStore) CountResetAttempt(
	email string,
) error {
	if _, err := s.db.Exec(`
		UPDATE password_resets SET attempts=attempts+1
		WHERE email=?1;`,
		email,
	); err != nil {
		return fmt.Errorf("couldn't update password_resets: %v", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteResetCode(
	email string,
) error {
	if _, err := s.db.Exec(`
		DELETE FROM password_resets
		WHERE email=?1;`,
		email,
	); err != nil {
		return fmt.Errorf("couldn't delete from password_resets: %v", err)
	}
	return nil
}
