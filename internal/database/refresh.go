package database

import (
	"fmt"

	"git.sr.ht/~jakintosh/storefront/internal/service"
	"git.sr.ht/~jakintosh/storefront/internal/tokens"
)

func (s *SQLiteStore) RefreshStore() service.RefreshStore {
	return s
}

func (s *SQLiteStore) InsertRefreshToken(
	token *tokens.Token,
) error {
	_, err := s.db.Exec(`
		INSERT INTO refresh (jti, owner, expiration)
		VALUES (?1, ?2, ?3);`,
		token.ID(),
		token.UserID(),
		token.Expiration().Unix(),
	)
	if err != nil {
		return fmt.Errorf("couldn't insert into refresh: %v", err)
	}
	return nil
}

func (s *SQLiteStore) RefreshTokenExists(
	id string,
) (
	bool,
	error,
) {
	return s.exists(`SELECT EXISTS(SELECT 1 FROM refresh WHERE jti=?1);`, id)
}

func (s *SQLiteStore) DeleteRefreshToken(
	id string,
) (
	bool,
	error,
) {
	result, err := s.db.Exec(`
		DELETE FROM refresh
		WHERE jti=?1;`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("couldn't delete from refresh: %v", err)
	}

	deleted := !resultsEmpty(result)
	return deleted, nil
}

func (s *SQLiteStore) DeleteUserRefreshTokens(
	userID int64,
) error {
	_, err := s.db.Exec(`
		DELETE FROM refresh
		WHERE owner=?1;`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("couldn't delete from refresh: %v", err)
	}
	return nil
}
