package database

import (
	"database/sql"
	"fmt"

	"git.sr.ht/~jakintosh/storefront/internal/service"
	"git.sr.ht/~jakintosh/storefront/pkg/api"
)

func (s *SQLiteStore) UserStore() service.UserStore {
	return s
}

const userColumns = `id, username, email, role, status, blocked`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner, extra ...any) (*api.User, error) {
	var (
		user    api.User
		role    string
		blocked int
	)
	dest := append([]any{&user.ID, &user.Username, &user.Email, &role, &user.Status, &blocked}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	user.Role = api.Role(role)
	user.Blocked = blocked != 0
	return &user, nil
}

func (s *SQLiteStore) InsertUser(
	username string,
	email string,
	secret []byte,
	role api.Role,
) (
	*api.User,
	error,
) {
	result, err := s.db.Exec(`
		INSERT INTO users (username, email, secret, role, status)
		VALUES (?1, ?2, ?3, ?4, ?5);`,
		username,
		email,
		secret,
		string(role),
		api.StatusActive,
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't insert into users: %v", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("couldn't read new user id: %v", err)
	}
	return s.GetUser(id)
}

func (s *SQLiteStore) GetUser(
	id int64,
) (
	*api.User,
	error,
) {
	row := s.db.QueryRow(`
		SELECT `+userColumns+`
		FROM users
		WHERE id=?1;`,
		id,
	)

	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("couldn't scan user: %w", err)
	}
	return user, nil
}

func (s *SQLiteStore) GetUserByEmail(
	email string,
) (
	*api.User,
	[]byte,
	error,
) {
	row := s.db.QueryRow(`
		SELECT `+userColumns+`, secret
		FROM users
		WHERE email=?1;`,
		email,
	)

	var secret []byte
	user, err := scanUser(row, &secret)
	if err != nil {
		return nil, nil, fmt.Errorf("couldn't scan user: %w", err)
	}
	return user, secret, nil
}

func (s *SQLiteStore) UsernameExists(
	username string,
) (
	bool,
	error,
) {
	return s.exists(`SELECT EXISTS(SELECT 1 FROM users WHERE username=?1);`, username)
}

func (s *SQLiteStore) EmailExists(
	email string,
) (
	bool,
	error,
) {
	return s.exists(`SELECT EXISTS(SELECT 1 FROM users WHERE email=?1);`, email)
}

func (s *SQLiteStore) exists(query string, args ...any) (bool, error) {
	var exists bool
	if err := s.db.QueryRow(query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("couldn't scan existence: %v", err)
	}
	return exists, nil
}

func (s *SQLiteStore) ListUsers() (
	[]api.User,
	error,
) {
	rows, err := s.db.Query(`
		SELECT ` + userColumns + `
		FROM users
		ORDER BY id;`,
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't query users: %v", err)
	}
	defer rows.Close()

	users := []api.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("couldn't scan user: %v", err)
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func (s *SQLiteStore) UpdateUser(
	id int64,
	update service.UserUpdate,
) (
	*api.User,
	error,
) {
	var role, status sql.NullString
	var blocked sql.NullInt64
	var secret any
	if update.Role != nil {
		role = sql.NullString{String: string(*update.Role), Valid: true}
	}
	if update.Status != nil {
		status = sql.NullString{String: *update.Status, Valid: true}
	}
	if update.Blocked != nil {
		blocked = sql.NullInt64{Int64: int64(boolToInt(*update.Blocked)), Valid: true}
	}
	if update.Secret != nil {
		secret = update.Secret
	}

	result, err := s.db.Exec(`
		UPDATE users SET
			role    = COALESCE(?2, role),
			status  = COALESCE(?3, status),
			blocked = COALESCE(?4, blocked),
			secret  = COALESCE(?5, secret)
		WHERE id=?1;`,
		id,
		role,
		status,
		blocked,
		secret,
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't update users: %v", err)
	}
	if resultsEmpty(result) {
		return nil, fmt.Errorf("couldn't update user %d: %w", id, sql.ErrNoRows)
	}
	return s.GetUser(id)
}

func (s *SQLiteStore) DeleteUser(
	id int64,
) (
	bool,
	error,
) {
	result, err := s.db.Exec(`
		DELETE FROM users
		WHERE id=?1;`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("couldn't delete from users: %v", err)
	}
	return !resultsEmpty(result), nil
}
