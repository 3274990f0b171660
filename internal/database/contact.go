package database

import (
	"database/sql"
	"fmt"
	"time"

	"git.sr.ht/~jakintosh/storefront/internal/service"
	"git.sr.ht/~jakintosh/storefront/pkg/api"
)

func (s *SQLiteStore) ContactStore() service.ContactStore {
	return s
}

const messageColumns = `id, name, email, message, is_read, replied, created`

func scanMessage(row scanner) (*api.ContactMessage, error) {
	var m api.ContactMessage
	var isRead, replied int
	var created int64
	if err := row.Scan(
		&m.ID,
		&m.Name,
		&m.Email,
		&m.Message,
		&isRead,
		&replied,
		&created,
	); err != nil {
		return nil, err
	}
	m.IsRead = isRead != 0
	m.Replied = replied != 0
	m.CreatedAt = time.Unix(created, 0).UTC()
	return &m, nil
}

func (s *SQLiteStore) InsertMessage(
	name string,
	email string,
	message string,
) (
	*api.ContactMessage,
	error,
) {
	result, err := s.db.Exec(`
		INSERT INTO contact_messages (name, email, message, created)
		VALUES (?1, ?2, ?3, ?4);`,
		name,
		email,
		message,
		time.Now().Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't insert into contact_messages: %v", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("couldn't read new message id: %v", err)
	}
	return s.GetMessage(id)
}

func (s *SQLiteStore) GetMessage(
	id int64,
) (
	*api.ContactMessage,
	error,
) {
	row := s.db.QueryRow(`
		SELECT `+messageColumns+`
		FROM contact_messages
		WHERE id=?1;`,
		id,
	)
	m, err := scanMessage(row)
	if err != nil {
		return nil, fmt.Errorf("couldn't scan message: %w", err)
	}
	return m, nil
}

// ListMessages returns every message, newest first.
func (s *SQLiteStore) ListMessages() (
	[]api.ContactMessage,
	error,
) {
	rows, err := s.db.Query(`
		SELECT ` + messageColumns + `
		FROM contact_messages
		ORDER BY created DESC, id DESC;`,
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't query contact_messages: %v", err)
	}
	defer rows.Close()

	messages := []api.ContactMessage{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("couldn't scan message: %v", err)
		}
		messages = append(messages, *m)
	}
	return messages, rows.Err()
}

// UpdateMessage applies the flags that are set and returns the result. A
// missing message fails with sql.ErrNoRows.
func (s *SQLiteStore) UpdateMessage(
	id int64,
	patch api.ContactMessagePatch,
) (
	*api.ContactMessage,
	error,
) {
	var isRead, replied sql.NullInt64
	if patch.IsRead != nil {
		isRead = sql.NullInt64{Int64: int64(boolToInt(*patch.IsRead)), Valid: true}
	}
	if patch.Replied != nil {
		replied = sql.NullInt64{Int64: int64(boolToInt(*patch.Replied)), Valid: true}
	}

	if _, err := s.db.Exec(`
		UPDATE contact_messages SET
			is_read = COALESCE(?2, is_read),
			replied = COALESCE(?3, replied)
		WHERE id=?1;`,
		id,
		isRead,
		replied,
	); err != nil {
		return nil, fmt.Errorf("couldn't update contact_messages: %v", err)
	}
	return s.GetMessage(id)
}

func (s *SQLiteStore) DeleteMessage(
	id int64,
) (
	bool,
	error,
) {
	result, err := s.db.Exec(`
		DELETE FROM contact_messages
		WHERE id=?1;`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("couldn't delete from contact_messages: %v", err)
	}
	return !resultsEmpty(result), nil
}
