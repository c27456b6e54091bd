package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/smartcharge/core/state"
)

// SQLiteStore persists state.Data in a SQLite database, one row per account.
type SQLiteStore struct {
	db      *sql.DB
	account string
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path, account string) (*SQLiteStore, error) {
	if account == "" {
		return nil, errors.New("sqlite store: account is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS persistent_state (
        account TEXT PRIMARY KEY,
        data TEXT NOT NULL,
        updated_at INTEGER NOT NULL
    );`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db, account: account}, nil
}

// Load implements state.Store.
func (s *SQLiteStore) Load(ctx context.Context, def state.Data) (state.Data, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM persistent_state WHERE account = ?`, s.account).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return def, false, nil
	}
	if err != nil {
		return def, false, err
	}
	d := def
	if err := json.Unmarshal([]byte(data), &d); err != nil {
		return def, false, fmt.Errorf("unmarshal state: %w", err)
	}
	return d, true, nil
}

// Save implements state.Store.
func (s *SQLiteStore) Save(ctx context.Context, d state.Data) error {
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO persistent_state (account, data, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(account) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		s.account, string(b), time.Now().Unix())
	return err
}

// Remove implements state.Store.
func (s *SQLiteStore) Remove(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM persistent_state WHERE account = ?`, s.account)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
