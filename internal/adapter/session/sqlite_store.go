package session

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps session snapshots in a single sqlite file
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create session directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}
	// single writer, sqlite serialises anyway
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			saved_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS entries (
			session_id TEXT NOT NULL,
			pos INTEGER NOT NULL,
			k BLOB NOT NULL,
			v BLOB NOT NULL,
			PRIMARY KEY (session_id, pos)
		);`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute init query: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// Save replaces whatever was stored with snapshots
func (s *SQLiteStore) Save(ctx context.Context, snapshots []Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return err
	}

	sessStmt, err := tx.PrepareContext(ctx, `INSERT INTO sessions (id) VALUES (?)`)
	if err != nil {
		return err
	}
	defer sessStmt.Close()

	entryStmt, err := tx.PrepareContext(ctx, `INSERT INTO entries (session_id, pos, k, v) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer entryStmt.Close()

	for _, snap := range snapshots {
		if _, err := sessStmt.ExecContext(ctx, snap.ID); err != nil {
			return fmt.Errorf("failed to save session %s: %w", snap.ID, err)
		}
		for pos, e := range snap.Entries {
			if _, err := entryStmt.ExecContext(ctx, snap.ID, pos, e.Key, e.Value); err != nil {
				return fmt.Errorf("failed to save session %s entry %d: %w", snap.ID, pos, err)
			}
		}
	}

	return tx.Commit()
}

// Load returns every stored session with entries in position order
func (s *SQLiteStore) Load(ctx context.Context) ([]Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, e.k, e.v
		FROM sessions s JOIN entries e ON e.session_id = s.id
		ORDER BY s.id, e.pos`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var (
			id   string
			k, v []byte
		)
		if err := rows.Scan(&id, &k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan session entry: %w", err)
		}
		// zero length blobs can come back nil
		if k == nil {
			k = []byte{}
		}
		if v == nil {
			v = []byte{}
		}
		if len(out) == 0 || out[len(out)-1].ID != id {
			out = append(out, Snapshot{ID: id})
		}
		last := &out[len(out)-1]
		last.Entries = append(last.Entries, Entry{Key: k, Value: v})
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
