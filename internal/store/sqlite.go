package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/orderlens/order-analyzer/internal/clock"
)

// SQLiteStore keeps sessions and checklists as JSON documents in SQLite.
// Timestamps are stored as unix milliseconds so expiry comparisons are numeric.
type SQLiteStore struct {
	db    *sql.DB
	clock clock.Clock
}

func NewSQLiteStore(dataSourceName string, clk clock.Clock) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serializes writers anyway; one connection avoids "database is locked".
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if clk == nil {
		clk = clock.System()
	}

	store := &SQLiteStore{db: db, clock: clk}
	if err = store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS chat_sessions (
        id TEXT PRIMARY KEY,
        title TEXT NOT NULL,
        messages_json TEXT NOT NULL,
        version INTEGER NOT NULL DEFAULT 0,
        created_at INTEGER NOT NULL,
        updated_at INTEGER NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_chat_sessions_updated_at ON chat_sessions (updated_at DESC);

    CREATE TABLE IF NOT EXISTS checklists (
        id TEXT PRIMARY KEY,
        items_json TEXT NOT NULL,
        created_at INTEGER NOT NULL,
        expires_at INTEGER NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_checklists_expires_at ON checklists (expires_at);
    `
	_, err := s.db.Exec(schema)
	return err
}

// Chat session methods
func (s *SQLiteStore) ListSessions(ctx context.Context) ([]ChatSession, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, title, messages_json, version, created_at, updated_at FROM chat_sessions ORDER BY updated_at DESC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query chat sessions: %w", err)
	}
	defer rows.Close()

	sessions := []ChatSession{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat sessions: %w", err)
	}
	return sessions, nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*ChatSession, error) {
	row := s.db.QueryRowContext(ctx, "SELECT id, title, messages_json, version, created_at, updated_at FROM chat_sessions WHERE id = ?", id)
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return session, nil
}

// UpsertSession replaces the stored session with the given one, or inserts it.
// createdAt of an existing row is kept; updatedAt and Version are set here and
// written back into session.
func (s *SQLiteStore) UpsertSession(ctx context.Context, session *ChatSession) error {
	if session.Messages == nil {
		session.Messages = []ChatMessage{}
	}
	messagesJSON, err := json.Marshal(session.Messages)
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin session upsert: %w", err)
	}
	defer tx.Rollback()

	var storedVersion, storedCreated int64
	err = tx.QueryRowContext(ctx, "SELECT version, created_at FROM chat_sessions WHERE id = ?", session.ID).Scan(&storedVersion, &storedCreated)
	exists := true
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to read session version: %w", err)
		}
		exists = false
	}

	if session.Version != 0 && session.Version != storedVersion {
		return fmt.Errorf("session %s at version %d, got %d: %w", session.ID, storedVersion, session.Version, ErrConflict)
	}

	now := s.clock.Now()
	switch {
	case exists:
		session.CreatedAt = time.UnixMilli(storedCreated)
	case session.CreatedAt.IsZero():
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	session.Version = storedVersion + 1

	_, err = tx.ExecContext(ctx, `
        INSERT INTO chat_sessions (id, title, messages_json, version, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            title = excluded.title,
            messages_json = excluded.messages_json,
            version = excluded.version,
            updated_at = excluded.updated_at`,
		session.ID, session.Title, string(messagesJSON), session.Version,
		session.CreatedAt.UnixMilli(), session.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to execute session upsert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session upsert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM chat_sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete chat session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteAllSessions(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM chat_sessions"); err != nil {
		return fmt.Errorf("failed to delete chat sessions: %w", err)
	}
	return nil
}

// Checklist methods
func (s *SQLiteStore) GetChecklist(ctx context.Context, id string) (*Checklist, error) {
	var (
		checklist Checklist
		itemsJSON string
		createdAt int64
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, items_json, created_at, expires_at FROM checklists WHERE id = ? AND expires_at > ?",
		id, s.clock.Now().UnixMilli()).Scan(&checklist.ID, &itemsJSON, &createdAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query checklist: %w", err)
	}
	if err := json.Unmarshal([]byte(itemsJSON), &checklist.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checklist items for %s: %w", id, err)
	}
	checklist.CreatedAt = time.UnixMilli(createdAt)
	checklist.ExpiresAt = time.UnixMilli(expiresAt)
	return &checklist, nil
}

// CreateChecklist inserts a checklist and purges rows whose expiry has passed.
func (s *SQLiteStore) CreateChecklist(ctx context.Context, checklist *Checklist) error {
	if checklist.Items == nil {
		checklist.Items = []ChecklistItem{}
	}
	itemsJSON, err := json.Marshal(checklist.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal checklist items: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin checklist insert: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM checklists WHERE expires_at <= ?", s.clock.Now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to purge expired checklists: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO checklists (id, items_json, created_at, expires_at) VALUES (?, ?, ?, ?)",
		checklist.ID, string(itemsJSON), checklist.CreatedAt.UnixMilli(), checklist.ExpiresAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to execute checklist insert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit checklist insert: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*ChatSession, error) {
	var (
		session      ChatSession
		messagesJSON string
		createdAt    int64
		updatedAt    int64
	)
	if err := row.Scan(&session.ID, &session.Title, &messagesJSON, &session.Version, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan chat session row: %w", err)
	}
	if err := json.Unmarshal([]byte(messagesJSON), &session.Messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal messages for session %s: %w", session.ID, err)
	}
	if session.Messages == nil {
		session.Messages = []ChatMessage{}
	}
	session.CreatedAt = time.UnixMilli(createdAt)
	session.UpdatedAt = time.UnixMilli(updatedAt)
	return &session, nil
}
