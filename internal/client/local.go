package client

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/orderlens/order-analyzer/internal/store"
	bolt "go.etcd.io/bbolt"
)

var (
	localBucket = []byte("local_storage")
	sessionsKey = []byte("chat-sessions")
)

// Local is the on-device fallback. All sessions live under one key as a JSON
// array, so every operation loads and rewrites the whole list.
type Local struct {
	db *bolt.DB
}

func OpenLocal(path string) (*Local, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	return &Local{db: db}, nil
}

// DefaultLocalPath is the per-user location of the local store.
func DefaultLocalPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = "."
	}
	return filepath.Join(dir, "order-analyzer", "local.bolt")
}

func (l *Local) Close() error {
	return l.db.Close()
}

func (l *Local) ListSessions(ctx context.Context) ([]store.ChatSession, error) {
	var sessions []store.ChatSession
	err := l.db.View(func(tx *bolt.Tx) error {
		var err error
		sessions, err = readSessions(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (l *Local) GetSession(ctx context.Context, id string) (*store.ChatSession, error) {
	sessions, err := l.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		if sessions[i].ID == id {
			return &sessions[i], nil
		}
	}
	return nil, store.ErrNotFound
}

// SaveSession replaces the session with the same id or appends it. No version
// check or timestamp refresh happens locally.
func (l *Local) SaveSession(ctx context.Context, session *store.ChatSession) error {
	return l.db.Update(func(tx *bolt.Tx) error {
		sessions, err := readSessions(tx)
		if err != nil {
			return err
		}
		replaced := false
		for i := range sessions {
			if sessions[i].ID == session.ID {
				sessions[i] = *session
				replaced = true
				break
			}
		}
		if !replaced {
			sessions = append(sessions, *session)
		}
		return writeSessions(tx, sessions)
	})
}

func (l *Local) DeleteSession(ctx context.Context, id string) error {
	return l.db.Update(func(tx *bolt.Tx) error {
		sessions, err := readSessions(tx)
		if err != nil {
			return err
		}
		kept := sessions[:0]
		for _, s := range sessions {
			if s.ID != id {
				kept = append(kept, s)
			}
		}
		return writeSessions(tx, kept)
	})
}

func (l *Local) ClearSessions(ctx context.Context) error {
	return l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(localBucket)
		if b == nil {
			return nil
		}
		return b.Delete(sessionsKey)
	})
}

func readSessions(tx *bolt.Tx) ([]store.ChatSession, error) {
	sessions := []store.ChatSession{}
	b := tx.Bucket(localBucket)
	if b == nil {
		return sessions, nil
	}
	raw := b.Get(sessionsKey)
	if len(raw) == 0 {
		return sessions, nil
	}
	if err := json.Unmarshal(raw, &sessions); err != nil {
		return nil, fmt.Errorf("decode local sessions: %w", err)
	}
	return sessions, nil
}

func writeSessions(tx *bolt.Tx, sessions []store.ChatSession) error {
	b, err := tx.CreateBucketIfNotExists(localBucket)
	if err != nil {
		return err
	}
	enc, err := json.Marshal(sessions)
	if err != nil {
		return err
	}
	return b.Put(sessionsKey, enc)
}
