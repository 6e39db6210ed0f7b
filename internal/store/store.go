package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("version conflict")
)

// SessionStore persists chat sessions. Upserts replace the whole record.
type SessionStore interface {
	ListSessions(ctx context.Context) ([]ChatSession, error)
	GetSession(ctx context.Context, id string) (*ChatSession, error)
	UpsertSession(ctx context.Context, session *ChatSession) error
	DeleteSession(ctx context.Context, id string) error
	DeleteAllSessions(ctx context.Context) error
}

// ChecklistStore persists shared checklists until their expiry timestamp.
type ChecklistStore interface {
	GetChecklist(ctx context.Context, id string) (*Checklist, error)
	CreateChecklist(ctx context.Context, checklist *Checklist) error
}
