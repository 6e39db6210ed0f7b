// Package client is the caller-side access to chat sessions. Facade tries the
// HTTP API first and falls back to an on-device store; writes made while
// falling back are never copied to the server. A version conflict reported by
// the server is returned to the caller instead of falling back.
package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/orderlens/order-analyzer/internal/logger"
	"github.com/orderlens/order-analyzer/internal/store"
)

type Strategy string

const (
	StrategyRemote Strategy = "remote"
	StrategyLocal  Strategy = "local"
)

// Result says which strategy answered a call. RemoteErr holds the reason the
// remote strategy was skipped, if it was.
type Result struct {
	Strategy  Strategy
	RemoteErr error
}

// Degraded reports whether the call was not served by the remote API.
func (r Result) Degraded() bool { return r.Strategy != StrategyRemote }

// Backend is the session contract shared by Remote and Local.
type Backend interface {
	ListSessions(ctx context.Context) ([]store.ChatSession, error)
	GetSession(ctx context.Context, id string) (*store.ChatSession, error)
	SaveSession(ctx context.Context, session *store.ChatSession) error
	DeleteSession(ctx context.Context, id string) error
	ClearSessions(ctx context.Context) error
}

type strategy struct {
	name    Strategy
	backend Backend
}

type Facade struct {
	strategies []strategy
	log        *logger.Logger
}

// NewFacade tries remote, then local.
func NewFacade(remote, local Backend, log *logger.Logger) *Facade {
	return &Facade{
		strategies: []strategy{
			{name: StrategyRemote, backend: remote},
			{name: StrategyLocal, backend: local},
		},
		log: log.With("component", "session_facade"),
	}
}

func run[T any](f *Facade, ctx context.Context, op string, call func(Backend) (T, error)) (T, Result, error) {
	var (
		res  Result
		errs []error
		zero T
	)
	for _, s := range f.strategies {
		v, err := call(s.backend)
		if err == nil {
			res.Strategy = s.name
			return v, res, nil
		}
		if s.name == StrategyRemote {
			res.RemoteErr = err
			// The server answered; a stale write must not be redirected.
			if errors.Is(err, store.ErrConflict) {
				res.Strategy = s.name
				return zero, res, fmt.Errorf("%s: %w", op, err)
			}
		}
		f.log.Warn("session strategy failed", "op", op, "strategy", string(s.name), "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
	}
	return zero, res, fmt.Errorf("%s failed on every strategy: %w", op, errors.Join(errs...))
}

func (f *Facade) ListSessions(ctx context.Context) ([]store.ChatSession, Result, error) {
	return run(f, ctx, "list sessions", func(b Backend) ([]store.ChatSession, error) {
		return b.ListSessions(ctx)
	})
}

// GetSession returns store.ErrNotFound (wrapped) when no strategy has the id.
func (f *Facade) GetSession(ctx context.Context, id string) (*store.ChatSession, Result, error) {
	return run(f, ctx, "get session", func(b Backend) (*store.ChatSession, error) {
		return b.GetSession(ctx, id)
	})
}

func (f *Facade) SaveSession(ctx context.Context, session *store.ChatSession) (Result, error) {
	_, res, err := run(f, ctx, "save session", func(b Backend) (struct{}, error) {
		return struct{}{}, b.SaveSession(ctx, session)
	})
	return res, err
}

func (f *Facade) DeleteSession(ctx context.Context, id string) (Result, error) {
	_, res, err := run(f, ctx, "delete session", func(b Backend) (struct{}, error) {
		return struct{}{}, b.DeleteSession(ctx, id)
	})
	return res, err
}

func (f *Facade) ClearSessions(ctx context.Context) (Result, error) {
	_, res, err := run(f, ctx, "clear sessions", func(b Backend) (struct{}, error) {
		return struct{}{}, b.ClearSessions(ctx)
	})
	return res, err
}
