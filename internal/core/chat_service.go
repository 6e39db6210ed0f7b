package core

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/orderlens/order-analyzer/internal/clock"
	"github.com/orderlens/order-analyzer/internal/logger"
	"github.com/orderlens/order-analyzer/internal/store"
)

const maxTitleLength = 50

type ChatService struct {
	sessions store.SessionStore
	model    Model
	clock    clock.Clock
	log      *logger.Logger
}

func NewChatService(sessions store.SessionStore, model Model, clk clock.Clock, log *logger.Logger) *ChatService {
	if clk == nil {
		clk = clock.System()
	}
	return &ChatService{
		sessions: sessions,
		model:    model,
		clock:    clk,
		log:      log.With("component", "chat_service"),
	}
}

func (s *ChatService) ListSessions(ctx context.Context) ([]store.ChatSession, error) {
	return s.sessions.ListSessions(ctx)
}

func (s *ChatService) GetSession(ctx context.Context, id string) (*store.ChatSession, error) {
	return s.sessions.GetSession(ctx, id)
}

// SaveSession overwrites the stored session with session. Callers must send
// every message; missing messages are dropped from the stored copy.
func (s *ChatService) SaveSession(ctx context.Context, session *store.ChatSession) error {
	if strings.TrimSpace(session.ID) == "" {
		return fmt.Errorf("session id is required: %w", ErrInvalidRequest)
	}
	for i, msg := range session.Messages {
		if msg.ID == "" {
			return fmt.Errorf("message %d has no id: %w", i, ErrInvalidRequest)
		}
		if !msg.Role.Valid() {
			return fmt.Errorf("message %s has unknown role %q: %w", msg.ID, msg.Role, ErrInvalidRequest)
		}
	}
	if strings.TrimSpace(session.Title) == "" {
		session.Title = DeriveTitle(session.Messages, s.clock.Now())
	}

	if err := s.sessions.UpsertSession(ctx, session); err != nil {
		return err
	}
	s.log.Debug("saved chat session", "session_id", session.ID, "version", session.Version, "messages", len(session.Messages))
	return nil
}

func (s *ChatService) DeleteSession(ctx context.Context, id string) error {
	return s.sessions.DeleteSession(ctx, id)
}

func (s *ChatService) ClearSessions(ctx context.Context) error {
	return s.sessions.DeleteAllSessions(ctx)
}

// StreamReply streams the assistant's answer to messages through emit.
func (s *ChatService) StreamReply(ctx context.Context, messages []store.ChatMessage, emit func(string) error) error {
	if len(messages) == 0 {
		return fmt.Errorf("messages are required: %w", ErrInvalidRequest)
	}
	for i, msg := range messages {
		if !msg.Role.Valid() {
			return fmt.Errorf("message %d has unknown role %q: %w", i, msg.Role, ErrInvalidRequest)
		}
	}
	return s.model.StreamChat(ctx, messages, emit)
}

// DeriveTitle names a session after its first non-empty user message, or after
// now when there is none.
func DeriveTitle(messages []store.ChatMessage, now time.Time) string {
	for _, msg := range messages {
		if msg.Role != store.RoleUser {
			continue
		}
		content := strings.Join(strings.Fields(msg.Content), " ")
		if content == "" {
			continue
		}
		if utf8.RuneCountInString(content) <= maxTitleLength {
			return content
		}
		runes := []rune(content)
		return strings.TrimSpace(string(runes[:maxTitleLength])) + "..."
	}
	return "Chat " + now.Format("Jan 2, 2006 3:04 PM")
}
