package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/orderlens/order-analyzer/internal/store"
)

// StatusError is returned by Remote for any non-2xx response.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api returned %d", e.StatusCode)
}

// Unwrap lets callers match a 409 with errors.Is(err, store.ErrConflict).
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusConflict {
		return store.ErrConflict
	}
	return nil
}

// Remote talks to the chat session HTTP API.
type Remote struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemote targets baseURL, e.g. "http://localhost:8080/api".
func NewRemote(baseURL string, httpClient *http.Client) *Remote {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Remote{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

func (r *Remote) ListSessions(ctx context.Context) ([]store.ChatSession, error) {
	var sessions []store.ChatSession
	if err := r.do(ctx, http.MethodGet, "/chat-sessions", nil, &sessions); err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []store.ChatSession{}
	}
	return sessions, nil
}

// GetSession returns store.ErrNotFound for a 404.
func (r *Remote) GetSession(ctx context.Context, id string) (*store.ChatSession, error) {
	var session store.ChatSession
	err := r.do(ctx, http.MethodGet, "/chat-sessions/"+url.PathEscape(id), nil, &session)
	var se *StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// SaveSession writes the version assigned by the server back into session, so
// the same value can be saved again without a conflict.
func (r *Remote) SaveSession(ctx context.Context, session *store.ChatSession) error {
	var resp struct {
		Version int64 `json:"version"`
	}
	if err := r.do(ctx, http.MethodPost, "/chat-sessions", session, &resp); err != nil {
		return err
	}
	session.Version = resp.Version
	return nil
}

func (r *Remote) DeleteSession(ctx context.Context, id string) error {
	return r.do(ctx, http.MethodDelete, "/chat-sessions/"+url.PathEscape(id), nil, nil)
}

func (r *Remote) ClearSessions(ctx context.Context) error {
	return r.do(ctx, http.MethodDelete, "/chat-sessions", nil, nil)
}

// Chat posts messages to /chat and calls onText for every streamed fragment.
func (r *Remote) Chat(ctx context.Context, messages []store.ChatMessage, onText func(string)) error {
	payload, err := json.Marshal(map[string]any{"messages": messages})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/chat", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return err
	}
	return ReadStream(resp.Body, onText)
}

func (r *Remote) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return nil
	}
	var e struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&e)
	return &StatusError{StatusCode: resp.StatusCode, Message: e.Error}
}
