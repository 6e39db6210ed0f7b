package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/orderlens/order-analyzer/internal/store"
)

func TestRemote_StatusErrorCarriesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Internal server error"}`))
	}))
	defer srv.Close()

	_, err := NewRemote(srv.URL, srv.Client()).ListSessions(context.Background())
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err=%v, want *StatusError", err)
	}
	if se.StatusCode != http.StatusInternalServerError || se.Message != "Internal server error" {
		t.Fatalf("StatusError=%+v", se)
	}
}

func TestRemote_SaveSessionConflictAndVersion(t *testing.T) {
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusOK {
			w.Write([]byte(`{"success":true,"version":7}`))
			return
		}
		w.Write([]byte(`{"error":"Chat session was modified by another client"}`))
	}))
	defer srv.Close()
	remote := NewRemote(srv.URL, srv.Client())

	s := &store.ChatSession{ID: "s1", Version: 6}
	if err := remote.SaveSession(context.Background(), s); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if s.Version != 7 {
		t.Fatalf("Version=%d, want 7", s.Version)
	}

	status = http.StatusConflict
	if err := remote.SaveSession(context.Background(), s); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("err=%v, want ErrConflict", err)
	}
	if s.Version != 7 {
		t.Fatalf("Version=%d after conflict, want 7", s.Version)
	}
}
