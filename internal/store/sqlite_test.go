package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/orderlens/order-analyzer/internal/clock/clocktest"
)

var testEpoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*SQLiteStore, *clocktest.Clock) {
	t.Helper()
	clk := clocktest.New(testEpoch)
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(dbPath, clk)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, clk
}

func testSession(id string) *ChatSession {
	return &ChatSession{
		ID:    id,
		Title: "groceries",
		Messages: []ChatMessage{
			{ID: "m1", Role: RoleUser, Content: "hi", Timestamp: testEpoch},
			{ID: "m2", Role: RoleAssistant, Content: "hello", Timestamp: testEpoch, ChecklistID: "c1"},
		},
	}
}

func TestSQLiteStore_SessionRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.UpsertSession(ctx, testSession("s1")); err != nil {
		t.Fatalf("UpsertSession: %v", err)
	}
	loaded, err := store.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if loaded.ID != "s1" {
		t.Fatalf("ID=%q, want s1", loaded.ID)
	}
	if len(loaded.Messages) != 2 {
		t.Fatalf("len(Messages)=%d, want 2", len(loaded.Messages))
	}
	want := testSession("s1").Messages
	for i, m := range loaded.Messages {
		if m.ID != want[i].ID || m.Role != want[i].Role || m.Content != want[i].Content || m.ChecklistID != want[i].ChecklistID {
			t.Fatalf("message %d = %+v, want %+v", i, m, want[i])
		}
	}
	if loaded.Version != 1 {
		t.Fatalf("Version=%d, want 1", loaded.Version)
	}
}

func TestSQLiteStore_UpsertReplacesAndRefreshesUpdatedAt(t *testing.T) {
	store, clk := newTestStore(t)
	ctx := context.Background()

	if err := store.UpsertSession(ctx, testSession("s1")); err != nil {
		t.Fatalf("UpsertSession: %v", err)
	}
	clk.Advance(time.Minute)

	replacement := &ChatSession{ID: "s1", Title: "renamed", Messages: []ChatMessage{
		{ID: "m9", Role: RoleUser, Content: "only one", Timestamp: testEpoch},
	}}
	if err := store.UpsertSession(ctx, replacement); err != nil {
		t.Fatalf("UpsertSession replace: %v", err)
	}

	loaded, err := store.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if loaded.Title != "renamed" || len(loaded.Messages) != 1 || loaded.Messages[0].ID != "m9" {
		t.Fatalf("session not fully replaced: %+v", loaded)
	}
	if !loaded.CreatedAt.Equal(testEpoch) {
		t.Fatalf("CreatedAt=%v, want %v", loaded.CreatedAt, testEpoch)
	}
	if !loaded.UpdatedAt.Equal(testEpoch.Add(time.Minute)) {
		t.Fatalf("UpdatedAt=%v, want %v", loaded.UpdatedAt, testEpoch.Add(time.Minute))
	}
	if loaded.Version != 2 {
		t.Fatalf("Version=%d, want 2", loaded.Version)
	}
}

func TestSQLiteStore_StaleVersionConflicts(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	first := testSession("s1")
	if err := store.UpsertSession(ctx, first); err != nil {
		t.Fatalf("UpsertSession: %v", err)
	}
	tabA := *first
	tabB := *first
	if err := store.UpsertSession(ctx, &tabA); err != nil {
		t.Fatalf("UpsertSession tab A: %v", err)
	}
	err := store.UpsertSession(ctx, &tabB)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("tab B err=%v, want ErrConflict", err)
	}

	unversioned := testSession("s1")
	if err := store.UpsertSession(ctx, unversioned); err != nil {
		t.Fatalf("unversioned save should win: %v", err)
	}
	if unversioned.Version != 3 {
		t.Fatalf("Version=%d, want 3", unversioned.Version)
	}
}

func TestSQLiteStore_ListOrderedByUpdatedAt(t *testing.T) {
	store, clk := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := store.UpsertSession(ctx, testSession(id)); err != nil {
			t.Fatalf("UpsertSession %s: %v", id, err)
		}
		clk.Advance(time.Second)
	}
	if err := store.UpsertSession(ctx, testSession("a")); err != nil {
		t.Fatalf("UpsertSession a: %v", err)
	}

	sessions, err := store.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	var got []string
	for _, s := range sessions {
		got = append(got, s.ID)
	}
	if len(got) != 3 || got[0] != "a" || got[1] != "c" || got[2] != "b" {
		t.Fatalf("order=%v, want [a c b]", got)
	}
}

func TestSQLiteStore_GetMissingSession(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.GetSession(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_DeleteIsIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.DeleteSession(ctx, "never-existed"); err != nil {
		t.Fatalf("DeleteSession missing: %v", err)
	}
	if err := store.UpsertSession(ctx, testSession("s1")); err != nil {
		t.Fatalf("UpsertSession: %v", err)
	}
	if err := store.DeleteSession(ctx, "s1"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if err := store.DeleteSession(ctx, "s1"); err != nil {
		t.Fatalf("DeleteSession twice: %v", err)
	}
	if _, err := store.GetSession(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_DeleteAllLeavesEmptyList(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		if err := store.UpsertSession(ctx, testSession(id)); err != nil {
			t.Fatalf("UpsertSession: %v", err)
		}
	}
	if err := store.DeleteAllSessions(ctx); err != nil {
		t.Fatalf("DeleteAllSessions: %v", err)
	}
	sessions, err := store.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if sessions == nil || len(sessions) != 0 {
		t.Fatalf("sessions=%v, want empty non-nil slice", sessions)
	}
}

func TestSQLiteStore_ChecklistExpires(t *testing.T) {
	store, clk := newTestStore(t)
	ctx := context.Background()

	checklist := &Checklist{
		ID:        "c1",
		Items:     []ChecklistItem{{Name: "Milk", Quantity: 2, Price: 1.5}},
		CreatedAt: testEpoch,
		ExpiresAt: testEpoch.Add(48 * time.Hour),
	}
	if err := store.CreateChecklist(ctx, checklist); err != nil {
		t.Fatalf("CreateChecklist: %v", err)
	}

	got, err := store.GetChecklist(ctx, "c1")
	if err != nil {
		t.Fatalf("GetChecklist: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0] != checklist.Items[0] {
		t.Fatalf("Items=%+v, want %+v", got.Items, checklist.Items)
	}
	if !got.ExpiresAt.Equal(checklist.ExpiresAt) {
		t.Fatalf("ExpiresAt=%v, want %v", got.ExpiresAt, checklist.ExpiresAt)
	}

	clk.Advance(48 * time.Hour)
	if _, err := store.GetChecklist(ctx, "c1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("after expiry err=%v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_CreateChecklistPurgesExpired(t *testing.T) {
	store, clk := newTestStore(t)
	ctx := context.Background()

	old := &Checklist{ID: "old", CreatedAt: testEpoch, ExpiresAt: testEpoch.Add(time.Hour)}
	if err := store.CreateChecklist(ctx, old); err != nil {
		t.Fatalf("CreateChecklist old: %v", err)
	}
	clk.Advance(2 * time.Hour)
	fresh := &Checklist{ID: "fresh", CreatedAt: clk.Now(), ExpiresAt: clk.Now().Add(time.Hour)}
	if err := store.CreateChecklist(ctx, fresh); err != nil {
		t.Fatalf("CreateChecklist fresh: %v", err)
	}

	var n int
	if err := store.db.QueryRow("SELECT COUNT(*) FROM checklists").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("rows=%d, want 1 after purge", n)
	}
}
