package core

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/orderlens/order-analyzer/internal/logger"
	"github.com/orderlens/order-analyzer/internal/store"
)

func TestParseExtractedItems(t *testing.T) {
	items, err := parseExtractedItems(`{"items":[{"name":" Milk ","quantity":2,"price":1.5},{"name":"Free sample","quantity":0,"price":0}]}`)
	if err != nil {
		t.Fatalf("parseExtractedItems: %v", err)
	}
	want := []store.ChecklistItem{{Name: "Milk", Quantity: 2, Price: 1.5}, {Name: "Free sample", Quantity: 0, Price: 0}}
	if len(items) != len(want) {
		t.Fatalf("len=%d, want %d", len(items), len(want))
	}
	for i := range want {
		if items[i] != want[i] {
			t.Fatalf("item %d = %+v, want %+v", i, items[i], want[i])
		}
	}
}

func TestParseExtractedItemsRejectsBadShapes(t *testing.T) {
	bad := []string{
		`not json`,
		`{}`,
		`{"items":[{"name":"x","quantity":1}]}`,
		`{"items":[{"name":"x","quantity":1.5,"price":1}]}`,
		`{"items":[{"name":"x","quantity":-1,"price":1}]}`,
		`{"items":[{"name":"x","quantity":1,"price":-0.01}]}`,
	}
	for _, raw := range bad {
		if _, err := parseExtractedItems(raw); !errors.Is(err, ErrSchemaValidation) {
			t.Errorf("parseExtractedItems(%s) err=%v, want ErrSchemaValidation", raw, err)
		}
	}
}

func TestToGenaiHistoryMapsRoles(t *testing.T) {
	history := toGenaiHistory([]store.ChatMessage{
		{Role: store.RoleUser, Content: "a"},
		{Role: store.RoleAssistant, Content: "b"},
	})
	if history[0].Role != "user" || history[1].Role != "model" {
		t.Fatalf("roles=%q,%q", history[0].Role, history[1].Role)
	}
	if txt, ok := history[1].Parts[0].(genai.Text); !ok || txt != "b" {
		t.Fatalf("part=%v", history[1].Parts[0])
	}
}

func TestChecklistText(t *testing.T) {
	items := []store.ChecklistItem{{Name: "Milk", Quantity: 2, Price: 1.5}, {Name: "Bread", Quantity: 1, Price: 3}}
	if got, want := ChecklistText(items), "1. Milk - Quantity: 2, Price: Rs.1.5\n2. Bread - Quantity: 1, Price: Rs.3"; got != want {
		t.Fatalf("ChecklistText=%q, want %q", got, want)
	}
	if got := ChecklistTotal(items); got != 6 {
		t.Fatalf("ChecklistTotal=%v, want 6", got)
	}
	if got, want := SummarizeChecklist(items[:1]), "Found 1 items:\n\n1. Milk - Quantity: 2, Price: $1.5"; got != want {
		t.Fatalf("SummarizeChecklist=%q, want %q", got, want)
	}
}

func TestFetchImageSizeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png; charset=binary")
		w.Write([]byte(strings.TrimPrefix(r.URL.Path, "/")))
	}))
	defer srv.Close()
	m := &GeminiModel{httpClient: srv.Client(), maxImageBytes: 8, log: logger.Nop()}
	ctx := context.Background()

	blob, err := m.fetchImage(ctx, srv.URL+"/12345678")
	if err != nil {
		t.Fatalf("fetchImage at limit: %v", err)
	}
	if blob.MIMEType != "image/png" || string(blob.Data) != "12345678" {
		t.Fatalf("blob=%q %q", blob.MIMEType, blob.Data)
	}

	if _, err := m.fetchImage(ctx, srv.URL+"/123456789"); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("oversize err=%v, want ErrInvalidRequest", err)
	}
}
