package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/orderlens/order-analyzer/internal/logger"
	"github.com/orderlens/order-analyzer/internal/store"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const (
	defaultModelName = "gemini-2.0-flash"

	// defaultMaxImageBytes caps a single downloaded order image.
	defaultMaxImageBytes = 20 << 20
)

// checklistSchema constrains extraction output to {items: [{name, quantity, price}]}.
var checklistSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"items": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"name":     {Type: genai.TypeString},
					"quantity": {Type: genai.TypeInteger},
					"price":    {Type: genai.TypeNumber},
				},
				Required: []string{"name", "quantity", "price"},
			},
		},
	},
	Required: []string{"items"},
}

// GeminiModel implements Model on top of the Gemini API.
type GeminiModel struct {
	client        *genai.Client
	modelName     string
	httpClient    *http.Client
	maxImageBytes int64
	log           *logger.Logger
}

func NewGeminiModel(ctx context.Context, apiKey, modelName string, log *logger.Logger) (*GeminiModel, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	if modelName == "" {
		modelName = defaultModelName
	}
	return &GeminiModel{
		client:        client,
		modelName:     modelName,
		httpClient:    http.DefaultClient,
		maxImageBytes: defaultMaxImageBytes,
		log:           log.With("component", "gemini"),
	}, nil
}

func (m *GeminiModel) Close() {
	if m.client != nil {
		if err := m.client.Close(); err != nil {
			m.log.Warn("error closing GenAI client", "error", err)
		} else {
			m.log.Info("GenAI client closed")
		}
	}
}

func (m *GeminiModel) StreamChat(ctx context.Context, history []store.ChatMessage, emit func(string) error) error {
	if len(history) == 0 {
		return fmt.Errorf("prompt history is empty for chat completion: %w", ErrInvalidRequest)
	}
	last := history[len(history)-1]
	if last.Role != store.RoleUser {
		return fmt.Errorf("last message in history is not from 'user': %w", ErrInvalidRequest)
	}

	model := m.client.GenerativeModel(m.modelName)
	chatSession := model.StartChat()
	chatSession.History = toGenaiHistory(history[:len(history)-1])

	iter := chatSession.SendMessageStream(ctx, genai.Text(last.Content))
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("gemini stream failed: %v: %w", err, ErrUpstream)
		}
		for _, text := range responseText(resp) {
			if err := emit(text); err != nil {
				return err
			}
		}
	}
}

func (m *GeminiModel) ExtractItems(ctx context.Context, prompt string, imageURLs []string) ([]store.ChecklistItem, error) {
	parts := []genai.Part{genai.Text(prompt)}
	for _, url := range imageURLs {
		blob, err := m.fetchImage(ctx, url)
		if err != nil {
			return nil, err
		}
		parts = append(parts, blob)
	}

	model := m.client.GenerativeModel(m.modelName)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = checklistSchema

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("gemini extraction request failed: %v: %w", err, ErrUpstream)
	}
	raw := strings.Join(responseText(resp), "")
	if raw == "" {
		return nil, fmt.Errorf("gemini returned no extraction output: %w", ErrSchemaValidation)
	}
	return parseExtractedItems(raw)
}

func (m *GeminiModel) fetchImage(ctx context.Context, url string) (genai.Blob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return genai.Blob{}, fmt.Errorf("invalid image url %q: %w", url, ErrInvalidRequest)
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return genai.Blob{}, fmt.Errorf("failed to fetch image: %v: %w", err, ErrUpstream)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return genai.Blob{}, fmt.Errorf("image host returned %d: %w", resp.StatusCode, ErrUpstream)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, m.maxImageBytes+1))
	if err != nil {
		return genai.Blob{}, fmt.Errorf("failed to read image: %v: %w", err, ErrUpstream)
	}
	if int64(len(data)) > m.maxImageBytes {
		return genai.Blob{}, fmt.Errorf("image %q exceeds %d bytes: %w", url, m.maxImageBytes, ErrInvalidRequest)
	}
	mimeType := resp.Header.Get("Content-Type")
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(data)
	}
	return genai.Blob{MIMEType: mimeType, Data: data}, nil
}

func toGenaiHistory(messages []store.ChatMessage) []*genai.Content {
	history := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		role := "user"
		if msg.Role == store.RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}
	return history
}

func responseText(resp *genai.GenerateContentResponse) []string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	var out []string
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok && txt != "" {
			out = append(out, string(txt))
		}
	}
	return out
}

type extractedItem struct {
	Name     *string  `json:"name"`
	Quantity *float64 `json:"quantity"`
	Price    *float64 `json:"price"`
}

// parseExtractedItems decodes and validates the constrained JSON output.
func parseExtractedItems(raw string) ([]store.ChecklistItem, error) {
	var payload struct {
		Items []extractedItem `json:"items"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("decode extraction output: %v: %w", err, ErrSchemaValidation)
	}
	if payload.Items == nil {
		return nil, fmt.Errorf("extraction output has no items array: %w", ErrSchemaValidation)
	}

	items := make([]store.ChecklistItem, 0, len(payload.Items))
	for i, it := range payload.Items {
		if it.Name == nil || it.Quantity == nil || it.Price == nil {
			return nil, fmt.Errorf("item %d is missing a field: %w", i, ErrSchemaValidation)
		}
		q, p := *it.Quantity, *it.Price
		if q < 0 || q != math.Trunc(q) || q > math.MaxInt32 {
			return nil, fmt.Errorf("item %d quantity %v is not a non-negative integer: %w", i, q, ErrSchemaValidation)
		}
		if p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, fmt.Errorf("item %d price %v is negative: %w", i, p, ErrSchemaValidation)
		}
		items = append(items, store.ChecklistItem{
			Name:     strings.TrimSpace(*it.Name),
			Quantity: int(q),
			Price:    p,
		})
	}
	return items, nil
}
