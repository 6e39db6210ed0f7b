package core

import (
	"context"

	"github.com/orderlens/order-analyzer/internal/store"
)

// Model is the hosted language model boundary.
type Model interface {
	// StreamChat generates an assistant reply to history, calling emit for each
	// text fragment as it arrives. An error from emit aborts the stream.
	StreamChat(ctx context.Context, history []store.ChatMessage, emit func(fragment string) error) error
	// ExtractItems asks the model for order line items visible in the images.
	ExtractItems(ctx context.Context, prompt string, imageURLs []string) ([]store.ChecklistItem, error)
}
