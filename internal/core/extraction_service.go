package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/orderlens/order-analyzer/internal/cache"
	"github.com/orderlens/order-analyzer/internal/clock"
	"github.com/orderlens/order-analyzer/internal/logger"
	"github.com/orderlens/order-analyzer/internal/store"
)

// DefaultChecklistTTL is how long a freshly extracted checklist stays shareable.
const DefaultChecklistTTL = 48 * time.Hour

const ChecklistPrompt = `Analyze the provided image which displays a list of ordered items. Your task is to extract each item's details: its full name, the quantity ordered, and its price.

Format your output as a single JSON array. Each element in the array should be a JSON object representing an item. The object structure must be as follows:

{
  "name": "string",
  "quantity": number,
  "price": number
}`

type ExtractionService struct {
	model      Model
	cache      *cache.Cache
	checklists store.ChecklistStore // optional
	clock      clock.Clock
	ttl        time.Duration
	log        *logger.Logger
}

// NewExtractionService wires extraction to the cache and, when checklists is
// non-nil, to a durable checklist store.
func NewExtractionService(model Model, c *cache.Cache, checklists store.ChecklistStore, clk clock.Clock, ttl time.Duration, log *logger.Logger) *ExtractionService {
	if clk == nil {
		clk = clock.System()
	}
	if ttl <= 0 {
		ttl = DefaultChecklistTTL
	}
	return &ExtractionService{
		model:      model,
		cache:      c,
		checklists: checklists,
		clock:      clk,
		ttl:        ttl,
		log:        log.With("component", "extraction_service"),
	}
}

// Extract reads order items from the images and makes the result retrievable
// by the returned checklist's ID until it expires.
func (s *ExtractionService) Extract(ctx context.Context, imageURLs []string) (*store.Checklist, error) {
	if len(imageURLs) == 0 {
		return nil, fmt.Errorf("at least one image is required: %w", ErrInvalidRequest)
	}

	items, err := s.model.ExtractItems(ctx, ChecklistPrompt, imageURLs)
	if err != nil {
		return nil, fmt.Errorf("failed to extract checklist: %w", err)
	}

	now := s.clock.Now()
	checklist := store.Checklist{
		ID:        uuid.NewString(),
		Items:     items,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	cached := checklist
	cached.Items = slices.Clone(items)
	s.cache.Set(checklist.ID, cache.ChecklistRecord{Checklist: cached}, s.ttl)

	if s.checklists != nil {
		durable := checklist
		if err := s.checklists.CreateChecklist(ctx, &durable); err != nil {
			// Still served from the cache until the process restarts.
			s.log.Error("failed to persist checklist", "checklist_id", checklist.ID, "error", err)
		}
	}

	s.log.Info("extracted checklist", "checklist_id", checklist.ID, "items", len(items), "images", len(imageURLs))
	return &checklist, nil
}

// GetChecklist looks in the cache first and then in the durable store.
func (s *ExtractionService) GetChecklist(ctx context.Context, id string) (*store.Checklist, error) {
	if rec, ok := s.cache.GetChecklist(id); ok {
		checklist := rec.Checklist
		checklist.Items = slices.Clone(checklist.Items)
		return &checklist, nil
	}
	if s.checklists == nil {
		return nil, store.ErrNotFound
	}

	checklist, err := s.checklists.GetChecklist(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load checklist: %w", err)
	}
	if checklist.Expired(s.clock.Now()) {
		return nil, store.ErrNotFound
	}
	return checklist, nil
}
