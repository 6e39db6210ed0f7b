// Package coretest provides an in-memory Model for tests.
package coretest

import (
	"context"
	"sync"

	"github.com/orderlens/order-analyzer/internal/store"
)

type Model struct {
	mu sync.Mutex

	// Fragments are emitted in order by StreamChat.
	Fragments []string
	StreamErr error
	// Items is returned by ExtractItems unless ExtractErr is set.
	Items      []store.ChecklistItem
	ExtractErr error

	Histories [][]store.ChatMessage
	Prompts   []string
	ImageURLs [][]string
}

func (m *Model) StreamChat(ctx context.Context, history []store.ChatMessage, emit func(string) error) error {
	m.mu.Lock()
	m.Histories = append(m.Histories, history)
	fragments := append([]string(nil), m.Fragments...)
	streamErr := m.StreamErr
	m.mu.Unlock()

	for _, f := range fragments {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := emit(f); err != nil {
			return err
		}
	}
	return streamErr
}

func (m *Model) ExtractItems(ctx context.Context, prompt string, imageURLs []string) ([]store.ChecklistItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prompts = append(m.Prompts, prompt)
	m.ImageURLs = append(m.ImageURLs, imageURLs)
	if m.ExtractErr != nil {
		return nil, m.ExtractErr
	}
	return append([]store.ChecklistItem(nil), m.Items...), nil
}
