package store

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known message roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

type ChatMessage struct {
	ID          string    `json:"id"`
	Role        Role      `json:"role"`
	Content     string    `json:"content"`
	Images      []string  `json:"images,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	ChecklistID string    `json:"checklistId,omitempty"`
}

type ChatSession struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
	// Version is bumped on every save. A save carrying a non-zero Version must
	// match the stored one; zero means last write wins.
	Version int64 `json:"version,omitempty"`
}

type ChecklistItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

type Checklist struct {
	ID        string          `json:"id"`
	Items     []ChecklistItem `json:"items"`
	CreatedAt time.Time       `json:"createdAt"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// Expired reports whether the checklist is no longer retrievable at now.
func (c *Checklist) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
