package cache

import "github.com/orderlens/order-analyzer/internal/store"

type RecordKind int

const (
	KindChecklist RecordKind = iota + 1
	KindChatSession
)

func (k RecordKind) String() string {
	switch k {
	case KindChecklist:
		return "checklist"
	case KindChatSession:
		return "chat_session"
	default:
		return "unknown"
	}
}

// Record is a value held by the cache. The set of variants is closed.
type Record interface {
	Kind() RecordKind
	isRecord()
}

type ChecklistRecord struct {
	Checklist store.Checklist
}

func (ChecklistRecord) Kind() RecordKind { return KindChecklist }
func (ChecklistRecord) isRecord()        {}

type SessionRecord struct {
	Session store.ChatSession
}

func (SessionRecord) Kind() RecordKind { return KindChatSession }
func (SessionRecord) isRecord()        {}
