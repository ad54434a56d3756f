package chat

import (
	"encoding/json"
	"log/slog"
)

const (
	// historyKey is where the serialized conversation lives in the kv store.
	historyKey = "chat_history"

	// maxTurns caps the persisted conversation at the system prompt plus the
	// most recent turns.
	maxTurns = 20
)

// Storage is the injected key-value backend (same contract the preview cache
// uses; storage.KV satisfies it).
type Storage interface {
	GetItem(key string) (value string, ok bool, err error)
	SetItem(key, value string) error
	RemoveItem(key string) error
}

// History is the persisted conversation. Loading a missing or malformed blob
// starts a fresh conversation seeded with the system prompt.
type History struct {
	storage Storage
}

// NewHistory creates a History over the given storage backend.
func NewHistory(s Storage) *History {
	return &History{storage: s}
}

// Messages returns the full conversation, system prompt first.
func (h *History) Messages() []Message {
	raw, ok, err := h.storage.GetItem(historyKey)
	if err != nil {
		slog.Warn("chat history: read failed, starting fresh", "error", err)
		return seed()
	}
	if !ok {
		return seed()
	}
	var messages []Message
	if err := json.Unmarshal([]byte(raw), &messages); err != nil || len(messages) == 0 {
		slog.Warn("chat history: malformed blob discarded", "error", err)
		return seed()
	}
	return messages
}

// Append adds a message and persists the trimmed conversation. Persistence is
// best-effort: a failed write is logged and dropped.
func (h *History) Append(msg Message) {
	messages := append(h.Messages(), msg)

	// Keep the system prompt plus the last maxTurns messages.
	if len(messages) > maxTurns+1 {
		trimmed := make([]Message, 0, maxTurns+1)
		trimmed = append(trimmed, messages[0])
		trimmed = append(trimmed, messages[len(messages)-maxTurns:]...)
		messages = trimmed
	}

	raw, err := json.Marshal(messages)
	if err != nil {
		slog.Warn("chat history: encode failed", "error", err)
		return
	}
	if err := h.storage.SetItem(historyKey, string(raw)); err != nil {
		slog.Warn("chat history: save failed", "error", err)
	}
}

// Clear deletes the persisted conversation.
func (h *History) Clear() {
	if err := h.storage.RemoveItem(historyKey); err != nil {
		slog.Warn("chat history: clear failed", "error", err)
	}
}

func seed() []Message {
	return []Message{{Role: "system", Content: systemPrompt}}
}
