package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// memStorage is an in-memory kv backend.
type memStorage struct {
	data map[string]string
}

func newMemStorage() *memStorage {
	return &memStorage{data: make(map[string]string)}
}

func (m *memStorage) GetItem(key string) (string, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStorage) SetItem(key, value string) error {
	m.data[key] = value
	return nil
}

func (m *memStorage) RemoveItem(key string) error {
	delete(m.data, key)
	return nil
}

// stubCompleter returns a fixed reply or error.
type stubCompleter struct {
	reply string
	err   error
	seen  []Message
}

func (s *stubCompleter) Complete(ctx context.Context, messages []Message) (string, error) {
	s.seen = messages
	return s.reply, s.err
}

func TestFallbackResponseRouting(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"How much does a website cost?", "Our Pricing"},
		{"what is the price of an app", "Our Pricing"},
		{"What services do you offer?", "Muahib Solutions offers"},
		{"How do I contact you?", "Contact Us"},
		{"where is your address", "Contact Us"},
		{"I need a mobile app for android", "Mobile App Development"},
		{"build me a website", "Website Development"},
		{"can you make an ai chatbot", "AI & Automation"},
		{"hello there", "Welcome to Muahib Solutions"},
	}
	for _, tt := range tests {
		got := FallbackResponse(tt.message)
		if !strings.Contains(got, tt.want) {
			t.Errorf("FallbackResponse(%q) = %q, want it to contain %q", tt.message, got, tt.want)
		}
	}
}

func TestSendWithoutCompleter(t *testing.T) {
	r := NewResponder(NewHistory(newMemStorage()), nil)

	resp := r.Send(context.Background(), "how much for a website?")
	if !strings.Contains(resp.Message, "Our Pricing") {
		t.Errorf("message = %q, want the pricing fallback", resp.Message)
	}
	if resp.Err == "" {
		t.Error("expected a note that the AI service is not configured")
	}

	history := r.ConversationHistory()
	if len(history) != 2 {
		t.Fatalf("history has %d visible turns, want 2", len(history))
	}
	if history[0].Role != "user" || history[1].Role != "assistant" {
		t.Errorf("history roles = %s, %s", history[0].Role, history[1].Role)
	}
}

func TestSendWithCompleter(t *testing.T) {
	completer := &stubCompleter{reply: "We build great websites!"}
	r := NewResponder(NewHistory(newMemStorage()), completer)

	resp := r.Send(context.Background(), "tell me about websites")
	if resp.Message != "We build great websites!" {
		t.Errorf("message = %q", resp.Message)
	}
	if resp.Err != "" {
		t.Errorf("unexpected note: %q", resp.Err)
	}

	if len(completer.seen) == 0 || completer.seen[0].Role != "system" {
		t.Error("completer did not receive the system prompt first")
	}
}

func TestSendFallsBackOnCompleterError(t *testing.T) {
	completer := &stubCompleter{err: errors.New("api down")}
	r := NewResponder(NewHistory(newMemStorage()), completer)

	resp := r.Send(context.Background(), "what services do you offer?")
	if !strings.Contains(resp.Message, "Muahib Solutions offers") {
		t.Errorf("message = %q, want the canned services answer", resp.Message)
	}
	if !strings.Contains(resp.Err, "temporarily unavailable") {
		t.Errorf("note = %q", resp.Err)
	}
}

func TestClearConversation(t *testing.T) {
	r := NewResponder(NewHistory(newMemStorage()), nil)

	r.Send(context.Background(), "hello")
	r.ClearConversation()

	if got := r.ConversationHistory(); len(got) != 0 {
		t.Errorf("history after clear has %d turns", len(got))
	}
}

func TestHistoryTrimsToRecentTurns(t *testing.T) {
	h := NewHistory(newMemStorage())

	for i := 0; i < 30; i++ {
		h.Append(Message{Role: "user", Content: fmt.Sprintf("message %d", i)})
	}

	messages := h.Messages()
	if len(messages) != maxTurns+1 {
		t.Fatalf("history has %d messages, want %d", len(messages), maxTurns+1)
	}
	if messages[0].Role != "system" {
		t.Errorf("first message role = %q, want system", messages[0].Role)
	}
	if messages[len(messages)-1].Content != "message 29" {
		t.Errorf("last message = %q, want the newest", messages[len(messages)-1].Content)
	}
	if messages[1].Content != "message 10" {
		t.Errorf("oldest kept = %q, want message 10", messages[1].Content)
	}
}

func TestHistoryCorruptBlobReseeds(t *testing.T) {
	store := newMemStorage()
	store.data[historyKey] = "{broken"

	h := NewHistory(store)
	messages := h.Messages()
	if len(messages) != 1 || messages[0].Role != "system" {
		t.Errorf("corrupt history not reseeded: %+v", messages)
	}
}

func TestQuickResponsesNonEmpty(t *testing.T) {
	qr := QuickResponses()
	if len(qr) == 0 {
		t.Fatal("no quick responses")
	}
	for _, q := range qr {
		if strings.TrimSpace(q) == "" {
			t.Error("empty quick response")
		}
	}
}
