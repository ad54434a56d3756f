// Package chat answers visitor questions about the company. It routes every
// message through a canned-response table and, when a completion API key is
// configured, upgrades the answer via the remote model, keeping the canned
// answer as the fallback.
package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

const systemPrompt = `You are a helpful customer service representative for Muahib Solutions, an AI and software company in Nigeria.

Services: website development (from ₦20,000), mobile apps (iOS & Android), AI integration, chatbots, automation, graphics design.
Contact: 09025794407 or 09125242686, WhatsApp 09125242686.
Location: Musa Yar'Adua Expressway (Airport road), Lugbe District, Abuja, Nigeria.

Be friendly and concise, quote prices in Naira, and encourage a call or WhatsApp message for detailed quotes.`

// Message is one turn of a conversation.
type Message struct {
	Role      string    `json:"role"` // "system", "user", or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Response is the responder's answer. Err carries a non-fatal note when the
// remote model was unavailable and a canned answer was served instead.
type Response struct {
	Message string `json:"message"`
	Err     string `json:"error,omitempty"`
}

// Completer abstracts the remote completion API; nil disables it.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Responder answers chat messages and persists the running conversation.
type Responder struct {
	history   *History
	completer Completer
}

// NewResponder creates a Responder. completer may be nil, in which case every
// answer comes from the canned-response table.
func NewResponder(history *History, completer Completer) *Responder {
	return &Responder{history: history, completer: completer}
}

// Send answers a user message. The conversation (including the answer) is
// persisted best-effort; persistence failures never block the reply.
func (r *Responder) Send(ctx context.Context, userMessage string) Response {
	r.history.Append(Message{Role: "user", Content: userMessage, Timestamp: time.Now().UTC()})

	if r.completer != nil {
		answer, err := r.completer.Complete(ctx, r.history.Messages())
		if err == nil && strings.TrimSpace(answer) != "" {
			r.history.Append(Message{Role: "assistant", Content: answer, Timestamp: time.Now().UTC()})
			return Response{Message: answer}
		}
		if err != nil {
			slog.Warn("chat completion failed, serving canned response", "error", err)
		}
	}

	answer := FallbackResponse(userMessage)
	r.history.Append(Message{Role: "assistant", Content: answer, Timestamp: time.Now().UTC()})

	note := ""
	if r.completer == nil {
		note = "AI service not configured, showing fallback response"
	} else {
		note = "AI service temporarily unavailable, showing fallback response"
	}
	return Response{Message: answer, Err: note}
}

// ClearConversation resets the history to just the system prompt.
func (r *Responder) ClearConversation() {
	r.history.Clear()
}

// ConversationHistory returns the visible (non-system) conversation turns.
func (r *Responder) ConversationHistory() []Message {
	var visible []Message
	for _, m := range r.history.Messages() {
		if m.Role != "system" {
			visible = append(visible, m)
		}
	}
	return visible
}

// QuickResponses returns the suggested starter questions shown in the chat UI.
func QuickResponses() []string {
	return []string{
		"What services do you offer?",
		"How much does a website cost?",
		"Do you develop mobile apps?",
		"Tell me about AI integration",
		"What is your contact information?",
		"Where are you located?",
		"Show me pricing for e-commerce website",
		"Can you build chatbots?",
	}
}

// FallbackResponse picks a canned answer for a user message by keyword class.
// The default answer is a general welcome.
func FallbackResponse(userMessage string) string {
	message := strings.ToLower(userMessage)
	contains := func(keywords ...string) bool {
		for _, kw := range keywords {
			if strings.Contains(message, kw) {
				return true
			}
		}
		return false
	}

	switch {
	case contains("price", "cost", "how much"):
		return "Our Pricing:\n" +
			"• Websites: ₦20,000 - ₦200,000\n" +
			"• Mobile Apps: ₦100,000 - ₦300,000\n" +
			"• AI Integration: ₦50,000 - ₦200,000\n" +
			"Call 09025794407 or 09125242686 for detailed quotes!"
	case contains("service", "what do you do"):
		return "Muahib Solutions offers:\n" +
			"• Website development (from ₦20,000)\n" +
			"• Mobile apps (iOS & Android)\n" +
			"• AI integration & automation\n" +
			"• Graphics design\n" +
			"Contact: 09025794407 or 09125242686"
	case contains("contact", "phone", "call", "location", "address"):
		return "Contact Us:\n" +
			"📞 09025794407\n" +
			"📞 09125242686\n" +
			"💬 WhatsApp: 09125242686\n" +
			"📍 Musa Yar'Adua Expressway, Lugbe District, Abuja\n" +
			"Available: 9 AM - 6 PM (Mon-Sat)"
	case contains("mobile app", "android", "ios"):
		return "Mobile App Development:\n" +
			"• iOS & Android apps\n" +
			"• Cross-platform solutions\n" +
			"• Pricing: ₦100,000 - ₦300,000\n" +
			"Call 09025794407 to discuss your app idea!"
	case contains("website", "web"):
		return "Website Development:\n" +
			"• Business websites: ₦20,000 - ₦50,000\n" +
			"• E-commerce: ₦80,000 - ₦200,000\n" +
			"• Mobile-friendly & SEO optimized\n" +
			"Call 09025794407 for free consultation!"
	case contains("ai", "chatbot", "automation"):
		return "AI & Automation Services:\n" +
			"• Custom chatbots\n" +
			"• Process automation\n" +
			"• Pricing: ₦50,000 - ₦200,000\n" +
			"Contact 09025794407 to explore AI solutions!"
	default:
		return "Welcome to Muahib Solutions!\n" +
			"We create websites, mobile apps, AI solutions & graphics.\n" +
			"Starting from ₦20,000\n" +
			"📞 09025794407 | 09125242686\n" +
			"📍 Lugbe District, Abuja\n" +
			"How can we help you today?"
	}
}
