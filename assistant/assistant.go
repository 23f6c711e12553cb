package assistant

import (
	"context"
	"errors"
	"iter"
	"strings"
	"sync"

	"latidos/models"

	"github.com/apex/log"
)

const (
	Greeting    = "¡Hola! Soy tu asistente virtual. ¿Cómo puedo ayudarte hoy con tu mascota?"
	Unavailable = "Lo siento, el asistente virtual no está disponible en este momento."
	Apology     = "Lo siento, ocurrió un error. Por favor, intenta de nuevo."
)

var (
	ErrUnavailable  = errors.New("assistant is not available")
	ErrBusy         = errors.New("a message is already being answered")
	ErrEmptyMessage = errors.New("message is empty")
)

// Streamer produces the reply to the last user turn of a conversation.
type Streamer interface {
	StreamChat(ctx context.Context, history []models.ChatMessage) iter.Seq2[string, error]
}

// Assistant is one conversation. The visible log starts with a greeting, or with the
// unavailability notice when there is no streamer. Only completed turns are sent back
// to the model as history.
type Assistant struct {
	mu        sync.Mutex
	streamer  Streamer
	messages  []models.ChatMessage
	history   []models.ChatMessage
	available bool
	sending   bool
}

func New(streamer Streamer) *Assistant {
	if streamer == nil {
		log.Warn("Assistant started without a model, replying with the unavailability notice")
		return &Assistant{
			messages: []models.ChatMessage{{Role: models.RoleAssistant, Text: Unavailable}},
		}
	}
	return &Assistant{
		streamer:  streamer,
		messages:  []models.ChatMessage{{Role: models.RoleAssistant, Text: Greeting}},
		available: true,
	}
}

// Messages returns a copy of the visible conversation.
func (a *Assistant) Messages() []models.ChatMessage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.ChatMessage(nil), a.messages...)
}

func (a *Assistant) Available() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.available
}

// Sending reports whether a reply is being streamed.
func (a *Assistant) Sending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sending
}

// Send appends the user message and an empty assistant placeholder, then extends the
// placeholder with every chunk of the reply, calling onChunk after each one. A failed
// reply appends Apology; only guard violations are returned as errors.
func (a *Assistant) Send(ctx context.Context, text string, onChunk func(string)) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}

	a.mu.Lock()
	if !a.available {
		a.mu.Unlock()
		return ErrUnavailable
	}
	if a.sending {
		a.mu.Unlock()
		return ErrBusy
	}
	user := models.ChatMessage{Role: models.RoleUser, Text: text}
	a.messages = append(a.messages, user, models.ChatMessage{Role: models.RoleAssistant})
	placeholder := len(a.messages) - 1
	history := append(append([]models.ChatMessage(nil), a.history...), user)
	a.sending = true
	a.mu.Unlock()

	var reply strings.Builder
	var streamErr error
	for chunk, err := range a.streamer.StreamChat(ctx, history) {
		if err != nil {
			streamErr = err
			break
		}
		reply.WriteString(chunk)
		a.mu.Lock()
		a.messages[placeholder].Text += chunk
		a.mu.Unlock()
		if onChunk != nil {
			onChunk(chunk)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.sending = false
	if streamErr != nil {
		log.WithError(streamErr).Error("Assistant reply failed")
		a.messages = append(a.messages, models.ChatMessage{Role: models.RoleAssistant, Text: Apology})
		return nil
	}
	a.history = append(a.history, user, models.ChatMessage{Role: models.RoleAssistant, Text: reply.String()})
	return nil
}
