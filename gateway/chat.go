package gateway

import (
	"context"
	"errors"
	"iter"
	"time"

	"latidos/metrics"
	"latidos/models"

	"google.golang.org/genai"
)

const assistantInstruction = "Eres un asistente virtual amigable y servicial para 'Latidos Cercanos'. Tu propósito es ayudar a los usuarios a navegar la aplicación, responder preguntas sobre mascotas perdidas/encontradas en Iquique, y ofrecer consejos generales sobre el cuidado de mascotas. Sé conciso y empático. Habla en español."

// StreamChat streams the assistant reply to the last user turn of history. Text chunks
// are yielded as they arrive; an error ends the sequence.
func (g *Gateway) StreamChat(ctx context.Context, history []models.ChatMessage) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if len(history) == 0 || history[len(history)-1].Role != models.RoleUser {
			yield("", errors.New("chat history must end with a user message"))
			return
		}

		start := time.Now()
		var streamErr error
		defer func() { metrics.ObserveGateway("chat", start, streamErr) }()

		contents := make([]*genai.Content, 0, len(history))
		for _, m := range history {
			var role genai.Role = genai.RoleUser
			if m.Role == models.RoleAssistant {
				role = genai.RoleModel
			}
			contents = append(contents, genai.NewContentFromText(m.Text, role))
		}

		config := &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(assistantInstruction, genai.RoleUser),
		}
		for resp, err := range g.gen.GenerateContentStream(ctx, g.textModel, contents, config) {
			if err != nil {
				streamErr = err
				yield("", err)
				return
			}
			if resp == nil {
				continue
			}
			if text := resp.Text(); text != "" {
				if !yield(text, nil) {
					return
				}
			}
		}
	}
}
