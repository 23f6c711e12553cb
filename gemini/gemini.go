package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"latidos/config"

	"github.com/apex/log"
	"google.golang.org/genai"
)

var ErrMissingAPIKey = errors.New("GEMINI_API_KEY is not set")

// NewGenerator returns the models API of a Gemini Developer API client. The result
// satisfies gateway.Generator.
func NewGenerator(ctx context.Context, cfg *config.Config) (*genai.Models, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, ErrMissingAPIKey
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	log.WithFields(log.Fields{
		"model":       cfg.GeminiModel,
		"image_model": cfg.GeminiImageModel,
	}).Info("Gemini client ready")
	return client.Models, nil
}

// Disabled stands in for the models API when no key is configured. Every call fails
// with ErrMissingAPIKey, so each operation takes its own failure path.
type Disabled struct{}

func (Disabled) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return nil, ErrMissingAPIKey
}

func (Disabled) GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		yield(nil, ErrMissingAPIKey)
	}
}
