package gateway

import (
	"context"
	"errors"
	"iter"
	"net/http"
	"strings"
	"time"

	"latidos/utils"

	"google.golang.org/genai"
)

// Generator is the slice of the Gemini models API used by the gateway.
// *genai.Models satisfies it.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

// User-facing failures of the hard-fail operations. Returned errors wrap one of these.
var (
	ErrDescription = errors.New("No se pudo generar la descripción. Inténtalo de nuevo.")
	ErrImageEdit   = errors.New("No se pudo generar la imagen editada. Inténtalo de nuevo.")
	ErrSocialPost  = errors.New("No se pudo generar la publicación.")

	errNoImageData = errors.New("no image data in response")
)

// PlacesUnavailable is the text of a failed nearby places lookup.
const PlacesUnavailable = "Hubo un error al buscar lugares cercanos. Por favor, inténtalo de nuevo."

// UserMessage returns the message to show for an error returned by the gateway.
func UserMessage(err error) string {
	for _, sentinel := range []error{ErrDescription, ErrImageEdit, ErrSocialPost} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// Options configures a Gateway.
type Options struct {
	TextModel  string
	ImageModel string
	City       string
	HTTPClient *http.Client
}

// Gateway runs the AI assisted operations of the app against a Generator.
// It holds no per-call state and is safe for concurrent use.
type Gateway struct {
	gen        Generator
	textModel  string
	imageModel string
	city       string
	httpClient *http.Client
}

func New(gen Generator, opts Options) *Gateway {
	if opts.TextModel == "" {
		opts.TextModel = "gemini-2.5-flash"
	}
	if opts.ImageModel == "" {
		opts.ImageModel = "gemini-2.5-flash-image"
	}
	if opts.City == "" {
		opts.City = "Iquique, Chile"
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Gateway{
		gen:        gen,
		textModel:  opts.TextModel,
		imageModel: opts.ImageModel,
		city:       opts.City,
		httpClient: opts.HTTPClient,
	}
}

// Image is raw image bytes with their mime type.
type Image struct {
	Data     []byte
	MIMEType string
}

// DataURL renders the image as an inline image reference.
func (i Image) DataURL() string {
	return utils.EncodeDataURL(i.MIMEType, i.Data)
}

func (i Image) part() *genai.Part {
	return genai.NewPartFromBytes(i.Data, i.MIMEType)
}

func userContent(parts ...*genai.Part) []*genai.Content {
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}

// responseText returns the trimmed text of a response, or an error when there is none.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errors.New("empty response")
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("response has no text")
	}
	return text, nil
}

// stripCodeFence removes a ```json fence some models wrap structured output in.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
