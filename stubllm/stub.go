package stubllm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"iter"
	"regexp"
	"strings"

	"google.golang.org/genai"
)

// Client is a deterministic, no-network generator intended for CI and local end-to-end runs.
// It answers every gateway request shape with output that parses, so the whole flow can be
// exercised without a Gemini key.
type Client struct{}

func NewClient() *Client { return &Client{} }

func (c *Client) SourceName() string { return "Stub" }

var (
	lostBreedPattern = regexp.MustCompile(`\{"breed":"([^"]*)"`)
	candidatePattern = regexp.MustCompile(`\{"id":"([^"]+)","breed":"([^"]*)"`)
)

const stubMapsMetadata = `{"groundingChunks":[
	{"maps":{"uri":"https://maps.google.com/?cid=1001","title":"Clínica Veterinaria Cavancha"}},
	{"maps":{"uri":"https://maps.google.com/?cid=1002","title":"Centro Veterinario Tarapacá"}}
]}`

func (c *Client) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prompt, images := flatten(contents)

	switch {
	case config != nil && wantsImage(config):
		if len(images) == 0 {
			return textResponse("No recibí ninguna imagen."), nil
		}
		// Echo the source image back as the "edit".
		return &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content: &genai.Content{Role: "model", Parts: []*genai.Part{images[0]}},
			}},
		}, nil

	case config != nil && hasProperty(config, "matches"):
		return jsonResponse(map[string]any{"matches": sameBreedCandidates(prompt)})

	case config != nil && hasProperty(config, "breed"):
		sum := sha256.Sum256(imageBytes(images))
		return jsonResponse(map[string]string{
			"breed":       "Mestizo",
			"color":       "Café",
			"size":        "Mediano",
			"description": fmt.Sprintf("Descripción de prueba (%s)", hex.EncodeToString(sum[:4])),
		})

	case config != nil && len(config.Tools) > 0:
		var md genai.GroundingMetadata
		if err := json.Unmarshal([]byte(stubMapsMetadata), &md); err != nil {
			return nil, err
		}
		resp := textResponse("- **Clínica Veterinaria Cavancha**\n  Av. Arturo Prat 2120, Iquique\n- **Centro Veterinario Tarapacá**\n  Tarapacá 455, Iquique")
		resp.Candidates[0].GroundingMetadata = &md
		return resp, nil

	default:
		return textResponse("[stub] " + truncate(strings.TrimSpace(prompt), 160)), nil
	}
}

func (c *Client) GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		last := ""
		if len(contents) > 0 {
			last, _ = flatten(contents[len(contents)-1:])
		}
		reply := fmt.Sprintf("Recibí tu mensaje: %q. Este es un asistente de prueba.", truncate(last, 80))
		for _, word := range strings.SplitAfter(reply, " ") {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(textResponse(word), nil) {
				return
			}
		}
	}
}

func flatten(contents []*genai.Content) (string, []*genai.Part) {
	var sb strings.Builder
	var images []*genai.Part
	for _, content := range contents {
		if content == nil {
			continue
		}
		for _, part := range content.Parts {
			if part == nil {
				continue
			}
			if part.InlineData != nil {
				images = append(images, part)
				continue
			}
			sb.WriteString(part.Text)
		}
	}
	return sb.String(), images
}

func imageBytes(images []*genai.Part) []byte {
	if len(images) == 0 {
		return nil
	}
	return images[0].InlineData.Data
}

func wantsImage(config *genai.GenerateContentConfig) bool {
	for _, m := range config.ResponseModalities {
		if strings.EqualFold(m, string(genai.ModalityImage)) {
			return true
		}
	}
	return false
}

func hasProperty(config *genai.GenerateContentConfig, name string) bool {
	if config.ResponseSchema == nil {
		return false
	}
	_, ok := config.ResponseSchema.Properties[name]
	return ok
}

// sameBreedCandidates picks the candidates of the prompt that share the lost pet's breed.
func sameBreedCandidates(prompt string) []string {
	ids := []string{}
	lost := lostBreedPattern.FindStringSubmatch(prompt)
	if lost == nil {
		return ids
	}
	for _, m := range candidatePattern.FindAllStringSubmatch(prompt, -1) {
		if strings.EqualFold(strings.TrimSpace(m[2]), strings.TrimSpace(lost[1])) && len(ids) < 3 {
			ids = append(ids, m[1])
		}
	}
	return ids
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func jsonResponse(v any) (*genai.GenerateContentResponse, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return textResponse(string(b)), nil
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
