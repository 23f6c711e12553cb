package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"latidos/metrics"
	"latidos/models"

	"github.com/apex/log"
	"google.golang.org/genai"
)

const describePrompt = "Analiza la imagen de esta mascota y descríbela. Identifica la raza (si no estás seguro, usa 'Mestizo' y sugiere posibles razas dominantes), el color principal, el tamaño aproximado ('Pequeño', 'Mediano', 'Grande'), y una breve descripción de cualquier característica distintiva (ej. manchas, collar, etc.)."

var petAttributesSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"breed":       {Type: genai.TypeString, Description: "La raza de la mascota."},
		"color":       {Type: genai.TypeString, Description: "El color principal de la mascota."},
		"size":        {Type: genai.TypeString, Description: "El tamaño estimado (Pequeño, Mediano, Grande)."},
		"description": {Type: genai.TypeString, Description: "Una breve descripción de señas particulares."},
	},
	Required: []string{"breed", "color", "size", "description"},
}

type petAttributesResponse struct {
	Breed       *string `json:"breed"`
	Color       *string `json:"color"`
	Size        *string `json:"size"`
	Description *string `json:"description"`
}

// ExtractAttributes asks the model for breed, color, size and a description of the pet in img.
// Any failure, including a response that does not carry all four fields, wraps ErrDescription.
func (g *Gateway) ExtractAttributes(ctx context.Context, img Image) (attrs models.PetAttributes, err error) {
	start := time.Now()
	defer func() { metrics.ObserveGateway("describe", start, err) }()

	resp, err := g.gen.GenerateContent(ctx, g.textModel,
		userContent(genai.NewPartFromText(describePrompt), img.part()),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   petAttributesSchema,
		})
	if err != nil {
		log.WithError(err).Error("Failed to generate pet description")
		return models.PetAttributes{}, fmt.Errorf("%w: %w", ErrDescription, err)
	}

	attrs, err = parsePetAttributes(resp)
	if err != nil {
		log.WithError(err).Warn("Unusable pet description response")
		return models.PetAttributes{}, fmt.Errorf("%w: %w", ErrDescription, err)
	}
	return attrs, nil
}

func parsePetAttributes(resp *genai.GenerateContentResponse) (models.PetAttributes, error) {
	text, err := responseText(resp)
	if err != nil {
		return models.PetAttributes{}, err
	}

	var out petAttributesResponse
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &out); err != nil {
		return models.PetAttributes{}, fmt.Errorf("failed to parse description JSON: %w", err)
	}

	fields := map[string]*string{"breed": out.Breed, "color": out.Color, "size": out.Size, "description": out.Description}
	for name, value := range fields {
		if value == nil || strings.TrimSpace(*value) == "" {
			return models.PetAttributes{}, fmt.Errorf("description JSON is missing %q", name)
		}
	}

	return models.PetAttributes{
		Breed:       strings.TrimSpace(*out.Breed),
		Color:       strings.TrimSpace(*out.Color),
		Size:        strings.TrimSpace(*out.Size),
		Description: strings.TrimSpace(*out.Description),
	}, nil
}
