package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"latidos/metrics"
	"latidos/models"

	"github.com/apex/log"
	"google.golang.org/genai"
)

// MaxMatches is the most suggestions a lookup returns.
const MaxMatches = 3

const matchesPromptTemplate = `
Eres un asistente experto en encontrar mascotas perdidas en %[1]s. Tu tarea es analizar una mascota PERDIDA recién reportada y compararla con una lista de mascotas ENCONTRADAS para encontrar las coincidencias más probables.

Considera los siguientes factores para la coincidencia, en orden de importancia:
1. Raza: Razas exactas o muy similares son indicadores fuertes.
2. Color: Coincidencia en colores primarios.
3. Descripción: Busca marcas identificativas únicas mencionadas (ej. 'mancha en el ojo izquierdo', 'cojea un poco', 'lleva un collar rojo').
4. Tamaño: Compara descripciones como 'pequeño', 'mediano', 'grande'.
5. Proximidad Geográfica: Es un factor, pero las mascotas pueden moverse. Una coincidencia fuerte en descripción física que esté más lejos es mejor que una coincidencia débil muy cercana.

Mascota PERDIDA reportada:
%[2]s

Lista de mascotas ENCONTRADAS disponibles:
%[3]s

Basado en tu análisis, devuelve un objeto JSON con las IDs de las 3 coincidencias más probables de la lista de mascotas ENCONTRADAS. Las IDs deben estar ordenadas de la más probable a la menos probable. Si no hay coincidencias plausibles, devuelve un array vacío.
`

var matchesSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"matches": {
			Type:        genai.TypeArray,
			Description: "An array of IDs of the most likely matching found pet posts.",
			Items: &genai.Schema{
				Type:        genai.TypeString,
				Description: "The ID of a matching found pet post.",
			},
		},
	},
	Required: []string{"matches"},
}

// lostProjection leaves out the id and the photo of the lost report.
type lostProjection struct {
	Breed       string          `json:"breed"`
	Color       string          `json:"color"`
	Size        string          `json:"size"`
	Description string          `json:"description"`
	Location    models.GeoPoint `json:"location"`
}

type candidateProjection struct {
	ID          string          `json:"id"`
	Breed       string          `json:"breed"`
	Color       string          `json:"color"`
	Size        string          `json:"size"`
	Description string          `json:"description"`
	Location    models.GeoPoint `json:"location"`
}

type matchesResponse struct {
	Matches []string `json:"matches"`
}

// SuggestMatches returns up to three candidate ids ranked by the model as the most likely
// sightings of the lost pet, best first. Only ids from candidates are returned. The lookup
// never fails: any error yields an empty list, and no call is made without candidates.
func (g *Gateway) SuggestMatches(ctx context.Context, lost models.Report, candidates []models.Report) []string {
	if len(candidates) == 0 {
		return []string{}
	}

	start := time.Now()
	prompt, err := matchesPrompt(g.city, lost, candidates)
	if err != nil {
		log.WithError(err).Error("Failed to build match prompt")
		return []string{}
	}

	resp, err := g.gen.GenerateContent(ctx, g.textModel,
		userContent(genai.NewPartFromText(prompt)),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   matchesSchema,
		})
	if err == nil {
		var ids []string
		if ids, err = parseMatches(resp, candidates); err == nil {
			metrics.ObserveGateway("suggest_matches", start, nil)
			return ids
		}
	}

	metrics.ObserveGateway("suggest_matches", start, err)
	log.WithError(err).WithField("report_id", lost.ID).Warn("Match suggestion failed, returning no matches")
	return []string{}
}

func matchesPrompt(city string, lost models.Report, candidates []models.Report) (string, error) {
	lostJSON, err := json.Marshal(lostProjection{
		Breed:       lost.Breed,
		Color:       lost.Color,
		Size:        lost.Size,
		Description: lost.Description,
		Location:    lost.Location,
	})
	if err != nil {
		return "", err
	}

	projected := make([]candidateProjection, 0, len(candidates))
	for _, c := range candidates {
		projected = append(projected, candidateProjection{
			ID:          c.ID,
			Breed:       c.Breed,
			Color:       c.Color,
			Size:        c.Size,
			Description: c.Description,
			Location:    c.Location,
		})
	}
	candidatesJSON, err := json.Marshal(projected)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(matchesPromptTemplate, city, lostJSON, candidatesJSON), nil
}

// parseMatches keeps ids that name a candidate, drops repeats and caps the list.
func parseMatches(resp *genai.GenerateContentResponse, candidates []models.Report) ([]string, error) {
	text, err := responseText(resp)
	if err != nil {
		return nil, err
	}

	var out matchesResponse
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &out); err != nil {
		return nil, fmt.Errorf("failed to parse matches JSON: %w", err)
	}

	known := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		known[c.ID] = true
	}

	ids := []string{}
	seen := make(map[string]bool)
	for _, id := range out.Matches {
		if !known[id] || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
		if len(ids) == MaxMatches {
			break
		}
	}
	return ids, nil
}
