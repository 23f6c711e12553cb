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

const placesPromptTemplate = `Genera una lista de "%s" cercanos a la ubicación proporcionada en %s.
Para cada lugar, formatea la salida como una lista markdown de la siguiente manera:
- **Nombre del Lugar**
  Dirección completa del lugar

No incluyas ninguna introducción o conclusión, solo la lista.`

const reviewFallbackTitle = "Ver reseña"

// FindNearbyPlaces asks for places of the given category around location, grounded on
// Google Maps. The lookup never fails: errors yield PlacesUnavailable with no sources.
func (g *Gateway) FindNearbyPlaces(ctx context.Context, location models.GeoPoint, category string) models.GroundedResponse {
	start := time.Now()

	resp, err := g.gen.GenerateContent(ctx, g.textModel,
		userContent(genai.NewPartFromText(fmt.Sprintf(placesPromptTemplate, category, g.city))),
		&genai.GenerateContentConfig{
			Tools: []*genai.Tool{{GoogleMaps: &genai.GoogleMaps{}}},
			ToolConfig: &genai.ToolConfig{
				RetrievalConfig: &genai.RetrievalConfig{
					LatLng: &genai.LatLng{
						Latitude:  genai.Ptr(location.Lat),
						Longitude: genai.Ptr(location.Lng),
					},
				},
			},
		})
	var text string
	if err == nil {
		text, err = responseText(resp)
	}
	metrics.ObserveGateway("nearby_places", start, err)
	if err != nil {
		log.WithError(err).WithField("category", category).Warn("Nearby places lookup failed")
		return models.GroundedResponse{Text: PlacesUnavailable, Sources: []models.GroundingSource{}}
	}

	return models.GroundedResponse{Text: text, Sources: groundingSources(resp)}
}

// The grounding block is read through its JSON form so that both the maps uri and the
// googleMapsUri spelling of review snippets are understood.
type groundingMetadata struct {
	GroundingChunks []struct {
		Maps *struct {
			URI                string `json:"uri"`
			Title              string `json:"title"`
			PlaceAnswerSources *struct {
				ReviewSnippets []struct {
					URI           string `json:"uri"`
					GoogleMapsURI string `json:"googleMapsUri"`
					Title         string `json:"title"`
				} `json:"reviewSnippets"`
			} `json:"placeAnswerSources"`
		} `json:"maps"`
	} `json:"groundingChunks"`
}

// groundingSources lists the place links of a grounded response: each chunk's own link
// first, then its review links, de-duplicated by URI keeping the first title seen.
func groundingSources(resp *genai.GenerateContentResponse) []models.GroundingSource {
	sources := []models.GroundingSource{}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return sources
	}

	raw, err := json.Marshal(resp.Candidates[0].GroundingMetadata)
	if err != nil {
		log.WithError(err).Warn("Failed to encode grounding metadata")
		return sources
	}
	var md groundingMetadata
	if err := json.Unmarshal(raw, &md); err != nil {
		log.WithError(err).Warn("Failed to decode grounding metadata")
		return sources
	}

	seen := make(map[string]bool)
	add := func(uri, title string) {
		if uri == "" || seen[uri] {
			return
		}
		seen[uri] = true
		sources = append(sources, models.GroundingSource{URI: uri, Title: title})
	}

	for _, chunk := range md.GroundingChunks {
		if chunk.Maps == nil {
			continue
		}
		add(chunk.Maps.URI, chunk.Maps.Title)
		if chunk.Maps.PlaceAnswerSources == nil {
			continue
		}
		for _, snippet := range chunk.Maps.PlaceAnswerSources.ReviewSnippets {
			uri := snippet.URI
			if uri == "" {
				uri = snippet.GoogleMapsURI
			}
			title := snippet.Title
			if title == "" {
				title = chunk.Maps.Title
			}
			if title == "" {
				title = reviewFallbackTitle
			}
			add(uri, title)
		}
	}
	return sources
}
