package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"latidos/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeGenerator struct {
	mu       sync.Mutex
	calls    int
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig

	resp      *genai.GenerateContentResponse
	err       error
	chunks    []string
	streamErr error
}

func (f *fakeGenerator) record(model string, contents []*genai.Content, config *genai.GenerateContentConfig) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.model = model
	f.contents = contents
	f.config = config
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.record(model, contents, config)
	return f.resp, f.err
}

func (f *fakeGenerator) GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	f.record(model, contents, config)
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, c := range f.chunks {
			if !yield(textResponse(c), nil) {
				return
			}
		}
		if f.streamErr != nil {
			yield(nil, f.streamErr)
		}
	}
}

func (f *fakeGenerator) promptText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sb strings.Builder
	for _, c := range f.contents {
		for _, p := range c.Parts {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func newTestGateway(gen Generator) *Gateway {
	return New(gen, Options{City: "Iquique, Chile"})
}

var pngBytes = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestExtractAttributes(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse(`{"breed":"Pug","color":"Beige con máscara negra","size":"Pequeño","description":"Collar rojo"}`)}
	g := newTestGateway(gen)

	attrs, err := g.ExtractAttributes(context.Background(), Image{Data: pngBytes, MIMEType: "image/png"})

	require.NoError(t, err)
	assert.Equal(t, models.PetAttributes{Breed: "Pug", Color: "Beige con máscara negra", Size: "Pequeño", Description: "Collar rojo"}, attrs)
	assert.Equal(t, "gemini-2.5-flash", gen.model)
	assert.Equal(t, "application/json", gen.config.ResponseMIMEType)
	assert.ElementsMatch(t, []string{"breed", "color", "size", "description"}, gen.config.ResponseSchema.Required)

	require.Len(t, gen.contents, 1)
	parts := gen.contents[0].Parts
	require.Len(t, parts, 2)
	assert.Contains(t, parts[0].Text, "Mestizo")
	require.NotNil(t, parts[1].InlineData)
	assert.Equal(t, "image/png", parts[1].InlineData.MIMEType)
}

func TestExtractAttributesFailures(t *testing.T) {
	testCases := []struct {
		name string
		gen  *fakeGenerator
	}{
		{"model error", &fakeGenerator{err: errors.New("quota exceeded")}},
		{"not JSON", &fakeGenerator{resp: textResponse("Es un perro muy bonito")}},
		{"missing field", &fakeGenerator{resp: textResponse(`{"breed":"Pug","color":"Crema","size":"Pequeño"}`)}},
		{"blank field", &fakeGenerator{resp: textResponse(`{"breed":" ","color":"Crema","size":"Pequeño","description":"x"}`)}},
		{"empty response", &fakeGenerator{resp: &genai.GenerateContentResponse{}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newTestGateway(tc.gen).ExtractAttributes(context.Background(), Image{Data: pngBytes, MIMEType: "image/png"})

			assert.ErrorIs(t, err, ErrDescription)
			assert.Equal(t, "No se pudo generar la descripción. Inténtalo de nuevo.", UserMessage(err))
		})
	}
}

func TestExtractAttributesAcceptsFencedJSON(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse("```json\n{\"breed\":\"Mestizo\",\"color\":\"Negro\",\"size\":\"Mediano\",\"description\":\"Oreja caída\"}\n```")}

	attrs, err := newTestGateway(gen).ExtractAttributes(context.Background(), Image{Data: pngBytes, MIMEType: "image/png"})

	require.NoError(t, err)
	assert.Equal(t, "Mestizo", attrs.Breed)
}

func imageResponse(data []byte, mimeType string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "Aquí tienes la imagen editada."},
				{InlineData: &genai.Blob{Data: data, MIMEType: mimeType}},
			}},
		}},
	}
}

func TestEditImageFromDataURL(t *testing.T) {
	edited := []byte("edited-image")
	gen := &fakeGenerator{resp: imageResponse(edited, "image/png")}
	g := newTestGateway(gen)
	src := Image{Data: pngBytes, MIMEType: "image/png"}

	img, err := g.EditImage(context.Background(), src.DataURL(), "Añade un sombrero de fiesta")

	require.NoError(t, err)
	assert.Equal(t, edited, img.Data)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, "gemini-2.5-flash-image", gen.model)
	assert.Equal(t, []string{"IMAGE"}, gen.config.ResponseModalities)

	parts := gen.contents[0].Parts
	require.Len(t, parts, 2)
	assert.Equal(t, pngBytes, parts[0].InlineData.Data)
	assert.Equal(t, "Añade un sombrero de fiesta", parts[1].Text)
}

func TestEditImageWithoutImagePart(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse("No puedo editar esta imagen.")}

	_, err := newTestGateway(gen).EditImage(context.Background(), Image{Data: pngBytes, MIMEType: "image/png"}.DataURL(), "Quita el fondo")

	assert.ErrorIs(t, err, ErrImageEdit)
	assert.ErrorIs(t, err, errNoImageData)
	assert.Contains(t, err.Error(), "no image data in response")
}

func TestEditImageFetchesRemoteSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngBytes)
	}))
	defer server.Close()

	t.Run("fetched bytes are sent to the model", func(t *testing.T) {
		gen := &fakeGenerator{resp: imageResponse([]byte("out"), "image/jpeg")}

		img, err := newTestGateway(gen).EditImage(context.Background(), server.URL+"/pug.png", "Hazla en blanco y negro")

		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", img.MIMEType)
		assert.Equal(t, pngBytes, gen.contents[0].Parts[0].InlineData.Data)
		assert.Equal(t, "image/png", gen.contents[0].Parts[0].InlineData.MIMEType)
	})

	t.Run("fetch failure never reaches the model", func(t *testing.T) {
		gen := &fakeGenerator{resp: imageResponse([]byte("out"), "image/png")}

		_, err := newTestGateway(gen).EditImage(context.Background(), server.URL+"/missing.png", "Hazla en blanco y negro")

		assert.ErrorIs(t, err, ErrImageEdit)
		assert.Equal(t, 0, gen.calls)
	})
}

func TestLoadImageSniffsMissingContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(pngBytes)
	}))
	defer server.Close()

	img, err := newTestGateway(&fakeGenerator{}).LoadImage(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIMEType)
}

func foundReports() []models.Report {
	return []models.Report{
		{ID: "post_2", Kind: models.KindFound, Breed: "Mestizo", Color: "Naranjo atigrado", Size: "Mediano", ImageRef: "https://picsum.photos/id/40/400/300"},
		{ID: "post_4", Kind: models.KindFound, Breed: "Pug", Color: "Crema", Size: "Pequeño", ImageRef: "https://picsum.photos/id/1062/400/300"},
	}
}

func TestSuggestMatchesWithoutCandidatesMakesNoCall(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse(`{"matches":["post_4"]}`)}

	ids := newTestGateway(gen).SuggestMatches(context.Background(), models.Report{ID: "post_new", Kind: models.KindLost}, nil)

	assert.NotNil(t, ids)
	assert.Empty(t, ids)
	assert.Equal(t, 0, gen.calls)
}

func TestSuggestMatches(t *testing.T) {
	testCases := []struct {
		name     string
		gen      *fakeGenerator
		expected []string
	}{
		{"ranked ids", &fakeGenerator{resp: textResponse(`{"matches":["post_4","post_2"]}`)}, []string{"post_4", "post_2"}},
		{"unknown and repeated ids dropped", &fakeGenerator{resp: textResponse(`{"matches":["post_9","post_4","post_4"]}`)}, []string{"post_4"}},
		{"no plausible matches", &fakeGenerator{resp: textResponse(`{"matches":[]}`)}, []string{}},
		{"model error", &fakeGenerator{err: errors.New("unavailable")}, []string{}},
		{"malformed JSON", &fakeGenerator{resp: textResponse(`{"matches":`)}, []string{}},
	}

	lost := models.Report{
		ID: "post_secret", Kind: models.KindLost, Breed: "Pug", Color: "Beige con máscara negra", Size: "Pequeño",
		ImageRef: "data:image/png;base64,c2VjcmV0", Location: models.GeoPoint{Lat: -20.2139, Lng: -70.1525},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ids := newTestGateway(tc.gen).SuggestMatches(context.Background(), lost, foundReports())

			assert.Equal(t, tc.expected, ids)
			assert.Equal(t, 1, tc.gen.calls)
		})
	}
}

func TestSuggestMatchesCapsAtThree(t *testing.T) {
	candidates := []models.Report{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}
	gen := &fakeGenerator{resp: textResponse(`{"matches":["d","c","b","a"]}`)}

	ids := newTestGateway(gen).SuggestMatches(context.Background(), models.Report{Kind: models.KindLost}, candidates)

	assert.Equal(t, []string{"d", "c", "b"}, ids)
}

func TestMatchesPromptProjection(t *testing.T) {
	lost := models.Report{ID: "post_secret", Breed: "Pug", ImageRef: "data:image/png;base64,c2VjcmV0"}

	prompt, err := matchesPrompt("Iquique, Chile", lost, foundReports())

	require.NoError(t, err)
	assert.Contains(t, prompt, "Iquique, Chile")
	assert.Contains(t, prompt, `"id":"post_2"`)
	assert.Contains(t, prompt, `"id":"post_4"`)
	assert.NotContains(t, prompt, "post_secret")
	assert.NotContains(t, prompt, "c2VjcmV0")
	assert.NotContains(t, prompt, "picsum")
}

func groundedResponse(t *testing.T, text, metadataJSON string) *genai.GenerateContentResponse {
	t.Helper()
	var md genai.GroundingMetadata
	require.NoError(t, json.Unmarshal([]byte(metadataJSON), &md))
	resp := textResponse(text)
	resp.Candidates[0].GroundingMetadata = &md
	return resp
}

func TestFindNearbyPlaces(t *testing.T) {
	metadata := `{"groundingChunks":[
		{"maps":{"uri":"https://maps.google.com/?cid=1","title":"Clínica Veterinaria Cavancha",
			"placeAnswerSources":{"reviewSnippets":[
				{"googleMapsUri":"https://maps.google.com/?cid=1&review=a","title":""},
				{"googleMapsUri":"https://maps.google.com/?cid=1","title":"Duplicada"}
			]}}},
		{"web":{"uri":"https://example.com","title":"Ignorada"}},
		{"maps":{"uri":"https://maps.google.com/?cid=2","title":"Veterinaria Tarapacá"}},
		{"maps":{"uri":"https://maps.google.com/?cid=1","title":"Repetida"}}
	]}`
	gen := &fakeGenerator{resp: groundedResponse(t, "- **Clínica Veterinaria Cavancha**\n  Av. Arturo Prat 123", metadata)}
	location := models.GeoPoint{Lat: -20.2208, Lng: -70.1431}

	result := newTestGateway(gen).FindNearbyPlaces(context.Background(), location, "clínicas veterinarias")

	assert.Contains(t, result.Text, "Cavancha")
	assert.Equal(t, []models.GroundingSource{
		{URI: "https://maps.google.com/?cid=1", Title: "Clínica Veterinaria Cavancha"},
		{URI: "https://maps.google.com/?cid=1&review=a", Title: "Clínica Veterinaria Cavancha"},
		{URI: "https://maps.google.com/?cid=2", Title: "Veterinaria Tarapacá"},
	}, result.Sources)

	require.Len(t, gen.config.Tools, 1)
	assert.NotNil(t, gen.config.Tools[0].GoogleMaps)
	latLng := gen.config.ToolConfig.RetrievalConfig.LatLng
	assert.Equal(t, -20.2208, *latLng.Latitude)
	assert.Equal(t, -70.1431, *latLng.Longitude)
	assert.Contains(t, gen.promptText(), `"clínicas veterinarias"`)
}

func TestFindNearbyPlacesSoftFails(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("maps grounding disabled")}

	result := newTestGateway(gen).FindNearbyPlaces(context.Background(), models.GeoPoint{}, "refugios de animales")

	assert.Equal(t, PlacesUnavailable, result.Text)
	assert.NotNil(t, result.Sources)
	assert.Empty(t, result.Sources)
}

func TestGenerateSocialPost(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse("¡SE BUSCA! 🆘 PUG PERDIDO EN IQUIQUE")}
	report := models.Report{ID: "post_1", Kind: models.KindLost, Breed: "Pug", Color: "Beige con máscara negra", Size: "Pequeño", Description: "Collar rojo"}

	text, err := newTestGateway(gen).GenerateSocialPost(context.Background(), report)

	require.NoError(t, err)
	assert.Equal(t, "¡SE BUSCA! 🆘 PUG PERDIDO EN IQUIQUE", text)
	prompt := gen.promptText()
	assert.Contains(t, prompt, "- Tipo: Perdido")
	assert.Contains(t, prompt, "- Raza: Pug")
	assert.Contains(t, prompt, "- Descripción: Collar rojo")
}

func TestGenerateSocialPostFailure(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("deadline exceeded")}

	_, err := newTestGateway(gen).GenerateSocialPost(context.Background(), models.Report{Kind: models.KindFound})

	assert.ErrorIs(t, err, ErrSocialPost)
	assert.Equal(t, "No se pudo generar la publicación.", UserMessage(err))
}

func TestStreamChat(t *testing.T) {
	gen := &fakeGenerator{chunks: []string{"¡Claro! ", "Revisa el mapa."}}
	history := []models.ChatMessage{
		{Role: models.RoleAssistant, Text: "¡Hola!"},
		{Role: models.RoleUser, Text: "¿Cómo reporto a mi perro?"},
	}

	var got []string
	for chunk, err := range newTestGateway(gen).StreamChat(context.Background(), history) {
		require.NoError(t, err)
		got = append(got, chunk)
	}

	assert.Equal(t, []string{"¡Claro! ", "Revisa el mapa."}, got)
	require.Len(t, gen.contents, 2)
	assert.Equal(t, "model", gen.contents[0].Role)
	assert.Equal(t, "user", gen.contents[1].Role)
	assert.Contains(t, gen.config.SystemInstruction.Parts[0].Text, "Latidos Cercanos")
}

func TestStreamChatError(t *testing.T) {
	gen := &fakeGenerator{chunks: []string{"Hola"}, streamErr: errors.New("stream reset")}

	var chunks []string
	var streamErr error
	for chunk, err := range newTestGateway(gen).StreamChat(context.Background(), []models.ChatMessage{{Role: models.RoleUser, Text: "hola"}}) {
		if err != nil {
			streamErr = err
			break
		}
		chunks = append(chunks, chunk)
	}

	assert.Equal(t, []string{"Hola"}, chunks)
	assert.EqualError(t, streamErr, "stream reset")
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, "boom", UserMessage(errors.New("boom")))
	assert.Equal(t, ErrImageEdit.Error(), UserMessage(errors.Join(errors.New("x"), ErrImageEdit)))
}
