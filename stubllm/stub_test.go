package stubllm

import (
	"context"
	"strings"
	"testing"

	"latidos/gateway"
	"latidos/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGateway() *gateway.Gateway {
	return gateway.New(NewClient(), gateway.Options{})
}

func TestStubDrivesEveryGatewayOperation(t *testing.T) {
	ctx := context.Background()
	g := newGateway()
	photo := gateway.Image{Data: []byte("foto"), MIMEType: "image/jpeg"}

	attrs, err := g.ExtractAttributes(ctx, photo)
	require.NoError(t, err)
	assert.Equal(t, "Mestizo", attrs.Breed)
	assert.Contains(t, attrs.Description, "Descripción de prueba")

	edited, err := g.EditImage(ctx, photo.DataURL(), "Añade un lazo")
	require.NoError(t, err)
	assert.Equal(t, photo, edited)

	places := g.FindNearbyPlaces(ctx, models.GeoPoint{Lat: -20.2139, Lng: -70.1525}, "clínicas veterinarias")
	assert.Contains(t, places.Text, "Cavancha")
	assert.Len(t, places.Sources, 2)

	post, err := g.GenerateSocialPost(ctx, models.Report{Kind: models.KindLost, Breed: "Pug"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(post, "[stub]"))
}

func TestStubMatchesSameBreed(t *testing.T) {
	lost := models.Report{ID: "post_new", Kind: models.KindLost, Breed: "Pug"}
	candidates := []models.Report{
		{ID: "post_2", Kind: models.KindFound, Breed: "Mestizo"},
		{ID: "post_4", Kind: models.KindFound, Breed: "pug"},
	}

	ids := newGateway().SuggestMatches(context.Background(), lost, candidates)

	assert.Equal(t, []string{"post_4"}, ids)
}

func TestStubChatStreamsWords(t *testing.T) {
	var sb strings.Builder
	chunks := 0
	for text, err := range newGateway().StreamChat(context.Background(), []models.ChatMessage{{Role: models.RoleUser, Text: "hola"}}) {
		require.NoError(t, err)
		sb.WriteString(text)
		chunks++
	}

	assert.Greater(t, chunks, 1)
	assert.Equal(t, `Recibí tu mensaje: "hola". Este es un asistente de prueba.`, sb.String())
}

func TestStubExtractIsDeterministic(t *testing.T) {
	g := newGateway()
	photo := gateway.Image{Data: []byte("foto"), MIMEType: "image/jpeg"}

	first, err := g.ExtractAttributes(context.Background(), photo)
	require.NoError(t, err)
	second, err := g.ExtractAttributes(context.Background(), photo)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
