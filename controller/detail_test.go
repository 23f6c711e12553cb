package controller

import (
	"context"
	"fmt"
	"testing"

	"latidos/database"
	"latidos/gateway"
	"latidos/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var editedPNG = gateway.Image{Data: []byte("edited"), MIMEType: "image/png"}

func TestOpenDetailUnknownReport(t *testing.T) {
	f := newFixture(database.DefaultSeed())
	_, err := f.ctrl.OpenDetail(context.Background(), "post_99")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCloseDetailResetsTransientState(t *testing.T) {
	f := newFixture(database.DefaultSeed())
	f.ai.edited = editedPNG
	f.ai.social = "¡Ayúdanos a encontrar a Pipo!"
	f.ai.places = models.GroundedResponse{Text: "Hay una clínica cerca."}
	ctx := context.Background()

	_, err := f.ctrl.OpenDetail(ctx, "post_1")
	require.NoError(t, err)
	require.NoError(t, f.ctrl.StartEdit())
	require.NoError(t, f.ctrl.GenerateEdit(ctx, "añade un sombrero"))
	require.NoError(t, f.ctrl.GenerateSocialPost(ctx))
	require.NoError(t, f.ctrl.FindNearbyPlaces(ctx, "clínicas veterinarias"))

	view, err := f.ctrl.View(ctx)
	require.NoError(t, err)
	require.NotNil(t, view.Detail)
	assert.True(t, view.Detail.Editing)
	assert.Equal(t, "añade un sombrero", view.Detail.Prompt)
	assert.Equal(t, editedPNG.DataURL(), view.Detail.EditedImage)
	assert.Equal(t, f.ai.social, view.Detail.SocialText)
	require.NotNil(t, view.Detail.Places)
	assert.Equal(t, "Hay una clínica cerca.", view.Detail.Places.Text)

	f.ctrl.CloseDetail()
	view, err = f.ctrl.View(ctx)
	require.NoError(t, err)
	assert.Nil(t, view.Detail)

	_, err = f.ctrl.OpenDetail(ctx, "post_1")
	require.NoError(t, err)
	view, err = f.ctrl.View(ctx)
	require.NoError(t, err)
	require.NotNil(t, view.Detail)
	assert.Equal(t, DetailView{Report: view.Detail.Report}, *view.Detail)
}

func TestGenerateEditFailureKeepsPhoto(t *testing.T) {
	f := newFixture(database.DefaultSeed())
	f.ai.editErr = fmt.Errorf("%w: %w", gateway.ErrImageEdit, fmt.Errorf("quota exceeded"))
	ctx := context.Background()

	before, err := f.ctrl.OpenDetail(ctx, "post_1")
	require.NoError(t, err)
	require.NoError(t, f.ctrl.StartEdit())
	require.NoError(t, f.ctrl.GenerateEdit(ctx, "cambia el fondo a la playa"))

	view, err := f.ctrl.View(ctx)
	require.NoError(t, err)
	require.NotNil(t, view.Detail)
	assert.NotEmpty(t, view.Detail.EditError)
	assert.Equal(t, gateway.ErrImageEdit.Error(), view.Detail.EditError)
	assert.Empty(t, view.Detail.EditedImage)
	assert.False(t, view.Detail.EditPending)
	assert.Equal(t, before.ImageRef, view.Detail.Report.ImageRef)

	stored, err := database.Find(ctx, f.store, "post_1")
	require.NoError(t, err)
	assert.Equal(t, before.ImageRef, stored.ImageRef)
}

func TestAcceptEditUpdatesStoreAndSelection(t *testing.T) {
	f := newFixture(database.DefaultSeed())
	f.ai.edited = editedPNG
	ctx := context.Background()

	_, err := f.ctrl.OpenDetail(ctx, "post_3")
	require.NoError(t, err)

	_, err = f.ctrl.AcceptEdit(ctx)
	assert.ErrorIs(t, err, ErrNotEditing)

	require.NoError(t, f.ctrl.StartEdit())
	_, err = f.ctrl.AcceptEdit(ctx)
	assert.ErrorIs(t, err, ErrNothingToAccept)

	require.NoError(t, f.ctrl.GenerateEdit(ctx, "hazlo estilo acuarela"))

	updated, err := f.ctrl.AcceptEdit(ctx)
	require.NoError(t, err)
	assert.Equal(t, editedPNG.DataURL(), updated.ImageRef)

	stored, err := database.Find(ctx, f.store, "post_3")
	require.NoError(t, err)
	assert.Equal(t, editedPNG.DataURL(), stored.ImageRef)

	view, err := f.ctrl.View(ctx)
	require.NoError(t, err)
	assert.Nil(t, view.Detail)
	require.NotNil(t, view.Toast)
	assert.Equal(t, "¡Imagen actualizada con éxito!", view.Toast.Message)
	for _, r := range view.Reports {
		if r.ID == "post_3" {
			assert.Equal(t, editedPNG.DataURL(), r.ImageRef)
		}
	}
}

func TestGenerateEditGuards(t *testing.T) {
	f := newFixture(database.DefaultSeed())
	ctx := context.Background()

	assert.ErrorIs(t, f.ctrl.GenerateEdit(ctx, "x"), ErrNoSelection)

	_, err := f.ctrl.OpenDetail(ctx, "post_1")
	require.NoError(t, err)
	assert.ErrorIs(t, f.ctrl.GenerateEdit(ctx, "x"), ErrNotEditing)

	require.NoError(t, f.ctrl.StartEdit())
	assert.ErrorIs(t, f.ctrl.GenerateEdit(ctx, "   "), ErrValidation)

	f.ai.editGate = make(chan struct{})
	f.ai.edited = editedPNG
	done := make(chan error, 1)
	go func() { done <- f.ctrl.GenerateEdit(ctx, "añade una bufanda") }()
	require.Eventually(t, func() bool { return f.ai.count("edit") == 1 }, timeout, tick)

	assert.ErrorIs(t, f.ctrl.GenerateEdit(ctx, "otra cosa"), ErrBusy)

	close(f.ai.editGate)
	require.NoError(t, <-done)
	assert.Equal(t, 1, f.ai.count("edit"))
}

func TestStaleEditIsDropped(t *testing.T) {
	f := newFixture(database.DefaultSeed())
	f.ai.editGate = make(chan struct{})
	f.ai.edited = editedPNG
	ctx := context.Background()

	_, err := f.ctrl.OpenDetail(ctx, "post_1")
	require.NoError(t, err)
	require.NoError(t, f.ctrl.StartEdit())

	done := make(chan error, 1)
	go func() { done <- f.ctrl.GenerateEdit(ctx, "añade un sombrero") }()
	require.Eventually(t, func() bool { return f.ai.count("edit") == 1 }, timeout, tick)

	f.ctrl.CloseDetail()
	_, err = f.ctrl.OpenDetail(ctx, "post_1")
	require.NoError(t, err)

	close(f.ai.editGate)
	require.NoError(t, <-done)

	view, err := f.ctrl.View(ctx)
	require.NoError(t, err)
	require.NotNil(t, view.Detail)
	assert.Empty(t, view.Detail.EditedImage)
	assert.False(t, view.Detail.EditPending)
	assert.False(t, view.Detail.Editing)
}

func TestCancelledEditCannotBeAccepted(t *testing.T) {
	f := newFixture(database.DefaultSeed())
	f.ai.editGate = make(chan struct{})
	f.ai.edited = editedPNG
	ctx := context.Background()

	before, err := f.ctrl.OpenDetail(ctx, "post_1")
	require.NoError(t, err)
	require.NoError(t, f.ctrl.StartEdit())

	done := make(chan error, 1)
	go func() { done <- f.ctrl.GenerateEdit(ctx, "añade un sombrero") }()
	require.Eventually(t, func() bool { return f.ai.count("edit") == 1 }, timeout, tick)

	require.NoError(t, f.ctrl.CancelEdit())
	close(f.ai.editGate)
	require.NoError(t, <-done)

	view, err := f.ctrl.View(ctx)
	require.NoError(t, err)
	require.NotNil(t, view.Detail)
	assert.False(t, view.Detail.Editing)
	assert.False(t, view.Detail.EditPending)
	assert.Empty(t, view.Detail.EditedImage)

	_, err = f.ctrl.AcceptEdit(ctx)
	assert.ErrorIs(t, err, ErrNotEditing)

	stored, err := database.Find(ctx, f.store, "post_1")
	require.NoError(t, err)
	assert.Equal(t, before.ImageRef, stored.ImageRef)
}

func TestRejectedEditInFlightIsDropped(t *testing.T) {
	f := newFixture(database.DefaultSeed())
	f.ai.editGate = make(chan struct{})
	f.ai.edited = editedPNG
	ctx := context.Background()

	_, err := f.ctrl.OpenDetail(ctx, "post_1")
	require.NoError(t, err)
	require.NoError(t, f.ctrl.StartEdit())

	done := make(chan error, 1)
	go func() { done <- f.ctrl.GenerateEdit(ctx, "añade un sombrero") }()
	require.Eventually(t, func() bool { return f.ai.count("edit") == 1 }, timeout, tick)

	require.NoError(t, f.ctrl.RejectEdit())
	close(f.ai.editGate)
	require.NoError(t, <-done)

	view, err := f.ctrl.View(ctx)
	require.NoError(t, err)
	assert.True(t, view.Detail.Editing)
	assert.Empty(t, view.Detail.EditedImage)
}

func TestStalePlacesAreDropped(t *testing.T) {
	f := newFixture(database.DefaultSeed())
	f.ai.placesGate = make(chan struct{})
	f.ai.places = models.GroundedResponse{Text: "Parque Playa Brava"}
	ctx := context.Background()

	_, err := f.ctrl.OpenDetail(ctx, "post_1")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- f.ctrl.FindNearbyPlaces(ctx, "parques para perros") }()
	require.Eventually(t, func() bool { return f.ai.count("places") == 1 }, timeout, tick)

	view, err := f.ctrl.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, "parques para perros", view.Detail.PlacesLoading)
	assert.ErrorIs(t, f.ctrl.FindNearbyPlaces(ctx, "tiendas de mascotas"), ErrBusy)

	_, err = f.ctrl.OpenDetail(ctx, "post_2")
	require.NoError(t, err)
	close(f.ai.placesGate)
	require.NoError(t, <-done)

	view, err = f.ctrl.View(ctx)
	require.NoError(t, err)
	require.NotNil(t, view.Detail)
	assert.Equal(t, "post_2", view.Detail.Report.ID)
	assert.Nil(t, view.Detail.Places)
	assert.Empty(t, view.Detail.PlacesLoading)
}

func TestCancelAndRejectEdit(t *testing.T) {
	f := newFixture(database.DefaultSeed())
	f.ai.edited = editedPNG
	ctx := context.Background()

	_, err := f.ctrl.OpenDetail(ctx, "post_1")
	require.NoError(t, err)
	assert.ErrorIs(t, f.ctrl.RejectEdit(), ErrNotEditing)

	require.NoError(t, f.ctrl.StartEdit())
	require.NoError(t, f.ctrl.GenerateEdit(ctx, "añade un sombrero"))
	require.NoError(t, f.ctrl.RejectEdit())

	view, err := f.ctrl.View(ctx)
	require.NoError(t, err)
	assert.True(t, view.Detail.Editing)
	assert.Empty(t, view.Detail.EditedImage)
	assert.Empty(t, view.Detail.Prompt)

	require.NoError(t, f.ctrl.GenerateEdit(ctx, "añade una capa"))
	require.NoError(t, f.ctrl.CancelEdit())

	view, err = f.ctrl.View(ctx)
	require.NoError(t, err)
	assert.False(t, view.Detail.Editing)
	assert.Empty(t, view.Detail.EditedImage)
	assert.Equal(t, "añade una capa", view.Detail.Prompt)
}

func TestSocialPostFailureShowsToast(t *testing.T) {
	f := newFixture(database.DefaultSeed())
	f.ai.socialErr = fmt.Errorf("%w: %w", gateway.ErrSocialPost, fmt.Errorf("timeout"))
	ctx := context.Background()

	_, err := f.ctrl.OpenDetail(ctx, "post_1")
	require.NoError(t, err)
	require.NoError(t, f.ctrl.GenerateSocialPost(ctx))

	view, err := f.ctrl.View(ctx)
	require.NoError(t, err)
	require.NotNil(t, view.Toast)
	assert.Equal(t, ToastError, view.Toast.Kind)
	assert.Equal(t, gateway.ErrSocialPost.Error(), view.Toast.Message)
	assert.Empty(t, view.Detail.SocialText)
	assert.False(t, view.Detail.SocialPending)

	_, err = f.ctrl.CopySocialText()
	assert.ErrorIs(t, err, ErrNothingToCopy)
}

func TestCopySocialText(t *testing.T) {
	f := newFixture(database.DefaultSeed())
	f.ai.social = "🐾 ¡Se busca a Pipo! #Iquique"
	ctx := context.Background()

	_, err := f.ctrl.CopySocialText()
	assert.ErrorIs(t, err, ErrNoSelection)

	_, err = f.ctrl.OpenDetail(ctx, "post_1")
	require.NoError(t, err)
	require.NoError(t, f.ctrl.GenerateSocialPost(ctx))

	text, err := f.ctrl.CopySocialText()
	require.NoError(t, err)
	assert.Equal(t, f.ai.social, text)

	view, err := f.ctrl.View(ctx)
	require.NoError(t, err)
	require.NotNil(t, view.Toast)
	assert.Equal(t, "Texto copiado al portapapeles!", view.Toast.Message)
}

func TestFindNearbyPlacesNeedsCategory(t *testing.T) {
	f := newFixture(database.DefaultSeed())
	_, err := f.ctrl.OpenDetail(context.Background(), "post_1")
	require.NoError(t, err)
	assert.ErrorIs(t, f.ctrl.FindNearbyPlaces(context.Background(), " "), ErrValidation)
	assert.Equal(t, 0, f.ai.count("places"))
}
