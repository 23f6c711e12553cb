package controller

import (
	"time"

	"latidos/filter"
	"latidos/models"
)

type Screen string

const (
	ScreenHome       Screen = "home"
	ScreenCreatePost Screen = "createPost"
)

type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
)

// ToastDuration is how long a toast stays up unless dismissed.
const ToastDuration = 5 * time.Second

// Submit button labels.
const (
	LabelIdle       = "Publicar Reporte"
	LabelPublishing = "Publicando..."
	LabelMatching   = "Buscando coincidencias..."
)

// Place categories offered from the detail modal.
var PlaceCategories = []string{"clínicas veterinarias", "tiendas de mascotas", "parques para perros"}

type Toast struct {
	ID        int       `json:"id"`
	Message   string    `json:"message"`
	Kind      ToastKind `json:"type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SuggestedMatch is a found report proposed for a newly lost pet.
type SuggestedMatch struct {
	models.Report
	DistanceKm float64 `json:"distance_km"`
}

type SubmitView struct {
	Submitting bool   `json:"submitting"`
	Label      string `json:"label"`
}

type MatchesView struct {
	Open    bool             `json:"open"`
	Reports []SuggestedMatch `json:"reports"`
}

type DetailView struct {
	Report        models.Report            `json:"report"`
	Editing       bool                     `json:"editing"`
	Prompt        string                   `json:"prompt"`
	EditPending   bool                     `json:"edit_pending"`
	EditedImage   string                   `json:"edited_image,omitempty"`
	EditError     string                   `json:"edit_error,omitempty"`
	SocialText    string                   `json:"social_text,omitempty"`
	SocialPending bool                     `json:"social_pending"`
	Places        *models.GroundedResponse `json:"places,omitempty"`
	PlacesLoading string                   `json:"places_loading,omitempty"`
}

type ChatView struct {
	Available bool                 `json:"available"`
	Sending   bool                 `json:"sending"`
	Messages  []models.ChatMessage `json:"messages"`
}

// View is the snapshot of a session rendered by the client.
type View struct {
	Screen          Screen           `json:"screen"`
	User            *models.User     `json:"user"`
	AuthModalOpen   bool             `json:"auth_modal_open"`
	Filter          filter.Config    `json:"filter"`
	Reports         []models.Report  `json:"reports"`
	PendingLocation *models.GeoPoint `json:"pending_location,omitempty"`
	Submit          SubmitView       `json:"submit"`
	Describing      bool             `json:"describing"`
	Detail          *DetailView      `json:"detail"`
	Matches         MatchesView      `json:"matches"`
	Toast           *Toast           `json:"toast"`
}
