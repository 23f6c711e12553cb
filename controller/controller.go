package controller

import (
	"context"
	"strings"
	"sync"
	"time"

	"latidos/assistant"
	"latidos/database"
	"latidos/filter"
	"latidos/gateway"
	"latidos/models"

	"github.com/apex/log"
)

// AI is the set of gateway operations the controller drives. *gateway.Gateway satisfies it.
type AI interface {
	ExtractAttributes(ctx context.Context, img gateway.Image) (models.PetAttributes, error)
	EditImage(ctx context.Context, imageRef, instruction string) (gateway.Image, error)
	SuggestMatches(ctx context.Context, lost models.Report, candidates []models.Report) []string
	FindNearbyPlaces(ctx context.Context, location models.GeoPoint, category string) models.GroundedResponse
	GenerateSocialPost(ctx context.Context, report models.Report) (string, error)
}

// Notifier pushes events to the listeners of a session.
type Notifier interface {
	Notify(sessionID, eventType string, data interface{})
}

// Publisher announces new reports to other systems.
type Publisher interface {
	PublishReportCreated(ctx context.Context, report models.Report) error
}

// Deps are the collaborators shared by every session.
type Deps struct {
	Store        database.Repository
	AI           AI
	Notifier     Notifier
	Publisher    Publisher
	NewAssistant func() *assistant.Assistant
	NewID        func() string
	Now          func() time.Time
	// DefaultLocation is used for reports submitted without a location.
	DefaultLocation models.GeoPoint
	// BackgroundTimeout bounds match lookups that outlive their request.
	BackgroundTimeout time.Duration
}

// Controller holds the view state of one browser session. Every method is safe for
// concurrent use; AI calls run without holding the lock, and results that arrive after
// the state they belong to has moved on are dropped.
type Controller struct {
	mu        sync.Mutex
	sessionID string
	deps      Deps

	screen          Screen
	authModalOpen   bool
	user            *models.User
	filter          filter.Config
	pendingLocation *models.GeoPoint

	submitting  bool
	submitLabel string
	describing  bool

	matchesOpen bool
	suggested   []SuggestedMatch

	toast    *Toast
	toastSeq int

	detail       *detailState
	selectionGen uint64

	assistant *assistant.Assistant
	lastSeen  time.Time

	background sync.WaitGroup
}

type detailState struct {
	report        models.Report
	editing       bool
	prompt        string
	editPending   bool
	editAttempt   uint64
	editedImage   string
	editError     string
	socialText    string
	socialPending bool
	places        *models.GroundedResponse
	placesLoading string
}

func New(sessionID string, deps Deps) *Controller {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.BackgroundTimeout == 0 {
		deps.BackgroundTimeout = time.Minute
	}
	return &Controller{
		sessionID:   sessionID,
		deps:        deps,
		screen:      ScreenHome,
		filter:      filter.Default(),
		submitLabel: LabelIdle,
		lastSeen:    deps.Now(),
	}
}

func (c *Controller) SessionID() string {
	return c.sessionID
}

func (c *Controller) logger() *log.Entry {
	return log.WithField("session", c.sessionID)
}

// Wait blocks until background match lookups have finished.
func (c *Controller) Wait() {
	c.background.Wait()
}

func (c *Controller) touchLocked() {
	c.lastSeen = c.deps.Now()
}

// LastSeen is the time of the last state change.
func (c *Controller) LastSeen() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}

// View renders the current state with the filtered report list.
func (c *Controller) View(ctx context.Context) (View, error) {
	reports, err := c.deps.Store.List(ctx)
	if err != nil {
		return View{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Screen:        c.screen,
		AuthModalOpen: c.authModalOpen,
		Filter:        c.filter,
		Reports:       filter.Apply(reports, c.filter, c.user),
		Submit:        SubmitView{Submitting: c.submitting, Label: c.submitLabel},
		Describing:    c.describing,
		Matches:       MatchesView{Open: c.matchesOpen, Reports: append([]SuggestedMatch{}, c.suggested...)},
		Toast:         c.currentToastLocked(),
	}
	if c.user != nil {
		u := *c.user
		v.User = &u
	}
	if c.pendingLocation != nil {
		p := *c.pendingLocation
		v.PendingLocation = &p
	}
	if d := c.detail; d != nil {
		v.Detail = &DetailView{
			Report:        d.report,
			Editing:       d.editing,
			Prompt:        d.prompt,
			EditPending:   d.editPending,
			EditedImage:   d.editedImage,
			EditError:     d.editError,
			SocialText:    d.socialText,
			SocialPending: d.socialPending,
			Places:        d.places,
			PlacesLoading: d.placesLoading,
		}
	}
	return v, nil
}

// Reports returns the store filtered by the session's filter.
func (c *Controller) Reports(ctx context.Context) ([]models.Report, error) {
	reports, err := c.deps.Store.List(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return filter.Apply(reports, c.filter, c.user), nil
}

// User returns a copy of the signed-in user, nil when signed out.
func (c *Controller) User() *models.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return nil
	}
	u := *c.user
	return &u
}

func (c *Controller) showToastLocked(message string, kind ToastKind) {
	c.toastSeq++
	c.toast = &Toast{
		ID:        c.toastSeq,
		Message:   message,
		Kind:      kind,
		ExpiresAt: c.deps.Now().Add(ToastDuration),
	}
}

func (c *Controller) currentToastLocked() *Toast {
	if c.toast == nil {
		return nil
	}
	if !c.deps.Now().Before(c.toast.ExpiresAt) {
		c.toast = nil
		return nil
	}
	t := *c.toast
	return &t
}

// DismissToast closes the toast with the given id. A newer toast is left alone.
func (c *Controller) DismissToast(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.toast != nil && (id == 0 || c.toast.ID == id) {
		c.toast = nil
	}
}

// Auth

func (c *Controller) OpenAuth() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authModalOpen = true
	c.touchLocked()
}

func (c *Controller) CloseAuth() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authModalOpen = false
	c.touchLocked()
}

// Login signs the session in as the mock user. Email and display name override the
// mock values when given.
func (c *Controller) Login(email, displayName string) models.User {
	u := models.MockUser()
	if email = strings.TrimSpace(email); email != "" {
		u.Email = email
	}
	if displayName = strings.TrimSpace(displayName); displayName != "" {
		u.DisplayName = displayName
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = &u
	c.authModalOpen = false
	c.touchLocked()
	c.logger().WithField("user", u.ID).Info("User logged in")
	return u
}

// Register simulates an account creation. Nobody is signed in by it.
func (c *Controller) Register(email, password string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return ErrValidation
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.showToastLocked("¡Registro exitoso! Ahora puedes iniciar sesión.", ToastSuccess)
	c.touchLocked()
	return nil
}

// Logout clears the user and turns the owned-only filter off. A match lookup still
// running for the user's last report keeps going and opens its matches when done.
func (c *Controller) Logout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = nil
	c.filter.OwnedOnly = false
	c.touchLocked()
}

// UpdateProfilePhoto replaces the user's photo reference.
func (c *Controller) UpdateProfilePhoto(photoRef string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return ErrNotLoggedIn
	}
	c.user.PhotoRef = &photoRef
	c.touchLocked()
	return nil
}

// Filters

// SetFilter replaces kind, breed, color and size. The owned-only toggle is kept.
// An unknown kind means ALL.
func (c *Controller) SetFilter(cfg filter.Config) filter.Config {
	cfg = cfg.Normalize()

	c.mu.Lock()
	defer c.mu.Unlock()
	cfg.OwnedOnly = c.filter.OwnedOnly
	c.filter = cfg
	c.touchLocked()
	return cfg
}

// ClearFilters resets kind, breed, color and size.
func (c *Controller) ClearFilters() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter.Clear()
	c.touchLocked()
}

// ToggleOwnedOnly flips the owned-only filter. It needs a signed-in user.
func (c *Controller) ToggleOwnedOnly() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return false, ErrNotLoggedIn
	}
	c.filter.OwnedOnly = !c.filter.OwnedOnly
	c.touchLocked()
	return c.filter.OwnedOnly, nil
}

// Matches

// CloseMatches hides the suggested matches.
func (c *Controller) CloseMatches() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.matchesOpen = false
	c.suggested = nil
	c.touchLocked()
}

// Assistant returns the session's assistant, creating it on first use.
func (c *Controller) Assistant() *assistant.Assistant {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.assistant == nil {
		if c.deps.NewAssistant != nil {
			c.assistant = c.deps.NewAssistant()
		} else {
			c.assistant = assistant.New(nil)
		}
	}
	return c.assistant
}
