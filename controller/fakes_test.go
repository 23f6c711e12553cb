package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"latidos/database"
	"latidos/gateway"
	"latidos/models"
)

type fakeAI struct {
	mu    sync.Mutex
	calls map[string]int

	attrs       models.PetAttributes
	describeErr error

	edited   gateway.Image
	editErr  error
	editGate chan struct{}

	matches    []string
	candidates []models.Report
	matchGate  chan struct{}

	places     models.GroundedResponse
	placesGate chan struct{}

	social    string
	socialErr error
}

func (f *fakeAI) called(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[op]++
}

func (f *fakeAI) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func wait(gate chan struct{}) {
	if gate != nil {
		<-gate
	}
}

func (f *fakeAI) ExtractAttributes(ctx context.Context, img gateway.Image) (models.PetAttributes, error) {
	f.called("describe")
	return f.attrs, f.describeErr
}

func (f *fakeAI) EditImage(ctx context.Context, imageRef, instruction string) (gateway.Image, error) {
	f.called("edit")
	wait(f.editGate)
	return f.edited, f.editErr
}

func (f *fakeAI) SuggestMatches(ctx context.Context, lost models.Report, candidates []models.Report) []string {
	f.called("matches")
	f.mu.Lock()
	f.candidates = candidates
	f.mu.Unlock()
	wait(f.matchGate)
	return f.matches
}

func (f *fakeAI) FindNearbyPlaces(ctx context.Context, location models.GeoPoint, category string) models.GroundedResponse {
	f.called("places")
	wait(f.placesGate)
	return f.places
}

func (f *fakeAI) GenerateSocialPost(ctx context.Context, report models.Report) (string, error) {
	f.called("social")
	return f.social, f.socialErr
}

type event struct {
	sessionID string
	eventType string
	data      interface{}
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []event
}

func (n *fakeNotifier) Notify(sessionID, eventType string, data interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event{sessionID, eventType, data})
}

func (n *fakeNotifier) all() []event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]event(nil), n.events...)
}

type fakePublisher struct {
	mu        sync.Mutex
	published []models.Report
}

func (p *fakePublisher) PublishReportCreated(ctx context.Context, report models.Report) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, report)
	return nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 7, 22, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	ctrl      *Controller
	ai        *fakeAI
	store     *database.MemoryStore
	notifier  *fakeNotifier
	publisher *fakePublisher
	clock     *fakeClock
}

func newFixture(seed []models.Report) *fixture {
	f := &fixture{
		ai:        &fakeAI{},
		store:     database.NewMemoryStore(seed),
		notifier:  &fakeNotifier{},
		publisher: &fakePublisher{},
		clock:     newFakeClock(),
	}
	ids := 0
	f.ctrl = New("session-1", Deps{
		Store:     f.store,
		AI:        f.ai,
		Notifier:  f.notifier,
		Publisher: f.publisher,
		NewID: func() string {
			ids++
			return fmt.Sprintf("test_%d", ids)
		},
		Now:             f.clock.Now,
		DefaultLocation: models.GeoPoint{Lat: -20.2139, Lng: -70.1525},
	})
	return f
}

const (
	timeout = 2 * time.Second
	tick    = 5 * time.Millisecond
)
