package controller

import (
	"context"
	"fmt"
	"strings"

	"latidos/gateway"
	"latidos/geo"
	"latidos/metrics"
	"latidos/models"
)

// requireUserLocked opens the auth modal with an error toast when nobody is signed in.
func (c *Controller) requireUserLocked() error {
	if c.user != nil {
		return nil
	}
	c.authModalOpen = true
	c.showToastLocked(ErrNotLoggedIn.Error(), ToastError)
	return ErrNotLoggedIn
}

// Create opens the report form.
func (c *Controller) Create() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touchLocked()
	if err := c.requireUserLocked(); err != nil {
		return err
	}
	c.screen = ScreenCreatePost
	return nil
}

// MapClick opens the report form preset to the clicked point.
func (c *Controller) MapClick(point models.GeoPoint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touchLocked()
	if err := c.requireUserLocked(); err != nil {
		return err
	}
	c.pendingLocation = &point
	c.screen = ScreenCreatePost
	return nil
}

// CancelCreate returns home and forgets the clicked point.
func (c *Controller) CancelCreate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.screen = ScreenHome
	c.pendingLocation = nil
	c.touchLocked()
}

// DescribePhoto fills the report form from a photo. Model failures are returned wrapping
// gateway.ErrDescription and are meant to be shown as a blocking alert.
func (c *Controller) DescribePhoto(ctx context.Context, img gateway.Image) (models.PetAttributes, error) {
	c.mu.Lock()
	if c.user == nil {
		c.mu.Unlock()
		return models.PetAttributes{}, ErrNotLoggedIn
	}
	if c.describing {
		c.mu.Unlock()
		return models.PetAttributes{}, ErrBusy
	}
	c.describing = true
	c.touchLocked()
	c.mu.Unlock()

	attrs, err := c.deps.AI.ExtractAttributes(ctx, img)

	c.mu.Lock()
	c.describing = false
	c.mu.Unlock()
	return attrs, err
}

// Submit validates the form and prepends the new report to the store. The screen goes
// home with a success toast straight away. For a lost pet a match lookup against every
// found report then runs in the background and opens the matches modal when it finds any.
func (c *Controller) Submit(ctx context.Context, form models.NewReport) (models.Report, error) {
	c.mu.Lock()
	c.touchLocked()
	if c.user == nil {
		c.mu.Unlock()
		return models.Report{}, ErrNotLoggedIn
	}
	if c.submitting {
		c.mu.Unlock()
		return models.Report{}, ErrBusy
	}
	if err := form.Validate(); err != nil {
		c.showToastLocked(err.Error(), ToastError)
		c.mu.Unlock()
		return models.Report{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	location := form.Location
	if location == (models.GeoPoint{}) {
		location = c.deps.DefaultLocation
		if c.pendingLocation != nil {
			location = *c.pendingLocation
		}
	}
	report := models.Report{
		ID:           "post_" + c.deps.NewID(),
		Kind:         form.Kind,
		ReporterID:   c.user.ID,
		ReporterName: c.user.Name(),
		ImageRef:     form.ImageRef,
		Breed:        strings.TrimSpace(form.Breed),
		Color:        strings.TrimSpace(form.Color),
		Size:         strings.TrimSpace(form.Size),
		Description:  strings.TrimSpace(form.Description),
		Location:     location,
		CreatedAt:    c.deps.Now(),
	}
	c.submitting = true
	c.submitLabel = LabelPublishing
	c.mu.Unlock()

	if err := c.deps.Store.Append(ctx, report); err != nil {
		c.mu.Lock()
		c.submitting = false
		c.submitLabel = LabelIdle
		c.mu.Unlock()
		return models.Report{}, fmt.Errorf("failed to store report: %w", err)
	}
	metrics.ReportsCreatedTotal.WithLabelValues(string(report.Kind)).Inc()
	c.logger().WithField("report_id", report.ID).WithField("type", report.Kind).Info("Report created")

	if c.deps.Publisher != nil {
		if err := c.deps.Publisher.PublishReportCreated(ctx, report); err != nil {
			c.logger().WithError(err).Warn("Failed to publish report event")
		}
	}

	c.mu.Lock()
	c.screen = ScreenHome
	c.pendingLocation = nil
	c.showToastLocked("Reporte creado con éxito.", ToastSuccess)
	if report.Kind != models.KindLost {
		c.submitting = false
		c.submitLabel = LabelIdle
		c.mu.Unlock()
		return report, nil
	}
	c.submitLabel = LabelMatching
	c.background.Add(1)
	c.mu.Unlock()

	go c.suggestMatches(context.WithoutCancel(ctx), report)
	return report, nil
}

func (c *Controller) suggestMatches(ctx context.Context, lost models.Report) {
	defer c.background.Done()

	ctx, cancel := context.WithTimeout(ctx, c.deps.BackgroundTimeout)
	defer cancel()

	var matches []SuggestedMatch
	reports, err := c.deps.Store.List(ctx)
	if err != nil {
		c.logger().WithError(err).Error("Failed to list reports for match suggestions")
	} else {
		candidates := make([]models.Report, 0, len(reports))
		byID := make(map[string]models.Report, len(reports))
		for _, r := range reports {
			if r.Kind == models.KindFound {
				candidates = append(candidates, r)
				byID[r.ID] = r
			}
		}
		for _, id := range c.deps.AI.SuggestMatches(ctx, lost, candidates) {
			if r, ok := byID[id]; ok {
				matches = append(matches, SuggestedMatch{Report: r, DistanceKm: geo.DistanceKm(lost.Location, r.Location)})
			}
		}
	}

	c.mu.Lock()
	c.submitting = false
	c.submitLabel = LabelIdle
	if len(matches) > 0 {
		c.suggested = matches
		c.matchesOpen = true
	}
	c.mu.Unlock()

	if len(matches) == 0 {
		metrics.MatchSuggestionsTotal.WithLabelValues("empty").Inc()
		return
	}
	metrics.MatchSuggestionsTotal.WithLabelValues("found").Inc()
	if c.deps.Notifier != nil {
		c.deps.Notifier.Notify(c.sessionID, models.EventMatches, MatchesView{Open: true, Reports: matches})
	}
}
