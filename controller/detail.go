package controller

import (
	"context"
	"errors"
	"strings"

	"latidos/database"
	"latidos/gateway"
	"latidos/models"
)

// selection identifies the detail modal a request was started from.
type selection struct {
	gen      uint64
	reportID string
}

func (c *Controller) selectionLocked() (selection, error) {
	if c.detail == nil {
		return selection{}, ErrNoSelection
	}
	return selection{gen: c.selectionGen, reportID: c.detail.report.ID}, nil
}

// currentLocked returns the open detail when it is still the one sel points at.
func (c *Controller) currentLocked(sel selection) *detailState {
	if c.detail == nil || c.selectionGen != sel.gen || c.detail.report.ID != sel.reportID {
		return nil
	}
	return c.detail
}

// OpenDetail selects a report and opens its modal with empty transient state.
func (c *Controller) OpenDetail(ctx context.Context, id string) (models.Report, error) {
	report, err := database.Find(ctx, c.deps.Store, id)
	if errors.Is(err, database.ErrNotFound) {
		return models.Report{}, ErrNotFound
	}
	if err != nil {
		return models.Report{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.selectionGen++
	c.detail = &detailState{report: report}
	c.touchLocked()
	return report, nil
}

// CloseDetail closes the modal. Everything it held is discarded, and requests still
// running for it will not write back.
func (c *Controller) CloseDetail() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeDetailLocked()
}

func (c *Controller) closeDetailLocked() {
	c.selectionGen++
	c.detail = nil
	c.touchLocked()
}

// Image edit

// StartEdit enters editing mode with no result.
func (c *Controller) StartEdit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.detail == nil {
		return ErrNoSelection
	}
	c.detail.editing = true
	c.touchLocked()
	return nil
}

// CancelEdit leaves editing mode and drops any result, including one still being
// generated.
func (c *Controller) CancelEdit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.detail == nil {
		return ErrNoSelection
	}
	c.detail.editing = false
	c.detail.editAttempt++
	c.detail.editPending = false
	c.detail.editedImage = ""
	c.detail.editError = ""
	c.touchLocked()
	return nil
}

// RejectEdit discards the result and the prompt so another attempt can be made. A
// result still being generated is dropped when it arrives.
func (c *Controller) RejectEdit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.detail == nil {
		return ErrNoSelection
	}
	if !c.detail.editing {
		return ErrNotEditing
	}
	c.detail.editAttempt++
	c.detail.editPending = false
	c.detail.editedImage = ""
	c.detail.prompt = ""
	c.touchLocked()
	return nil
}

// GenerateEdit asks for an edited version of the selected photo. A new attempt discards
// the previous result. A model failure is kept as the edit error and the report's photo
// is not touched.
func (c *Controller) GenerateEdit(ctx context.Context, prompt string) error {
	c.mu.Lock()
	sel, err := c.selectionLocked()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	d := c.detail
	if !d.editing {
		c.mu.Unlock()
		return ErrNotEditing
	}
	if d.editPending {
		c.mu.Unlock()
		return ErrBusy
	}
	if p := strings.TrimSpace(prompt); p != "" {
		d.prompt = p
	}
	if d.prompt == "" {
		c.mu.Unlock()
		return ErrValidation
	}
	d.editAttempt++
	attempt := d.editAttempt
	d.editPending = true
	d.editedImage = ""
	d.editError = ""
	imageRef, instruction := d.report.ImageRef, d.prompt
	c.touchLocked()
	c.mu.Unlock()

	img, err := c.deps.AI.EditImage(ctx, imageRef, instruction)

	c.mu.Lock()
	defer c.mu.Unlock()
	d = c.currentLocked(sel)
	if d == nil {
		c.logger().WithField("report_id", sel.reportID).Info("Dropping image edit of a closed detail")
		return nil
	}
	if d.editAttempt != attempt {
		c.logger().WithField("report_id", sel.reportID).Info("Dropping image edit of a cancelled attempt")
		return nil
	}
	d.editPending = false
	if err != nil {
		d.editError = gateway.UserMessage(err)
		return nil
	}
	d.editedImage = img.DataURL()
	return nil
}

// AcceptEdit stores the edited photo on the report, closes the modal and returns the
// updated report. It is only valid in editing mode.
func (c *Controller) AcceptEdit(ctx context.Context) (models.Report, error) {
	c.mu.Lock()
	sel, err := c.selectionLocked()
	if err != nil {
		c.mu.Unlock()
		return models.Report{}, err
	}
	if !c.detail.editing {
		c.mu.Unlock()
		return models.Report{}, ErrNotEditing
	}
	edited := c.detail.editedImage
	c.mu.Unlock()
	if edited == "" {
		return models.Report{}, ErrNothingToAccept
	}

	updated, err := c.deps.Store.Replace(ctx, sel.reportID, models.ReportPatch{ImageRef: &edited})
	if errors.Is(err, database.ErrNotFound) {
		return models.Report{}, ErrNotFound
	}
	if err != nil {
		return models.Report{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if d := c.currentLocked(sel); d != nil {
		d.report = updated
		c.closeDetailLocked()
	}
	c.showToastLocked("¡Imagen actualizada con éxito!", ToastSuccess)
	return updated, nil
}

// Social post

// GenerateSocialPost writes shareable copy for the selected report. Failures become an
// error toast.
func (c *Controller) GenerateSocialPost(ctx context.Context) error {
	c.mu.Lock()
	sel, err := c.selectionLocked()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	d := c.detail
	if d.socialPending {
		c.mu.Unlock()
		return ErrBusy
	}
	d.socialPending = true
	d.socialText = ""
	report := d.report
	c.touchLocked()
	c.mu.Unlock()

	text, err := c.deps.AI.GenerateSocialPost(ctx, report)

	c.mu.Lock()
	defer c.mu.Unlock()
	d = c.currentLocked(sel)
	if d == nil {
		c.logger().WithField("report_id", sel.reportID).Info("Dropping social post of a closed detail")
		return nil
	}
	d.socialPending = false
	if err != nil {
		c.showToastLocked(gateway.UserMessage(err), ToastError)
		return nil
	}
	d.socialText = text
	return nil
}

// CopySocialText returns the generated copy for the clipboard.
func (c *Controller) CopySocialText() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.detail == nil {
		return "", ErrNoSelection
	}
	if c.detail.socialText == "" {
		return "", ErrNothingToCopy
	}
	c.showToastLocked("Texto copiado al portapapeles!", ToastSuccess)
	return c.detail.socialText, nil
}

// Nearby places

// FindNearbyPlaces looks up places of a category around the selected report.
func (c *Controller) FindNearbyPlaces(ctx context.Context, category string) error {
	category = strings.TrimSpace(category)
	if category == "" {
		return ErrValidation
	}

	c.mu.Lock()
	sel, err := c.selectionLocked()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	d := c.detail
	if d.placesLoading != "" {
		c.mu.Unlock()
		return ErrBusy
	}
	d.placesLoading = category
	d.places = nil
	location := d.report.Location
	c.touchLocked()
	c.mu.Unlock()

	result := c.deps.AI.FindNearbyPlaces(ctx, location, category)

	c.mu.Lock()
	defer c.mu.Unlock()
	d = c.currentLocked(sel)
	if d == nil {
		c.logger().WithField("report_id", sel.reportID).Info("Dropping nearby places of a closed detail")
		return nil
	}
	d.placesLoading = ""
	d.places = &result
	return nil
}
