package models

import (
	"errors"
	"strings"
	"time"
)

// Kind classifies a report as a lost or a found pet.
type Kind string

const (
	KindLost  Kind = "LOST"
	KindFound Kind = "FOUND"
)

// Sizes offered by the report form. Stored as free text on the report.
const (
	SizeSmall  = "Pequeño"
	SizeMedium = "Mediano"
	SizeLarge  = "Grande"
)

var ErrIncompleteReport = errors.New("Por favor, completa todos los campos.")

// GeoPoint is a latitude/longitude pair in degrees.
type GeoPoint struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Report is one lost/found pet sighting.
type Report struct {
	ID           string    `json:"id" yaml:"id"`
	Kind         Kind      `json:"type" yaml:"type"`
	ReporterID   string    `json:"user_id" yaml:"user_id"`
	ReporterName string    `json:"user_name" yaml:"user_name"`
	ImageRef     string    `json:"photo_url" yaml:"photo_url"`
	Breed        string    `json:"breed" yaml:"breed"`
	Color        string    `json:"color" yaml:"color"`
	Size         string    `json:"size" yaml:"size"`
	Description  string    `json:"description" yaml:"description"`
	Location     GeoPoint  `json:"location" yaml:"location"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
}

// ReportPatch holds the mutable fields of a report. Nil fields are left untouched.
type ReportPatch struct {
	ImageRef *string
}

// Apply returns a copy of r with the patch applied.
func (p ReportPatch) Apply(r Report) Report {
	if p.ImageRef != nil {
		r.ImageRef = *p.ImageRef
	}
	return r
}

// NewReport is the form payload submitted when creating a report.
type NewReport struct {
	Kind        Kind     `json:"type"`
	Breed       string   `json:"breed"`
	Color       string   `json:"color"`
	Size        string   `json:"size"`
	Description string   `json:"description"`
	ImageRef    string   `json:"photo_url"`
	Location    GeoPoint `json:"location"`
}

// Validate enforces the creation boundary: every text attribute and the photo are required.
func (n NewReport) Validate() error {
	if n.Kind != KindLost && n.Kind != KindFound {
		return ErrIncompleteReport
	}
	for _, v := range []string{n.Breed, n.Color, n.Size, n.Description, n.ImageRef} {
		if strings.TrimSpace(v) == "" {
			return ErrIncompleteReport
		}
	}
	return nil
}

// PetAttributes are the descriptive fields extracted from a photo.
type PetAttributes struct {
	Breed       string `json:"breed"`
	Color       string `json:"color"`
	Size        string `json:"size"`
	Description string `json:"description"`
}
