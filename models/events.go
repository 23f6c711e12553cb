package models

import "time"

// Event types pushed to websocket listeners of a session.
const (
	EventMatches = "matches"
	EventToast   = "toast"
	EventState   = "state"
)

// BroadcastMessage is the envelope of every websocket push.
type BroadcastMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// ReportCreatedEvent is published to RabbitMQ for every new report.
type ReportCreatedEvent struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"type"`
	ReporterID string    `json:"user_id"`
	Breed      string    `json:"breed"`
	Color      string    `json:"color"`
	Size       string    `json:"size"`
	Location   GeoPoint  `json:"location"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewReportCreatedEvent projects a report onto its event payload. The photo is left out.
func NewReportCreatedEvent(r Report) ReportCreatedEvent {
	return ReportCreatedEvent{
		ID:         r.ID,
		Kind:       r.Kind,
		ReporterID: r.ReporterID,
		Breed:      r.Breed,
		Color:      r.Color,
		Size:       r.Size,
		Location:   r.Location,
		CreatedAt:  r.CreatedAt,
	}
}
