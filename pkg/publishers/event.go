package publishers

import (
	"time"

	"github.com/samvad-hq/wiredove-notifier/internal/domain"
)

// Event is the mirrored copy of a dispatched notification.
type Event struct {
	Title            string    `json:"title"`
	Body             string    `json:"body"`
	URL              string    `json:"url"`
	SourceIdentifier string    `json:"source_identifier"`
	Changed          bool      `json:"changed"`
	Forced           bool      `json:"forced"`
	Delivered        int       `json:"delivered"`
	Pruned           int       `json:"pruned"`
	PublishedAt      time.Time `json:"published_at"`
}

// NewEvent constructs an Event for the given payload and cycle outcome.
func NewEvent(p domain.NotificationPayload, summary domain.CycleSummary) Event {
	return Event{
		Title:            p.Title,
		Body:             p.Body,
		URL:              p.TargetURL,
		SourceIdentifier: p.SourceIdentifier,
		Changed:          summary.Changed,
		Forced:           summary.Forced,
		Delivered:        summary.Delivered,
		Pruned:           summary.Pruned,
		PublishedAt:      time.Now().UTC(),
	}
}
