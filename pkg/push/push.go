package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/samvad-hq/wiredove-notifier/internal/domain"
)

// Package push is the delivery boundary: hand a message to one subscription
// endpoint, or fail with a classified error.

// ErrAddressGone marks a subscription endpoint that is permanently invalid.
var ErrAddressGone = errors.New("push address gone")

// DeliveryError is any non-terminal delivery failure reported by the push service.
type DeliveryError struct {
	StatusCode int
	Body       string
}

func (e *DeliveryError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("push service responded %d", e.StatusCode)
	}
	return fmt.Sprintf("push service responded %d: %s", e.StatusCode, e.Body)
}

// MaxMessageBytes bounds the JSON message handed to encryption, leaving
// room under the 4096-byte Web Push record for the encryption header.
const MaxMessageBytes = 3072

// RecordRef describes the source record without its text, which can be
// arbitrarily large.
type RecordRef struct {
	Shape       domain.Shape `json:"shape"`
	Identifier  string       `json:"identifier,omitempty"`
	Fingerprint string       `json:"fingerprint,omitempty"`
	Author      string       `json:"author,omitempty"`
	ObservedAt  *time.Time   `json:"observedAt,omitempty"`
}

// Message is the structured object pushed to the client.
type Message struct {
	Title            string     `json:"title"`
	Body             string     `json:"body"`
	URL              string     `json:"url"`
	SourceIdentifier string     `json:"sourceIdentifier,omitempty"`
	Icon             string     `json:"icon,omitempty"`
	OriginalRecord   *RecordRef `json:"originalRecord,omitempty"`
}

// NewMessage converts a notification payload into the wire message.
func NewMessage(p domain.NotificationPayload) Message {
	return Message{
		Title:            p.Title,
		Body:             p.Body,
		URL:              p.TargetURL,
		SourceIdentifier: p.SourceIdentifier,
		Icon:             p.Icon,
		OriginalRecord: &RecordRef{
			Shape:       p.Record.Shape,
			Identifier:  p.Record.Identifier,
			Fingerprint: p.Record.Fingerprint,
			Author:      p.Record.Author,
			ObservedAt:  p.Record.ObservedAt,
		},
	}
}

// Encode marshals msg, dropping the record reference when the message would
// not fit in one push record. It fails only if the message is still too large.
func Encode(msg Message) ([]byte, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal push message: %w", err)
	}
	if len(body) <= MaxMessageBytes {
		return body, nil
	}
	if msg.OriginalRecord != nil {
		msg.OriginalRecord = nil
		return Encode(msg)
	}
	return nil, fmt.Errorf("push message is %d bytes, limit %d", len(body), MaxMessageBytes)
}

// Deliverer sends one message to one subscription endpoint.
type Deliverer interface {
	Deliver(ctx context.Context, address string, creds domain.Credentials, msg Message) error
}

// IsAddressGone reports whether the status code means the endpoint expired
// or was unregistered.
func IsAddressGone(status int) bool {
	return status == 404 || status == 410
}
