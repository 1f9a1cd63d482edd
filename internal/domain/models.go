package domain

import "time"

// Domain contains core models shared by the fetch, dispatch and storage layers.

// Shape tags how the feed body was decoded.
type Shape string

const (
	ShapeSingle   Shape = "single"
	ShapeSequence Shape = "sequence"
	ShapeText     Shape = "text"
)

// ContentRecord is a snapshot of the feed at fetch time. Exactly one of
// Identifier or Fingerprint is set.
type ContentRecord struct {
	Shape       Shape          `json:"shape"`
	Identifier  string         `json:"identifier,omitempty"`
	Fingerprint string         `json:"fingerprint,omitempty"`
	RawText     string         `json:"rawText,omitempty"`
	Author      string         `json:"author,omitempty"`
	ObservedAt  *time.Time     `json:"observedAt,omitempty"`
	Raw         map[string]any `json:"raw,omitempty"`
}

// Key returns the authoritative dedup key of the record.
func (r ContentRecord) Key() string {
	if r.Identifier != "" {
		return r.Identifier
	}
	return r.Fingerprint
}

// DedupMarker points at the last content version already handled.
type DedupMarker struct {
	LastSeenIdentifier  string `json:"lastSeenIdentifier,omitempty"`
	LastSeenFingerprint string `json:"lastSeenFingerprint,omitempty"`
}

// IsZero reports whether no content has been handled yet.
func (m DedupMarker) IsZero() bool {
	return m.LastSeenIdentifier == "" && m.LastSeenFingerprint == ""
}

// Credentials are the subscription keys required by the push protocol.
type Credentials struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// Recipient is one registered push target.
type Recipient struct {
	ID             string      `json:"id"`
	Address        string      `json:"address"`
	Credentials    Credentials `json:"credentials"`
	CreatedAt      time.Time   `json:"createdAt"`
	LastNotifiedAt *time.Time  `json:"lastNotifiedAt,omitempty"`
}

// NotificationPayload is built fresh for every dispatch and never persisted.
type NotificationPayload struct {
	Title            string        `json:"title"`
	Body             string        `json:"body"`
	TargetURL        string        `json:"url"`
	SourceIdentifier string        `json:"sourceIdentifier,omitempty"`
	Icon             string        `json:"icon,omitempty"`
	Record           ContentRecord `json:"-"`
}

// CycleSummary is what every trigger reports back.
type CycleSummary struct {
	Changed    bool          `json:"changed"`
	Forced     bool          `json:"forced"`
	Delivered  int           `json:"delivered"`
	Pruned     int           `json:"pruned"`
	Retained   int           `json:"retained"`
	Reason     string        `json:"reason,omitempty"`
	Identifier string        `json:"identifier,omitempty"`
	StartedAt  time.Time     `json:"startedAt"`
	Elapsed    time.Duration `json:"elapsedNs"`
}

// Reasons reported when a cycle delivers nothing.
const (
	ReasonFetchFailed    = "fetch failed"
	ReasonEmptyResponse  = "empty response"
	ReasonNoNewContent   = "no new content"
	ReasonNoRecipients   = "no recipients"
	ReasonDeliveryFailed = "delivery failed"
	ReasonStorageError   = "storage error"
)
