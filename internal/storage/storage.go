package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/samvad-hq/wiredove-notifier/internal/domain"
)

// Package storage persists the recipient set and the dedup marker. Both
// records are rewritten wholesale on every mutation.

// RecipientStore holds the registered push recipients in registration order.
type RecipientStore interface {
	ListRecipients(ctx context.Context) ([]domain.Recipient, error)
	// UpsertIfAbsent stores r unless a recipient with the same ID exists.
	// Existing recipients are never overwritten.
	UpsertIfAbsent(ctx context.Context, r domain.Recipient) (bool, error)
	RemoveByID(ctx context.Context, id string) (bool, error)
	ReplaceAll(ctx context.Context, recipients []domain.Recipient) error
}

// DedupStore holds the last handled content marker.
type DedupStore interface {
	LoadMarker(ctx context.Context) (domain.DedupMarker, error)
	SaveMarker(ctx context.Context, marker domain.DedupMarker) error
}

// Store bundles both persisted records behind one backend.
type Store interface {
	RecipientStore
	DedupStore
	Close() error
}

const (
	TypeBBolt  = "bbolt"
	TypeMemory = "memory"
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))

	switch typ {
	case TypeMemory:
		return NewMemoryStore(), nil
	case "", TypeBBolt:
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

// upsert returns the next recipient list and whether r was added.
func upsert(current []domain.Recipient, r domain.Recipient) ([]domain.Recipient, bool) {
	for _, existing := range current {
		if existing.ID == r.ID {
			return current, false
		}
	}
	return append(current, r), true
}

// without returns the list minus the recipient with the given id.
func without(current []domain.Recipient, id string) ([]domain.Recipient, bool) {
	out := make([]domain.Recipient, 0, len(current))
	removed := false
	for _, r := range current {
		if r.ID == id {
			removed = true
			continue
		}
		out = append(out, r)
	}
	return out, removed
}

func cloneRecipients(in []domain.Recipient) []domain.Recipient {
	if len(in) == 0 {
		return []domain.Recipient{}
	}
	out := make([]domain.Recipient, len(in))
	for i, r := range in {
		if r.LastNotifiedAt != nil {
			t := *r.LastNotifiedAt
			r.LastNotifiedAt = &t
		}
		out[i] = r
	}
	return out
}
