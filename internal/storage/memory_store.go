package storage

import (
	"context"
	"sync"

	"github.com/samvad-hq/wiredove-notifier/internal/domain"
)

// MemoryStore keeps both records in process memory.
type MemoryStore struct {
	mu         sync.RWMutex
	recipients []domain.Recipient
	marker     domain.DedupMarker
}

// NewMemoryStore returns an empty in-memory Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recipients: []domain.Recipient{}}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) ListRecipients(context.Context) ([]domain.Recipient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneRecipients(m.recipients), nil
}

func (m *MemoryStore) UpsertIfAbsent(_ context.Context, r domain.Recipient) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, added := upsert(cloneRecipients(m.recipients), r)
	m.recipients = next
	return added, nil
}

func (m *MemoryStore) RemoveByID(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, removed := without(m.recipients, id)
	m.recipients = next
	return removed, nil
}

func (m *MemoryStore) ReplaceAll(_ context.Context, recipients []domain.Recipient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recipients = cloneRecipients(recipients)
	return nil
}

func (m *MemoryStore) LoadMarker(context.Context) (domain.DedupMarker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.marker, nil
}

func (m *MemoryStore) SaveMarker(_ context.Context, marker domain.DedupMarker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marker = marker
	return nil
}
