package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/samvad-hq/wiredove-notifier/internal/domain"
	bolt "go.etcd.io/bbolt"
)

const (
	recipientsBucket = "recipients"
	recipientsKey    = "all"
	dedupBucket      = "dedup"
	markerKey        = "marker"
)

// boltStore implements a Store backed by BoltDB. Each record is a single
// JSON document under its own bucket.
type boltStore struct {
	db *bolt.DB
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{recipientsBucket, dedupBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}

	return &boltStore{db: db}, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *boltStore) ListRecipients(_ context.Context) ([]domain.Recipient, error) {
	var out []domain.Recipient
	err := b.db.View(func(tx *bolt.Tx) error {
		var err error
		out, err = readRecipients(tx)
		return err
	})
	return out, err
}

func (b *boltStore) UpsertIfAbsent(_ context.Context, r domain.Recipient) (bool, error) {
	var created bool
	err := b.db.Update(func(tx *bolt.Tx) error {
		current, err := readRecipients(tx)
		if err != nil {
			return err
		}
		next, added := upsert(current, r)
		if !added {
			return nil
		}
		created = true
		return writeRecipients(tx, next)
	})
	return created, err
}

func (b *boltStore) RemoveByID(_ context.Context, id string) (bool, error) {
	var removed bool
	err := b.db.Update(func(tx *bolt.Tx) error {
		current, err := readRecipients(tx)
		if err != nil {
			return err
		}
		next, ok := without(current, id)
		if !ok {
			return nil
		}
		removed = true
		return writeRecipients(tx, next)
	})
	return removed, err
}

func (b *boltStore) ReplaceAll(_ context.Context, recipients []domain.Recipient) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return writeRecipients(tx, recipients)
	})
}

func (b *boltStore) LoadMarker(_ context.Context) (domain.DedupMarker, error) {
	var marker domain.DedupMarker
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(dedupBucket))
		if bucket == nil {
			return fmt.Errorf("dedup bucket missing")
		}
		raw := bucket.Get([]byte(markerKey))
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &marker); err != nil {
			return fmt.Errorf("decode dedup marker: %w", err)
		}
		return nil
	})
	return marker, err
}

func (b *boltStore) SaveMarker(_ context.Context, marker domain.DedupMarker) error {
	raw, err := json.Marshal(marker)
	if err != nil {
		return fmt.Errorf("encode dedup marker: %w", err)
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(dedupBucket))
		if bucket == nil {
			return fmt.Errorf("dedup bucket missing")
		}
		return bucket.Put([]byte(markerKey), raw)
	})
}

func readRecipients(tx *bolt.Tx) ([]domain.Recipient, error) {
	bucket := tx.Bucket([]byte(recipientsBucket))
	if bucket == nil {
		return nil, fmt.Errorf("recipients bucket missing")
	}
	raw := bucket.Get([]byte(recipientsKey))
	if raw == nil {
		return []domain.Recipient{}, nil
	}
	var out []domain.Recipient
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode recipients: %w", err)
	}
	return out, nil
}

func writeRecipients(tx *bolt.Tx, recipients []domain.Recipient) error {
	bucket := tx.Bucket([]byte(recipientsBucket))
	if bucket == nil {
		return fmt.Errorf("recipients bucket missing")
	}
	if recipients == nil {
		recipients = []domain.Recipient{}
	}
	raw, err := json.Marshal(recipients)
	if err != nil {
		return fmt.Errorf("encode recipients: %w", err)
	}
	return bucket.Put([]byte(recipientsKey), raw)
}
