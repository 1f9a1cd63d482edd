package subscriptions

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samvad-hq/wiredove-notifier/internal/domain"
	"github.com/samvad-hq/wiredove-notifier/internal/logger"
	"github.com/samvad-hq/wiredove-notifier/internal/storage"
)

// ErrInvalidSubscription is returned when a registration request is malformed.
var ErrInvalidSubscription = errors.New("invalid subscription")

// recipientNamespace scopes recipient IDs derived from addresses.
var recipientNamespace = uuid.MustParse("6f1c1a52-3d0e-5b7a-9a43-2c51e0d5f7b1")

// RecipientID derives the stable recipient id for an address.
func RecipientID(address string) string {
	return uuid.NewSHA1(recipientNamespace, []byte(strings.TrimSpace(address))).String()
}

// Service registers and unregisters push recipients.
type Service struct {
	store storage.RecipientStore
	log   logger.Logger
	now   func() time.Time
}

// NewService wires the registration service to a recipient store.
func NewService(store storage.RecipientStore, log logger.Logger) *Service {
	return &Service{
		store: store,
		log:   logger.Ensure(log),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Register stores a recipient for address unless one already exists; an
// existing recipient keeps its original credentials.
func (s *Service) Register(ctx context.Context, address string, creds domain.Credentials) (domain.Recipient, bool, error) {
	address = strings.TrimSpace(address)
	creds = domain.Credentials{
		P256dh: strings.TrimSpace(creds.P256dh),
		Auth:   strings.TrimSpace(creds.Auth),
	}
	if err := validate(address, creds); err != nil {
		return domain.Recipient{}, false, err
	}

	r := domain.Recipient{
		ID:          RecipientID(address),
		Address:     address,
		Credentials: creds,
		CreatedAt:   s.now(),
	}
	created, err := s.store.UpsertIfAbsent(ctx, r)
	if err != nil {
		return domain.Recipient{}, false, fmt.Errorf("store recipient: %w", err)
	}
	s.log.InfoObj("recipient registered", "recipient_meta", map[string]any{
		"recipient_id": r.ID,
		"created":      created,
	})
	return r, created, nil
}

// Unregister removes the recipient for address. Unknown addresses are not an error.
func (s *Service) Unregister(ctx context.Context, address string) (bool, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return false, fmt.Errorf("%w: endpoint is required", ErrInvalidSubscription)
	}
	id := RecipientID(address)
	removed, err := s.store.RemoveByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("remove recipient: %w", err)
	}
	s.log.InfoObj("recipient unregistered", "recipient_meta", map[string]any{
		"recipient_id": id,
		"removed":      removed,
	})
	return removed, nil
}

func validate(address string, creds domain.Credentials) error {
	if address == "" {
		return fmt.Errorf("%w: endpoint is required", ErrInvalidSubscription)
	}
	u, err := url.Parse(address)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("%w: endpoint must be an absolute https url", ErrInvalidSubscription)
	}
	if !isBase64URL(creds.P256dh) {
		return fmt.Errorf("%w: keys.p256dh is required", ErrInvalidSubscription)
	}
	if !isBase64URL(creds.Auth) {
		return fmt.Errorf("%w: keys.auth is required", ErrInvalidSubscription)
	}
	return nil
}

func isBase64URL(s string) bool {
	if s == "" {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	return err == nil
}
