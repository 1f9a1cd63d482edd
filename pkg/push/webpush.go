package push

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/samvad-hq/wiredove-notifier/internal/domain"
	"github.com/samvad-hq/wiredove-notifier/pkg/httpclient"
)

const maxErrorBodyBytes = 512

// WebPushConfig configures VAPID-signed Web Push delivery.
type WebPushConfig struct {
	Keys       VAPIDKeys
	Subscriber string
	TTLSeconds int
	Timeout    time.Duration
}

// WebPush delivers messages with the Web Push protocol.
type WebPush struct {
	keys       VAPIDKeys
	subscriber string
	ttl        int
	client     webpush.HTTPClient
}

// NewWebPush builds a Web Push deliverer. The keys are read-only here; they
// are provisioned out of band.
func NewWebPush(cfg WebPushConfig) (*WebPush, error) {
	if err := cfg.Keys.Validate(); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebPush{
		keys:       cfg.Keys,
		subscriber: strings.TrimPrefix(strings.TrimSpace(cfg.Subscriber), "mailto:"),
		ttl:        cfg.TTLSeconds,
		client:     httpclient.NewStdClient(timeout),
	}, nil
}

// Deliver encrypts and sends msg to the subscription endpoint.
func (w *WebPush) Deliver(ctx context.Context, address string, creds domain.Credentials, msg Message) error {
	body, err := Encode(msg)
	if err != nil {
		return err
	}

	sub := &webpush.Subscription{
		Endpoint: address,
		Keys: webpush.Keys{
			P256dh: creds.P256dh,
			Auth:   creds.Auth,
		},
	}
	resp, err := webpush.SendNotificationWithContext(ctx, body, sub, &webpush.Options{
		HTTPClient:      w.client,
		Subscriber:      w.subscriber,
		TTL:             w.ttl,
		Urgency:         webpush.UrgencyNormal,
		VAPIDPublicKey:  w.keys.PublicKey,
		VAPIDPrivateKey: w.keys.PrivateKey,
	})
	if err != nil {
		return fmt.Errorf("send web push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if IsAddressGone(resp.StatusCode) {
		return fmt.Errorf("%w: status %d", ErrAddressGone, resp.StatusCode)
	}
	return &DeliveryError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
}
