package dispatch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/samvad-hq/wiredove-notifier/internal/domain"
	"github.com/samvad-hq/wiredove-notifier/pkg/push"
)

// fakeDeliverer records calls and returns per-address errors.
type fakeDeliverer struct {
	errs   map[string]error
	calls  []string
	cancel context.CancelFunc
}

func (f *fakeDeliverer) Deliver(_ context.Context, address string, _ domain.Credentials, _ push.Message) error {
	f.calls = append(f.calls, address)
	if f.cancel != nil {
		f.cancel()
	}
	return f.errs[address]
}

func recipients(addrs ...string) []domain.Recipient {
	out := make([]domain.Recipient, len(addrs))
	for i, a := range addrs {
		out[i] = domain.Recipient{ID: "id-" + a, Address: a}
	}
	return out
}

func TestDispatchSelectivePruning(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	deliverer := &fakeDeliverer{errs: map[string]error{
		"b": fmt.Errorf("%w: status 410", push.ErrAddressGone),
	}}
	d := NewDispatcher(deliverer, nil)
	d.now = func() time.Time { return fixed }

	res := d.Dispatch(context.Background(), domain.NotificationPayload{Title: "t"}, recipients("a", "b", "c"))

	if res.Delivered != 2 || res.Pruned != 1 || res.Retained != 2 {
		t.Fatalf("unexpected counts %+v", res)
	}
	if len(res.Next) != 2 || res.Next[0].Address != "a" || res.Next[1].Address != "c" {
		t.Fatalf("unexpected next set %+v", res.Next)
	}
	for _, r := range res.Next {
		if r.LastNotifiedAt == nil || !r.LastNotifiedAt.Equal(fixed) {
			t.Fatalf("expected lastNotifiedAt updated for %s", r.Address)
		}
	}
	if len(deliverer.calls) != 3 {
		t.Fatalf("expected 3 delivery attempts, got %v", deliverer.calls)
	}
}

func TestDispatchRetainsTransientFailuresUnchanged(t *testing.T) {
	deliverer := &fakeDeliverer{errs: map[string]error{
		"a": &push.DeliveryError{StatusCode: 500},
		"b": errors.New("connection reset"),
	}}
	res := NewDispatcher(deliverer, nil).Dispatch(context.Background(), domain.NotificationPayload{}, recipients("a", "b"))

	if res.Delivered != 0 || res.Pruned != 0 || res.Retained != 2 {
		t.Fatalf("unexpected counts %+v", res)
	}
	for _, r := range res.Next {
		if r.LastNotifiedAt != nil {
			t.Fatalf("failed recipient %s must stay unchanged", r.Address)
		}
	}
}

func TestDispatchStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	deliverer := &fakeDeliverer{cancel: cancel}

	res := NewDispatcher(deliverer, nil).Dispatch(ctx, domain.NotificationPayload{}, recipients("a", "b", "c"))

	if len(deliverer.calls) != 1 {
		t.Fatalf("expected a single attempt before cancellation, got %v", deliverer.calls)
	}
	if res.Delivered != 1 || res.Retained != 3 || len(res.Next) != 3 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Next[1].LastNotifiedAt != nil || res.Next[2].LastNotifiedAt != nil {
		t.Fatalf("unattempted recipients must be unchanged")
	}
}

func TestDispatchEmptyRecipients(t *testing.T) {
	res := NewDispatcher(&fakeDeliverer{}, nil).Dispatch(context.Background(), domain.NotificationPayload{}, nil)
	if res.Delivered != 0 || len(res.Next) != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
}
