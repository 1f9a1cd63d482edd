package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/samvad-hq/wiredove-notifier/internal/domain"
	"github.com/samvad-hq/wiredove-notifier/internal/logger"
	"github.com/samvad-hq/wiredove-notifier/pkg/push"
)

// Result is the outcome of one dispatch pass. Next is the full recipient
// set to persist, in the original order.
type Result struct {
	Delivered int
	Pruned    int
	Retained  int
	Next      []domain.Recipient
}

// Dispatcher delivers a payload to recipients one at a time.
type Dispatcher struct {
	deliverer push.Deliverer
	log       logger.Logger
	now       func() time.Time
}

// NewDispatcher wires a dispatcher around a delivery capability.
func NewDispatcher(d push.Deliverer, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		deliverer: d,
		log:       logger.Ensure(log),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Dispatch never aborts on a single recipient failure. Recipients whose
// address is gone are left out of Next; all others stay, with
// LastNotifiedAt set on success.
func (d *Dispatcher) Dispatch(ctx context.Context, p domain.NotificationPayload, recipients []domain.Recipient) Result {
	msg := push.NewMessage(p)
	res := Result{Next: make([]domain.Recipient, 0, len(recipients))}

	for i, r := range recipients {
		if ctx.Err() != nil {
			d.log.WarnObj("dispatch interrupted", "dispatch_meta", map[string]any{
				"remaining": len(recipients) - i,
				"error":     ctx.Err().Error(),
			})
			res.Next = append(res.Next, recipients[i:]...)
			res.Retained += len(recipients) - i
			break
		}

		err := d.deliverer.Deliver(ctx, r.Address, r.Credentials, msg)
		switch {
		case err == nil:
			at := d.now()
			r.LastNotifiedAt = &at
			res.Delivered++
			res.Retained++
			res.Next = append(res.Next, r)
		case errors.Is(err, push.ErrAddressGone):
			d.log.InfoObj("recipient pruned", "recipient_pruned", map[string]any{
				"recipient_id": r.ID,
				"reason":       err.Error(),
			})
			res.Pruned++
		default:
			d.log.WarnObj("recipient delivery failed", "delivery_error", map[string]any{
				"recipient_id": r.ID,
				"error":        err.Error(),
			})
			res.Retained++
			res.Next = append(res.Next, r)
		}
	}

	return res
}
