package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samvad-hq/wiredove-notifier/internal/dispatch"
	"github.com/samvad-hq/wiredove-notifier/internal/domain"
	"github.com/samvad-hq/wiredove-notifier/internal/feed"
	"github.com/samvad-hq/wiredove-notifier/internal/logger"
	"github.com/samvad-hq/wiredove-notifier/internal/storage"
	"github.com/samvad-hq/wiredove-notifier/pkg/publishers"
)

// ContentFetcher reads the feed once.
type ContentFetcher interface {
	Fetch(ctx context.Context) (domain.ContentRecord, error)
}

// PayloadBuilder turns a record into a notification.
type PayloadBuilder interface {
	Build(rec domain.ContentRecord) domain.NotificationPayload
}

// RecipientDispatcher delivers a payload to every recipient.
type RecipientDispatcher interface {
	Dispatch(ctx context.Context, p domain.NotificationPayload, recipients []domain.Recipient) dispatch.Result
}

// EventPublisher mirrors dispatched payloads downstream.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// Deps are the collaborators of one poll cycle.
type Deps struct {
	Fetcher    ContentFetcher
	Builder    PayloadBuilder
	Dispatcher RecipientDispatcher
	Dedup      storage.DedupStore
	Recipients storage.RecipientStore
	Mirror     EventPublisher
	Log        logger.Logger
}

// Cycle runs fetch, classify, build and dispatch. It holds no state of its
// own between runs; callers serialize invocations.
type Cycle struct {
	deps Deps
	log  logger.Logger
	now  func() time.Time
}

// NewCycle validates deps and returns a cycle.
func NewCycle(deps Deps) (*Cycle, error) {
	if deps.Fetcher == nil || deps.Builder == nil || deps.Dispatcher == nil {
		return nil, errors.New("poll cycle requires fetcher, builder and dispatcher")
	}
	if deps.Dedup == nil || deps.Recipients == nil {
		return nil, errors.New("poll cycle requires dedup and recipient stores")
	}
	return &Cycle{
		deps: deps,
		log:  logger.Ensure(deps.Log),
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

// Run executes one cycle. With force set, unchanged content is still
// dispatched but the dedup marker is left untouched. The summary is always
// populated; err is non-nil only for storage failures.
func (c *Cycle) Run(ctx context.Context, force bool) (domain.CycleSummary, error) {
	summary := domain.CycleSummary{Forced: force, StartedAt: c.now()}

	rec, err := c.deps.Fetcher.Fetch(ctx)
	if err != nil {
		var unavailable *feed.UnavailableError
		if errors.As(err, &unavailable) {
			summary.Reason = unavailable.Reason
		} else {
			summary.Reason = domain.ReasonFetchFailed
		}
		c.log.WarnObj("feed unavailable", "fetch_error", map[string]any{
			"reason": summary.Reason,
			"error":  err.Error(),
		})
		return c.finish(summary), nil
	}
	summary.Identifier = rec.Key()

	stored, err := c.deps.Dedup.LoadMarker(ctx)
	if err != nil {
		return c.storageFailure(summary, fmt.Errorf("load dedup marker: %w", err))
	}
	if stored.IsZero() {
		c.log.InfoObj("no dedup marker stored; first content is new", "dedup_meta", map[string]any{
			"identifier": summary.Identifier,
		})
	}

	verdict := feed.Classify(rec, stored)
	summary.Changed = verdict.IsNew
	if !verdict.IsNew && !force {
		summary.Reason = domain.ReasonNoNewContent
		return c.finish(summary), nil
	}

	if verdict.IsNew {
		if err := c.deps.Dedup.SaveMarker(ctx, *verdict.Marker); err != nil {
			return c.storageFailure(summary, fmt.Errorf("save dedup marker: %w", err))
		}
	}

	recipients, err := c.deps.Recipients.ListRecipients(ctx)
	if err != nil {
		return c.storageFailure(summary, fmt.Errorf("list recipients: %w", err))
	}
	if len(recipients) == 0 {
		summary.Reason = domain.ReasonNoRecipients
		return c.finish(summary), nil
	}

	payload := c.deps.Builder.Build(rec)
	res := c.deps.Dispatcher.Dispatch(ctx, payload, recipients)
	summary.Delivered = res.Delivered
	summary.Pruned = res.Pruned
	summary.Retained = res.Retained

	if err := c.deps.Recipients.ReplaceAll(ctx, res.Next); err != nil {
		return c.storageFailure(summary, fmt.Errorf("persist recipients: %w", err))
	}

	if res.Delivered == 0 {
		summary.Reason = domain.ReasonDeliveryFailed
	}

	c.mirror(ctx, payload, summary)
	return c.finish(summary), nil
}

func (c *Cycle) mirror(ctx context.Context, p domain.NotificationPayload, summary domain.CycleSummary) {
	if c.deps.Mirror == nil {
		return
	}
	if _, err := c.deps.Mirror.Publish(ctx, publishers.NewEvent(p, summary)); err != nil {
		c.log.WarnObj("mirror publish failed", "mirror_error", map[string]any{
			"source_identifier": p.SourceIdentifier,
			"error":             err.Error(),
		})
	}
}

func (c *Cycle) storageFailure(summary domain.CycleSummary, err error) (domain.CycleSummary, error) {
	summary.Reason = domain.ReasonStorageError
	c.log.ErrorObj("poll cycle storage failure", "storage_error", map[string]any{
		"identifier": summary.Identifier,
		"error":      err.Error(),
	})
	return c.finish(summary), err
}

func (c *Cycle) finish(summary domain.CycleSummary) domain.CycleSummary {
	summary.Elapsed = time.Since(summary.StartedAt)
	c.log.InfoObj("poll cycle completed", "cycle_summary", summary)
	return summary
}
