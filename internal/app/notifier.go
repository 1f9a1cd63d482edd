package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/samvad-hq/wiredove-notifier/internal/api"
	"github.com/samvad-hq/wiredove-notifier/internal/config"
	"github.com/samvad-hq/wiredove-notifier/internal/dispatch"
	"github.com/samvad-hq/wiredove-notifier/internal/domain"
	"github.com/samvad-hq/wiredove-notifier/internal/feed"
	"github.com/samvad-hq/wiredove-notifier/internal/logger"
	"github.com/samvad-hq/wiredove-notifier/internal/payload"
	"github.com/samvad-hq/wiredove-notifier/internal/poller"
	"github.com/samvad-hq/wiredove-notifier/internal/storage"
	"github.com/samvad-hq/wiredove-notifier/internal/subscriptions"
	"github.com/samvad-hq/wiredove-notifier/pkg/httpclient"
	"github.com/samvad-hq/wiredove-notifier/pkg/publishers"
	"github.com/samvad-hq/wiredove-notifier/pkg/push"
	"golang.org/x/sync/singleflight"
)

const shutdownTimeout = 10 * time.Second

// cycleRunner is the poll cycle as seen by the runtime.
type cycleRunner interface {
	Run(ctx context.Context, force bool) (domain.CycleSummary, error)
}

// Notifier is the notifier runtime. It owns the store, the mirror sinks and
// the HTTP server, and funnels every trigger through one single-flight gate.
type Notifier struct {
	cfg      *config.Config
	log      logger.Logger
	store    storage.Store
	fanout   *publishers.Fanout
	cycle    cycleRunner
	handler  http.Handler
	interval time.Duration

	flight   singleflight.Group
	runMu    sync.Mutex
	lifetime context.Context
}

// NewNotifier builds a notifier runtime from config.
func NewNotifier(ctx context.Context, cfg *config.Config, log logger.Logger) (*Notifier, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	keys, err := push.LoadVAPIDKeys(cfg.VAPIDKeysFile, cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("load vapid keys: %w", err)
	}
	deliverer, err := push.NewWebPush(push.WebPushConfig{
		Keys:       keys,
		Subscriber: cfg.VAPIDSubject,
		TTLSeconds: cfg.PushTTLSeconds,
		Timeout:    cfg.PushTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("init web push: %w", err)
	}

	fanout, err := publishers.OpenSinks(ctx, cfg.SinksFile, log)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath)
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type": cfg.StorageType,
		"path": cfg.BBoltPath,
	})

	cycle, err := poller.NewCycle(poller.Deps{
		Fetcher:    feed.NewFetcher(cfg.FeedURL, httpclient.NewRestyClient(cfg.FetchTimeout)),
		Builder:    payload.NewBuilder(cfg.SiteURL, cfg.IconURL),
		Dispatcher: dispatch.NewDispatcher(deliverer, log),
		Dedup:      store,
		Recipients: store,
		Mirror:     fanout,
		Log:        log,
	})
	if err != nil {
		_ = fanout.Close()
		_ = store.Close()
		return nil, fmt.Errorf("init poll cycle: %w", err)
	}

	n := newNotifier(cfg, log, store, fanout, cycle)
	n.handler = api.NewRouter(api.Handlers{
		Trigger:       n,
		Subscriptions: subscriptions.NewService(store, log),
		PublicKey:     keys.PublicKey,
		Log:           log,
	})
	return n, nil
}

func newNotifier(cfg *config.Config, log logger.Logger, store storage.Store, fanout *publishers.Fanout, cycle cycleRunner) *Notifier {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = time.Minute
	}
	return &Notifier{
		cfg:      cfg,
		log:      logger.Ensure(log),
		store:    store,
		fanout:   fanout,
		cycle:    cycle,
		interval: interval,
		lifetime: context.Background(),
	}
}

// Handler exposes the HTTP routes.
func (n *Notifier) Handler() http.Handler {
	return n.handler
}

// Trigger runs one poll cycle. Concurrent triggers of the same kind share
// the in-flight cycle and different kinds wait their turn, so at most one
// cycle runs at a time. The cycle itself is bound to the runtime lifetime,
// not to ctx; ctx only bounds how long the caller waits.
func (n *Notifier) Trigger(ctx context.Context, force bool) (domain.CycleSummary, error) {
	key := "soft"
	if force {
		key = "forced"
	}
	ch := n.flight.DoChan(key, func() (any, error) {
		n.runMu.Lock()
		defer n.runMu.Unlock()
		return n.cycle.Run(n.lifetime, force)
	})

	select {
	case <-ctx.Done():
		return domain.CycleSummary{Forced: force}, ctx.Err()
	case res := <-ch:
		summary, _ := res.Val.(domain.CycleSummary)
		return summary, res.Err
	}
}

// Run serves HTTP and polls until ctx is cancelled.
func (n *Notifier) Run(ctx context.Context) error {
	if n == nil || n.cycle == nil {
		return fmt.Errorf("notifier is not initialized")
	}
	defer n.closeResources()
	n.lifetime = ctx

	ln, err := net.Listen("tcp", n.cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", n.cfg.HTTPAddr, err)
	}
	srv := &http.Server{Handler: n.handler, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	defer n.shutdown(srv)

	n.log.InfoObj("notifier loop starting", "notifier_state", map[string]any{
		"feed_url":       n.cfg.FeedURL,
		"http_addr":      ln.Addr().String(),
		"sinks_count":    n.fanout.Size(),
		"poll_interval":  n.interval.String(),
		"storage_type":   n.cfg.StorageType,
		"push_timeout":   n.cfg.PushTimeout.String(),
		"fetch_timeout":  n.cfg.FetchTimeout.String(),
		"push_ttl_secs":  n.cfg.PushTTLSeconds,
		"vapid_subject":  n.cfg.VAPIDSubject,
		"site_url":       n.cfg.SiteURL,
		"icon_url":       n.cfg.IconURL,
		"sinks_file":     n.cfg.SinksFile,
		"vapid_key_file": n.cfg.VAPIDKeysFile,
	})

	n.runScheduled(ctx, "initial poll failed")

	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			n.log.InfoObj("notifier loop exiting", "reason", ctx.Err().Error())
			return nil
		case err, ok := <-serveErr:
			if ok && err != nil {
				return fmt.Errorf("http server: %w", err)
			}
			serveErr = nil
		case <-ticker.C:
			n.runScheduled(ctx, "scheduled poll failed")
		}
	}
}

func (n *Notifier) runScheduled(ctx context.Context, failMsg string) {
	if _, err := n.Trigger(ctx, false); err != nil && ctx.Err() == nil {
		n.log.ErrorObj(failMsg, "error", err.Error())
	}
}

func (n *Notifier) shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		n.log.ErrorObj("http server shutdown failed", "error", err.Error())
	}
}

// closeResources waits for any in-flight cycle, then releases the sinks and
// the store.
func (n *Notifier) closeResources() {
	n.runMu.Lock()
	defer n.runMu.Unlock()
	if err := n.fanout.Close(); err != nil {
		n.log.ErrorObj("mirror sinks close failed", "error", err.Error())
	}
	if n.store == nil {
		return
	}
	if err := n.store.Close(); err != nil {
		n.log.ErrorObj("storage close failed", "error", err.Error())
	}
}
