package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samvad-hq/wiredove-notifier/internal/domain"
	"github.com/samvad-hq/wiredove-notifier/internal/logger"
	"github.com/samvad-hq/wiredove-notifier/internal/subscriptions"
)

const (
	apiBasePath     = "/api"
	maxBodyBytes    = 16 << 10
	requestTimeout  = 2 * time.Minute
	contentTypeJSON = "application/json; charset=utf-8"
)

// Triggerer runs a poll cycle on demand.
type Triggerer interface {
	Trigger(ctx context.Context, force bool) (domain.CycleSummary, error)
}

// Registrar manages push recipients.
type Registrar interface {
	Register(ctx context.Context, address string, creds domain.Credentials) (domain.Recipient, bool, error)
	Unregister(ctx context.Context, address string) (bool, error)
}

// Handlers bundles what the routes need.
type Handlers struct {
	Trigger       Triggerer
	Subscriptions Registrar
	PublicKey     string
	Log           logger.Logger
}

// NewRouter mounts the health, key, trigger and subscription routes.
func NewRouter(h Handlers) http.Handler {
	ctrl := &controller{
		trigger:   h.Trigger,
		subs:      h.Subscriptions,
		publicKey: h.PublicKey,
		log:       logger.Ensure(h.Log),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(ctrl.log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", ctrl.health)

	r.Route(apiBasePath, func(r chi.Router) {
		r.Get("/vapid-public-key", ctrl.vapidPublicKey)
		r.Post("/trigger", ctrl.runTrigger)
		r.Post("/subscribe", ctrl.subscribe)
		r.Post("/unsubscribe", ctrl.unsubscribe)
	})

	return r
}

type controller struct {
	trigger   Triggerer
	subs      Registrar
	publicKey string
	log       logger.Logger
}

type subscriptionRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (c *controller) health(w http.ResponseWriter, _ *http.Request) {
	c.resolve(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (c *controller) vapidPublicKey(w http.ResponseWriter, _ *http.Request) {
	c.resolve(w, http.StatusOK, map[string]string{"publicKey": c.publicKey})
}

func (c *controller) runTrigger(w http.ResponseWriter, r *http.Request) {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
	summary, err := c.trigger.Trigger(r.Context(), force)
	if err != nil {
		c.log.ErrorObj("manual trigger failed", "trigger_error", map[string]any{
			"forced": force,
			"error":  err.Error(),
		})
		c.resolve(w, http.StatusInternalServerError, summary)
		return
	}
	c.resolve(w, http.StatusOK, summary)
}

func (c *controller) subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		c.reject(w, http.StatusBadRequest, err)
		return
	}

	rec, created, err := c.subs.Register(r.Context(), req.Endpoint, domain.Credentials{
		P256dh: req.Keys.P256dh,
		Auth:   req.Keys.Auth,
	})
	switch {
	case errors.Is(err, subscriptions.ErrInvalidSubscription):
		c.reject(w, http.StatusBadRequest, err)
		return
	case err != nil:
		c.reject(w, http.StatusInternalServerError, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.resolve(w, status, map[string]any{"id": rec.ID, "created": created})
}

func (c *controller) unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		c.reject(w, http.StatusBadRequest, err)
		return
	}

	removed, err := c.subs.Unregister(r.Context(), req.Endpoint)
	switch {
	case errors.Is(err, subscriptions.ErrInvalidSubscription):
		c.reject(w, http.StatusBadRequest, err)
		return
	case err != nil:
		c.reject(w, http.StatusInternalServerError, err)
		return
	}
	c.resolve(w, http.StatusOK, map[string]bool{"removed": removed})
}

func (c *controller) reject(w http.ResponseWriter, status int, err error) {
	c.resolve(w, status, errorResponse{Error: err.Error()})
}

func (c *controller) resolve(w http.ResponseWriter, status int, body any) {
	b, err := json.Marshal(body)
	if err != nil {
		c.log.ErrorObj("encode response failed", "error", err.Error())
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return errors.New("request body must be a JSON object")
	}
	return nil
}

// requestLogger logs one structured line per request.
func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.InfoObj("http request", "http_meta", map[string]any{
					"request_id":  middleware.GetReqID(r.Context()),
					"method":      r.Method,
					"path":        r.URL.Path,
					"status":      ww.Status(),
					"bytes":       ww.BytesWritten(),
					"remote_addr": r.RemoteAddr,
					"elapsed_ms":  time.Since(start).Milliseconds(),
				})
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
