package feed

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/samvad-hq/wiredove-notifier/internal/domain"
	"github.com/samvad-hq/wiredove-notifier/pkg/httpclient"
)

// UnavailableError reports that the feed could not produce a content record.
type UnavailableError struct {
	Reason string
	Err    error
}

func (e *UnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("feed unavailable: %s: %v", e.Reason, e.Err)
	}
	return "feed unavailable: " + e.Reason
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Fetcher performs one uncached round-trip to the feed resource.
type Fetcher struct {
	url    string
	client httpclient.Client
}

// NewFetcher builds a fetcher for the given feed URL.
func NewFetcher(url string, client httpclient.Client) *Fetcher {
	return &Fetcher{url: strings.TrimSpace(url), client: client}
}

// Fetch reads the feed once and normalizes the body into a content record.
func (f *Fetcher) Fetch(ctx context.Context) (domain.ContentRecord, error) {
	if f == nil || f.client == nil {
		return domain.ContentRecord{}, fmt.Errorf("feed fetcher is not initialized")
	}

	resp, err := f.client.Get(ctx, f.url, map[string]string{
		"Accept":        "application/json, text/plain;q=0.9, */*;q=0.5",
		"Cache-Control": "no-cache",
	})
	if err != nil {
		return domain.ContentRecord{}, &UnavailableError{Reason: domain.ReasonFetchFailed, Err: err}
	}
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return domain.ContentRecord{}, &UnavailableError{
			Reason: domain.ReasonFetchFailed,
			Err:    fmt.Errorf("status %d body: %s", code, responseSnippet(resp.Body())),
		}
	}

	body := resp.Body()
	if len(bytes.TrimSpace(body)) == 0 {
		return domain.ContentRecord{}, &UnavailableError{Reason: domain.ReasonEmptyResponse}
	}

	return Decode(body), nil
}

// Decode classifies a non-empty feed body as a single record, a sequence of
// records, or opaque text.
func Decode(body []byte) domain.ContentRecord {
	if doc, err := decodeJSON(body); err == nil {
		switch v := doc.(type) {
		case map[string]any:
			return recordFromObject(domain.ShapeSingle, v, body)
		case []any:
			if len(v) > 0 {
				if first, ok := v[0].(map[string]any); ok {
					return recordFromObject(domain.ShapeSequence, first, body)
				}
			}
		}
	}

	return domain.ContentRecord{
		Shape:       domain.ShapeText,
		RawText:     string(body),
		Fingerprint: Fingerprint(body),
	}
}

// decodeJSON keeps numbers as json.Number so large integer ids survive intact.
func decodeJSON(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("trailing data after json document")
	}
	return doc, nil
}

// Fingerprint hashes the raw response bytes.
func Fingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func recordFromObject(shape domain.Shape, obj map[string]any, body []byte) domain.ContentRecord {
	rec := domain.ContentRecord{
		Shape:      shape,
		Raw:        obj,
		Identifier: identifierOf(obj),
		RawText:    firstString(obj, textFields...),
		Author:     firstString(obj, authorFields...),
		ObservedAt: observedAt(obj),
	}
	if rec.Identifier == "" {
		rec.Fingerprint = Fingerprint(body)
	}
	return rec
}

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
