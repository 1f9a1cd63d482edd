package feed

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/samvad-hq/wiredove-notifier/internal/domain"
	"github.com/samvad-hq/wiredove-notifier/pkg/httpclient"
)

// stubHTTPResponse implements httpclient.Response.
type stubHTTPResponse struct {
	body       []byte
	statusCode int
}

func (s stubHTTPResponse) Body() []byte        { return s.body }
func (s stubHTTPResponse) StatusCode() int     { return s.statusCode }
func (s stubHTTPResponse) Header() http.Header { return http.Header{} }

// stubHTTPClient returns a single response or error.
type stubHTTPClient struct {
	resp    httpclient.Response
	err     error
	headers map[string]string
}

func (s *stubHTTPClient) Get(_ context.Context, _ string, headers map[string]string) (httpclient.Response, error) {
	s.headers = headers
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func fetchBody(t *testing.T, status int, body string) (domain.ContentRecord, error) {
	t.Helper()
	client := &stubHTTPClient{resp: stubHTTPResponse{body: []byte(body), statusCode: status}}
	return NewFetcher("https://feed.example.com/latest", client).Fetch(context.Background())
}

func TestFetchSingleObject(t *testing.T) {
	rec, err := fetchBody(t, 200, `{"hash":"abc123","text":"name: Alice\nbody: Hello world","author":"alice"}`)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if rec.Shape != domain.ShapeSingle {
		t.Fatalf("expected single shape, got %s", rec.Shape)
	}
	if rec.Identifier != "abc123" || rec.Fingerprint != "" {
		t.Fatalf("unexpected keys id=%q fp=%q", rec.Identifier, rec.Fingerprint)
	}
	if rec.RawText != "name: Alice\nbody: Hello world" || rec.Author != "alice" {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestFetchSequenceUsesFirstElement(t *testing.T) {
	rec, err := fetchBody(t, 200, `[{"id":"first","text":"one"},{"id":"second","text":"two"}]`)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if rec.Shape != domain.ShapeSequence || rec.Identifier != "first" || rec.RawText != "one" {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestFetchOpaqueTextFallsBackToFingerprint(t *testing.T) {
	rec, err := fetchBody(t, 200, "just some words")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if rec.Shape != domain.ShapeText || rec.Identifier != "" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.Fingerprint != Fingerprint([]byte("just some words")) {
		t.Fatalf("fingerprint does not match raw bytes")
	}
}

func TestFetchObjectWithoutIdentifierIsFingerprinted(t *testing.T) {
	body := `{"text":"hello"}`
	rec, err := fetchBody(t, 200, body)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if rec.Identifier != "" || rec.Fingerprint != Fingerprint([]byte(body)) {
		t.Fatalf("expected fingerprint fallback, got %+v", rec)
	}
}

func TestFetchEmptyArrayIsOpaque(t *testing.T) {
	rec, err := fetchBody(t, 200, `[]`)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if rec.Shape != domain.ShapeText {
		t.Fatalf("expected text shape, got %s", rec.Shape)
	}
}

func TestFetchClassifiesUnavailable(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		reason string
	}{
		{name: "server error", status: 500, body: "oops", reason: domain.ReasonFetchFailed},
		{name: "not found", status: 404, body: "", reason: domain.ReasonFetchFailed},
		{name: "empty", status: 200, body: "  \n", reason: domain.ReasonEmptyResponse},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fetchBody(t, tc.status, tc.body)
			var unavailable *UnavailableError
			if !errors.As(err, &unavailable) {
				t.Fatalf("expected UnavailableError, got %v", err)
			}
			if unavailable.Reason != tc.reason {
				t.Fatalf("reason = %q, want %q", unavailable.Reason, tc.reason)
			}
		})
	}
}

func TestFetchTransportErrorIsUnavailable(t *testing.T) {
	boom := errors.New("dial tcp: refused")
	client := &stubHTTPClient{err: boom}
	_, err := NewFetcher("https://feed.example.com", client).Fetch(context.Background())
	var unavailable *UnavailableError
	if !errors.As(err, &unavailable) || unavailable.Reason != domain.ReasonFetchFailed {
		t.Fatalf("expected fetch failed, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped transport error")
	}
}

func TestFetchSendsNoCacheHeader(t *testing.T) {
	client := &stubHTTPClient{resp: stubHTTPResponse{body: []byte(`{"id":"1"}`), statusCode: 200}}
	if _, err := NewFetcher("https://feed.example.com", client).Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if client.headers["Cache-Control"] != "no-cache" {
		t.Fatalf("expected no-cache header, got %v", client.headers)
	}
}
