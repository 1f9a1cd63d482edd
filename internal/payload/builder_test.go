package payload

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/samvad-hq/wiredove-notifier/internal/domain"
)

func TestBuildFromFrontMatter(t *testing.T) {
	b := NewBuilder("https://wiredove.net/", "https://wiredove.net/icon.png")
	p := b.Build(domain.ContentRecord{
		Identifier: "abc123",
		RawText:    "name: Alice\nbody: Hello world",
	})

	if p.Title != "New Wiredove Message from Alice" {
		t.Fatalf("unexpected title %q", p.Title)
	}
	if p.Body != "Hello world" {
		t.Fatalf("unexpected body %q", p.Body)
	}
	if !strings.HasSuffix(p.TargetURL, "#abc123") || p.TargetURL != "https://wiredove.net/#abc123" {
		t.Fatalf("unexpected target url %q", p.TargetURL)
	}
	if p.SourceIdentifier != "abc123" || p.Icon != "https://wiredove.net/icon.png" {
		t.Fatalf("unexpected payload %+v", p)
	}
}

func TestBuildFallsBackOnParseFailure(t *testing.T) {
	b := NewBuilder("https://wiredove.net/", "")
	p := b.Build(domain.ContentRecord{Fingerprint: "f00d", RawText: "just a sentence"})

	if p.Title != DefaultTitle || p.Body != DefaultBody {
		t.Fatalf("expected generic fallback, got %q / %q", p.Title, p.Body)
	}
	if p.TargetURL != "https://wiredove.net/#f00d" {
		t.Fatalf("expected fingerprint fragment, got %q", p.TargetURL)
	}
}

func TestBuildTreatsBlankValuesAsAbsent(t *testing.T) {
	b := NewBuilder("https://wiredove.net/", "")
	p := b.Build(domain.ContentRecord{Identifier: "x", RawText: "name: '   '\nbody: ''"})
	if p.Title != DefaultTitle || p.Body != DefaultBody {
		t.Fatalf("expected fallbacks for blank values, got %q / %q", p.Title, p.Body)
	}

	p = b.Build(domain.ContentRecord{Identifier: "x", RawText: "name: Bob"})
	if p.Title != "New Wiredove Message from Bob" || p.Body != DefaultBody {
		t.Fatalf("expected name with fallback body, got %q / %q", p.Title, p.Body)
	}
}

func TestBuildWithoutKeyUsesBareSite(t *testing.T) {
	b := NewBuilder("https://wiredove.net/#old", "")
	p := b.Build(domain.ContentRecord{})
	if p.TargetURL != "https://wiredove.net/" {
		t.Fatalf("expected bare site url, got %q", p.TargetURL)
	}
}

func TestBuildFlattensMarkupAndTruncates(t *testing.T) {
	b := NewBuilder("https://wiredove.net/", "")
	p := b.Build(domain.ContentRecord{
		Identifier: "x",
		RawText:    "---\nname: Carol\n---\n<p>Hello <b>there</b></p>",
	})
	if p.Body != "Hello there" {
		t.Fatalf("expected flattened body, got %q", p.Body)
	}

	long := strings.Repeat("word ", 100)
	p = b.Build(domain.ContentRecord{Identifier: "x", RawText: "body: " + long})
	if n := utf8.RuneCountInString(p.Body); n > maxBodyRunes {
		t.Fatalf("body not truncated, %d runes", n)
	}
	if !strings.HasSuffix(p.Body, "…") {
		t.Fatalf("expected ellipsis, got %q", p.Body)
	}
}

func TestBuildKeepsFreeFormBodyText(t *testing.T) {
	b := NewBuilder("https://wiredove.net/", "")
	cases := map[string]string{
		"name: Alice\nbody: Reminder: call me": "Reminder: call me",
		"name: Alice\nbody: - milk and eggs":   "- milk and eggs",
		"name: Alice\nbody: #wiredove is live": "#wiredove is live",
	}
	for text, wantBody := range cases {
		p := b.Build(domain.ContentRecord{Identifier: "x", RawText: text})
		if p.Title != "New Wiredove Message from Alice" || p.Body != wantBody {
			t.Fatalf("text %q: got %q / %q", text, p.Title, p.Body)
		}
	}
}

func TestBuildTruncatesLongName(t *testing.T) {
	b := NewBuilder("https://wiredove.net/", "")
	p := b.Build(domain.ContentRecord{Identifier: "x", RawText: "name: " + strings.Repeat("A", 500)})
	if n := utf8.RuneCountInString(p.Title); n > maxTitleRunes {
		t.Fatalf("title not truncated, %d runes", n)
	}
}
