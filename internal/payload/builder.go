package payload

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/samvad-hq/wiredove-notifier/internal/domain"
)

const (
	DefaultTitle = "New message"
	DefaultBody  = "Tap to view the latest update"

	titlePrefix   = "New Wiredove Message from "
	maxTitleRunes = 100
	maxBodyRunes  = 180
)

// Builder turns content records into recipient-facing notifications.
type Builder struct {
	siteURL string
	iconURL string
}

// NewBuilder returns a builder linking notifications back to siteURL.
func NewBuilder(siteURL, iconURL string) *Builder {
	return &Builder{
		siteURL: strings.TrimSpace(siteURL),
		iconURL: strings.TrimSpace(iconURL),
	}
}

// Build never fails: unparseable text degrades to the generic title and body.
func (b *Builder) Build(rec domain.ContentRecord) domain.NotificationPayload {
	p := domain.NotificationPayload{
		Title:            DefaultTitle,
		Body:             DefaultBody,
		TargetURL:        b.targetURL(rec.Key()),
		SourceIdentifier: rec.Key(),
		Icon:             b.iconURL,
		Record:           rec,
	}

	fm, err := ParseFrontMatter(rec.RawText)
	if err != nil {
		return p
	}
	if fm.Name != "" {
		p.Title = truncateRunes(titlePrefix+fm.Name, maxTitleRunes)
	}
	if body := truncateRunes(plainText(fm.Body), maxBodyRunes); body != "" {
		p.Body = body
	}
	return p
}

func (b *Builder) targetURL(key string) string {
	base := b.siteURL
	if i := strings.IndexByte(base, '#'); i >= 0 {
		base = base[:i]
	}
	if key == "" {
		return base
	}
	return base + "#" + key
}

// plainText flattens any markup in s and collapses whitespace.
func plainText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.ContainsAny(s, "<&") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		}
	}
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max-1])) + "…"
}
