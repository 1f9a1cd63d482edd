package feed

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Recognized feed fields, highest priority first.
var (
	hashFields      = []string{"hash", "contentHash", "content_hash"}
	idFields        = []string{"id"}
	timestampFields = []string{"timestamp", "ts", "updatedAt", "updated_at"}
	textFields      = []string{"text", "content", "body"}
	authorFields    = []string{"author", "name"}
)

// identifierOf picks content-hash over id over timestamp.
func identifierOf(obj map[string]any) string {
	for _, group := range [][]string{hashFields, idFields, timestampFields} {
		if v := firstScalar(obj, group...); v != "" {
			return v
		}
	}
	return ""
}

func firstString(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

// firstScalar renders the first non-empty string or number field.
func firstScalar(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := obj[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			return formatNumber(v)
		}
	}
	return ""
}

// formatNumber keeps integer literals exactly as written and renders whole
// decimals such as 1700000000.0 without the fraction.
func formatNumber(n json.Number) string {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		return s
	}
	if f, err := n.Float64(); err == nil && f == math.Trunc(f) && math.Abs(f) < 1e18 {
		return strconv.FormatInt(int64(f), 10)
	}
	return s
}

// Unix timestamps above this are taken to be milliseconds.
const millisThreshold = 1e11

func observedAt(obj map[string]any) *time.Time {
	for _, k := range timestampFields {
		switch v := obj[k].(type) {
		case string:
			if t, err := time.Parse(time.RFC3339, strings.TrimSpace(v)); err == nil {
				t = t.UTC()
				return &t
			}
		case json.Number:
			f, err := v.Float64()
			if err != nil || f <= 0 {
				continue
			}
			var t time.Time
			if f >= millisThreshold {
				t = time.UnixMilli(int64(f)).UTC()
			} else {
				t = time.Unix(int64(f), 0).UTC()
			}
			return &t
		}
	}
	return nil
}
