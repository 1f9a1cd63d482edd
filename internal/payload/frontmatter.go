package payload

import (
	"errors"
	"strings"
)

const frontMatterDelim = "---"

// ErrNoFrontMatter is returned when the text holds no name or body key.
var ErrNoFrontMatter = errors.New("text has no front matter keys")

// FrontMatter is the subset of keys the payload builder reads.
type FrontMatter struct {
	Name string
	Body string
}

// ParseFrontMatter extracts name/body from lightweight "key: value" front
// matter. Either the whole text is key lines, or a "---" fenced block
// precedes a free-form body. Each key line is split at its first colon, so
// values may hold any text. Lines following "body:" that are not another key
// line continue the body.
func ParseFrontMatter(text string) (FrontMatter, error) {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if text == "" {
		return FrontMatter{}, ErrNoFrontMatter
	}

	block, rest, fenced := splitFence(text)
	fm, found := readKeyLines(block)
	if !found && !fenced {
		return FrontMatter{}, ErrNoFrontMatter
	}
	if fenced && fm.Body == "" {
		fm.Body = strings.TrimSpace(rest)
	}
	return fm, nil
}

func splitFence(text string) (block, rest string, fenced bool) {
	if !strings.HasPrefix(text, frontMatterDelim+"\n") {
		return text, "", false
	}
	after := text[len(frontMatterDelim)+1:]
	if strings.HasPrefix(after, frontMatterDelim) {
		return "", strings.TrimPrefix(after, frontMatterDelim), true
	}
	end := strings.Index(after, "\n"+frontMatterDelim)
	if end < 0 {
		return text, "", false
	}
	rest = after[end+len(frontMatterDelim)+1:]
	return after[:end], rest, true
}

// readKeyLines reports whether any name or body key was present.
func readKeyLines(block string) (FrontMatter, bool) {
	var (
		fm     FrontMatter
		found  bool
		inBody bool
		body   []string
	)
	for _, line := range strings.Split(block, "\n") {
		key, value, ok := keyLine(line)
		switch {
		case ok && key == "name":
			fm.Name = unquote(value)
			found, inBody = true, false
		case ok && key == "body":
			body = []string{value}
			found, inBody = true, true
		case inBody:
			body = append(body, strings.TrimSpace(line))
		}
	}
	if len(body) > 0 {
		fm.Body = unquote(strings.TrimSpace(strings.Join(body, "\n")))
	}
	return fm, found
}

// keyLine splits "key: value" at the first colon. Only the name and body keys
// are recognized; anything else is content.
func keyLine(line string) (key, value string, ok bool) {
	i := strings.IndexByte(line, ':')
	if i < 0 {
		return "", "", false
	}
	key = strings.ToLower(strings.TrimSpace(line[:i]))
	if key != "name" && key != "body" {
		return "", "", false
	}
	return key, strings.TrimSpace(line[i+1:]), true
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}
