package search

import (
	"html"
	"strings"
	"unicode"
	"unicode/utf8"
)

// snippetRadius is the number of bytes of context kept on each side of the
// first match when cutting a snippet.
const snippetRadius = 64

// snippet extracts an HTML-escaped excerpt of body around offset, with
// case-insensitive occurrences of query wrapped in <mark> tags. A negative
// offset (title-only match) yields the start of the body.
func snippet(body string, offset int, query string) string {
	if body == "" {
		return ""
	}
	if offset < 0 || offset >= len(body) {
		offset = 0
	}

	start := offset - snippetRadius
	if start < 0 {
		start = 0
	}
	end := offset + snippetRadius
	if end > len(body) {
		end = len(body)
	}
	// Never cut through a multi-byte rune.
	for start > 0 && !utf8.RuneStart(body[start]) {
		start--
	}
	for end < len(body) && !utf8.RuneStart(body[end]) {
		end++
	}

	excerpt := strings.ReplaceAll(body[start:end], "\n", " ")
	out := highlight(excerpt, query)

	if start > 0 {
		out = "..." + out
	}
	if end < len(body) {
		out += "..."
	}
	return out
}

// highlight escapes excerpt and wraps case-insensitive matches of query in
// <mark> tags. The query is matched against the unescaped text so escaping
// can never split a hit. Lowercasing can change a rune's UTF-8 length
// (Ⱥ is 2 bytes, ⱥ is 3), so match offsets found in the lowered copy are
// mapped back to the original text instead of being reused as-is.
func highlight(excerpt, query string) string {
	if query == "" {
		return html.EscapeString(excerpt)
	}

	var lowered strings.Builder
	lowered.Grow(len(excerpt))
	back := make([]int, 0, len(excerpt)+1) // lowered byte offset → original
	for i, r := range excerpt {
		lr := unicode.ToLower(r)
		for n := utf8.RuneLen(lr); n > 0; n-- {
			back = append(back, i)
		}
		lowered.WriteRune(lr)
	}
	back = append(back, len(excerpt))
	lower := lowered.String()

	var b strings.Builder
	i := 0
	for {
		j := strings.Index(lower[i:], query)
		if j < 0 {
			b.WriteString(html.EscapeString(excerpt[back[i]:]))
			break
		}
		j += i
		end := j + len(query)
		b.WriteString(html.EscapeString(excerpt[back[i]:back[j]]))
		b.WriteString("<mark>")
		b.WriteString(html.EscapeString(excerpt[back[j]:back[end]]))
		b.WriteString("</mark>")
		i = end
	}
	return b.String()
}
