package notes

import (
	"regexp"
	"strings"
	"unicode"
)

var wikilinkRe = regexp.MustCompile(`\[\[([^\]|]+)(?:\|([^\]]+))?\]\]`)

// DeriveTitle returns the first "# " heading of body, or the filename
// without extension when the document has no top-level heading.
func DeriveTitle(path, body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return TitleFromPath(path)
}

// RewriteWikilinks converts [[target]] and [[target|alias]] markers into
// plain markdown links pointing at /target.md (the .md suffix is appended
// unless already present). The rewrite happens at render time only; raw
// note text is never altered.
func RewriteWikilinks(body string) string {
	return wikilinkRe.ReplaceAllStringFunc(body, func(m string) string {
		sub := wikilinkRe.FindStringSubmatch(m)
		target := strings.TrimSpace(sub[1])
		if target == "" {
			return m
		}
		display := target
		if sub[2] != "" {
			display = sub[2]
		}
		href := "/" + target
		if !strings.HasSuffix(target, ".md") {
			href += ".md"
		}
		return "[" + display + "](" + href + ")"
	})
}

// WikilinkTargets returns deduplicated wikilink targets found in body.
// Targets are indexed as search tokens alongside the body words.
func WikilinkTargets(body string) []string {
	matches := wikilinkRe.FindAllStringSubmatch(body, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		target := strings.TrimSpace(m[1])
		if target == "" {
			continue
		}
		if _, dup := seen[target]; dup {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}

// Tokenize splits text into lowercased word tokens with byte offsets.
// Words are maximal runs of letters and digits; single-rune tokens are
// kept so short queries still match.
func Tokenize(text string) []Token {
	var tokens []Token
	start := -1
	for i, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, Token{Text: strings.ToLower(text[start:i]), Offset: start})
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, Token{Text: strings.ToLower(text[start:]), Offset: start})
	}
	return tokens
}
