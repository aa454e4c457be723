package notes

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// engine is the shared goldmark instance. It is stateless, so a single
// instance serves all renders without locking. The extension set mirrors
// what readers expect from notes: tables, strikethrough, autolinks, task
// lists, and footnotes, with raw HTML passed through.
var engine = goldmark.New(
	goldmark.WithExtensions(
		extension.Table,
		extension.Strikethrough,
		extension.Linkify,
		extension.TaskList,
		extension.Footnote,
	),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
	goldmark.WithRendererOptions(
		html.WithUnsafe(),
	),
)

// Render converts raw markdown to HTML after rewriting wikilinks.
// Rendering is idempotent: the same raw text always yields byte-identical
// HTML.
func Render(raw string) (string, error) {
	var buf bytes.Buffer
	if err := engine.Convert([]byte(RewriteWikilinks(raw)), &buf); err != nil {
		return "", fmt.Errorf("notes: render: %w", err)
	}
	return buf.String(), nil
}
