// Package render turns a book's Markdown chapters into an output file.
package render

import (
	"strings"

	"github.com/gaurav-prasanna/epubclean/core"
)

// ForFormat returns the built-in renderer for a --format value. The second
// result is false when the format has no built-in renderer.
func ForFormat(format string) (core.Renderer, bool) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "md", "markdown":
		return NewMarkdownRenderer(), true
	case "json":
		return NewJSONRenderer(), true
	case "pdf":
		return NewPDFRenderer(), true
	default:
		return nil, false
	}
}
