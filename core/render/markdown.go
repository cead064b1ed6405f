package render

import (
	"strings"

	"github.com/gaurav-prasanna/epubclean/core"
)

// chapterRule separates chapters in the Markdown output.
const chapterRule = "\n\n---\n\n"

// MarkdownRenderer writes the chapters as one Markdown document, headed by
// the book title and authors.
type MarkdownRenderer struct{}

// NewMarkdownRenderer creates a MarkdownRenderer.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{}
}

// Render joins the chapters in reading order.
func (r *MarkdownRenderer) Render(chapters []core.Chapter, meta core.BookMetadata) ([]byte, error) {
	var parts []string
	if header := markdownHeader(meta); header != "" {
		parts = append(parts, header)
	}
	for _, ch := range chapters {
		if md := strings.TrimSpace(ch.Markdown); md != "" {
			parts = append(parts, md)
		}
	}
	return []byte(strings.Join(parts, chapterRule) + "\n"), nil
}

// Extension returns the file extension for Markdown output.
func (r *MarkdownRenderer) Extension() string {
	return ".md"
}

func markdownHeader(meta core.BookMetadata) string {
	var b strings.Builder
	if meta.Title != "" {
		b.WriteString("# " + meta.Title)
	}
	if len(meta.Authors) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("*" + strings.Join(meta.Authors, ", ") + "*")
	}
	return b.String()
}
