package render

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/gaurav-prasanna/epubclean/core"
	"gitlab.com/tozd/go/errors"
)

// JSONRenderer produces structured JSON from the converted chapters.
// Structure is read from the Markdown only; nothing is inferred beyond
// headings, links and block counts.
type JSONRenderer struct{}

// NewJSONRenderer creates a JSONRenderer.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{}
}

// Render builds a core.BookJSON and marshals it with indentation.
func (r *JSONRenderer) Render(chapters []core.Chapter, meta core.BookMetadata) ([]byte, error) {
	book := core.BookJSON{
		Metadata: meta,
		Chapters: make([]core.ChapterJSON, 0, len(chapters)),
	}

	for _, ch := range chapters {
		headings := extractHeadings(ch.Markdown)
		links := extractLinks(ch.Markdown)
		text := stripMarkdown(ch.Markdown)

		book.Chapters = append(book.Chapters, core.ChapterJSON{
			Href:     ch.Href,
			Title:    ch.Title,
			Text:     text,
			Markdown: ch.Markdown,
			Sections: buildSections(ch.Markdown, headings),
			Headings: headings,
			Links:    links,
		})

		s := &book.Structure
		s.Headings += len(headings)
		s.Links += len(links)
		s.CodeBlocks += countCodeBlocks(ch.Markdown)
		s.Tables += countTables(ch.Markdown)
		s.Lists += countLists(ch.Markdown)
		s.Words += len(strings.Fields(text))
	}
	book.Structure.Chapters = len(book.Chapters)

	data, err := json.MarshalIndent(book, "", "  ")
	if err != nil {
		return nil, errors.Errorf("marshaling JSON: %w", err)
	}
	return data, nil
}

// Extension returns the file extension for JSON output.
func (r *JSONRenderer) Extension() string {
	return ".json"
}

var (
	headingRegex   = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)
	linkRegex      = regexp.MustCompile(`\[([^\]]*)\]\(([^)]+)\)`)
	tableRowRegex  = regexp.MustCompile(`(?m)^\|[-:| ]+\|$`)
	listItemRegex  = regexp.MustCompile(`(?m)^[ \t]*(?:[-*]|\d+\.)\s`)
	emphasisRegex  = regexp.MustCompile(`\*{1,3}([^*]+)\*{1,3}`)
	inlineCodeRe   = regexp.MustCompile("`([^`]+)`")
	blankLineRegex = regexp.MustCompile(`\n{3,}`)
)

func extractHeadings(md string) []core.Heading {
	matches := headingRegex.FindAllStringSubmatch(md, -1)
	headings := make([]core.Heading, 0, len(matches))
	for _, m := range matches {
		headings = append(headings, core.Heading{
			Level: len(m[1]),
			Text:  strings.TrimSpace(m[2]),
		})
	}
	return headings
}

func extractLinks(md string) []core.Link {
	matches := linkRegex.FindAllStringSubmatch(md, -1)
	links := make([]core.Link, 0, len(matches))
	for _, m := range matches {
		links = append(links, core.Link{Text: m[1], Href: m[2]})
	}
	return links
}

// buildSections splits md at its headings. Text before the first heading
// is not part of any section.
func buildSections(md string, headings []core.Heading) []core.Section {
	if len(headings) == 0 {
		return nil
	}

	sections := make([]core.Section, 0, len(headings))
	var current *core.Section
	var body []string
	flush := func() {
		if current != nil {
			current.Text = strings.TrimSpace(strings.Join(body, "\n"))
			sections = append(sections, *current)
		}
	}

	next := 0
	for _, line := range strings.Split(md, "\n") {
		if next < len(headings) && headingRegex.MatchString(line) {
			flush()
			current = &core.Section{Heading: headings[next].Text, Level: headings[next].Level}
			body = nil
			next++
		} else if current != nil {
			body = append(body, line)
		}
	}
	flush()
	return sections
}

// countCodeBlocks counts fenced code blocks.
func countCodeBlocks(md string) int {
	return strings.Count(md, "```") / 2
}

// countTables counts separator rows (|---|).
func countTables(md string) int {
	return len(tableRowRegex.FindAllString(md, -1))
}

func countLists(md string) int {
	return len(listItemRegex.FindAllString(md, -1))
}

// stripMarkdown removes common Markdown formatting to produce plain text.
func stripMarkdown(md string) string {
	text := headingRegex.ReplaceAllString(md, "$2")
	text = emphasisRegex.ReplaceAllString(text, "$1")
	text = linkRegex.ReplaceAllString(text, "$1")
	text = strings.ReplaceAll(text, "```", "")
	text = inlineCodeRe.ReplaceAllString(text, "$1")
	text = blankLineRegex.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
