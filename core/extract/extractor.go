// Package extract implements the Extractor interface for EPUB chapters.
// A chapter document is reduced to its readable body: scripts, media and
// page-break markers are dropped, and the <body> (or the first <section>
// or <article> inside it) is returned.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"gitlab.com/tozd/go/errors"
)

// noiseSelectors are removed before extraction. They carry no readable text.
var noiseSelectors = []string{
	"head", "script", "style", "noscript",
	"img", "picture", "svg", "image", "canvas",
	"iframe", "video", "audio", "object", "embed",
	"form", "button", "input", "select", "textarea",
	`[role="doc-pagebreak"]`, `[role="doc-noteref"]`,
}

// noiseTypes are epub:type values whose elements only hold print page
// numbers or note markers.
var noiseTypes = []string{"pagebreak", "noteref"}

// HTMLExtractor strips noise from a chapter and returns its content fragment.
type HTMLExtractor struct{}

// New creates an HTMLExtractor.
func New() *HTMLExtractor {
	return &HTMLExtractor{}
}

// Extract takes a chapter document and returns a cleaned HTML fragment.
func (e *HTMLExtractor) Extract(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", errors.Errorf("parsing HTML: %w", err)
	}

	for _, sel := range noiseSelectors {
		doc.Find(sel).Remove()
	}
	doc.Find("*").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return hasNoiseType(s.AttrOr("epub:type", ""))
	}).Remove()

	content := doc.Find("body").First()
	if content.Length() == 0 {
		return "", errors.New("no body found in chapter")
	}
	// A body holding a single section or article is unwrapped to it.
	if kids := content.Children(); kids.Length() == 1 && kids.Is("section, article, main") {
		content = kids
	}

	result, err := content.Html()
	if err != nil {
		return "", errors.Errorf("serializing content: %w", err)
	}
	return strings.TrimSpace(result), nil
}

// Title returns the chapter's first heading, falling back to <title>.
func (e *HTMLExtractor) Title(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	for _, sel := range []string{"body h1", "body h2", "body h3", "head title"} {
		if t := collapse(doc.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

func hasNoiseType(attr string) bool {
	for _, v := range strings.Fields(attr) {
		for _, t := range noiseTypes {
			if v == t {
				return true
			}
		}
	}
	return false
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
