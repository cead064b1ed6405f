package render

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/gaurav-prasanna/epubclean/core"
	"github.com/jung-kurt/gofpdf"
	"gitlab.com/tozd/go/errors"
)

// headingSizes maps a Markdown heading level to a font size in points.
var headingSizes = map[int]float64{1: 18, 2: 15, 3: 13, 4: 12, 5: 11, 6: 10}

var (
	numberedItemRegex = regexp.MustCompile(`^\d+\.\s`)
	italicRegex       = regexp.MustCompile(`(?:^|\s)[*_]([^*_]+)[*_](?:\s|$)`)
	inlineLinkRegex   = regexp.MustCompile(`\[([^\]]*)\]\([^)]+\)`)
)

// PDFRenderer lays the chapters out as an A4 PDF with the core Helvetica
// and Courier fonts. Text outside cp1252 is replaced by the translator.
type PDFRenderer struct{}

// NewPDFRenderer creates a PDFRenderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Render writes a title page followed by one page run per chapter.
func (r *PDFRenderer) Render(chapters []core.Chapter, meta core.BookMetadata) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetTitle(meta.Title, true)
	pdf.SetAuthor(strings.Join(meta.Authors, ", "), true)
	pdf.SetCreator("epubclean", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	title := meta.Title
	if title == "" {
		title = "Untitled"
	}
	pdf.Ln(40)
	pdf.SetFont("Helvetica", "B", 24)
	pdf.MultiCell(0, 11, tr(title), "", "C", false)
	if len(meta.Authors) > 0 {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "", 14)
		pdf.MultiCell(0, 7, tr(strings.Join(meta.Authors, ", ")), "", "C", false)
	}

	for _, ch := range chapters {
		if strings.TrimSpace(ch.Markdown) == "" {
			continue
		}
		pdf.AddPage()
		renderMarkdown(pdf, tr, ch.Markdown)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Errorf("writing PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// Extension returns the file extension for PDF output.
func (r *PDFRenderer) Extension() string {
	return ".pdf"
}

// renderMarkdown draws md line by line: headings, fenced code, list items
// and paragraphs.
func renderMarkdown(pdf *gofpdf.Fpdf, tr func(string) string, md string) {
	inCode := false
	for _, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			inCode = !inCode
			pdf.Ln(2)
			continue
		}
		if inCode {
			pdf.SetFont("Courier", "", 9)
			pdf.SetFillColor(245, 245, 245)
			pdf.MultiCell(0, 4.5, tr(line), "", "L", true)
			continue
		}

		switch {
		case trimmed == "":
			pdf.Ln(3)
		case trimmed == "---" || trimmed == "***":
			pdf.Ln(4)
		case strings.HasPrefix(trimmed, "#"):
			level := len(trimmed) - len(strings.TrimLeft(trimmed, "#"))
			renderHeading(pdf, tr(cleanInlineMarkdown(strings.TrimLeft(trimmed, "# "))), level)
		case strings.HasPrefix(trimmed, "- "), strings.HasPrefix(trimmed, "* "):
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, tr("• "+cleanInlineMarkdown(trimmed[2:])), "", "L", false)
		case numberedItemRegex.MatchString(trimmed):
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, tr(cleanInlineMarkdown(trimmed)), "", "L", false)
		case strings.HasPrefix(trimmed, ">"):
			pdf.SetFont("Helvetica", "I", 10)
			pdf.MultiCell(0, 5, tr(cleanInlineMarkdown(strings.TrimLeft(trimmed, "> "))), "", "L", false)
		default:
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, tr(cleanInlineMarkdown(trimmed)), "", "L", false)
		}
	}
}

// renderHeading sets the font size from the heading level and writes text.
func renderHeading(pdf *gofpdf.Fpdf, text string, level int) {
	size, ok := headingSizes[level]
	if !ok {
		size = 10
	}
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", size)
	pdf.MultiCell(0, size*0.6, text, "", "L", false)
	pdf.Ln(2)
}

// cleanInlineMarkdown strips inline Markdown formatting for PDF text.
func cleanInlineMarkdown(text string) string {
	text = strings.ReplaceAll(text, "**", "")
	text = strings.ReplaceAll(text, "__", "")
	text = italicRegex.ReplaceAllString(text, " $1 ")
	text = inlineCodeRe.ReplaceAllString(text, "$1")
	text = inlineLinkRegex.ReplaceAllString(text, "$1")
	text = strings.ReplaceAll(text, `\`, "")
	return strings.TrimSpace(text)
}
