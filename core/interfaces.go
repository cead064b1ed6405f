// Package core defines the shared types and stage interfaces for epubclean.
// Each stage of the cleaning and conversion pipelines is a small, testable interface.
package core

import (
	"context"
	"path"
	"strings"
)

// Hit is the number of times one matcher fired inside a single document.
type Hit struct {
	Source string
	Count  int
}

// ChangeRecord is a Hit attributed to an archive member.
type ChangeRecord struct {
	Member  string `json:"member"`
	Pattern string `json:"pattern"`
	Count   int    `json:"count"`
}

// Transformation is the in-memory result of rewriting one archive.
type Transformation struct {
	Output  []byte
	Members []string // member names in archive order
	Changes []ChangeRecord
}

// Total returns the number of removed occurrences across all members.
func (t *Transformation) Total() int {
	n := 0
	for _, c := range t.Changes {
		n += c.Count
	}
	return n
}

// ChangedMembers returns the names of members that had at least one removal,
// in archive order and without duplicates.
func (t *Transformation) ChangedMembers() []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range t.Changes {
		if c.Count == 0 || seen[c.Member] {
			continue
		}
		seen[c.Member] = true
		out = append(out, c.Member)
	}
	return out
}

// Removal is one stretch of text deleted from an archive member.
type Removal struct {
	Member string
	Text   string
}

// FileResult is the outcome of processing one input file.
type FileResult struct {
	Input   string
	Output  string // empty when nothing was written
	Backup  string // empty when no backup was made
	DryRun  bool
	Changes []ChangeRecord
	Removed []Removal // only filled when requested
	Total   int
	Err     error
}

// Changed reports whether the file had removals and did not fail.
func (r FileResult) Changed() bool {
	return r.Err == nil && r.Total > 0
}

// Summary aggregates the results of a batch, in input order.
type Summary struct {
	DryRun bool
	Files  []FileResult
}

// Processed returns the number of files that were attempted.
func (s Summary) Processed() int { return len(s.Files) }

// Changed returns the number of files with at least one removal.
func (s Summary) Changed() int {
	n := 0
	for _, f := range s.Files {
		if f.Changed() {
			n++
		}
	}
	return n
}

// Failed returns the number of files that failed.
func (s Summary) Failed() int {
	n := 0
	for _, f := range s.Files {
		if f.Err != nil {
			n++
		}
	}
	return n
}

// TotalChanges returns the removals across all successful files.
func (s Summary) TotalChanges() int {
	n := 0
	for _, f := range s.Files {
		if f.Err == nil {
			n += f.Total
		}
	}
	return n
}

// textExtensions are the member suffixes routed through the Rewriter.
var textExtensions = map[string]bool{
	".html":  true,
	".xhtml": true,
	".htm":   true,
}

// IsTextDocument reports whether an archive member is an HTML/XHTML document,
// judged by its name suffix only.
func IsTextDocument(name string) bool {
	return textExtensions[strings.ToLower(path.Ext(name))]
}

// Rewriter removes matcher hits from the text nodes of one HTML/XHTML document.
type Rewriter interface {
	Rewrite(member string, content []byte, matchers []Matcher) ([]byte, []Hit, error)
}

// Transformer rewrites every text document of an EPUB archive held in memory.
type Transformer interface {
	// Validate checks that src is a readable archive without transforming it.
	Validate(src []byte) error
	Transform(ctx context.Context, src []byte, matchers []Matcher) (*Transformation, error)
}

// Loader reads an input file fully into memory.
type Loader interface {
	Load(ctx context.Context, path string) ([]byte, error)
}

// BookMetadata describes a book for the conversion renderers.
type BookMetadata struct {
	Source      string   `json:"source"`
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	Language    string   `json:"language"`
	ConvertedAt string   `json:"converted_at"` // ISO8601
}

// Chapter holds one spine document converted to Markdown.
type Chapter struct {
	Href     string `json:"href"`
	Title    string `json:"title,omitempty"`
	Markdown string `json:"markdown"`
}

// BookJSON is the structured JSON output of a converted book.
type BookJSON struct {
	Metadata  BookMetadata  `json:"metadata"`
	Chapters  []ChapterJSON `json:"chapters"`
	Structure BookStructure `json:"structure"`
}

// ChapterJSON is one chapter in BookJSON.
type ChapterJSON struct {
	Href     string    `json:"href"`
	Title    string    `json:"title,omitempty"`
	Text     string    `json:"text"`
	Markdown string    `json:"markdown"`
	Sections []Section `json:"sections,omitempty"`
	Headings []Heading `json:"headings"`
	Links    []Link    `json:"links"`
}

// Section is a heading together with the text under it.
type Section struct {
	Heading string `json:"heading"`
	Level   int    `json:"level"`
	Text    string `json:"text"`
}

// Heading is a Markdown heading.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Link is a Markdown link.
type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// BookStructure counts structural elements across all chapters.
type BookStructure struct {
	Chapters   int `json:"chapters"`
	Headings   int `json:"headings"`
	Links      int `json:"links"`
	CodeBlocks int `json:"code_blocks"`
	Tables     int `json:"tables"`
	Lists      int `json:"lists"`
	Words      int `json:"words"`
}

// Extractor pulls the readable body from a chapter document, stripping noise.
type Extractor interface {
	Extract(html string) (string, error)
}

// Normalizer converts cleaned HTML into Markdown (the canonical format).
type Normalizer interface {
	Normalize(html string) (string, error)
}

// Renderer converts a book's Markdown chapters into a final output format.
type Renderer interface {
	Render(chapters []Chapter, meta BookMetadata) ([]byte, error)
	// Extension returns the file extension for this renderer (e.g. ".md", ".pdf").
	Extension() string
}
