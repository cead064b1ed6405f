package convert

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/gaurav-prasanna/epubclean/core"
	"github.com/gaurav-prasanna/epubclean/core/book"
	"github.com/gaurav-prasanna/epubclean/core/extract"
	"github.com/gaurav-prasanna/epubclean/core/normalize"
	"github.com/gaurav-prasanna/epubclean/core/output"
	"github.com/gaurav-prasanna/epubclean/core/rewrite"
	"github.com/gaurav-prasanna/epubclean/core/source"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// ErrNoChapters is returned when no spine document yields any text.
var ErrNoChapters = errors.New("no readable chapters")

// titler is implemented by extractors that can name a chapter.
type titler interface {
	Title(html string) string
}

// Builtin converts an EPUB with the in-process pipeline:
// book → extract → normalize → render → write.
type Builtin struct {
	loader     core.Loader
	extractor  core.Extractor
	normalizer core.Normalizer
	renderer   core.Renderer
	writer     *output.Writer
	now        func() time.Time
}

// NewBuiltin creates a Builtin converter that renders with renderer.
func NewBuiltin(renderer core.Renderer, writer *output.Writer) *Builtin {
	return &Builtin{
		loader:     source.New(),
		extractor:  extract.New(),
		normalizer: normalize.New(),
		renderer:   renderer,
		writer:     writer,
		now:        time.Now,
	}
}

// Convert reads input, renders it and writes output atomically.
func (b *Builtin) Convert(ctx context.Context, input, output string) error {
	log := zerolog.Ctx(ctx)

	data, err := b.loader.Load(ctx, input)
	if err != nil {
		return err
	}
	bk, err := book.Open(data)
	if err != nil {
		return &core.InvalidArchiveError{Path: input, Err: err}
	}

	var chapters []core.Chapter
	for _, ch := range bk.Chapters() {
		if err := ctx.Err(); err != nil {
			return err
		}
		chapter, err := b.chapter(bk, ch)
		if err != nil {
			log.Warn().Err(err).Str("chapter", ch.Href).Msg("skipping chapter")
			continue
		}
		if chapter.Markdown != "" {
			chapters = append(chapters, chapter)
		}
	}
	if len(chapters) == 0 {
		return &ConversionError{Input: input, Err: errors.WithStack(ErrNoChapters)}
	}

	md := bk.Metadata()
	meta := core.BookMetadata{
		Source:      filepath.Base(input),
		Title:       md.Title,
		Authors:     md.Authors,
		Language:    md.Language,
		ConvertedAt: b.now().UTC().Format(time.RFC3339),
	}
	if meta.Title == "" {
		meta.Title = strings.TrimSuffix(meta.Source, filepath.Ext(meta.Source))
	}

	rendered, err := b.renderer.Render(chapters, meta)
	if err != nil {
		return &ConversionError{Input: input, Err: errors.Errorf("render: %w", err)}
	}
	if err := b.writer.WriteAtomic(output, rendered); err != nil {
		return err
	}
	log.Debug().Str("output", output).Int("chapters", len(chapters)).Msg("converted")
	return nil
}

// chapter runs one spine document through extract and normalize.
func (b *Builtin) chapter(bk *book.Book, ch book.Chapter) (core.Chapter, error) {
	raw, err := bk.ReadFile(ch.Href)
	if err != nil {
		return core.Chapter{}, err
	}
	html, err := rewrite.Decode(raw)
	if err != nil {
		return core.Chapter{}, errors.Errorf("decoding chapter: %w", err)
	}

	content, err := b.extractor.Extract(html)
	if err != nil {
		return core.Chapter{}, errors.Errorf("extract: %w", err)
	}
	markdown, err := b.normalizer.Normalize(content)
	if err != nil {
		return core.Chapter{}, errors.Errorf("normalize: %w", err)
	}

	out := core.Chapter{Href: ch.Href, Markdown: markdown}
	if t, ok := b.extractor.(titler); ok {
		out.Title = t.Title(html)
	}
	return out, nil
}
