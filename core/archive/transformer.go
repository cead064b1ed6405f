// Package archive implements the Transformer interface.
//
// An EPUB is read from memory and written to a new in-memory archive, member
// by member in the original order. HTML/XHTML members go through a
// core.Rewriter; members it leaves unchanged, and every other member, are
// copied with their raw compressed bytes so they stay byte-identical.
package archive

import (
	"archive/zip"
	"bytes"
	"context"

	"github.com/gaurav-prasanna/epubclean/core"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// EPUBTransformer rewrites the text documents of an EPUB archive.
type EPUBTransformer struct {
	rewriter core.Rewriter
	limit    int64
}

// New creates an EPUBTransformer that rewrites text members with rw.
func New(rw core.Rewriter) *EPUBTransformer {
	return &EPUBTransformer{rewriter: rw, limit: maxMemberSize}
}

// Validate reports whether src opens as a ZIP archive.
func (t *EPUBTransformer) Validate(src []byte) error {
	if _, err := zip.NewReader(bytes.NewReader(src), int64(len(src))); err != nil {
		return &core.InvalidArchiveError{Err: err}
	}
	return nil
}

// Transform builds a new archive from src. Any member failure aborts the
// whole transformation; the error names the member.
func (t *EPUBTransformer) Transform(ctx context.Context, src []byte, matchers []core.Matcher) (*core.Transformation, error) {
	log := zerolog.Ctx(ctx)

	zr, err := zip.NewReader(bytes.NewReader(src), int64(len(src)))
	if err != nil {
		return nil, &core.InvalidArchiveError{Err: err}
	}
	checkMimetype(zr, log)

	var out bytes.Buffer
	out.Grow(len(src))
	zw := zip.NewWriter(&out)
	if zr.Comment != "" {
		if err := zw.SetComment(zr.Comment); err != nil {
			return nil, errors.Errorf("setting archive comment: %w", err)
		}
	}

	result := &core.Transformation{Members: make([]string, 0, len(zr.File))}
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result.Members = append(result.Members, f.Name)

		if f.FileInfo().IsDir() || !core.IsTextDocument(f.Name) {
			if err := zw.Copy(f); err != nil {
				return nil, &core.InvalidArchiveError{Err: errors.Errorf("copying member %s: %w", f.Name, err)}
			}
			continue
		}

		data, err := readMember(f, t.limit)
		if err != nil {
			return nil, &core.InvalidArchiveError{Err: err}
		}

		rewritten, hits, err := t.rewriter.Rewrite(f.Name, data, matchers)
		if err != nil {
			return nil, err
		}
		if len(hits) == 0 {
			if err := zw.Copy(f); err != nil {
				return nil, &core.InvalidArchiveError{Err: errors.Errorf("copying member %s: %w", f.Name, err)}
			}
			continue
		}

		for _, h := range hits {
			result.Changes = append(result.Changes, core.ChangeRecord{Member: f.Name, Pattern: h.Source, Count: h.Count})
			log.Debug().Str("member", f.Name).Str("pattern", h.Source).Int("count", h.Count).Msg("removed occurrences")
		}
		if err := writeMember(zw, f, rewritten); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, errors.Errorf("closing archive: %w", err)
	}
	result.Output = out.Bytes()
	return result, nil
}

// checkMimetype logs deviations from the EPUB first-entry convention. The
// archive is never repaired; the entry is copied as found.
func checkMimetype(zr *zip.Reader, log *zerolog.Logger) {
	if len(zr.File) == 0 {
		log.Warn().Msg("empty archive; mimetype entry missing")
		return
	}

	first := zr.File[0]
	if first.Name != "mimetype" {
		log.Warn().Str("first", first.Name).Msg("first archive entry is not \"mimetype\"")
		return
	}
	if first.Method != zip.Store {
		log.Warn().Uint16("method", first.Method).Msg("mimetype entry is compressed")
	}

	data, err := readMember(first, int64(len(expectedMimetype))+64)
	if err != nil {
		log.Warn().Err(err).Msg("cannot read mimetype entry")
		return
	}
	if string(data) != expectedMimetype {
		log.Warn().Str("mimetype", string(data)).Msg("unexpected mimetype")
	}
}
