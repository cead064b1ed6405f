// Package diff recovers the exact text a cleaning pass deleted, by diffing
// each changed document against its original.
package diff

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"

	"github.com/gaurav-prasanna/epubclean/core"
	"github.com/gaurav-prasanna/epubclean/core/rewrite"
	"github.com/sergi/go-diff/diffmatchpatch"
	"gitlab.com/tozd/go/errors"
)

// maxMemberSize bounds each member read for diffing.
const maxMemberSize int64 = 64 * 1024 * 1024

// Removed returns the deleted stretches of before, in order, with
// surrounding whitespace trimmed. Blank deletions are dropped.
func Removed(before, after string) []string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(before, after, false))

	var out []string
	for _, d := range diffs {
		if d.Type != diffmatchpatch.DiffDelete {
			continue
		}
		if text := strings.TrimSpace(d.Text); text != "" {
			out = append(out, text)
		}
	}
	return out
}

// Members diffs the named members of the original and cleaned archives.
func Members(src, cleaned []byte, members []string) ([]core.Removal, error) {
	before, err := zip.NewReader(bytes.NewReader(src), int64(len(src)))
	if err != nil {
		return nil, errors.Errorf("opening original archive: %w", err)
	}
	after, err := zip.NewReader(bytes.NewReader(cleaned), int64(len(cleaned)))
	if err != nil {
		return nil, errors.Errorf("opening cleaned archive: %w", err)
	}

	var out []core.Removal
	for _, name := range members {
		old, err := readText(before, name)
		if err != nil {
			return nil, err
		}
		cur, err := readText(after, name)
		if err != nil {
			return nil, err
		}
		for _, text := range Removed(old, cur) {
			out = append(out, core.Removal{Member: name, Text: text})
		}
	}
	return out, nil
}

func readText(zr *zip.Reader, name string) (string, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", errors.Errorf("opening %s: %w", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(io.LimitReader(rc, maxMemberSize))
		if err != nil {
			return "", errors.Errorf("reading %s: %w", name, err)
		}
		return rewrite.Decode(data)
	}
	return "", errors.Errorf("member %s not found", name)
}
