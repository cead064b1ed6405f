// Package output handles file naming, backups and writing for epubclean.
// A single-file run may name its output explicitly; otherwise the output is
// named <stem><suffix>.epub next to the input, or inside OutputDir when set.
package output

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gaurav-prasanna/epubclean/core"
	"gitlab.com/tozd/go/errors"
)

// DefaultSuffix is appended to the input stem when no output path is given.
const DefaultSuffix = "_cleaned"

// BackupSuffix is appended to the input name for the backup copy.
const BackupSuffix = ".bak"

// Writer writes cleaned archives and backups to disk.
type Writer struct {
	OutputDir string // empty means next to each input
}

// New creates a Writer targeting the given output directory. An empty
// outputDir keeps outputs next to their inputs.
func New(outputDir string) (*Writer, error) {
	if outputDir != "" {
		// Ensure the output directory exists.
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return nil, &core.IOError{Op: "create directory", Path: outputDir, Err: err}
		}
	}
	return &Writer{OutputDir: outputDir}, nil
}

// Resolve returns the output path for input. explicit wins when set;
// otherwise the name is <stem><suffix><ext>.
// Example: books/novel.epub → books/novel_cleaned.epub
func (w *Writer) Resolve(input, explicit, suffix string) string {
	if explicit != "" {
		return explicit
	}
	if suffix == "" {
		suffix = DefaultSuffix
	}

	dir := filepath.Dir(input)
	if w.OutputDir != "" {
		dir = w.OutputDir
	}
	base := filepath.Base(input)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if ext == "" {
		ext = ".epub"
	}
	return filepath.Join(dir, stem+suffix+ext)
}

// ConvertedPath returns the output path for a converted copy of input.
// Example: books/novel.epub, ".md" → books/novel.md
func (w *Writer) ConvertedPath(input, ext string) string {
	dir := filepath.Dir(input)
	if w.OutputDir != "" {
		dir = w.OutputDir
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	base := filepath.Base(input)
	return filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+ext)
}

// Claims records which input each output path was given to during one
// batch, so two inputs with the same name never overwrite each other's
// output when OutputDir gathers them in one place.
type Claims struct {
	owners map[string]string
}

// NewClaims creates an empty Claims.
func NewClaims() *Claims {
	return &Claims{owners: make(map[string]string)}
}

// Claim reserves path for input. It fails with an IOError when another
// input already holds path.
func (c *Claims) Claim(path, input string) error {
	key := filepath.Clean(path)
	if abs, err := filepath.Abs(key); err == nil {
		key = abs
	}
	if owner, ok := c.owners[key]; ok && owner != input {
		return &core.IOError{Op: "write", Path: path, Err: errors.Errorf("output collides with %s", owner)}
	}
	c.owners[key] = input
	return nil
}

// BackupPath returns where Backup copies input.
// Example: books/novel.epub → books/novel.epub.bak
func BackupPath(input string) string {
	return input + BackupSuffix
}

// Backup copies input to its backup path, preserving the file mode, and
// returns that path.
func (w *Writer) Backup(input string) (string, error) {
	dst := BackupPath(input)

	src, err := os.Open(input)
	if err != nil {
		return "", &core.IOError{Op: "backup", Path: input, Err: err}
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return "", &core.IOError{Op: "backup", Path: input, Err: err}
	}

	if err := writeAtomic(dst, info.Mode().Perm(), func(f *os.File) error {
		_, err := io.Copy(f, src)
		return err
	}); err != nil {
		return "", &core.IOError{Op: "backup", Path: dst, Err: err}
	}
	return dst, nil
}

// WriteAtomic writes data to path through a temporary file in the same
// directory, so a failed write never leaves a partial file at path.
func (w *Writer) WriteAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &core.IOError{Op: "write", Path: path, Err: err}
	}
	if err := writeAtomic(path, 0644, func(f *os.File) error {
		_, err := f.Write(data)
		return err
	}); err != nil {
		return &core.IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}

func writeAtomic(path string, perm os.FileMode, fill func(*os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Errorf("creating temporary file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if err := fill(tmp); err != nil {
		return errors.Errorf("writing temporary file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return errors.Errorf("syncing temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return errors.Errorf("closing temporary file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return errors.Errorf("setting file mode: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.Errorf("renaming into place: %w", err)
	}
	committed = true
	return nil
}
