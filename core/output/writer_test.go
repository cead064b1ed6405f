package output

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gaurav-prasanna/epubclean/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

func TestWriter_Resolve(t *testing.T) {
	tests := []struct {
		name      string
		outputDir string
		input     string
		explicit  string
		suffix    string
		want      string
	}{
		{name: "default_suffix", input: "books/novel.epub", want: filepath.Join("books", "novel_cleaned.epub")},
		{name: "custom_suffix", input: "novel.epub", suffix: ".clean", want: "novel.clean.epub"},
		{name: "explicit_wins", input: "novel.epub", explicit: "out/x.epub", suffix: "_y", want: "out/x.epub"},
		{name: "output_dir", outputDir: "out", input: "books/novel.epub", want: filepath.Join("out", "novel_cleaned.epub")},
		{name: "uppercase_extension_kept", input: "NOVEL.EPUB", want: "NOVEL_cleaned.EPUB"},
		{name: "no_extension", input: "novel", want: "novel_cleaned.epub"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &Writer{OutputDir: tt.outputDir}
			assert.Equal(t, tt.want, w.Resolve(tt.input, tt.explicit, tt.suffix))
		})
	}
}

func TestWriter_ConvertedPath(t *testing.T) {
	tests := []struct {
		name, outputDir, input, ext, want string
	}{
		{name: "next_to_input", input: "books/novel.epub", ext: ".md", want: filepath.Join("books", "novel.md")},
		{name: "ext_without_dot", input: "novel.epub", ext: "mobi", want: "novel.mobi"},
		{name: "output_dir", outputDir: "out", input: "books/novel.epub", ext: ".pdf", want: filepath.Join("out", "novel.pdf")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &Writer{OutputDir: tt.outputDir}
			assert.Equal(t, tt.want, w.ConvertedPath(tt.input, tt.ext))
		})
	}
}

func TestClaims(t *testing.T) {
	c := NewClaims()
	require.NoError(t, c.Claim(filepath.Join("out", "book.md"), filepath.Join("a", "book.epub")))
	require.NoError(t, c.Claim(filepath.Join("out", "other.md"), filepath.Join("a", "other.epub")))
	require.NoError(t, c.Claim(filepath.Join("out", ".", "book.md"), filepath.Join("a", "book.epub")), "same input may claim again")

	err := c.Claim(filepath.Join("out", "book.md"), filepath.Join("b", "book.epub"))
	var ioErr *core.IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "write", ioErr.Op)
	assert.Contains(t, err.Error(), "output collides with "+filepath.Join("a", "book.epub"))
}

func TestNew_CreatesOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	w, err := New(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, w.OutputDir)
	assert.DirExists(t, dir)
}

func TestWriter_Backup(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "book.epub")
	require.NoError(t, os.WriteFile(input, []byte("original"), 0600))

	w, err := New("")
	require.NoError(t, err)

	backup, err := w.Backup(input)
	require.NoError(t, err)
	assert.Equal(t, input+".bak", backup)

	data, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))

	info, err := os.Stat(backup)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestWriter_BackupMissingInput(t *testing.T) {
	w, err := New("")
	require.NoError(t, err)

	_, err = w.Backup(filepath.Join(t.TempDir(), "missing.epub"))
	var ioErr *core.IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "backup", ioErr.Op)
}

func TestWriter_WriteAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.epub")

	w, err := New("")
	require.NoError(t, err)
	require.NoError(t, w.WriteAtomic(path, []byte("first")))
	require.NoError(t, w.WriteAtomic(path, []byte("second")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestWriter_WriteAtomicFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	// A directory in the way makes the final rename fail.
	target := filepath.Join(dir, "out.epub")
	require.NoError(t, os.MkdirAll(filepath.Join(target, "child"), 0755))

	w, err := New("")
	require.NoError(t, err)

	err = w.WriteAtomic(target, []byte("data"))
	var ioErr *core.IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "write", ioErr.Op)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
