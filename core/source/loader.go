// Package source implements the Loader interface.
// It reads an input archive fully into memory, with a size ceiling.
package source

import (
	"context"
	"io"
	"os"

	"github.com/gaurav-prasanna/epubclean/core"
	"gitlab.com/tozd/go/errors"
)

// defaultMaxSize bounds a single input archive. E-books are far smaller.
const defaultMaxSize int64 = 1 << 30

// FileLoader loads archives from the local filesystem.
type FileLoader struct {
	MaxSize int64
}

// New creates a FileLoader with the default size ceiling.
func New() *FileLoader {
	return &FileLoader{MaxSize: defaultMaxSize}
}

// Load reads path into memory. Failures are reported as *core.IOError.
func (l *FileLoader) Load(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &core.IOError{Op: "read", Path: path, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, &core.IOError{Op: "read", Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &core.IOError{Op: "read", Path: path, Err: errors.New("is a directory")}
	}
	if info.Size() > l.MaxSize {
		return nil, &core.IOError{Op: "read", Path: path, Err: errors.Errorf("file too large: %d bytes (max %d)", info.Size(), l.MaxSize)}
	}

	data, err := io.ReadAll(io.LimitReader(f, l.MaxSize+1))
	if err != nil {
		return nil, &core.IOError{Op: "read", Path: path, Err: err}
	}
	if int64(len(data)) > l.MaxSize {
		return nil, &core.IOError{Op: "read", Path: path, Err: errors.Errorf("file grew beyond %d bytes while reading", l.MaxSize)}
	}
	return data, nil
}
