// Package scan turns command-line arguments into the list of EPUB files to
// process. Arguments may be file paths or glob patterns, including "**".
package scan

import (
	"context"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// ErrNoInputs is returned when no argument resolves to an EPUB file.
var ErrNoInputs = errors.New("no EPUB files found")

// Discover resolves args in order. An existing .epub file is taken as is, a
// glob is expanded to the .epub files it matches, and anything else is
// skipped with a warning. Duplicates keep their first position.
func Discover(ctx context.Context, args []string) ([]string, error) {
	log := zerolog.Ctx(ctx)
	queue := NewQueue()

	for _, arg := range args {
		info, err := os.Stat(arg)
		switch {
		case err == nil && !info.IsDir() && IsEPUB(arg):
			queue.Add(arg)
		case err == nil && info.IsDir():
			log.Warn().Str("path", arg).Msg("skipping directory, use a glob such as dir/**/*.epub")
		case HasGlobMeta(arg):
			matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly(), doublestar.WithNoFollow())
			if err != nil {
				return nil, errors.Errorf("expanding %q: %w", arg, err)
			}
			found := 0
			for _, m := range matches {
				if IsEPUB(m) {
					queue.Add(filepath.Clean(m))
					found++
				}
			}
			if found == 0 {
				log.Warn().Str("pattern", arg).Msg("pattern matched no EPUB files")
			}
		case err == nil:
			log.Warn().Str("path", arg).Msg("skipping non-EPUB file")
		default:
			log.Warn().Str("path", arg).Msg("file not found")
		}
	}

	if queue.Len() == 0 {
		return nil, errors.WithStack(ErrNoInputs)
	}
	return queue.All(), nil
}
