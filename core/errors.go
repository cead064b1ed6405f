package core

import (
	"fmt"
)

// InvalidPatternError reports a removal pattern that does not compile.
// It aborts a run before any file is touched.
type InvalidPatternError struct {
	Pattern string
	Err     error
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %v", e.Pattern, e.Err)
}

func (e *InvalidPatternError) Unwrap() error { return e.Err }

// InvalidArchiveError reports an input that is not a readable ZIP/EPUB container.
type InvalidArchiveError struct {
	Path string
	Err  error
}

func (e *InvalidArchiveError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("not a valid EPUB/ZIP archive: %v", e.Err)
	}
	return fmt.Sprintf("%s is not a valid EPUB/ZIP archive: %v", e.Path, e.Err)
}

func (e *InvalidArchiveError) Unwrap() error { return e.Err }

// UnparsableDocumentError reports a text member that could not be parsed,
// even leniently. The whole archive fails with it.
type UnparsableDocumentError struct {
	Member string
	Err    error
}

func (e *UnparsableDocumentError) Error() string {
	return fmt.Sprintf("cannot parse document %s: %v", e.Member, e.Err)
}

func (e *UnparsableDocumentError) Unwrap() error { return e.Err }

// IOError reports a read, write or backup failure for one file.
type IOError struct {
	Op   string // "read", "write", "backup"
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
