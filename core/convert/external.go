package convert

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"os/exec"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// DefaultBinary is the converter used when none is configured.
const DefaultBinary = "ebook-convert"

// maxDetail bounds how much console output is kept in an error.
const maxDetail = 512

// ErrConverterNotFound is returned when the converter binary is not on PATH.
var ErrConverterNotFound = errors.New("converter not found")

// ErrNoOutput is returned when the converter exits cleanly but leaves no
// output, or an empty one.
var ErrNoOutput = errors.New("converter produced no output")

// External runs "<Binary> <input> <output> [Args...]". Success requires a
// zero exit status and a non-empty output file. Console output is only used
// in error messages.
type External struct {
	Binary string
	Args   []string
}

// NewExternal resolves binary on PATH.
func NewExternal(binary string, args ...string) (*External, error) {
	if binary == "" {
		binary = DefaultBinary
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, errors.Errorf("%s: %w", binary, ErrConverterNotFound)
	}
	return &External{Binary: path, Args: args}, nil
}

// Convert runs the converter and checks its output.
func (e *External) Convert(ctx context.Context, input, output string) error {
	// A file left by an earlier run must not pass for this run's output.
	if err := os.Remove(output); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &ConversionError{Input: input, Err: errors.Errorf("removing previous output: %w", err)}
	}

	args := append([]string{input, output}, e.Args...)
	cmd := exec.CommandContext(ctx, e.Binary, args...)

	var console bytes.Buffer
	cmd.Stdout = &console
	cmd.Stderr = &console

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return &ConversionError{Input: input, Detail: tail(console.String()), Err: err}
	}

	info, err := os.Stat(output)
	if err != nil || info.Size() == 0 {
		return &ConversionError{Input: input, Detail: tail(console.String()), Err: errors.WithStack(ErrNoOutput)}
	}
	return nil
}

// tail returns the last maxDetail bytes of s, trimmed.
func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxDetail {
		s = "..." + s[len(s)-maxDetail:]
	}
	return s
}
