// Package convert turns cleaned EPUB files into other formats, either by
// delegating to an external converter binary or with the built-in
// Markdown, JSON and PDF renderers.
package convert

import (
	"context"
	"fmt"

	"github.com/gaurav-prasanna/epubclean/core/output"
	"github.com/rs/zerolog"
)

// Converter converts one input file into output.
type Converter interface {
	Convert(ctx context.Context, input, output string) error
}

// ConversionError reports a failed conversion of one file.
type ConversionError struct {
	Input  string
	Detail string // trailing console output of an external converter, if any
	Err    error
}

func (e *ConversionError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("converting %s: %v", e.Input, e.Err)
	}
	return fmt.Sprintf("converting %s: %v: %s", e.Input, e.Err, e.Detail)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// Result is the outcome of converting one file.
type Result struct {
	Input  string
	Output string // empty on failure
	Err    error
}

// Batch converts each input in order into writer's output location with the
// extension ext. A failure is recorded and the batch continues, except that
// a cancelled context stops it. An input whose output path was already used
// by an earlier input fails without being converted.
func Batch(ctx context.Context, conv Converter, writer *output.Writer, inputs []string, ext string) []Result {
	log := zerolog.Ctx(ctx)
	results := make([]Result, 0, len(inputs))
	claims := output.NewClaims()

	for i, input := range inputs {
		if err := ctx.Err(); err != nil {
			results = append(results, Result{Input: input, Err: err})
			continue
		}

		out := writer.ConvertedPath(input, ext)
		if err := claims.Claim(out, input); err != nil {
			log.Error().Err(err).Str("file", input).Msg("conversion skipped")
			results = append(results, Result{Input: input, Err: err})
			continue
		}
		log.Info().Str("file", input).Int("index", i+1).Int("count", len(inputs)).Str("output", out).Msg("converting")

		if err := conv.Convert(ctx, input, out); err != nil {
			log.Error().Err(err).Str("file", input).Msg("conversion failed")
			results = append(results, Result{Input: input, Err: err})
			continue
		}
		results = append(results, Result{Input: input, Output: out})
	}
	return results
}

// Failed counts the failed results.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
