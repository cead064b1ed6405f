// Package run sequences the cleaning of a batch of EPUB files.
//
// Files are processed one at a time in the order given. A failing file is
// recorded in the summary and never stops the rest of the batch.
package run

import (
	"context"

	"github.com/gaurav-prasanna/epubclean/core"
	"github.com/gaurav-prasanna/epubclean/core/diff"
	"github.com/gaurav-prasanna/epubclean/core/output"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// ErrOutputWithBatch is returned when an explicit output path is combined
// with more than one input.
var ErrOutputWithBatch = errors.New("--output can only be used with a single file")

// Options control what the coordinator does with a transformed archive.
type Options struct {
	DryRun       bool
	Backup       bool
	Output       string // explicit output path, single-file runs only
	OutputSuffix string
	ShowRemoved  bool // diff changed members to list the removed text
}

// Coordinator runs the clean pipeline for each input file:
// load → validate → transform → backup → write.
type Coordinator struct {
	loader      core.Loader
	transformer core.Transformer
	writer      *output.Writer
	opts        Options
}

// New creates a Coordinator.
func New(loader core.Loader, transformer core.Transformer, writer *output.Writer, opts Options) *Coordinator {
	return &Coordinator{
		loader:      loader,
		transformer: transformer,
		writer:      writer,
		opts:        opts,
	}
}

// Process cleans every input with matchers and returns the per-file results.
// The only error it returns is a misuse of Options.
func (c *Coordinator) Process(ctx context.Context, inputs []string, matchers []core.Matcher) (core.Summary, error) {
	summary := core.Summary{DryRun: c.opts.DryRun}
	if c.opts.Output != "" && len(inputs) > 1 {
		return summary, errors.WithStack(ErrOutputWithBatch)
	}

	log := zerolog.Ctx(ctx)
	claims := output.NewClaims()
	for i, input := range inputs {
		log.Info().Str("file", input).Int("index", i+1).Int("count", len(inputs)).Msg("processing")

		res := c.processFile(ctx, input, matchers, claims)
		if res.Err != nil {
			log.Error().Err(res.Err).Str("file", input).Msg("processing failed")
		}
		summary.Files = append(summary.Files, res)
	}
	return summary, nil
}

// processFile handles one input. Nothing is written unless the archive was
// transformed successfully, had at least one removal, and its output path
// was not already written by an earlier input of the batch.
func (c *Coordinator) processFile(ctx context.Context, input string, matchers []core.Matcher, claims *output.Claims) core.FileResult {
	log := zerolog.Ctx(ctx)
	res := core.FileResult{Input: input, DryRun: c.opts.DryRun}

	data, err := c.loader.Load(ctx, input)
	if err != nil {
		res.Err = err
		return res
	}

	if err := c.transformer.Validate(data); err != nil {
		res.Err = withPath(err, input)
		return res
	}

	tr, err := c.transformer.Transform(ctx, data, matchers)
	if err != nil {
		res.Err = withPath(err, input)
		return res
	}
	res.Changes = tr.Changes
	res.Total = tr.Total()

	if c.opts.ShowRemoved && res.Total > 0 {
		removed, err := diff.Members(data, tr.Output, tr.ChangedMembers())
		if err != nil {
			log.Warn().Err(err).Str("file", input).Msg("could not list removed text")
		}
		res.Removed = removed
	}

	if res.Total == 0 {
		log.Info().Str("file", input).Msg("no matching text found")
		return res
	}
	if c.opts.DryRun {
		log.Info().Str("file", input).Int("changes", res.Total).Strs("members", tr.ChangedMembers()).Msg("dry run: nothing written")
		return res
	}

	out := c.writer.Resolve(input, c.opts.Output, c.opts.OutputSuffix)
	if err := claims.Claim(out, input); err != nil {
		res.Err = err
		return res
	}

	if c.opts.Backup {
		backup, err := c.writer.Backup(input)
		if err != nil {
			res.Err = err
			return res
		}
		res.Backup = backup
		log.Debug().Str("backup", backup).Msg("backup saved")
	}

	if err := c.writer.WriteAtomic(out, tr.Output); err != nil {
		res.Err = err
		return res
	}
	res.Output = out
	log.Info().Str("output", out).Int("changes", res.Total).Msg("output saved")
	return res
}

// withPath attaches the input path to archive errors that lack one.
func withPath(err error, path string) error {
	var aerr *core.InvalidArchiveError
	if errors.As(err, &aerr) && aerr.Path == "" {
		return &core.InvalidArchiveError{Path: path, Err: aerr.Err}
	}
	return err
}
