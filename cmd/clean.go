package cmd

import (
	"github.com/gaurav-prasanna/epubclean/config"
	"github.com/gaurav-prasanna/epubclean/core/archive"
	"github.com/gaurav-prasanna/epubclean/core/output"
	"github.com/gaurav-prasanna/epubclean/core/pattern"
	"github.com/gaurav-prasanna/epubclean/core/rewrite"
	"github.com/gaurav-prasanna/epubclean/core/run"
	"github.com/gaurav-prasanna/epubclean/core/source"
	"github.com/gaurav-prasanna/epubclean/scan"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

type cleanOptions struct {
	patterns        []string
	regex           bool
	caseInsensitive bool
	pageNumbers     bool
	output          string
	outputSuffix    string
	outputDir       string
	noBackup        bool
	dryRun          bool
	showRemoved     bool
	configFile      string
}

func newCleanCmd() *cobra.Command {
	opts := &cleanOptions{}

	cmd := &cobra.Command{
		Use:   "clean <files|globs...>",
		Short: "Remove text matching patterns from EPUB files",
		Long: `Clean removes every occurrence of the given patterns from the text of each
HTML/XHTML document in the EPUB files, then writes a cleaned copy.

Examples:
  epubclean clean book.epub -r "Downloaded from example.com"
  epubclean clean "library/**/*.epub" --remove-page-numbers --dry-run --show-removed
  epubclean clean book.epub -r "Page \d+" --regex -o clean.epub --no-backup
  epubclean clean *.epub --config epubclean.yaml -v`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.configFile != "" {
				cfg, err := config.Load(cmd.Context(), opts.configFile)
				if err != nil {
					return err
				}
				if err := cfg.ApplyTo(cmd.Flags()); err != nil {
					return err
				}
			}
			verbose, _ := cmd.Flags().GetBool("verbose")
			return runClean(cmd, opts, args, verbose)
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&opts.patterns, "remove", "r", nil, "Text to remove (repeatable)")
	f.BoolVar(&opts.regex, "regex", false, "Treat --remove patterns as regular expressions")
	f.BoolVar(&opts.caseInsensitive, "case-insensitive", false, "Match patterns case-insensitively")
	f.BoolVar(&opts.pageNumbers, "remove-page-numbers", false, "Also remove common page-number patterns")
	f.StringVarP(&opts.output, "output", "o", "", "Output file (single input only)")
	f.StringVar(&opts.outputSuffix, "output-suffix", output.DefaultSuffix, "Suffix for output file names")
	f.StringVar(&opts.outputDir, "output_dir", "", "Output directory (default: next to each input)")
	f.BoolVar(&opts.noBackup, "no-backup", false, "Do not keep a .bak copy of each input")
	f.BoolVar(&opts.dryRun, "dry-run", false, "Report what would be removed without writing anything")
	f.BoolVar(&opts.showRemoved, "show-removed", false, "List the exact text removed from each document")
	f.StringVar(&opts.configFile, "config", "", "YAML file with default option values")
	return cmd
}

// validateClean checks flag combinations before any file is read.
func validateClean(opts *cleanOptions) error {
	if len(opts.patterns) == 0 && !opts.pageNumbers {
		return errors.WithStack(pattern.ErrNoPatterns)
	}
	if opts.output != "" && opts.outputDir != "" {
		return errors.New("--output and --output_dir are mutually exclusive")
	}
	return nil
}

func runClean(cmd *cobra.Command, opts *cleanOptions, args []string, verbose bool) error {
	ctx := cmd.Context()
	log := zerolog.Ctx(ctx)

	if err := validateClean(opts); err != nil {
		return err
	}

	// Patterns are compiled before any file is touched.
	matchers, err := pattern.New(pattern.DefaultPageNumberPatterns()).Compile(pattern.Options{
		Patterns:        opts.patterns,
		Regex:           opts.regex,
		CaseInsensitive: opts.caseInsensitive,
		PageNumbers:     opts.pageNumbers,
	})
	if err != nil {
		return err
	}
	for _, m := range matchers {
		log.Debug().Str("pattern", m.String()).Bool("regex", m.IsRegex).Msg("matcher compiled")
	}

	inputs, err := scan.Discover(ctx, args)
	if err != nil {
		return err
	}
	if opts.output != "" && len(inputs) > 1 {
		return errors.WithStack(run.ErrOutputWithBatch)
	}

	outDir := opts.outputDir
	if opts.dryRun {
		outDir = ""
	}
	writer, err := output.New(outDir)
	if err != nil {
		return errors.Errorf("initializing output writer: %w", err)
	}

	coordinator := run.New(source.New(), archive.New(rewrite.New()), writer, run.Options{
		DryRun:       opts.dryRun,
		Backup:       !opts.noBackup,
		Output:       opts.output,
		OutputSuffix: opts.outputSuffix,
		ShowRemoved:  opts.showRemoved,
	})
	summary, err := coordinator.Process(ctx, inputs, matchers)
	if err != nil {
		return err
	}

	run.Report(cmd.OutOrStdout(), summary, verbose)
	if summary.Failed() > 0 {
		return errors.WithStack(ErrFilesFailed)
	}
	return nil
}
