package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/gaurav-prasanna/epubclean/config"
	"github.com/gaurav-prasanna/epubclean/core/convert"
	"github.com/gaurav-prasanna/epubclean/core/output"
	"github.com/gaurav-prasanna/epubclean/core/render"
	"github.com/gaurav-prasanna/epubclean/scan"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

type convertOptions struct {
	format     string
	converter  string
	outputDir  string
	configFile string
}

func newConvertCmd() *cobra.Command {
	opts := &convertOptions{}

	cmd := &cobra.Command{
		Use:   "convert <files|globs...>",
		Short: "Convert EPUB files to another format",
		Long: `Convert writes each EPUB in another format. Markdown, JSON and PDF are
produced by the built-in renderers unless --converter is given. Any other
format is delegated to an external converter, called as
"<converter> <input.epub> <output.ext>" (default: ebook-convert).

Examples:
  epubclean convert book_cleaned.epub --format md
  epubclean convert "*_cleaned.epub" --format pdf --output_dir ./out
  epubclean convert book_cleaned.epub --format azw3
  epubclean convert book_cleaned.epub --format mobi --converter /opt/calibre/ebook-convert`,
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
			return runConvert(cmd, opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.format, "format", "", "Output format: md, json, pdf, or any extension the external converter supports")
	f.StringVar(&opts.converter, "converter", "", "External converter binary (default: built-in renderer, else ebook-convert)")
	f.StringVar(&opts.outputDir, "output_dir", "", "Output directory (default: next to each input)")
	f.StringVar(&opts.configFile, "config", "", "YAML file with default option values")
	return cmd
}

// formatExtension validates --format and returns it as a file extension.
func formatExtension(format string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	if ext == "" {
		return "", errors.New("--format is required: md, json, pdf, or a converter extension such as mobi")
	}
	if strings.ContainsAny(ext, `/\ `) {
		return "", errors.Errorf("invalid --format %q", format)
	}
	if ext == "epub" {
		return "", errors.New("--format epub would overwrite the input; use clean instead")
	}
	return "." + ext, nil
}

// selectConverter picks the built-in renderer for its formats, and the
// external converter otherwise or when one is named explicitly.
func selectConverter(opts *convertOptions, writer *output.Writer) (convert.Converter, string, error) {
	ext, err := formatExtension(opts.format)
	if err != nil {
		return nil, "", err
	}

	if opts.converter == "" {
		if renderer, ok := render.ForFormat(ext); ok {
			return convert.NewBuiltin(renderer, writer), renderer.Extension(), nil
		}
	}

	external, err := convert.NewExternal(opts.converter)
	if err != nil {
		return nil, "", err
	}
	return external, ext, nil
}

func runConvert(cmd *cobra.Command, opts *convertOptions, args []string) error {
	ctx := cmd.Context()

	writer, err := output.New(opts.outputDir)
	if err != nil {
		return errors.Errorf("initializing output writer: %w", err)
	}
	conv, ext, err := selectConverter(opts, writer)
	if err != nil {
		return err
	}

	inputs, err := scan.Discover(ctx, args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	results := convert.Batch(ctx, conv, writer, inputs, ext)
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(out, "%s %s: %v\n", color.RedString("✗"), filepath.Base(r.Input), r.Err)
			continue
		}
		fmt.Fprintf(out, "%s Written: %s\n", color.GreenString("✓"), r.Output)
	}

	if failed := convert.Failed(results); failed > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "\n%d/%d files failed\n", failed, len(results))
		return errors.WithStack(ErrFilesFailed)
	}
	return nil
}
