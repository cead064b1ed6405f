// Package cmd implements the epubclean CLI using Cobra.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

// ErrFilesFailed is returned when at least one file of a batch failed. The
// per-file reasons have already been printed.
var ErrFilesFailed = errors.New("some files failed")

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "epubclean",
		Short: "epubclean removes unwanted text from EPUB files",
		Long: `epubclean removes watermarks, page numbers and other unwanted text from
the HTML/XHTML documents inside EPUB files, leaving markup and every other
archive member untouched. Cleaned books can then be converted to other
formats.

Usage:
  epubclean clean <files|globs...> [flags]
  epubclean convert <files|globs...> --format md|pdf|json|<ext> [flags]`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := zerolog.WarnLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.Kitchen}).
				Level(level).With().Timestamp().Logger()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(logger.WithContext(ctx))
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output: debug logs and per-document change details")
	root.AddCommand(newCleanCmd(), newConvertCmd())
	return root
}

// Execute runs the root command. Interrupts cancel the running batch.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		if !errors.Is(err, ErrFilesFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
