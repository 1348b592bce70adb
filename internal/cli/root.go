package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/eva/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Config   string // configuration file
	DB       string // overrides store.path
	Driver   string // overrides store.driver
	Strategy string // overrides scheduling.strategy

	// Cell holds the configuration for this process. Defaults to
	// config.Process().
	Cell *config.Cell
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the eva CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eva",
		Short: "eva - a personal task scheduler",
		Long: `eva keeps tasks and the time segments they may be scheduled in,
and computes a schedule that places every task inside its segment.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", config.DefaultFile(), "configuration file")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "database path (overrides store.path)")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", "", "store driver: sqlite, badger or memory (overrides store.driver)")
	cmd.PersistentFlags().StringVar(&opts.Strategy, "strategy", "", "scheduling strategy: importance or urgency (overrides scheduling.strategy)")

	// Add subcommands
	cmd.AddCommand(NewTaskCommand(opts))
	cmd.AddCommand(NewSegmentCommand(opts))
	cmd.AddCommand(NewScheduleCommand(opts))

	return cmd
}

// Execute runs the CLI and returns the process exit code. Failures are
// written to stdout as a JSON response with --format json, and to stderr
// otherwise.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	return execute(ctx, &RootOptions{}, args, stdout, stderr)
}

func execute(ctx context.Context, opts *RootOptions, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	f := &OutputFormatter{Format: opts.Format, Writer: stderr, Verbose: opts.Verbose}
	if f.Format == "json" {
		f.Writer = stdout
	} else {
		f.Format = "text"
	}
	_ = f.Error(ErrorCode(err), err.Error(), nil)
	return GetExitCode(err)
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
