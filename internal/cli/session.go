package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/eva/internal/api"
	"github.com/roach88/eva/internal/config"
	"github.com/roach88/eva/internal/logx"
	"github.com/roach88/eva/internal/wire"
)

// session is one command's view of the configured store.
type session struct {
	api *api.API
	out *OutputFormatter
}

// openSession loads the configuration, applies flag overrides and runs the
// one-time initialization.
func openSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	file, err := config.Load(opts.Config)
	if err != nil {
		return nil, err
	}
	if opts.DB != "" {
		file.Store.Path = opts.DB
	}
	if opts.Driver != "" {
		file.Store.Driver = opts.Driver
	}
	if opts.Strategy != "" {
		file.Scheduling.Strategy = opts.Strategy
	}
	if err := file.Validate(); err != nil {
		return nil, err
	}

	level := file.Logging.Level
	if opts.Verbose {
		level = "debug"
	}
	log := logx.New(logx.Config{Level: level, Format: file.Logging.Format, Writer: cmd.ErrOrStderr()})

	cell := opts.Cell
	if cell == nil {
		cell = config.Process()
	}
	a := api.New(cell, config.Build(file, config.BuildOptions{Logger: log}))
	if err := a.Initialize(cmd.Context()); err != nil {
		return nil, err
	}

	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	out.VerboseLog("Using %s store at %s", file.Store.Driver, file.Store.Path)
	return &session{api: a, out: out}, nil
}

func (s *session) Close() error {
	return s.api.Close()
}

// success prints doc as JSON data, or text rendered by the caller.
func (s *session) success(doc []byte, text func() error) error {
	if s.out.Format == "json" {
		return s.out.Success(json.RawMessage(doc))
	}
	return text()
}

// idArg validates a positional identifier. It also returns the argument as
// a JSON string, the form a UI sends.
func idArg(arg string) (wire.ID, []byte, error) {
	id, err := wire.ParseID(arg)
	if err != nil {
		return 0, nil, WrapExitError(ExitCommandError, "invalid identifier", err)
	}
	return wire.ID(id), []byte(strconv.Quote(arg)), nil
}

func parseTime(flag, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, WrapExitError(ExitCommandError, fmt.Sprintf("invalid --%s", flag), err)
	}
	return t, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04")
}
