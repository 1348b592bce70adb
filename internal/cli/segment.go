package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/eva/internal/wire"
)

// SegmentOptions holds flags shared by segment add and segment update.
type SegmentOptions struct {
	*RootOptions
	Name   string
	Ranges []string
	Start  string
	Period time.Duration
}

// NewSegmentCommand creates the segment command group.
func NewSegmentCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "segment",
		Aliases: []string{"segments"},
		Short:   "Manage time segments",
		Long: `Manage time segments.

A time segment is a named set of windows, repeated every period, during
which its tasks may be scheduled. There is always at least one.`,
	}
	cmd.AddCommand(newSegmentAddCommand(rootOpts))
	cmd.AddCommand(newSegmentListCommand(rootOpts))
	cmd.AddCommand(newSegmentUpdateCommand(rootOpts))
	cmd.AddCommand(newSegmentDeleteCommand(rootOpts))
	return cmd
}

func addSegmentFlags(cmd *cobra.Command, opts *SegmentOptions) {
	cmd.Flags().StringVar(&opts.Name, "name", "", "segment name")
	cmd.Flags().StringArrayVar(&opts.Ranges, "range", nil, "window as START/END in RFC 3339 (repeatable)")
	cmd.Flags().StringVar(&opts.Start, "start", "", "start of the first period (RFC 3339, default: earliest range start)")
	cmd.Flags().DurationVar(&opts.Period, "period", 7*24*time.Hour, "repetition period (0 for no repetition)")
}

// parseRanges parses START/END pairs.
func parseRanges(values []string) ([]wire.RangeDoc, error) {
	out := make([]wire.RangeDoc, 0, len(values))
	for _, v := range values {
		startStr, endStr, ok := strings.Cut(v, "/")
		if !ok {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid --range %q: want START/END", v))
		}
		start, err := parseTime("range", startStr)
		if err != nil {
			return nil, err
		}
		end, err := parseTime("range", endStr)
		if err != nil {
			return nil, err
		}
		out = append(out, wire.RangeDoc{Start: start, End: end})
	}
	return out, nil
}

func earliestStart(ranges []wire.RangeDoc) time.Time {
	var first time.Time
	for i, r := range ranges {
		if i == 0 || r.Start.Before(first) {
			first = r.Start
		}
	}
	return first
}

func newSegmentAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SegmentOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a time segment",
		Example: `  eva segment add --name Work \
    --range 2026-03-02T09:00:00Z/2026-03-02T17:00:00Z \
    --range 2026-03-03T09:00:00Z/2026-03-03T17:00:00Z`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSegmentAdd(opts, cmd)
		},
	}
	addSegmentFlags(cmd, opts)
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("range")
	return cmd
}

func runSegmentAdd(opts *SegmentOptions, cmd *cobra.Command) error {
	ranges, err := parseRanges(opts.Ranges)
	if err != nil {
		return err
	}
	start := earliestStart(ranges)
	if opts.Start != "" {
		if start, err = parseTime("start", opts.Start); err != nil {
			return err
		}
	}
	req, err := json.Marshal(wire.NewTimeSegmentDoc{
		Name:   opts.Name,
		Ranges: ranges,
		Start:  start,
		Period: wire.Seconds(opts.Period),
	})
	if err != nil {
		return err
	}

	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	doc, err := s.api.AddTimeSegment(cmd.Context(), req)
	if err != nil {
		return err
	}
	return s.success(doc, func() error {
		var seg wire.TimeSegmentDoc
		if err := json.Unmarshal(doc, &seg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added time segment %s: %s\n", seg.ID, seg.Name)
		return nil
	})
}

func newSegmentListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List time segments",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			doc, err := s.api.ListTimeSegments(cmd.Context())
			if err != nil {
				return err
			}
			return s.success(doc, func() error {
				var segs []wire.TimeSegmentDoc
				if err := json.Unmarshal(doc, &segs); err != nil {
					return err
				}
				printSegments(cmd, segs)
				return nil
			})
		},
	}
}

func printSegments(cmd *cobra.Command, segs []wire.TimeSegmentDoc) {
	w := cmd.OutOrStdout()
	for i, seg := range segs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "[%s] %s\n", seg.ID, seg.Name)
		fmt.Fprintf(w, "  Start:  %s\n", formatTime(seg.Start))
		if p := seg.Period.Duration(); p > 0 {
			fmt.Fprintf(w, "  Period: %s\n", p)
		} else {
			fmt.Fprintln(w, "  Period: none")
		}
		for _, r := range seg.Ranges {
			fmt.Fprintf(w, "  Window: %s - %s\n", formatTime(r.Start), formatTime(r.End))
		}
	}
}

// findSegment returns the stored document of segment id.
func findSegment(s *session, cmd *cobra.Command, id wire.ID) (*wire.TimeSegmentDoc, error) {
	list, err := s.api.ListTimeSegments(cmd.Context())
	if err != nil {
		return nil, err
	}
	var segs []wire.TimeSegmentDoc
	if err := json.Unmarshal(list, &segs); err != nil {
		return nil, err
	}
	for i := range segs {
		if segs[i].ID == id {
			return &segs[i], nil
		}
	}
	return nil, NewExitError(ExitFailure, fmt.Sprintf("no time segment with identifier %s", id))
}

func newSegmentUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SegmentOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a time segment",
		Long: `Change fields of a time segment.

Only the flags given are changed. Passing --range replaces all windows.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSegmentUpdate(opts, cmd, args[0])
		},
	}
	addSegmentFlags(cmd, opts)
	return cmd
}

func runSegmentUpdate(opts *SegmentOptions, cmd *cobra.Command, arg string) error {
	id, _, err := idArg(arg)
	if err != nil {
		return err
	}

	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	seg, err := findSegment(s, cmd, id)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("name") {
		seg.Name = opts.Name
	}
	if flags.Changed("range") {
		if seg.Ranges, err = parseRanges(opts.Ranges); err != nil {
			return err
		}
	}
	if flags.Changed("start") {
		if seg.Start, err = parseTime("start", opts.Start); err != nil {
			return err
		}
	}
	if flags.Changed("period") {
		seg.Period = wire.Seconds(opts.Period)
	}

	req, err := json.Marshal(seg)
	if err != nil {
		return err
	}
	if err := s.api.UpdateTimeSegment(cmd.Context(), req); err != nil {
		return err
	}
	return s.success(req, func() error {
		fmt.Fprintf(cmd.OutOrStdout(), "Updated time segment %s\n", seg.ID)
		return nil
	})
}

func newSegmentDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a time segment",
		Long: `Delete a time segment.

Refused while tasks still reference the segment, and for the last
remaining segment.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _, err := idArg(args[0])
			if err != nil {
				return err
			}
			s, err := openSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			seg, err := findSegment(s, cmd, id)
			if err != nil {
				return err
			}
			req, err := json.Marshal(seg)
			if err != nil {
				return err
			}
			if err := s.api.DeleteTimeSegment(cmd.Context(), req); err != nil {
				return err
			}
			return s.success([]byte(fmt.Sprintf(`{"deleted":%d}`, id)), func() error {
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted time segment %s: %s\n", seg.ID, seg.Name)
				return nil
			})
		},
	}
}
