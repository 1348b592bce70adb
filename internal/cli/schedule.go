package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/eva/internal/wire"
)

// NewScheduleCommand creates the schedule command.
func NewScheduleCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Show when each task will be done",
		Long: `Compute a schedule starting now.

Tasks are ordered by the configured strategy (see --strategy) and placed
back-to-back inside the windows of their time segments.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			doc, err := s.api.Schedule(cmd.Context(), "")
			if err != nil {
				return err
			}
			return s.success(doc, func() error {
				var sched wire.ScheduleDoc
				if err := json.Unmarshal(doc, &sched); err != nil {
					return err
				}
				printSchedule(cmd, sched)
				return nil
			})
		},
	}
}

func printSchedule(cmd *cobra.Command, sched wire.ScheduleDoc) {
	w := cmd.OutOrStdout()
	if len(sched) == 0 {
		fmt.Fprintln(w, "(nothing to schedule)")
		return
	}
	fmt.Fprintf(w, "%-16s  %8s  %-10s  %s\n", "WHEN", "DURATION", "ID", "TASK")
	for _, entry := range sched {
		fmt.Fprintf(w, "%-16s  %8s  %-10s  %s\n",
			formatTime(entry.When), entry.Task.Duration.Duration(), entry.Task.ID, entry.Task.Content)
	}
}
