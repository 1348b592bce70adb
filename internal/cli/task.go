package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/eva/internal/wire"
)

// TaskOptions holds flags shared by task add and task update.
type TaskOptions struct {
	*RootOptions
	Content    string
	Deadline   string
	Duration   time.Duration
	Importance uint32
	Segment    uint32
}

// NewTaskCommand creates the task command group.
func NewTaskCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}
	cmd.AddCommand(newTaskAddCommand(rootOpts))
	cmd.AddCommand(newTaskListCommand(rootOpts))
	cmd.AddCommand(newTaskUpdateCommand(rootOpts))
	cmd.AddCommand(newTaskRemoveCommand(rootOpts))
	return cmd
}

func addTaskFlags(cmd *cobra.Command, opts *TaskOptions) {
	cmd.Flags().StringVar(&opts.Content, "content", "", "what needs doing")
	cmd.Flags().StringVar(&opts.Deadline, "deadline", "", "deadline (RFC 3339)")
	cmd.Flags().DurationVar(&opts.Duration, "duration", 30*time.Minute, "how long it takes")
	cmd.Flags().Uint32Var(&opts.Importance, "importance", 5, "importance weight")
	cmd.Flags().Uint32Var(&opts.Segment, "segment", 0, "time segment identifier")
}

func newTaskAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TaskOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a task",
		Example: `  eva task add --content "Buy milk" --deadline 2026-03-03T18:00:00Z \
    --duration 30m --importance 5 --segment 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTaskAdd(opts, cmd)
		},
	}
	addTaskFlags(cmd, opts)
	_ = cmd.MarkFlagRequired("content")
	_ = cmd.MarkFlagRequired("deadline")
	_ = cmd.MarkFlagRequired("segment")
	return cmd
}

func runTaskAdd(opts *TaskOptions, cmd *cobra.Command) error {
	deadline, err := parseTime("deadline", opts.Deadline)
	if err != nil {
		return err
	}
	req, err := json.Marshal(wire.NewTaskDoc{
		Content:       opts.Content,
		Deadline:      deadline,
		Duration:      wire.Seconds(opts.Duration),
		Importance:    opts.Importance,
		TimeSegmentID: wire.ID(opts.Segment),
	})
	if err != nil {
		return err
	}

	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	doc, err := s.api.AddTask(cmd.Context(), req)
	if err != nil {
		return err
	}
	return s.success(doc, func() error {
		var t wire.TaskDoc
		if err := json.Unmarshal(doc, &t); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added task %s: %s\n", t.ID, t.Content)
		return nil
	})
}

func newTaskListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			doc, err := s.api.ListTasks(cmd.Context())
			if err != nil {
				return err
			}
			return s.success(doc, func() error {
				var tasks []wire.TaskDoc
				if err := json.Unmarshal(doc, &tasks); err != nil {
					return err
				}
				printTasks(cmd, tasks)
				return nil
			})
		},
	}
}

func printTasks(cmd *cobra.Command, tasks []wire.TaskDoc) {
	w := cmd.OutOrStdout()
	if len(tasks) == 0 {
		fmt.Fprintln(w, "(no tasks)")
		return
	}
	fmt.Fprintf(w, "%-10s  %-16s  %8s  %3s  %-10s  %s\n", "ID", "DEADLINE", "DURATION", "IMP", "SEGMENT", "CONTENT")
	for _, t := range tasks {
		fmt.Fprintf(w, "%-10s  %-16s  %8s  %3d  %-10s  %s\n",
			t.ID, formatTime(t.Deadline), t.Duration.Duration(), t.Importance, t.TimeSegmentID, t.Content)
	}
}

func newTaskUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TaskOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a task",
		Long: `Change fields of a task.

Only the flags given are changed; every other field keeps its stored value.`,
		Example: `  eva task update 42 --importance 9 --segment 3`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTaskUpdate(opts, cmd, args[0])
		},
	}
	addTaskFlags(cmd, opts)
	return cmd
}

func runTaskUpdate(opts *TaskOptions, cmd *cobra.Command, arg string) error {
	id, _, err := idArg(arg)
	if err != nil {
		return err
	}

	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	list, err := s.api.ListTasks(cmd.Context())
	if err != nil {
		return err
	}
	var tasks []wire.TaskDoc
	if err := json.Unmarshal(list, &tasks); err != nil {
		return err
	}
	var task *wire.TaskDoc
	for i := range tasks {
		if tasks[i].ID == id {
			task = &tasks[i]
		}
	}
	if task == nil {
		return NewExitError(ExitFailure, fmt.Sprintf("no task with identifier %s", id))
	}

	flags := cmd.Flags()
	if flags.Changed("content") {
		task.Content = opts.Content
	}
	if flags.Changed("deadline") {
		if task.Deadline, err = parseTime("deadline", opts.Deadline); err != nil {
			return err
		}
	}
	if flags.Changed("duration") {
		task.Duration = wire.Seconds(opts.Duration)
	}
	if flags.Changed("importance") {
		task.Importance = opts.Importance
	}
	if flags.Changed("segment") {
		task.TimeSegmentID = wire.ID(opts.Segment)
	}

	req, err := json.Marshal(task)
	if err != nil {
		return err
	}
	if err := s.api.UpdateTask(cmd.Context(), req); err != nil {
		return err
	}
	return s.success(req, func() error {
		fmt.Fprintf(cmd.OutOrStdout(), "Updated task %s\n", task.ID)
		return nil
	})
}

func newTaskRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, raw, err := idArg(args[0])
			if err != nil {
				return err
			}
			s, err := openSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.api.RemoveTask(cmd.Context(), raw); err != nil {
				return err
			}
			return s.success([]byte(fmt.Sprintf(`{"removed":%d}`, id)), func() error {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed task %s\n", id)
				return nil
			})
		},
	}
}
