package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/souky-byte/opencode-studio/internal/task"
	"github.com/souky-byte/opencode-studio/pkg/types"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks in the current project",
}

func init() {
	taskCmd.AddCommand(taskListCmd, taskCreateCmd, taskExecuteCmd, taskTransitionCmd, taskTailCmd)
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks in the current project",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := workDir()
		if err != nil {
			return err
		}
		manager, pctx, err := openProject(cmd.Context(), dir)
		if err != nil {
			return err
		}
		defer manager.Close()

		tasks, err := pctx.Tasks.List()
		if err != nil {
			return fmt.Errorf("list tasks: %w", err)
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSTATUS\tTITLE")
		for _, t := range tasks {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", t.ID, t.Status, t.Title)
		}
		return tw.Flush()
	},
}

var taskCreateCmd = &cobra.Command{
	Use:   "create [title]",
	Short: "Create a new task in the todo state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := workDir()
		if err != nil {
			return err
		}
		manager, pctx, err := openProject(cmd.Context(), dir)
		if err != nil {
			return err
		}
		defer manager.Close()

		description, _ := cmd.Flags().GetString("description")

		now := time.Now()
		t := types.Task{
			ID:          uuid.NewString(),
			Title:       args[0],
			Description: description,
			Status:      types.StatusTodo,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := pctx.Tasks.Create(t); err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		fmt.Println(t.ID)
		return nil
	},
}

func init() {
	taskCreateCmd.Flags().String("description", "", "Task description")
}

var taskExecuteCmd = &cobra.Command{
	Use:   "execute [task-id]",
	Short: "Dispatch the next Phase for a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := workDir()
		if err != nil {
			return err
		}
		manager, pctx, err := openProject(cmd.Context(), dir)
		if err != nil {
			return err
		}
		defer manager.Close()

		if pctx.Executor == nil {
			return fmt.Errorf("no task executor configured for this project")
		}

		t, err := pctx.Tasks.Get(args[0])
		if err != nil {
			return fmt.Errorf("get task: %w", err)
		}

		phase, err := pctx.Executor.StartPhaseAsync(t)
		if err != nil {
			return fmt.Errorf("start phase: %w", err)
		}
		fmt.Printf("dispatched phase %s for task %s\n", phase, t.ID)
		return nil
	},
}

var taskTransitionCmd = &cobra.Command{
	Use:   "transition [task-id] [status]",
	Short: "Move a task to a new status, resuming execution if applicable",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := workDir()
		if err != nil {
			return err
		}
		manager, pctx, err := openProject(cmd.Context(), dir)
		if err != nil {
			return err
		}
		defer manager.Close()

		t, err := pctx.Tasks.Get(args[0])
		if err != nil {
			return fmt.Errorf("get task: %w", err)
		}

		transitioner := task.New(pctx.Tasks, pctx.Bus)
		updated, err := transitioner.Transition(t, types.TaskStatus(args[1]))
		if err != nil {
			return fmt.Errorf("transition task: %w", err)
		}

		if pctx.Executor != nil && dispatchable(updated.Status) {
			if _, err := pctx.Executor.StartPhaseAsync(updated); err != nil {
				return fmt.Errorf("resume execution: %w", err)
			}
		}

		fmt.Printf("task %s is now %s\n", updated.ID, updated.Status)
		return nil
	},
}

// dispatchable mirrors internal/server/handlers.go's dispatchableStatus:
// only these statuses should auto-resume execution after a transition.
func dispatchable(status types.TaskStatus) bool {
	switch status {
	case types.StatusInProgress, types.StatusFix:
		return true
	default:
		return false
	}
}

var taskTailCmd = &cobra.Command{
	Use:   "tail [task-id]",
	Short: "Stream a task's current session activity to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := workDir()
		if err != nil {
			return err
		}
		manager, pctx, err := openProject(cmd.Context(), dir)
		if err != nil {
			return err
		}
		defer manager.Close()

		sessions, err := pctx.Sessions.ListForTask(args[0])
		if err != nil {
			return fmt.Errorf("list sessions for task: %w", err)
		}
		if len(sessions) == 0 {
			return fmt.Errorf("no sessions yet for task %s", args[0])
		}
		sessionID := sessions[len(sessions)-1].ID

		store, err := pctx.Activities.GetOrCreateWithHistory(sessionID)
		if err != nil {
			return fmt.Errorf("load session activity: %w", err)
		}

		for _, ev := range store.History() {
			printActivity(ev.Msg)
		}
		if store.IsFinished() {
			return nil
		}

		updates, unsub := store.Subscribe()
		defer unsub()

		ctx := cmd.Context()
		for {
			select {
			case ev, ok := <-updates:
				if !ok {
					return nil
				}
				printActivity(ev.Msg)
				if _, finished := ev.Msg.(types.Finished); finished {
					return nil
				}
			case <-ctx.Done():
				return nil
			}
		}
	},
}

func printActivity(msg types.ActivityMsg) {
	switch m := msg.(type) {
	case types.ToolCall:
		fmt.Printf("[tool] %s\n", m.ToolName)
	case types.ToolResult:
		fmt.Printf("[tool-result] %s success=%v\n", m.ToolName, m.Success)
	case types.AgentMessage:
		fmt.Print(m.Content)
	case types.Reasoning:
		fmt.Printf("[reasoning] %s\n", m.Content)
	case types.Finished:
		if m.Success {
			fmt.Println("\n[finished] ok")
		} else {
			fmt.Printf("\n[finished] error: %v\n", m.Error)
		}
	}
}
