package task

import (
	"fmt"

	"github.com/felixgeelhaar/pulse/adapter/cli"
	"github.com/felixgeelhaar/pulse/internal/productivity/application/commands"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start [task-id]",
	Short: "Mark a task as in progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.StartTaskHandler == nil {
			return fmt.Errorf("application not initialized - database connection required")
		}
		ids, err := resolveIDs(app.CurrentUserID, args[0])
		if err != nil {
			return err
		}
		if _, err := app.StartTaskHandler.Handle(cmd.Context(), commands.StartTaskCommand{TaskID: ids.taskID, UserID: ids.userID}); err != nil {
			return fmt.Errorf("failed to start task: %w", err)
		}
		fmt.Printf("Task %s started\n", args[0])
		return nil
	},
}

var completeCmd = &cobra.Command{
	Use:   "complete [task-id]",
	Short: "Mark a task as completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.CompleteTaskHandler == nil {
			return fmt.Errorf("application not initialized - database connection required")
		}
		ids, err := resolveIDs(app.CurrentUserID, args[0])
		if err != nil {
			return err
		}
		if _, err := app.CompleteTaskHandler.Handle(cmd.Context(), commands.CompleteTaskCommand{TaskID: ids.taskID, UserID: ids.userID}); err != nil {
			return fmt.Errorf("failed to complete task: %w", err)
		}
		fmt.Printf("Task %s completed\n", args[0])
		return nil
	},
}

var archiveCmd = &cobra.Command{
	Use:   "archive [task-id]",
	Short: "Archive a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.ArchiveTaskHandler == nil {
			return fmt.Errorf("application not initialized - database connection required")
		}
		ids, err := resolveIDs(app.CurrentUserID, args[0])
		if err != nil {
			return err
		}
		if _, err := app.ArchiveTaskHandler.Handle(cmd.Context(), commands.ArchiveTaskCommand{TaskID: ids.taskID, UserID: ids.userID}); err != nil {
			return fmt.Errorf("failed to archive task: %w", err)
		}
		fmt.Printf("Task %s archived\n", args[0])
		return nil
	},
}

var recalculateCmd = &cobra.Command{
	Use:   "recalculate-priorities",
	Short: "Recompute priority scores for all pending tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.RecalculatePrioritiesHandler == nil {
			return fmt.Errorf("application not initialized - database connection required")
		}
		userID, err := uuid.Parse(app.CurrentUserID)
		if err != nil {
			return fmt.Errorf("invalid current user id: %w", err)
		}
		result, err := app.RecalculatePrioritiesHandler.Handle(cmd.Context(), commands.RecalculatePrioritiesCommand{UserID: userID})
		if err != nil {
			return fmt.Errorf("failed to recalculate priorities: %w", err)
		}
		fmt.Printf("Recalculated %d task(s), average score %.2f\n", result.UpdatedCount, result.AverageScore)
		return nil
	},
}

type resolvedIDs struct {
	taskID uuid.UUID
	userID uuid.UUID
}

func resolveIDs(currentUserID, taskIDArg string) (resolvedIDs, error) {
	userID, err := uuid.Parse(currentUserID)
	if err != nil {
		return resolvedIDs{}, fmt.Errorf("invalid current user id: %w", err)
	}
	taskID, err := uuid.Parse(taskIDArg)
	if err != nil {
		return resolvedIDs{}, fmt.Errorf("invalid task id %q: %w", taskIDArg, err)
	}
	return resolvedIDs{taskID: taskID, userID: userID}, nil
}
