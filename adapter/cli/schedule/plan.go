package schedule

import (
	"fmt"

	"github.com/felixgeelhaar/pulse/adapter/cli"
	"github.com/felixgeelhaar/pulse/internal/scheduling/application/commands"
	"github.com/spf13/cobra"
)

var (
	planHorizonDays int
	planDryRun      bool
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Run the multi-day constraint solver over the pending backlog",
	Long: `Solves a rolling horizon of days at once instead of booking one
calendar day at a time, using the scheduler pipeline (deterministic
layer, CP-SAT-style search, greedy fallback).

Examples:
  pulse schedule plan
  pulse schedule plan --horizon 14 --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.GeneratePlanHandler == nil {
			return fmt.Errorf("application not initialized - database connection required")
		}

		solution, err := app.GeneratePlanHandler.Handle(cmd.Context(), commands.GeneratePlanCommand{
			UserID:      app.CurrentUserID,
			HorizonDays: planHorizonDays,
			DryRun:      planDryRun,
		})
		if err != nil {
			return fmt.Errorf("failed to generate plan: %w", err)
		}

		fmt.Printf("Plan status: %s (feasible=%t)\n", solution.SolverStatus, solution.Feasible)
		fmt.Printf("Blocks placed: %d, unscheduled: %d\n", len(solution.Blocks), len(solution.UnscheduledTasks))
		for _, b := range solution.Blocks {
			fmt.Printf("  %s  %s - %s\n", b.Title, b.Start.Format("2006-01-02 15:04"), b.End.Format("15:04"))
		}
		for _, t := range solution.UnscheduledTasks {
			fmt.Printf("  [unscheduled] %s\n", t)
		}
		return nil
	},
}

func init() {
	planCmd.Flags().IntVar(&planHorizonDays, "horizon", 0, "planning horizon in days (0 = use configured default)")
	planCmd.Flags().BoolVar(&planDryRun, "dry-run", false, "solve without persisting the resulting blocks")
}
