package schedule

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/pulse/adapter/cli"
	"github.com/felixgeelhaar/pulse/internal/scheduling/application/commands"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var dayDate string

var dayCmd = &cobra.Command{
	Use:   "day",
	Short: "Auto-schedule a single day against the legacy calendar-block engine",
	Long: `Collects pending tasks due on or before the target date and books
them as time blocks on that day's calendar, using the greedy scheduler
engine (priority first, then duration).

Examples:
  pulse schedule day
  pulse schedule day --date 2026-08-05`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.ScheduleDayHandler == nil {
			return fmt.Errorf("application not initialized - database connection required")
		}

		userID, err := uuid.Parse(app.CurrentUserID)
		if err != nil {
			return fmt.Errorf("invalid current user id: %w", err)
		}

		date := time.Now()
		if dayDate != "" {
			parsed, err := time.Parse("2006-01-02", dayDate)
			if err != nil {
				return fmt.Errorf("invalid --date format, use YYYY-MM-DD: %w", err)
			}
			date = parsed
		}

		result, err := app.ScheduleDayHandler.Handle(cmd.Context(), commands.ScheduleDayCommand{UserID: userID, Date: date})
		if err != nil {
			return fmt.Errorf("failed to schedule day: %w", err)
		}

		fmt.Printf("Scheduled %d/%d candidates for %s (%.0f%% utilization)\n",
			result.Scheduled, result.TotalCandidates, date.Format("2006-01-02"), result.Utilization*100)
		for _, d := range result.Details {
			if d.Scheduled {
				fmt.Printf("  [x] %s  %s - %s\n", d.Title, d.StartTime.Format("15:04"), d.EndTime.Format("15:04"))
			} else {
				fmt.Printf("  [ ] %s  (%s)\n", d.Title, d.Reason)
			}
		}
		return nil
	},
}

func init() {
	dayCmd.Flags().StringVar(&dayDate, "date", "", "date to schedule (YYYY-MM-DD), defaults to today")
}
