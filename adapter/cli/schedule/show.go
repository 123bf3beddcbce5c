package schedule

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/pulse/adapter/cli"
	"github.com/felixgeelhaar/pulse/internal/scheduling/application/queries"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var showDate string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the calendar blocks booked for a day",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.GetScheduleHandler == nil {
			return fmt.Errorf("application not initialized - database connection required")
		}

		userID, err := uuid.Parse(app.CurrentUserID)
		if err != nil {
			return fmt.Errorf("invalid current user id: %w", err)
		}

		date := time.Now()
		if showDate != "" {
			parsed, err := time.Parse("2006-01-02", showDate)
			if err != nil {
				return fmt.Errorf("invalid --date format, use YYYY-MM-DD: %w", err)
			}
			date = parsed
		}

		schedule, err := app.GetScheduleHandler.Handle(cmd.Context(), queries.GetScheduleQuery{UserID: userID, Date: date})
		if err != nil {
			return fmt.Errorf("failed to load schedule: %w", err)
		}
		if schedule == nil || len(schedule.Blocks) == 0 {
			fmt.Printf("No blocks scheduled for %s.\n", date.Format("2006-01-02"))
			return nil
		}

		fmt.Printf("Schedule for %s (%d min scheduled):\n", date.Format("2006-01-02"), schedule.TotalScheduledMins)
		for _, b := range schedule.Blocks {
			marker := " "
			if b.Completed {
				marker = "x"
			} else if b.Missed {
				marker = "!"
			}
			fmt.Printf("  [%s] %s - %s  %s\n", marker, b.StartTime.Format("15:04"), b.EndTime.Format("15:04"), b.Title)
		}
		return nil
	},
}

func init() {
	showCmd.Flags().StringVar(&showDate, "date", "", "date to show (YYYY-MM-DD), defaults to today")
}
