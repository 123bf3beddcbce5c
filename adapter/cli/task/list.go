package task

import (
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/pulse/adapter/cli"
	"github.com/felixgeelhaar/pulse/internal/productivity/application/queries"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	showAll        bool
	status         string
	filterPriority string
	overdue        bool
	dueToday       bool
	sortBy         string
	sortOrder      string
	limit          int
)

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List tasks",
	Aliases: []string{"ls"},
	Long: `List tasks with optional filtering and sorting.

Examples:
  pulse task list
  pulse task list --all
  pulse task list --priority urgent
  pulse task list --overdue
  pulse task list --sort due_date --order asc`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.ListTasksHandler == nil {
			return fmt.Errorf("application not initialized - database connection required")
		}

		userID, err := uuid.Parse(app.CurrentUserID)
		if err != nil {
			return fmt.Errorf("invalid current user id: %w", err)
		}

		query := queries.ListTasksQuery{
			UserID:     userID,
			IncludeAll: showAll,
			Status:     status,
			Priority:   filterPriority,
			Overdue:    overdue,
			DueToday:   dueToday,
			SortBy:     sortBy,
			SortOrder:  sortOrder,
			Limit:      limit,
		}

		tasks, err := app.ListTasksHandler.Handle(cmd.Context(), query)
		if err != nil {
			return fmt.Errorf("failed to list tasks: %w", err)
		}

		if len(tasks) == 0 {
			fmt.Println("No tasks found.")
			return nil
		}

		fmt.Printf("Tasks (%d):\n", len(tasks))
		fmt.Println(strings.Repeat("-", 60))

		now := time.Now()
		for _, t := range tasks {
			dueMarker := ""
			if t.DueDate != nil && t.Status != "completed" {
				if t.DueDate.Before(time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())) {
					dueMarker = " [OVERDUE]"
				} else if sameDay(*t.DueDate, now) {
					dueMarker = " [TODAY]"
				}
			}

			fmt.Printf("%s %s %s%s\n", statusIcon(t.Status), t.Title, priorityBadge(t.Priority), dueMarker)
			fmt.Printf("   ID: %s\n", t.ID.String()[:8])
			if t.DurationMinutes > 0 {
				fmt.Printf("   Duration: %d min\n", t.DurationMinutes)
			}
			if t.DueDate != nil {
				fmt.Printf("   Due: %s\n", t.DueDate.Format("2006-01-02"))
			}
			fmt.Println()
		}

		return nil
	},
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func statusIcon(status string) string {
	switch status {
	case "completed":
		return "[x]"
	case "in_progress":
		return "[>]"
	case "archived":
		return "[-]"
	default:
		return "[ ]"
	}
}

func priorityBadge(priority string) string {
	switch priority {
	case "urgent":
		return "(!!!)"
	case "high":
		return "(!)"
	case "medium":
		return "(~)"
	case "low":
		return "(.)"
	default:
		return ""
	}
}

func init() {
	listCmd.Flags().BoolVarP(&showAll, "all", "a", false, "show all tasks including archived")
	listCmd.Flags().StringVarP(&status, "status", "s", "", "filter by status (pending, in_progress, completed, archived)")
	listCmd.Flags().StringVarP(&filterPriority, "priority", "p", "", "filter by priority (urgent, high, medium, low)")
	listCmd.Flags().BoolVar(&overdue, "overdue", false, "show only overdue tasks")
	listCmd.Flags().BoolVar(&dueToday, "due-today", false, "show only tasks due today")
	listCmd.Flags().StringVar(&sortBy, "sort", "", "sort by field (priority, due_date, created_at)")
	listCmd.Flags().StringVar(&sortOrder, "order", "", "sort order (asc, desc)")
	listCmd.Flags().IntVarP(&limit, "limit", "n", 0, "max number of tasks to show (0 = no limit)")
}
