// Package schedule holds the "pulse schedule ..." command group.
package schedule

import (
	"github.com/spf13/cobra"
)

// Cmd is the schedule command group.
var Cmd = &cobra.Command{
	Use:   "schedule",
	Short: "Book calendar blocks and generate multi-day plans",
}

func init() {
	Cmd.AddCommand(dayCmd)
	Cmd.AddCommand(planCmd)
	Cmd.AddCommand(showCmd)
}
