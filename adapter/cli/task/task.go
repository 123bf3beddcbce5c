// Package task holds the "pulse task ..." command group.
package task

import (
	"github.com/spf13/cobra"
)

// Cmd is the task command group.
var Cmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
	Long:  `Create, list, start, complete, and archive your tasks.`,
}

func init() {
	Cmd.AddCommand(createCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(startCmd)
	Cmd.AddCommand(completeCmd)
	Cmd.AddCommand(archiveCmd)
	Cmd.AddCommand(recalculateCmd)
}
