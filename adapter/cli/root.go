package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var logger *slog.Logger

// SetLogger sets the logger used for command lifecycle logging.
func SetLogger(l *slog.Logger) {
	logger = l
}

type commandContextKey struct{}

type commandContext struct {
	correlationID string
	startedAt     time.Time
}

// rootCmd is the entry point cmd/pulse registers every subcommand onto.
var rootCmd = &cobra.Command{
	Use:   "pulse",
	Short: "pulse is a task and calendar scheduling assistant",
	Long: `pulse manages tasks, books calendar blocks, and runs a multi-day
constraint solver to turn a backlog into a schedule.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cc := &commandContext{correlationID: uuid.NewString(), startedAt: time.Now()}
		cmd.SetContext(context.WithValue(cmd.Context(), commandContextKey{}, cc))
		if logger != nil {
			logger.Info("command started", "command", cmd.CommandPath(), "correlation_id", cc.correlationID)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger == nil {
			return
		}
		cc, ok := cmd.Context().Value(commandContextKey{}).(*commandContext)
		if !ok {
			return
		}
		logger.Info("command finished",
			"command", cmd.CommandPath(),
			"correlation_id", cc.correlationID,
			"duration", time.Since(cc.startedAt).String(),
		)
	},
}

// AddCommand registers a subcommand with the root command.
func AddCommand(cmd *cobra.Command) {
	rootCmd.AddCommand(cmd)
}

// Execute runs the root command against os.Args.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}
