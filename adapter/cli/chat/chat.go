// Package chat holds the "pulse chat" command, the natural-language
// entry point into the conversational orchestrator.
package chat

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/pulse/adapter/cli"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var conversationID string

// Cmd sends a single free-text message through the orchestrator and
// prints the assistant's reply.
var Cmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Talk to pulse in plain language",
	Long: `Sends a message through the conversational orchestrator, which
classifies the intent, runs the matching workflow (create a task,
generate a plan, ...), and replies.

Examples:
  pulse chat "add a task to review the PR by friday"
  pulse chat "replan my week"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Orchestrator == nil {
			return fmt.Errorf("application not initialized - database connection required")
		}

		convID := conversationID
		if convID == "" {
			convID = uuid.NewString()
		}

		result, err := app.Orchestrator.HandleMessage(cmd.Context(), app.CurrentUserID, convID, strings.TrimSpace(args[0]))
		if err != nil {
			return fmt.Errorf("failed to process message: %w", err)
		}

		if result.RequiresClarification {
			fmt.Println(result.ClarificationQuestion)
			return nil
		}
		if result.ConversationResponse != "" {
			fmt.Println(result.ConversationResponse)
		}
		fmt.Printf("(conversation: %s)\n", convID)
		return nil
	},
}

func init() {
	Cmd.Flags().StringVar(&conversationID, "conversation", "", "continue an existing conversation by ID")
}
