package cli

import (
	gocontext "context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"keeper.dev/keeper/internal/app"
)

var inviteCmd = &cobra.Command{
	Use:   "invite",
	Short: "Manage invite tokens",
}

var inviteIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a one-shot invite token for a plan",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		planID, _ := cmd.Flags().GetString("plan")
		validFor, _ := cmd.Flags().GetDuration("valid")
		count, _ := cmd.Flags().GetInt("count")
		if planID == "" {
			return fmt.Errorf("--plan is required\nHint: list plans with `keeperctl plan list`")
		}
		if count <= 0 {
			return fmt.Errorf("--count must be positive")
		}

		return withApp(cmd, func(ctx gocontext.Context, a *app.Application) error {
			out := cmd.OutOrStdout()
			for i := 0; i < count; i++ {
				tok, err := a.Deps.Access.IssueToken(ctx, planID, validFor)
				if err != nil {
					return fmt.Errorf("failed to issue token: %w", err)
				}
				fmt.Fprintf(out, "%s %s  (expires %s)\n", okMark, tok.Token, tok.ExpiresAt.UTC().Format(time.RFC3339))
			}
			return nil
		})
	},
}

func init() {
	inviteIssueCmd.Flags().String("plan", "", "Plan ID the token redeems (required)")
	inviteIssueCmd.Flags().Duration("valid", 0, "Token validity (defaults to access.token_validity)")
	inviteIssueCmd.Flags().IntP("count", "n", 1, "Number of tokens to issue")

	inviteCmd.AddCommand(inviteIssueCmd)
}

// InviteCmd returns the invite command.
func InviteCmd() *cobra.Command {
	return inviteCmd
}
