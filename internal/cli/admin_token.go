package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"keeper.dev/keeper/internal/api/middleware"
)

var adminTokenCmd = &cobra.Command{
	Use:   "admin-token",
	Short: "Mint an admin API token",
	Long: `Mint an HS256 token carrying the admin role, signed with the configured
security.admin_jwt_key. The server must run with the same key.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		subject, _ := cmd.Flags().GetString("subject")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if ttl <= 0 {
			ttl = cfg.Security.AdminTokenTTL
		}

		token, expiresAt, err := middleware.GenerateToken(middleware.JWTConfig{
			SigningKey: []byte(cfg.Security.AdminJWTKey),
			Issuer:     cfg.Security.TokenIssuer,
			ExpiresIn:  ttl,
		}, subject, []string{middleware.RoleAdmin})
		if err != nil {
			return fmt.Errorf("failed to mint token: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, token)
		fmt.Fprintf(cmd.ErrOrStderr(), "%s Token for %q expires %s\n", okMark, subject, expiresAt.UTC().Format(time.RFC3339))
		return nil
	},
}

func init() {
	adminTokenCmd.Flags().StringP("subject", "s", "keeperctl", "Token subject recorded in admin logs")
	adminTokenCmd.Flags().Duration("ttl", 0, "Token lifetime (defaults to security.admin_token_ttl)")
}

// AdminTokenCmd returns the admin-token command.
func AdminTokenCmd() *cobra.Command {
	return adminTokenCmd
}
