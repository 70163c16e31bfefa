package cli

import (
	gocontext "context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"keeper.dev/keeper/internal/access"
	"keeper.dev/keeper/internal/app"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Manage subscription plans",
}

var planCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a subscription plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		price, _ := cmd.Flags().GetInt64("price")

		return withApp(cmd, func(ctx gocontext.Context, a *app.Application) error {
			plan, err := a.Deps.Access.CreatePlan(ctx, access.CreatePlanInput{
				Name:         args[0],
				DurationDays: days,
				PriceCents:   price,
			})
			if err != nil {
				return fmt.Errorf("failed to create plan: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s Created plan %s: %s\n", okMark, plan.ID, plan.Name)
			fmt.Fprintf(out, "  Duration: %d days\n", plan.DurationDays)
			fmt.Fprintf(out, "  Price:    %d cents\n", plan.PriceCents)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Next steps:")
			fmt.Fprintf(out, "   keeperctl invite issue --plan %s   # Issue an invite token\n", plan.ID)
			return nil
		})
	},
}

var planListCmd = &cobra.Command{
	Use:   "list",
	Short: "List subscription plans",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx gocontext.Context, a *app.Application) error {
			plans, err := a.Deps.Access.ListPlans(ctx)
			if err != nil {
				return fmt.Errorf("failed to list plans: %w", err)
			}
			if len(plans) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No plans found.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tDAYS\tPRICE\tACTIVE")
			fmt.Fprintln(w, "--\t----\t----\t-----\t------")
			for _, p := range plans {
				active := okMark
				if !p.Active {
					active = failMark
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", p.ID, p.Name, p.DurationDays, p.PriceCents, active)
			}
			return w.Flush()
		})
	},
}

func init() {
	planCreateCmd.Flags().IntP("days", "d", 30, "Access period in days")
	planCreateCmd.Flags().Int64P("price", "p", 0, "Price in cents")

	planCmd.AddCommand(planCreateCmd)
	planCmd.AddCommand(planListCmd)
}

// PlanCmd returns the plan command.
func PlanCmd() *cobra.Command {
	return planCmd
}
