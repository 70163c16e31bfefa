package cli

import (
	gocontext "context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"keeper.dev/keeper/internal/app"
	"keeper.dev/keeper/internal/jobs"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a periodic sweep once, now",
	Long: `Run one of the scheduler's sweeps in the foreground. Sweeps are
idempotent, so running one while the server is up is safe.`,
}

// sweepTargets maps subcommand names to scheduler job kinds.
var sweepTargets = []struct {
	name  string
	kind  string
	short string
}{
	{"subscriptions", jobs.KindSubscriptionSweep, "Expire ended subscriptions and send reminders"},
	{"join-requests", jobs.KindJoinRequestSweep, "Decide join requests whose delay has passed"},
	{"posts", jobs.KindPostSweep, "Publish due scheduled posts"},
	{"missions", jobs.KindMissionTimeout, "Fail missions past their time limit"},
}

func sweepRunE(kind string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx gocontext.Context, a *app.Application) error {
			start := time.Now()
			if err := a.Scheduler.Trigger(ctx, kind); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s failed\n", failMark, kind)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s completed in %s\n", okMark, kind, time.Since(start).Round(time.Millisecond))
			return nil
		})
	}
}

func init() {
	for _, t := range sweepTargets {
		sweepCmd.AddCommand(&cobra.Command{
			Use:   t.name,
			Short: t.short,
			Args:  cobra.NoArgs,
			RunE:  sweepRunE(t.kind),
		})
	}
}

// SweepCmd returns the sweep command.
func SweepCmd() *cobra.Command {
	return sweepCmd
}
