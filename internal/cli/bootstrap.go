// Package cli implements the keeperctl admin commands.
//
// Commands run against the same store the server uses: they load the
// server configuration, compose the application in-process and call the
// services directly.
package cli

import (
	gocontext "context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"keeper.dev/keeper/internal/app"
	"keeper.dev/keeper/internal/config"
	"keeper.dev/keeper/internal/pkg/logger"
)

var configPath string

// BindGlobalFlags adds the flags every command shares.
func BindGlobalFlags(root *cobra.Command) {
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to the Keeper config file (defaults to the server search paths)")
}

// NewContext returns the context commands run under.
func NewContext() gocontext.Context {
	return gocontext.Background()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	// Keep command output readable: only warnings and above, as console text.
	if err := logger.Init("warn", "console"); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, nil
}

// withApp composes the application, runs fn and shuts it down.
func withApp(cmd *cobra.Command, fn func(ctx gocontext.Context, a *app.Application) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Database.Driver == config.DriverMemory {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s database.driver is %q: changes will not outlive this command\n", warnMark, config.DriverMemory)
	}

	ctx := NewContext()
	a, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer a.Shutdown()
	return fn(ctx, a)
}

var (
	okMark   = color.New(color.FgGreen).Sprint("✓")
	warnMark = color.New(color.FgYellow).Sprint("!")
	failMark = color.New(color.FgRed).Sprint("✗")
)
