// Command hubcal identifies which physical port of a cascaded multi-chip
// USB hub a flash drive is plugged into, via a one-time interactive
// calibration pass.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/velat/hubcal/internal/app"
	"github.com/velat/hubcal/internal/config"
	"github.com/velat/hubcal/pkg/logger"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(context.Background(), "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel))
		_ = logger.SetLevelString("info")
	}

	// Root context cancels on operator interrupt; every prompt and scan
	// selects against it so shutdown releases pending interaction.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cli := newCLI(ctx, cfg)
	registry := NewRegistry("status")
	registerCommands(registry, cli)

	if err := registry.Execute(os.Args[1:]); err != nil {
		// Interrupts surface as context.Canceled from a released prompt or
		// an aborted scan; both exit clean, like an explicit decline.
		if app.IsCancelled(err) {
			fmt.Println("Cancelled.")
			return
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func registerCommands(r *Registry, cli *cli) {
	r.Register(&Command{
		Name:        "status",
		Description: "Resolve attached drives against the calibration",
		Usage:       "hubcal status",
		Examples:    []string{"hubcal status"},
		Run:         cli.status,
	})
	r.Register(&Command{
		Name:        "calibrate",
		Description: "Run the interactive per-port calibration",
		Usage:       "hubcal calibrate [flags]",
		Examples: []string{
			"hubcal calibrate",
			"hubcal calibrate -attempts 5",
		},
		Run: cli.calibrate,
	})
	r.Register(&Command{
		Name:        "monitor",
		Description: "Watch drives appear and disappear continuously",
		Usage:       "hubcal monitor [flags]",
		Examples: []string{
			"hubcal monitor",
			"hubcal monitor -interval 5s",
		},
		Run: cli.monitor,
	})
	r.Register(&Command{
		Name:        "reset",
		Description: "Delete the persisted calibration",
		Usage:       "hubcal reset [flags]",
		Examples:    []string{"hubcal reset", "hubcal reset -yes"},
		Run:         cli.reset,
	})
	r.Register(&Command{
		Name:        "hubs",
		Description: "List hub controller nodes grouped by chip",
		Usage:       "hubcal hubs",
		Examples:    []string{"hubcal hubs"},
		Run:         cli.hubs,
	})
	r.Register(&Command{
		Name:        "version",
		Description: "Show version information",
		Usage:       "hubcal version",
		Run: func(_ []string) error {
			fmt.Printf("hubcal %s (%s)\n", version, commit)
			return nil
		},
	})
}
