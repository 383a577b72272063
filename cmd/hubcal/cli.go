package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/velat/hubcal/internal/adapters/scanner"
	"github.com/velat/hubcal/internal/adapters/store"
	"github.com/velat/hubcal/internal/app"
	"github.com/velat/hubcal/internal/config"
	"github.com/velat/hubcal/internal/domain/mapping"
	"github.com/velat/hubcal/pkg/logger"
	"github.com/velat/hubcal/pkg/metrics"
)

// cli binds the subcommands to their shared collaborators.
type cli struct {
	ctx context.Context
	cfg *config.Config
	log logger.Logger
}

func newCLI(ctx context.Context, cfg *config.Config) *cli {
	return &cli{ctx: ctx, cfg: cfg, log: logger.Named("cli")}
}

func (c *cli) newStore() *store.Store {
	return store.New(store.WithPath(c.cfg.StorePath))
}

func (c *cli) newSource() scanner.Source {
	return scanner.NewPnPSource(
		scanner.WithTimeout(time.Duration(c.cfg.ScanTimeoutMS)*time.Millisecond),
		scanner.WithVendorID(c.cfg.HubVendorID),
	)
}

// loadMapper builds the transient in-memory mapper for this invocation.
// A missing document is the normal uncalibrated state and yields an empty
// mapper.
func (c *cli) loadMapper(st *store.Store) (*mapping.Mapper, error) {
	doc, err := st.Load()
	if err != nil {
		if errors.Is(err, store.ErrCorrupt) {
			return nil, fmt.Errorf("%w\nThe calibration file itself is unreadable; run 'hubcal reset' and recalibrate", err)
		}
		return nil, err
	}
	opts := []mapping.Option{mapping.WithPortCount(c.cfg.PortCount)}
	if doc != nil {
		opts = append(opts, mapping.WithMappings(doc.Mappings))
	}
	m := mapping.New(opts...)
	metrics.UpdateMappingCount(m.Count())
	return m, nil
}

func (c *cli) status(args []string) error {
	cmd := &Command{Name: "status", Usage: "hubcal status"}
	fs := cmd.NewFlagSet()
	if err := fs.Parse(args); err != nil {
		return err
	}

	st := c.newStore()
	m, err := c.loadMapper(st)
	if err != nil {
		return err
	}
	if m.Count() == 0 {
		fmt.Println("No calibration found. Run 'hubcal calibrate' first.")
	} else if !m.Calibrated() {
		fmt.Printf("Calibration is partial: %d of %d ports mapped.\n", m.Count(), c.cfg.PortCount)
	}

	drives, err := c.newSource().Drives(c.ctx)
	if err != nil {
		return err
	}
	if len(drives) == 0 {
		fmt.Println("No USB drives attached.")
		return nil
	}

	fmt.Printf("%-6s %-22s %-24s %s\n", "PORT", "STATE", "NAME", "KEY")
	for _, s := range app.ResolveStatuses(m, drives) {
		port := "-"
		if s.State == app.StateMapped {
			port = fmt.Sprintf("%d", s.Port)
		}
		key := s.Key.String()
		if key == "" {
			key = "(serial " + s.Drive.Serial + ")"
		}
		fmt.Printf("%-6s %-22s %-24s %s\n", port, s.State, s.Drive.Name, key)
		if s.State == app.StateChipMismatch {
			fmt.Println("       The hub chip does not match the calibration; the hub may have")
			fmt.Println("       moved to a different controller. Recalibrate if it did.")
		}
	}
	return nil
}

func (c *cli) calibrate(args []string) error {
	cmd := &Command{Name: "calibrate", Usage: "hubcal calibrate [flags]"}
	fs := cmd.NewFlagSet()
	attempts := fs.Int("attempts", c.cfg.StepAttempts, "retry budget per calibration step")
	if err := fs.Parse(args); err != nil {
		return err
	}

	st := c.newStore()
	prompt := app.NewTerminalPrompter(nil, nil)

	// A corrupt document blocks the procedure's own load; offer the
	// delete-and-recalibrate recovery up front.
	if _, err := st.Load(); errors.Is(err, store.ErrCorrupt) {
		fmt.Println("The existing calibration file is unreadable (the file, not its schema, is the problem).")
		ok, perr := prompt.Confirm(c.ctx, "Delete it and recalibrate from scratch?")
		if perr != nil {
			return perr
		}
		if !ok {
			return app.ErrCancelled
		}
		if err := st.Clear(); err != nil {
			return err
		}
	}

	out, err := app.NewCalibration(c.newSource(), st, prompt,
		app.WithStepAttempts(*attempts),
		app.WithPortCount(c.cfg.PortCount),
	).Run(c.ctx)
	if err != nil {
		return err
	}
	c.log.Info(c.ctx, "calibration finished",
		logger.Int("mapped", out.Mapped),
		logger.Bool("complete", out.Complete),
	)
	return nil
}

func (c *cli) monitor(args []string) error {
	cmd := &Command{Name: "monitor", Usage: "hubcal monitor [flags]"}
	fs := cmd.NewFlagSet()
	interval := fs.Duration("interval", time.Duration(c.cfg.PollIntervalMS)*time.Millisecond, "poll period")
	if err := fs.Parse(args); err != nil {
		return err
	}

	st := c.newStore()
	m, err := c.loadMapper(st)
	if err != nil {
		return err
	}
	if !m.Calibrated() {
		fmt.Printf("Warning: calibration is incomplete (%d mapped); unknown slots will show as uncalibrated.\n", m.Count())
	}

	if c.cfg.MetricsAddr != "" {
		go c.serveMetrics()
	}

	fmt.Printf("Monitoring every %s. Press Ctrl-C to stop.\n", *interval)
	mon := app.NewMonitor(c.newSource(), m, app.WithPollInterval(*interval))
	return mon.Run(c.ctx, func(e app.MonitorEvent) {
		ts := time.Now().Format("15:04:05")
		s := e.Status
		switch {
		case s.State == app.StateMapped:
			fmt.Printf("[%s] %s: %s on port %d\n", ts, e.Kind, s.Drive.Name, s.Port)
		case s.State == app.StateChipMismatch:
			fmt.Printf("[%s] %s: %s (calibration mismatch, hub may have moved)\n", ts, e.Kind, s.Drive.Name)
		default:
			fmt.Printf("[%s] %s: %s (uncalibrated slot)\n", ts, e.Kind, s.Drive.Name)
		}
	})
}

func (c *cli) serveMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	c.log.Info(c.ctx, "serving metrics", logger.String("addr", c.cfg.MetricsAddr))
	srv := &http.Server{
		Addr:              c.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-c.ctx.Done()
		_ = srv.Close()
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		c.log.Warn(c.ctx, "metrics server failed", logger.Error(err))
	}
}

func (c *cli) reset(args []string) error {
	cmd := &Command{Name: "reset", Usage: "hubcal reset [flags]"}
	fs := cmd.NewFlagSet()
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}

	st := c.newStore()
	doc, err := st.Load()
	switch {
	case errors.Is(err, store.ErrCorrupt):
		fmt.Println("The calibration file is unreadable; deleting it.")
	case errors.Is(err, store.ErrSchema):
		fmt.Println("The calibration document fails validation; deleting it.")
	case err != nil:
		return err
	case doc == nil:
		fmt.Println("No calibration to reset.")
		return nil
	}

	if !*yes {
		prompt := app.NewTerminalPrompter(nil, nil)
		ok, err := prompt.Confirm(c.ctx, "Delete the calibration? This cannot be undone.")
		if err != nil {
			return err
		}
		if !ok {
			return app.ErrCancelled
		}
	}
	if err := st.Clear(); err != nil {
		return err
	}
	fmt.Println("Calibration deleted.")
	return nil
}

func (c *cli) hubs(args []string) error {
	cmd := &Command{Name: "hubs", Usage: "hubcal hubs"}
	fs := cmd.NewFlagSet()
	if err := fs.Parse(args); err != nil {
		return err
	}

	hubs, err := c.newSource().Hubs(c.ctx)
	if err != nil {
		return err
	}
	if len(hubs) == 0 {
		fmt.Printf("No hub controllers matching %s found.\n", c.cfg.HubVendorID)
		return nil
	}

	for _, group := range app.GroupHubs(hubs) {
		if group.Chip == "" {
			fmt.Println("Chip (unidentified):")
		} else {
			fmt.Printf("Chip %s:\n", group.Chip)
		}
		for _, h := range group.Hubs {
			fmt.Printf("    %-28s %s\n", h.Name, h.InstanceID)
		}
	}
	return nil
}
