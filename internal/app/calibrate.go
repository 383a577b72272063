// Package app orchestrates calibration, status resolution, and monitoring
// on top of the mapper, store, and scanner.
package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/velat/hubcal/internal/adapters/scanner"
	"github.com/velat/hubcal/internal/adapters/store"
	"github.com/velat/hubcal/internal/domain/mapping"
	"github.com/velat/hubcal/internal/domain/model"
	"github.com/velat/hubcal/pkg/logger"
	"github.com/velat/hubcal/pkg/metrics"
)

// Default procedure parameters.
const (
	defaultStepAttempts = 3
	defaultPortCount    = 7
)

// ErrCancelled reports that the operator declined to start or overwrite.
var ErrCancelled = errors.New("calibration cancelled")

// IsCancelled reports whether err represents the operator breaking off:
// declining a prompt, or interrupting while a prompt or scan was pending.
// Both end the run without anything being wrong.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// Outcome summarizes a finished calibration run.
type Outcome struct {
	Mapped   int
	Missing  []int
	Complete bool
}

// Calibration drives the interactive 7-step calibration sequence:
// Init -> ConfirmOverwrite -> Instructions -> PerStep(1..n) -> Save ->
// Summary. The accumulated mapping is persisted even when steps were
// skipped; completeness is reported, never enforced.
type Calibration struct {
	source   scanner.Source
	store    *store.Store
	prompt   Prompter
	log      logger.Logger
	attempts int
	ports    int
}

// CalibrationOption applies a configuration option to the procedure.
type CalibrationOption func(*Calibration)

// WithStepAttempts bounds retries within one step.
func WithStepAttempts(n int) CalibrationOption {
	return func(c *Calibration) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// WithPortCount sets the number of physical ports to walk.
func WithPortCount(n int) CalibrationOption {
	return func(c *Calibration) {
		if n > 0 {
			c.ports = n
		}
	}
}

// WithCalibrationLogger sets a custom logger.
func WithCalibrationLogger(log logger.Logger) CalibrationOption {
	return func(c *Calibration) {
		if log != nil {
			c.log = log
		}
	}
}

// NewCalibration constructs the procedure.
func NewCalibration(src scanner.Source, st *store.Store, prompt Prompter, opts ...CalibrationOption) *Calibration {
	c := &Calibration{
		source:   src,
		store:    st,
		prompt:   prompt,
		attempts: defaultStepAttempts,
		ports:    defaultPortCount,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Named("calibrate")
	}
	return c
}

// Run executes the procedure. It returns ErrCancelled when the operator
// declines to begin or to overwrite an existing calibration. A scanner
// failure aborts immediately; a failed step only abandons that port.
func (c *Calibration) Run(ctx context.Context) (Outcome, error) {
	session := uuid.NewString()
	log := c.log
	log.Info(ctx, "calibration started", logger.String("session", session), logger.Int("ports", c.ports))

	existing, err := c.store.Load()
	if err != nil {
		return Outcome{}, err
	}
	// Only a document that actually holds mappings warrants an overwrite
	// confirmation; overwriting an empty one loses nothing.
	if existing != nil && len(existing.Mappings) > 0 {
		ok, err := c.prompt.Confirm(ctx, fmt.Sprintf(
			"A calibration with %d mapped ports already exists. Overwrite it?", len(existing.Mappings)))
		if err != nil {
			return Outcome{}, err
		}
		if !ok {
			log.Info(ctx, "calibration cancelled at overwrite prompt", logger.String("session", session))
			return Outcome{}, ErrCancelled
		}
	}

	c.prompt.Say("")
	c.prompt.Say("Calibration walks every physical port in order. For each port you")
	c.prompt.Say("will insert the reference drive, wait for detection, then remove it.")
	c.prompt.Say(fmt.Sprintf("Keep only one drive attached to the hub at a time. %d steps total.", c.ports))
	begin, err := c.prompt.Confirm(ctx, "Ready to begin?")
	if err != nil {
		return Outcome{}, err
	}
	if !begin {
		log.Info(ctx, "calibration cancelled at instructions", logger.String("session", session))
		return Outcome{}, ErrCancelled
	}

	doc := c.store.NewDocument()
	mapper := mapping.New(mapping.WithPortCount(c.ports))
	c.recordHubInfo(ctx, doc)

	for port := 1; port <= c.ports; port++ {
		observed, err := c.step(ctx, mapper, port)
		if err != nil {
			return Outcome{}, fmt.Errorf("calibration aborted at port %d: %w", port, err)
		}
		if observed && port < c.ports {
			if err := c.prompt.Ack(ctx, "Remove the drive"); err != nil {
				return Outcome{}, err
			}
		}
	}

	doc.Mappings = mapper.All()
	if err := c.store.Save(doc); err != nil {
		return Outcome{}, err
	}
	metrics.UpdateMappingCount(mapper.Count())

	out := Outcome{
		Mapped:   mapper.Count(),
		Missing:  mapper.MissingPorts(),
		Complete: mapper.Calibrated(),
	}
	c.summarize(out)
	log.Info(ctx, "calibration saved",
		logger.String("session", session),
		logger.Int("mapped", out.Mapped),
		logger.Bool("complete", out.Complete),
	)
	return out, nil
}

// step walks one physical port. It returns whether a drive was observed
// (so the caller knows to prompt for removal) and a non-nil error only for
// fatal conditions: scanner failures and released prompts.
func (c *Calibration) step(ctx context.Context, mapper *mapping.Mapper, port int) (bool, error) {
	if err := c.prompt.Ack(ctx, fmt.Sprintf("Step %d/%d: insert the drive into physical port %d", port, c.ports, port)); err != nil {
		return false, err
	}

	observed := false
	for attempt := 1; attempt <= c.attempts; attempt++ {
		drives, err := c.source.Drives(ctx)
		if err != nil {
			// The scan call itself failing is fatal, unlike an empty or
			// ambiguous result.
			return observed, err
		}

		switch len(drives) {
		case 0:
			if attempt == c.attempts {
				c.prompt.Say(fmt.Sprintf("No drive detected after %d attempts; leaving port %d unmapped.", c.attempts, port))
				return observed, nil
			}
			retry, err := c.prompt.Confirm(ctx, "No drive detected. Retry?")
			if err != nil {
				return observed, err
			}
			if !retry {
				c.prompt.Say(fmt.Sprintf("Skipping port %d.", port))
				return observed, nil
			}

		case 1:
			observed = true
			drive := drives[0]
			if prior, ok := mapper.ExistingPort(drive.Location, drive.Parent); ok {
				remap, err := c.prompt.Confirm(ctx, fmt.Sprintf(
					"This slot is already mapped to port %d from an earlier step. Remap it to port %d?", prior, port))
				if err != nil {
					return observed, err
				}
				if !remap {
					c.prompt.Say(fmt.Sprintf("Keeping the earlier mapping; port %d left unmapped.", port))
					return observed, nil
				}
			}
			key, err := mapper.Add(drive.Location, drive.Parent, port)
			if err != nil {
				// Normalization/validation failures abandon the step, not
				// the procedure.
				c.prompt.Say(fmt.Sprintf("Could not map this drive (%v); leaving port %d unmapped.", err, port))
				c.log.Warn(ctx, "step abandoned", logger.Int("port", port), logger.Error(err))
				return observed, nil
			}
			metrics.RecordCalibrationStep()
			c.prompt.Say(fmt.Sprintf("Port %d mapped (%s).", port, key))
			return observed, nil

		default:
			observed = true
			if attempt == c.attempts {
				c.prompt.Say(fmt.Sprintf("Still seeing %d drives after %d attempts; leaving port %d unmapped.", len(drives), c.attempts, port))
				return observed, nil
			}
			if err := c.prompt.Ack(ctx, fmt.Sprintf(
				"%d drives detected; the observation is ambiguous. Remove the extras", len(drives))); err != nil {
				return observed, err
			}
		}
	}
	return observed, nil
}

// recordHubInfo snapshots up to two distinct chip prefixes seen on the hub
// controllers, in sorted order so reruns record them stably. Failures are
// non-fatal; the metadata is advisory.
func (c *Calibration) recordHubInfo(ctx context.Context, doc *store.Document) {
	hubs, err := c.source.Hubs(ctx)
	if err != nil {
		c.log.Warn(ctx, "hub metadata unavailable", logger.Error(err))
		return
	}
	chips := distinctChips(hubs)
	if len(chips) > 0 {
		doc.HubInfo.PrimaryChip = &chips[0]
	}
	if len(chips) > 1 {
		doc.HubInfo.SecondaryChip = &chips[1]
	}
}

func (c *Calibration) summarize(out Outcome) {
	c.prompt.Say("")
	if out.Complete {
		c.prompt.Say(fmt.Sprintf("Calibration complete: %d ports mapped.", out.Mapped))
		return
	}
	gaps := make([]string, len(out.Missing))
	for i, p := range out.Missing {
		gaps[i] = fmt.Sprintf("%d", p)
	}
	c.prompt.Say(fmt.Sprintf("Calibration saved with %d mapped ports. Unmapped: %s.",
		out.Mapped, strings.Join(gaps, ", ")))
	c.prompt.Say("Rerun calibrate to start over and map every port.")
}

func distinctChips(hubs []model.Hub) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, h := range hubs {
		chip, ok := chipOf(h)
		if !ok {
			continue
		}
		if _, dup := seen[chip]; dup {
			continue
		}
		seen[chip] = struct{}{}
		out = append(out, chip)
	}
	sort.Strings(out)
	return out
}
