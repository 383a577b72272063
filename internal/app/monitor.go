package app

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/velat/hubcal/internal/adapters/scanner"
	"github.com/velat/hubcal/internal/domain/identity"
	"github.com/velat/hubcal/internal/domain/mapping"
	"github.com/velat/hubcal/internal/domain/model"
	"github.com/velat/hubcal/pkg/logger"
	"github.com/velat/hubcal/pkg/metrics"
)

const defaultPollInterval = 2 * time.Second

// EventKind distinguishes monitor events.
type EventKind int

const (
	// EventAppeared means a drive is present now but was not before.
	EventAppeared EventKind = iota
	// EventDisappeared means a drive was present before but is not now.
	EventDisappeared
)

func (k EventKind) String() string {
	if k == EventAppeared {
		return "appeared"
	}
	return "disappeared"
}

// MonitorEvent is one appear/disappear delta between successive snapshots.
type MonitorEvent struct {
	Kind   EventKind
	Status DriveStatus
}

// Monitor polls the observation source on a fixed period and diffs each
// snapshot against the retained one. Transient scan failures are logged
// and swallowed so long-running observation survives them; only context
// cancellation ends the loop.
type Monitor struct {
	source   scanner.Source
	mapper   *mapping.Mapper
	interval time.Duration
	log      logger.Logger

	// retained snapshot, keyed by identity key with serial fallback;
	// replaced wholesale after each diff.
	seen map[string]model.Drive
}

// MonitorOption applies a configuration option to the Monitor.
type MonitorOption func(*Monitor)

// WithPollInterval sets the poll period.
func WithPollInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithMonitorLogger sets a custom logger.
func WithMonitorLogger(log logger.Logger) MonitorOption {
	return func(m *Monitor) {
		if log != nil {
			m.log = log
		}
	}
}

// NewMonitor constructs a monitor resolving against the given mapper.
func NewMonitor(src scanner.Source, mapper *mapping.Mapper, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		source:   src,
		mapper:   mapper,
		interval: defaultPollInterval,
		seen:     make(map[string]model.Drive),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = logger.Named("monitor")
	}
	return m
}

// Run polls until ctx is cancelled, delivering events through emit.
// The first poll reports every attached drive as appeared.
func (m *Monitor) Run(ctx context.Context, emit func(MonitorEvent)) error {
	session := uuid.NewString()
	m.log.Info(ctx, "monitor started",
		logger.String("session", session),
		logger.Duration("interval", m.interval),
	)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// Immediate first poll; the ticker covers the rest.
	m.poll(ctx, emit)
	for {
		select {
		case <-ctx.Done():
			m.log.Info(ctx, "monitor stopped", logger.String("session", session))
			return nil
		case <-ticker.C:
			m.poll(ctx, emit)
		}
	}
}

func (m *Monitor) poll(ctx context.Context, emit func(MonitorEvent)) {
	drives, err := m.source.Drives(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		// Transient failures must not kill long-running observation.
		metrics.RecordMonitorScanSwallowed()
		m.log.Warn(ctx, "scan failed, keeping previous snapshot", logger.Error(err))
		return
	}
	metrics.RecordMonitorPoll()

	next := Snapshot(drives)
	appeared, disappeared := DiffSnapshots(m.seen, next)
	m.seen = next

	for _, d := range disappeared {
		metrics.RecordMonitorDisappeared()
		emit(MonitorEvent{Kind: EventDisappeared, Status: resolveStatus(m.mapper, d)})
	}
	for _, d := range appeared {
		metrics.RecordMonitorAppeared()
		emit(MonitorEvent{Kind: EventAppeared, Status: resolveStatus(m.mapper, d)})
	}
}

// SnapshotKey derives the retained-snapshot key for a drive: the identity
// key when derivable, else the serial number.
func SnapshotKey(d model.Drive) string {
	if key, ok := identity.NormalizeLocation(d.Location, d.Parent); ok {
		return key.String()
	}
	return d.Serial
}

// Snapshot indexes drives by SnapshotKey. Later duplicates win; keys are
// unique per physical slot so collisions only occur for malformed input.
func Snapshot(drives []model.Drive) map[string]model.Drive {
	out := make(map[string]model.Drive, len(drives))
	for _, d := range drives {
		out[SnapshotKey(d)] = d
	}
	return out
}

// DiffSnapshots reports drives whose keys are present only in next
// (appeared) or only in prev (disappeared), each in deterministic key
// order.
func DiffSnapshots(prev, next map[string]model.Drive) (appeared, disappeared []model.Drive) {
	var appearedKeys, disappearedKeys []string
	for k := range next {
		if _, ok := prev[k]; !ok {
			appearedKeys = append(appearedKeys, k)
		}
	}
	for k := range prev {
		if _, ok := next[k]; !ok {
			disappearedKeys = append(disappearedKeys, k)
		}
	}
	sort.Strings(appearedKeys)
	sort.Strings(disappearedKeys)
	for _, k := range appearedKeys {
		appeared = append(appeared, next[k])
	}
	for _, k := range disappearedKeys {
		disappeared = append(disappeared, prev[k])
	}
	return appeared, disappeared
}
