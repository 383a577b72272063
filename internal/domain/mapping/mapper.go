// Package mapping holds the in-memory identity-key to physical-port mapping
// and its lookup/insert operations.
package mapping

import (
	"fmt"
	"sort"
	"strings"

	"github.com/velat/hubcal/internal/domain/identity"
)

// Physical port bounds for the supported hub.
const (
	MinPort = 1
	MaxPort = 7
)

// Mapper wraps a calibration mapping loaded for the duration of one command
// invocation. It is owned by a single goroutine and needs no locking.
type Mapper struct {
	mappings map[string]int
	ports    int // calibration threshold, defaults to MaxPort
}

// Option applies a configuration option to the Mapper.
type Option func(*Mapper)

// WithMappings seeds the mapper from a persisted calibration mapping.
// The map is copied; the caller's copy is not retained.
func WithMappings(m map[string]int) Option {
	return func(mp *Mapper) {
		for k, v := range m {
			mp.mappings[k] = v
		}
	}
}

// WithPortCount overrides the number of ports considered a full calibration.
func WithPortCount(n int) Option {
	return func(mp *Mapper) {
		if n > 0 {
			mp.ports = n
		}
	}
}

// New constructs a Mapper, empty unless seeded via options.
func New(opts ...Option) *Mapper {
	m := &Mapper{
		mappings: make(map[string]int),
		ports:    MaxPort,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// PhysicalPort normalizes the observation and looks up its port number.
// ok is false on normalization failure or a missing key; never an error.
func (m *Mapper) PhysicalPort(location, parent string) (int, bool) {
	key, ok := identity.NormalizeLocation(location, parent)
	if !ok {
		return 0, false
	}
	port, ok := m.mappings[key.String()]
	return port, ok
}

// Add normalizes the observation, validates the port number, and upserts the
// key, overwriting any prior value for that exact key. This is the sole
// mutation point of the mapping. Returns the key written.
func (m *Mapper) Add(location, parent string, port int) (identity.Key, error) {
	key, ok := identity.NormalizeLocation(location, parent)
	if !ok {
		return "", fmt.Errorf("%w: location=%q parent=%q", ErrNormalization, location, parent)
	}
	if port < MinPort || port > MaxPort {
		return "", fmt.Errorf("%w: %d", ErrInvalidPort, port)
	}
	m.mappings[key.String()] = port
	return key, nil
}

// Has reports whether the observation resolves to an existing mapping.
func (m *Mapper) Has(location, parent string) bool {
	_, ok := m.PhysicalPort(location, parent)
	return ok
}

// ExistingPort is the query variant of PhysicalPort; it never raises and
// reports ok=false on any failure to normalize.
func (m *Mapper) ExistingPort(location, parent string) (int, bool) {
	return m.PhysicalPort(location, parent)
}

// KnownChip reports whether the chip prefix derivable from parent matches
// the prefix of at least one existing mapping key. It distinguishes a
// genuinely new port from a hub that was never calibrated here, e.g. after
// the hub moved to a different upstream controller.
func (m *Mapper) KnownChip(parent string) bool {
	chip, ok := identity.ExtractChipPrefix(parent)
	if !ok {
		return false
	}
	for key := range m.mappings {
		if identity.Key(key).Chip() == chip {
			return true
		}
	}
	return false
}

// Calibrated reports whether the mapping holds at least one entry per
// physical port. This is a count threshold, not a per-port coverage check;
// Ports exposes the covered numbers for callers that want to report gaps.
func (m *Mapper) Calibrated() bool {
	return len(m.mappings) >= m.ports
}

// Count returns the number of mapped identity keys.
func (m *Mapper) Count() int {
	return len(m.mappings)
}

// All returns a defensive copy of the mapping.
func (m *Mapper) All() map[string]int {
	out := make(map[string]int, len(m.mappings))
	for k, v := range m.mappings {
		out[k] = v
	}
	return out
}

// Chips returns the distinct chip prefixes across all keys, sorted.
func (m *Mapper) Chips() []string {
	seen := make(map[string]struct{})
	for key := range m.mappings {
		seen[identity.Key(key).Chip()] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for chip := range seen {
		out = append(out, chip)
	}
	sort.Strings(out)
	return out
}

// Ports returns the distinct physical port numbers present in the mapping,
// sorted ascending.
func (m *Mapper) Ports() []int {
	seen := make(map[int]struct{})
	for _, p := range m.mappings {
		seen[p] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// MissingPorts returns the port numbers in [MinPort, ports] with no mapping,
// used by the calibration summary.
func (m *Mapper) MissingPorts() []int {
	covered := make(map[int]struct{})
	for _, p := range m.mappings {
		covered[p] = struct{}{}
	}
	var out []int
	for p := MinPort; p <= m.ports; p++ {
		if _, ok := covered[p]; !ok {
			out = append(out, p)
		}
	}
	return out
}

// String summarizes the mapper state for logs.
func (m *Mapper) String() string {
	return fmt.Sprintf("mapping{keys=%d chips=%s}", len(m.mappings), strings.Join(m.Chips(), ","))
}
