// Package scanner provides the device observation source: snapshots of
// currently attached drives and hub controllers with raw topology strings.
package scanner

import (
	"context"

	"github.com/velat/hubcal/internal/domain/model"
)

// Source yields fresh observation snapshots on each call. Implementations
// must fail with ErrUnavailable when the underlying OS tooling is missing
// and with ErrTimeout when a scan exceeds its deadline, so callers can
// decide between aborting and retrying.
type Source interface {
	// Drives returns the attached mass-storage devices. Parent is the hub
	// two levels up the device tree (the drive's grandparent).
	Drives(ctx context.Context) ([]model.Drive, error)

	// Hubs returns hub controller device nodes matching the target chip's
	// vendor identifier, including both speed-class variants per chip.
	Hubs(ctx context.Context) ([]model.Hub, error)
}
