package app

import (
	"github.com/velat/hubcal/internal/domain/identity"
	"github.com/velat/hubcal/internal/domain/mapping"
	"github.com/velat/hubcal/internal/domain/model"
)

// State classifies one observed drive against the calibration mapping.
type State int

const (
	// StateMapped means the drive resolved to a calibrated physical port.
	StateMapped State = iota

	// StateNotCalibrated means no mapping covers this slot yet.
	StateNotCalibrated

	// StateChipMismatch means a calibration exists but none of its keys
	// share this drive's chip prefix; the hub likely moved to a different
	// upstream port or controller.
	StateChipMismatch
)

func (s State) String() string {
	switch s {
	case StateMapped:
		return "mapped"
	case StateNotCalibrated:
		return "not calibrated"
	case StateChipMismatch:
		return "calibration mismatch"
	default:
		return "unknown"
	}
}

// DriveStatus is the classification result for one drive.
type DriveStatus struct {
	Drive model.Drive
	Key   identity.Key // empty when normalization failed
	Port  int          // valid only when State == StateMapped
	State State
}

// ResolveStatuses classifies each observed drive against the mapper.
func ResolveStatuses(m *mapping.Mapper, drives []model.Drive) []DriveStatus {
	out := make([]DriveStatus, 0, len(drives))
	for _, d := range drives {
		out = append(out, resolveStatus(m, d))
	}
	return out
}

func resolveStatus(m *mapping.Mapper, d model.Drive) DriveStatus {
	st := DriveStatus{Drive: d}
	if key, ok := identity.NormalizeLocation(d.Location, d.Parent); ok {
		st.Key = key
	}
	if port, ok := m.PhysicalPort(d.Location, d.Parent); ok {
		st.Port = port
		st.State = StateMapped
		return st
	}
	if m.Count() > 0 && !m.KnownChip(d.Parent) {
		st.State = StateChipMismatch
		return st
	}
	st.State = StateNotCalibrated
	return st
}

// chipOf extracts the chip prefix a drive on this hub would report: the
// hub's own instance path is the drive's parent chain. Falls back to the
// hub's parent identifier for root-attached controllers.
func chipOf(h model.Hub) (string, bool) {
	if chip, ok := identity.ExtractChipPrefix(h.InstanceID); ok {
		return chip, true
	}
	return identity.ExtractChipPrefix(h.Parent)
}
