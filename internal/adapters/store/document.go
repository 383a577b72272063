package store

import "time"

// Version is the document schema version this engine supports.
const Version = "1.0"

// HubInfo carries free-form metadata about the calibrated hub's chips.
// Both fields may be null in the persisted document.
type HubInfo struct {
	PrimaryChip   *string `json:"primaryChip"`
	SecondaryChip *string `json:"secondaryChip"`
}

// Document is the versioned calibration record persisted on disk.
type Document struct {
	Version   string         `json:"version"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	HubInfo   HubInfo        `json:"hubInfo"`
	Mappings  map[string]int `json:"mappings"`
}
