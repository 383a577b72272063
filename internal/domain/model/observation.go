// Package model contains observation records passed between layers.
package model

// Drive is a read-only snapshot of an attached mass-storage device.
// Location and Parent are raw OS topology strings; Parent refers to the hub
// two levels up the device tree so that chip-prefix extraction aligns with
// the hub's own identifier rather than the storage adapter's.
type Drive struct {
	Name     string `json:"name"`     // friendly device name
	Serial   string `json:"serial"`   // serial identifier
	Location string `json:"location"` // e.g. "Port_#0002.Hub_#0008"
	Parent   string `json:"parent"`   // e.g. `USB\VID_2109&PID_0822\9&238498F1&0&3`
}

// Hub is a read-only snapshot of a hub controller device node. The same
// physical chip reports two nodes, one per negotiated speed class; they share
// the chip prefix embedded in Parent but differ in InstanceID.
type Hub struct {
	Name       string `json:"name"`
	InstanceID string `json:"instanceId"` // contains the chip's vendor/product identifiers
	Location   string `json:"location"`
	Parent     string `json:"parent"`
}
