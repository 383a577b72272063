package app

import (
	"sort"

	"github.com/velat/hubcal/internal/domain/model"
)

// HubGroup collects the device nodes belonging to one physical hub chip.
// A chip normally contributes two nodes, one per speed class.
type HubGroup struct {
	Chip string // empty when no prefix was derivable
	Hubs []model.Hub
}

// GroupHubs buckets hub controller nodes by chip prefix so both speed-class
// variants of the same chip land together. Groups are sorted by prefix,
// with unidentifiable nodes last.
func GroupHubs(hubs []model.Hub) []HubGroup {
	byChip := make(map[string][]model.Hub)
	for _, h := range hubs {
		chip, ok := chipOf(h)
		if !ok {
			chip = ""
		}
		byChip[chip] = append(byChip[chip], h)
	}

	chips := make([]string, 0, len(byChip))
	for chip := range byChip {
		chips = append(chips, chip)
	}
	sort.Slice(chips, func(i, j int) bool {
		if (chips[i] == "") != (chips[j] == "") {
			return chips[j] == ""
		}
		return chips[i] < chips[j]
	})

	out := make([]HubGroup, 0, len(chips))
	for _, chip := range chips {
		group := byChip[chip]
		sort.Slice(group, func(i, j int) bool { return group[i].InstanceID < group[j].InstanceID })
		out = append(out, HubGroup{Chip: chip, Hubs: group})
	}
	return out
}
