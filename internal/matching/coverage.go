package matching

import (
	"sort"

	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/metadata"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/models"
)

type SkidProgress struct {
	Key          SkidKey              `json:"key"`
	SkidKey      string               `json:"skid_key"`
	Items        []models.PlannedItem `json:"items"`
	ScannedItems int                  `json:"scanned_items"`
	Complete     bool                 `json:"complete"`
	Excepted     bool                 `json:"excepted"`
}

// Coverage is derived from planned items, scans and exceptions on every read.
type Coverage struct {
	Skids        []SkidProgress       `json:"skids"`
	TotalSkids   int                  `json:"total_skids"`
	ScannedSkids int                  `json:"scanned_skids"`
	TotalItems   int                  `json:"total_items"`
	ScannedItems int                  `json:"scanned_items"`
	Unresolved   []models.PlannedItem `json:"unresolved"`
}

// Resolved reports whether every planned item is scanned or covered by a
// skid level exception.
func (c Coverage) Resolved() bool {
	return len(c.Unresolved) == 0
}

// UnresolvedSkids lists the distinct skid keys still blocking completion.
func (c Coverage) UnresolvedSkids() []string {
	seen := map[string]bool{}
	var keys []string
	for _, p := range c.Unresolved {
		k := KeyOfItem(p).String()
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}

// UnitKind is the scan kind that marks a planned item as done for a workflow.
func UnitKind(w metadata.Workflow) models.ScanKind {
	if w.Loads() {
		return models.ScanManifest
	}
	return models.ScanKanban
}

func Evaluate(w metadata.Workflow, planned []models.PlannedItem, scans []models.ScanRecord, exceptions []models.Exception) Coverage {
	unit := UnitKind(w)

	done := map[int64]bool{}
	for _, s := range scans {
		if s.DeletedAt == nil && s.Kind == unit {
			done[s.PlannedItemID] = true
		}
	}

	excepted := map[string]bool{}
	for _, e := range exceptions {
		if e.DeletedAt == nil && e.RelatedKey != nil {
			excepted[*e.RelatedKey] = true
		}
	}

	groups := map[SkidKey][]models.PlannedItem{}
	for _, p := range planned {
		k := KeyOfItem(p)
		groups[k] = append(groups[k], p)
	}

	keys := make([]SkidKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	var c Coverage
	for _, k := range keys {
		items := groups[k]
		progress := SkidProgress{Key: k, SkidKey: k.String(), Items: items, Excepted: excepted[k.String()]}
		for _, p := range items {
			if done[p.ID] {
				progress.ScannedItems++
			} else if !progress.Excepted {
				c.Unresolved = append(c.Unresolved, p)
			}
		}
		progress.Complete = progress.ScannedItems == len(items)

		c.TotalItems += len(items)
		c.ScannedItems += progress.ScannedItems
		if progress.Complete {
			c.ScannedSkids++
		}
		c.Skids = append(c.Skids, progress)
	}
	c.TotalSkids = len(c.Skids)

	return c
}
