package matching

import (
	"strings"

	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/barcode"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/models"
)

// SkidKey groups planned items into a skid. The skid side (A/B) is not part
// of the key: Toyota groups both sides of a skid under one manifest.
type SkidKey struct {
	OrderNumber       string `json:"order_number"`
	DockCode          string `json:"dock_code"`
	SkidNumber        string `json:"skid_number"`
	PalletizationCode string `json:"palletization_code"`
}

const keySeparator = "|"

func (k SkidKey) String() string {
	return strings.Join([]string{k.OrderNumber, k.DockCode, k.SkidNumber, k.PalletizationCode}, keySeparator)
}

func ParseSkidKey(s string) (SkidKey, bool) {
	parts := strings.Split(s, keySeparator)
	if len(parts) != 4 {
		return SkidKey{}, false
	}
	for _, p := range parts {
		if p == "" {
			return SkidKey{}, false
		}
	}
	return SkidKey{OrderNumber: parts[0], DockCode: parts[1], SkidNumber: parts[2], PalletizationCode: parts[3]}, true
}

func KeyOfItem(p models.PlannedItem) SkidKey {
	return SkidKey{
		OrderNumber:       p.OrderNumber,
		DockCode:          p.DockCode,
		SkidNumber:        p.SkidNumber,
		PalletizationCode: p.PalletizationCode,
	}
}

func KeyOfManifest(m barcode.Manifest) SkidKey {
	return SkidKey{
		OrderNumber:       m.OrderNumber,
		DockCode:          m.Dock,
		SkidNumber:        m.SkidNumber,
		PalletizationCode: m.Palletization,
	}
}

func KeyOfScan(s models.ScanRecord) SkidKey {
	return SkidKey{
		OrderNumber:       s.OrderNumber,
		DockCode:          s.DockCode,
		SkidNumber:        s.SkidNumber,
		PalletizationCode: s.PalletizationCode,
	}
}

type Outcome int

const (
	Matched Outcome = iota
	NotPlanned
	AlreadyScanned
	KanbanMismatch
)

func (o Outcome) String() string {
	switch o {
	case Matched:
		return "matched"
	case NotPlanned:
		return "not_planned"
	case AlreadyScanned:
		return "already_scanned"
	case KanbanMismatch:
		return "kanban_mismatch"
	default:
		return "unknown"
	}
}

// Result of matching one scan. Items holds every planned item satisfied by
// the scan: the whole skid group for a manifest, a single item for a kanban.
type Result struct {
	Outcome Outcome
	Key     SkidKey
	Items   []models.PlannedItem
}

// MatchManifest finds the skid group a manifest belongs to. A skid already
// covered by a live manifest scan in scanned is reported as AlreadyScanned.
func MatchManifest(scan barcode.Manifest, planned []models.PlannedItem, scanned []models.ScanRecord) Result {
	key := KeyOfManifest(scan)

	var group []models.PlannedItem
	for _, p := range planned {
		if KeyOfItem(p) == key {
			group = append(group, p)
		}
	}
	if len(group) == 0 {
		return Result{Outcome: NotPlanned, Key: key}
	}

	for _, s := range scanned {
		if s.DeletedAt == nil && s.Kind == models.ScanManifest && KeyOfScan(s) == key {
			return Result{Outcome: AlreadyScanned, Key: key, Items: group}
		}
	}

	return Result{Outcome: Matched, Key: key, Items: group}
}

// MatchKanban matches a Toyota kanban and its internal kanban against the
// planned items of the open skid. Each planned item accepts at most
// TotalBoxesPlanned kanban scans.
func MatchKanban(skid SkidKey, kanban barcode.Kanban, internal barcode.InternalKanban, planned []models.PlannedItem, scanned []models.ScanRecord) Result {
	if kanban.PartNumber != internal.PartNumber || kanban.KanbanNumber != internal.KanbanNumber {
		return Result{Outcome: KanbanMismatch, Key: skid}
	}
	if kanban.OrderNumber != skid.OrderNumber || kanban.Dock != skid.DockCode {
		return Result{Outcome: NotPlanned, Key: skid}
	}

	boxes := map[int64]int{}
	for _, s := range scanned {
		if s.DeletedAt == nil && s.Kind == models.ScanKanban {
			boxes[s.PlannedItemID]++
		}
	}

	var candidates []models.PlannedItem
	for _, p := range planned {
		if KeyOfItem(p) == skid && p.PartNumber == kanban.PartNumber && p.KanbanNumber == kanban.KanbanNumber {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return Result{Outcome: NotPlanned, Key: skid}
	}

	for _, p := range candidates {
		if boxes[p.ID] < max(p.TotalBoxesPlanned, 1) {
			return Result{Outcome: Matched, Key: skid, Items: []models.PlannedItem{p}}
		}
	}

	return Result{Outcome: AlreadyScanned, Key: skid, Items: candidates}
}
