package matching

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/barcode"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/metadata"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/models"
)

func plannedOrder() []models.PlannedItem {
	return []models.PlannedItem{
		{ID: 1, OrderID: 10, OrderNumber: "2023080205", DockCode: "V8", PartNumber: "681010E01000", KanbanNumber: "A123", TotalBoxesPlanned: 2, SkidNumber: "001", SkidSide: "A", PalletizationCode: "LB"},
		{ID: 2, OrderID: 10, OrderNumber: "2023080205", DockCode: "V8", PartNumber: "681020E01000", KanbanNumber: "B456", TotalBoxesPlanned: 1, SkidNumber: "001", SkidSide: "B", PalletizationCode: "LB"},
		{ID: 3, OrderID: 10, OrderNumber: "2023080205", DockCode: "V8", PartNumber: "681030E01000", KanbanNumber: "C789", TotalBoxesPlanned: 1, SkidNumber: "002", SkidSide: "A", PalletizationCode: "LB"},
	}
}

func manifestFor(skidID string) barcode.Manifest {
	number, side := barcode.SplitSkidID(skidID)
	return barcode.Manifest{
		Plant:         "02TMI",
		Supplier:      "02806",
		Dock:          "V8",
		OrderNumber:   "2023080205",
		Palletization: "LB",
		SkidID:        skidID,
		SkidNumber:    number,
		SkidSide:      side,
	}
}

func recordsFor(kind models.ScanKind, items []models.PlannedItem) []models.ScanRecord {
	var out []models.ScanRecord
	for _, p := range items {
		out = append(out, models.ScanRecord{
			ID:                uuid.New(),
			OrderID:           p.OrderID,
			PlannedItemID:     p.ID,
			Kind:              kind,
			OrderNumber:       p.OrderNumber,
			DockCode:          p.DockCode,
			SkidNumber:        p.SkidNumber,
			SkidSide:          p.SkidSide,
			PalletizationCode: p.PalletizationCode,
			PartNumber:        p.PartNumber,
			KanbanNumber:      p.KanbanNumber,
			ScannedAt:         time.Now(),
		})
	}
	return out
}

func TestSkidKeyRoundTrip(t *testing.T) {
	key := KeyOfItem(plannedOrder()[0])
	assert.Equal(t, "2023080205|V8|001|LB", key.String())

	parsed, ok := ParseSkidKey(key.String())
	require.True(t, ok)
	assert.Equal(t, key, parsed)

	_, ok = ParseSkidKey("2023080205|V8|001")
	assert.False(t, ok)
	_, ok = ParseSkidKey("2023080205||001|LB")
	assert.False(t, ok)
}

func TestMatchManifest(t *testing.T) {
	planned := plannedOrder()

	tests := []struct {
		name      string
		manifest  barcode.Manifest
		scanned   []models.ScanRecord
		outcome   Outcome
		itemCount int
	}{
		{
			name:      "both sides of a skid form one group",
			manifest:  manifestFor("001A"),
			outcome:   Matched,
			itemCount: 2,
		},
		{
			name:      "side does not change the group",
			manifest:  manifestFor("001B"),
			outcome:   Matched,
			itemCount: 2,
		},
		{
			name:     "unknown skid",
			manifest: manifestFor("009A"),
			outcome:  NotPlanned,
		},
		{
			name:      "already scanned skid",
			manifest:  manifestFor("002A"),
			scanned:   recordsFor(models.ScanManifest, planned[2:]),
			outcome:   AlreadyScanned,
			itemCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := MatchManifest(tt.manifest, planned, tt.scanned)
			assert.Equal(t, tt.outcome, res.Outcome)
			assert.Len(t, res.Items, tt.itemCount)
		})
	}
}

func TestMatchManifestIgnoresDeletedScans(t *testing.T) {
	planned := plannedOrder()
	scanned := recordsFor(models.ScanManifest, planned[2:])
	deleted := time.Now()
	scanned[0].DeletedAt = &deleted

	res := MatchManifest(manifestFor("002A"), planned, scanned)
	assert.Equal(t, Matched, res.Outcome)
}

func TestScanningEveryManifestOnceNeverFails(t *testing.T) {
	planned := plannedOrder()
	var scanned []models.ScanRecord

	for _, skid := range []string{"001A", "002A"} {
		res := MatchManifest(manifestFor(skid), planned, scanned)
		require.Equal(t, Matched, res.Outcome, skid)
		scanned = append(scanned, recordsFor(models.ScanManifest, res.Items)...)
	}

	for _, skid := range []string{"001A", "002A"} {
		res := MatchManifest(manifestFor(skid), planned, scanned)
		assert.Equal(t, AlreadyScanned, res.Outcome, skid)
	}

	cov := Evaluate(metadata.WorkflowShipmentLoad, planned, scanned, nil)
	assert.True(t, cov.Resolved())
	assert.Equal(t, 2, cov.ScannedSkids)
}

func kanbanPair(part, kanban string) (barcode.Kanban, barcode.InternalKanban) {
	return barcode.Kanban{OrderNumber: "2023080205", Dock: "V8", PartNumber: part, KanbanNumber: kanban, QtyPerBox: 10},
		barcode.InternalKanban{PartNumber: part, KanbanNumber: kanban, Serial: "0000000001"}
}

func TestMatchKanban(t *testing.T) {
	planned := plannedOrder()
	skid := KeyOfItem(planned[0])

	k, ik := kanbanPair("681010E01000", "A123")
	res := MatchKanban(skid, k, ik, planned, nil)
	require.Equal(t, Matched, res.Outcome)
	require.Len(t, res.Items, 1)
	assert.Equal(t, int64(1), res.Items[0].ID)

	// two boxes are planned for item 1
	scanned := recordsFor(models.ScanKanban, res.Items)
	res = MatchKanban(skid, k, ik, planned, scanned)
	assert.Equal(t, Matched, res.Outcome)

	scanned = append(scanned, recordsFor(models.ScanKanban, res.Items)...)
	res = MatchKanban(skid, k, ik, planned, scanned)
	assert.Equal(t, AlreadyScanned, res.Outcome)
}

func TestMatchKanbanRejections(t *testing.T) {
	planned := plannedOrder()
	skid := KeyOfItem(planned[0])

	t.Run("halves disagree", func(t *testing.T) {
		k, _ := kanbanPair("681010E01000", "A123")
		_, ik := kanbanPair("681020E01000", "B456")
		assert.Equal(t, KanbanMismatch, MatchKanban(skid, k, ik, planned, nil).Outcome)
	})

	t.Run("part belongs to another skid", func(t *testing.T) {
		k, ik := kanbanPair("681030E01000", "C789")
		assert.Equal(t, NotPlanned, MatchKanban(skid, k, ik, planned, nil).Outcome)
	})

	t.Run("kanban for another order", func(t *testing.T) {
		k, ik := kanbanPair("681010E01000", "A123")
		k.OrderNumber = "2023080299"
		assert.Equal(t, NotPlanned, MatchKanban(skid, k, ik, planned, nil).Outcome)
	})
}

func TestEvaluateSkidBuildCoverage(t *testing.T) {
	planned := plannedOrder()

	cov := Evaluate(metadata.WorkflowSkidBuild, planned, nil, nil)
	assert.False(t, cov.Resolved())
	assert.Len(t, cov.Unresolved, 3)
	assert.Equal(t, []string{"2023080205|V8|001|LB", "2023080205|V8|002|LB"}, cov.UnresolvedSkids())

	// manifest scans alone never complete a skid build item
	cov = Evaluate(metadata.WorkflowSkidBuild, planned, recordsFor(models.ScanManifest, planned), nil)
	assert.Len(t, cov.Unresolved, 3)

	scans := recordsFor(models.ScanKanban, planned[:2])
	cov = Evaluate(metadata.WorkflowSkidBuild, planned, scans, nil)
	assert.Equal(t, 1, cov.ScannedSkids)
	assert.Equal(t, 2, cov.ScannedItems)
	assert.Equal(t, []string{"2023080205|V8|002|LB"}, cov.UnresolvedSkids())
}

func TestEvaluateExceptionCoversSkid(t *testing.T) {
	planned := plannedOrder()
	key := KeyOfItem(planned[2]).String()
	scans := recordsFor(models.ScanManifest, planned[:2])

	exceptions := []models.Exception{{ID: uuid.New(), Code: metadata.ExceptionShortShipment, RelatedKey: &key}}
	cov := Evaluate(metadata.WorkflowShipmentLoad, planned, scans, exceptions)
	assert.True(t, cov.Resolved())
	assert.Equal(t, 1, cov.ScannedSkids)
	assert.True(t, cov.Skids[1].Excepted)

	deleted := time.Now()
	exceptions[0].DeletedAt = &deleted
	cov = Evaluate(metadata.WorkflowShipmentLoad, planned, scans, exceptions)
	assert.False(t, cov.Resolved())
}

func TestEvaluateTrailerExceptionDoesNotCoverSkids(t *testing.T) {
	planned := plannedOrder()
	exceptions := []models.Exception{{ID: uuid.New(), Code: metadata.ExceptionLatePickup}}

	cov := Evaluate(metadata.WorkflowShipmentLoad, planned, nil, exceptions)
	assert.Len(t, cov.Unresolved, 3)
}
