package confirmation

import (
	"sort"
	"time"

	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/metadata"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/models"
)

type Payload struct {
	RequestID   string             `json:"requestId"`
	Workflow    metadata.Workflow  `json:"workflow"`
	RouteNumber string             `json:"routeNumber,omitempty"`
	PickupAt    *time.Time         `json:"pickupDateTime,omitempty"`
	Trailer     *TrailerPayload    `json:"trailer,omitempty"`
	Orders      []OrderPayload     `json:"orders"`
	Exceptions  []ExceptionPayload `json:"exceptions"`
	SubmittedBy int                `json:"submittedBy"`
}

type TrailerPayload struct {
	TrailerNumber string `json:"trailerNumber"`
	SealNumber    string `json:"sealNumber"`
	DriverName    string `json:"driverName"`
	SupplierName  string `json:"supplierName,omitempty"`
}

type OrderPayload struct {
	OrderNumber           string        `json:"orderNumber"`
	PlantCode             string        `json:"plantCode"`
	SupplierCode          string        `json:"supplierCode"`
	DockCode              string        `json:"dockCode"`
	SkidBuildConfirmation string        `json:"skidBuildConfirmationNumber,omitempty"`
	Skids                 []SkidPayload `json:"skids"`
}

type SkidPayload struct {
	SkidNumber        string        `json:"skidNumber"`
	SkidSides         []string      `json:"skidSides"`
	PalletizationCode string        `json:"palletizationCode"`
	Parts             []PartPayload `json:"parts"`
}

type PartPayload struct {
	PartNumber    string   `json:"partNumber"`
	KanbanNumber  string   `json:"kanbanNumber"`
	BoxesPlanned  int      `json:"boxesPlanned"`
	BoxesScanned  int      `json:"boxesScanned"`
	KanbanSerials []string `json:"kanbanSerials,omitempty"`
}

type ExceptionPayload struct {
	OrderNumber string                 `json:"orderNumber"`
	Code        metadata.ExceptionCode `json:"code"`
	Comments    string                 `json:"comments"`
	SkidKey     string                 `json:"skidKey,omitempty"`
}

// Source is the already validated state a payload is assembled from.
type Source struct {
	Session    models.Session
	Orders     []models.Order
	Planned    []models.PlannedItem
	Scans      []models.ScanRecord
	Exceptions []models.Exception
}

// BuildPayload aggregates a completed session into the OEM request. It only
// groups and copies values, no scan is decoded again.
func BuildPayload(src Source) Payload {
	s := src.Session
	p := Payload{
		RequestID:   s.ID.String(),
		Workflow:    s.Workflow,
		RouteNumber: s.RouteNumber,
		PickupAt:    s.PickupAt,
		SubmittedBy: s.UserID,
		Orders:      []OrderPayload{},
		Exceptions:  []ExceptionPayload{},
	}
	if s.Workflow.Loads() {
		p.Trailer = &TrailerPayload{
			TrailerNumber: s.Trailer.TrailerNumber,
			SealNumber:    s.Trailer.SealNumber,
			DriverName:    s.Trailer.DriverName,
			SupplierName:  s.Trailer.SupplierName,
		}
	}

	boxes := map[int64]int{}
	serials := map[int64][]string{}
	for _, scan := range src.Scans {
		if scan.DeletedAt != nil {
			continue
		}
		switch {
		case scan.Kind == models.ScanKanban:
			boxes[scan.PlannedItemID]++
			if scan.InternalKanbanSerial != "" {
				serials[scan.PlannedItemID] = append(serials[scan.PlannedItemID], scan.InternalKanbanSerial)
			}
		case scan.Kind == models.ScanManifest && s.Workflow.Loads():
			boxes[scan.PlannedItemID] = plannedBoxes(src.Planned, scan.PlannedItemID)
		}
	}

	orderNumbers := map[int64]string{}
	orders := append([]models.Order(nil), src.Orders...)
	sort.Slice(orders, func(i, j int) bool { return orders[i].OrderNumber < orders[j].OrderNumber })

	for _, o := range orders {
		orderNumbers[o.ID] = o.OrderNumber
		op := OrderPayload{
			OrderNumber:  o.OrderNumber,
			PlantCode:    o.PlantCode,
			SupplierCode: o.SupplierCode,
			DockCode:     o.DockCode,
			Skids:        buildSkids(o.ID, src.Planned, boxes, serials),
		}
		if s.Workflow.Loads() {
			op.SkidBuildConfirmation = o.SkidBuildConfirmation
		}
		p.Orders = append(p.Orders, op)
	}

	for _, e := range src.Exceptions {
		if e.DeletedAt != nil {
			continue
		}
		ep := ExceptionPayload{
			OrderNumber: orderNumbers[e.OrderID],
			Code:        e.Code,
			Comments:    e.Comments,
		}
		if e.RelatedKey != nil {
			ep.SkidKey = *e.RelatedKey
		}
		p.Exceptions = append(p.Exceptions, ep)
	}
	sort.SliceStable(p.Exceptions, func(i, j int) bool {
		if p.Exceptions[i].OrderNumber != p.Exceptions[j].OrderNumber {
			return p.Exceptions[i].OrderNumber < p.Exceptions[j].OrderNumber
		}
		return p.Exceptions[i].Code < p.Exceptions[j].Code
	})

	return p
}

func plannedBoxes(planned []models.PlannedItem, id int64) int {
	for _, item := range planned {
		if item.ID == id {
			return item.TotalBoxesPlanned
		}
	}
	return 0
}

type skidGroup struct {
	number string
	pallet string
}

func buildSkids(orderID int64, planned []models.PlannedItem, boxes map[int64]int, serials map[int64][]string) []SkidPayload {
	index := map[skidGroup]int{}
	var skids []SkidPayload

	items := make([]models.PlannedItem, 0, len(planned))
	for _, item := range planned {
		if item.OrderID == orderID {
			items = append(items, item)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].SkidNumber != items[j].SkidNumber {
			return items[i].SkidNumber < items[j].SkidNumber
		}
		if items[i].PalletizationCode != items[j].PalletizationCode {
			return items[i].PalletizationCode < items[j].PalletizationCode
		}
		return items[i].ID < items[j].ID
	})

	for _, item := range items {
		g := skidGroup{number: item.SkidNumber, pallet: item.PalletizationCode}
		i, ok := index[g]
		if !ok {
			i = len(skids)
			index[g] = i
			skids = append(skids, SkidPayload{SkidNumber: item.SkidNumber, PalletizationCode: item.PalletizationCode, SkidSides: []string{}})
		}
		if item.SkidSide != "" && !contains(skids[i].SkidSides, item.SkidSide) {
			skids[i].SkidSides = append(skids[i].SkidSides, item.SkidSide)
		}
		skids[i].Parts = append(skids[i].Parts, PartPayload{
			PartNumber:    item.PartNumber,
			KanbanNumber:  item.KanbanNumber,
			BoxesPlanned:  item.TotalBoxesPlanned,
			BoxesScanned:  boxes[item.ID],
			KanbanSerials: serials[item.ID],
		})
	}

	for i := range skids {
		sort.Strings(skids[i].SkidSides)
	}
	if skids == nil {
		return []SkidPayload{}
	}
	return skids
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
