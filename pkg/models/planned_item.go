package models

// PlannedItem is one expected part/kanban on an order, grouped into a skid.
type PlannedItem struct {
	ID                int64  `json:"id" db:"id"`
	OrderID           int64  `json:"order_id" db:"order_id"`
	OrderNumber       string `json:"order_number" db:"order_number"`
	DockCode          string `json:"dock_code" db:"dock_code"`
	PartNumber        string `json:"part_number" db:"part_number"`
	KanbanNumber      string `json:"kanban_number" db:"kanban_number"`
	QtyPerContainer   int    `json:"qty_per_container" db:"qty_per_container"`
	TotalBoxesPlanned int    `json:"total_boxes_planned" db:"total_boxes_planned"`
	ManifestNumber    string `json:"manifest_number" db:"manifest_number"`
	SkidNumber        string `json:"skid_number" db:"skid_number"`
	SkidSide          string `json:"skid_side" db:"skid_side"`
	PalletizationCode string `json:"palletization_code" db:"palletization_code"`
}
