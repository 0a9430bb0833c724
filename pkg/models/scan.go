package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/metadata"
)

type ScanKind string

const (
	ScanPickupRoute ScanKind = "pickup_route"
	ScanManifest    ScanKind = "toyota_manifest"
	ScanKanban      ScanKind = "toyota_kanban"
)

// ScanRecord is immutable once written; restart soft-deletes it.
type ScanRecord struct {
	ID                   uuid.UUID         `json:"id"`
	SessionID            uuid.UUID         `json:"session_id"`
	Workflow             metadata.Workflow `json:"workflow"`
	OrderID              int64             `json:"order_id"`
	PlannedItemID        int64             `json:"planned_item_id"`
	Kind                 ScanKind          `json:"kind"`
	Raw                  string            `json:"raw"`
	OrderNumber          string            `json:"order_number"`
	DockCode             string            `json:"dock_code"`
	SkidNumber           string            `json:"skid_number"`
	SkidSide             string            `json:"skid_side"`
	PalletizationCode    string            `json:"palletization_code"`
	PartNumber           string            `json:"part_number,omitempty"`
	KanbanNumber         string            `json:"kanban_number,omitempty"`
	InternalKanbanRaw    string            `json:"internal_kanban_raw,omitempty"`
	InternalKanbanSerial string            `json:"internal_kanban_serial,omitempty"`
	DuplicateAlert       bool              `json:"duplicate_alert"`
	ScannedBy            int               `json:"scanned_by"`
	ScannedAt            time.Time         `json:"scanned_at"`
	DeletedAt            *time.Time        `json:"deleted_at,omitempty"`
}
