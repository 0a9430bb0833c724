package models

import (
	"time"

	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/metadata"
)

type Order struct {
	ID                    int64                `json:"id" db:"id"`
	OrderNumber           string               `json:"order_number" db:"order_number"`
	DockCode              string               `json:"dock_code" db:"dock_code"`
	SupplierCode          string               `json:"supplier_code" db:"supplier_code"`
	PlantCode             string               `json:"plant_code" db:"plant_code"`
	RouteNumber           string               `json:"route_number" db:"route_number"`
	PickupAt              *time.Time           `json:"pickup_at,omitempty" db:"pickup_at"`
	Status                metadata.OrderStatus `json:"status" db:"status"`
	SkidBuildConfirmation string               `json:"skid_build_confirmation,omitempty" db:"skid_build_confirmation"`
	ShipmentConfirmation  string               `json:"shipment_confirmation,omitempty" db:"shipment_confirmation"`
	CreatedAt             time.Time            `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time            `json:"updated_at" db:"updated_at"`
}

// ConfirmationFor returns the OEM confirmation recorded for a workflow, if any.
func (o Order) ConfirmationFor(w metadata.Workflow) string {
	if w.Loads() {
		return o.ShipmentConfirmation
	}
	return o.SkidBuildConfirmation
}

// ReadyToLoad is the skid build confirmation check that gates loading.
func (o Order) ReadyToLoad() bool {
	return o.Status.AtLeast(metadata.StatusSkidBuilt) && o.SkidBuildConfirmation != ""
}
