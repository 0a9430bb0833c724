package metadata

import "fmt"

// OrderStatus is the single source of truth for which workflows may touch an order.
type OrderStatus string

const (
	StatusPlanned         OrderStatus = "planned"
	StatusSkidBuilding    OrderStatus = "skid_building"
	StatusSkidBuilt       OrderStatus = "skid_built"
	StatusShipmentLoading OrderStatus = "shipment_loading"
	StatusShipped         OrderStatus = "shipped"
	StatusSkidBuildError  OrderStatus = "skid_build_error"
	StatusShipmentError   OrderStatus = "shipment_error"
)

// Error states share the rank of the in-progress state they were reached from.
var statusRank = map[OrderStatus]int{
	StatusPlanned:         0,
	StatusSkidBuilding:    1,
	StatusSkidBuildError:  1,
	StatusSkidBuilt:       2,
	StatusShipmentLoading: 3,
	StatusShipmentError:   3,
	StatusShipped:         4,
}

var forwardTransitions = map[OrderStatus][]OrderStatus{
	StatusPlanned:         {StatusSkidBuilding},
	StatusSkidBuilding:    {StatusSkidBuilt, StatusSkidBuildError},
	StatusSkidBuildError:  {StatusSkidBuilding, StatusSkidBuilt},
	StatusSkidBuilt:       {StatusShipmentLoading},
	StatusShipmentLoading: {StatusShipped, StatusShipmentError},
	StatusShipmentError:   {StatusShipmentLoading, StatusShipped},
}

var restartTransitions = map[OrderStatus]OrderStatus{
	StatusSkidBuilding:    StatusPlanned,
	StatusSkidBuildError:  StatusPlanned,
	StatusShipmentLoading: StatusSkidBuilt,
	StatusShipmentError:   StatusSkidBuilt,
}

func NewOrderStatus(value string) (OrderStatus, error) {
	status := OrderStatus(value)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid order status: %s", value)
	}
	return status, nil
}

func (s OrderStatus) IsValid() bool {
	_, ok := statusRank[s]
	return ok
}

func (s OrderStatus) Rank() int {
	return statusRank[s]
}

// AtLeast reports whether s is at or past other in the normal flow.
func (s OrderStatus) AtLeast(other OrderStatus) bool {
	return s.Rank() >= other.Rank()
}

func (s OrderStatus) IsError() bool {
	return s == StatusSkidBuildError || s == StatusShipmentError
}

// CanTransition reports whether a normal (non-restart) move from s to next is allowed.
// Staying in the same status is always allowed so resumed sessions are idempotent.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range forwardTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// RestartTarget returns the status an order falls back to when its in-progress
// workflow is restarted.
func (s OrderStatus) RestartTarget() (OrderStatus, bool) {
	target, ok := restartTransitions[s]
	return target, ok
}

func (s OrderStatus) String() string {
	return string(s)
}
