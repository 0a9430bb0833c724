package orders

import (
	"fmt"

	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/metadata"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/models"
	custom_error "github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/errors"
)

type TransitionError struct {
	OrderNumber string
	From        metadata.OrderStatus
	To          metadata.OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("order %s cannot move from %s to %s", e.OrderNumber, e.From, e.To)
}

// CheckWorkflow rejects starting work of w on an order whose status does not
// allow it.
func CheckWorkflow(o models.Order, w metadata.Workflow) error {
	if !w.Loads() {
		if o.Status.AtLeast(metadata.StatusSkidBuilt) {
			return custom_error.NewValidationError(custom_error.CodeSkidAlreadyBuilt,
				"Skid build for order %s is already confirmed", o.OrderNumber).
				With("order_number", o.OrderNumber).
				With("confirmation_number", o.SkidBuildConfirmation)
		}
		return nil
	}

	if o.Status == metadata.StatusShipped {
		return custom_error.NewValidationError(custom_error.CodeAlreadyShipped,
			"Order %s was already shipped under confirmation %s", o.OrderNumber, o.ShipmentConfirmation).
			With("order_number", o.OrderNumber).
			With("confirmation_number", o.ShipmentConfirmation)
	}
	if !o.ReadyToLoad() {
		return custom_error.NewValidationError(custom_error.CodeSkidNotBuilt,
			"Order %s has no confirmed skid build (status %s)", o.OrderNumber, o.Status).
			With("order_number", o.OrderNumber).
			With("status", o.Status)
	}
	return nil
}

// Advance moves o to next, returning whether the status changed.
func Advance(o *models.Order, next metadata.OrderStatus) (bool, error) {
	if o.Status == next {
		return false, nil
	}
	if !o.Status.CanTransition(next) {
		return false, &TransitionError{OrderNumber: o.OrderNumber, From: o.Status, To: next}
	}
	o.Status = next
	return true, nil
}

// Rewind applies the restart transition of o's current status, if any.
func Rewind(o *models.Order) bool {
	target, ok := o.Status.RestartTarget()
	if !ok {
		return false
	}
	o.Status = target
	return true
}
