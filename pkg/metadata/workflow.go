package metadata

import "fmt"

type Workflow string

const (
	WorkflowSkidBuild    Workflow = "skid_build"
	WorkflowShipmentLoad Workflow = "shipment_load"
	WorkflowPreShipment  Workflow = "pre_shipment"
)

func NewWorkflow(value string) (Workflow, error) {
	w := Workflow(value)
	switch w {
	case WorkflowSkidBuild, WorkflowShipmentLoad, WorkflowPreShipment:
		return w, nil
	default:
		return "", fmt.Errorf(
			"invalid workflow %q, only valid values are: %s, %s, %s",
			value, WorkflowSkidBuild, WorkflowShipmentLoad, WorkflowPreShipment,
		)
	}
}

// Loads reports whether the workflow puts skids on a trailer.
func (w Workflow) Loads() bool {
	return w == WorkflowShipmentLoad || w == WorkflowPreShipment
}

// InProgressStatus is the order status held while a session of this workflow is active.
func (w Workflow) InProgressStatus() OrderStatus {
	if w.Loads() {
		return StatusShipmentLoading
	}
	return StatusSkidBuilding
}

func (w Workflow) DoneStatus() OrderStatus {
	if w.Loads() {
		return StatusShipped
	}
	return StatusSkidBuilt
}

func (w Workflow) ErrorStatus() OrderStatus {
	if w.Loads() {
		return StatusShipmentError
	}
	return StatusSkidBuildError
}

// Family lists the workflows that share scans and confirmations with w.
// Shipment Load and Pre-Shipment both load the same skids onto a trailer.
func (w Workflow) Family() []Workflow {
	if w.Loads() {
		return []Workflow{WorkflowShipmentLoad, WorkflowPreShipment}
	}
	return []Workflow{WorkflowSkidBuild}
}

func (w Workflow) String() string {
	return string(w)
}

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionCancelled
}

// Session steps as shown on the scanning screen.
const (
	StepAwaitingScan = 1
	StepScanning     = 2
	StepReview       = 3
)
