package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/metadata"
)

type TrailerInfo struct {
	TrailerNumber string `json:"trailer_number"`
	SealNumber    string `json:"seal_number"`
	DriverName    string `json:"driver_name"`
	SupplierName  string `json:"supplier_name"`
}

// Session is the unit-of-work envelope of one scanning workflow.
// Optional fields are pointers and are nil until the workflow reaches them.
type Session struct {
	ID                  uuid.UUID              `json:"id"`
	Workflow            metadata.Workflow      `json:"workflow"`
	Key                 string                 `json:"key"`
	UserID              int                    `json:"user_id"`
	Status              metadata.SessionStatus `json:"status"`
	Step                int                    `json:"step"`
	RouteNumber         string                 `json:"route_number,omitempty"`
	PickupAt            *time.Time             `json:"pickup_at,omitempty"`
	OrderIDs            []int64                `json:"order_ids"`
	CurrentSkidKey      *string                `json:"current_skid_key,omitempty"`
	Trailer             TrailerInfo            `json:"trailer"`
	ConfirmationNumber  string                 `json:"confirmation_number,omitempty"`
	PendingConfirmation string                 `json:"-"`
	LastError           string                 `json:"last_error,omitempty"`
	CreatedAt           time.Time              `json:"created_at"`
	ExpiresAt           time.Time              `json:"expires_at"`
	CompletedAt         *time.Time             `json:"completed_at,omitempty"`
	CancelledAt         *time.Time             `json:"cancelled_at,omitempty"`
}

func (s Session) IsActive() bool {
	return s.Status == metadata.SessionActive
}

func (s Session) HasOrder(orderID int64) bool {
	for _, id := range s.OrderIDs {
		if id == orderID {
			return true
		}
	}
	return false
}

func (s *Session) CreateLogView() AuditLog {
	return AuditLog{
		ResourceKey:  s.ID.String(),
		ResourceType: "session",
	}
}
