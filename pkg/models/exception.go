package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/metadata"
)

type Exception struct {
	ID         uuid.UUID              `json:"id"`
	SessionID  uuid.UUID              `json:"session_id"`
	Workflow   metadata.Workflow      `json:"workflow"`
	OrderID    int64                  `json:"order_id"`
	Code       metadata.ExceptionCode `json:"code"`
	Comments   string                 `json:"comments"`
	RelatedKey *string                `json:"related_skid_key,omitempty"` // set only for skid level codes
	RecordedBy int                    `json:"recorded_by"`
	CreatedAt  time.Time              `json:"created_at"`
	DeletedAt  *time.Time             `json:"deleted_at,omitempty"`
}

func (e Exception) IsSkidLevel() bool {
	return e.RelatedKey != nil
}
