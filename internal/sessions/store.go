package sessions

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/duplicates"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/metadata"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/models"
)

// Store is the persistence the session state machine runs against. Calls
// made on the Store handed to Transact's callback share one transaction.
type Store interface {
	Transact(ctx context.Context, fn func(tx Store) error) error

	// CreateSession fails with a *custom_error.ConcurrencyError when another
	// active session already holds the same workflow and key.
	CreateSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.Session, error)
	// FindActiveSession returns nil without error when the key is free.
	FindActiveSession(ctx context.Context, workflow metadata.Workflow, key string) (*models.Session, error)
	UpdateSession(ctx context.Context, session *models.Session) error
	AddSessionOrder(ctx context.Context, sessionID uuid.UUID, orderID int64) error

	GetOrder(ctx context.Context, id int64, forUpdate bool) (*models.Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber, dockCode string) (*models.Order, error)
	GetOrders(ctx context.Context, ids []int64, forUpdate bool) ([]models.Order, error)
	GetRouteOrders(ctx context.Context, route string) ([]models.Order, error)
	GetPlannedItems(ctx context.Context, orderIDs []int64) ([]models.PlannedItem, error)
	UpdateOrderStatus(ctx context.Context, id int64, status metadata.OrderStatus) error
	RecordConfirmation(ctx context.Context, id int64, workflow metadata.Workflow, number string, status metadata.OrderStatus) error

	InsertScans(ctx context.Context, scans []models.ScanRecord) error
	// GetScans returns live scans of the orders recorded by any of workflows.
	GetScans(ctx context.Context, orderIDs []int64, workflows []metadata.Workflow) ([]models.ScanRecord, error)
	CountSessionScans(ctx context.Context, sessionID uuid.UUID) (int, error)
	GetSerialScans(ctx context.Context, serial string, since time.Time) ([]duplicates.PriorScan, error)
	DeleteScans(ctx context.Context, orderID int64, workflows []metadata.Workflow, at time.Time) (int64, error)

	InsertException(ctx context.Context, exception *models.Exception) error
	GetException(ctx context.Context, id uuid.UUID) (*models.Exception, error)
	GetExceptions(ctx context.Context, orderIDs []int64, workflows []metadata.Workflow) ([]models.Exception, error)
	DeleteException(ctx context.Context, id uuid.UUID, at time.Time) error
	DeleteExceptions(ctx context.Context, orderID int64, workflows []metadata.Workflow, at time.Time) (int64, error)
}
