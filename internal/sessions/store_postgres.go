package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"

	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/duplicates"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/orders"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/repository"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/metadata"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/models"
	custom_error "github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/errors"
)

const activeSessionConstraint = "sessions_one_active_per_key"

type FlatSession struct {
	ID                  uuid.UUID  `db:"id"`
	Workflow            string     `db:"workflow"`
	SessionKey          string     `db:"session_key"`
	UserID              int        `db:"user_id"`
	Status              string     `db:"status"`
	Step                int        `db:"step"`
	RouteNumber         string     `db:"route_number"`
	PickupAt            *time.Time `db:"pickup_at"`
	CurrentSkidKey      *string    `db:"current_skid_key"`
	TrailerNumber       string     `db:"trailer_number"`
	SealNumber          string     `db:"seal_number"`
	DriverName          string     `db:"driver_name"`
	SupplierName        string     `db:"supplier_name"`
	ConfirmationNumber  string     `db:"confirmation_number"`
	PendingConfirmation string     `db:"pending_confirmation"`
	LastError           string     `db:"last_error"`
	CreatedAt           time.Time  `db:"created_at"`
	ExpiresAt           time.Time  `db:"expires_at"`
	CompletedAt         *time.Time `db:"completed_at"`
	CancelledAt         *time.Time `db:"cancelled_at"`
}

func (f FlatSession) toModel() *models.Session {
	return &models.Session{
		ID:          f.ID,
		Workflow:    metadata.Workflow(f.Workflow),
		Key:         f.SessionKey,
		UserID:      f.UserID,
		Status:      metadata.SessionStatus(f.Status),
		Step:        f.Step,
		RouteNumber: f.RouteNumber,
		PickupAt:    f.PickupAt,
		OrderIDs:    []int64{},
		Trailer: models.TrailerInfo{
			TrailerNumber: f.TrailerNumber,
			SealNumber:    f.SealNumber,
			DriverName:    f.DriverName,
			SupplierName:  f.SupplierName,
		},
		CurrentSkidKey:      f.CurrentSkidKey,
		ConfirmationNumber:  f.ConfirmationNumber,
		PendingConfirmation: f.PendingConfirmation,
		LastError:           f.LastError,
		CreatedAt:           f.CreatedAt,
		ExpiresAt:           f.ExpiresAt,
		CompletedAt:         f.CompletedAt,
		CancelledAt:         f.CancelledAt,
	}
}

func sessionRecord(s *models.Session) goqu.Record {
	return goqu.Record{
		"workflow":             s.Workflow,
		"session_key":          s.Key,
		"user_id":              s.UserID,
		"status":               s.Status,
		"step":                 s.Step,
		"route_number":         s.RouteNumber,
		"pickup_at":            s.PickupAt,
		"current_skid_key":     s.CurrentSkidKey,
		"trailer_number":       s.Trailer.TrailerNumber,
		"seal_number":          s.Trailer.SealNumber,
		"driver_name":          s.Trailer.DriverName,
		"supplier_name":        s.Trailer.SupplierName,
		"confirmation_number":  s.ConfirmationNumber,
		"pending_confirmation": s.PendingConfirmation,
		"last_error":           s.LastError,
		"expires_at":           s.ExpiresAt,
		"completed_at":         s.CompletedAt,
		"cancelled_at":         s.CancelledAt,
	}
}

type FlatScan struct {
	ID                   uuid.UUID  `db:"id"`
	SessionID            uuid.UUID  `db:"session_id"`
	Workflow             string     `db:"workflow"`
	OrderID              int64      `db:"order_id"`
	PlannedItemID        int64      `db:"planned_item_id"`
	Kind                 string     `db:"kind"`
	Raw                  string     `db:"raw"`
	OrderNumber          string     `db:"order_number"`
	DockCode             string     `db:"dock_code"`
	SkidNumber           string     `db:"skid_number"`
	SkidSide             string     `db:"skid_side"`
	PalletizationCode    string     `db:"palletization_code"`
	PartNumber           string     `db:"part_number"`
	KanbanNumber         string     `db:"kanban_number"`
	InternalKanbanRaw    string     `db:"internal_kanban_raw"`
	InternalKanbanSerial string     `db:"internal_kanban_serial"`
	DuplicateAlert       bool       `db:"duplicate_alert"`
	ScannedBy            int        `db:"scanned_by"`
	ScannedAt            time.Time  `db:"scanned_at"`
	DeletedAt            *time.Time `db:"deleted_at"`
}

func (f FlatScan) toModel() models.ScanRecord {
	return models.ScanRecord{
		ID:                   f.ID,
		SessionID:            f.SessionID,
		Workflow:             metadata.Workflow(f.Workflow),
		OrderID:              f.OrderID,
		PlannedItemID:        f.PlannedItemID,
		Kind:                 models.ScanKind(f.Kind),
		Raw:                  f.Raw,
		OrderNumber:          f.OrderNumber,
		DockCode:             f.DockCode,
		SkidNumber:           f.SkidNumber,
		SkidSide:             f.SkidSide,
		PalletizationCode:    f.PalletizationCode,
		PartNumber:           f.PartNumber,
		KanbanNumber:         f.KanbanNumber,
		InternalKanbanRaw:    f.InternalKanbanRaw,
		InternalKanbanSerial: f.InternalKanbanSerial,
		DuplicateAlert:       f.DuplicateAlert,
		ScannedBy:            f.ScannedBy,
		ScannedAt:            f.ScannedAt,
		DeletedAt:            f.DeletedAt,
	}
}

func flattenScan(s models.ScanRecord) FlatScan {
	return FlatScan{
		ID:                   s.ID,
		SessionID:            s.SessionID,
		Workflow:             string(s.Workflow),
		OrderID:              s.OrderID,
		PlannedItemID:        s.PlannedItemID,
		Kind:                 string(s.Kind),
		Raw:                  s.Raw,
		OrderNumber:          s.OrderNumber,
		DockCode:             s.DockCode,
		SkidNumber:           s.SkidNumber,
		SkidSide:             s.SkidSide,
		PalletizationCode:    s.PalletizationCode,
		PartNumber:           s.PartNumber,
		KanbanNumber:         s.KanbanNumber,
		InternalKanbanRaw:    s.InternalKanbanRaw,
		InternalKanbanSerial: s.InternalKanbanSerial,
		DuplicateAlert:       s.DuplicateAlert,
		ScannedBy:            s.ScannedBy,
		ScannedAt:            s.ScannedAt,
		DeletedAt:            s.DeletedAt,
	}
}

type FlatException struct {
	ID             uuid.UUID  `db:"id"`
	SessionID      uuid.UUID  `db:"session_id"`
	Workflow       string     `db:"workflow"`
	OrderID        int64      `db:"order_id"`
	Code           string     `db:"code"`
	Comments       string     `db:"comments"`
	RelatedSkidKey *string    `db:"related_skid_key"`
	RecordedBy     int        `db:"recorded_by"`
	CreatedAt      time.Time  `db:"created_at"`
	DeletedAt      *time.Time `db:"deleted_at"`
}

func (f FlatException) toModel() models.Exception {
	return models.Exception{
		ID:         f.ID,
		SessionID:  f.SessionID,
		Workflow:   metadata.Workflow(f.Workflow),
		OrderID:    f.OrderID,
		Code:       metadata.ExceptionCode(f.Code),
		Comments:   f.Comments,
		RelatedKey: f.RelatedSkidKey,
		RecordedBy: f.RecordedBy,
		CreatedAt:  f.CreatedAt,
		DeletedAt:  f.DeletedAt,
	}
}

// PostgresStore implements Store with goqu over lib/pq.
type PostgresStore struct {
	db   *goqu.Database
	exec repository.Executor
}

func NewPostgresStore(r *repository.Repository) *PostgresStore {
	return &PostgresStore{db: r.GoquDBWrapper, exec: r.GoquDBWrapper}
}

// Transact runs fn in a transaction. Nested calls join the outer one.
func (s *PostgresStore) Transact(ctx context.Context, fn func(tx Store) error) error {
	if s.db == nil {
		return fn(s)
	}
	return repository.WithTransaction(ctx, s.db, func(tx *goqu.TxDatabase) error {
		return fn(&PostgresStore{exec: tx})
	})
}

func (s *PostgresStore) CreateSession(ctx context.Context, session *models.Session) error {
	record := sessionRecord(session)
	record["id"] = session.ID
	record["created_at"] = session.CreatedAt

	_, err := s.exec.Insert("sessions").Rows(record).Executor().ExecContext(ctx)
	if err != nil {
		classified := custom_error.ClassifyPQ(err)
		var unique *custom_error.UniqueViolationError
		if errors.As(classified, &unique) && unique.Constraint() == activeSessionConstraint {
			return &custom_error.ConcurrencyError{Resource: "session " + session.Key, Err: classified}
		}
		return fmt.Errorf("failed to insert session: %w", classified)
	}

	return nil
}

func (s *PostgresStore) selectSessions() *goqu.SelectDataset {
	return s.exec.From("sessions").Select(
		"id", "workflow", "session_key", "user_id", "status", "step", "route_number",
		"pickup_at", "current_skid_key", "trailer_number", "seal_number", "driver_name",
		"supplier_name", "confirmation_number", "pending_confirmation", "last_error",
		"created_at", "expires_at", "completed_at", "cancelled_at",
	)
}

func (s *PostgresStore) loadSession(ctx context.Context, ds *goqu.SelectDataset) (*models.Session, error) {
	var row FlatSession
	found, err := ds.Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	session := row.toModel()
	err = s.exec.From("session_orders").
		Select("order_id").
		Where(goqu.Ex{"session_id": session.ID}).
		Order(goqu.I("added_at").Asc(), goqu.I("order_id").Asc()).
		Executor().
		ScanValsContext(ctx, &session.OrderIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get orders of session %s: %w", session.ID, err)
	}

	return session, nil
}

func (s *PostgresStore) GetSession(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.Session, error) {
	ds := s.selectSessions().Where(goqu.Ex{"id": id})
	if forUpdate {
		ds = ds.ForUpdate(exp.Wait)
	}

	session, err := s.loadSession(ctx, ds)
	if err != nil {
		return nil, fmt.Errorf("failed to get session %s: %w", id, err)
	}
	if session == nil {
		return nil, &custom_error.NotFoundError{Resource: "session", ID: id}
	}

	return session, nil
}

func (s *PostgresStore) FindActiveSession(ctx context.Context, workflow metadata.Workflow, key string) (*models.Session, error) {
	session, err := s.loadSession(ctx, s.selectSessions().Where(goqu.Ex{
		"workflow":    workflow,
		"session_key": key,
		"status":      metadata.SessionActive,
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to find active session %s: %w", key, err)
	}

	return session, nil
}

func (s *PostgresStore) UpdateSession(ctx context.Context, session *models.Session) error {
	_, err := s.exec.Update("sessions").
		Set(sessionRecord(session)).
		Where(goqu.Ex{"id": session.ID}).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to update session %s: %w", session.ID, custom_error.ClassifyPQ(err))
	}

	return nil
}

func (s *PostgresStore) AddSessionOrder(ctx context.Context, sessionID uuid.UUID, orderID int64) error {
	_, err := s.exec.Insert("session_orders").
		Rows(goqu.Record{"session_id": sessionID, "order_id": orderID, "added_at": time.Now()}).
		OnConflict(goqu.DoNothing()).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to add order %d to session %s: %w", orderID, sessionID, custom_error.ClassifyPQ(err))
	}

	return nil
}

func (s *PostgresStore) GetOrder(ctx context.Context, id int64, forUpdate bool) (*models.Order, error) {
	return orders.FindOrder(ctx, s.exec, id, forUpdate)
}

func (s *PostgresStore) GetOrderByNumber(ctx context.Context, orderNumber, dockCode string) (*models.Order, error) {
	return orders.FindOrderByNumber(ctx, s.exec, orderNumber, dockCode)
}

func (s *PostgresStore) GetOrders(ctx context.Context, ids []int64, forUpdate bool) ([]models.Order, error) {
	return orders.FindOrders(ctx, s.exec, ids, forUpdate)
}

func (s *PostgresStore) GetRouteOrders(ctx context.Context, route string) ([]models.Order, error) {
	return orders.FindRouteOrders(ctx, s.exec, route)
}

func (s *PostgresStore) GetPlannedItems(ctx context.Context, orderIDs []int64) ([]models.PlannedItem, error) {
	return orders.FindPlannedItems(ctx, s.exec, orderIDs)
}

func (s *PostgresStore) UpdateOrderStatus(ctx context.Context, id int64, status metadata.OrderStatus) error {
	return orders.UpdateStatus(ctx, s.exec, id, status)
}

func (s *PostgresStore) RecordConfirmation(ctx context.Context, id int64, workflow metadata.Workflow, number string, status metadata.OrderStatus) error {
	return orders.RecordConfirmation(ctx, s.exec, id, workflow, number, status)
}

func (s *PostgresStore) InsertScans(ctx context.Context, scans []models.ScanRecord) error {
	if len(scans) == 0 {
		return nil
	}

	rows := make([]interface{}, 0, len(scans))
	for _, scan := range scans {
		rows = append(rows, flattenScan(scan))
	}

	_, err := s.exec.Insert("scan_records").Rows(rows...).Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert scan records: %w", custom_error.ClassifyPQ(err))
	}

	return nil
}

func (s *PostgresStore) GetScans(ctx context.Context, orderIDs []int64, workflows []metadata.Workflow) ([]models.ScanRecord, error) {
	if len(orderIDs) == 0 {
		return []models.ScanRecord{}, nil
	}

	var rows []FlatScan
	err := s.exec.From("scan_records").
		Where(
			goqu.C("order_id").In(orderIDs),
			goqu.C("workflow").In(workflows),
			goqu.C("deleted_at").IsNull(),
		).
		Order(goqu.I("scanned_at").Asc(), goqu.I("id").Asc()).
		Executor().
		ScanStructsContext(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan records: %w", err)
	}

	scans := make([]models.ScanRecord, 0, len(rows))
	for _, row := range rows {
		scans = append(scans, row.toModel())
	}

	return scans, nil
}

func (s *PostgresStore) CountSessionScans(ctx context.Context, sessionID uuid.UUID) (int, error) {
	count, err := s.exec.From("scan_records").
		Where(goqu.Ex{"session_id": sessionID}, goqu.C("deleted_at").IsNull()).
		CountContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count scans of session %s: %w", sessionID, err)
	}

	return int(count), nil
}

func (s *PostgresStore) GetSerialScans(ctx context.Context, serial string, since time.Time) ([]duplicates.PriorScan, error) {
	var rows []struct {
		Serial    string    `db:"internal_kanban_serial"`
		ScannedAt time.Time `db:"scanned_at"`
	}
	err := s.exec.From("scan_records").
		Select("internal_kanban_serial", "scanned_at").
		Where(
			goqu.C("internal_kanban_serial").Eq(serial),
			goqu.C("scanned_at").Gte(since),
			goqu.C("deleted_at").IsNull(),
		).
		Executor().
		ScanStructsContext(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to get scans of serial %s: %w", serial, err)
	}

	prior := make([]duplicates.PriorScan, 0, len(rows))
	for _, row := range rows {
		prior = append(prior, duplicates.PriorScan{Serial: row.Serial, ScannedAt: row.ScannedAt})
	}

	return prior, nil
}

func (s *PostgresStore) DeleteScans(ctx context.Context, orderID int64, workflows []metadata.Workflow, at time.Time) (int64, error) {
	res, err := s.exec.Update("scan_records").
		Set(goqu.Record{"deleted_at": at}).
		Where(
			goqu.C("order_id").Eq(orderID),
			goqu.C("workflow").In(workflows),
			goqu.C("deleted_at").IsNull(),
		).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete scans of order %d: %w", orderID, err)
	}

	return res.RowsAffected()
}

func (s *PostgresStore) InsertException(ctx context.Context, e *models.Exception) error {
	_, err := s.exec.Insert("exceptions").
		Rows(FlatException{
			ID:             e.ID,
			SessionID:      e.SessionID,
			Workflow:       string(e.Workflow),
			OrderID:        e.OrderID,
			Code:           string(e.Code),
			Comments:       e.Comments,
			RelatedSkidKey: e.RelatedKey,
			RecordedBy:     e.RecordedBy,
			CreatedAt:      e.CreatedAt,
		}).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert exception: %w", custom_error.ClassifyPQ(err))
	}

	return nil
}

func (s *PostgresStore) GetException(ctx context.Context, id uuid.UUID) (*models.Exception, error) {
	var row FlatException
	found, err := s.exec.From("exceptions").
		Where(goqu.Ex{"id": id}).
		Executor().
		ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("failed to get exception %s: %w", id, err)
	}
	if !found {
		return nil, &custom_error.NotFoundError{Resource: "exception", ID: id}
	}

	e := row.toModel()
	return &e, nil
}

func (s *PostgresStore) GetExceptions(ctx context.Context, orderIDs []int64, workflows []metadata.Workflow) ([]models.Exception, error) {
	if len(orderIDs) == 0 {
		return []models.Exception{}, nil
	}

	var rows []FlatException
	err := s.exec.From("exceptions").
		Where(
			goqu.C("order_id").In(orderIDs),
			goqu.C("workflow").In(workflows),
			goqu.C("deleted_at").IsNull(),
		).
		Order(goqu.I("created_at").Asc()).
		Executor().
		ScanStructsContext(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to get exceptions: %w", err)
	}

	exceptions := make([]models.Exception, 0, len(rows))
	for _, row := range rows {
		exceptions = append(exceptions, row.toModel())
	}

	return exceptions, nil
}

func (s *PostgresStore) DeleteException(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.exec.Update("exceptions").
		Set(goqu.Record{"deleted_at": at}).
		Where(goqu.Ex{"id": id}, goqu.C("deleted_at").IsNull()).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete exception %s: %w", id, err)
	}

	return nil
}

func (s *PostgresStore) DeleteExceptions(ctx context.Context, orderID int64, workflows []metadata.Workflow, at time.Time) (int64, error) {
	res, err := s.exec.Update("exceptions").
		Set(goqu.Record{"deleted_at": at}).
		Where(
			goqu.C("order_id").Eq(orderID),
			goqu.C("workflow").In(workflows),
			goqu.C("deleted_at").IsNull(),
		).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete exceptions of order %d: %w", orderID, err)
	}

	return res.RowsAffected()
}
