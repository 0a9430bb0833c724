package sessions

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/duplicates"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/metadata"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/models"
	custom_error "github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/errors"
)

type memData struct {
	sessions   map[uuid.UUID]models.Session
	orders     map[int64]models.Order
	planned    []models.PlannedItem
	scans      []models.ScanRecord
	exceptions []models.Exception

	// failConfirmation makes RecordConfirmation fail while set.
	failConfirmation error
}

func (d *memData) clone() *memData {
	c := &memData{
		sessions:         make(map[uuid.UUID]models.Session, len(d.sessions)),
		orders:           make(map[int64]models.Order, len(d.orders)),
		planned:          append([]models.PlannedItem(nil), d.planned...),
		scans:            append([]models.ScanRecord(nil), d.scans...),
		exceptions:       append([]models.Exception(nil), d.exceptions...),
		failConfirmation: d.failConfirmation,
	}
	for id, s := range d.sessions {
		s.OrderIDs = append([]int64(nil), s.OrderIDs...)
		c.sessions[id] = s
	}
	for id, o := range d.orders {
		c.orders[id] = o
	}
	return c
}

// memStore is an in-memory Store. Transact serialises callers and rolls the
// data back when fn fails.
type memStore struct {
	mu   *sync.Mutex
	d    *memData
	held bool
}

func newMemStore() *memStore {
	return &memStore{
		mu: &sync.Mutex{},
		d: &memData{
			sessions: map[uuid.UUID]models.Session{},
			orders:   map[int64]models.Order{},
		},
	}
}

func (s *memStore) guard() func() {
	if s.held {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *memStore) Transact(ctx context.Context, fn func(tx Store) error) error {
	if s.held {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	backup := s.d.clone()
	if err := fn(&memStore{mu: s.mu, d: s.d, held: true}); err != nil {
		*s.d = *backup
		return err
	}
	return nil
}

func (s *memStore) addOrder(o models.Order, items ...models.PlannedItem) {
	defer s.guard()()
	s.d.orders[o.ID] = o
	for _, p := range items {
		p.OrderID = o.ID
		p.OrderNumber = o.OrderNumber
		p.DockCode = o.DockCode
		s.d.planned = append(s.d.planned, p)
	}
}

func (s *memStore) order(id int64) models.Order {
	defer s.guard()()
	return s.d.orders[id]
}

func (s *memStore) session(id uuid.UUID) models.Session {
	defer s.guard()()
	return s.d.sessions[id]
}

func (s *memStore) liveScans() []models.ScanRecord {
	defer s.guard()()
	var out []models.ScanRecord
	for _, scan := range s.d.scans {
		if scan.DeletedAt == nil {
			out = append(out, scan)
		}
	}
	return out
}

func (s *memStore) setFailConfirmation(err error) {
	defer s.guard()()
	s.d.failConfirmation = err
}

func (s *memStore) CreateSession(ctx context.Context, session *models.Session) error {
	defer s.guard()()
	for _, existing := range s.d.sessions {
		if existing.Status == metadata.SessionActive && existing.Workflow == session.Workflow && existing.Key == session.Key {
			return &custom_error.ConcurrencyError{Resource: "session " + session.Key, Err: errors.New("duplicate active key")}
		}
	}
	stored := *session
	stored.OrderIDs = append([]int64{}, session.OrderIDs...)
	s.d.sessions[session.ID] = stored
	return nil
}

func (s *memStore) GetSession(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.Session, error) {
	defer s.guard()()
	stored, ok := s.d.sessions[id]
	if !ok {
		return nil, &custom_error.NotFoundError{Resource: "session", ID: id}
	}
	stored.OrderIDs = append([]int64{}, stored.OrderIDs...)
	return &stored, nil
}

func (s *memStore) FindActiveSession(ctx context.Context, workflow metadata.Workflow, key string) (*models.Session, error) {
	defer s.guard()()
	for _, existing := range s.d.sessions {
		if existing.Status == metadata.SessionActive && existing.Workflow == workflow && existing.Key == key {
			existing.OrderIDs = append([]int64{}, existing.OrderIDs...)
			return &existing, nil
		}
	}
	return nil, nil
}

func (s *memStore) UpdateSession(ctx context.Context, session *models.Session) error {
	defer s.guard()()
	stored, ok := s.d.sessions[session.ID]
	if !ok {
		return &custom_error.NotFoundError{Resource: "session", ID: session.ID}
	}
	updated := *session
	updated.OrderIDs = stored.OrderIDs
	s.d.sessions[session.ID] = updated
	return nil
}

func (s *memStore) AddSessionOrder(ctx context.Context, sessionID uuid.UUID, orderID int64) error {
	defer s.guard()()
	stored := s.d.sessions[sessionID]
	if !stored.HasOrder(orderID) {
		stored.OrderIDs = append(stored.OrderIDs, orderID)
	}
	s.d.sessions[sessionID] = stored
	return nil
}

func (s *memStore) GetOrder(ctx context.Context, id int64, forUpdate bool) (*models.Order, error) {
	defer s.guard()()
	o, ok := s.d.orders[id]
	if !ok {
		return nil, &custom_error.NotFoundError{Resource: "order", ID: id}
	}
	return &o, nil
}

func (s *memStore) GetOrderByNumber(ctx context.Context, orderNumber, dockCode string) (*models.Order, error) {
	defer s.guard()()
	for _, o := range s.d.orders {
		if o.OrderNumber == orderNumber && o.DockCode == dockCode {
			return &o, nil
		}
	}
	return nil, &custom_error.NotFoundError{Resource: "order", ID: orderNumber + "/" + dockCode}
}

func (s *memStore) GetOrders(ctx context.Context, ids []int64, forUpdate bool) ([]models.Order, error) {
	defer s.guard()()
	out := []models.Order{}
	for _, id := range ids {
		if o, ok := s.d.orders[id]; ok {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) GetRouteOrders(ctx context.Context, route string) ([]models.Order, error) {
	defer s.guard()()
	out := []models.Order{}
	for _, o := range s.d.orders {
		if o.RouteNumber == route {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) GetPlannedItems(ctx context.Context, orderIDs []int64) ([]models.PlannedItem, error) {
	defer s.guard()()
	out := []models.PlannedItem{}
	for _, p := range s.d.planned {
		if containsID(orderIDs, p.OrderID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memStore) UpdateOrderStatus(ctx context.Context, id int64, status metadata.OrderStatus) error {
	defer s.guard()()
	o := s.d.orders[id]
	o.Status = status
	s.d.orders[id] = o
	return nil
}

func (s *memStore) RecordConfirmation(ctx context.Context, id int64, workflow metadata.Workflow, number string, status metadata.OrderStatus) error {
	defer s.guard()()
	if s.d.failConfirmation != nil {
		return s.d.failConfirmation
	}
	o := s.d.orders[id]
	if workflow.Loads() {
		o.ShipmentConfirmation = number
	} else {
		o.SkidBuildConfirmation = number
	}
	o.Status = status
	s.d.orders[id] = o
	return nil
}

func (s *memStore) InsertScans(ctx context.Context, scans []models.ScanRecord) error {
	defer s.guard()()
	s.d.scans = append(s.d.scans, scans...)
	return nil
}

func (s *memStore) GetScans(ctx context.Context, orderIDs []int64, workflows []metadata.Workflow) ([]models.ScanRecord, error) {
	defer s.guard()()
	out := []models.ScanRecord{}
	for _, scan := range s.d.scans {
		if scan.DeletedAt == nil && containsID(orderIDs, scan.OrderID) && containsWorkflow(workflows, scan.Workflow) {
			out = append(out, scan)
		}
	}
	return out, nil
}

func (s *memStore) CountSessionScans(ctx context.Context, sessionID uuid.UUID) (int, error) {
	defer s.guard()()
	count := 0
	for _, scan := range s.d.scans {
		if scan.DeletedAt == nil && scan.SessionID == sessionID {
			count++
		}
	}
	return count, nil
}

func (s *memStore) GetSerialScans(ctx context.Context, serial string, since time.Time) ([]duplicates.PriorScan, error) {
	defer s.guard()()
	var out []duplicates.PriorScan
	for _, scan := range s.d.scans {
		if scan.DeletedAt == nil && scan.InternalKanbanSerial == serial && !scan.ScannedAt.Before(since) {
			out = append(out, duplicates.PriorScan{Serial: serial, ScannedAt: scan.ScannedAt})
		}
	}
	return out, nil
}

func (s *memStore) DeleteScans(ctx context.Context, orderID int64, workflows []metadata.Workflow, at time.Time) (int64, error) {
	defer s.guard()()
	var n int64
	for i, scan := range s.d.scans {
		if scan.DeletedAt == nil && scan.OrderID == orderID && containsWorkflow(workflows, scan.Workflow) {
			deletedAt := at
			s.d.scans[i].DeletedAt = &deletedAt
			n++
		}
	}
	return n, nil
}

func (s *memStore) InsertException(ctx context.Context, exception *models.Exception) error {
	defer s.guard()()
	s.d.exceptions = append(s.d.exceptions, *exception)
	return nil
}

func (s *memStore) GetException(ctx context.Context, id uuid.UUID) (*models.Exception, error) {
	defer s.guard()()
	for _, e := range s.d.exceptions {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, &custom_error.NotFoundError{Resource: "exception", ID: id}
}

func (s *memStore) GetExceptions(ctx context.Context, orderIDs []int64, workflows []metadata.Workflow) ([]models.Exception, error) {
	defer s.guard()()
	out := []models.Exception{}
	for _, e := range s.d.exceptions {
		if e.DeletedAt == nil && containsID(orderIDs, e.OrderID) && containsWorkflow(workflows, e.Workflow) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memStore) DeleteException(ctx context.Context, id uuid.UUID, at time.Time) error {
	defer s.guard()()
	for i, e := range s.d.exceptions {
		if e.ID == id && e.DeletedAt == nil {
			deletedAt := at
			s.d.exceptions[i].DeletedAt = &deletedAt
		}
	}
	return nil
}

func (s *memStore) DeleteExceptions(ctx context.Context, orderID int64, workflows []metadata.Workflow, at time.Time) (int64, error) {
	defer s.guard()()
	var n int64
	for i, e := range s.d.exceptions {
		if e.DeletedAt == nil && e.OrderID == orderID && containsWorkflow(workflows, e.Workflow) {
			deletedAt := at
			s.d.exceptions[i].DeletedAt = &deletedAt
			n++
		}
	}
	return n, nil
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func containsWorkflow(workflows []metadata.Workflow, w metadata.Workflow) bool {
	for _, v := range workflows {
		if v == w {
			return true
		}
	}
	return false
}
