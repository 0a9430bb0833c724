package sessions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/barcode"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/confirmation"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/duplicates"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/matching"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/orders"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/auditlog"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/metadata"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/models"
	custom_error "github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/errors"
)

const (
	DefaultSessionTTL  = 12 * time.Hour
	DefaultLockTimeout = 10 * time.Second
)

type Auditor interface {
	Log(ctx context.Context, action string, userID int, data interface{}, item auditlog.Auditable)
}

type Options struct {
	Policy      duplicates.Policy
	SessionTTL  time.Duration
	LockTimeout time.Duration
}

// Service runs the Skid Build, Shipment Load and Pre-Shipment state
// machines. Every mutating operation holds the session lock for its whole
// duration.
type Service struct {
	store     Store
	locker    Locker
	submitter confirmation.Submitter
	audit     Auditor
	policy    duplicates.Policy
	ttl       time.Duration
	lockWait  time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(store Store, locker Locker, submitter confirmation.Submitter, audit Auditor, opts Options, logger *zap.Logger) *Service {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = DefaultLockTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		store:     store,
		locker:    locker,
		submitter: submitter,
		audit:     audit,
		policy:    opts.Policy,
		ttl:       opts.SessionTTL,
		lockWait:  opts.LockTimeout,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func sessionLockKey(id uuid.UUID) string {
	return "session:" + id.String()
}

func orderLockKey(id int64) string {
	return "order:" + strconv.FormatInt(id, 10)
}

// lock acquires keys in the given order and returns a release for all of
// them. Waiting is bounded by the lock timeout.
func (s *Service) lock(ctx context.Context, keys ...string) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, s.lockWait)
	defer cancel()

	var unlocks []func()
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}

	for _, key := range keys {
		unlock, err := s.locker.Lock(ctx, key)
		if err != nil {
			release()
			return nil, err
		}
		unlocks = append(unlocks, unlock)
	}

	return release, nil
}

// lockOrders locks the member orders of a session in ascending id order.
func (s *Service) lockOrders(ctx context.Context, ids []int64) (func(), error) {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	keys := make([]string, 0, len(sorted))
	for _, id := range sorted {
		keys = append(keys, orderLockKey(id))
	}
	return s.lock(ctx, keys...)
}

func (s *Service) record(ctx context.Context, action string, userID int, data interface{}, session *models.Session) {
	if s.audit == nil {
		return
	}
	s.audit.Log(ctx, action, userID, data, session)
}

// snapshot is everything coverage and payloads are computed from.
type snapshot struct {
	orders     []models.Order
	planned    []models.PlannedItem
	scans      []models.ScanRecord
	exceptions []models.Exception
}

func loadSnapshot(ctx context.Context, tx Store, session *models.Session, lockOrders bool) (*snapshot, error) {
	family := session.Workflow.Family()

	members, err := tx.GetOrders(ctx, session.OrderIDs, lockOrders)
	if err != nil {
		return nil, err
	}
	planned, err := tx.GetPlannedItems(ctx, session.OrderIDs)
	if err != nil {
		return nil, err
	}
	scans, err := tx.GetScans(ctx, session.OrderIDs, family)
	if err != nil {
		return nil, err
	}
	exceptions, err := tx.GetExceptions(ctx, session.OrderIDs, family)
	if err != nil {
		return nil, err
	}

	return &snapshot{orders: members, planned: planned, scans: scans, exceptions: exceptions}, nil
}

func (sn *snapshot) coverage(w metadata.Workflow) matching.Coverage {
	return matching.Evaluate(w, sn.planned, sn.scans, sn.exceptions)
}

// nextStep derives the screen step from what has been recorded so far.
func nextStep(current int, scanCount int, cov matching.Coverage) int {
	switch {
	case cov.TotalItems > 0 && cov.Resolved():
		return metadata.StepReview
	case scanCount > 0 || current > metadata.StepAwaitingScan:
		return metadata.StepScanning
	default:
		return metadata.StepAwaitingScan
	}
}

func requireActive(session *models.Session) error {
	if session.IsActive() {
		return nil
	}
	return custom_error.NewValidationError(custom_error.CodeSessionNotActive,
		"Session %s is %s", session.ID, session.Status).
		With("status", session.Status)
}

// requireEditable guards operations that change what a completion would
// submit. Once the OEM accepted a submission the recorded work is frozen
// until Complete records the confirmation.
func requireEditable(session *models.Session) error {
	if err := requireActive(session); err != nil {
		return err
	}
	if session.PendingConfirmation != "" {
		return custom_error.NewValidationError(custom_error.CodeConfirmationPending,
			"Session was accepted by the OEM under %s, complete it to record the confirmation", session.PendingConfirmation).
			With("confirmation_number", session.PendingConfirmation)
	}
	return nil
}

// claimedElsewhere reports whether an order is held by another active
// session of the same workflow family.
func claimedElsewhere(o models.Order, w metadata.Workflow) bool {
	return o.Status == w.InProgressStatus() || o.Status == w.ErrorStatus()
}

func orderInUse(o models.Order) error {
	return custom_error.NewValidationError(custom_error.CodeOrderInUse,
		"Order %s is already being worked in another session", o.OrderNumber).
		With("order_number", o.OrderNumber).
		With("status", o.Status)
}

type StartRequest struct {
	Workflow metadata.Workflow
	UserID   int
	OrderID  int64
	Barcode  string
}

type StartResult struct {
	Session *models.Session `json:"session"`
	Resumed bool            `json:"resumed"`
}

// Start returns the active session for the request's key or opens a new one.
func (s *Service) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	plan, err := s.planStart(ctx, req)
	if err != nil {
		return nil, err
	}

	unlock, err := s.lock(ctx, "start:"+req.Workflow.String()+":"+plan.key)
	if err != nil {
		return nil, err
	}
	defer unlock()

	result, err := s.start(ctx, req, plan)
	var concurrencyErr *custom_error.ConcurrencyError
	if errors.As(err, &concurrencyErr) {
		s.logger.Info("retrying session start after conflict", zap.String("key", plan.key), zap.Error(err))
		result, err = s.start(ctx, req, plan)
	}
	if err != nil {
		return nil, err
	}

	if !result.Resumed {
		s.record(ctx, "start", req.UserID, map[string]interface{}{
			"workflow":  result.Session.Workflow,
			"key":       result.Session.Key,
			"order_ids": result.Session.OrderIDs,
		}, result.Session)
	}

	return result, nil
}

// startPlan is what a start request resolves to before any state is read.
type startPlan struct {
	key     string
	orderID int64
	pickup  *barcode.PickupRoute
}

func (s *Service) planStart(ctx context.Context, req StartRequest) (*startPlan, error) {
	switch req.Workflow {
	case metadata.WorkflowSkidBuild:
		if req.OrderID != 0 {
			return &startPlan{key: orderLockKey(req.OrderID), orderID: req.OrderID}, nil
		}
		if req.Barcode == "" {
			return nil, custom_error.NewValidationError(custom_error.CodeMissingInput,
				"Skid build needs an order id or a manifest scan")
		}
		m, err := barcode.DecodeManifest(req.Barcode)
		if err != nil {
			return nil, err
		}
		o, err := s.store.GetOrderByNumber(ctx, m.OrderNumber, m.Dock)
		if custom_error.IsNotFound(err) {
			return nil, custom_error.NewValidationError(custom_error.CodeNotPlanned,
				"Order %s for dock %s is not planned", m.OrderNumber, m.Dock).
				With("order_number", m.OrderNumber).
				With("dock_code", m.Dock)
		}
		if err != nil {
			return nil, err
		}
		return &startPlan{key: orderLockKey(o.ID), orderID: o.ID}, nil

	case metadata.WorkflowShipmentLoad:
		if req.Barcode == "" {
			return nil, custom_error.NewValidationError(custom_error.CodeMissingInput,
				"Shipment load starts with a pickup route checksheet scan")
		}
		pr, err := barcode.DecodePickupRoute(req.Barcode)
		if err != nil {
			return nil, err
		}
		return &startPlan{key: fmt.Sprintf("route:%s:user:%d", pr.Route, req.UserID), pickup: &pr}, nil

	case metadata.WorkflowPreShipment:
		return &startPlan{key: fmt.Sprintf("user:%d", req.UserID)}, nil

	default:
		return nil, fmt.Errorf("unsupported workflow %q", req.Workflow)
	}
}

func (s *Service) start(ctx context.Context, req StartRequest, plan *startPlan) (*StartResult, error) {
	var result *StartResult

	err := s.store.Transact(ctx, func(tx Store) error {
		existing, err := tx.FindActiveSession(ctx, req.Workflow, plan.key)
		if err != nil {
			return err
		}
		if existing != nil {
			result = &StartResult{Session: existing, Resumed: true}
			return nil
		}

		members, err := s.startMembers(ctx, tx, req.Workflow, plan)
		if err != nil {
			return err
		}

		now := s.now()
		session := &models.Session{
			ID:        uuid.New(),
			Workflow:  req.Workflow,
			Key:       plan.key,
			UserID:    req.UserID,
			Status:    metadata.SessionActive,
			Step:      metadata.StepAwaitingScan,
			OrderIDs:  []int64{},
			CreatedAt: now,
			ExpiresAt: now.Add(s.ttl),
		}
		if plan.pickup != nil {
			pickup := plan.pickup.PickupAt
			session.RouteNumber = plan.pickup.Route
			session.PickupAt = &pickup
		}

		if err := tx.CreateSession(ctx, session); err != nil {
			return err
		}

		for i := range members {
			if err := s.enlist(ctx, tx, session, &members[i]); err != nil {
				return err
			}
		}

		result = &StartResult{Session: session}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// startMembers resolves and locks the orders a new session starts with.
func (s *Service) startMembers(ctx context.Context, tx Store, w metadata.Workflow, plan *startPlan) ([]models.Order, error) {
	switch w {
	case metadata.WorkflowSkidBuild:
		o, err := tx.GetOrder(ctx, plan.orderID, true)
		if err != nil {
			return nil, err
		}
		if err := orders.CheckWorkflow(*o, w); err != nil {
			return nil, err
		}
		return []models.Order{*o}, nil

	case metadata.WorkflowShipmentLoad:
		pr := plan.pickup
		sheet, err := tx.GetOrderByNumber(ctx, pr.OrderNumber, pr.Dock)
		if custom_error.IsNotFound(err) {
			return nil, custom_error.NewValidationError(custom_error.CodeNotPlanned,
				"Order %s for dock %s on the checksheet is not planned", pr.OrderNumber, pr.Dock).
				With("order_number", pr.OrderNumber).
				With("dock_code", pr.Dock)
		}
		if err != nil {
			return nil, err
		}
		if err := orders.CheckWorkflow(*sheet, w); err != nil {
			return nil, err
		}
		if claimedElsewhere(*sheet, w) {
			return nil, orderInUse(*sheet)
		}

		route, err := tx.GetRouteOrders(ctx, pr.Route)
		if err != nil {
			return nil, err
		}

		var ids []int64
		for _, o := range route {
			if o.ID != sheet.ID && !eligibleForPickup(o, w, pr.PickupAt) {
				continue
			}
			ids = append(ids, o.ID)
		}
		if len(ids) == 0 {
			ids = []int64{sheet.ID}
		}

		return tx.GetOrders(ctx, ids, true)

	default:
		return nil, nil
	}
}

// eligibleForPickup selects the route orders that travel with a checksheet.
func eligibleForPickup(o models.Order, w metadata.Workflow, pickup time.Time) bool {
	if orders.CheckWorkflow(o, w) != nil || claimedElsewhere(o, w) {
		return false
	}
	return o.PickupAt == nil || o.PickupAt.Equal(pickup)
}

// enlist moves an order into the workflow's in-progress status and makes it
// a member of session.
func (s *Service) enlist(ctx context.Context, tx Store, session *models.Session, o *models.Order) error {
	changed, err := orders.Advance(o, session.Workflow.InProgressStatus())
	if err != nil {
		return err
	}
	if changed {
		if err := tx.UpdateOrderStatus(ctx, o.ID, o.Status); err != nil {
			return err
		}
	}
	if err := tx.AddSessionOrder(ctx, session.ID, o.ID); err != nil {
		return err
	}
	if !session.HasOrder(o.ID) {
		session.OrderIDs = append(session.OrderIDs, o.ID)
	}
	return nil
}

// SessionView is a session with its computed progress.
type SessionView struct {
	*models.Session
	Orders     []models.Order       `json:"orders"`
	Planned    []models.PlannedItem `json:"planned"`
	Scans      []models.ScanRecord  `json:"scans"`
	Exceptions []models.Exception   `json:"exceptions"`
	Progress   matching.Coverage    `json:"progress"`
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*SessionView, error) {
	session, err := s.store.GetSession(ctx, id, false)
	if err != nil {
		return nil, err
	}

	sn, err := loadSnapshot(ctx, s.store, session, false)
	if err != nil {
		return nil, err
	}

	return &SessionView{
		Session:    session,
		Orders:     sn.orders,
		Planned:    sn.planned,
		Scans:      sn.scans,
		Exceptions: sn.exceptions,
		Progress:   sn.coverage(session.Workflow),
	}, nil
}
