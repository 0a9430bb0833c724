package sessions

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/barcode"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/duplicates"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/matching"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/orders"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/metadata"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/models"
	custom_error "github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/errors"
)

type ScanOutcome string

const (
	OutcomeMatched      ScanOutcome = "matched"
	OutcomeSkidOpened   ScanOutcome = "skid_opened"
	OutcomeSkidReopened ScanOutcome = "skid_reopened"
)

// ScanRequest carries one scan. InternalKanban is set only for the second
// half of a Skid Build kanban pair.
type ScanRequest struct {
	Barcode        string
	InternalKanban string
	UserID         int
}

type ScanResult struct {
	Session        *models.Session     `json:"session"`
	Outcome        ScanOutcome         `json:"outcome"`
	SkidKey        string              `json:"skid_key"`
	Records        []models.ScanRecord `json:"records"`
	DuplicateAlert bool                `json:"duplicate_alert"`
	Progress       matching.Coverage   `json:"progress"`
}

// RecordScan decodes, matches and persists one scan against an active
// session.
func (s *Service) RecordScan(ctx context.Context, sessionID uuid.UUID, req ScanRequest) (*ScanResult, error) {
	unlock, err := s.lock(ctx, sessionLockKey(sessionID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var result *ScanResult
	err = s.store.Transact(ctx, func(tx Store) error {
		session, err := tx.GetSession(ctx, sessionID, true)
		if err != nil {
			return err
		}
		if err := requireEditable(session); err != nil {
			return err
		}

		if session.Workflow.Loads() {
			result, err = s.scanLoading(ctx, tx, session, req)
		} else {
			result, err = s.scanSkidBuild(ctx, tx, session, req)
		}
		if err != nil {
			return err
		}

		if err := tx.InsertScans(ctx, result.Records); err != nil {
			return err
		}

		sn, err := loadSnapshot(ctx, tx, session, false)
		if err != nil {
			return err
		}
		result.Progress = sn.coverage(session.Workflow)
		session.Step = nextStep(session.Step, len(sn.scans), result.Progress)

		if err := tx.UpdateSession(ctx, session); err != nil {
			return err
		}
		result.Session = session
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("scan recorded",
		zap.String("session_id", sessionID.String()),
		zap.String("outcome", string(result.Outcome)),
		zap.String("skid_key", result.SkidKey),
		zap.Int("records", len(result.Records)),
		zap.Bool("duplicate_alert", result.DuplicateAlert))

	return result, nil
}

func notPlanned(format string, args ...any) *custom_error.ValidationError {
	return custom_error.NewValidationError(custom_error.CodeNotPlanned, format, args...)
}

func alreadyScanned(key matching.SkidKey) *custom_error.ValidationError {
	return custom_error.NewValidationError(custom_error.CodeAlreadyScanned,
		"Skid %s of order %s was already scanned", key.SkidNumber, key.OrderNumber).
		With("skid_key", key.String())
}

func (s *Service) newRecord(session *models.Session, kind models.ScanKind, raw string, item models.PlannedItem, userID int) models.ScanRecord {
	return models.ScanRecord{
		ID:                uuid.New(),
		SessionID:         session.ID,
		Workflow:          session.Workflow,
		OrderID:           item.OrderID,
		PlannedItemID:     item.ID,
		Kind:              kind,
		Raw:               raw,
		OrderNumber:       item.OrderNumber,
		DockCode:          item.DockCode,
		SkidNumber:        item.SkidNumber,
		SkidSide:          item.SkidSide,
		PalletizationCode: item.PalletizationCode,
		ScannedBy:         userID,
		ScannedAt:         s.now(),
	}
}

func (s *Service) manifestRecords(session *models.Session, raw string, m barcode.Manifest, items []models.PlannedItem, userID int) []models.ScanRecord {
	records := make([]models.ScanRecord, 0, len(items))
	for _, item := range items {
		rec := s.newRecord(session, models.ScanManifest, raw, item, userID)
		rec.SkidSide = m.SkidSide
		rec.PartNumber = item.PartNumber
		rec.KanbanNumber = item.KanbanNumber
		records = append(records, rec)
	}
	return records
}

func (s *Service) scanSkidBuild(ctx context.Context, tx Store, session *models.Session, req ScanRequest) (*ScanResult, error) {
	if len(session.OrderIDs) == 0 {
		return nil, notPlanned("Session %s has no order", session.ID)
	}

	sn, err := loadSnapshot(ctx, tx, session, false)
	if err != nil {
		return nil, err
	}

	if len(sn.orders) == 0 {
		return nil, notPlanned("Order of session %s no longer exists", session.ID)
	}

	if req.InternalKanban == "" {
		if kanban, _ := barcode.LayoutFor(barcode.KindKanban); len(req.Barcode) == kanban.Length {
			return nil, custom_error.NewValidationError(custom_error.CodeMissingInput,
				"Scan the internal kanban together with the Toyota kanban")
		}
		return s.openSkid(session, sn, req)
	}

	return s.scanKanbanPair(ctx, tx, session, sn, req)
}

func (s *Service) openSkid(session *models.Session, sn *snapshot, req ScanRequest) (*ScanResult, error) {
	m, err := barcode.DecodeManifest(req.Barcode)
	if err != nil {
		return nil, err
	}

	order := sn.orders[0]
	if m.OrderNumber != order.OrderNumber || m.Dock != order.DockCode {
		return nil, notPlanned("Manifest belongs to order %s dock %s, this session builds order %s dock %s",
			m.OrderNumber, m.Dock, order.OrderNumber, order.DockCode).
			With("order_number", m.OrderNumber).
			With("dock_code", m.Dock)
	}

	res := matching.MatchManifest(m, sn.planned, sn.scans)
	key := res.Key.String()

	switch res.Outcome {
	case matching.NotPlanned:
		return nil, notPlanned("Skid %s palletization %s is not planned on order %s",
			m.SkidNumber, m.Palletization, m.OrderNumber).
			With("skid_key", key)

	case matching.AlreadyScanned:
		complete := false
		for _, skid := range sn.coverage(session.Workflow).Skids {
			if skid.SkidKey == key {
				complete = skid.Complete
			}
		}
		if complete || (session.CurrentSkidKey != nil && *session.CurrentSkidKey == key) {
			return nil, alreadyScanned(res.Key)
		}
		session.CurrentSkidKey = &key
		return &ScanResult{Outcome: OutcomeSkidReopened, SkidKey: key, Records: []models.ScanRecord{}}, nil

	default:
		session.CurrentSkidKey = &key
		return &ScanResult{
			Outcome: OutcomeSkidOpened,
			SkidKey: key,
			Records: s.manifestRecords(session, req.Barcode, m, res.Items, req.UserID),
		}, nil
	}
}

func (s *Service) scanKanbanPair(ctx context.Context, tx Store, session *models.Session, sn *snapshot, req ScanRequest) (*ScanResult, error) {
	if session.CurrentSkidKey == nil {
		return nil, custom_error.NewValidationError(custom_error.CodeNoOpenSkid,
			"Scan the skid manifest before its kanbans")
	}
	skid, ok := matching.ParseSkidKey(*session.CurrentSkidKey)
	if !ok {
		return nil, custom_error.NewValidationError(custom_error.CodeNoOpenSkid,
			"Open skid %q is not valid, scan the skid manifest again", *session.CurrentSkidKey)
	}

	kanban, err := barcode.DecodeKanban(req.Barcode)
	if err != nil {
		return nil, err
	}
	internal, err := barcode.DecodeInternalKanban(req.InternalKanban)
	if err != nil {
		return nil, err
	}

	res := matching.MatchKanban(skid, kanban, internal, sn.planned, sn.scans)
	switch res.Outcome {
	case matching.KanbanMismatch:
		return nil, custom_error.NewValidationError(custom_error.CodeKanbanMismatch,
			"Internal kanban %s/%s does not match Toyota kanban %s/%s",
			internal.PartNumber, internal.KanbanNumber, kanban.PartNumber, kanban.KanbanNumber).
			With("part_number", kanban.PartNumber).
			With("kanban_number", kanban.KanbanNumber)
	case matching.NotPlanned:
		return nil, notPlanned("Part %s kanban %s is not planned on skid %s",
			kanban.PartNumber, kanban.KanbanNumber, skid.SkidNumber).
			With("skid_key", skid.String()).
			With("part_number", kanban.PartNumber)
	case matching.AlreadyScanned:
		return nil, custom_error.NewValidationError(custom_error.CodeAlreadyScanned,
			"All boxes of part %s kanban %s on skid %s are already scanned",
			kanban.PartNumber, kanban.KanbanNumber, skid.SkidNumber).
			With("skid_key", skid.String()).
			With("part_number", kanban.PartNumber)
	}

	now := s.now()
	prior, err := tx.GetSerialScans(ctx, internal.Serial, s.policy.Since(now))
	if err != nil {
		return nil, err
	}

	decision := s.policy.Evaluate(internal.PartNumber, internal.Serial, prior, now)
	if decision == duplicates.Block {
		return nil, custom_error.NewValidationError(custom_error.CodeDuplicateBlocked,
			"Internal kanban serial %s was already scanned in the last %d hours", internal.Serial, s.policy.WindowHours).
			With("serial", internal.Serial).
			With("window_hours", s.policy.WindowHours)
	}

	item := res.Items[0]
	rec := s.newRecord(session, models.ScanKanban, req.Barcode, item, req.UserID)
	rec.PartNumber = kanban.PartNumber
	rec.KanbanNumber = kanban.KanbanNumber
	rec.InternalKanbanRaw = req.InternalKanban
	rec.InternalKanbanSerial = internal.Serial
	rec.DuplicateAlert = decision == duplicates.Alert
	rec.ScannedAt = now

	return &ScanResult{
		Outcome:        OutcomeMatched,
		SkidKey:        skid.String(),
		Records:        []models.ScanRecord{rec},
		DuplicateAlert: rec.DuplicateAlert,
	}, nil
}

func (s *Service) scanLoading(ctx context.Context, tx Store, session *models.Session, req ScanRequest) (*ScanResult, error) {
	m, err := barcode.DecodeManifest(req.Barcode)
	if err != nil {
		return nil, err
	}

	o, err := tx.GetOrderByNumber(ctx, m.OrderNumber, m.Dock)
	if custom_error.IsNotFound(err) {
		return nil, notPlanned("Order %s for dock %s is not planned", m.OrderNumber, m.Dock).
			With("order_number", m.OrderNumber).
			With("dock_code", m.Dock)
	}
	if err != nil {
		return nil, err
	}

	if !session.HasOrder(o.ID) {
		if session.Workflow != metadata.WorkflowPreShipment {
			return nil, notPlanned("Order %s is not on route %s", o.OrderNumber, session.RouteNumber).
				With("order_number", o.OrderNumber).
				With("route_number", session.RouteNumber)
		}
		if err := s.joinPreShipment(ctx, tx, session, o.ID); err != nil {
			return nil, err
		}
	}

	sn, err := loadSnapshot(ctx, tx, session, false)
	if err != nil {
		return nil, err
	}

	res := matching.MatchManifest(m, sn.planned, sn.scans)
	switch res.Outcome {
	case matching.NotPlanned:
		return nil, notPlanned("Skid %s palletization %s is not planned on order %s",
			m.SkidNumber, m.Palletization, m.OrderNumber).
			With("skid_key", res.Key.String())
	case matching.AlreadyScanned:
		return nil, alreadyScanned(res.Key)
	}

	return &ScanResult{
		Outcome: OutcomeMatched,
		SkidKey: res.Key.String(),
		Records: s.manifestRecords(session, req.Barcode, m, res.Items, req.UserID),
	}, nil
}

// joinPreShipment adds an order to a Pre-Shipment session on the first scan
// of one of its manifests.
func (s *Service) joinPreShipment(ctx context.Context, tx Store, session *models.Session, orderID int64) error {
	unlock, err := s.lock(ctx, orderLockKey(orderID))
	if err != nil {
		return err
	}
	defer unlock()

	o, err := tx.GetOrder(ctx, orderID, true)
	if err != nil {
		return err
	}
	if err := orders.CheckWorkflow(*o, session.Workflow); err != nil {
		return err
	}
	if claimedElsewhere(*o, session.Workflow) {
		return orderInUse(*o)
	}

	return s.enlist(ctx, tx, session, o)
}
