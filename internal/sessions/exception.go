package sessions

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/matching"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/metadata"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/models"
	custom_error "github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/errors"
)

type ExceptionRequest struct {
	Code           metadata.ExceptionCode
	Comments       string
	RelatedSkidKey string
	OrderID        int64
	UserID         int
}

type ExceptionResult struct {
	Session   *models.Session   `json:"session"`
	Exception *models.Exception `json:"exception"`
	Progress  matching.Coverage `json:"progress"`
}

func invalidException(format string, args ...any) *custom_error.ValidationError {
	return custom_error.NewValidationError(custom_error.CodeInvalidException, format, args...)
}

// RecordException attaches an exception to an active session. Skid level
// codes must name a skid planned in the session, trailer level codes must not
// name one.
func (s *Service) RecordException(ctx context.Context, sessionID uuid.UUID, req ExceptionRequest) (*ExceptionResult, error) {
	if !req.Code.IsValid() {
		return nil, invalidException("Unknown exception code %q", req.Code).With("code", req.Code)
	}
	if utf8.RuneCountInString(req.Comments) > metadata.MaxExceptionComments {
		return nil, invalidException("Comments must be at most %d characters", metadata.MaxExceptionComments).
			With("max_length", metadata.MaxExceptionComments)
	}
	relatedKey := strings.TrimSpace(req.RelatedSkidKey)

	unlock, err := s.lock(ctx, sessionLockKey(sessionID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var result *ExceptionResult
	err = s.store.Transact(ctx, func(tx Store) error {
		session, err := tx.GetSession(ctx, sessionID, true)
		if err != nil {
			return err
		}
		if err := requireEditable(session); err != nil {
			return err
		}

		sn, err := loadSnapshot(ctx, tx, session, false)
		if err != nil {
			return err
		}

		exception := &models.Exception{
			ID:         uuid.New(),
			SessionID:  session.ID,
			Workflow:   session.Workflow,
			Code:       req.Code,
			Comments:   req.Comments,
			RecordedBy: req.UserID,
			CreatedAt:  s.now(),
		}

		switch req.Code.Scope() {
		case metadata.ScopeSkid:
			if relatedKey == "" {
				return invalidException("Exception %s needs the skid it refers to", req.Code).With("code", req.Code)
			}
			orderID, ok := plannedSkidOrder(sn.planned, relatedKey)
			if !ok {
				return invalidException("Skid %s is not planned in this session", relatedKey).
					With("skid_key", relatedKey)
			}
			exception.OrderID = orderID
			exception.RelatedKey = &relatedKey

		default:
			if relatedKey != "" {
				return invalidException("Exception %s applies to the trailer and cannot name a skid", req.Code).
					With("code", req.Code)
			}
			orderID, err := trailerOrder(session, req.OrderID)
			if err != nil {
				return err
			}
			exception.OrderID = orderID
		}

		if err := tx.InsertException(ctx, exception); err != nil {
			return err
		}
		sn.exceptions = append(sn.exceptions, *exception)

		progress := sn.coverage(session.Workflow)
		if step := nextStep(session.Step, len(sn.scans), progress); step != session.Step {
			session.Step = step
			if err := tx.UpdateSession(ctx, session); err != nil {
				return err
			}
		}

		result = &ExceptionResult{Session: session, Exception: exception, Progress: progress}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func plannedSkidOrder(planned []models.PlannedItem, key string) (int64, bool) {
	for _, p := range planned {
		if matching.KeyOfItem(p).String() == key {
			return p.OrderID, true
		}
	}
	return 0, false
}

func trailerOrder(session *models.Session, requested int64) (int64, error) {
	if requested != 0 {
		if !session.HasOrder(requested) {
			return 0, invalidException("Order %d is not part of this session", requested).
				With("order_id", requested)
		}
		return requested, nil
	}
	if len(session.OrderIDs) == 1 {
		return session.OrderIDs[0], nil
	}
	return 0, invalidException("Pick the order this exception applies to").
		With("order_ids", session.OrderIDs)
}

// RemoveException soft-deletes an exception of an active session.
func (s *Service) RemoveException(ctx context.Context, sessionID, exceptionID uuid.UUID) (*models.Session, error) {
	unlock, err := s.lock(ctx, sessionLockKey(sessionID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var session *models.Session
	err = s.store.Transact(ctx, func(tx Store) error {
		session, err = tx.GetSession(ctx, sessionID, true)
		if err != nil {
			return err
		}
		if err := requireEditable(session); err != nil {
			return err
		}

		exception, err := tx.GetException(ctx, exceptionID)
		if err != nil {
			return err
		}
		if exception.SessionID != session.ID || exception.DeletedAt != nil {
			return &custom_error.NotFoundError{Resource: "exception", ID: exceptionID}
		}

		if err := tx.DeleteException(ctx, exceptionID, s.now()); err != nil {
			return err
		}

		sn, err := loadSnapshot(ctx, tx, session, false)
		if err != nil {
			return err
		}
		if step := nextStep(session.Step, len(sn.scans), sn.coverage(session.Workflow)); step != session.Step {
			session.Step = step
			return tx.UpdateSession(ctx, session)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return session, nil
}

// TrailerUpdate holds the trailer fields to overwrite. Nil fields are kept.
type TrailerUpdate struct {
	TrailerNumber *string
	SealNumber    *string
	DriverName    *string
	SupplierName  *string
}

func (u TrailerUpdate) apply(t *models.TrailerInfo) {
	merge := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	merge(&t.TrailerNumber, u.TrailerNumber)
	merge(&t.SealNumber, u.SealNumber)
	merge(&t.DriverName, u.DriverName)
	merge(&t.SupplierName, u.SupplierName)
}

func (s *Service) UpdateTrailerInfo(ctx context.Context, sessionID uuid.UUID, update TrailerUpdate) (*models.Session, error) {
	unlock, err := s.lock(ctx, sessionLockKey(sessionID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var session *models.Session
	err = s.store.Transact(ctx, func(tx Store) error {
		session, err = tx.GetSession(ctx, sessionID, true)
		if err != nil {
			return err
		}
		if err := requireEditable(session); err != nil {
			return err
		}
		if !session.Workflow.Loads() {
			return custom_error.NewValidationError(custom_error.CodeWrongWorkflow,
				"Trailer information only applies to loading workflows, not %s", session.Workflow).
				With("workflow", session.Workflow)
		}

		update.apply(&session.Trailer)
		return tx.UpdateSession(ctx, session)
	})
	if err != nil {
		return nil, err
	}

	return session, nil
}
