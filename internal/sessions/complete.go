package sessions

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/confirmation"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/orders"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/metadata"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/models"
	custom_error "github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/errors"
)

type CompleteResult struct {
	Session            *models.Session `json:"session"`
	ConfirmationNumber string          `json:"confirmation_number"`
}

// lockSession takes the session lock and then the locks of its member
// orders. The member list is stable while the session lock is held.
func (s *Service) lockSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, func(), error) {
	unlockSession, err := s.lock(ctx, sessionLockKey(sessionID))
	if err != nil {
		return nil, nil, err
	}

	session, err := s.store.GetSession(ctx, sessionID, false)
	if err != nil {
		unlockSession()
		return nil, nil, err
	}

	unlockOrders, err := s.lockOrders(ctx, session.OrderIDs)
	if err != nil {
		unlockSession()
		return nil, nil, err
	}

	return session, func() {
		unlockOrders()
		unlockSession()
	}, nil
}

// Complete submits the session to the OEM and records the confirmation. A
// failed submission leaves the session active so the operator can retry.
func (s *Service) Complete(ctx context.Context, sessionID uuid.UUID, userID int) (*CompleteResult, error) {
	session, unlock, err := s.lockSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var sn *snapshot
	err = s.store.Transact(ctx, func(tx Store) error {
		session, err = tx.GetSession(ctx, sessionID, true)
		if err != nil {
			return err
		}
		if err := requireActive(session); err != nil {
			return err
		}
		sn, err = loadSnapshot(ctx, tx, session, true)
		return err
	})
	if err != nil {
		return nil, err
	}

	// An acknowledged submission is recorded as is. The work it covered
	// cannot change while the confirmation is pending.
	if session.PendingConfirmation == "" {
		if err := checkCompletable(session, sn); err != nil {
			return nil, err
		}
	}

	number := session.PendingConfirmation
	if number == "" {
		number, err = s.submit(ctx, session, sn)
		if err != nil {
			return nil, err
		}

		// Persisted before the transition so a crash in between is
		// recovered by the next Complete without submitting again.
		session.PendingConfirmation = number
		if err := s.store.UpdateSession(ctx, session); err != nil {
			s.logger.Error("failed to persist pending confirmation",
				zap.String("session_id", sessionID.String()),
				zap.String("confirmation_number", number),
				zap.Error(err))
			return nil, err
		}
	} else {
		s.logger.Info("resuming acknowledged confirmation",
			zap.String("session_id", sessionID.String()),
			zap.String("confirmation_number", number))
	}

	err = s.store.Transact(ctx, func(tx Store) error {
		members, err := tx.GetOrders(ctx, session.OrderIDs, true)
		if err != nil {
			return err
		}
		done := session.Workflow.DoneStatus()
		for i := range members {
			if _, err := orders.Advance(&members[i], done); err != nil {
				return err
			}
			if err := tx.RecordConfirmation(ctx, members[i].ID, session.Workflow, number, done); err != nil {
				return err
			}
		}

		now := s.now()
		session.Status = metadata.SessionCompleted
		session.Step = metadata.StepReview
		session.ConfirmationNumber = number
		session.PendingConfirmation = ""
		session.LastError = ""
		session.CompletedAt = &now
		return tx.UpdateSession(ctx, session)
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, "complete", userID, map[string]interface{}{
		"confirmation_number": number,
		"order_ids":           session.OrderIDs,
	}, session)

	return &CompleteResult{Session: session, ConfirmationNumber: number}, nil
}

func checkCompletable(session *models.Session, sn *snapshot) error {
	if session.Workflow.Loads() && strings.TrimSpace(session.Trailer.DriverName) == "" {
		return custom_error.NewValidationError(custom_error.CodeDriverRequired,
			"Driver name is required to complete a shipment, drop-hook is not supported")
	}
	if len(sn.orders) == 0 {
		return custom_error.NewValidationError(custom_error.CodeIncomplete,
			"Session has no orders to confirm").
			With("unresolved_skids", []string{})
	}

	cov := sn.coverage(session.Workflow)
	if !cov.Resolved() {
		skids := cov.UnresolvedSkids()
		return custom_error.NewValidationError(custom_error.CodeIncomplete,
			"%d skid(s) are neither scanned nor covered by an exception", len(skids)).
			With("unresolved_skids", skids)
	}
	return nil
}

func (s *Service) submit(ctx context.Context, session *models.Session, sn *snapshot) (string, error) {
	payload := confirmation.BuildPayload(confirmation.Source{
		Session:    *session,
		Orders:     sn.orders,
		Planned:    sn.planned,
		Scans:      sn.scans,
		Exceptions: sn.exceptions,
	})

	number, err := s.submitter.Submit(ctx, payload)
	if err == nil {
		return number, nil
	}

	var rejected *confirmation.RejectedError
	if errors.As(err, &rejected) {
		if markErr := s.markRejected(ctx, session, rejected); markErr != nil {
			s.logger.Error("failed to record rejected submission",
				zap.String("session_id", session.ID.String()),
				zap.Error(markErr))
		}
	}
	return "", err
}

// markRejected moves the member orders into the workflow's error status and
// keeps the OEM message on the session.
func (s *Service) markRejected(ctx context.Context, session *models.Session, rejected *confirmation.RejectedError) error {
	return s.store.Transact(ctx, func(tx Store) error {
		members, err := tx.GetOrders(ctx, session.OrderIDs, true)
		if err != nil {
			return err
		}
		for i := range members {
			changed, err := orders.Advance(&members[i], session.Workflow.ErrorStatus())
			if err != nil {
				return err
			}
			if changed {
				if err := tx.UpdateOrderStatus(ctx, members[i].ID, members[i].Status); err != nil {
					return err
				}
			}
		}

		session.LastError = rejected.Error()
		return tx.UpdateSession(ctx, session)
	})
}

type RestartResult struct {
	Session           *models.Session `json:"session"`
	DeletedScans      int64           `json:"deleted_scans"`
	DeletedExceptions int64           `json:"deleted_exceptions"`
}

// Restart discards the recorded work of an unconfirmed session, rewinds its
// orders and cancels it.
func (s *Service) Restart(ctx context.Context, sessionID uuid.UUID, userID int) (*RestartResult, error) {
	session, unlock, err := s.lockSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	result := &RestartResult{}
	err = s.store.Transact(ctx, func(tx Store) error {
		session, err = tx.GetSession(ctx, sessionID, true)
		if err != nil {
			return err
		}
		members, err := tx.GetOrders(ctx, session.OrderIDs, true)
		if err != nil {
			return err
		}

		if err := checkUnconfirmed(session, members); err != nil {
			return err
		}
		if err := requireActive(session); err != nil {
			return err
		}

		family := session.Workflow.Family()
		now := s.now()
		for i := range members {
			o := &members[i]
			scans, err := tx.DeleteScans(ctx, o.ID, family, now)
			if err != nil {
				return err
			}
			exceptions, err := tx.DeleteExceptions(ctx, o.ID, family, now)
			if err != nil {
				return err
			}
			result.DeletedScans += scans
			result.DeletedExceptions += exceptions

			if claimedElsewhere(*o, session.Workflow) && orders.Rewind(o) {
				if err := tx.UpdateOrderStatus(ctx, o.ID, o.Status); err != nil {
					return err
				}
			}
		}

		session.Status = metadata.SessionCancelled
		session.CurrentSkidKey = nil
		session.CancelledAt = &now
		return tx.UpdateSession(ctx, session)
	})
	if err != nil {
		return nil, err
	}

	result.Session = session
	s.record(ctx, "restart", userID, map[string]interface{}{
		"deleted_scans":      result.DeletedScans,
		"deleted_exceptions": result.DeletedExceptions,
		"order_ids":          session.OrderIDs,
	}, session)

	return result, nil
}

func checkUnconfirmed(session *models.Session, members []models.Order) error {
	number := session.ConfirmationNumber
	if number == "" {
		number = session.PendingConfirmation
	}
	if number != "" {
		return custom_error.NewValidationError(custom_error.CodeAlreadyConfirmed,
			"Session was already confirmed by the OEM under %s", number).
			With("confirmation_number", number)
	}

	for _, o := range members {
		if n := o.ConfirmationFor(session.Workflow); n != "" {
			return custom_error.NewValidationError(custom_error.CodeAlreadyConfirmed,
				"Order %s was already confirmed by the OEM under %s", o.OrderNumber, n).
				With("order_number", o.OrderNumber).
				With("confirmation_number", n)
		}
	}
	return nil
}

// Cancel abandons an active session before anything was scanned. Its
// exceptions are discarded with it.
func (s *Service) Cancel(ctx context.Context, sessionID uuid.UUID, userID int) (*models.Session, error) {
	session, unlock, err := s.lockSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	err = s.store.Transact(ctx, func(tx Store) error {
		session, err = tx.GetSession(ctx, sessionID, true)
		if err != nil {
			return err
		}
		if err := requireEditable(session); err != nil {
			return err
		}

		count, err := tx.CountSessionScans(ctx, session.ID)
		if err != nil {
			return err
		}
		if count > 0 {
			return custom_error.NewValidationError(custom_error.CodeScansRecorded,
				"Session has %d scan(s), restart it instead of cancelling", count).
				With("scans", count)
		}

		members, err := tx.GetOrders(ctx, session.OrderIDs, true)
		if err != nil {
			return err
		}
		now := s.now()
		for i := range members {
			o := &members[i]
			// Exceptions are stored per order and workflow family, not per session.
			if _, err := tx.DeleteExceptions(ctx, o.ID, session.Workflow.Family(), now); err != nil {
				return err
			}
			if o.Status == session.Workflow.InProgressStatus() && orders.Rewind(o) {
				if err := tx.UpdateOrderStatus(ctx, o.ID, o.Status); err != nil {
					return err
				}
			}
		}

		session.Status = metadata.SessionCancelled
		session.CurrentSkidKey = nil
		session.CancelledAt = &now
		return tx.UpdateSession(ctx, session)
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, "cancel", userID, map[string]interface{}{"order_ids": session.OrderIDs}, session)

	return session, nil
}
