package auditlog

import (
	"context"

	"go.uber.org/zap"

	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/models"
)

type Persister interface {
	PersistLog(ctx context.Context, auditLog models.AuditLog, data interface{}) error
}

type Auditlog struct {
	r      Persister
	logger *zap.Logger
}

type Auditable interface {
	CreateLogView() models.AuditLog
}

// Log records action on item. A failed write is logged and never fails the
// operation being audited.
func (a *Auditlog) Log(ctx context.Context, action string, userID int, data interface{}, item Auditable) {
	auditLog := item.CreateLogView()
	auditLog.Action = action
	if userID != 0 {
		auditLog.UserID = &userID
	}

	err := a.r.PersistLog(ctx, auditLog, data)
	if err != nil {
		a.logger.Error("Unable to create AuditLog entry",
			zap.String("resource_type", auditLog.ResourceType),
			zap.String("resource_key", auditLog.ResourceKey),
			zap.String("action", action),
			zap.Error(err))
		return
	}

	a.logger.Debug("Created AuditLog entry",
		zap.String("resource_type", auditLog.ResourceType),
		zap.String("resource_key", auditLog.ResourceKey),
		zap.String("action", action))
}

func NewAuditLog(r Persister, logger *zap.Logger) *Auditlog {
	return &Auditlog{r: r, logger: logger}
}
