package sessions

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/core/response"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/metadata"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/models"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/security"
)

type SessionService interface {
	Start(ctx context.Context, req StartRequest) (*StartResult, error)
	Get(ctx context.Context, id uuid.UUID) (*SessionView, error)
	RecordScan(ctx context.Context, id uuid.UUID, req ScanRequest) (*ScanResult, error)
	RecordException(ctx context.Context, id uuid.UUID, req ExceptionRequest) (*ExceptionResult, error)
	RemoveException(ctx context.Context, id, exceptionID uuid.UUID) (*models.Session, error)
	UpdateTrailerInfo(ctx context.Context, id uuid.UUID, update TrailerUpdate) (*models.Session, error)
	Complete(ctx context.Context, id uuid.UUID, userID int) (*CompleteResult, error)
	Restart(ctx context.Context, id uuid.UUID, userID int) (*RestartResult, error)
	Cancel(ctx context.Context, id uuid.UUID, userID int) (*models.Session, error)
}

type HistoryReader interface {
	GetResourceLog(ctx context.Context, key string, resourceType string) ([]models.AuditLog, error)
}

type SessionHandler struct {
	Service SessionService
	History HistoryReader
	logger  *zap.Logger
}

var registerValidators sync.Once

func NewHandler(service SessionService, history HistoryReader, logger *zap.Logger) *SessionHandler {
	registerValidators.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("exception_code", func(fl validator.FieldLevel) bool {
				return metadata.ExceptionCode(fl.Field().String()).IsValid()
			})
		}
	})

	return &SessionHandler{
		Service: service,
		History: history,
		logger:  logger,
	}
}

func (h *SessionHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/sessions", security.Authorize("operator"), h.StartSession)
	router.GET("/sessions/:id", security.Authorize("operator"), h.GetSession)
	router.GET("/sessions/:id/history", security.Authorize("supervisor"), h.GetSessionHistory)
	router.POST("/sessions/:id/scans", security.Authorize("operator"), h.RecordScan)
	router.POST("/sessions/:id/exceptions", security.Authorize("operator"), h.RecordException)
	router.DELETE("/sessions/:id/exceptions/:exception_id", security.Authorize("operator"), h.RemoveException)
	router.PATCH("/sessions/:id/trailer", security.Authorize("operator"), h.UpdateTrailerInfo)
	router.POST("/sessions/:id/complete", security.Authorize("operator"), h.CompleteSession)
	router.POST("/sessions/:id/restart", security.Authorize("supervisor"), h.RestartSession)
	router.DELETE("/sessions/:id", security.Authorize("operator"), h.CancelSession)
}

type startRequest struct {
	Workflow string `json:"workflow" binding:"required,oneof=skid_build shipment_load pre_shipment"`
	OrderID  int64  `json:"order_id"`
	Barcode  string `json:"barcode" binding:"max=128"`
}

type scanRequest struct {
	Barcode        string `json:"barcode" binding:"required,max=128"`
	InternalKanban string `json:"internal_kanban" binding:"max=64"`
}

type exceptionRequest struct {
	Code           string `json:"code" binding:"required,exception_code"`
	Comments       string `json:"comments" binding:"max=250"`
	RelatedSkidKey string `json:"related_skid_key" binding:"max=128"`
	OrderID        int64  `json:"order_id"`
}

type trailerRequest struct {
	TrailerNumber *string `json:"trailer_number" binding:"omitempty,max=32"`
	SealNumber    *string `json:"seal_number" binding:"omitempty,max=32"`
	DriverName    *string `json:"driver_name" binding:"omitempty,max=100"`
	SupplierName  *string `json:"supplier_name" binding:"omitempty,max=100"`
}

// caller resolves the session id parameter and the authenticated user.
func (h *SessionHandler) caller(c *gin.Context) (uuid.UUID, int, bool) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID", "details": err.Error()})
		return uuid.Nil, 0, false
	}

	userID, err := security.CurrentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "details": err.Error()})
		return uuid.Nil, 0, false
	}

	return sessionID, userID, true
}

func (h *SessionHandler) StartSession(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindingError(c, err)
		return
	}

	userID, err := security.CurrentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "details": err.Error()})
		return
	}

	result, err := h.Service.Start(c.Request.Context(), StartRequest{
		Workflow: metadata.Workflow(req.Workflow),
		UserID:   userID,
		OrderID:  req.OrderID,
		Barcode:  req.Barcode,
	})
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	status := http.StatusCreated
	if result.Resumed {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

func (h *SessionHandler) GetSession(c *gin.Context) {
	sessionID, _, ok := h.caller(c)
	if !ok {
		return
	}

	view, err := h.Service.Get(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *SessionHandler) GetSessionHistory(c *gin.Context) {
	sessionID, _, ok := h.caller(c)
	if !ok {
		return
	}

	logs, err := h.History.GetResourceLog(c.Request.Context(), sessionID.String(), "session")
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, logs)
}

func (h *SessionHandler) RecordScan(c *gin.Context) {
	sessionID, userID, ok := h.caller(c)
	if !ok {
		return
	}

	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindingError(c, err)
		return
	}

	result, err := h.Service.RecordScan(c.Request.Context(), sessionID, ScanRequest{
		Barcode:        req.Barcode,
		InternalKanban: req.InternalKanban,
		UserID:         userID,
	})
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *SessionHandler) RecordException(c *gin.Context) {
	sessionID, userID, ok := h.caller(c)
	if !ok {
		return
	}

	var req exceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindingError(c, err)
		return
	}

	result, err := h.Service.RecordException(c.Request.Context(), sessionID, ExceptionRequest{
		Code:           metadata.ExceptionCode(req.Code),
		Comments:       req.Comments,
		RelatedSkidKey: req.RelatedSkidKey,
		OrderID:        req.OrderID,
		UserID:         userID,
	})
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *SessionHandler) RemoveException(c *gin.Context) {
	sessionID, _, ok := h.caller(c)
	if !ok {
		return
	}

	exceptionID, err := uuid.Parse(c.Param("exception_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid exception ID", "details": err.Error()})
		return
	}

	session, err := h.Service.RemoveException(c.Request.Context(), sessionID, exceptionID)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *SessionHandler) UpdateTrailerInfo(c *gin.Context) {
	sessionID, _, ok := h.caller(c)
	if !ok {
		return
	}

	var req trailerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindingError(c, err)
		return
	}

	session, err := h.Service.UpdateTrailerInfo(c.Request.Context(), sessionID, TrailerUpdate{
		TrailerNumber: req.TrailerNumber,
		SealNumber:    req.SealNumber,
		DriverName:    req.DriverName,
		SupplierName:  req.SupplierName,
	})
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *SessionHandler) CompleteSession(c *gin.Context) {
	sessionID, userID, ok := h.caller(c)
	if !ok {
		return
	}

	result, err := h.Service.Complete(c.Request.Context(), sessionID, userID)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *SessionHandler) RestartSession(c *gin.Context) {
	sessionID, userID, ok := h.caller(c)
	if !ok {
		return
	}

	result, err := h.Service.Restart(c.Request.Context(), sessionID, userID)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *SessionHandler) CancelSession(c *gin.Context) {
	sessionID, userID, ok := h.caller(c)
	if !ok {
		return
	}

	session, err := h.Service.Cancel(c.Request.Context(), sessionID, userID)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, session)
}
