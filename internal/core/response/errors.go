package response

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/barcode"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/confirmation"
	custom_error "github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/errors"
)

type ErrorDetail struct {
	Path string `json:"path"`
	Info string `json:"info"`
}

// Error writes err with the status that matches its type. Operator facing
// outcomes are logged at info, unexpected faults at error.
func Error(c *gin.Context, logger *zap.Logger, err error) {
	var (
		decodeErr      *barcode.DecodeError
		validationErr  *custom_error.ValidationError
		notFoundErr    *custom_error.NotFoundError
		concurrencyErr *custom_error.ConcurrencyError
		rejectedErr    *confirmation.RejectedError
		transientErr   *confirmation.TransientError
	)

	switch {
	case errors.As(err, &decodeErr):
		logger.Debug("barcode rejected", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   decodeErr.Error(),
			"code":    "decode_error",
			"details": gin.H{"kind": decodeErr.Kind, "field": decodeErr.Field},
		})
	case errors.As(err, &validationErr):
		logger.Info("request rejected", zap.String("code", string(validationErr.Code)), zap.String("reason", validationErr.Message))
		status := http.StatusConflict
		if validationErr.Code == custom_error.CodeIncomplete || validationErr.Code == custom_error.CodeDriverRequired {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{
			"error":   validationErr.Message,
			"code":    validationErr.Code,
			"details": validationErr.Details,
		})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundErr.Error(), "code": "not_found"})
	case errors.As(err, &rejectedErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   rejectedErr.Error(),
			"code":    "submission_rejected",
			"details": gin.H{"oem_error_code": rejectedErr.Code, "message": rejectedErr.Message},
		})
	case errors.As(err, &transientErr):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "OEM confirmation service is unavailable, retry the completion",
			"code":  "submission_unavailable",
		})
	case errors.As(err, &concurrencyErr):
		logger.Warn("concurrent modification", zap.Error(err))
		c.JSON(http.StatusConflict, gin.H{
			"error": "Another request is modifying this resource, retry shortly",
			"code":  "concurrent_modification",
		})
	default:
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// BindingError reports a request body that failed to decode or validate.
func BindingError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		details := make([]ErrorDetail, 0, len(validationErrs))
		for _, fieldErr := range validationErrs {
			details = append(details, ErrorDetail{
				Path: toSnakeCase(fieldErr.Field()),
				Info: validationMessage(fieldErr),
			})
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": details})
		return
	}

	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
}

func validationMessage(fieldErr validator.FieldError) string {
	field := toSnakeCase(fieldErr.Field())
	switch fieldErr.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return field + " must be at most " + fieldErr.Param() + " characters"
	case "oneof":
		return field + " must be one of: " + fieldErr.Param()
	case "exception_code":
		return field + " is not a known exception code"
	default:
		return field + " is invalid"
	}
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
