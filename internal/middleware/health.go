package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status      string    `json:"status"`
	Database    string    `json:"database"`
	LastChecked time.Time `json:"last_checked"`
	Uptime      string    `json:"uptime"`
	Version     string    `json:"version"`
}

type Pinger interface {
	Ping(ctx context.Context) error
}

var (
	healthMutex   sync.Mutex
	lastStatus    HealthStatus
	lastCode      int
	startTime     = time.Now()
	version       = "dev"
	cacheDuration = 5 * time.Second
	pingTimeout   = 2 * time.Second
)

// HealthCheckMiddleware reports liveness and database reachability. Results
// are cached for a few seconds so probes do not hammer the pool.
func HealthCheckMiddleware(db Pinger, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		healthMutex.Lock()
		defer healthMutex.Unlock()

		if time.Since(lastStatus.LastChecked) < cacheDuration && lastCode != 0 {
			c.JSON(lastCode, lastStatus)
			return
		}

		status := HealthStatus{
			Status:      "ok",
			Database:    "ok",
			LastChecked: time.Now(),
			Uptime:      time.Since(startTime).Round(time.Second).String(),
			Version:     version,
		}
		code := http.StatusOK

		ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			logger.Warn("health check: database unreachable", zap.Error(err))
			status.Status = "degraded"
			status.Database = "unreachable"
			code = http.StatusServiceUnavailable
		}

		lastStatus, lastCode = status, code
		c.JSON(code, status)
	}
}

// SetVersion sets the version reported by the health endpoint.
func SetVersion(v string) {
	healthMutex.Lock()
	defer healthMutex.Unlock()

	version = v
	lastCode = 0
}
