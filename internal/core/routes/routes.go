package routes

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/core/container"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/middleware"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/security"
)

// requestTimeout leaves room for a full OEM submission.
const requestTimeout = 90 * time.Second

func NewRouter(container *container.Container) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(container.Logger))
	router.Use(middleware.RequestLogger(container.Logger))

	RegisterUtilityRoutes(router, container)
	RegisterPublicRoutes(router, container)
	RegisterProtectedRoutes(router, container)
	return router
}

func RegisterPublicRoutes(router *gin.Engine, container *container.Container) {
	container.LoginHandler.RegisterRoutes(router)
}

func RegisterProtectedRoutes(router *gin.Engine, container *container.Container) {
	protectedRoutes := router.Group("")
	protectedRoutes.Use(security.JWTMiddleware())
	protectedRoutes.Use(middleware.TimeoutMiddleware(requestTimeout))

	container.UserHandler.RegisterRoutes(protectedRoutes)
	container.OrderHandler.RegisterRoutes(protectedRoutes)
	container.SessionHandler.RegisterRoutes(protectedRoutes)
}

func RegisterUtilityRoutes(router *gin.Engine, container *container.Container) {
	router.GET("/health", middleware.HealthCheckMiddleware(container.Repository, container.Logger))
}
