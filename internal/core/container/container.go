package container

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	auditLogRepo "github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/auditlog"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/confirmation"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/core/config"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/orders"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/repository"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/sessions"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/users"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/auditlog"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/security"
)

type Container struct {
	Logger         *zap.Logger
	Repository     *repository.Repository
	Redis          redis.UniversalClient
	AuditLog       *auditlog.Auditlog
	Sessions       *sessions.Service
	LoginHandler   *security.LoginHandler
	UserHandler    *users.UsersHandler
	OrderHandler   *orders.OrderHandler
	SessionHandler *sessions.SessionHandler
}

func NewAppContainer(ctx context.Context, db *sql.DB, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	repo := repository.NewRepository(db)
	userRepo := users.NewRepository(repo)
	orderRepo := orders.NewRepository(repo)
	auditRepo := auditLogRepo.NewRepository(repo)
	auditLog := auditlog.NewAuditLog(auditRepo, logger.Named("audit"))

	locker, redisClient, err := newLocker(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	client := confirmation.NewClient(ctx, confirmation.ClientConfig{
		BaseURL:      cfg.OEM.BaseURL,
		TokenURL:     cfg.OEM.TokenURL,
		ClientID:     cfg.OEM.ClientID,
		ClientSecret: cfg.OEM.ClientSecret,
		Timeout:      cfg.OEM.Timeout,
	})
	coordinator := confirmation.NewCoordinator(client, cfg.OEM.Timeout, logger.Named("confirmation"))

	service := sessions.NewService(
		sessions.NewPostgresStore(repo),
		locker,
		coordinator,
		auditLog,
		sessions.Options{
			Policy:      cfg.Duplicate.Policy(),
			SessionTTL:  cfg.Session.TTL,
			LockTimeout: cfg.Session.LockTimeout,
		},
		logger.Named("sessions"),
	)

	return &Container{
		Logger:         logger,
		Repository:     repo,
		Redis:          redisClient,
		AuditLog:       auditLog,
		Sessions:       service,
		LoginHandler:   security.NewLoginHandler(userRepo, logger.Named("auth")),
		UserHandler:    users.NewHandler(userRepo),
		OrderHandler:   orders.NewHandler(orderRepo, logger.Named("orders")),
		SessionHandler: sessions.NewHandler(service, auditRepo, logger.Named("sessions")),
	}, nil
}

// newLocker shares locks through Redis when it is configured so several
// replicas can serve the same sessions.
func newLocker(ctx context.Context, cfg *config.Config, logger *zap.Logger) (sessions.Locker, redis.UniversalClient, error) {
	if !cfg.Redis.Enabled() {
		logger.Info("REDIS_ADDR not set, using in-process session locks")
		return sessions.NewLocalLocker(), nil, nil
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{cfg.Redis.Addr},
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("could not reach redis at %s: %w", cfg.Redis.Addr, err)
	}

	logger.Info("using redis session locks", zap.String("addr", cfg.Redis.Addr))
	// The lease outlives the longest lock wait plus an OEM round trip.
	ttl := cfg.Session.LockTimeout + 2*cfg.OEM.Timeout
	return sessions.NewRedisLocker(client, ttl), client, nil
}

func (c *Container) Close() error {
	if c.Redis != nil {
		return c.Redis.Close()
	}
	return nil
}
