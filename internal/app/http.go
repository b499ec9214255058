package app

import (
	"context"

	"gorm.io/gorm"

	"github.com/lumenlms/lms-backend/internal/http"
	httpH "github.com/lumenlms/lms-backend/internal/http/handlers"
	httpMW "github.com/lumenlms/lms-backend/internal/http/middleware"
	"github.com/lumenlms/lms-backend/internal/observability"
	"github.com/lumenlms/lms-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health     *httpH.HealthHandler
	Enrollment *httpH.EnrollmentHandler
	Progress   *httpH.ProgressHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, clients Clients, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:     httpH.NewHealthHandler(log, readinessChecks(db, clients)),
		Enrollment: httpH.NewEnrollmentHandler(log, services.Enrollment),
		Progress:   httpH.NewProgressHandler(log, services.Progress),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware, metrics *observability.Metrics) *http.Server {
	serviceName := ""
	if cfg.OTel.Enabled {
		serviceName = cfg.OTel.ServiceName
	}
	return http.NewServer(http.RouterConfig{
		Log:               log,
		ServiceName:       serviceName,
		CORSOrigins:       cfg.CORSAllowedOrigins,
		Metrics:           metrics,
		AuthMiddleware:    middleware.Auth,
		EnrollmentHandler: handlers.Enrollment,
		ProgressHandler:   handlers.Progress,
		HealthHandler:     handlers.Health,
	})
}

func readinessChecks(db *gorm.DB, clients Clients) map[string]httpH.HealthCheck {
	checks := map[string]httpH.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if clients.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return clients.Redis.Ping(ctx).Err()
		}
	}
	return checks
}
