package app

import (
	"gorm.io/gorm"

	"github.com/lumenlms/lms-backend/internal/data/aggregates"
	domainagg "github.com/lumenlms/lms-backend/internal/domain/aggregates"
	"github.com/lumenlms/lms-backend/internal/observability"
	"github.com/lumenlms/lms-backend/internal/platform/locks"
	"github.com/lumenlms/lms-backend/internal/platform/logger"
	"github.com/lumenlms/lms-backend/internal/services"
)

type Aggregates struct {
	Enrollments domainagg.EnrollmentStore
	Progress    domainagg.ProgressAggregator
}

type Services struct {
	Auth       services.AuthService
	Enrollment services.EnrollmentService
	Progress   services.ProgressService
}

func wireAggregates(db *gorm.DB, log *logger.Logger, reposet Repos, locker locks.Locker, metrics *observability.Metrics) Aggregates {
	log.Info("Wiring aggregates...")
	base := aggregates.BaseDeps{
		DB:     db,
		Log:    log,
		Hooks:  aggregates.NewObservabilityHooks(metrics),
		Locker: locker,
	}
	return Aggregates{
		Enrollments: aggregates.NewEnrollmentStore(aggregates.EnrollmentStoreDeps{
			Base:           base,
			Enrollments:    reposet.Enrollment,
			LessonProgress: reposet.LessonProgress,
			ModuleProgress: reposet.ModuleProgress,
		}),
		Progress: aggregates.NewProgressAggregator(aggregates.ProgressAggregatorDeps{
			Base:           base,
			Catalog:        reposet.Catalog,
			Enrollments:    reposet.Enrollment,
			LessonProgress: reposet.LessonProgress,
			ModuleProgress: reposet.ModuleProgress,
		}),
	}
}

func wireServices(log *logger.Logger, cfg Config, reposet Repos, aggs Aggregates) Services {
	log.Info("Wiring services...")
	return Services{
		Auth:       services.NewAuthService(log, cfg.JWTSecretKey, cfg.JWTIssuer),
		Enrollment: services.NewEnrollmentService(log, aggs.Enrollments, reposet.Catalog),
		Progress:   services.NewProgressService(log, aggs.Progress, reposet.Enrollment),
	}
}
