package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/lumenlms/lms-backend/internal/http/handlers"
	httpMW "github.com/lumenlms/lms-backend/internal/http/middleware"
	"github.com/lumenlms/lms-backend/internal/observability"
	"github.com/lumenlms/lms-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string
	Metrics     *observability.Metrics

	AuthMiddleware *httpMW.AuthMiddleware

	EnrollmentHandler *httpH.EnrollmentHandler
	ProgressHandler   *httpH.ProgressHandler
	HealthHandler     *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Enrollment
		if cfg.EnrollmentHandler != nil {
			protected.GET("/enrollments", cfg.EnrollmentHandler.ListMyEnrollments)
			protected.POST("/courses/:course_id/enroll", cfg.EnrollmentHandler.Enroll)
			protected.POST("/courses/:course_id/unenroll", cfg.EnrollmentHandler.Unenroll)
			protected.GET("/courses/:course_id/enrollment-status", cfg.EnrollmentHandler.EnrollmentStatus)
			protected.POST("/courses/:course_id/access", cfg.EnrollmentHandler.RecordAccess)
		}

		// Progress
		if cfg.ProgressHandler != nil {
			protected.GET("/courses/:course_id/progress", cfg.ProgressHandler.GetCourseProgress)
			protected.POST("/courses/:course_id/lessons/:lesson_id/complete", cfg.ProgressHandler.CompleteLesson)
			protected.DELETE("/courses/:course_id/lessons/:lesson_id/complete", cfg.ProgressHandler.UncompleteLesson)
		}
	}

	return r
}
