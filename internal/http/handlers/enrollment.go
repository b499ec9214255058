package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/lumenlms/lms-backend/internal/http/response"
	"github.com/lumenlms/lms-backend/internal/platform/logger"
	"github.com/lumenlms/lms-backend/internal/services"
)

type EnrollmentHandler struct {
	log *logger.Logger
	svc services.EnrollmentService
}

func NewEnrollmentHandler(log *logger.Logger, svc services.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{
		log: log.With("handler", "EnrollmentHandler"),
		svc: svc,
	}
}

// GET /api/enrollments?status=ongoing|completed
func (h *EnrollmentHandler) ListMyEnrollments(c *gin.Context) {
	rows, err := h.svc.ListMyEnrollments(c.Request.Context(), c.Query("status"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"enrollments": newEnrollmentViews(rows)})
}

// POST /api/courses/:course_id/enroll
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	courseID, err := bindCourseID(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	res, err := h.svc.Enroll(c.Request.Context(), courseID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	msg := "Already enrolled in this course"
	switch {
	case res.Created:
		msg = "Successfully enrolled in course"
	case res.Reactivated:
		msg = "Successfully re-enrolled in course"
	}
	response.RespondOK(c, gin.H{
		"message":    msg,
		"enrollment": newEnrollmentView(res.Enrollment),
	})
}

// POST /api/courses/:course_id/unenroll
func (h *EnrollmentHandler) Unenroll(c *gin.Context) {
	courseID, err := bindCourseID(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if err := h.svc.Unenroll(c.Request.Context(), courseID); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"message": "Successfully unenrolled from course"})
}

// GET /api/courses/:course_id/enrollment-status
func (h *EnrollmentHandler) EnrollmentStatus(c *gin.Context) {
	courseID, err := bindCourseID(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	view, err := h.svc.EnrollmentStatus(c.Request.Context(), courseID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"is_enrolled": view.IsEnrolled,
		"enrollment":  newEnrollmentView(view.Enrollment),
	})
}

// POST /api/courses/:course_id/access
func (h *EnrollmentHandler) RecordAccess(c *gin.Context) {
	courseID, err := bindCourseID(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	e, err := h.svc.RecordAccess(c.Request.Context(), courseID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"enrollment": newEnrollmentView(e)})
}
