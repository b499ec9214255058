package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/lumenlms/lms-backend/internal/http/response"
	"github.com/lumenlms/lms-backend/internal/platform/logger"
	"github.com/lumenlms/lms-backend/internal/services"
)

type ProgressHandler struct {
	log *logger.Logger
	svc services.ProgressService
}

func NewProgressHandler(log *logger.Logger, svc services.ProgressService) *ProgressHandler {
	return &ProgressHandler{
		log: log.With("handler", "ProgressHandler"),
		svc: svc,
	}
}

// GET /api/courses/:course_id/progress
func (h *ProgressHandler) GetCourseProgress(c *gin.Context) {
	courseID, err := bindCourseID(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	snap, err := h.svc.GetCourseProgress(c.Request.Context(), courseID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"progress": snap})
}

// POST /api/courses/:course_id/lessons/:lesson_id/complete
func (h *ProgressHandler) CompleteLesson(c *gin.Context) {
	courseID, lessonID, err := bindLessonIDs(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	res, err := h.svc.CompleteLesson(c.Request.Context(), courseID, lessonID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	msg := "Lesson marked as completed"
	if !res.Changed {
		msg = "Lesson already completed"
	}
	response.RespondOK(c, gin.H{"message": msg, "progress": res.Snapshot})
}

// DELETE /api/courses/:course_id/lessons/:lesson_id/complete
func (h *ProgressHandler) UncompleteLesson(c *gin.Context) {
	courseID, lessonID, err := bindLessonIDs(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	res, err := h.svc.UncompleteLesson(c.Request.Context(), courseID, lessonID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"message": "Lesson marked as incomplete", "progress": res.Snapshot})
}
