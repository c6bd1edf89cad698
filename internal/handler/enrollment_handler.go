package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edukoala/internal/service"
	"github.com/noah-isme/edukoala/pkg/response"
)

// EnrollmentHandler manages enrollment endpoints for the current user.
type EnrollmentHandler struct {
	service *service.EnrollmentService
}

// NewEnrollmentHandler constructs the handler.
func NewEnrollmentHandler(svc *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc}
}

// List godoc
// @Summary List my courses
// @Tags Enrollments
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	courses, err := h.service.MyCourses(c.Request.Context(), claimsFromContext(c).UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, map[string]interface{}{"total": len(courses)})
}

// Enroll godoc
// @Summary Enroll in a course
// @Description Returns 201 when the enrollment was created and 200 when it already existed.
// @Tags Enrollments
// @Security BearerAuth
// @Produce json
// @Param courseId path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollments/{courseId} [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	courseID, err := courseIDParam(c, "courseId")
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.Enroll(c.Request.Context(), claimsFromContext(c).UserID, courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Changed {
		response.Created(c, result)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Drop godoc
// @Summary Drop a course
// @Tags Enrollments
// @Security BearerAuth
// @Param courseId path int true "Course ID"
// @Success 204
// @Router /enrollments/{courseId} [delete]
func (h *EnrollmentHandler) Drop(c *gin.Context) {
	courseID, err := courseIDParam(c, "courseId")
	if err != nil {
		response.Error(c, err)
		return
	}
	if _, err := h.service.Drop(c.Request.Context(), claimsFromContext(c).UserID, courseID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
