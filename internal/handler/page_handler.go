package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/edukoala/internal/middleware"
	"github.com/noah-isme/edukoala/internal/models"
	"github.com/noah-isme/edukoala/internal/service"
	appErrors "github.com/noah-isme/edukoala/pkg/errors"
	"github.com/noah-isme/edukoala/pkg/logger"
	"github.com/noah-isme/edukoala/pkg/response"
)

// PageHandler serves the server-rendered HTML pages.
type PageHandler struct {
	auth        *service.AuthService
	catalog     *service.CatalogService
	enrollments *service.EnrollmentService
	cookie      SessionCookie
	logger      *zap.Logger
}

// NewPageHandler constructs the HTML handler.
func NewPageHandler(auth *service.AuthService, catalog *service.CatalogService, enrollments *service.EnrollmentService, cookie SessionCookie, log *zap.Logger) *PageHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &PageHandler{auth: auth, catalog: catalog, enrollments: enrollments, cookie: cookie, logger: log}
}

func (h *PageHandler) render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if claims := claimsFromContext(c); claims != nil {
		data["User"] = claims
	}
	c.Header("Cache-Control", "no-store")
	c.HTML(status, name, data)
}

func (h *PageHandler) renderError(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	message := appErr.Message
	if !appErrors.IsUserFacing(appErr) {
		logger.FromContext(h.logger, c).Error("request failed", zap.Error(err))
		message = "Something went wrong. Please try again later."
	}
	h.render(c, appErr.Status, "error.html", gin.H{
		"Title":   http.StatusText(appErr.Status),
		"Status":  appErr.Status,
		"Message": message,
	})
}

// Landing renders the public home page.
func (h *PageHandler) Landing(c *gin.Context) {
	h.render(c, http.StatusOK, "landing.html", gin.H{"Title": "Welcome"})
}

// LoginForm renders the login form.
func (h *PageHandler) LoginForm(c *gin.Context) {
	h.render(c, http.StatusOK, "login.html", gin.H{"Title": "Log in", "Username": ""})
}

// Login authenticates the form credentials and starts a session.
func (h *PageHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	_ = c.ShouldBind(&req)
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		if !appErrors.IsUserFacing(err) {
			h.renderError(c, err)
			return
		}
		h.render(c, http.StatusOK, "login.html", gin.H{
			"Title":    "Log in",
			"Error":    appErrors.FromError(err).Message,
			"Username": req.Username,
		})
		return
	}

	h.cookie.set(c, res.Token)
	c.Redirect(http.StatusFound, "/dashboard")
}

// SignupForm renders the registration form.
func (h *PageHandler) SignupForm(c *gin.Context) {
	h.render(c, http.StatusOK, "signup.html", gin.H{"Title": "Sign up", "Username": ""})
}

// Signup registers an account and sends the user to the login form.
func (h *PageHandler) Signup(c *gin.Context) {
	var req models.SignupRequest
	_ = c.ShouldBind(&req)

	if _, err := h.auth.Signup(c.Request.Context(), req); err != nil {
		if !appErrors.IsUserFacing(err) {
			h.renderError(c, err)
			return
		}
		h.render(c, http.StatusOK, "signup.html", gin.H{
			"Title":    "Sign up",
			"Error":    appErrors.FromError(err).Message,
			"Username": req.Username,
		})
		return
	}

	c.Redirect(http.StatusFound, middleware.LoginPath)
}

// Logout ends the current session, if any.
func (h *PageHandler) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), middleware.TokenFromRequest(c, h.cookie.Name)); err != nil {
		logger.FromContext(h.logger, c).Warn("logout failed", zap.Error(err))
	}
	h.cookie.clear(c)
	c.Redirect(http.StatusFound, "/")
}

// Dashboard lists the catalog, optionally filtered by the q parameter.
func (h *PageHandler) Dashboard(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	courses, err := h.catalog.List(c.Request.Context(), query)
	if err != nil {
		h.renderError(c, err)
		return
	}
	h.render(c, http.StatusOK, "dashboard.html", gin.H{
		"Title":   "Catalog",
		"Courses": courses,
		"Query":   query,
	})
}

// CourseDetail shows one course.
func (h *PageHandler) CourseDetail(c *gin.Context) {
	id, err := courseIDParam(c, "id")
	if err != nil {
		h.renderError(c, err)
		return
	}
	course, err := h.catalog.Get(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, err)
		return
	}

	enrolled := false
	if mine, err := h.enrollments.MyCourses(c.Request.Context(), claimsFromContext(c).UserID); err == nil {
		for _, m := range mine {
			if m.ID == course.ID {
				enrolled = true
				break
			}
		}
	}

	h.render(c, http.StatusOK, "course_details.html", gin.H{
		"Title":    course.Title,
		"Course":   course,
		"Enrolled": enrolled,
	})
}

// Enroll adds the course to the user's list.
func (h *PageHandler) Enroll(c *gin.Context) {
	id, err := courseIDParam(c, "id")
	if err != nil {
		h.renderError(c, err)
		return
	}
	if _, err := h.enrollments.Enroll(c.Request.Context(), claimsFromContext(c).UserID, id); err != nil {
		h.renderError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/my_courses?new_enroll=true")
}

// Drop removes the course from the user's list.
func (h *PageHandler) Drop(c *gin.Context) {
	id, err := courseIDParam(c, "id")
	if err != nil {
		h.renderError(c, err)
		return
	}
	if _, err := h.enrollments.Drop(c.Request.Context(), claimsFromContext(c).UserID, id); err != nil {
		h.renderError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/my_courses")
}

// MyCourses lists the user's enrollments.
func (h *PageHandler) MyCourses(c *gin.Context) {
	courses, err := h.enrollments.MyCourses(c.Request.Context(), claimsFromContext(c).UserID)
	if err != nil {
		h.renderError(c, err)
		return
	}
	h.render(c, http.StatusOK, "my_courses.html", gin.H{
		"Title":       "My courses",
		"Courses":     courses,
		"ShowSuccess": c.Query("new_enroll") != "",
	})
}

// ExportMyCourses downloads the user's enrollments as CSV or PDF.
func (h *PageHandler) ExportMyCourses(c *gin.Context) {
	claims := claimsFromContext(c)
	file, err := h.enrollments.Export(c.Request.Context(), claims.UserID, claims.Username, c.Query("format"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
