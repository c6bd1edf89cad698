package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/edukoala/internal/middleware"
	"github.com/noah-isme/edukoala/internal/service"
	"github.com/noah-isme/edukoala/internal/web"
	appErrors "github.com/noah-isme/edukoala/pkg/errors"
	"github.com/noah-isme/edukoala/pkg/logger"
	corsmiddleware "github.com/noah-isme/edukoala/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/edukoala/pkg/middleware/requestid"
	"github.com/noah-isme/edukoala/pkg/response"
)

// RouterDeps collects everything the HTTP surface needs.
type RouterDeps struct {
	Auth        *service.AuthService
	Catalog     *service.CatalogService
	Enrollments *service.EnrollmentService
	Metrics     *service.MetricsService

	Cookie         SessionCookie
	APIPrefix      string
	AllowedOrigins []string
	EnableMetrics  bool
	EnableDocs     bool
	Checks         map[string]Pinger
	Logger         *zap.Logger
}

// NewRouter builds the gin engine serving the HTML pages, the JSON API and
// the operational endpoints.
func NewRouter(deps RouterDeps) (*gin.Engine, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.APIPrefix == "" {
		deps.APIPrefix = "/api/v1"
	}

	tmpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(middleware.Metrics(deps.Metrics))

	ops := NewMetricsHandler(deps.Metrics, deps.Checks, deps.Logger)
	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	if deps.EnableMetrics {
		r.GET("/metrics", ops.Prometheus)
	}
	if deps.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	session := middleware.LoadSession(deps.Auth, deps.Cookie.Name)

	pages := NewPageHandler(deps.Auth, deps.Catalog, deps.Enrollments, deps.Cookie, deps.Logger)
	site := r.Group("/", session)
	site.GET("/", pages.Landing)
	site.GET("/login", pages.LoginForm)
	site.POST("/login", pages.Login)
	site.GET("/signup", pages.SignupForm)
	site.POST("/signup", pages.Signup)
	site.GET("/logout", pages.Logout)

	member := site.Group("/", middleware.RequireSession())
	member.GET("/dashboard", pages.Dashboard)
	member.GET("/course/:id", pages.CourseDetail)
	member.GET("/enroll/:id", pages.Enroll)
	member.GET("/drop/:id", pages.Drop)
	member.GET("/my_courses", pages.MyCourses)
	member.GET("/my_courses/export", pages.ExportMyCourses)

	auth := NewAuthHandler(deps.Auth, deps.Cookie)
	catalog := NewCatalogHandler(deps.Catalog)
	enrollments := NewEnrollmentHandler(deps.Enrollments)

	api := r.Group(deps.APIPrefix, corsmiddleware.New(deps.AllowedOrigins), session)
	api.OPTIONS("/*path", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	api.POST("/auth/signup", auth.Signup)
	api.POST("/auth/login", auth.Login)
	api.POST("/auth/logout", auth.Logout)

	secured := api.Group("/", middleware.RequireSessionAPI())
	secured.GET("/auth/me", auth.Me)
	secured.GET("/courses", catalog.List)
	secured.GET("/courses/:id", catalog.Get)
	secured.GET("/enrollments", enrollments.List)
	secured.POST("/enrollments/:courseId", enrollments.Enroll)
	secured.DELETE("/enrollments/:courseId", enrollments.Drop)

	r.NoRoute(func(c *gin.Context) {
		notFound := appErrors.Clone(appErrors.ErrNotFound, "page not found")
		if strings.HasPrefix(c.Request.URL.Path, deps.APIPrefix) {
			response.Error(c, notFound)
			return
		}
		pages.renderError(c, notFound)
	})

	return r, nil
}
