package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/edukoala/internal/repository"
	"github.com/noah-isme/edukoala/internal/service"
	"github.com/noah-isme/edukoala/internal/testutil"
)

const cookieName = "edukoala_session"

type responseEnvelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta map[string]interface{} `json:"meta"`
}

func newTestRouter(t *testing.T, checks map[string]Pinger) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewSeededDB(t)
	metrics := service.NewMetricsService()
	users := repository.NewUserRepository(db)
	sessions := repository.NewSessionRepository(db)
	courses := repository.NewCourseRepository(db)
	enrollments := repository.NewEnrollmentRepository(db)

	auth := service.NewAuthService(users, sessions, validator.New(), zap.NewNop(), metrics, service.AuthConfig{
		SessionSecret: "test-secret",
		SessionTTL:    time.Hour,
		BcryptCost:    bcrypt.MinCost,
	})
	catalog := service.NewCatalogService(courses, nil, zap.NewNop())
	enrollSvc := service.NewEnrollmentService(enrollments, courses, zap.NewNop(), metrics)

	if checks == nil {
		checks = map[string]Pinger{"database": PingFunc(db.PingContext)}
	}
	r, err := NewRouter(RouterDeps{
		Auth:          auth,
		Catalog:       catalog,
		Enrollments:   enrollSvc,
		Metrics:       metrics,
		Cookie:        SessionCookie{Name: cookieName, TTL: time.Hour},
		EnableMetrics: true,
		Checks:        checks,
	})
	require.NoError(t, err)
	return r
}

func perform(r http.Handler, method, target string, body io.Reader, contentType string, cookie *http.Cookie, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func get(r http.Handler, target string, cookie *http.Cookie) *httptest.ResponseRecorder {
	return perform(r, http.MethodGet, target, nil, "", cookie, "")
}

func postForm(r http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	return perform(r, http.MethodPost, target, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", nil, "")
}

func postJSON(r http.Handler, target, body, bearer string) *httptest.ResponseRecorder {
	return perform(r, http.MethodPost, target, strings.NewReader(body), "application/json", nil, bearer)
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == cookieName && c.Value != "" {
			return c
		}
	}
	t.Fatalf("response did not set %s", cookieName)
	return nil
}

func courseCards(w *httptest.ResponseRecorder) int {
	return strings.Count(w.Body.String(), `class="course-card"`)
}

func signupAndLogin(t *testing.T, r http.Handler, username, password string) *http.Cookie {
	t.Helper()
	w := postForm(r, "/signup", url.Values{"username": {username}, "password": {password}})
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	require.Equal(t, "/login", w.Header().Get("Location"))

	w = postForm(r, "/login", url.Values{"username": {username}, "password": {password}})
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	require.Equal(t, "/dashboard", w.Header().Get("Location"))
	return sessionCookie(t, w)
}

func TestPageFlowSignupEnrollDropLogout(t *testing.T) {
	r := newTestRouter(t, nil)
	cookie := signupAndLogin(t, r, "alice", "secret1")

	w := get(r, "/dashboard", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 4, courseCards(w))
	assert.Contains(t, w.Body.String(), "Welcome, alice")

	w = get(r, "/dashboard?q=Python", cookie)
	assert.Equal(t, 1, courseCards(w))
	assert.Contains(t, w.Body.String(), "Python for Beginners")

	w = get(r, "/dashboard?q=zzz", cookie)
	assert.Equal(t, 0, courseCards(w))

	w = get(r, "/enroll/1", cookie)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/my_courses?new_enroll=true", w.Header().Get("Location"))

	w = get(r, "/enroll/1", cookie)
	require.Equal(t, http.StatusFound, w.Code)

	w = get(r, "/my_courses?new_enroll=true", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, courseCards(w))
	assert.Contains(t, w.Body.String(), "successfully enrolled")

	w = get(r, "/course/1", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/drop/1")

	w = get(r, "/drop/1", cookie)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/my_courses", w.Header().Get("Location"))

	w = get(r, "/my_courses", cookie)
	assert.Equal(t, 0, courseCards(w))
	assert.NotContains(t, w.Body.String(), "successfully enrolled")

	w = get(r, "/logout", cookie)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	w = get(r, "/dashboard", cookie)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestGatedPagesRedirectAnonymous(t *testing.T) {
	r := newTestRouter(t, nil)
	for _, path := range []string{"/dashboard", "/course/1", "/enroll/1", "/drop/1", "/my_courses", "/my_courses/export"} {
		w := get(r, path, nil)
		assert.Equal(t, http.StatusFound, w.Code, path)
		assert.Equal(t, "/login", w.Header().Get("Location"), path)
	}

	w := get(r, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = get(r, "/logout", nil)
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestUnknownCourseIsNotFound(t *testing.T) {
	r := newTestRouter(t, nil)
	cookie := signupAndLogin(t, r, "bob", "hunter22")

	for _, path := range []string{"/course/99", "/course/abc", "/enroll/99"} {
		w := get(r, path, cookie)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.Contains(t, w.Body.String(), "course not found", path)
	}

	w := get(r, "/my_courses", cookie)
	assert.Equal(t, 0, courseCards(w))
}

func TestSignupFormShowsFirstError(t *testing.T) {
	r := newTestRouter(t, nil)

	w := postForm(r, "/signup", url.Values{"username": {"al ice"}, "password": {"1"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Username cannot contain spaces.")

	w = postForm(r, "/signup", url.Values{"username": {"alice"}, "password": {"123456"}})
	assert.Contains(t, w.Body.String(), "Password must contain at least one letter.")

	signupAndLogin(t, r, "alice", "secret1")
	w = postForm(r, "/signup", url.Values{"username": {"alice"}, "password": {"secret2"}})
	assert.Contains(t, w.Body.String(), "Username already exists.")
}

func TestLoginFormShowsError(t *testing.T) {
	r := newTestRouter(t, nil)
	signupAndLogin(t, r, "alice", "secret1")

	w := postForm(r, "/login", url.Values{"username": {"nobody"}, "password": {"secret1"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Incorrect username.")
	assert.Empty(t, w.Result().Cookies())

	w = postForm(r, "/login", url.Values{"username": {"alice"}, "password": {"wrong12"}})
	assert.Contains(t, w.Body.String(), "Incorrect password.")
}

func TestExportMyCourses(t *testing.T) {
	r := newTestRouter(t, nil)
	cookie := signupAndLogin(t, r, "alice", "secret1")
	get(r, "/enroll/3", cookie)

	w := get(r, "/my_courses/export?format=csv", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "my_courses_1.csv")
	assert.Contains(t, w.Body.String(), "Data Science 101,Jose Portilla,Advanced,20 Hours,$99")

	w = get(r, "/my_courses/export?format=doc", cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPIFlow(t *testing.T) {
	r := newTestRouter(t, nil)

	w := postJSON(r, "/api/v1/auth/signup", `{"username":"carol","password":"secret1"}`, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = postJSON(r, "/api/v1/auth/signup", `{"username":"carol","password":"secret1"}`, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = postJSON(r, "/api/v1/auth/login", `{"username":"carol","password":"secret1"}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	require.NotEmpty(t, login.Token)

	w = perform(r, http.MethodGet, "/api/v1/courses?q=web", nil, "", nil, login.Token)
	require.Equal(t, http.StatusOK, w.Code)
	env = responseEnvelope{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, float64(1), env.Meta["total"])

	w = perform(r, http.MethodGet, "/api/v1/courses/99", nil, "", nil, login.Token)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = postJSON(r, "/api/v1/enrollments/2", "", login.Token)
	assert.Equal(t, http.StatusCreated, w.Code)
	w = postJSON(r, "/api/v1/enrollments/2", "", login.Token)
	assert.Equal(t, http.StatusOK, w.Code)
	w = postJSON(r, "/api/v1/enrollments/42", "", login.Token)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = perform(r, http.MethodGet, "/api/v1/enrollments", nil, "", nil, login.Token)
	env = responseEnvelope{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, float64(1), env.Meta["total"])

	w = perform(r, http.MethodDelete, "/api/v1/enrollments/2", nil, "", nil, login.Token)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = perform(r, http.MethodGet, "/api/v1/auth/me", nil, "", nil, login.Token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"carol"`)

	w = postJSON(r, "/api/v1/auth/logout", "", login.Token)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = perform(r, http.MethodGet, "/api/v1/auth/me", nil, "", nil, login.Token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPIRequiresSession(t *testing.T) {
	r := newTestRouter(t, nil)
	for _, path := range []string{"/api/v1/courses", "/api/v1/enrollments", "/api/v1/auth/me"} {
		w := get(r, path, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
	w := get(r, "/api/v1/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsAndProbes(t *testing.T) {
	r := newTestRouter(t, nil)
	cookie := signupAndLogin(t, r, "alice", "secret1")
	get(r, "/enroll/2", cookie)

	w := get(r, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `enrollment_events_total{action="enroll",result="created"} 1`)
	assert.Contains(t, w.Body.String(), `auth_events_total{event="login",outcome="success"} 1`)

	assert.Equal(t, http.StatusOK, get(r, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, get(r, "/ready", nil).Code)
}

func TestReadyReportsFailingDependency(t *testing.T) {
	r := newTestRouter(t, map[string]Pinger{
		"cache": PingFunc(func(ctx context.Context) error { return errors.New("connection refused") }),
	})

	w := get(r, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"cache":"unavailable"`)
}
