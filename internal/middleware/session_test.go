package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/edukoala/internal/models"
	appErrors "github.com/noah-isme/edukoala/pkg/errors"
)

type stubValidator struct {
	valid map[string]*models.SessionClaims
	seen  []string
}

func (s *stubValidator) ValidateSession(ctx context.Context, token string) (*models.SessionClaims, error) {
	s.seen = append(s.seen, token)
	if claims, ok := s.valid[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid session")
}

func newSessionRouter(v *stubValidator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(LoadSession(v, "sid"))
	r.GET("/page", RequireSession(), func(c *gin.Context) {
		c.String(http.StatusOK, Claims(c).Username)
	})
	r.GET("/api", RequireSessionAPI(), func(c *gin.Context) {
		c.String(http.StatusOK, Claims(c).Username)
	})
	return r
}

func TestRequireSessionRedirectsAnonymous(t *testing.T) {
	r := newSessionRouter(&stubValidator{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/page", nil))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, LoginPath, w.Header().Get("Location"))
}

func TestRequireSessionAPIRejectsInvalidToken(t *testing.T) {
	v := &stubValidator{}
	r := newSessionRouter(v)

	req := httptest.NewRequest(http.MethodGet, "/api", nil)
	req.Header.Set("Authorization", "Bearer nope")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, []string{"nope"}, v.seen)
}

func TestLoadSessionFromCookie(t *testing.T) {
	v := &stubValidator{valid: map[string]*models.SessionClaims{"good": {UserID: 1, Username: "alice"}}}
	r := newSessionRouter(v)

	req := httptest.NewRequest(http.MethodGet, "/page", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "good"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", w.Body.String())
}

func TestTokenFromRequestPrefersBearer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set("Authorization", "bearer header-token")
	c.Request.AddCookie(&http.Cookie{Name: "sid", Value: "cookie-token"})

	assert.Equal(t, "header-token", TokenFromRequest(c, "sid"))

	c.Request.Header.Del("Authorization")
	assert.Equal(t, "cookie-token", TokenFromRequest(c, "sid"))
}
