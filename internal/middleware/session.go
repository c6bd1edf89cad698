package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edukoala/internal/models"
	appErrors "github.com/noah-isme/edukoala/pkg/errors"
	"github.com/noah-isme/edukoala/pkg/response"
)

const (
	// ContextUserKey is the gin context key storing session claims.
	ContextUserKey = "currentUser"

	// LoginPath is where unauthenticated page requests are sent.
	LoginPath = "/login"
)

type sessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*models.SessionClaims, error)
}

// TokenFromRequest returns the bearer token, falling back to the session cookie.
func TokenFromRequest(c *gin.Context, cookieName string) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := c.Cookie(cookieName); err == nil {
		return cookie
	}
	return ""
}

// LoadSession attaches the session claims when the request carries a valid
// token. It never blocks; use RequireSession or RequireSessionAPI for gating.
func LoadSession(sessions sessionValidator, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c, cookieName)
		if token == "" {
			c.Next()
			return
		}

		claims, err := sessions.ValidateSession(c.Request.Context(), token)
		if err != nil {
			if !appErrors.IsUserFacing(err) {
				_ = c.Error(err)
			}
			c.Next()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

// RequireSession redirects page requests without a session to the login form.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if Claims(c) == nil {
			c.Redirect(http.StatusFound, LoginPath)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireSessionAPI rejects API requests without a session.
func RequireSessionAPI() gin.HandlerFunc {
	return func(c *gin.Context) {
		if Claims(c) == nil {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "login required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// Claims returns the authenticated session claims, or nil.
func Claims(c *gin.Context) *models.SessionClaims {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.SessionClaims)
	if !ok {
		return nil
	}
	return claims
}
