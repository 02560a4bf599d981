package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Muhsin-Gun/event-API/internal/auth"
	"github.com/Muhsin-Gun/event-API/internal/shared/apperr"
)

const (
	CtxKeyUserID = "user_id"
	CtxKeyRole   = "user_role"
)

// RequireAuth validates the bearer access token and stores the user id and
// role claim on the context.
func RequireAuth(tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if header == "" || len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			Fail(c, apperr.UnauthorizedErr("authentication required"))
			return
		}

		userID, role, err := tokens.VerifyAccess(parts[1])
		if err != nil {
			Fail(c, apperr.UnauthorizedErr("invalid or expired token"))
			return
		}

		c.Set(CtxKeyUserID, userID)
		c.Set(CtxKeyRole, role)
		c.Next()
	}
}

// RoleSource looks up a user's role when the token predates role claims.
type RoleSource interface {
	Role(c *gin.Context, userID string) (string, error)
}

// RequireRole gates a route to the given roles. The role claim from the
// access token is preferred; roles lets a DB-backed source fill the gap for
// tokens that carry none.
func RequireRole(roles RoleSource, allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := CurrentUserID(c)
		if userID == "" {
			Fail(c, apperr.UnauthorizedErr("authentication required"))
			return
		}

		role := CurrentRole(c)
		if role == "" && roles != nil {
			r, err := roles.Role(c, userID)
			if err != nil {
				Fail(c, apperr.UnauthorizedErr("authentication required"))
				return
			}
			role = r
			c.Set(CtxKeyRole, role)
		}

		for _, a := range allowed {
			if role == a {
				c.Next()
				return
			}
		}
		Fail(c, apperr.ForbiddenErr("insufficient privileges"))
	}
}

func CurrentUserID(c *gin.Context) string {
	if v, ok := c.Get(CtxKeyUserID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func CurrentRole(c *gin.Context) string {
	if v, ok := c.Get(CtxKeyRole); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
