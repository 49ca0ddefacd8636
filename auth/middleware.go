package auth

import (
	"chat-relay/errors"
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type contextKey string

const (
	UserIDKey contextKey = "user_id"
	RolesKey  contextKey = "roles"
)

// RequireUser validates the bearer token and injects the user identity
// into the request context. Websocket upgrades cannot set headers from a
// browser, so a "token" query parameter is accepted as well.
func RequireUser(issuer *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if tokenStr == "" {
			tokenStr = c.Query("token")
		}
		if tokenStr == "" {
			abort(c, errors.ErrUnauthenticated)
			return
		}

		claims, err := issuer.Validate(tokenStr)
		if err != nil {
			abort(c, err)
			return
		}

		ctx := WithUser(c.Request.Context(), claims.UserID, claims.Roles)
		c.Request = c.Request.WithContext(ctx)
		c.Set(string(UserIDKey), claims.UserID)
		c.Next()
	}
}

// WithUser returns a context carrying the user identity.
func WithUser(ctx context.Context, userID string, roles []string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, RolesKey, roles)
}

// UserID returns the authenticated user of ctx.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserIDKey).(string)
	return id, ok && id != ""
}

func abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"message": err.Error(),
			"type":    errors.ErrorType(http.StatusUnauthorized),
		},
	})
}
