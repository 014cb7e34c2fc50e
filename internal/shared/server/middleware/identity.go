package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"profile-backend/internal/shared/auth"
	"profile-backend/internal/shared/server/respond"
)

const (
	userIDKey  = "userId"
	isGuestKey = "isGuest"
)

// Identity resolves the caller from the X-User-Id header (set by the fronting
// gateway) or the X-Guest-Id header, and stores it in context.
func Identity() gin.HandlerFunc {
	return IdentityWithTokens(nil)
}

// IdentityWithTokens is Identity plus bearer tokens. When tokens is non-nil a
// valid "Authorization: Bearer" token wins over the headers and an invalid
// one is rejected.
func IdentityWithTokens(tokens *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		switch path := c.Request.URL.Path; {
		case path == "/metrics", strings.HasSuffix(path, "/health"):
			c.Next()
			return
		}

		if tokens != nil {
			if raw, ok := bearerToken(c.GetHeader("Authorization")); ok {
				claims, err := tokens.Verify(raw)
				if err != nil {
					respond.Error(c, http.StatusUnauthorized, "unauthorized", "Invalid token", nil)
					return
				}
				c.Set(userIDKey, claims.Subject)
				c.Set(isGuestKey, claims.Guest)
				c.Next()
				return
			}
		}

		if userID := strings.TrimSpace(c.GetHeader("X-User-Id")); userID != "" {
			c.Set(userIDKey, userID)
			c.Set(isGuestKey, false)
			c.Next()
			return
		}

		guestID := strings.TrimSpace(c.GetHeader("X-Guest-Id"))
		if guestID == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
			return
		}

		c.Set(userIDKey, "guest:"+guestID)
		c.Set(isGuestKey, true)
		c.Next()
	}
}

// UserIDFromContext fetches the user ID set by the identity middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// IsGuest reports whether the caller identified with a guest id.
func IsGuest(c *gin.Context) bool {
	if c == nil {
		return false
	}
	return c.GetBool(isGuestKey)
}

func bearerToken(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
