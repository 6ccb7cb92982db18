package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resumind/internal/shared/auth"
	"resumind/internal/shared/server/respond"
)

const (
	userIDKey       = "userId"
	userEmailKey    = "userEmail"
	userNameKey     = "userName"
	userUsernameKey = "userUsername"
	sessionTokenKey = "sessionToken"
)

// TokenVerifier checks a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (auth.Claims, error)
}

// Auth requires a valid bearer session token and stores identity in context.
func Auth(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}
		if !authenticate(c, tokens) {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}
		c.Next()
	}
}

// OptionalAuth stores identity when a valid token is present and never rejects.
func OptionalAuth(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authenticate(c, tokens)
		c.Next()
	}
}

func authenticate(c *gin.Context, tokens TokenVerifier) bool {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
	if token == "" || tokens == nil {
		return false
	}
	claims, err := tokens.Verify(token)
	if err != nil {
		return false
	}

	c.Set(userIDKey, claims.Subject)
	c.Set(sessionTokenKey, token)
	if claims.Email != "" {
		c.Set(userEmailKey, claims.Email)
	}
	if claims.Name != "" {
		c.Set(userNameKey, claims.Name)
	}
	if claims.Username != "" {
		c.Set(userUsernameKey, claims.Username)
	}
	return true
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	return stringFromContext(c, userIDKey)
}

// UserEmailFromContext fetches the user email set by the auth middleware.
func UserEmailFromContext(c *gin.Context) string {
	return stringFromContext(c, userEmailKey)
}

// UserNameFromContext fetches the display name set by the auth middleware.
func UserNameFromContext(c *gin.Context) string {
	return stringFromContext(c, userNameKey)
}

// UsernameFromContext fetches the account handle set by the auth middleware.
func UsernameFromContext(c *gin.Context) string {
	return stringFromContext(c, userUsernameKey)
}

func stringFromContext(c *gin.Context, key string) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(key)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}
