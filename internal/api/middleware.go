package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"storefront/internal/util"

	"github.com/gin-gonic/gin"
)

const ctxUserID = "userID"

// bearerToken extracts the token from the Authorization header
func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// authenticate rejects requests without a valid session token and stores
// the acting user's id on the context
func (h *Handler) authenticate(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Access denied. No token provided."})
		return
	}

	userID, err := h.auth.Authenticate(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token."})
		return
	}

	c.Set(ctxUserID, userID)
	c.Next()
}

// optionalAuth stores the user id when a valid token is present but never
// rejects. Used on public listings that show more to admins.
func (h *Handler) optionalAuth(c *gin.Context) {
	if token, ok := bearerToken(c); ok {
		if userID, err := h.auth.Authenticate(token); err == nil {
			c.Set(ctxUserID, userID)
		}
	}
	c.Next()
}

// requireAdmin gates a route on the admin role, read from the store
func (h *Handler) requireAdmin(c *gin.Context) {
	userID := c.GetInt64(ctxUserID)
	isAdmin, err := h.auth.IsAdmin(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		c.Abort()
		return
	}
	if !isAdmin {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required."})
		return
	}
	c.Next()
}

// isAdminRequest reports whether the (optionally authenticated) requester
// is an admin
func (h *Handler) isAdminRequest(c *gin.Context) bool {
	userID, exists := c.Get(ctxUserID)
	if !exists {
		return false
	}
	isAdmin, err := h.auth.IsAdmin(c.Request.Context(), userID.(int64))
	return err == nil && isAdmin
}

// corsMiddleware allows the storefront SPA to call the API cross-origin
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
