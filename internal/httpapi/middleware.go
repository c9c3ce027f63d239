package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dkrasner/grimoire/internal/auth"
	"github.com/dkrasner/grimoire/internal/storage/postgres"
)

// Context keys set by requireAuth for downstream handlers.
const (
	ctxUserID = "userID"
	ctxRole   = "role"
)

// requireAuth verifies the bearer token and stores the caller's user ID
// and role on the request context.
func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.FromHeader(c.GetHeader("Authorization"))
		if err != nil {
			writeError(c, http.StatusUnauthorized, "missing or malformed bearer token", err)
			c.Abort()
			return
		}

		userID, role, err := h.auth.Verify(token)
		if err != nil {
			writeError(c, http.StatusUnauthorized, "invalid token", err)
			c.Abort()
			return
		}

		c.Set(ctxUserID, userID)
		c.Set(ctxRole, role)
		c.Next()
	}
}

// requireRole gates a route on a minimum privilege level. Admins pass
// every gate; editors pass editor gates.
func (h *Handler) requireRole(minimum string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ctxRole)
		if !roleAtLeast(role, minimum) {
			writeError(c, http.StatusForbidden, "insufficient role", errForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

var errForbidden = errors.New("operation requires a higher role")

var roleRank = map[string]int{
	postgres.RolePlayer: 0,
	postgres.RoleEditor: 1,
	postgres.RoleAdmin:  2,
}

func roleAtLeast(role, minimum string) bool {
	rank, ok := roleRank[role]
	if !ok {
		return false
	}
	return rank >= roleRank[minimum]
}

// callerID returns the authenticated user's ID from the request context.
func callerID(c *gin.Context) int64 {
	return c.GetInt64(ctxUserID)
}

// callerIsEditor reports whether the caller holds editor or admin role.
func callerIsEditor(c *gin.Context) bool {
	return roleAtLeast(c.GetString(ctxRole), postgres.RoleEditor)
}
