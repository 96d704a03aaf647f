package api

import (
	"net/http"

	"github.com/Domenick1991/carrental/internal/domain"
	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// Identity headers are set by the authenticating gateway in front of this service.
const (
	HeaderUserID    = "X-User-ID"
	HeaderUserEmail = "X-User-Email"
	HeaderUserName  = "X-User-Name"
	HeaderUserPhone = "X-User-Phone"
	HeaderUserRole  = "X-User-Role"
)

// RequireIdentity rejects requests without a user id and stores the caller in the context.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(HeaderUserID)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		role := domain.RoleRenter
		if domain.Role(c.GetHeader(HeaderUserRole)) == domain.RoleAdmin {
			role = domain.RoleAdmin
		}
		c.Set(identityKey, domain.Identity{
			UserID: userID,
			Email:  c.GetHeader(HeaderUserEmail),
			Name:   c.GetHeader(HeaderUserName),
			Phone:  c.GetHeader(HeaderUserPhone),
			Role:   role,
		})
		c.Next()
	}
}

// RequireAdmin must run after RequireIdentity.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !identityFrom(c).IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

func identityFrom(c *gin.Context) domain.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}
	}
	id, _ := v.(domain.Identity)
	return id
}
