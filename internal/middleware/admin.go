package middleware

import (
	"net/http"

	"github.com/votranphi/heartistry-user-api/internal/models"
	"github.com/votranphi/heartistry-user-api/internal/util"

	"github.com/gin-gonic/gin"
)

// Admin rejects non-admin accounts. It must run after Auth.
func Admin() gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get(CurrentUserKey)
		if !ok {
			util.Abort(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		user, ok := v.(*models.User)
		if !ok || user == nil || user.Role != models.RoleAdmin {
			util.Abort(c, http.StatusForbidden, "Access denied: Admins only")
			return
		}
		c.Next()
	}
}

// CurrentUser returns the account set by Auth, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(CurrentUserKey)
	if !ok {
		return nil
	}
	user, ok := v.(*models.User)
	if !ok {
		return nil
	}
	return user
}
