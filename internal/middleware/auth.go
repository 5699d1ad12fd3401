package middleware

import (
	"net/http"
	"strings"

	"github.com/votranphi/heartistry-user-api/internal/store"
	"github.com/votranphi/heartistry-user-api/internal/token"
	"github.com/votranphi/heartistry-user-api/internal/util"

	"github.com/gin-gonic/gin"
)

// CurrentUserKey is the context key holding the authenticated *models.User.
const CurrentUserKey = "currentUser"

// Auth verifies the bearer token and loads the account it names into the
// request context. Missing, malformed, expired and tampered tokens are
// rejected alike.
func Auth(issuer *token.Issuer, users *store.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenStr string

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				tokenStr = parts[1]
			}
		}

		if tokenStr == "" {
			util.Abort(c, http.StatusUnauthorized, "Unauthorized")
			return
		}

		claims, err := issuer.Parse(tokenStr)
		if err != nil {
			util.Abort(c, http.StatusUnauthorized, "Unauthorized")
			return
		}

		// token claims are minimal; the handlers need the full account
		user, err := users.FindByUsername(claims.Username)
		if err != nil {
			util.Abort(c, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		if user == nil {
			util.Abort(c, http.StatusUnauthorized, "Unauthorized")
			return
		}

		c.Set(CurrentUserKey, user)
		c.Next()
	}
}
