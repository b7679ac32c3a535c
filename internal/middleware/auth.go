// internal/middleware/auth.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/storefront/internal/i18n"
	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/utils"
)

// bearerToken reads "Authorization: Bearer <token>". Browsers cannot set
// headers on a websocket handshake, so upgrades may pass ?token= instead.
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if c.IsWebsocket() {
			if token := c.Query("token"); token != "" {
				return token, true
			}
		}
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func setClaims(c *gin.Context, claims *utils.JWTClaims) {
	c.Set("user_id", claims.UserID)
	c.Set("email", claims.Email)
	c.Set("display_name", claims.DisplayName)
	c.Set("role", claims.Role)
}

func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := utils.GetLangFromContext(c)

		if c.GetHeader("Authorization") == "" && c.Query("token") == "" {
			utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthRequired))
			c.Abort()
			return
		}

		token, ok := bearerToken(c)
		if !ok {
			utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthInvalidToken))
			c.Abort()
			return
		}

		claims, err := utils.ValidateJWT(token)
		if err != nil {
			key := i18n.KeyAuthInvalidToken
			if utils.IsTokenExpired(err) {
				key = i18n.KeyAuthTokenExpired
			}
			utils.UnauthorizedResponse(c, i18n.T(lang, key))
			c.Abort()
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := utils.GetRoleFromContext(c)
		if !ok || role != models.UserRoleAdmin {
			utils.ForbiddenResponse(c, "")
			c.Abort()
			return
		}
		c.Next()
	}
}

// OptionalAuth attaches the caller when a valid token is present and lets
// anonymous requests through otherwise.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}

		if claims, err := utils.ValidateJWT(token); err == nil {
			setClaims(c, claims)
		}
		c.Next()
	}
}
