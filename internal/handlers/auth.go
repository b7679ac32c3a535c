// internal/handlers/auth.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/storefront/internal/i18n"
	"github.com/javajoker/storefront/internal/services"
	"github.com/javajoker/storefront/internal/utils"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

func authPayload(lang, key string, resp *services.AuthResponse) gin.H {
	return gin.H{
		"message":       i18n.T(lang, key),
		"user":          resp.User,
		"token":         resp.AccessToken,
		"refresh_token": resp.RefreshToken,
		"token_type":    resp.TokenType,
		"expires_in":    resp.ExpiresIn,
	}
}

// POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	authResponse, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, authPayload(utils.GetLangFromContext(c), i18n.KeyAuthRegisterSuccess, authResponse))
}

// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	authResponse, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, authPayload(utils.GetLangFromContext(c), i18n.KeyAuthLoginSuccess, authResponse))
}

// POST /auth/logout
//
// Tokens are stateless; the client drops them.
func (h *AuthHandler) Logout(c *gin.Context) {
	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyAuthLogoutSuccess),
	})
}

// POST /auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req services.RefreshTokenRequest
	if !bindJSON(c, &req) {
		return
	}

	authResponse, err := h.authService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, authPayload(utils.GetLangFromContext(c), i18n.KeyAuthLoginSuccess, authResponse))
}

// GET /auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	user, err := h.authService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"user": user})
}
