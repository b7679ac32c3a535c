// internal/handlers/common.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/storefront/internal/i18n"
	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/utils"
	"github.com/javajoker/storefront/internal/validation"
)

// bindJSON decodes and validates the request body into req. On failure the
// error response is already written.
func bindJSON(c *gin.Context, req interface{}) bool {
	lang := utils.GetLangFromContext(c)

	if err := c.ShouldBindJSON(req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}

	if validationErrors := validation.GetValidationErrors(validation.ValidateStruct(req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return false
	}
	return true
}

func requireUserID(c *gin.Context) (string, bool) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
	}
	return userID, ok
}

func requireIdentity(c *gin.Context) (models.Identity, bool) {
	identity, ok := utils.GetIdentityFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
	}
	return identity, ok
}
