// internal/utils/response.go
package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront/internal/i18n"
	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/validation"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

func SuccessResponseWithMeta(c *gin.Context, data interface{}, meta interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

// MessageResponse sends data with a translated confirmation message in meta.
func MessageResponse(c *gin.Context, key string, data interface{}) {
	SuccessResponseWithMeta(c, data, gin.H{
		"message": i18n.T(GetLangFromContext(c), key),
	})
}

func CreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{
		Success: true,
		Data:    data,
	})
}

func ErrorResponse(c *gin.Context, statusCode int, code, message string, details interface{}) {
	c.JSON(statusCode, APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func BadRequestResponse(c *gin.Context, message string, details interface{}) {
	lang := GetLangFromContext(c)
	if message == "" {
		message = i18n.T(lang, i18n.KeyValidationInvalid, "request")
	}
	ErrorResponse(c, http.StatusBadRequest, "BAD_REQUEST", message, details)
}

func UnauthorizedResponse(c *gin.Context, message string) {
	lang := GetLangFromContext(c)
	if message == "" {
		message = i18n.T(lang, i18n.KeyAuthRequired)
	}
	ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", message, nil)
}

func ForbiddenResponse(c *gin.Context, message string) {
	lang := GetLangFromContext(c)
	if message == "" {
		message = i18n.T(lang, i18n.KeyAuthAdminRequired)
	}
	ErrorResponse(c, http.StatusForbidden, "FORBIDDEN", message, nil)
}

func NotFoundResponse(c *gin.Context, resource string) {
	lang := GetLangFromContext(c)
	message := i18n.T(lang, resource+".not_found")
	ErrorResponse(c, http.StatusNotFound, "NOT_FOUND", message, nil)
}

func ConflictResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusConflict, "CONFLICT", message, nil)
}

func InternalErrorResponse(c *gin.Context, message string) {
	if message == "" {
		message = i18n.T(GetLangFromContext(c), i18n.KeyErrorInternal)
	}
	ErrorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", message, nil)
}

func ValidationErrorResponse(c *gin.Context, errors []validation.ValidationError) {
	lang := GetLangFromContext(c)
	message := i18n.T(lang, i18n.KeyValidationInvalid, "input")
	ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", message, errors)
}

var domainStatus = map[models.ErrorKind]int{
	models.KindNotFound:          http.StatusNotFound,
	models.KindInvalidTransition: http.StatusConflict,
	models.KindNotCancellable:    http.StatusConflict,
	models.KindConflict:          http.StatusConflict,
	models.KindAlreadyPresent:    http.StatusConflict,
	models.KindLimitReached:      http.StatusUnprocessableEntity,
	models.KindMissingReason:     http.StatusBadRequest,
	models.KindValidation:        http.StatusBadRequest,
	models.KindPaymentDeclined:   http.StatusPaymentRequired,
	models.KindUnauthorized:      http.StatusUnauthorized,
}

// DomainErrorResponse writes err in the caller's language. Business-rule
// failures map to a status per kind; collaborator failures become a generic
// retry message with the cause logged; anything else is a 500.
func DomainErrorResponse(c *gin.Context, err error) {
	lang := GetLangFromContext(c)

	if de, ok := models.AsDomainError(err); ok {
		status, known := domainStatus[de.Kind]
		if !known {
			status = http.StatusBadRequest
		}
		message := de.Message
		if de.Key != "" && i18n.Has(de.Key) {
			message = i18n.T(lang, de.Key, de.Args...)
		}
		ErrorResponse(c, status, string(de.Kind), message, nil)
		return
	}

	fields := logrus.Fields{
		"method": c.Request.Method,
		"path":   c.FullPath(),
	}
	if userID, ok := GetUserIDFromContext(c); ok {
		fields["user_id"] = userID
	}

	if models.IsCollaboratorError(err) {
		logrus.WithError(err).WithFields(fields).Error("Collaborator failure")
		ErrorResponse(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE",
			i18n.T(lang, i18n.KeyErrorServiceUnavailable), nil)
		return
	}

	logrus.WithError(err).WithFields(fields).Error("Unhandled error")
	InternalErrorResponse(c, "")
}

func PaginatedResponse(c *gin.Context, result PaginationResult) {
	SetPaginationHeaders(c, result)
	SuccessResponseWithMeta(c, result.Data, gin.H{
		"pagination": gin.H{
			"page":        result.Page,
			"limit":       result.Limit,
			"total":       result.Total,
			"total_pages": result.TotalPages,
		},
	})
}

func GetLangFromContext(c *gin.Context) string {
	if lang, exists := c.Get("lang"); exists {
		if langStr, ok := lang.(string); ok {
			return langStr
		}
	}
	return "en"
}

func GetUserIDFromContext(c *gin.Context) (string, bool) {
	if userID, exists := c.Get("user_id"); exists {
		if userIDStr, ok := userID.(string); ok && userIDStr != "" {
			return userIDStr, true
		}
	}
	return "", false
}

func GetRoleFromContext(c *gin.Context) (models.UserRole, bool) {
	if role, exists := c.Get("role"); exists {
		if roleStr, ok := role.(string); ok {
			return models.UserRole(roleStr), true
		}
	}
	return "", false
}

// GetIdentityFromContext assembles the signed-in user set by AuthRequired.
func GetIdentityFromContext(c *gin.Context) (models.Identity, bool) {
	userID, ok := GetUserIDFromContext(c)
	if !ok {
		return models.Identity{}, false
	}
	role, _ := GetRoleFromContext(c)
	return models.Identity{
		ID:          userID,
		Email:       c.GetString("email"),
		DisplayName: c.GetString("display_name"),
		Role:        role,
	}, true
}
