// internal/middleware/logging.go
package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront/internal/models"
)

const (
	redacted        = "[REDACTED]"
	maxAuditBody    = 64 << 10
	auditSaveWindow = 5 * time.Second
)

var sensitiveFields = []string{"password", "token", "secret", "card"}

// AuditRecorder persists one audit entry.
type AuditRecorder interface {
	RecordAudit(ctx context.Context, entry *models.AuditLog) error
}

// AuditLogMiddleware records every mutating request with the caller, the
// target resource and the (redacted) JSON body. Entries are saved off the
// request goroutine; failures are logged.
func AuditLogMiddleware(recorder AuditRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !mutating(c.Request.Method) || c.IsWebsocket() {
			c.Next()
			return
		}

		var requestBody []byte
		if c.Request.Body != nil && strings.HasPrefix(c.ContentType(), "application/json") {
			requestBody, _ = io.ReadAll(io.LimitReader(c.Request.Body, maxAuditBody))
			c.Request.Body = io.NopCloser(bytes.NewReader(requestBody))
		}

		c.Next()

		var requestData map[string]interface{}
		if len(requestBody) > 0 {
			if err := json.Unmarshal(requestBody, &requestData); err == nil {
				redact(requestData)
			}
		}

		userID, _ := c.Get("user_id")
		uid, _ := userID.(string)

		entry := &models.AuditLog{
			UserID:       uid,
			Action:       c.Request.Method + " " + c.FullPath(),
			ResourceType: extractResourceType(c.Request.URL.Path),
			ResourceID:   extractResourceID(c),
			NewValues:    models.JSONB(requestData),
			Status:       c.Writer.Status(),
			IPAddress:    c.ClientIP(),
			UserAgent:    c.Request.UserAgent(),
		}
		if c.FullPath() == "" {
			entry.Action = c.Request.Method + " " + c.Request.URL.Path
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), auditSaveWindow)
			defer cancel()
			if err := recorder.RecordAudit(ctx, entry); err != nil {
				logrus.WithError(err).WithField("action", entry.Action).Error("Failed to create audit log")
			}
		}()
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func redact(data map[string]interface{}) {
	for key := range data {
		lower := strings.ToLower(key)
		for _, s := range sensitiveFields {
			if strings.Contains(lower, s) {
				data[key] = redacted
				break
			}
		}
		redactValue(data[key])
	}
}

func redactValue(value interface{}) {
	switch v := value.(type) {
	case map[string]interface{}:
		redact(v)
	case []interface{}:
		for _, elem := range v {
			redactValue(elem)
		}
	}
}

func extractResourceType(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) >= 3 && parts[0] == "v1" && parts[1] == "admin" {
		return parts[2]
	}
	if len(parts) >= 2 && parts[0] == "v1" {
		return parts[1]
	}
	if len(parts) >= 1 && parts[0] != "" {
		return parts[0]
	}
	return "unknown"
}

// extractResourceID prefers a named route param and falls back to the
// first uuid in the path.
func extractResourceID(c *gin.Context) string {
	for _, name := range []string{"id", "productId"} {
		if v := c.Param(name); v != "" {
			return v
		}
	}
	for _, part := range strings.Split(strings.Trim(c.Request.URL.Path, "/"), "/") {
		if _, err := uuid.Parse(part); err == nil {
			return part
		}
	}
	return ""
}

// RequestLogger writes one structured line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"duration":   time.Since(start).Milliseconds(),
			"ip":         c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
		}
		if userID, ok := c.Get("user_id"); ok {
			fields["user_id"] = userID
		}

		entry := logrus.WithFields(fields)
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("Request processed")
		case status >= http.StatusBadRequest:
			entry.Warn("Request processed")
		default:
			entry.Info("Request processed")
		}
	}
}
