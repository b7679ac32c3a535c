// internal/middleware/i18n.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// I18nMiddleware picks the response language from Accept-Language. Only
// the bundled locales are recognised; everything else falls back to en.
func I18nMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("lang", resolveLanguage(c.GetHeader("Accept-Language")))
		c.Next()
	}
}

func resolveLanguage(header string) string {
	// Handle cases like "zh-TW,zh;q=0.9,en;q=0.8"
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.Split(part, ";")[0])
		switch strings.ToLower(tag) {
		case "zh-tw", "zh-hant", "zh_tw", "zh-hk":
			return "zh_TW"
		case "en", "en-us", "en-gb":
			return "en"
		}
	}
	return "en"
}
