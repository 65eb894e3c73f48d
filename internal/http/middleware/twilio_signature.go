package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/superconnector-backend/internal/platform/logger"
)

// SignatureValidator is satisfied by the Twilio client.
type SignatureValidator interface {
	ValidateSignature(fullURL string, form url.Values, signature string) bool
}

// TwilioSignature verifies X-Twilio-Signature on form webhooks. publicBaseURL
// is the externally visible scheme and host Twilio signed against.
func TwilioSignature(log *logger.Logger, v SignatureValidator, publicBaseURL string) gin.HandlerFunc {
	base := strings.TrimRight(strings.TrimSpace(publicBaseURL), "/")
	mlog := log.With("Middleware", "TwilioSignature")
	return func(c *gin.Context) {
		if v == nil || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		if err := c.Request.ParseForm(); err != nil {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}
		fullURL := base + c.Request.URL.RequestURI()
		if !v.ValidateSignature(fullURL, c.Request.PostForm, c.GetHeader("X-Twilio-Signature")) {
			mlog.Warn("Rejected webhook with bad signature", "path", c.Request.URL.Path)
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}
