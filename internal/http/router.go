package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/superconnector-backend/internal/http/handlers"
	httpMW "github.com/yungbote/superconnector-backend/internal/http/middleware"
	"github.com/yungbote/superconnector-backend/internal/observability"
	"github.com/yungbote/superconnector-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string
	Metrics     *observability.Metrics

	AdminAuth *httpMW.AdminAuth
	// TwilioSignature guards the WhatsApp POST webhook when set.
	TwilioSignature gin.HandlerFunc

	HealthHandler   *httpH.HealthHandler
	WhatsAppHandler *httpH.WhatsAppHandler
	VapiHandler     *httpH.VapiHandler
	AdminHandler    *httpH.AdminHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.TraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
	}

	webhooks := r.Group("/webhook")
	{
		if cfg.WhatsAppHandler != nil {
			webhooks.GET("/whatsapp", cfg.WhatsAppHandler.Verify)
			if cfg.TwilioSignature != nil {
				webhooks.POST("/whatsapp", cfg.TwilioSignature, cfg.WhatsAppHandler.Inbound)
			} else {
				webhooks.POST("/whatsapp", cfg.WhatsAppHandler.Inbound)
			}
		}
		if cfg.VapiHandler != nil {
			webhooks.POST("/vapi", cfg.VapiHandler.Webhook)
		}
	}

	if cfg.AdminHandler == nil || cfg.AdminAuth == nil {
		return r
	}
	admin := r.Group("/admin")
	admin.Use(cfg.AdminAuth.RequireAdmin())
	{
		h := cfg.AdminHandler

		// Identities
		admin.GET("/identities", h.ListIdentities)
		admin.GET("/identities/:id/conversation", h.Conversation)
		admin.GET("/identities/:id/summary", h.Summary)
		admin.DELETE("/identities/:id", h.Erase)
		admin.GET("/last-interaction", h.LastInteraction)

		// Profiles
		admin.GET("/profiles", h.ListProfiles)
		admin.PUT("/profiles/:id", h.UpsertProfile)
		admin.GET("/profiles/:id/matches", h.Matches)
		admin.POST("/profiles/:id/pitch", h.Pitch)
		admin.POST("/profiles/:id/call", h.StartCall)
		admin.POST("/search", h.Search)
		admin.POST("/reindex", h.Reindex)

		// Intros
		admin.GET("/intros", h.ListIntros)
		admin.GET("/intros/stats", h.IntroStats)
		admin.POST("/intros", h.CreateIntro)
		admin.POST("/intros/:id/consent", h.RequestConsent)
		admin.POST("/intros/:id/send", h.SendIntro)
	}

	return r
}
