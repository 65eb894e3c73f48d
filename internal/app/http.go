package app

import (
	"gorm.io/gorm"

	httpapi "github.com/yungbote/superconnector-backend/internal/http"
	httpH "github.com/yungbote/superconnector-backend/internal/http/handlers"
	httpMW "github.com/yungbote/superconnector-backend/internal/http/middleware"
	"github.com/yungbote/superconnector-backend/internal/observability"
	"github.com/yungbote/superconnector-backend/internal/platform/logger"
)

func wireServer(db *gorm.DB, log *logger.Logger, cfg Config, c Clients, s Services) *httpapi.Server {
	log.Info("Wiring HTTP handlers...")

	rc := httpapi.RouterConfig{
		Log:             log,
		ServiceName:     cfg.Otel.ServiceName,
		CORSOrigins:     cfg.CORSOrigins,
		Metrics:         observability.Current(),
		AdminAuth:       httpMW.NewAdminAuth(log, cfg.AdminJWTSecret),
		HealthHandler:   httpH.NewHealthHandler(db),
		WhatsAppHandler: httpH.NewWhatsAppHandler(log, s.Assistant, cfg.WhatsAppVerifyToken),
		VapiHandler:     httpH.NewVapiHandler(log, s.Calls),
		AdminHandler: httpH.NewAdminHandler(httpH.AdminHandlerDeps{
			Log:           log,
			Identities:    s.Identities,
			Profiles:      s.Profiles,
			Conversations: s.Conversations,
			Memory:        s.Memory,
			Matches:       s.Matches,
			Intros:        s.Intros,
			Calls:         s.Calls,
			Erasure:       s.Erasure,
		}),
	}
	if cfg.TwilioValidateSignature {
		if c.Twilio == nil {
			log.Warn("TWILIO_VALIDATE_SIGNATURE set but Twilio is not configured; signature checks disabled")
		} else {
			rc.TwilioSignature = httpMW.TwilioSignature(log, c.Twilio, cfg.PublicBaseURL)
		}
	}
	return httpapi.NewServer(rc)
}
