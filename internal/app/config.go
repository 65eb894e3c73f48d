package app

import (
	"strings"
	"time"

	"github.com/yungbote/superconnector-backend/internal/clients/redis"
	"github.com/yungbote/superconnector-backend/internal/clients/twilio"
	"github.com/yungbote/superconnector-backend/internal/clients/vapi"
	"github.com/yungbote/superconnector-backend/internal/data/db"
	types "github.com/yungbote/superconnector-backend/internal/domain"
	"github.com/yungbote/superconnector-backend/internal/observability"
	"github.com/yungbote/superconnector-backend/internal/platform/envutil"
	"github.com/yungbote/superconnector-backend/internal/platform/logger"
	"github.com/yungbote/superconnector-backend/internal/platform/neo4jdb"
	"github.com/yungbote/superconnector-backend/internal/platform/openai"
	"github.com/yungbote/superconnector-backend/internal/platform/pinecone"
	"github.com/yungbote/superconnector-backend/internal/platform/sendgrid"
	"github.com/yungbote/superconnector-backend/internal/services"
)

type Config struct {
	LogMode string
	Port    string

	DB       db.Config
	OpenAI   openai.Config
	Pinecone pinecone.Config
	Twilio   twilio.Config
	SendGrid sendgrid.Config
	Redis    redis.Config
	Neo4j    neo4jdb.Config
	Vapi     vapi.Config
	Otel     observability.OtelConfig

	VectorProvider string

	WhatsAppVerifyToken     string
	TwilioValidateSignature bool
	PublicBaseURL           string

	AdminJWTSecret string
	CORSOrigins    []string

	DefaultChannel       types.Channel
	ExternalCallTimeout  time.Duration
	DeferredPollInterval time.Duration
	ReindexOnStart       bool
	MetricsAddr          string
	ShutdownTimeout      time.Duration
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		LogMode:  envutil.String("LOG_MODE", "development"),
		Port:     envutil.String("PORT", "8080"),
		DB:       db.ConfigFromEnv(),
		OpenAI:   openai.ConfigFromEnv(),
		Pinecone: pinecone.ConfigFromEnv(),
		Twilio:   twilio.ConfigFromEnv(),
		SendGrid: sendgrid.ConfigFromEnv(),
		Redis:    redis.ConfigFromEnv(),
		Neo4j:    neo4jdb.ConfigFromEnv(),
		Vapi:     vapi.ConfigFromEnv(),
		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "superconnector"),
			Environment: envutil.String("OTEL_ENVIRONMENT", envutil.String("APP_ENV", "")),
			Version:     envutil.String("OTEL_SERVICE_VERSION", envutil.String("APP_VERSION", "")),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
			Headers:     observability.ParseOTLPHeaders(envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "")),
			SampleRatio: envutil.Float("OTEL_SAMPLER_RATIO", 0.1),
		},

		VectorProvider: normalizeVectorProvider(envutil.String("VECTOR_PROVIDER", string(VectorProviderMemory))),

		WhatsAppVerifyToken:     envutil.String("WHATSAPP_VERIFY_TOKEN", ""),
		TwilioValidateSignature: envutil.Bool("TWILIO_VALIDATE_SIGNATURE", false),
		PublicBaseURL:           envutil.String("PUBLIC_BASE_URL", ""),

		AdminJWTSecret: envutil.String("ADMIN_JWT_SECRET", ""),
		CORSOrigins:    splitList(envutil.String("CORS_ORIGINS", "")),

		DefaultChannel:       types.Channel(strings.ToLower(envutil.String("DEFAULT_CHANNEL", string(types.ChannelWhatsApp)))),
		ExternalCallTimeout:  envutil.Seconds("EXTERNAL_CALL_TIMEOUT_SECONDS", services.DefaultCallTimeout),
		DeferredPollInterval: envutil.Seconds("DEFERRED_POLL_INTERVAL_SECONDS", time.Minute),
		ReindexOnStart:       envutil.Bool("REINDEX_ON_START", false),
		MetricsAddr:          envutil.String("METRICS_ADDR", ":9090"),
		ShutdownTimeout:      envutil.Seconds("SHUTDOWN_TIMEOUT_SECONDS", 10*time.Second),
	}

	switch cfg.DefaultChannel {
	case types.ChannelWhatsApp, types.ChannelSMS, types.ChannelEmail:
	default:
		log.Warn("Unsupported DEFAULT_CHANNEL; using whatsapp", "value", cfg.DefaultChannel)
		cfg.DefaultChannel = types.ChannelWhatsApp
	}
	if cfg.TwilioValidateSignature && cfg.PublicBaseURL == "" {
		log.Warn("TWILIO_VALIDATE_SIGNATURE set without PUBLIC_BASE_URL; signature checks disabled")
		cfg.TwilioValidateSignature = false
	}
	if cfg.AdminJWTSecret == "" {
		log.Warn("ADMIN_JWT_SECRET not set; admin API will reject all requests")
	}
	if cfg.WhatsAppVerifyToken == "" {
		log.Warn("WHATSAPP_VERIFY_TOKEN not set; webhook verification disabled")
	}
	return cfg
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
