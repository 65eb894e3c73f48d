package app

import (
	"context"
	"fmt"
	"net"
	"os"

	"gorm.io/gorm"

	"github.com/yungbote/superconnector-backend/internal/data/db"
	httpapi "github.com/yungbote/superconnector-backend/internal/http"
	"github.com/yungbote/superconnector-backend/internal/observability"
	"github.com/yungbote/superconnector-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *httpapi.Server
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Services Services

	dbService    *db.Service
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	observability.Init(log)
	otelShutdown := observability.InitOTel(context.Background(), log, cfg.Otel)

	dbService, err := db.Open(log, cfg.DB)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	theDB := dbService.DB()
	if err := db.AutoMigrateAll(theDB); err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	clients, err := wireClients(log, cfg)
	if err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, cfg, reposet, clients)
	server := wireServer(theDB, log, cfg, clients, serviceset)

	return &App{
		Log:          log,
		DB:           theDB,
		Server:       server,
		Cfg:          cfg,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		dbService:    dbService,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches background work: metrics, the vector index rebuild and the
// deferred consent poller.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if metrics := observability.Current(); metrics != nil {
		metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
		metrics.StartDBCollector(ctx, a.Log, a.DB)
		if a.Clients.DeferredQueue != nil {
			metrics.StartRedisCollector(ctx, a.Log, a.Cfg.Redis.Addr)
		}
	}

	// The in-process index starts empty on every boot.
	if a.Clients.VectorProvider == string(VectorProviderMemory) || a.Cfg.ReindexOnStart {
		n, err := a.Services.Matches.Reindex(ctx)
		if err != nil {
			a.Log.Warn("Vector reindex failed", "provider", a.Clients.VectorProvider, "error", err)
		} else {
			a.Log.Info("Vector index rebuilt", "provider", a.Clients.VectorProvider, "profiles", n)
		}
	}

	if a.Clients.DeferredQueue != nil {
		go runDeferredPoller(ctx, a.Log, a.Services.Intros, a.Cfg.DeferredPollInterval, nil)
	}
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	addr := net.JoinHostPort("", a.Cfg.Port)
	a.Log.Info("Starting server", "addr", addr)
	return a.Server.Run(ctx, addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.Clients.Close()
	if a.dbService != nil {
		if err := a.dbService.Close(); err != nil {
			a.Log.Warn("Database close failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.Cfg.ShutdownTimeout)
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("OTel shutdown failed", "error", err)
		}
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
