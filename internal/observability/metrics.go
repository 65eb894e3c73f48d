package observability

import (
	"context"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/superconnector-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests         *CounterVec
	apiLatency          *HistogramVec
	apiInflight         *Gauge
	apiReqTotal         *Counter
	apiReqError         *Counter
	apiReqGood          *Counter
	dispatches          *CounterVec
	completionFallbacks *CounterVec
	introTransitions    *CounterVec
	deferredProcessed   *Counter
	vectorOps           *HistogramVec
	dbStats             *GaugeVec
	redisUp             *Gauge
	redisPing           *Gauge
	sloLatencyThreshold float64
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	v := strings.TrimSpace(os.Getenv("METRICS_ENABLED"))
	if v == "" {
		return false
	}
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

// Current returns the process-wide metrics, or nil when disabled.
func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	v := strings.TrimSpace(os.Getenv("METRICS_SCRAPE_INTERVAL_SECONDS"))
	if v == "" {
		return 10 * time.Second
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 10 * time.Second
	}
	return time.Duration(n) * time.Second
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics()
		if log != nil {
			log.Info("metrics initialized")
		}
	})
	return instance
}

func newMetrics() *Metrics {
	latencyThreshold := 0.5
	if v := strings.TrimSpace(os.Getenv("SLO_API_LATENCY_THRESHOLD_SECONDS")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			latencyThreshold = f
		}
	}
	return &Metrics{
		apiRequests: NewCounterVec("sc_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"sc_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		),
		apiInflight:         NewGauge("sc_api_inflight_requests", "In-flight API requests."),
		apiReqTotal:         NewCounter("sc_api_requests_total_all", "Total API requests (all)."),
		apiReqError:         NewCounter("sc_api_requests_error_total", "Total API requests with 5xx status."),
		apiReqGood:          NewCounter("sc_api_requests_good_latency_total", "Total API requests under SLO latency threshold."),
		dispatches:          NewCounterVec("sc_dispatch_total", "Outbound messages by channel/status.", []string{"channel", "status"}),
		completionFallbacks: NewCounterVec("sc_completion_fallback_total", "Completions replaced by a deterministic fallback.", []string{"purpose"}),
		introTransitions:    NewCounterVec("sc_intro_transitions_total", "Intro status transitions by target status.", []string{"status"}),
		deferredProcessed:   NewCounter("sc_deferred_consent_processed_total", "Deferred consent requests sent after quiet hours."),
		vectorOps: NewHistogramVec(
			"sc_vector_op_duration_seconds",
			"Vector index operation latency by provider/op/status.",
			[]string{"provider", "op", "status"},
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		),
		dbStats:             NewGaugeVec("sc_db_pool", "Database pool stats.", []string{"stat"}),
		redisUp:             NewGauge("sc_redis_up", "Redis reachability (1 up, 0 down)."),
		redisPing:           NewGauge("sc_redis_ping_seconds", "Redis ping latency in seconds."),
		sloLatencyThreshold: latencyThreshold,
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	all := []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight, m.apiReqTotal, m.apiReqError, m.apiReqGood,
		m.dispatches, m.completionFallbacks, m.introTransitions, m.deferredProcessed, m.vectorOps,
		m.dbStats, m.redisUp, m.redisPing,
	}
	for _, pw := range all {
		if err := pw.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
	m.apiReqTotal.Inc()
	if isServerErrorStatus(status) {
		m.apiReqError.Inc()
	}
	if m.sloLatencyThreshold > 0 && dur.Seconds() <= m.sloLatencyThreshold {
		m.apiReqGood.Inc()
	}
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) IncDispatch(channel, status string) {
	if m == nil {
		return
	}
	m.dispatches.Inc(orUnknown(channel), orUnknown(status))
}

func (m *Metrics) IncCompletionFallback(purpose string) {
	if m == nil {
		return
	}
	m.completionFallbacks.Inc(orUnknown(purpose))
}

func (m *Metrics) IncIntroTransition(status string) {
	if m == nil {
		return
	}
	m.introTransitions.Inc(orUnknown(status))
}

func (m *Metrics) AddDeferredProcessed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.deferredProcessed.Add(float64(n))
}

func (m *Metrics) ObserveVectorOp(provider, op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.vectorOps.Observe(dur.Seconds(), orUnknown(provider), orUnknown(op), orUnknown(status))
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
				m.dbStats.Set(float64(stats.InUse), "in_use")
				m.dbStats.Set(float64(stats.Idle), "idle")
				m.dbStats.Set(float64(stats.WaitCount), "wait_count")
				m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
			}
		}
	}()
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	interval := scrapeInterval()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = rdb.Close()
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}

func orUnknown(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}
