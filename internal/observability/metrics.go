package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/lumenlms/lms-backend/internal/platform/logger"
)

// Metrics is the process-wide metric set. A nil *Metrics is valid and
// records nothing, so callers never need to check whether metrics are on.
type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	aggregateOps       *CounterVec
	aggregateLatency   *HistogramVec
	aggregateConflicts *CounterVec
	aggregateRetries   *CounterVec

	progressRecomputes *CounterVec
	lessonToggles      *CounterVec
	enrollmentChanges  *CounterVec

	redisUp   *Gauge
	redisPing *Gauge
}

func New() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("lms_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"lms_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		),
		apiInflight: NewGauge("lms_api_inflight_requests", "In-flight API requests."),

		aggregateOps: NewCounterVec("lms_aggregate_operations_total", "Aggregate write operations by name/status.", []string{"operation", "status"}),
		aggregateLatency: NewHistogramVec(
			"lms_aggregate_operation_duration_seconds",
			"Aggregate write latency in seconds by name/status.",
			[]string{"operation", "status"},
			nil,
		),
		aggregateConflicts: NewCounterVec("lms_aggregate_conflicts_total", "Aggregate operations that ended in a conflict.", []string{"operation"}),
		aggregateRetries:   NewCounterVec("lms_aggregate_retryable_total", "Aggregate operations that ended in a retryable failure.", []string{"operation"}),

		progressRecomputes: NewCounterVec("lms_progress_recomputes_total", "Progress recomputations by scope/outcome.", []string{"scope", "outcome"}),
		lessonToggles:      NewCounterVec("lms_lesson_completion_toggles_total", "Lesson completion transitions.", []string{"direction"}),
		enrollmentChanges:  NewCounterVec("lms_enrollment_changes_total", "Enrollment lifecycle transitions.", []string{"change"}),

		redisUp:   NewGauge("lms_redis_up", "Redis reachability (1 up, 0 down)."),
		redisPing: NewGauge("lms_redis_ping_seconds", "Redis ping latency in seconds."),
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, _ *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	type writer interface{ WritePrometheus(io.Writer) error }
	for _, c := range []writer{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.aggregateOps, m.aggregateLatency, m.aggregateConflicts, m.aggregateRetries,
		m.progressRecomputes, m.lessonToggles, m.enrollmentChanges,
		m.redisUp, m.redisPing,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) APIInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Add(1)
}

func (m *Metrics) APIInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Add(-1)
}

func (m *Metrics) ObserveAggregateOperation(name, status string, dur time.Duration) {
	if m == nil {
		return
	}
	status = normalizeStatus(status)
	m.aggregateOps.Inc(name, status)
	m.aggregateLatency.Observe(dur.Seconds(), name, status)
}

func (m *Metrics) IncAggregateConflict(name string) {
	if m == nil {
		return
	}
	m.aggregateConflicts.Inc(name)
}

func (m *Metrics) IncAggregateRetry(name string) {
	if m == nil {
		return
	}
	m.aggregateRetries.Inc(name)
}

// IncProgressRecompute counts module/enrollment recomputations; outcome is
// "updated", "skipped_empty" when the scope has no published lessons, or
// "skipped_untouched" for a module the batch repair found no activity in.
func (m *Metrics) IncProgressRecompute(scope, outcome string) {
	if m == nil {
		return
	}
	m.progressRecomputes.Inc(scope, outcome)
}

func (m *Metrics) IncLessonToggle(direction string) {
	if m == nil {
		return
	}
	m.lessonToggles.Inc(direction)
}

func (m *Metrics) IncEnrollmentChange(change string) {
	if m == nil {
		return
	}
	m.enrollmentChanges.Inc(change)
}

// StartRedisCollector pings rdb every interval until ctx is done.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb *goredis.Client, interval time.Duration) {
	if m == nil || rdb == nil {
		return
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if ctx.Err() == nil {
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

func normalizeStatus(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return s
}
