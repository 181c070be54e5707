// internal/common/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apperrors "rehmat-agent/internal/common/errors"
)

var (
	SessionsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_sessions_started_total",
			Help: "Total number of voice sessions started",
		},
		[]string{"task_type"},
	)

	SessionsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_sessions_failed_total",
			Help: "Total number of voice sessions that failed",
		},
		[]string{"task_type", "error_code"},
	)

	SessionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agent_session_duration_seconds",
			Help:    "Duration of voice sessions in seconds",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"task_type"},
	)

	SessionsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "agent_sessions_active",
			Help: "Number of active voice sessions",
		},
		[]string{"task_type"},
	)

	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_tool_calls_total",
			Help: "Total number of tool calls from the realtime model",
		},
		[]string{"tool", "status"},
	)

	OrdersConfirmed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agent_orders_confirmed_total",
			Help: "Total number of orders confirmed by customers",
		},
	)

	FarewellsDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agent_farewells_detected_total",
			Help: "Total number of farewell phrases that ended a call",
		},
	)

	WebhooksReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_webhooks_received_total",
			Help: "Total number of LiveKit webhooks received",
		},
		[]string{"event", "outcome"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_notifications_sent_total",
			Help: "Total number of order notifications sent",
		},
		[]string{"channel", "status"},
	)
)

// Recorder adapts the package collectors to the narrow interfaces the
// error handler and the worker host depend on.
type Recorder struct{}

func (Recorder) RecordFailure(taskType string, code apperrors.ErrorCode) {
	SessionsFailed.WithLabelValues(taskType, string(code)).Inc()
}

func (Recorder) SessionStarted(taskType string) {
	SessionsStarted.WithLabelValues(taskType).Inc()
	SessionsActive.WithLabelValues(taskType).Inc()
}

func (Recorder) SessionEnded(taskType string, d time.Duration) {
	SessionsActive.WithLabelValues(taskType).Dec()
	SessionDuration.WithLabelValues(taskType).Observe(d.Seconds())
}
