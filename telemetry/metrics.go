// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	FramesReceived     prometheus.Counter
	FramesMalformed    prometheus.Counter
	PongsSent          prometheus.Counter
	Reconnects         prometheus.Counter
	CommandsHandled    prometheus.Counter
	CompletionFailures prometheus.Counter
	ChatSendsSucceeded prometheus.Counter
	ChatSendsFailed    prometheus.Counter
	TokenRefreshes     prometheus.Counter

	// Histograms (seconds)
	CommandDuration prometheus.Observer

	// Gauges
	ConnectedGauge prometheus.Gauge // 1=session open, 0=not
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		FramesReceived = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_frames_received_total", Help: "Number of EventSub frames received"})
		FramesMalformed = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_frames_malformed_total", Help: "Number of frames that failed to decode"})
		PongsSent = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_pongs_sent_total", Help: "Number of protocol pong replies sent"})
		Reconnects = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_reconnects_total", Help: "Number of websocket reconnect attempts"})
		CommandsHandled = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_commands_handled_total", Help: "Number of trigger-prefixed chat commands handled"})
		CompletionFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_completion_failures_total", Help: "Number of completion-service failures answered with the apology"})
		ChatSendsSucceeded = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_chat_sends_succeeded_total", Help: "Number of chat replies delivered"})
		ChatSendsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_chat_sends_failed_total", Help: "Number of chat replies that failed to deliver"})
		TokenRefreshes = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_token_refreshes_total", Help: "Number of OAuth token refreshes"})
		CommandDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "bot_command_duration_seconds", Help: "End-to-end command pipeline duration seconds", Buckets: prometheus.DefBuckets})
		ConnectedGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "bot_session_open", Help: "EventSub session open=1 closed=0"})
	})
}

// SetConnected sets the session gauge to 1 if open else 0.
func SetConnected(open bool) {
	if ConnectedGauge == nil {
		return
	}
	if open {
		ConnectedGauge.Set(1)
	} else {
		ConnectedGauge.Set(0)
	}
}

// IncCompletionFailures increments the completion failure counter if registered.
func IncCompletionFailures() {
	if CompletionFailures != nil {
		CompletionFailures.Inc()
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding correlation id (if absent) and the id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
