package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/resper/paperless-onS/internal/core/domain"
	"github.com/resper/paperless-onS/internal/infrastructure/resilience"
)

// PipelineMetrics implements ports.ProcessObserver and feeds the resilience
// executor hooks.
type PipelineMetrics struct {
	service string

	runsTotal         *prometheus.CounterVec
	runDuration       *prometheus.HistogramVec
	tokensTotal       *prometheus.CounterVec
	retriesTotal      *prometheus.CounterVec
	breakerTransition *prometheus.CounterVec
}

func NewPipelineMetrics(registry prometheus.Registerer, service string) *PipelineMetrics {
	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Document pipeline runs by final status and failed step.",
		},
		[]string{"service", "status", "step"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Document pipeline run duration in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
		},
		[]string{"service", "status"},
	)
	tokensTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Token usage reported by the model API by direction.",
		},
		[]string{"service", "direction", "model"},
	)
	retriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "retries_total",
			Help:      "Retried outbound calls by operation.",
		},
		[]string{"service", "operation"},
	)
	breakerTransition := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "breaker_transitions_total",
			Help:      "Circuit breaker state changes by operation.",
		},
		[]string{"service", "operation", "from", "to"},
	)

	registry.MustRegister(runsTotal, runDuration, tokensTotal, retriesTotal, breakerTransition)

	return &PipelineMetrics{
		service:           service,
		runsTotal:         runsTotal,
		runDuration:       runDuration,
		tokensTotal:       tokensTotal,
		retriesTotal:      retriesTotal,
		breakerTransition: breakerTransition,
	}
}

func (m *PipelineMetrics) ObserveRun(status, step string, duration time.Duration) {
	if status == "" {
		status = "unknown"
	}
	m.runsTotal.WithLabelValues(m.service, status, step).Inc()
	m.runDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

func (m *PipelineMetrics) ObserveTokens(model string, usage domain.TokenUsage) {
	if model == "" {
		model = "unknown"
	}
	if usage.Prompt > 0 {
		m.tokensTotal.WithLabelValues(m.service, "in", model).Add(float64(usage.Prompt))
	}
	if usage.Completion > 0 {
		m.tokensTotal.WithLabelValues(m.service, "out", model).Add(float64(usage.Completion))
	}
}

// ResilienceHooks counts retries and breaker transitions of the executor.
func (m *PipelineMetrics) ResilienceHooks() resilience.Hooks {
	return resilience.Hooks{
		OnRetry: func(operation string, _ int) {
			m.retriesTotal.WithLabelValues(m.service, operation).Inc()
		},
		OnStateChange: func(operation, from, to string) {
			m.breakerTransition.WithLabelValues(m.service, operation, from, to).Inc()
		},
	}
}
