// metrics содержит prometheus-метрики жизненного цикла сессий.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Auth: счётчики и длительности операций Auth Lifecycle Manager.
type Auth struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
}

// New создаёт метрики и регистрирует их в reg (nil: prometheus.DefaultRegisterer).
func New(reg prometheus.Registerer) *Auth {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Auth{
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tasker_auth_operations_total",
				Help: "Total number of auth lifecycle operations by result",
			},
			[]string{"op", "result"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tasker_auth_operation_duration_seconds",
				Help:    "Auth lifecycle operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
	}

	reg.MustRegister(m.OperationsTotal, m.OperationDuration)

	return m
}

// Observe учитывает одну операцию; result: "ok" или класс ошибки.
func (m *Auth) Observe(op, result string, d time.Duration) {
	m.OperationsTotal.WithLabelValues(op, result).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(d.Seconds())
}
