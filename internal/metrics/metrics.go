// Package metrics holds Prometheus instruments for auth outcomes.
//
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation labels.
const (
	OpLogin         = "login"
	OpSignup        = "signup"
	OpLogout        = "logout"
	OpResetRequest  = "reset_request"
	OpResetPassword = "reset_password"
	OpRestore       = "restore"
)

// Result labels.
const (
	ResultSuccess  = "success"
	ResultRejected = "rejected"
	ResultError    = "error"
)

type Metrics struct {
	// AuthTotal counts auth operations by operation and result
	AuthTotal *prometheus.CounterVec

	// AuthDuration tracks operation latency
	AuthDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New creates metrics registered on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.registry = reg
	return m
}

// NewMetrics creates metrics and registers them on reg. A nil reg leaves
// them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gophauth_auth_total",
				Help: "Total auth operations by operation and result",
			},
			[]string{"operation", "result"},
		),
		AuthDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gophauth_auth_duration_seconds",
				Help:    "Auth operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.AuthTotal, m.AuthDuration)
	}
	return m
}

// Observe records one finished operation.
func (m *Metrics) Observe(op, result string, started time.Time) {
	if m == nil {
		return
	}
	m.AuthTotal.WithLabelValues(op, result).Inc()
	m.AuthDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// Counter is one row of AuthTotal.
type Counter struct {
	Operation string
	Result    string
	Value     float64
}

// Counters returns the current AuthTotal values sorted by operation and
// result. It returns nil for metrics built with NewMetrics.
func (m *Metrics) Counters() ([]Counter, error) {
	if m == nil || m.registry == nil {
		return nil, nil
	}

	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}

	var out []Counter
	for _, mf := range families {
		if mf.GetName() != "gophauth_auth_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			c := Counter{Value: metric.GetCounter().GetValue()}
			for _, l := range metric.GetLabel() {
				switch l.GetName() {
				case "operation":
					c.Operation = l.GetValue()
				case "result":
					c.Result = l.GetValue()
				}
			}
			out = append(out, c)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Operation != out[j].Operation {
			return out[i].Operation < out[j].Operation
		}
		return out[i].Result < out[j].Result
	})
	return out, nil
}
