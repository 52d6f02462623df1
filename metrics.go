// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package assh

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the prometheus collectors of the retry adapter.
// A nil *Metrics records nothing.
type Metrics struct {
	calls       *prometheus.CounterVec
	suspensions *prometheus.CounterVec
	failures    *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg when reg is
// not nil. Registering twice on one registry panics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "assh",
				Subsystem: "adapter",
				Name:      "calls_total",
				Help:      "Logical engine calls that reached a final result.",
			},
			[]string{"op", "result"},
		),
		suspensions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "assh",
				Subsystem: "adapter",
				Name:      "suspensions_total",
				Help:      "Would-block outcomes that suspended a call.",
			},
			[]string{"direction"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "assh",
				Subsystem: "adapter",
				Name:      "failures_total",
				Help:      "Calls aborted by the adapter itself.",
			},
			[]string{"kind"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.calls, m.suspensions, m.failures)
	}
	return m
}

func (m *Metrics) call(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.calls.WithLabelValues(op, result).Inc()
}

func (m *Metrics) suspend(dir BlockDirection) {
	if m == nil {
		return
	}
	m.suspensions.WithLabelValues(dir.String()).Inc()
}

func (m *Metrics) failure(kind string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(kind).Inc()
}
