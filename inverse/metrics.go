// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package inverse

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/curioloop/inverse/qp"
)

// Solve paths used as the "path" label.
const (
	pathGeneral    = "general"
	pathInequality = "inequality"
)

// Metrics bundles the Prometheus collectors updated by every solve.
// A nil *Metrics records nothing.
type Metrics struct {
	Solves     *prometheus.CounterVec
	Iterations *prometheus.HistogramVec
	Durations  *prometheus.HistogramVec
	Dumps      *prometheus.CounterVec

	Variables      prometheus.Gauge
	EqualityRows   prometheus.Gauge
	InequalityRows prometheus.Gauge
}

// NewMetrics registers the solver metrics against reg, defaulting to the
// global registry when nil. Collectors already registered under the same name
// are reused so several solvers may share one registry.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	solves, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inverse_solves_total",
		Help: "Total number of inverse solves, labeled by solve path and final status.",
	}, []string{"path", "status"}), "inverse_solves_total")
	if err != nil {
		return nil, err
	}
	iterations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inverse_solve_iterations",
		Help:    "Active-set iterations per inverse solve.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"path"}), "inverse_solve_iterations")
	if err != nil {
		return nil, err
	}
	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inverse_solve_duration_seconds",
		Help:    "Inverse solve latency in seconds, assembly excluded.",
		Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12),
	}, []string{"path"}), "inverse_solve_duration_seconds")
	if err != nil {
		return nil, err
	}
	dumps, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inverse_dumps_total",
		Help: "Problem dumps attempted, labeled by outcome.",
	}, []string{"result"}), "inverse_dumps_total")
	if err != nil {
		return nil, err
	}

	variables, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "inverse_problem_variables",
		Help: "Number of unknowns of the last assembled problem.",
	}), "inverse_problem_variables")
	if err != nil {
		return nil, err
	}
	eqRows, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "inverse_problem_equality_rows",
		Help: "Number of equality rows of the last assembled problem.",
	}), "inverse_problem_equality_rows")
	if err != nil {
		return nil, err
	}
	ineqRows, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "inverse_problem_inequality_rows",
		Help: "Number of inequality rows of the last assembled problem.",
	}), "inverse_problem_inequality_rows")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		Solves:         solves,
		Iterations:     iterations,
		Durations:      durations,
		Dumps:          dumps,
		Variables:      variables,
		EqualityRows:   eqRows,
		InequalityRows: ineqRows,
	}, nil
}

func (m *Metrics) observe(path string, res *qp.Result, n, numEq, numIneq int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if m.Solves != nil {
		m.Solves.WithLabelValues(path, res.Status.String()).Inc()
	}
	if m.Iterations != nil {
		m.Iterations.WithLabelValues(path).Observe(float64(res.Iterations))
	}
	if m.Durations != nil {
		m.Durations.WithLabelValues(path).Observe(elapsed.Seconds())
	}
	if m.Variables != nil {
		m.Variables.Set(float64(n))
	}
	if m.EqualityRows != nil {
		m.EqualityRows.Set(float64(numEq))
	}
	if m.InequalityRows != nil {
		m.InequalityRows.Set(float64(numIneq))
	}
}

func (m *Metrics) dumped(err error) {
	if m == nil || m.Dumps == nil {
		return
	}
	result := "written"
	if err != nil {
		result = "failed"
	}
	m.Dumps.WithLabelValues(result).Inc()
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
