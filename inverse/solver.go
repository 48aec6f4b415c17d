// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package inverse computes the excitations of a physical model for one
// simulation time-step: the model supplies cost and constraint terms, the
// terms are assembled into a dense QP and the QP is solved by an active-set method.
//
// Numerical failures never panic. They are reported through the Status of the
// result, an error log line, the tracing span and the Prometheus metrics,
// while the best available iterate is still returned.
package inverse

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/curioloop/inverse/qp"
	"github.com/curioloop/inverse/qpdump"
	"github.com/curioloop/inverse/term"
)

const (
	tracerName = "github.com/curioloop/inverse"
	component  = "inverse"
)

// Solver assembles and solves one QP per call.
// It keeps a call counter and must not be used by concurrent goroutines;
// each simulation owns its own Solver.
type Solver struct {
	cfg     Config
	qp      *qp.Solver
	asm     term.Assembler
	log     zerolog.Logger
	metrics *Metrics
	tracer  trace.Tracer
	calls   int
}

// Result is the outcome of one solve with the sizes of the assembled problem.
type Result struct {
	*qp.Result
	N         int
	NumEq     int
	NumIneq   int
	Objective float64
}

// New validates cfg and builds a Solver. By default it logs through the global
// zerolog logger, traces through the global OpenTelemetry provider and records no metrics.
func New(cfg Config, opts ...Option) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	qs, err := qp.NewSolver(cfg.Solver.Options())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	s := &Solver{
		cfg:    cfg,
		qp:     qs,
		asm:    term.Assembler{SymmetryTolerance: cfg.Solver.SymmetryTolerance},
		log:    log.Logger.With().Str("component", component).Logger(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config returns the configuration the solver was built with.
func (s *Solver) Config() Config {
	return s.cfg
}

// Calls returns the number of solves performed since creation or the last reset.
func (s *Solver) Calls() int {
	return s.calls
}

// ResetCounter rearms the dump trigger.
func (s *Solver) ResetCounter() {
	s.calls = 0
}

// Solve returns the excitations of size n minimizing the enabled cost terms
// subject to the enabled constraint terms over the step [t0, t1].
// On failure the best available iterate is returned and the status is logged.
func (s *Solver) Solve(costs []term.CostTerm, cons []term.ConstraintTerm, n int, t0, t1 float64) []float64 {
	return s.SolveResult(context.Background(), costs, cons, n, t0, t1).X
}

// SolveResult is Solve exposing the status, iterations, multipliers and problem sizes.
// Problems without equality rows take the inequality-only path.
func (s *Solver) SolveResult(ctx context.Context, costs []term.CostTerm, cons []term.ConstraintTerm, n int, t0, t1 float64) *Result {
	_, span := s.tracer.Start(ctx, "inverse.Solve", trace.WithAttributes(
		attribute.Int("inverse.n", n),
		attribute.Float64("inverse.t0", t0),
		attribute.Float64("inverse.t1", t1),
	))
	defer span.End()

	p := s.asm.Assemble(costs, cons, n, t0, t1)
	numEq, numIneq := p.NumEq(), p.NumIneq()
	span.SetAttributes(
		attribute.Int("inverse.equality_rows", numEq),
		attribute.Int("inverse.inequality_rows", numIneq),
	)

	call := s.calls
	s.calls++
	dump := s.cfg.Dump.Path != "" && call == s.cfg.Dump.Trigger

	var res *qp.Result
	path := pathGeneral
	start := time.Now()
	if numEq == 0 {
		path = pathInequality
		res = s.qp.SolveInequality(p.Q, p.P, p.A, p.B)
	} else {
		res = s.qp.Solve(p)
	}
	elapsed := time.Since(start)

	s.metrics.observe(path, res, n, numEq, numIneq, elapsed)
	span.SetAttributes(
		attribute.String("inverse.status", res.Status.String()),
		attribute.Int("inverse.iterations", res.Iterations),
	)

	out := &Result{Result: res, N: n, NumEq: numEq, NumIneq: numIneq, Objective: p.Objective(res.X)}
	if res.OK() {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetStatus(codes.Error, res.Status.String())
		s.log.Error().
			Str("status", res.Status.String()).
			Int("call", call).
			Int("n", n).
			Int("equality_rows", numEq).
			Int("inequality_rows", numIneq).
			Int("iterations", res.Iterations).
			Float64("t0", t0).
			Float64("t1", t1).
			Msgf("InverseSolve failed: solver status = %s", res.Status)
	}

	if dump {
		s.log.Info().
			Int("call", call).
			Str("path", path).
			Dur("elapsed", elapsed).
			Msg("inverse solve time")
		s.dump(p, res.X)
	}
	return out
}

func (s *Solver) dump(p *qp.Problem, x []float64) {
	err := qpdump.WriteFile(s.cfg.Dump.Path, qpdump.FromProblem(p, x))
	s.metrics.dumped(err)
	if err != nil {
		s.log.Warn().Err(err).Str("file", s.cfg.Dump.Path).Msg("problem dump failed")
		return
	}
	s.log.Info().Str("file", s.cfg.Dump.Path).Msg("problem dumped")
}
