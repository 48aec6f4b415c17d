// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qp

import (
	"errors"
	"math"
)

// Options specifies the stopping and tolerance policy of the active-set solver.
type Options struct {
	// The solve stops with IterationLimit when the number of active-set
	// iterations exceeds the limit. Zero selects max(100, 10×(n+m)).
	MaxIterations int
	// Relative tolerance for multiplier signs, step lengths and ratio-test denominators.
	Tolerance float64
	// Constraint violation accepted when checking feasibility.
	FeasibilityTolerance float64
	// Relative threshold below which a pivot counts as rank deficient.
	RankTolerance float64
	// The maximum number of iterations in the NNLS problem used to find a feasible start.
	// Zero selects the kernel default.
	NNLSIterations int
}

// DefaultOptions returns the options used when a field is left zero.
func DefaultOptions() Options {
	return Options{
		Tolerance:            1e-10,
		FeasibilityTolerance: 1e-8,
		RankTolerance:        1e-12,
	}
}

func (o Options) check() (err error) {
	switch {
	case o.MaxIterations < 0:
		err = errors.New("max iteration must not less than 0")
	case o.NNLSIterations < 0:
		err = errors.New("nnls iteration must not less than 0")
	case math.IsNaN(o.Tolerance) || o.Tolerance < zero:
		err = errors.New("tolerance must not less than 0")
	case math.IsNaN(o.FeasibilityTolerance) || o.FeasibilityTolerance < zero:
		err = errors.New("feasibility tolerance must not less than 0")
	case math.IsNaN(o.RankTolerance) || o.RankTolerance < zero:
		err = errors.New("rank tolerance must not less than 0")
	}
	return
}

// Solver solves dense QPs with a primal active-set method.
// A Solver holds no per-call state and may be reused across time-steps,
// but it must not be shared between goroutines that solve concurrently.
type Solver struct {
	opt Options
}

// NewSolver validates the options and fills zero tolerances with defaults.
func NewSolver(opt Options) (*Solver, error) {
	if err := opt.check(); err != nil {
		return nil, err
	}
	def := DefaultOptions()
	if opt.Tolerance == zero {
		opt.Tolerance = def.Tolerance
	}
	if opt.FeasibilityTolerance == zero {
		opt.FeasibilityTolerance = def.FeasibilityTolerance
	}
	if opt.RankTolerance == zero {
		opt.RankTolerance = def.RankTolerance
	}
	return &Solver{opt: opt}, nil
}

// Options returns the effective options.
func (s *Solver) Options() Options {
	return s.opt
}

// Result contains the final result of a solve.
type Result struct {
	X          []float64 // Final iterate, the minimizer when Status is Solved.
	Status     Status    // Final status.
	Iterations int       // Number of active-set iterations performed.
	Lambda     []float64 // Multipliers of the inequality rows, zero for inactive rows.
	Mu         []float64 // Multipliers of the equality rows.
	Active     []int     // Active inequality rows in ascending order.
}

// OK reports whether the solve converged.
func (r *Result) OK() bool {
	return r.Status == Solved
}

// Objective evaluates ½ 𝐱ᵀ𝐐𝐱 + 𝐱ᵀ𝐩 at x.
func (p *Problem) Objective(x []float64) float64 {
	if len(x) != p.N {
		panic("solution dimension not match problem")
	}
	f := ddot(p.N, x, p.P)
	for i := 0; i < p.N; i++ {
		f += 0.5 * x[i] * ddot(p.N, p.Q.Data[i*p.N:], x)
	}
	return f
}

// Solve runs the general active-set method on p, treating every equality row
// as permanently active. A malformed problem is a programming error and panics.
func (s *Solver) Solve(p *Problem) *Result {
	if err := p.Check(); err != nil {
		panic("qp: " + err.Error())
	}
	as := newActiveSet(p, s.opt)
	return as.run()
}

// SolveInequality solves the problem without equality rows.
// Either a or b may describe zero rows, in which case the problem is unconstrained.
func (s *Solver) SolveInequality(q *Matrix, c []float64, a *Matrix, b []float64) *Result {
	return s.Solve(&Problem{N: len(c), Q: q, P: c, A: a, B: b})
}
