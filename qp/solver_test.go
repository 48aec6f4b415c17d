// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qp

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

const testTol = 1e-8

func newTestSolver(t *testing.T, opt Options) *Solver {
	t.Helper()
	s, err := NewSolver(opt)
	require.NoError(t, err)
	return s
}

// requireKKT checks stationarity 𝐐𝐱 + 𝐩 = 𝐀ᵀ𝛌 + 𝐀ₑᵀ𝛍, primal feasibility,
// dual feasibility and complementary slackness.
func requireKKT(t *testing.T, p *Problem, res *Result) {
	t.Helper()
	requireKKTWithin(t, p, res, testTol)
}

func requireKKTWithin(t *testing.T, p *Problem, res *Result, tol float64) {
	t.Helper()
	require.Equal(t, Solved, res.Status)
	n := p.N

	g := make([]float64, n)
	p.Q.MulVec(res.X, g)
	for j := range g {
		g[j] += p.P[j]
	}
	for i := 0; i < p.NumIneq(); i++ {
		row := p.A.Row(i)
		ax := ddot(n, row, res.X)
		require.GreaterOrEqual(t, ax, p.B[i]-tol, "row %d violated", i)
		require.GreaterOrEqual(t, res.Lambda[i], -tol, "row %d multiplier", i)
		require.InDelta(t, 0, res.Lambda[i]*(ax-p.B[i]), tol, "row %d complementarity", i)
		daxpy(n, -res.Lambda[i], row, g)
	}
	for i := 0; i < p.NumEq(); i++ {
		row := p.Aeq.Row(i)
		require.InDelta(t, p.Beq[i], ddot(n, row, res.X), tol, "equality %d violated", i)
		daxpy(n, -res.Mu[i], row, g)
	}
	for j := range g {
		require.InDelta(t, 0, g[j], tol, "stationarity %d", j)
	}
}

func TestNewSolver(t *testing.T) {
	s := newTestSolver(t, Options{})
	require.Equal(t, DefaultOptions(), s.Options())

	for _, opt := range []Options{
		{MaxIterations: -1},
		{NNLSIterations: -1},
		{Tolerance: -1},
		{FeasibilityTolerance: math.NaN()},
		{RankTolerance: -1e-3},
	} {
		_, err := NewSolver(opt)
		require.Error(t, err, "%+v", opt)
	}
}

func TestSolveUnconstrained(t *testing.T) {
	s := newTestSolver(t, Options{})

	res := s.SolveInequality(Identity(2, 1), []float64{0, 0}, nil, nil)
	require.Equal(t, Solved, res.Status)
	require.InDeltaSlice(t, []float64{0, 0}, res.X, testTol)
	require.Empty(t, res.Active)

	// 𝐐𝐱 = -𝐩 for a positive definite 𝐐
	q := NewMatrixFrom(3, 3, []float64{
		4, 1, 0,
		1, 3, 1,
		0, 1, 2,
	})
	p := []float64{1, -2, 3}
	res = s.SolveInequality(q, p, NewMatrix(0, 3), []float64{})
	require.Equal(t, Solved, res.Status)
	qx := make([]float64, 3)
	q.MulVec(res.X, qx)
	for i := range qx {
		require.InDelta(t, -p[i], qx[i], testTol)
	}
}

func TestSolveActiveBound(t *testing.T) {
	s := newTestSolver(t, Options{})

	// x₀ ≤ 1 written as -x₀ ≥ -1
	p := &Problem{
		N: 2,
		Q: Identity(2, 1),
		P: []float64{-2, -2},
		A: NewMatrixFrom(1, 2, []float64{-1, 0}),
		B: []float64{-1},
	}
	res := s.Solve(p)
	require.Equal(t, Solved, res.Status)
	require.InDeltaSlice(t, []float64{1, 2}, res.X, testTol)
	require.Equal(t, []int{0}, res.Active)
	require.Greater(t, res.Lambda[0], 0.0)
	require.InDelta(t, 1, res.Lambda[0], testTol)
	requireKKT(t, p, res)
	require.InDelta(t, -3.5, p.Objective(res.X), testTol)
}

func TestSolveInconsistentEquality(t *testing.T) {
	s := newTestSolver(t, Options{})
	p := &Problem{
		N:   2,
		Q:   Identity(2, 1),
		P:   []float64{0, 0},
		Aeq: NewMatrixFrom(2, 2, []float64{1, 0, 1, 0}),
		Beq: []float64{1, 2},
	}
	res := s.Solve(p)
	require.Equal(t, Infeasible, res.Status)
	require.Len(t, res.X, 2)
}

func TestSolveDependentEquality(t *testing.T) {
	s := newTestSolver(t, Options{})
	// the second row doubles the first
	p := &Problem{
		N:   2,
		Q:   Identity(2, 1),
		P:   []float64{0, 0},
		Aeq: NewMatrixFrom(2, 2, []float64{1, 1, 2, 2}),
		Beq: []float64{2, 4},
	}
	res := s.Solve(p)
	require.Equal(t, Solved, res.Status)
	require.InDeltaSlice(t, []float64{1, 1}, res.X, testTol)
	require.Zero(t, res.Mu[1])
	requireKKT(t, p, res)
}

func TestSolveEquality(t *testing.T) {
	s := newTestSolver(t, Options{})
	// minimize ½‖x‖² subject to x₀ + x₁ + x₂ = 3
	p := &Problem{
		N:   3,
		Q:   Identity(3, 1),
		P:   []float64{0, 0, 0},
		Aeq: NewMatrixFrom(1, 3, []float64{1, 1, 1}),
		Beq: []float64{3},
	}
	res := s.Solve(p)
	require.Equal(t, Solved, res.Status)
	require.InDeltaSlice(t, []float64{1, 1, 1}, res.X, testTol)
	require.InDelta(t, 1, res.Mu[0], testTol)
	requireKKT(t, p, res)
}

func TestSolveMixed(t *testing.T) {
	s := newTestSolver(t, Options{})
	// minimize ½‖x - (3, 1, 0)‖² subject to x₀ + x₁ + x₂ = 2, x ≥ 0, x₀ ≤ 1.5
	p := &Problem{
		N:   3,
		Q:   Identity(3, 1),
		P:   []float64{-3, -1, 0},
		Aeq: NewMatrixFrom(1, 3, []float64{1, 1, 1}),
		Beq: []float64{2},
		A: NewMatrixFrom(4, 3, []float64{
			1, 0, 0,
			0, 1, 0,
			0, 0, 1,
			-1, 0, 0,
		}),
		B: []float64{0, 0, 0, -1.5},
	}
	res := s.Solve(p)
	requireKKT(t, p, res)
	require.InDeltaSlice(t, []float64{1.5, 0.5, 0}, res.X, testTol)
	require.Equal(t, []int{2, 3}, res.Active)
}

func TestSolveInfeasibleInequality(t *testing.T) {
	s := newTestSolver(t, Options{})
	// x ≥ 1 and x ≤ 0
	res := s.SolveInequality(Identity(1, 1), []float64{0},
		NewMatrixFrom(2, 1, []float64{1, -1}), []float64{1, 0})
	require.Equal(t, Infeasible, res.Status)

	// the only point allowed by the equality breaks the inequality
	p := &Problem{
		N:   1,
		Q:   Identity(1, 1),
		P:   []float64{0},
		A:   NewMatrixFrom(1, 1, []float64{1}),
		B:   []float64{2},
		Aeq: NewMatrixFrom(1, 1, []float64{1}),
		Beq: []float64{1},
	}
	require.Equal(t, Infeasible, s.Solve(p).Status)
}

func TestSolveSingularCost(t *testing.T) {
	s := newTestSolver(t, Options{})

	t.Run("linear program", func(t *testing.T) {
		// minimize -x₀ - 2x₁ over the unit box
		res := s.SolveInequality(NewMatrix(2, 2), []float64{-1, -2},
			NewMatrixFrom(4, 2, []float64{
				1, 0,
				0, 1,
				-1, 0,
				0, -1,
			}), []float64{0, 0, -1, -1})
		require.Equal(t, Solved, res.Status)
		require.InDeltaSlice(t, []float64{1, 1}, res.X, testTol)
		require.Equal(t, []int{2, 3}, res.Active)
	})

	t.Run("unbounded", func(t *testing.T) {
		res := s.SolveInequality(NewMatrix(2, 2), []float64{-1, 0},
			NewMatrixFrom(1, 2, []float64{0, 1}), []float64{0})
		require.Equal(t, Unbounded, res.Status)
	})

	t.Run("minimum norm", func(t *testing.T) {
		// ½(x₀ + x₁ - 2)² is minimized on a line; the minimum norm point is (1, 1)
		q := NewMatrixFrom(2, 2, []float64{1, 1, 1, 1})
		res := s.SolveInequality(q, []float64{-2, -2}, nil, nil)
		require.Equal(t, Solved, res.Status)
		require.InDeltaSlice(t, []float64{1, 1}, res.X, testTol)
	})

	t.Run("flat objective", func(t *testing.T) {
		res := s.SolveInequality(NewMatrix(2, 2), []float64{0, 0},
			NewMatrixFrom(1, 2, []float64{1, 1}), []float64{2})
		require.Equal(t, Solved, res.Status)
		require.InDeltaSlice(t, []float64{1, 1}, res.X, testTol)
	})
}

func TestSolveIterationLimit(t *testing.T) {
	s := newTestSolver(t, Options{MaxIterations: 1})
	p := &Problem{
		N: 2,
		Q: Identity(2, 1),
		P: []float64{-2, -2},
		A: NewMatrixFrom(1, 2, []float64{-1, 0}),
		B: []float64{-1},
	}
	res := s.Solve(p)
	require.Equal(t, IterationLimit, res.Status)
	require.Equal(t, 1, res.Iterations)
	require.Len(t, res.X, 2)
}

func TestSolveNotFinite(t *testing.T) {
	s := newTestSolver(t, Options{})
	res := s.SolveInequality(Identity(2, 1), []float64{math.NaN(), 0}, nil, nil)
	require.Equal(t, NumericalError, res.Status)
	require.Len(t, res.X, 2)

	res = s.SolveInequality(Identity(1, 1), []float64{0},
		NewMatrixFrom(1, 1, []float64{1}), []float64{math.Inf(1)})
	require.Equal(t, NumericalError, res.Status)
}

func TestSolveEmpty(t *testing.T) {
	s := newTestSolver(t, Options{})

	res := s.Solve(&Problem{})
	require.Equal(t, Solved, res.Status)
	require.Empty(t, res.X)

	res = s.Solve(&Problem{A: NewMatrix(1, 0), B: []float64{1}})
	require.Equal(t, Infeasible, res.Status)

	res = s.Solve(&Problem{Aeq: NewMatrix(1, 0), Beq: []float64{0}, A: NewMatrix(1, 0), B: []float64{-1}})
	require.Equal(t, Solved, res.Status)
}

func TestSolveMalformed(t *testing.T) {
	s := newTestSolver(t, Options{})
	require.Panics(t, func() {
		s.SolveInequality(Identity(2, 1), []float64{0, 0, 0}, nil, nil)
	})
	require.Panics(t, func() {
		s.SolveInequality(Identity(2, 1), []float64{0, 0}, NewMatrix(1, 2), []float64{0, 0})
	})
}

func TestSolveIdempotent(t *testing.T) {
	s := newTestSolver(t, Options{})
	p := &Problem{
		N: 3,
		Q: NewMatrixFrom(3, 3, []float64{
			2, 0.5, 0,
			0.5, 1, 0.2,
			0, 0.2, 3,
		}),
		P: []float64{-1, 4, -2},
		A: NewMatrixFrom(3, 3, []float64{
			1, 0, 0,
			0, 1, 0,
			0, 0, 1,
		}),
		B:   []float64{0, 0, 0},
		Aeq: NewMatrixFrom(1, 3, []float64{1, 1, 1}),
		Beq: []float64{1},
	}
	first := s.Solve(p)
	requireKKT(t, p, first)
	second := s.Solve(p)
	require.Equal(t, first.Status, second.Status)
	require.Equal(t, first.X, second.X)
	require.Equal(t, first.Active, second.Active)
}

func TestSolveRandomBox(t *testing.T) {
	s := newTestSolver(t, Options{})
	var gen randGen
	gen.next(-one)

	const n = 6
	for trial := 0; trial < 20; trial++ {
		// diagonally dominant cost with box [-1, 1]
		q := NewMatrix(n, n)
		for i := 0; i < n; i++ {
			for j := 0; j <= i; j++ {
				v := gen.next(zero) / 5000
				q.Set(i, j, v)
				q.Set(j, i, v)
			}
		}
		for i := 0; i < n; i++ {
			sm := zero
			for j := 0; j < n; j++ {
				sm += math.Abs(q.At(i, j))
			}
			q.Set(i, i, sm+one)
		}
		c := make([]float64, n)
		for i := range c {
			c[i] = gen.next(zero) / 100
		}
		a := NewMatrix(2*n, n)
		b := make([]float64, 2*n)
		for i := 0; i < n; i++ {
			a.Set(i, i, one)
			a.Set(n+i, i, -one)
			b[i], b[n+i] = -one, -one
		}
		p := &Problem{N: n, Q: q, P: c, A: a, B: b}
		requireKKT(t, p, s.Solve(p))
	}
}

func TestSolveDegenerateStart(t *testing.T) {
	s := newTestSolver(t, Options{})

	t.Run("single point", func(t *testing.T) {
		// x₀ ≥ 0, x₁ ≥ 0 and x₀ + x₁ ≤ 0 leave only the origin
		p := &Problem{
			N: 2,
			Q: Identity(2, 1),
			P: []float64{-1, -1},
			A: NewMatrixFrom(3, 2, []float64{
				1, 0,
				0, 1,
				-1, -1,
			}),
			B: []float64{0, 0, 0},
		}
		res := s.Solve(p)
		requireKKT(t, p, res)
		require.InDeltaSlice(t, []float64{0, 0}, res.X, testTol)
	})

	t.Run("tight on equality manifold", func(t *testing.T) {
		// every row is tight at (1, 0, 0), the only feasible point, while the
		// minimizer on the equality manifold is (-1/3, 8/3, -4/3)
		p := &Problem{
			N: 3,
			Q: Identity(3, 1),
			P: []float64{0, -3, 1},
			A: NewMatrixFrom(4, 3, []float64{
				0, 1, 0,
				0, 0, 1,
				0, -1, -1,
				0, 1, -1,
			}),
			B:   []float64{0, 0, 0, 0},
			Aeq: NewMatrixFrom(1, 3, []float64{1, 1, 1}),
			Beq: []float64{1},
		}
		res := s.Solve(p)
		requireKKT(t, p, res)
		require.InDeltaSlice(t, []float64{1, 0, 0}, res.X, testTol)
	})
}

func TestActiveSetFeasible(t *testing.T) {
	opt := DefaultOptions()

	t.Run("reaches feasible region", func(t *testing.T) {
		// x₀ + x₁ ≥ 2, x₀ - x₁ ≥ 0 and x₁ ≥ 0.5 from the origin
		p := &Problem{
			N: 2,
			Q: Identity(2, 1),
			P: []float64{0, 0},
			A: NewMatrixFrom(3, 2, []float64{
				1, 1,
				1, -1,
				0, 1,
			}),
			B: []float64{2, 0, 0.5},
		}
		as := newActiveSet(p, opt)
		require.True(t, as.refactor())
		require.True(t, as.violated())

		st, ok := as.feasible()
		require.True(t, ok)
		require.Equal(t, Solved, st)
		require.False(t, as.violated())
		require.Positive(t, as.iter)
		require.Empty(t, as.work)
	})

	t.Run("keeps equality rows", func(t *testing.T) {
		p := &Problem{
			N:   3,
			Q:   Identity(3, 1),
			P:   []float64{0, 0, 0},
			A:   NewMatrixFrom(2, 3, []float64{1, 0, 0, 0, 1, 0}),
			B:   []float64{1, 1},
			Aeq: NewMatrixFrom(1, 3, []float64{1, 1, 1}),
			Beq: []float64{3},
		}
		as := newActiveSet(p, opt)
		as.eqRows = []int{0}
		require.True(t, as.refactor())
		copy(as.x, []float64{0, 0, 3})

		st, ok := as.feasible()
		require.True(t, ok)
		require.Equal(t, Solved, st)
		require.False(t, as.violated())
		require.InDelta(t, 3, as.x[0]+as.x[1]+as.x[2], testTol)
	})

	t.Run("infeasible", func(t *testing.T) {
		// x ≥ 1 and x ≤ 0
		p := &Problem{
			N: 1,
			Q: Identity(1, 1),
			P: []float64{0},
			A: NewMatrixFrom(2, 1, []float64{1, -1}),
			B: []float64{1, 0},
		}
		as := newActiveSet(p, opt)
		require.True(t, as.refactor())

		st, ok := as.feasible()
		require.False(t, ok)
		require.Equal(t, Infeasible, st)
		require.InDelta(t, 0.5, as.x[0], testTol)
	})

	t.Run("iteration limit", func(t *testing.T) {
		p := &Problem{
			N: 1,
			Q: Identity(1, 1),
			P: []float64{0},
			A: NewMatrixFrom(1, 1, []float64{1}),
			B: []float64{1},
		}
		lim := opt
		lim.MaxIterations = 1
		as := newActiveSet(p, lim)
		require.True(t, as.refactor())

		st, ok := as.feasible()
		require.False(t, ok)
		require.Equal(t, IterationLimit, st)
		require.Equal(t, 1, as.iter)
	})
}

// randomProblem draws a strictly convex problem whose rows hold at a known point x₀.
// The first tight inequality rows pass through x₀ and the rest keep a positive slack.
func randomProblem(rng *rand.Rand, n, me, mi, tight int) *Problem {
	p := NewProblem(n, me, mi)

	// 𝐐 = 𝐌𝐌ᵀ + 𝐈
	m := NewMatrix(n, n)
	for i := range m.Data {
		m.Data[i] = rng.NormFloat64()
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			p.Q.Set(i, j, ddot(n, m.Row(i), m.Row(j)))
		}
		p.Q.Add(i, i, one)
	}

	x0 := make([]float64, n)
	for j := range x0 {
		x0[j] = rng.NormFloat64()
		p.P[j] = 5 * rng.NormFloat64()
	}
	for i := 0; i < mi; i++ {
		row := p.A.Row(i)
		for j := range row {
			row[j] = rng.NormFloat64()
		}
		p.B[i] = ddot(n, row, x0)
		if i >= tight {
			p.B[i] -= rng.Float64()
		}
	}
	for i := 0; i < me; i++ {
		row := p.Aeq.Row(i)
		for j := range row {
			row[j] = rng.NormFloat64()
		}
		p.Beq[i] = ddot(n, row, x0)
	}
	return p
}

func TestSolveRandomRows(t *testing.T) {
	s := newTestSolver(t, Options{})
	rng := rand.New(rand.NewSource(7))

	for _, tc := range []struct {
		name      string
		n, me, mi int
		tight     int
		trials    int
	}{
		{name: "inequality", n: 4, mi: 8, trials: 50},
		{name: "tight", n: 5, mi: 12, tight: 6, trials: 50},
		{name: "mixed", n: 6, me: 2, mi: 10, tight: 4, trials: 50},
		{name: "tight mixed", n: 6, me: 3, mi: 9, tight: 9, trials: 50},
		{name: "overdetermined", n: 3, me: 1, mi: 15, tight: 3, trials: 50},
	} {
		t.Run(tc.name, func(t *testing.T) {
			for trial := 0; trial < tc.trials; trial++ {
				p := randomProblem(rng, tc.n, tc.me, tc.mi, tc.tight)
				res := s.Solve(p)
				require.Equal(t, Solved, res.Status, "trial %d", trial)
				requireKKTWithin(t, p, res, 1e-6)
			}
		})
	}
}

func TestStatusString(t *testing.T) {
	names := []string{"SOLVED", "INFEASIBLE", "UNBOUNDED", "ITERATION_LIMIT", "NUMERICAL_ERROR"}
	for i, st := range Statuses() {
		require.Equal(t, names[i], st.String())
	}
	require.Equal(t, "Status(9)", Status(9).String())
}
