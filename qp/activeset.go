// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qp

import (
	"math"
	"slices"
)

// activeSet is the state of one primal active-set solve.
//
// The working set 𝐖 holds the independent equality rows followed by the active
// inequality rows in order of activation. Every iterate satisfies 𝐖𝐱 = 𝐛_𝐖 and
// stays feasible for the inactive rows. Each iteration solves the equality-constrained
// subproblem in the null space of 𝐖
//
//	𝚖𝚒𝚗 ½ 𝐝ᵀ𝐐𝐝 + 𝐝ᵀ𝐠  subject to 𝐖𝐝 = 0,  𝐠 = 𝐐𝐱 + 𝐩
//
// with 𝐝 = 𝐙𝐮 and (𝐙ᵀ𝐐𝐙)𝐮 = -𝐙ᵀ𝐠. A zero step means 𝐱 is a minimizer on the working
// set and the multipliers of 𝐠 = 𝐖ᵀ𝛌 decide whether a row leaves it.
type activeSet struct {
	p   *Problem
	opt Options

	n, me, mi int
	maxIter   int
	iter      int

	x, g []float64
	d    []float64

	eqRows []int  // independent equality rows
	work   []int  // active inequality rows in order of activation
	inWork []bool // membership of inequality rows

	ns  nullSpace
	lam []float64 // multipliers of the working rows
}

// stepKind classifies the search direction.
type stepKind int

const (
	stepNewton stepKind = iota // minimizer of the subproblem, step length ≤ 1
	stepRay                    // descent direction of non-positive curvature
)

func newActiveSet(p *Problem, opt Options) *activeSet {
	n, me, mi := p.N, p.NumEq(), p.NumIneq()
	maxIter := opt.MaxIterations
	if maxIter == 0 {
		maxIter = max(100, 10*(n+me+mi))
	}
	return &activeSet{
		p: p, opt: opt,
		n: n, me: me, mi: mi,
		maxIter: maxIter,
		x:       make([]float64, n),
		g:       make([]float64, n),
		d:       make([]float64, n),
		inWork:  make([]bool, mi),
	}
}

func (as *activeSet) run() *Result {
	if !as.p.finite() {
		return as.result(NumericalError)
	}
	if as.n == 0 {
		return as.result(as.trivial())
	}
	if st, ok := as.start(); !ok {
		return as.result(st)
	}
	return as.result(as.loop())
}

// loop iterates from a feasible x until the working set is optimal.
func (as *activeSet) loop() Status {
	for {
		if as.iter >= as.maxIter {
			return IterationLimit
		}
		as.iter++

		as.gradient()
		kind, ok := as.direction()
		if !ok {
			return NumericalError
		}

		if kind == stepNewton && damax(as.d) <= as.opt.Tolerance*math.Max(one, damax(as.x)) {
			as.multipliers()
			drop := as.dropCandidate()
			if drop < 0 {
				if as.violated() {
					return NumericalError
				}
				return Solved
			}
			as.remove(drop)
			if !as.refactor() {
				return NumericalError
			}
			continue
		}

		alpha, block := as.ratioTest(kind)
		if block < 0 && kind == stepRay {
			return Unbounded
		}
		daxpy(as.n, alpha, as.d, as.x)
		if block >= 0 {
			as.work = append(as.work, block)
			as.inWork[block] = true
			if !as.refactor() {
				return NumericalError
			}
		}
	}
}

// trivial decides a problem without unknowns: every row reads 0 ≥ bᵢ or 0 = bₑᵢ.
func (as *activeSet) trivial() Status {
	tol := as.opt.FeasibilityTolerance
	for _, b := range as.p.Beq {
		if math.Abs(b) > tol*math.Max(one, math.Abs(b)) {
			return Infeasible
		}
	}
	for _, b := range as.p.B {
		if b > tol*math.Max(one, math.Abs(b)) {
			return Infeasible
		}
	}
	return Solved
}

// start reduces the equality rows to an independent subset and moves to the minimizer
// on the equality manifold. A point breaking an inequality row is projected onto the
// rows, and when the projection misses them the minimum violation decides feasibility.
func (as *activeSet) start() (Status, bool) {
	p, opt := as.p, as.opt

	as.eqRows = independentRows(p.Aeq, opt.RankTolerance)
	if !as.refactor() {
		return NumericalError, false
	}

	// minimum norm point of the independent rows: 𝐱 = 𝐘𝐑⁻ᵀ𝐛ₑ
	k := len(as.eqRows)
	v := make([]float64, k)
	for j, i := range as.eqRows {
		v[j] = p.Beq[i]
	}
	as.ns.solveRT(v)
	dzero(as.x)
	for j := 0; j < k; j++ {
		daxpy(as.n, v[j], as.ns.y(j), as.x)
	}

	// dependent rows must agree with the independent ones
	for i := 0; i < as.me; i++ {
		r := ddot(as.n, p.Aeq.Row(i), as.x) - p.Beq[i]
		if math.Abs(r) > opt.FeasibilityTolerance*math.Max(one, math.Abs(p.Beq[i])) {
			return Infeasible, false
		}
	}

	as.gradient()
	kind, ok := as.direction()
	if !ok {
		return NumericalError, false
	}
	if kind == stepNewton {
		daxpy(as.n, one, as.d, as.x)
	}

	if as.violated() {
		if st, ok := as.project(); !ok && st == NumericalError {
			return st, false
		}
		if as.violated() {
			return as.feasible()
		}
	}
	return Solved, true
}

// violated reports whether x breaks an inequality row beyond the feasibility tolerance.
func (as *activeSet) violated() bool {
	a, b := as.p.A, as.p.B
	for i := 0; i < as.mi; i++ {
		if ddot(as.n, a.Row(i), as.x) < b[i]-as.opt.FeasibilityTolerance*math.Max(one, math.Abs(b[i])) {
			return true
		}
	}
	return false
}

// project finds the nearest point x + 𝐙𝐲 satisfying the inequality rows by solving
//
//	𝚖𝚒𝚗 ‖ 𝐲 ‖₂ subject to (𝐀𝐙)𝐲 ≥ 𝐛 - 𝐀𝐱
//
// which keeps the equality rows satisfied.
func (as *activeSet) project() (Status, bool) {
	n, mi, r := as.n, as.mi, as.ns.dim()
	if r == 0 {
		return Infeasible, false
	}
	a := as.p.A

	g := make([]float64, mi*r)
	h := make([]float64, mi)
	for i := 0; i < mi; i++ {
		row := a.Row(i)
		for j := 0; j < r; j++ {
			g[i+mi*j] = ddot(n, row, as.ns.z(j))
		}
		h[i] = as.p.B[i] - ddot(n, row, as.x)
	}

	y := make([]float64, r)
	w := make([]float64, (r+1)*(mi+2)+2*mi)
	jw := make([]int, mi)
	_, mode := ldp(mi, r, g, mi, h, y, w, jw, as.opt.NNLSIterations)
	switch mode {
	case lsqSolved:
	case lsqIncompatible:
		return Infeasible, false
	case lsqExceedMaxIter:
		return IterationLimit, false
	default:
		return NumericalError, false
	}

	for j := 0; j < r; j++ {
		daxpy(n, y[j], as.ns.z(j), as.x)
	}
	return Solved, true
}

// feasible minimizes the largest violation t over the equality manifold
//
//	𝚖𝚒𝚗 ½ t²  subject to 𝐀𝐱 + t ≥ 𝐛,  𝐀ₑ𝐱 = 𝐛ₑ
//
// starting from the current x with t at its violation, which satisfies every row.
// The problem is infeasible only when the minimum still breaks a row of 𝐀.
func (as *activeSet) feasible() (Status, bool) {
	p, n := as.p, as.n
	aux := NewProblem(n+1, as.me, as.mi)
	aux.Q.Set(n, n, one)
	t := zero
	for i := 0; i < as.mi; i++ {
		row := aux.A.Row(i)
		copy(row, p.A.Row(i))
		row[n] = one
		aux.B[i] = p.B[i]
		t = math.Max(t, p.B[i]-ddot(n, p.A.Row(i), as.x))
	}
	for i := 0; i < as.me; i++ {
		copy(aux.Aeq.Row(i), p.Aeq.Row(i))
		aux.Beq[i] = p.Beq[i]
	}

	sub := newActiveSet(aux, as.opt)
	sub.maxIter = as.maxIter - as.iter
	sub.eqRows = as.eqRows
	copy(sub.x, as.x)
	sub.x[n] = t
	if !sub.refactor() {
		return NumericalError, false
	}
	st := sub.loop()
	as.iter += sub.iter
	switch st {
	case Solved:
	case IterationLimit:
		return IterationLimit, false
	default:
		return NumericalError, false
	}

	copy(as.x, sub.x[:n])
	if as.violated() {
		return Infeasible, false
	}
	return Solved, true
}

// refactor rebuilds the null-space factorization of the current working set.
func (as *activeSet) refactor() bool {
	rows := make([][]float64, 0, len(as.eqRows)+len(as.work))
	for _, i := range as.eqRows {
		rows = append(rows, as.p.Aeq.Row(i))
	}
	for _, i := range as.work {
		rows = append(rows, as.p.A.Row(i))
	}
	return as.ns.factor(as.n, rows, as.opt.RankTolerance)
}

// gradient computes 𝐠 = 𝐐𝐱 + 𝐩.
func (as *activeSet) gradient() {
	as.p.Q.MulVec(as.x, as.g)
	daxpy(as.n, one, as.p.P, as.g)
}

// direction solves the null-space subproblem for d.
//
// The reduced Hessian 𝐇 = 𝐙ᵀ𝐐𝐙 is solved by pseudo-rank triangulation, which yields the
// minimum norm step when 𝐇 is singular. If the reduced gradient has a component outside
// the range of 𝐇, that residual is a zero-curvature descent ray. A direction of negative
// curvature is also returned as a ray, oriented downhill.
func (as *activeSet) direction() (stepKind, bool) {
	n, r := as.n, as.ns.dim()
	dzero(as.d)
	if r == 0 {
		return stepNewton, true
	}

	rhs := make([]float64, r)
	for j := 0; j < r; j++ {
		rhs[j] = -ddot(n, as.ns.z(j), as.g)
	}

	// 𝐇ᵢⱼ = 𝐳ᵢᵀ𝐐𝐳ⱼ stored column-major
	hm := make([]float64, r*r)
	qz := make([]float64, n)
	for j := 0; j < r; j++ {
		as.p.Q.MulVec(as.ns.z(j), qz)
		for i := 0; i <= j; i++ {
			v := ddot(n, as.ns.z(i), qz)
			hm[i+r*j] = v
		}
	}
	for j := 0; j < r; j++ {
		for i := j + 1; i < r; i++ {
			hm[i+r*j] = hm[j+r*i]
		}
	}

	hmax := damax(hm)
	ctol := as.opt.Tolerance * math.Max(one, hmax)

	u := make([]float64, r)
	kind := stepNewton

	// explicit negative curvature on the diagonal
	for j := 0; j < r; j++ {
		if hm[j+r*j] < -ctol {
			u[j] = one
			kind = stepRay
			break
		}
	}

	if kind == stepNewton {
		a := slices.Clone(hm)
		copy(u, rhs)
		norm := make([]float64, 1)
		hh := make([]float64, r)
		gg := make([]float64, r)
		ip := make([]int, r)
		rank := hfti(a, r, r, r, u, r, 1, as.opt.RankTolerance*hmax, norm, hh, gg, ip)
		for _, v := range u {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return kind, false
			}
		}

		if rank < r {
			// residual of the consistent part
			res := slices.Clone(rhs)
			for j := 0; j < r; j++ {
				daxpy(r, -u[j], hm[r*j:], res)
			}
			if damax(res) > as.opt.Tolerance*math.Max(one, damax(rhs)) {
				copy(u, res)
				kind = stepRay
			}
		}

		if kind == stepNewton {
			curv := zero
			for j := 0; j < r; j++ {
				curv += u[j] * ddot(r, hm[r*j:], u)
			}
			if nu := dnrm2(r, u); curv < -ctol*nu*nu {
				kind = stepRay
			}
		}
	}

	if kind == stepRay && ddot(r, u, rhs) < zero {
		for j := range u {
			u[j] = -u[j]
		}
	}

	for j := 0; j < r; j++ {
		daxpy(n, u[j], as.ns.z(j), as.d)
	}
	return kind, true
}

// multipliers solves 𝐑𝛌 = 𝐘ᵀ𝐠 for the working-row multipliers.
func (as *activeSet) multipliers() {
	k := as.ns.k
	as.lam = make([]float64, k)
	for j := 0; j < k; j++ {
		as.lam[j] = ddot(as.n, as.ns.y(j), as.g)
	}
	as.ns.solveR(as.lam)
}

// dropCandidate returns the active inequality row with the most negative multiplier,
// the smallest row index on ties, or -1 when every multiplier is non-negative within tolerance.
func (as *activeSet) dropCandidate() int {
	tol := as.opt.Tolerance * math.Max(one, damax(as.g))
	ke := len(as.eqRows)
	drop, best := -1, -tol
	for j, i := range as.work {
		l := as.lam[ke+j]
		if l < best || (l == best && drop >= 0 && i < drop) {
			drop, best = i, l
		}
	}
	return drop
}

func (as *activeSet) remove(row int) {
	as.inWork[row] = false
	as.work = slices.DeleteFunc(as.work, func(i int) bool { return i == row })
}

// ratioTest returns the largest step along d that keeps the inactive rows satisfied
// together with the first row reaching its bound, or -1 when no row blocks.
// Ties are broken towards the smallest row index.
func (as *activeSet) ratioTest(kind stepKind) (float64, int) {
	alpha := one
	if kind == stepRay {
		alpha = math.Inf(1)
	}
	dmax := damax(as.d)
	block := -1
	for i := 0; i < as.mi; i++ {
		if as.inWork[i] {
			continue
		}
		row := as.p.A.Row(i)
		ad := ddot(as.n, row, as.d)
		if ad >= -as.opt.Tolerance*damax(row)*dmax {
			continue
		}
		s := math.Max(zero, (as.p.B[i]-ddot(as.n, row, as.x))/ad)
		if alpha-s > eps*math.Max(one, s) {
			alpha, block = s, i
		}
	}
	return alpha, block
}

// result packs the current iterate. Multipliers are reported only for a solved problem.
func (as *activeSet) result(st Status) *Result {
	res := &Result{
		X:          as.x,
		Status:     st,
		Iterations: as.iter,
		Lambda:     make([]float64, as.mi),
		Mu:         make([]float64, as.me),
		Active:     slices.Sorted(slices.Values(as.work)),
	}
	if res.Active == nil {
		res.Active = []int{}
	}
	if st == Solved && as.lam != nil {
		ke := len(as.eqRows)
		for j, i := range as.eqRows {
			res.Mu[i] = as.lam[j]
		}
		for j, i := range as.work {
			res.Lambda[i] = as.lam[ke+j]
		}
	}
	return res
}
