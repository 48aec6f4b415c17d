// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package term

import (
	"fmt"
	"slices"

	"github.com/curioloop/inverse/numdiff"
	"github.com/curioloop/inverse/qp"
)

// Regularization penalizes the excitation magnitude: w·½‖𝐱‖².
type Regularization struct {
	Toggle
	Weight float64
}

func (r *Regularization) Kind() Kind { return Cost }

func (r *Regularization) AddCost(q *qp.Matrix, p []float64, t0, t1 float64) {
	for i := 0; i < q.Rows; i++ {
		q.Add(i, i, r.Weight)
	}
}

// Quadratic contributes a fixed cost ½𝐱ᵀ𝐐𝐱 + 𝐱ᵀ𝐏 supplied by the caller.
// A nil P adds no linear part.
type Quadratic struct {
	Toggle
	Q *qp.Matrix
	P []float64
}

func (qd *Quadratic) Kind() Kind { return Cost }

func (qd *Quadratic) AddCost(q *qp.Matrix, p []float64, t0, t1 float64) {
	n := len(p)
	if qd.Q.Rows != n || qd.Q.Cols != n || (qd.P != nil && len(qd.P) != n) {
		panic(fmt.Sprintf("term: quadratic cost is %d×%d with %d linear terms, problem size %d", qd.Q.Rows, qd.Q.Cols, len(qd.P), n))
	}
	for i, v := range qd.Q.Data {
		q.Data[i] += v
	}
	for i, v := range qd.P {
		p[i] += v
	}
}

// Damping penalizes the change from the previous excitation: w·½‖𝐱 - 𝐱ₚ‖².
// A nil Prev is treated as zero.
type Damping struct {
	Toggle
	Weight float64
	Prev   []float64
}

func (d *Damping) Kind() Kind { return Cost }

// Update records the excitation the next step is damped towards.
func (d *Damping) Update(x []float64) {
	d.Prev = append(d.Prev[:0], x...)
}

func (d *Damping) AddCost(q *qp.Matrix, p []float64, t0, t1 float64) {
	if d.Prev != nil && len(d.Prev) != len(p) {
		panic(fmt.Sprintf("term: damping reference has %d elements, want %d", len(d.Prev), len(p)))
	}
	for i := range p {
		q.Add(i, i, d.Weight)
		if d.Prev != nil {
			p[i] -= d.Weight * d.Prev[i]
		}
	}
}

// LeastSquares tracks a linear target: w·½‖𝐇𝐱 - 𝐲‖², contributing
// 𝐐 += w𝐇ᵀ𝐇 and 𝐩 -= w𝐇ᵀ𝐲.
type LeastSquares struct {
	Toggle
	Weight float64
	H      *qp.Matrix
	Y      []float64
}

func (ls *LeastSquares) Kind() Kind { return Cost }

func (ls *LeastSquares) AddCost(q *qp.Matrix, p []float64, t0, t1 float64) {
	addLeastSquares(q, p, ls.Weight, ls.H, ls.Y)
}

func addLeastSquares(q *qp.Matrix, p []float64, w float64, h *qp.Matrix, y []float64) {
	n := len(p)
	if h.Cols != n || len(y) != h.Rows {
		panic(fmt.Sprintf("term: least squares is %d×%d with %d targets, problem size %d", h.Rows, h.Cols, len(y), n))
	}
	for k := 0; k < h.Rows; k++ {
		row := h.Row(k)
		for i, hi := range row {
			if hi == 0 {
				continue
			}
			whi := w * hi
			for j, hj := range row {
				q.Add(i, j, whi*hj)
			}
			p[i] -= whi * y[k]
		}
	}
}

// Linearized tracks the target of a nonlinear model 𝐟 around the operating point 𝐱₀
//
//	w·½‖𝐟(𝐱₀) + 𝐉(𝐱 - 𝐱₀) - 𝐲(t₁)‖²,  𝐉 = ∂𝐟/∂𝐱 at 𝐱₀
//
// where 𝐉 is estimated by finite differences kept inside Bounds.
// The model is typically a force or velocity response of the excitations, which
// live in [0, 1]; nil Bounds selects that range for every variable.
type Linearized struct {
	Toggle
	Weight float64
	// Model evaluates the m outputs at x.
	Model   func(x, y []float64)
	Outputs int
	// Target returns the desired outputs at time t.
	Target func(t float64) []float64
	// Point is the operating point, typically the previous excitation.
	Point  []float64
	Method numdiff.Method
	Bounds []numdiff.Bound

	jac numdiff.Jacobian
}

func (l *Linearized) Kind() Kind { return Cost }

func (l *Linearized) AddCost(q *qp.Matrix, p []float64, t0, t1 float64) {
	n, m := len(p), l.Outputs
	if len(l.Point) != n {
		panic(fmt.Sprintf("term: operating point has %d elements, want %d", len(l.Point), n))
	}

	bnd := l.Bounds
	if bnd == nil {
		bnd = slices.Repeat([]numdiff.Bound{numdiff.Unit}, n)
	}
	l.jac.N, l.jac.M = n, m
	l.jac.Func, l.jac.Method, l.jac.Bounds = l.Model, l.Method, bnd

	x0 := slices.Clone(l.Point)
	h := qp.NewMatrix(m, n)
	if err := l.jac.Eval(x0, h.Data); err != nil {
		panic("term: linearization failed: " + err.Error())
	}

	target := l.Target(t1)
	if len(target) != m {
		panic(fmt.Sprintf("term: target has %d elements, want %d", len(target), m))
	}
	// 𝐉𝐱 ≅ 𝐲 - 𝐟(𝐱₀) + 𝐉𝐱₀
	f0 := make([]float64, m)
	l.Model(x0, f0)
	y := make([]float64, m)
	h.MulVec(x0, y)
	for k := range y {
		y[k] += target[k] - f0[k]
	}
	addLeastSquares(q, p, l.Weight, h, y)
}
