// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package term

import (
	"fmt"
	"math"

	"github.com/curioloop/inverse/qp"
)

// DefaultSymmetryTolerance is the relative asymmetry of 𝐐 accepted as round-off.
const DefaultSymmetryTolerance = 1e-9

// Assembler builds a dense QP from cost and constraint terms in two passes:
// the first pass sizes every buffer from the row counts of the enabled constraint
// terms, the second lets each term fill its own region.
//
// Misbehaving terms are programming errors and make Assemble panic.
type Assembler struct {
	// Relative asymmetry of 𝐐 tolerated and removed by averaging.
	// Zero selects DefaultSymmetryTolerance.
	SymmetryTolerance float64
}

// Counts returns the number of equality and inequality rows declared by the enabled terms.
func (as Assembler) Counts(cons []ConstraintTerm, n int) (numEq, numIneq int) {
	for _, c := range as.count(cons, n) {
		switch c.kind {
		case Equality:
			numEq += c.rows
		case Inequality:
			numIneq += c.rows
		}
	}
	return
}

type rowSpan struct {
	kind Kind
	rows int
}

func (as Assembler) count(cons []ConstraintTerm, n int) []rowSpan {
	if n < 0 {
		panic(fmt.Sprintf("term: negative problem size %d", n))
	}
	spans := make([]rowSpan, len(cons))
	for i, c := range cons {
		if c == nil {
			panic(fmt.Sprintf("term: constraint term %d is nil", i))
		}
		if !c.Enabled() {
			continue
		}
		k := c.Kind()
		if k != Equality && k != Inequality {
			panic(fmt.Sprintf("term: constraint term %d has kind %v", i, k))
		}
		r := c.NumRows(n)
		if r < 0 {
			panic(fmt.Sprintf("term: constraint term %d declares %d rows", i, r))
		}
		spans[i] = rowSpan{kind: k, rows: r}
	}
	return spans
}

// Assemble returns the problem of size n built from the enabled terms in slice order.
// Every buffer is freshly allocated and zeroed, disabled and zero-row terms leave no trace,
// and the returned 𝐐 is exactly symmetric.
func (as Assembler) Assemble(costs []CostTerm, cons []ConstraintTerm, n int, t0, t1 float64) *qp.Problem {
	spans := as.count(cons, n)
	var numEq, numIneq int
	for _, s := range spans {
		switch s.kind {
		case Equality:
			numEq += s.rows
		case Inequality:
			numIneq += s.rows
		}
	}

	prob := qp.NewProblem(n, numEq, numIneq)

	for i, c := range costs {
		if c == nil {
			panic(fmt.Sprintf("term: cost term %d is nil", i))
		}
		if !c.Enabled() {
			continue
		}
		if k := c.Kind(); k != Cost {
			panic(fmt.Sprintf("term: cost term %d has kind %v", i, k))
		}
		c.AddCost(prob.Q, prob.P, t0, t1)
	}

	var rowEq, rowIneq int
	for i, c := range cons {
		s := spans[i]
		if !c.Enabled() || s.rows == 0 {
			if c.Enabled() != (s.kind != Cost) {
				panic(fmt.Sprintf("term: constraint term %d toggled during assembly", i))
			}
			continue
		}
		if r := c.NumRows(n); r != s.rows {
			panic(fmt.Sprintf("term: constraint term %d declared %d rows then %d", i, s.rows, r))
		}
		var a *qp.Matrix
		var b []float64
		off := &rowIneq
		if s.kind == Equality {
			a, b, off = prob.Aeq, prob.Beq, &rowEq
		} else {
			a, b = prob.A, prob.B
		}
		lo, hi := *off, *off+s.rows
		if w := c.AddConstraint(a.RowBlock(lo, s.rows), b[lo:hi:hi], t0, t1); w != s.rows {
			panic(fmt.Sprintf("term: constraint term %d wrote %d rows, declared %d", i, w, s.rows))
		}
		*off = hi
	}

	as.symmetrize(prob.Q)
	return prob
}

// symmetrize replaces 𝐐 by ½(𝐐 + 𝐐ᵀ) and panics when the asymmetry exceeds round-off.
func (as Assembler) symmetrize(q *qp.Matrix) {
	tol := as.SymmetryTolerance
	if tol == 0 {
		tol = DefaultSymmetryTolerance
	}
	scale := 1.0
	for _, v := range q.Data {
		scale = math.Max(scale, math.Abs(v))
	}
	n := q.Rows
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			a, b := q.At(i, j), q.At(j, i)
			if math.Abs(a-b) > tol*scale {
				panic(fmt.Sprintf("term: cost matrix asymmetric at (%d,%d): %g != %g", i, j, a, b))
			}
			m := 0.5 * (a + b)
			q.Set(i, j, m)
			q.Set(j, i, m)
		}
	}
}
