// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qp

import (
	"errors"
	"fmt"
	"math"
)

// Problem is a dense convex quadratic program
//
//	minimize ½ 𝐱ᵀ𝐐𝐱 + 𝐱ᵀ𝐩 subject to
//	  - inequality constraints: 𝐀𝐱 ≥ 𝐛
//	  - equality constraints: 𝐀ₑ𝐱 = 𝐛ₑ
//
// A nil constraint matrix is treated as having zero rows.
type Problem struct {
	N   int       // The number of unknowns
	Q   *Matrix   // N × N symmetric positive semi-definite cost matrix
	P   []float64 // N cost vector
	A   *Matrix   // inequality rows
	B   []float64 // inequality right-hand side
	Aeq *Matrix   // equality rows
	Beq []float64 // equality right-hand side
}

// NewProblem allocates a zero problem with the given dimension and row counts.
func NewProblem(n, numEq, numIneq int) *Problem {
	return &Problem{
		N:   n,
		Q:   NewMatrix(n, n),
		P:   make([]float64, n),
		A:   NewMatrix(numIneq, n),
		B:   make([]float64, numIneq),
		Aeq: NewMatrix(numEq, n),
		Beq: make([]float64, numEq),
	}
}

// NumIneq returns the number of inequality rows.
func (p *Problem) NumIneq() int {
	if p.A == nil {
		return 0
	}
	return p.A.Rows
}

// NumEq returns the number of equality rows.
func (p *Problem) NumEq() int {
	if p.Aeq == nil {
		return 0
	}
	return p.Aeq.Rows
}

// Check validates the problem dimensions.
func (p *Problem) Check() (err error) {
	n := p.N
	switch {
	case n < 0:
		err = errors.New("problem dimension must not be negative")
	case p.Q == nil && n > 0:
		err = errors.New("cost matrix is required")
	case p.Q != nil && (p.Q.Rows != n || p.Q.Cols != n || len(p.Q.Data) != n*n):
		err = fmt.Errorf("cost matrix must be %d×%d", n, n)
	case len(p.P) != n:
		err = fmt.Errorf("cost vector must have %d elements", n)
	case p.A != nil && (p.A.Cols != n || len(p.A.Data) != p.A.Rows*n):
		err = fmt.Errorf("inequality matrix must have %d columns", n)
	case len(p.B) != p.NumIneq():
		err = errors.New("inequality vector size must equal to inequality rows")
	case p.Aeq != nil && (p.Aeq.Cols != n || len(p.Aeq.Data) != p.Aeq.Rows*n):
		err = fmt.Errorf("equality matrix must have %d columns", n)
	case len(p.Beq) != p.NumEq():
		err = errors.New("equality vector size must equal to equality rows")
	}
	return
}

// finite reports whether every number in the problem is finite.
func (p *Problem) finite() bool {
	all := func(v []float64) bool {
		for _, x := range v {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return false
			}
		}
		return true
	}
	ok := all(p.P) && all(p.B) && all(p.Beq)
	for _, m := range []*Matrix{p.Q, p.A, p.Aeq} {
		if m != nil {
			ok = ok && all(m.Data)
		}
	}
	return ok
}
