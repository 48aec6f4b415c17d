// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package term defines the pluggable cost and constraint contributions of a
// time-step QP and assembles them into dense matrices.
//
// Each enabled term contributes to exactly one side of the program:
//   - Cost terms add to 𝐐 and 𝐩 of ½ 𝐱ᵀ𝐐𝐱 + 𝐱ᵀ𝐩
//   - Equality terms own a contiguous row span of 𝐀ₑ𝐱 = 𝐛ₑ
//   - Inequality terms own a contiguous row span of 𝐀𝐱 ≥ 𝐛
package term

import (
	"strconv"

	"github.com/curioloop/inverse/qp"
)

// Kind tags the side of the program a term contributes to.
type Kind int

const (
	Cost Kind = iota
	Equality
	Inequality
)

func (k Kind) String() string {
	switch k {
	case Cost:
		return "cost"
	case Equality:
		return "equality"
	case Inequality:
		return "inequality"
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Term is the state shared by every contribution.
type Term interface {
	Enabled() bool
	Kind() Kind
}

// CostTerm adds a symmetric positive semi-definite contribution to 𝐐 and a
// linear contribution to 𝐩. Contributions are additive: a term must never
// overwrite what earlier terms wrote.
type CostTerm interface {
	Term
	AddCost(q *qp.Matrix, p []float64, t0, t1 float64)
}

// ConstraintTerm owns a fixed number of constraint rows.
//
// NumRows must return the same count for the same n until the assembly is complete.
// AddConstraint receives only the term's own rows, already offset, and returns the
// number of rows written, which must equal NumRows.
type ConstraintTerm interface {
	Term
	NumRows(n int) int
	AddConstraint(a *qp.Matrix, b []float64, t0, t1 float64) int
}

// Toggle is an embeddable enable flag. The zero value is enabled.
type Toggle struct {
	off bool
}

func (t *Toggle) Enabled() bool {
	return !t.off
}

func (t *Toggle) SetEnabled(on bool) {
	t.off = !on
}
