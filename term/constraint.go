// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package term

import (
	"fmt"
	"math"

	"github.com/curioloop/inverse/qp"
)

// Bounds keeps every variable in [Lower, Upper] with one inequality row per finite bound:
// 𝐱ᵢ ≥ lᵢ and -𝐱ᵢ ≥ -uᵢ. Lower rows come first, both in variable order.
//
// A nil Lower selects 0 and a nil Upper selects 1 for every variable, the range
// of a normalized excitation. Infinite entries produce no row.
type Bounds struct {
	Toggle
	Lower, Upper []float64
}

func (bd *Bounds) Kind() Kind { return Inequality }

func (bd *Bounds) limits(n int) (lower, upper func(int) float64) {
	pick := func(v []float64, def float64, name string) func(int) float64 {
		if v == nil {
			return func(int) float64 { return def }
		}
		if len(v) != n {
			panic(fmt.Sprintf("term: %s bound has %d elements, want %d", name, len(v), n))
		}
		return func(i int) float64 { return v[i] }
	}
	return pick(bd.Lower, 0, "lower"), pick(bd.Upper, 1, "upper")
}

func (bd *Bounds) NumRows(n int) (rows int) {
	lower, upper := bd.limits(n)
	for i := 0; i < n; i++ {
		if !math.IsInf(lower(i), 0) {
			rows++
		}
		if !math.IsInf(upper(i), 0) {
			rows++
		}
	}
	return
}

func (bd *Bounds) AddConstraint(a *qp.Matrix, b []float64, t0, t1 float64) int {
	n := a.Cols
	lower, upper := bd.limits(n)
	row := 0
	for i := 0; i < n; i++ {
		if l := lower(i); !math.IsInf(l, 0) {
			a.Set(row, i, 1)
			b[row] = l
			row++
		}
	}
	for i := 0; i < n; i++ {
		if u := upper(i); !math.IsInf(u, 0) {
			a.Set(row, i, -1)
			b[row] = -u
			row++
		}
	}
	return row
}

// Linear contributes fixed rows 𝐀𝐱 = 𝐛 or 𝐀𝐱 ≥ 𝐛 depending on Type.
type Linear struct {
	Toggle
	Type Kind
	A    *qp.Matrix
	B    []float64
}

func (l *Linear) Kind() Kind { return l.Type }

func (l *Linear) NumRows(n int) int {
	if l.A == nil {
		return 0
	}
	if l.A.Cols != n || len(l.B) != l.A.Rows {
		panic(fmt.Sprintf("term: linear rows are %d×%d with %d bounds, problem size %d", l.A.Rows, l.A.Cols, len(l.B), n))
	}
	return l.A.Rows
}

func (l *Linear) AddConstraint(a *qp.Matrix, b []float64, t0, t1 float64) int {
	if l.A == nil {
		return 0
	}
	copy(a.Data, l.A.Data)
	copy(b, l.B)
	return l.A.Rows
}
