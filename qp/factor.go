// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qp

import "math"

// nullSpace holds the orthogonal factorization of the k × n working-set matrix 𝐖
//
//	                     k   n-k
//	                    ┌┴┐  ┌┴┐
//	𝐖ᵀ = 𝐐⎡𝐑⎤ = [ 𝐘 : 𝐙 ]⎡𝐑⎤
//	      ⎣೦⎦            ⎣೦⎦
//
// where 𝐑 is k × k upper triangular, the columns of 𝐘 span the range of 𝐖ᵀ
// and the columns of 𝐙 form an orthonormal basis of the null space 𝐖𝐙 = 0.
//
// 𝐐 is the product of k Householder transformations built by h1.
type nullSpace struct {
	n, k int
	f    []float64 // n × k column-major, Householder vectors below and 𝐑 on/above the diagonal
	up   []float64 // pivot scalars of the Householder vectors
	q    []float64 // n × n column-major [ 𝐘 : 𝐙 ]
}

// factor computes the factorization for the given working rows and reports
// false when a diagonal element of 𝐑 falls below tol relative to the largest row norm.
func (ns *nullSpace) factor(n int, rows [][]float64, tol float64) bool {
	k := len(rows)
	ns.n, ns.k = n, k
	ns.f = make([]float64, n*k)
	ns.up = make([]float64, k)
	ns.q = make([]float64, n*n)

	scale := zero
	for j, r := range rows {
		copy(ns.f[n*j:n*j+n], r)
		scale = math.Max(scale, dnrm2(n, r))
	}

	for i := 0; i < k; i++ {
		ns.up[i] = h1(i, i+1, n, ns.f[n*i:], 1)
		h2(i, i+1, n, ns.f[n*i:], 1, ns.up[i], ns.f[n*(i+1):], 1, n, k-i-1)
	}

	for i := 0; i < k; i++ {
		if d := math.Abs(ns.f[i+n*i]); d <= tol*scale || math.IsNaN(d) {
			return false
		}
	}

	// 𝐐 = 𝐇₀𝐇₁ ··· 𝐇ₖ₋₁ applied to 𝐈ₙ
	for i := 0; i < n; i++ {
		ns.q[i+n*i] = one
	}
	for i := k - 1; i >= 0; i-- {
		h2(i, i+1, n, ns.f[n*i:], 1, ns.up[i], ns.q, 1, n, n)
	}
	return true
}

// r returns the element 𝐑ᵢⱼ (i ≤ j).
func (ns *nullSpace) r(i, j int) float64 {
	return ns.f[i+ns.n*j]
}

// y returns the j-th column of 𝐘.
func (ns *nullSpace) y(j int) []float64 {
	return ns.q[ns.n*j : ns.n*(j+1)]
}

// z returns the j-th column of 𝐙.
func (ns *nullSpace) z(j int) []float64 {
	j += ns.k
	return ns.q[ns.n*j : ns.n*(j+1)]
}

// dim returns the dimension of the null space.
func (ns *nullSpace) dim() int {
	return ns.n - ns.k
}

// solveR overwrites v with 𝐑⁻¹v.
func (ns *nullSpace) solveR(v []float64) {
	for i := ns.k - 1; i >= 0; i-- {
		sm := v[i]
		for j := i + 1; j < ns.k; j++ {
			sm -= ns.r(i, j) * v[j]
		}
		v[i] = sm / ns.r(i, i)
	}
}

// solveRT overwrites v with 𝐑⁻ᵀv.
func (ns *nullSpace) solveRT(v []float64) {
	for i := 0; i < ns.k; i++ {
		sm := v[i]
		for j := 0; j < i; j++ {
			sm -= ns.r(j, i) * v[j]
		}
		v[i] = sm / ns.r(i, i)
	}
}

// independentRows selects, in row order, the rows of m that are linearly independent
// of the rows selected before them. Rows whose component orthogonal to the selected
// rows is below tol relative to their own norm are skipped.
func independentRows(m *Matrix, tol float64) []int {
	if m == nil || m.Rows == 0 {
		return nil
	}
	n := m.Cols
	var keep []int
	var basis [][]float64
	v := make([]float64, n)
	for i := 0; i < m.Rows && len(basis) < n; i++ {
		row := m.Row(i)
		rn := dnrm2(n, row)
		if rn == zero {
			continue
		}
		copy(v, row)
		// modified Gram-Schmidt, applied twice
		for pass := 0; pass < 2; pass++ {
			for _, b := range basis {
				daxpy(n, -ddot(n, b, v), b, v)
			}
		}
		vn := dnrm2(n, v)
		if vn <= tol*rn {
			continue
		}
		b := make([]float64, n)
		for j := range b {
			b[j] = v[j] / vn
		}
		basis = append(basis, b)
		keep = append(keep, i)
	}
	return keep
}
