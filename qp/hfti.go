// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qp

import "math"

// hfti (Householder Forward Triangulation with column Interchanges) solves 𝐀𝐗 ≅ 𝐁
// and returns the minimum length solution for a rank-deficient 𝐀.
//   - 𝐀 is m × n column-major matrix with leading dimension mda
//   - 𝐁 is m × nb column-major matrix with leading dimension mdb ≥ max(m, n)
//
// 𝐀 is reduced to 𝐐𝐀𝐏 = [𝐑₁₁ 𝐑₁₂; ೦ 𝐑₂₂] with column pivoting, the pseudo-rank k counts the
// diagonal elements of 𝐑 exceeding tau in magnitude, and 𝐑₂₂ is dropped.
// [𝐑₁₁ 𝐑₁₂] is further triangularized by 𝐊 such that the solution is 𝐱 = 𝐏𝐊[𝐖⁻¹𝐜₁ ೦]ᵀ.
//
// On return the first n rows of b hold 𝐗, norm[j] holds the residual norm of column j
// and the pseudo-rank is returned. h, g need min(m,n) (and at least n) elements, ip needs min(m,n).
//
// # References
//
//	C.L. Lawson, R.J. Hanson, 'Solving least squares problems' Prentice Hall, 1974. (revised 1995 edition)
//	Chapters 14, Algorithm 14.9.
func hfti(
	a []float64, mda, m, n int,
	b []float64, mdb, nb int,
	tau float64,
	norm []float64,
	h, g []float64, ip []int) int {

	const factor = 0.001

	diag := min(m, n)
	if diag <= 0 {
		return 0
	}
	if n > len(h) || diag > len(g) || diag > len(ip) || nb > len(norm) {
		panic("bound check error")
	}

	hmax := zero
	for j := 0; j < diag; j++ {
		// update squared column lengths and find lmax
		lmax := j
		if j > 0 {
			v := math.NaN()
			for l := j; l < n; l++ {
				t := a[(j-1)+mda*l]
				if h[l] -= t * t; !(h[l] <= v) {
					lmax, v = l, h[l]
				}
			}
		}
		// recompute when the downdated lengths lost accuracy
		if j == 0 || factor*h[lmax] < hmax*eps {
			v := math.NaN()
			for l := j; l < n; l++ {
				sm := zero
				for _, t := range a[j+mda*l : m+mda*l] {
					sm += t * t
				}
				if h[l] = sm; !(h[l] <= v) {
					lmax, v = l, h[l]
				}
			}
			hmax = h[lmax]
		}

		// column interchange 𝐏
		ip[j] = lmax
		if lmax != j {
			c1, c2 := a[mda*j:mda*j+m], a[mda*lmax:mda*lmax+m]
			for i := range c1 {
				c1[i], c2[i] = c2[i], c1[i]
			}
			h[lmax] = h[j]
		}

		// 𝐑 = 𝐐𝐀𝐏 and 𝐂 = 𝐐𝐁
		i := min(j+1, n-1)
		h[j] = h1(j, j+1, m, a[mda*j:], 1)
		h2(j, j+1, m, a[mda*j:], 1, h[j], a[mda*i:], 1, mda, n-j-1)
		h2(j, j+1, m, a[mda*j:], 1, h[j], b, 1, mdb, nb)
	}

	// pseudo-rank
	k := diag
	for j := 0; j < diag; j++ {
		if math.Abs(a[j+mda*j]) <= tau {
			k = j
			break
		}
	}

	// residual norms ‖𝐜₂‖
	for jb := 0; jb < nb; jb++ {
		sm := zero
		if k < m {
			for _, t := range b[mdb*jb+k : mdb*jb+m] {
				sm += t * t
			}
		}
		norm[jb] = math.Sqrt(sm)
	}

	if k == 0 {
		for jb := 0; jb < nb; jb++ {
			dzero(b[mdb*jb : mdb*jb+n])
		}
		return 0
	}

	// [𝐑₁₁ 𝐑₁₂]𝐊 = [𝐖 ೦]
	if k < n {
		for i := k - 1; i >= 0; i-- {
			g[i] = h1(i, k, n, a[i:], mda)
			h2(i, k, n, a[i:], mda, g[i], a, mda, 1, i)
		}
	}

	for jb := 0; jb < nb; jb++ {
		cb := b[mdb*jb:]
		if n > len(cb) {
			panic("bound check error")
		}

		// 𝐖𝐲₁ = 𝐜₁
		for i := k - 1; i >= 0; i-- {
			sm := zero
			for j := i + 1; j < k; j++ {
				sm += a[i+mda*j] * cb[j]
			}
			cb[i] = (cb[i] - sm) / a[i+mda*i]
		}

		// 𝐊[𝐲₁ ೦]ᵀ
		if k < n {
			dzero(cb[k:n])
			for i := 0; i < k; i++ {
				h2(i, k, n, a[i:], mda, g[i], cb, 1, mdb, 1)
			}
		}

		// undo 𝐏
		for j := diag - 1; j >= 0; j-- {
			if l := ip[j]; l != j {
				cb[l], cb[j] = cb[j], cb[l]
			}
		}
	}
	return k
}
