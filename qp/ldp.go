// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qp

import "math"

// ldp (Least Distance Programming) solves 𝚖𝚒𝚗 ‖ 𝐱 ‖₂ subject to 𝐆𝐱 ≥ 𝐡.
//   - 𝐆 is m × n column-major matrix with leading dimension mdg (no rank assumption)
//   - 𝐱 ∈ ℝⁿ
//   - 𝐡 ∈ ℝᵐ
//
// The problem is reduced to NNLS with the (n+1) × m matrix 𝐄 = [𝐆 : 𝐡]ᵀ and 𝐟 = [Oₙ : 1]ᵀ.
// Given the NNLS solution 𝐮 with residual 𝐫 = 𝐄𝐮 - 𝐟:
//   - ‖ 𝐫 ‖₂ = 0 means the constraints are incompatible
//   - otherwise 𝐱 = [𝐫₁ ··· 𝐫ₙ]ᵀ/(-𝐫ₙ₊₁) = 𝐆ᵀ𝐮 / (1 - 𝐡ᵀ𝐮)
//   - the multipliers of 𝐆𝐱 ≥ 𝐡 are 𝐮 / (1 - 𝐡ᵀ𝐮) and are stored in w[:m]
//
// # References
//
//	C.L. Lawson, R.J. Hanson, 'Solving least squares problems' Prentice Hall, 1974. (revised 1995 edition)
//	Chapters 23, Algorithm 23.27.
func ldp(
	m, n int,
	g []float64, mdg int,
	h []float64,
	x []float64,
	// working space: (n+1)×(m+2)+2m
	w []float64,
	// working space: m
	jw []int,
	maxIter int,
) (xnorm float64, mode lsqMode) {

	if n <= 0 {
		return math.NaN(), lsqBadArgument
	}
	if m <= 0 {
		dzero(x[:n])
		return 0, lsqSolved
	}

	if m > mdg || mdg*(n-1)+m > len(g) || m > len(h) || n > len(x) || (n+1)*(m+2)+2*m > len(w) || m > len(jw) {
		panic("bound check error")
	}

	iw := 0
	e := w[iw : iw+m*(n+1)]
	iw += len(e)
	f := w[iw : iw+(n+1)]
	iw += len(f)
	z := w[iw : iw+(n+1)]
	iw += len(z)
	u := w[iw : iw+m]
	iw += len(u)
	dv := w[iw : iw+m]

	for j := 0; j < m; j++ {
		dcopy(n, g[j:], mdg, e[j*(n+1):], 1) // 𝐆ᵀ
		e[j*(n+1)+n] = h[j]                  // 𝐡ᵀ
	}
	dzero(f[:n])
	f[n] = one

	var rnorm float64
	rnorm, mode = nnls(n+1, m, e, n+1, f, u, dv, z, jw, maxIter)

	var fac float64
	if mode == lsqSolved {
		if rnorm <= zero {
			mode = lsqIncompatible
		} else if fac = one - ddot(m, h, u); math.IsNaN(fac) || fac < eps {
			mode = lsqIncompatible
		}
	}
	if mode != lsqSolved {
		return math.NaN(), mode
	}

	fac = one / fac
	for j := 0; j < n; j++ {
		x[j] = ddot(m, g[mdg*j:], u) * fac
	}
	for j := 0; j < m; j++ {
		w[j] = u[j] * fac
	}
	return dnrm2(n, x), mode
}
