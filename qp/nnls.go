// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qp

import "math"

// nnls (Non-Negative Least-Squares) solves 𝚖𝚒𝚗‖ 𝐀𝐱 - 𝐛 ‖₂ subject to 𝐱 ≥ 0 with an active-set method.
//   - 𝐀 is m × n column-major matrix with leading dimension mda
//   - 𝐱 ∈ ℝⁿ
//   - 𝐛 ∈ ℝᵐ
//
// Two index sets partition the columns:
//   - ℤ : variables held at zero
//   - ℙ : variables free to take positive values
//
// Each outer pass moves the column with the largest positive dual 𝐰ⱼ = [𝐀ᵀ(𝐛 - 𝐀𝐱)]ⱼ from ℤ to ℙ
// and triangularizes it with a Householder transformation.
// The inner loop solves the least-squares problem on ℙ; when the candidate 𝐳 leaves the positive orthant
// the iterate is interpolated to the boundary and the offending columns are moved back to ℤ
// with Givens rotations that restore the triangular form.
//
// On return a holds 𝐐𝐀, b holds 𝐐𝐛, w holds the dual vector and the residual norm is returned.
//
// # References
//
//	C.L. Lawson, R.J. Hanson, 'Solving least squares problems' Prentice Hall, 1974. (revised 1995 edition)
//	Chapters 23, Algorithm 23.10.
func nnls(
	m, n int,
	a []float64, mda int,
	b []float64,
	x []float64,
	w []float64,
	// working space: z is an m-vector, index an n-vector
	z []float64, index []int,
	maxIter int) (float64, lsqMode) {

	const factor = 0.01

	if m <= 0 || n <= 0 || mda < m ||
		len(a) < mda*n || len(b) < m || len(x) < n || len(w) < n || len(z) < m || len(index) < n {
		return math.NaN(), lsqBadArgument
	}

	if maxIter <= 0 {
		maxIter = 3 * n
	}

	// ℙ = index[:np], ℤ = index[np:]
	np := 0
	index = index[:n]
	for i := range index {
		index[i] = i
	}
	dzero(x[:n])

	iter := 0
	term := func() (rnorm float64, mode lsqMode) {
		if np < m {
			rnorm = dnrm2(m-np, b[np:])
		} else {
			dzero(w[:n])
		}
		if iter > maxIter {
			return rnorm, lsqExceedMaxIter
		}
		return rnorm, lsqSolved
	}

	for {
		if np >= n || np >= m {
			return term()
		}

		// 𝐰ⱼ = 𝐀ᵀ(𝐛 - 𝐀𝐱) for j ∈ ℤ
		for _, j := range index[np:] {
			w[j] = ddot(m-np, a[np+mda*j:], b[np:])
		}

		for {
			// t = 𝚊𝚛𝚐𝚖𝚊𝚡 { 𝐰ⱼ: j ∈ ℤ }
			wmax, iz := zero, -1
			for i, j := range index[np:] {
				if w[j] > wmax {
					wmax, iz = w[j], np+i
				}
			}
			// Kuhn-Tucker conditions hold
			if iz < 0 {
				return term()
			}

			j := index[iz]
			aj := a[mda*j : mda*j+m : mda*j+m]
			asave := aj[np]
			up := h1(np, np+1, m, aj, 1)

			// reject columns that are nearly dependent on ℙ
			accept := false
			if unorm := dnrm2(np, aj); math.Abs(aj[np])*factor >= unorm*eps {
				copy(z[:m], b[:m])
				h2(np, np+1, m, aj, 1, up, z, 1, 1, 1)
				accept = z[np]/aj[np] > zero
			}
			if !accept {
				aj[np] = asave
				w[j] = zero
				continue
			}

			copy(b[:m], z[:m])
			index[iz] = index[np]
			index[np] = j
			np++

			for _, jj := range index[np:] {
				h2(np-1, np, m, aj, 1, up, a[jj*mda:], 1, mda, 1)
			}
			if np < m {
				dzero(aj[np:m])
			}
			w[j] = zero
			break
		}

		for {
			// 𝐳 = 𝐑⁻¹𝐐𝐛 restricted to ℙ
			for ip, jj := np-1, -1; ip >= 0; ip-- {
				if jj >= 0 {
					daxpy(ip+1, -z[ip+1], a[jj*mda:], z)
				}
				jj = index[ip]
				z[ip] /= a[ip+jj*mda]
			}

			if iter++; iter > maxIter {
				return term()
			}

			// ɑ = 𝚖𝚒𝚗 { 𝐱ⱼ/(𝐱ⱼ-𝐳ⱼ) : 𝐳ⱼ ≤ 0, j ∈ ℙ }
			alpha, jj := two, -1
			for ip, l := range index[:np] {
				if z[ip] <= zero {
					if t := -x[l] / (z[ip] - x[l]); alpha > t {
						alpha, jj = t, ip
					}
				}
			}

			if jj < 0 {
				for ip, l := range index[:np] {
					x[l] = z[ip]
				}
				break
			}

			// 𝐱 = 𝐱 + ɑ(𝐳 - 𝐱)
			for ip, l := range index[:np] {
				x[l] += alpha * (z[ip] - x[l])
			}

			for jj >= 0 {
				i := index[jj]
				x[i] = zero
				for j := jj + 1; j < np; j++ {
					ii := index[j]
					ci := a[ii*mda:]
					index[j-1] = ii
					var cc, ss float64
					cc, ss, ci[j-1] = g1(ci[j-1], ci[j])
					ci[j] = zero
					for l := 0; l < n; l++ {
						if l != ii {
							cl := a[l*mda : l*mda+j+1 : l*mda+j+1]
							cl[j-1], cl[j] = g2(cc, ss, cl[j-1], cl[j])
						}
					}
					b[j-1], b[j] = g2(cc, ss, b[j-1], b[j])
				}
				np--
				index[np] = i

				// coefficients driven non-positive by round-off leave ℙ as well
				jj = -1
				for ip, l := range index[:np] {
					if x[l] <= zero {
						jj = ip
						break
					}
				}
			}

			copy(z[:m], b[:m])
		}
	}
}
