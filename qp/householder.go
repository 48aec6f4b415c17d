// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qp

import "math"

// h1 constructs the Householder transformation 𝐐 = 𝐈ₘ - b⁻¹𝐮𝐮ᵀ (b = s𝐮ₚ) that zeroes
// elements l through m-1 of the strided vector v while keeping elements before l.
//
// On return v[p] holds s, the tail of v holds the tail of 𝐮 and 𝐮ₚ is returned.
// An identity transformation is produced when p ≥ l or l ≥ m or v is zero.
//
// C.L. Lawson, R.J. Hanson, 'Solving least squares problems' Prentice Hall, 1974. (revised 1995 edition)
// Chapters 10.
func h1(p, l, m int, v []float64, ive int) (up float64) {
	if p < 0 || p >= l || l >= m {
		return
	}
	lp, l1, lm := uint(p*ive), uint(l*ive), uint((m-1)*ive)
	if ive <= 0 || lp >= uint(len(v)) || lm >= uint(len(v)) {
		panic("bound check error")
	}

	vmax := math.Abs(v[lp])
	for j := l1; j <= lm; j += uint(ive) {
		vmax = math.Max(math.Abs(v[j]), vmax)
	}
	if vmax <= zero {
		return
	}

	// (vₚ² + ∑vᵢ²)¹ᐟ² computed on the normalized vector
	inv := one / vmax
	sm := (v[lp] * inv) * (v[lp] * inv)
	for j := l1; j <= lm; j += uint(ive) {
		sm += (v[j] * inv) * (v[j] * inv)
	}
	s := vmax * math.Sqrt(sm)
	if v[lp] > zero {
		s = -s
	}
	up = v[lp] - s
	v[lp] = s
	return
}

// h2 applies the transformation built by h1 to ncv vectors stored in c.
//   - ice: the storage increment between elements of one vector in c.
//   - icv: the storage increment between vectors in c.
func h2(p, l, m int, u []float64, iue int, up float64, c []float64, ice, icv, ncv int) {
	if p < 0 || p >= l || l >= m || ncv <= 0 {
		return
	}
	b := u[p*iue] * up // b = s𝐮ₚ
	if b >= zero {
		return
	}
	b = one / b

	l1, lm := uint(l*iue), uint((m-1)*iue)
	base, incr := uint(ice*p), uint(ice*(l-p))
	last := base + uint(icv)*uint(ncv-1)
	if iue <= 0 || lm >= uint(len(u)) || last >= uint(len(c)) {
		panic("bound check error")
	}

	for j := base; j <= last; j += uint(icv) {
		c1 := j + incr
		if cm := c1 + uint(m-l-1)*uint(ice); cm >= uint(len(c)) {
			panic("bound check error")
		}
		// 𝐮ᵀ𝐜 = 𝐮ₚ𝐜ₚ + ∑𝐜ᵢ𝐮ᵢ
		sm := c[j] * up
		for iu, ic := l1, c1; iu <= lm; iu, ic = iu+uint(iue), ic+uint(ice) {
			sm += c[ic] * u[iu]
		}
		if sm == zero {
			continue
		}
		sm *= b
		c[j] += sm * up
		for iu, ic := l1, c1; iu <= lm; iu, ic = iu+uint(iue), ic+uint(ice) {
			c[ic] += sm * u[iu]
		}
	}
}

// g1 computes the Givens rotation that maps [a b]ᵀ to [σ 0]ᵀ.
//
//	⎡ c s⎤⎡a⎤ = ⎡σ⎤
//	⎣-s c⎦⎣b⎦   ⎣0⎦
//
// C.L. Lawson, R.J. Hanson, 'Solving least squares problems' Prentice Hall, 1974. (revised 1995 edition)
// Chapters 3.
func g1(a, b float64) (c, s, sig float64) {
	if xa, xb := math.Abs(a), math.Abs(b); xa > xb {
		xr := b / a
		yr := math.Sqrt(1 + xr*xr)
		c = math.Copysign(1/yr, a)
		s = c * xr
		sig = xa * yr
	} else if xb > 0 {
		xr := a / b
		yr := math.Sqrt(1 + xr*xr)
		s = math.Copysign(1/yr, b)
		c = s * xr
		sig = xb * yr
	} else {
		s = 1
	}
	return
}

// g2 applies the rotation computed by g1 to the pair (x, y).
func g2(c, s float64, x, y float64) (xr, yr float64) {
	return c*x + s*y, -s*x + c*y
}
