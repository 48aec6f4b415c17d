// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qp

import "math"

// daxpy performs dy += da × dx over the first n elements.
func daxpy(n int, da float64, dx, dy []float64) {
	if n <= 0 || da == zero {
		return
	}
	x, y := dx[:n:n], dy[:n:n]
	for i, v := range x {
		y[i] += da * v
	}
}

// ddot computes the dot product of the first n elements.
func ddot(n int, dx, dy []float64) (dot float64) {
	if n <= 0 {
		return zero
	}
	x, y := dx[:n:n], dy[:n:n]
	m := n % 4
	for i := 0; i < m; i++ {
		dot += x[i] * y[i]
	}
	for i := m; i < n; i += 4 {
		a := x[i : i+4 : i+4]
		b := y[i : i+4 : i+4]
		dot += a[0]*b[0] + a[1]*b[1] + a[2]*b[2] + a[3]*b[3]
	}
	return
}

// dcopy copies a strided vector x to a strided vector y.
func dcopy(n int, dx []float64, incx int, dy []float64, incy int) {
	if n <= 0 {
		return
	}
	if incx == 1 && incy == 1 {
		copy(dy[:n], dx[:n])
		return
	}
	lx, ly := uint(incx*(n-1)), uint(incy*(n-1))
	if lx >= uint(len(dx)) || ly >= uint(len(dy)) {
		panic("bound check error")
	}
	for ix, iy := uint(0), uint(0); ix <= lx && iy <= ly; ix, iy = ix+uint(incx), iy+uint(incy) {
		dy[iy] = dx[ix]
	}
}

// dnrm2 computes the Euclidean norm of the first n elements without overflow.
func dnrm2(n int, x []float64) float64 {
	if n < 1 {
		return zero
	}
	if n == 1 {
		return math.Abs(x[0])
	}
	scale, ssq := zero, one
	for _, v := range x[:n:n] {
		if absxi := math.Abs(v); absxi > 0 {
			if scale < absxi {
				sxi := scale / absxi
				ssq = 1 + ssq*sxi*sxi
				scale = absxi
			} else {
				sxi := absxi / scale
				ssq += sxi * sxi
			}
		}
	}
	return scale * math.Sqrt(ssq)
}

// dzero fills vector x with zero.
func dzero(dx []float64) {
	for i := range dx {
		dx[i] = zero
	}
}

// damax returns the largest absolute element of x.
func damax(x []float64) (m float64) {
	for _, v := range x {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return
}
