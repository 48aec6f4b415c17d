// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qp

import "math"

const (
	zero = 0.0
	one  = 1.0
	two  = 2.0
	eps  = float64(7)/3 - float64(4)/3 - 1.
)

var sqrtEps = math.Sqrt(eps) // square root of machine precision

// lsqMode reports the outcome of the least-squares kernels.
type lsqMode int

const (
	// lsqSolved the kernel produced a solution.
	lsqSolved lsqMode = iota
	// lsqBadArgument input dimension unacceptable.
	lsqBadArgument
	// lsqExceedMaxIter more than max iterations for solving NNLS.
	lsqExceedMaxIter
	// lsqIncompatible inequality constraints incompatible.
	lsqIncompatible
)
