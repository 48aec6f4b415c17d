// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qp

import "strconv"

// Status reports the outcome of a QP solve.
type Status int

const (
	// Solved the KKT conditions hold within tolerance.
	Solved Status = iota
	// Infeasible the constraints admit no point.
	Infeasible
	// Unbounded a descent ray exists that no constraint blocks.
	Unbounded
	// IterationLimit more than the configured number of active-set iterations.
	IterationLimit
	// NumericalError a factorization failed or the input is not finite.
	NumericalError
)

var statusNames = [...]string{
	Solved:         "SOLVED",
	Infeasible:     "INFEASIBLE",
	Unbounded:      "UNBOUNDED",
	IterationLimit: "ITERATION_LIMIT",
	NumericalError: "NUMERICAL_ERROR",
}

func (s Status) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "Status(" + strconv.Itoa(int(s)) + ")"
}

// Statuses lists every status in declaration order.
func Statuses() []Status {
	return []Status{Solved, Infeasible, Unbounded, IterationLimit, NumericalError}
}
