package numdiff

import (
	"errors"
	"math"
)

var sqrtEps = math.Sqrt(math.Nextafter(1, 2) - 1)
var cubeEps = math.Pow(math.Nextafter(1, 2)-1, float64(1)/3)

type Method int

const (
	// Forward use the first order accuracy forward difference.
	Forward Method = iota
	// Central use central difference in interior points and the second order accuracy
	// forward or backward difference near the boundary.
	Central
)

// Bound is the closed range [lower, upper] of one variable. Infinite ends are allowed.
type Bound [2]float64

// Unit is the range of a normalized excitation.
var Unit = Bound{0, 1}

// Jacobian estimates the M × N derivative matrix of a vector function by finite differences.
// Steps are shrunk or flipped so that every evaluation stays inside Bounds, which allows
// differentiating models that are only defined on the excitation range.
//
// # Reference:
//
//   - https://en.wikipedia.org/wiki/Finite_difference
//   - https://github.com/scipy/scipy/blob/main/scipy/optimize/_numdiff.py
//
// # License
//
//   - https://github.com/scipy/scipy/blob/main/LICENSE.txt
type Jacobian struct {
	N, M int
	// Function to differentiate: reads the n-vector x and writes the m-vector y.
	// x may be perturbed in place during evaluation but is restored before Eval returns.
	Func func(x, y []float64)
	// Finite difference method to use.
	Method Method
	// Lower and upper bounds of the variables. Nil means unbounded.
	Bounds []Bound
	// Relative step size. Zero selects sqrt(eps) for Forward and cbrt(eps) for Central
	// scaled by max(1, |x|); otherwise the step is RelStep × |x|.
	RelStep float64
	// Absolute step size, takes precedence over RelStep. The sign is ignored for Central.
	AbsStep float64

	f0, f1, f2 []float64
	step       []float64
	oneSide    []bool
}

// Check validates the configuration against x0 and the output size, and allocates workspace.
func (j *Jacobian) Check(x0, jac []float64) error {
	switch {
	case j.N <= 0 || j.M <= 0:
		return errors.New("dimensions must be positive")
	case j.Method != Forward && j.Method != Central:
		return errors.New("unknown method")
	case j.Func == nil:
		return errors.New("function is required")
	case j.N != len(x0):
		return errors.New("invalid x0 dimensions")
	case j.N*j.M != len(jac):
		return errors.New("invalid jacobian dimensions")
	case j.Bounds != nil && len(j.Bounds) != j.N:
		return errors.New("invalid bound dimension")
	}

	for i := range j.Bounds {
		lb, ub := j.limits(i)
		if lb > ub {
			return errors.New("invalid bound range")
		}
		if x0[i] < lb || x0[i] > ub {
			return errors.New("x0 violates bound constraints")
		}
	}

	if len(j.f0) != j.M {
		j.f0 = make([]float64, j.M)
		j.f1 = make([]float64, j.M)
		j.f2 = make([]float64, j.M)
	}
	if len(j.step) != j.N {
		j.step = make([]float64, j.N)
		j.oneSide = make([]bool, j.N)
	}
	return nil
}

// Eval writes the derivatives at x0 into jac in row-major order: jac[i*N+k] = ∂yᵢ/∂xₖ.
func (j *Jacobian) Eval(x0, jac []float64) error {
	if err := j.Check(x0, jac); err != nil {
		return err
	}
	j.initialStep(x0)
	j.fitBounds(x0)
	if j.Method == Central {
		j.central(x0, jac)
	} else {
		j.forward(x0, jac)
	}
	return nil
}

// limits returns the bound of variable i with NaN ends treated as infinite.
func (j *Jacobian) limits(i int) (lb, ub float64) {
	if j.Bounds == nil {
		return math.Inf(-1), math.Inf(1)
	}
	lb, ub = j.Bounds[i][0], j.Bounds[i][1]
	if math.IsNaN(lb) {
		lb = math.Inf(-1)
	}
	if math.IsNaN(ub) {
		ub = math.Inf(1)
	}
	return
}

func (j *Jacobian) bounded() bool {
	for i := range j.Bounds {
		if lb, ub := j.limits(i); !math.IsInf(lb, 0) || !math.IsInf(ub, 0) {
			return true
		}
	}
	return false
}

func (j *Jacobian) initialStep(x0 []float64) {
	eps := sqrtEps
	if j.Method == Central {
		eps = cubeEps
	}
	for i, v := range x0 {
		auto := math.Copysign(eps, v) * math.Max(1.0, math.Abs(v))
		s := j.AbsStep
		if s == 0 && j.RelStep == 0 {
			j.step[i] = auto
			continue
		}
		if s == 0 {
			s = math.Copysign(j.RelStep, v) * math.Abs(v)
		}
		if (v+s)-v == 0 {
			s = auto
		}
		j.step[i] = s
	}
}

// fitBounds flips or shrinks the steps so that x0 ± h stays feasible.
func (j *Jacobian) fitBounds(x0 []float64) {
	h, side := j.step, j.oneSide
	for i := range side {
		side[i] = false
	}
	if j.Method == Central {
		for i, v := range h {
			h[i] = math.Abs(v)
		}
	}
	if !j.bounded() {
		return
	}

	for i, x := range x0 {
		lb, ub := j.limits(i)
		ld, ud := x-lb, ub-x
		if j.Method == Forward {
			violated := x+h[i] < lb || x+h[i] > ub
			fits := math.Abs(h[i]) < math.Max(ld, ud)
			switch {
			case violated && fits:
				h[i] = -h[i]
			case !fits && ud >= ld:
				h[i] = ud
			case !fits:
				h[i] = -ld
			}
			continue
		}

		if ld >= h[i] && ud >= h[i] {
			continue
		}
		if ud >= ld {
			h[i] = math.Min(h[i], 0.5*ud)
		} else {
			h[i] = -math.Min(h[i], 0.5*ld)
		}
		side[i] = true
		// a shrunk central step is better than a one-sided one
		if gap := math.Min(ud, ld); math.Abs(h[i]) <= gap {
			h[i] = gap
			side[i] = false
		}
	}
}

func (j *Jacobian) forward(x0, jac []float64) {
	n, f0, f1 := j.N, j.f0, j.f1
	j.Func(x0, f0)
	for k, s := range j.step {
		t := x0[k]
		x0[k] = t + s
		j.Func(x0, f1)
		x0[k] = t
		inv := 1.0 / s
		for i := range f0 {
			jac[i*n+k] = (f1[i] - f0[i]) * inv
		}
	}
}

func (j *Jacobian) central(x0, jac []float64) {
	n, f0, f1, f2 := j.N, j.f0, j.f1, j.f2
	j.Func(x0, f0)
	for k, s := range j.step {
		t := x0[k]
		inv := 1.0 / (2 * s)
		if j.oneSide[k] {
			x0[k] = t + s
			j.Func(x0, f1)
			x0[k] = t + 2*s
			j.Func(x0, f2)
			for i := range f0 {
				jac[i*n+k] = (4*f1[i] - 3*f0[i] - f2[i]) * inv
			}
		} else {
			x0[k] = t - s
			j.Func(x0, f1)
			x0[k] = t + s
			j.Func(x0, f2)
			for i := range f0 {
				jac[i*n+k] = (f2[i] - f1[i]) * inv
			}
		}
		x0[k] = t
	}
}
