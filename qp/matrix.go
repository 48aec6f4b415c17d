// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qp

import "slices"

// Matrix is a dense row-major matrix.
// Element (i,j) is stored at Data[i*Cols+j].
type Matrix struct {
	Rows, Cols int
	Data       []float64
}

// NewMatrix allocates a zero-initialized rows × cols matrix.
func NewMatrix(rows, cols int) *Matrix {
	if rows < 0 || cols < 0 {
		panic("negative matrix dimension")
	}
	return &Matrix{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

// NewMatrixFrom wraps row-major data, which must hold rows × cols elements.
func NewMatrixFrom(rows, cols int, data []float64) *Matrix {
	if rows < 0 || cols < 0 || len(data) != rows*cols {
		panic("matrix data does not match dimension")
	}
	return &Matrix{Rows: rows, Cols: cols, Data: data}
}

// Identity returns the n × n identity scaled by s.
func Identity(n int, s float64) *Matrix {
	m := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		m.Data[i*n+i] = s
	}
	return m
}

func (m *Matrix) At(i, j int) float64 {
	return m.Data[m.index(i, j)]
}

func (m *Matrix) Set(i, j int, v float64) {
	m.Data[m.index(i, j)] = v
}

// Add accumulates v into element (i,j).
func (m *Matrix) Add(i, j int, v float64) {
	m.Data[m.index(i, j)] += v
}

// Row returns row i as a slice sharing storage with m.
func (m *Matrix) Row(i int) []float64 {
	if i < 0 || i >= m.Rows {
		panic("row index out of range")
	}
	return m.Data[i*m.Cols : (i+1)*m.Cols : (i+1)*m.Cols]
}

// RowBlock returns a view of rows [off, off+rows) sharing storage with m.
// The view's capacity is capped so appends cannot reach rows outside the block.
func (m *Matrix) RowBlock(off, rows int) *Matrix {
	if off < 0 || rows < 0 || off+rows > m.Rows {
		panic("row block out of range")
	}
	lo, hi := off*m.Cols, (off+rows)*m.Cols
	return &Matrix{Rows: rows, Cols: m.Cols, Data: m.Data[lo:hi:hi]}
}

// Clone returns a deep copy of m.
func (m *Matrix) Clone() *Matrix {
	if m == nil {
		return nil
	}
	return &Matrix{Rows: m.Rows, Cols: m.Cols, Data: slices.Clone(m.Data)}
}

// MulVec computes y = m·x.
func (m *Matrix) MulVec(x, y []float64) {
	if len(x) != m.Cols || len(y) != m.Rows {
		panic("matrix vector dimension mismatch")
	}
	for i := 0; i < m.Rows; i++ {
		y[i] = ddot(m.Cols, m.Data[i*m.Cols:], x)
	}
}

func (m *Matrix) index(i, j int) int {
	if i < 0 || i >= m.Rows || j < 0 || j >= m.Cols {
		panic("matrix index out of range")
	}
	return i*m.Cols + j
}
