// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package qpdump reads and writes the plain-text snapshot of a solved QP.
//
// The format is line oriented:
//
//	size: <n> nc: <inequality rows>
//	Q:
//	<n rows of n numbers>
//	f:
//	<n numbers>
//	A:
//	<nc rows of n numbers>
//	b:
//	<nc numbers>
//	x:
//	<n numbers>
//
// followed by optional "Aeq:" and "beq:" blocks when the problem has equality rows.
// Numbers are printed with %g and separated by single spaces.
package qpdump

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/curioloop/inverse/qp"
)

// ErrFormat is wrapped by every parse failure.
var ErrFormat = errors.New("qpdump: malformed dump")

// Record is one dumped problem together with the solution computed for it.
type Record struct {
	Q   *qp.Matrix
	F   []float64
	A   *qp.Matrix
	B   []float64
	Aeq *qp.Matrix
	Beq []float64
	X   []float64
}

// FromProblem captures p and x without copying.
func FromProblem(p *qp.Problem, x []float64) Record {
	r := Record{Q: p.Q, F: p.P, A: p.A, B: p.B, X: x}
	if p.NumEq() > 0 {
		r.Aeq, r.Beq = p.Aeq, p.Beq
	}
	return r
}

// Problem rebuilds the QP of the record.
func (r Record) Problem() *qp.Problem {
	return &qp.Problem{N: len(r.F), Q: r.Q, P: r.F, A: r.A, B: r.B, Aeq: r.Aeq, Beq: r.Beq}
}

// N returns the number of unknowns.
func (r Record) N() int { return len(r.F) }

// NumIneq returns the number of inequality rows.
func (r Record) NumIneq() int { return len(r.B) }

// NumEq returns the number of equality rows.
func (r Record) NumEq() int { return len(r.Beq) }

// Write encodes r to w.
func Write(w io.Writer, r Record) error {
	n := r.N()
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "size: %d nc: %d\n", n, r.NumIneq())
	bw.WriteString("Q:\n")
	writeMatrix(bw, r.Q)
	bw.WriteString("f:\n")
	writeVector(bw, r.F)
	bw.WriteString("A:\n")
	writeMatrix(bw, r.A)
	bw.WriteString("b:\n")
	writeVector(bw, r.B)
	bw.WriteString("x:\n")
	writeVector(bw, r.X)
	if r.NumEq() > 0 {
		bw.WriteString("Aeq:\n")
		writeMatrix(bw, r.Aeq)
		bw.WriteString("beq:\n")
		writeVector(bw, r.Beq)
	}
	return bw.Flush()
}

// WriteFile encodes r into the named file, replacing its content.
func WriteFile(name string, r Record) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return Write(f, r)
}

func writeMatrix(w *bufio.Writer, m *qp.Matrix) {
	if m == nil {
		return
	}
	for i := 0; i < m.Rows; i++ {
		writeVector(w, m.Row(i))
	}
}

func writeVector(w *bufio.Writer, v []float64) {
	for i, x := range v {
		if i > 0 {
			w.WriteByte(' ')
		}
		w.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
	}
	w.WriteByte('\n')
}

// ReadFile decodes the named dump.
func ReadFile(name string) (Record, error) {
	f, err := os.Open(name)
	if err != nil {
		return Record{}, err
	}
	defer f.Close()
	return Read(f)
}

// Read decodes one dump from r.
func Read(r io.Reader) (Record, error) {
	p := parser{sc: bufio.NewScanner(r)}
	p.sc.Buffer(make([]byte, 64*1024), 64*1024*1024)

	header, ok := p.next()
	if !ok {
		return Record{}, p.fail("missing header")
	}
	var n, nc int
	if _, err := fmt.Sscanf(header, "size: %d nc: %d", &n, &nc); err != nil || n < 0 || nc < 0 {
		return Record{}, p.fail("bad header %q", header)
	}

	var rec Record
	var err error
	if rec.Q, err = p.matrix("Q", n, n); err != nil {
		return Record{}, err
	}
	if rec.F, err = p.vector("f", n); err != nil {
		return Record{}, err
	}
	if rec.A, err = p.matrix("A", nc, n); err != nil {
		return Record{}, err
	}
	if rec.B, err = p.vector("b", nc); err != nil {
		return Record{}, err
	}
	if rec.X, err = p.vector("x", n); err != nil {
		return Record{}, err
	}

	if _, ok := p.peek(); !ok {
		return rec, p.sc.Err()
	}
	if n == 0 {
		return Record{}, p.fail("equality rows without unknowns")
	}
	rows, err := p.rows("Aeq", n)
	if err != nil {
		return Record{}, err
	}
	rec.Aeq = qp.NewMatrixFrom(len(rows)/n, n, rows)
	if rec.Beq, err = p.vector("beq", rec.Aeq.Rows); err != nil {
		return Record{}, err
	}
	if extra, ok := p.peek(); ok {
		return Record{}, p.fail("unexpected %q", extra)
	}
	return rec, p.sc.Err()
}

type parser struct {
	sc   *bufio.Scanner
	line int
	buf  *string
}

func (p *parser) fail(format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrFormat, p.line, fmt.Sprintf(format, args...))
}

// peek returns the next non-blank line without consuming it.
func (p *parser) peek() (string, bool) {
	if p.buf != nil {
		return *p.buf, true
	}
	for p.sc.Scan() {
		p.line++
		if s := strings.TrimSpace(p.sc.Text()); s != "" {
			p.buf = &s
			return s, true
		}
	}
	return "", false
}

func (p *parser) next() (string, bool) {
	s, ok := p.peek()
	p.buf = nil
	return s, ok
}

func isLabel(s string) bool {
	switch s {
	case "Q:", "f:", "A:", "b:", "x:", "Aeq:", "beq:":
		return true
	}
	return false
}

// rows reads the numbers that follow the label up to the next label or the end,
// checking that every line holds exactly width numbers.
func (p *parser) rows(label string, width int) ([]float64, error) {
	if s, ok := p.next(); !ok || s != label+":" {
		return nil, p.fail("expected %s:", label)
	}
	data := []float64{}
	for {
		s, ok := p.peek()
		if !ok || isLabel(s) {
			return data, nil
		}
		p.next()
		fields := strings.Fields(s)
		if len(fields) != width {
			return nil, p.fail("%s row has %d numbers, want %d", label, len(fields), width)
		}
		for _, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, p.fail("%s: %v", label, err)
			}
			data = append(data, v)
		}
	}
}

func (p *parser) matrix(label string, rows, cols int) (*qp.Matrix, error) {
	if cols == 0 {
		// rows of width zero are blank and cannot be told apart
		if _, err := p.rows(label, 0); err != nil {
			return nil, err
		}
		return qp.NewMatrix(rows, 0), nil
	}
	data, err := p.rows(label, cols)
	if err != nil {
		return nil, err
	}
	if len(data) != rows*cols {
		return nil, p.fail("%s has %d rows, want %d", label, len(data)/cols, rows)
	}
	return qp.NewMatrixFrom(rows, cols, data), nil
}

func (p *parser) vector(label string, size int) ([]float64, error) {
	if size == 0 {
		if _, err := p.rows(label, 0); err != nil {
			return nil, err
		}
		return []float64{}, nil
	}
	data, err := p.rows(label, size)
	if err != nil {
		return nil, err
	}
	if len(data) != size {
		return nil, p.fail("%s has %d numbers, want %d", label, len(data), size)
	}
	return data, nil
}
