// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qpdump

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/curioloop/inverse/qp"
	"github.com/stretchr/testify/require"
)

func sampleRecord() Record {
	return Record{
		Q: qp.NewMatrixFrom(2, 2, []float64{1, 0, 0, 1}),
		F: []float64{-2, -2},
		A: qp.NewMatrixFrom(1, 2, []float64{-1, 0}),
		B: []float64{-1},
		X: []float64{1, 2},
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleRecord()))
	require.Equal(t, `size: 2 nc: 1
Q:
1 0
0 1
f:
-2 -2
A:
-1 0
b:
-1
x:
1 2
`, buf.String())
}

func TestReadWrite(t *testing.T) {
	rec := sampleRecord()
	rec.F[0] = 1.0 / 3
	rec.Aeq = qp.NewMatrixFrom(2, 2, []float64{1, 1, 1e-300, -2.5e7})
	rec.Beq = []float64{1, 0}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, rec))
	require.Contains(t, buf.String(), "Aeq:\n1 1\n1e-300 -2.5e+07\nbeq:\n1 0\n")

	got, err := Read(&buf)
	require.NoError(t, err)
	require.Equal(t, rec, got)
	require.Equal(t, 2, got.N())
	require.Equal(t, 1, got.NumIneq())
	require.Equal(t, 2, got.NumEq())
}

func TestReadUnconstrained(t *testing.T) {
	rec := Record{
		Q: qp.NewMatrixFrom(1, 1, []float64{2}),
		F: []float64{-4},
		A: qp.NewMatrix(0, 1),
		B: []float64{},
		X: []float64{2},
	}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, rec))
	got, err := Read(&buf)
	require.NoError(t, err)
	require.Equal(t, rec, got)

	s, err := qp.NewSolver(qp.Options{})
	require.NoError(t, err)
	res := s.Solve(got.Problem())
	require.Equal(t, qp.Solved, res.Status)
	require.InDeltaSlice(t, got.X, res.X, 1e-12)
}

func TestFromProblem(t *testing.T) {
	p := qp.NewProblem(2, 0, 1)
	rec := FromProblem(p, []float64{0, 0})
	require.Nil(t, rec.Aeq)
	require.Equal(t, 1, rec.NumIneq())

	p = qp.NewProblem(2, 1, 0)
	rec = FromProblem(p, []float64{0, 0})
	require.Same(t, p.Aeq, rec.Aeq)
	require.NoError(t, rec.Problem().Check())
}

func TestReadMalformed(t *testing.T) {
	for name, input := range map[string]string{
		"empty":        "",
		"header":       "size 2 nc 1\n",
		"missing Q":    "size: 1 nc: 0\nf:\n1\n",
		"short row":    "size: 2 nc: 0\nQ:\n1\n0 1\nf:\n0 0\nA:\nb:\n\nx:\n0 0\n",
		"row count":    "size: 1 nc: 1\nQ:\n1\nf:\n0\nA:\nb:\n1\nx:\n0\n",
		"number":       "size: 1 nc: 0\nQ:\nabc\nf:\n0\nA:\nb:\nx:\n0\n",
		"trailing":     "size: 1 nc: 0\nQ:\n1\nf:\n0\nA:\nb:\nx:\n0\nAeq:\n1\nbeq:\n1\nQ:\n",
		"beq mismatch": "size: 1 nc: 0\nQ:\n1\nf:\n0\nA:\nb:\nx:\n0\nAeq:\n1\nbeq:\n1 2\n",
	} {
		_, err := Read(strings.NewReader(input))
		require.ErrorIs(t, err, ErrFormat, name)
	}
}

func TestFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "frameQP.txt")
	require.NoError(t, WriteFile(name, sampleRecord()))
	got, err := ReadFile(name)
	require.NoError(t, err)
	require.Equal(t, sampleRecord(), got)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrFormat)

	require.Error(t, WriteFile(filepath.Join(t.TempDir(), "no", "such", "dir.txt"), sampleRecord()))
}
