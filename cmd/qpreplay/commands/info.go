// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package commands

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/curioloop/inverse/qp"
	"github.com/curioloop/inverse/qpdump"
)

type infoReport struct {
	File           string  `json:"file"`
	Variables      int     `json:"variables"`
	EqualityRows   int     `json:"equality_rows"`
	InequalityRows int     `json:"inequality_rows"`
	Objective      float64 `json:"recorded_objective"`
	Violation      float64 `json:"max_violation"`
}

func newInfoCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "Print the sizes of a dumped problem",
		Long: `Print the number of unknowns and constraint rows of a dumped problem,
the objective at the recorded solution and its largest constraint violation.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := qpdump.ReadFile(args[0])
			if err != nil {
				return err
			}
			p := rec.Problem()
			report := infoReport{
				File:           args[0],
				Variables:      rec.N(),
				EqualityRows:   rec.NumEq(),
				InequalityRows: rec.NumIneq(),
				Objective:      p.Objective(rec.X),
				Violation:      violation(p, rec.X),
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(),
				"file: %s\nsize: %d\nequality rows: %d\ninequality rows: %d\nobjective: %g\nmax violation: %g\n",
				report.File, report.Variables, report.EqualityRows, report.InequalityRows,
				report.Objective, report.Violation)
			return err
		},
	}
}

// violation returns the largest amount by which x breaks a row of p.
func violation(p *qp.Problem, x []float64) (v float64) {
	if m := p.NumIneq(); m > 0 {
		ax := make([]float64, m)
		p.A.MulVec(x, ax)
		for i := range ax {
			v = math.Max(v, p.B[i]-ax[i])
		}
	}
	if m := p.NumEq(); m > 0 {
		ax := make([]float64, m)
		p.Aeq.MulVec(x, ax)
		for i := range ax {
			v = math.Max(v, math.Abs(ax[i]-p.Beq[i]))
		}
	}
	return
}
