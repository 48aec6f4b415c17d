// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package commands

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/curioloop/inverse/inverse"
	"github.com/curioloop/inverse/qp"
	"github.com/curioloop/inverse/qpdump"
	"github.com/curioloop/inverse/term"
)

var (
	errNotSolved = errors.New("replay did not solve")
	errMismatch  = errors.New("replayed solution deviates from the recorded one")
)

type solveReport struct {
	File       string    `json:"file"`
	Status     string    `json:"status"`
	Iterations int       `json:"iterations"`
	Objective  float64   `json:"objective"`
	Recorded   float64   `json:"recorded_objective"`
	Deviation  float64   `json:"max_deviation"`
	X          []float64 `json:"x,omitempty"`
}

func newSolveCommand(opts *rootOptions) *cobra.Command {
	var (
		tol     float64
		maxIter int
		printX  bool
	)

	cmd := &cobra.Command{
		Use:   "solve <file>",
		Short: "Re-solve a dumped problem",
		Long: `Re-solve a dumped problem through the inverse solver and compare the
solution with the recorded one.

The command fails when the solve does not reach SOLVED or when any
component differs from the recorded solution by more than --tol.`,
		Example: `  # Replay the default dump
  qpreplay solve frameQP.txt

  # Replay with a solver configuration and a looser tolerance
  qpreplay solve --config inverse.yaml --tol 1e-4 frameQP.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("max-iter") {
				cfg.Solver.MaxIterations = maxIter
			}
			// never overwrite the file being replayed
			cfg.Dump.Path = ""

			logger, closer, err := opts.logger(cfg)
			if err != nil {
				return err
			}
			defer closer.Close()
			rec, err := qpdump.ReadFile(args[0])
			if err != nil {
				return err
			}
			s, err := inverse.New(cfg, inverse.WithLogger(logger))
			if err != nil {
				return err
			}

			log.Debug().
				Str("file", args[0]).
				Int("n", rec.N()).
				Int("equality_rows", rec.NumEq()).
				Int("inequality_rows", rec.NumIneq()).
				Msg("Replaying dump")

			res := s.SolveResult(cmd.Context(), replayCosts(rec), replayConstraints(rec), rec.N(), 0, 0)
			report := solveReport{
				File:       args[0],
				Status:     res.Status.String(),
				Iterations: res.Iterations,
				Objective:  res.Objective,
				Recorded:   rec.Problem().Objective(rec.X),
				Deviation:  maxDeviation(res.X, rec.X),
			}
			if printX {
				report.X = res.X
			}

			if opts.jsonOutput {
				err = writeJSON(cmd.OutOrStdout(), report)
			} else {
				err = printSolveReport(cmd, report)
			}
			if err != nil {
				return err
			}

			switch {
			case res.Status != qp.Solved:
				return fmt.Errorf("%w: status %s", errNotSolved, res.Status)
			case report.Deviation > tol:
				return fmt.Errorf("%w: %g > %g", errMismatch, report.Deviation, tol)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&tol, "tol", 1e-6, "accepted max absolute deviation from the recorded solution")
	cmd.Flags().IntVar(&maxIter, "max-iter", 0, "override the active-set iteration limit")
	cmd.Flags().BoolVar(&printX, "print-x", false, "print the replayed solution")

	return cmd
}

func replayCosts(rec qpdump.Record) []term.CostTerm {
	return []term.CostTerm{&term.Quadratic{Q: rec.Q, P: rec.F}}
}

func replayConstraints(rec qpdump.Record) []term.ConstraintTerm {
	return []term.ConstraintTerm{
		&term.Linear{Type: term.Equality, A: rec.Aeq, B: rec.Beq},
		&term.Linear{Type: term.Inequality, A: rec.A, B: rec.B},
	}
}

func maxDeviation(x, y []float64) (dev float64) {
	for i := range x {
		dev = math.Max(dev, math.Abs(x[i]-y[i]))
	}
	return
}

func printSolveReport(cmd *cobra.Command, r solveReport) error {
	var b strings.Builder
	fmt.Fprintf(&b, "file: %s\n", r.File)
	fmt.Fprintf(&b, "status: %s\n", r.Status)
	fmt.Fprintf(&b, "iterations: %d\n", r.Iterations)
	fmt.Fprintf(&b, "objective: %g (recorded %g)\n", r.Objective, r.Recorded)
	fmt.Fprintf(&b, "max deviation: %g\n", r.Deviation)
	if r.X != nil {
		parts := make([]string, len(r.X))
		for i, v := range r.X {
			parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		fmt.Fprintf(&b, "x: %s\n", strings.Join(parts, " "))
	}
	_, err := fmt.Fprint(cmd.OutOrStdout(), b.String())
	return err
}
