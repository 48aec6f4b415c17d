// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package inverse

import (
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/curioloop/inverse/term"
)

// Option customizes a Solver.
type Option func(*Solver)

// WithLogger replaces the global zerolog logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Solver) {
		s.log = l.With().Str("component", component).Logger()
	}
}

// WithMetrics records every solve into m.
func WithMetrics(m *Metrics) Option {
	return func(s *Solver) { s.metrics = m }
}

// WithTracer replaces the global OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Solver) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithAssembler overrides the assembler derived from the configuration.
func WithAssembler(a term.Assembler) Option {
	return func(s *Solver) { s.asm = a }
}
