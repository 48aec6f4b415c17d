// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package commands

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/curioloop/inverse/inverse"
)

type rootOptions struct {
	configPath string
	jsonOutput bool
}

// Execute runs the root command.
func Execute(ctx context.Context, version string) error {
	return newRootCommand(version).ExecuteContext(ctx)
}

func newRootCommand(version string) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "qpreplay",
		Short: "Replay problems dumped by the inverse solver",
		Long: `qpreplay reads the plain-text QP snapshot written by the inverse solver
on its trigger call, solves it again with the current solver and reports
how far the new solution is from the recorded one.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "inverse config file path")
	rootCmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newSolveCommand(opts))
	rootCmd.AddCommand(newInfoCommand(opts))

	return rootCmd
}

func (o *rootOptions) loadConfig() (inverse.Config, error) {
	if o.configPath == "" {
		return inverse.DefaultConfig(), nil
	}
	return inverse.LoadConfig(o.configPath)
}

// logger honours the logging section only when a config file was given.
// The caller closes the returned closer once the command is done logging.
func (o *rootOptions) logger(cfg inverse.Config) (zerolog.Logger, io.Closer, error) {
	if o.configPath == "" {
		return log.Logger, io.NopCloser(nil), nil
	}
	return inverse.NewLogger(cfg.Logging)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
