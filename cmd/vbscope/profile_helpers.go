package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vbscope/internal/prof"
)

// setupProfiling starts the profilers requested by the persistent flags. The
// returned cleanup writes the heap profile and reports failures on stderr.
func setupProfiling(cmd *cobra.Command) (func(), error) {
	flags := cmd.Root().PersistentFlags()
	var cfg prof.Config
	var err error
	if cfg.CPU, err = flags.GetString("cpu-profile"); err != nil {
		return nil, fmt.Errorf("failed to get cpu-profile flag: %w", err)
	}
	if cfg.Heap, err = flags.GetString("mem-profile"); err != nil {
		return nil, fmt.Errorf("failed to get mem-profile flag: %w", err)
	}
	if cfg.Trace, err = flags.GetString("runtime-trace"); err != nil {
		return nil, fmt.Errorf("failed to get runtime-trace flag: %w", err)
	}
	if !cfg.Enabled() {
		return func() {}, nil
	}
	s, err := prof.Start(cfg)
	if err != nil {
		return nil, err
	}
	errOut := cmd.ErrOrStderr()
	return func() {
		if err := s.Stop(); err != nil {
			fmt.Fprintf(errOut, "profiling: %v\n", err)
		}
	}, nil
}
