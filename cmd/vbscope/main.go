package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"vbscope/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "vbscope",
	Short: "VBA declaration and reference resolver",
	Long: `vbscope parses exported VBA modules (.bas, .cls, .frm) and resolves every
identifier to the declaration it refers to, across modules and referenced libraries`,
	SilenceUsage: true,
	Version:      version.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		stopProfiling, err := setupProfiling(cmd)
		if err != nil {
			return err
		}
		cleanup, err := setupTracing(cmd)
		if err != nil {
			stopProfiling()
			return err
		}
		runCleanup = func() {
			cleanup()
			stopProfiling()
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if runCleanup != nil {
			runCleanup()
			runCleanup = nil
		}
	},
}

var runCleanup func()

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(refsCmd)
	rootCmd.AddCommand(atCmd)
	rootCmd.AddCommand(declsCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(tokenizeCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(versionCmd)

	// Глобальные флаги
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().Int("max-diagnostics", 0, "maximum number of diagnostics per module (0 = manifest setting)")
	rootCmd.PersistentFlags().Int("jobs", 0, "max parallel workers (0 = manifest setting)")
	rootCmd.PersistentFlags().String("trace", "", "write trace events to file (- for stderr)")
	rootCmd.PersistentFlags().String("trace-level", "", "trace level (off|error|phase|detail|debug)")
	rootCmd.PersistentFlags().String("trace-mode", "stream", "trace storage (stream|ring: keep the last events and write them on exit)")
	rootCmd.PersistentFlags().String("trace-format", "auto", "trace format (auto|text|ndjson)")
	rootCmd.PersistentFlags().Int("trace-ring-size", 4096, "ring buffer size for ring mode")
	rootCmd.PersistentFlags().Duration("trace-heartbeat", 0, "emit heartbeat events at this interval")
	rootCmd.PersistentFlags().String("cpu-profile", "", "write a CPU profile to file")
	rootCmd.PersistentFlags().String("mem-profile", "", "write a heap profile to file on exit")
	rootCmd.PersistentFlags().String("runtime-trace", "", "write a Go runtime trace to file")
}

// main executes the root command. A failed command exits with status 1.
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// useColor resolves --color for output written to f.
func useColor(cmd *cobra.Command, f *os.File) bool {
	colorFlag, _ := cmd.Root().PersistentFlags().GetString("color")
	return colorFlag == "on" || (colorFlag == "auto" && isTerminal(f))
}
