package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vbscope/internal/diag"
	"vbscope/internal/state"
	"vbscope/internal/symbols"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [flags] [directory]",
	Short: "Resolve every declaration and reference of a project",
	Long: `Resolve parses all modules of the project rooted at directory (default: the
current one), builds the declaration graph and reports diagnostics`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().String("format", "pretty", "diagnostics format (pretty|json)")
	resolveCmd.Flags().String("ui", "off", "progress UI (auto|on|off)")
	resolveCmd.Flags().Bool("unbound", false, "list references that matched no declaration")
	resolveCmd.Flags().String("min-severity", "info", "hide diagnostics below this severity (info|warning|error)")
}

func runResolve(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	tui, err := progressUI(cmd)
	if err != nil {
		return err
	}
	minSev, err := cmd.Flags().GetString("min-severity")
	if err != nil {
		return fmt.Errorf("failed to get min-severity flag: %w", err)
	}
	sev, err := diag.ParseSeverity(minSev)
	if err != nil {
		return err
	}
	listUnbound, err := cmd.Flags().GetBool("unbound")
	if err != nil {
		return fmt.Errorf("failed to get unbound flag: %w", err)
	}
	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	timings, _ := cmd.Root().PersistentFlags().GetBool("timings")

	s, err := openSession(cmd, projectDir(args, 0))
	if err != nil {
		return err
	}
	g, err := s.resolve(cmd.Context(), tui)
	if err != nil {
		return err
	}
	if err := printDiagnostics(cmd, s, g, format, sev); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if listUnbound {
		for _, ref := range g.Unbound() {
			fmt.Fprintf(out, "%s: %s\n", s.location(g, ref.Span), ref.Name)
		}
	}
	if !quiet && format == "pretty" {
		printSummary(cmd, g, s.pipeline.State())
	}
	if timings {
		printTimings(cmd.ErrOrStderr(), s.pipeline.LastRun().Timings)
	}
	return checkStages(s.pipeline.State())
}

func printSummary(cmd *cobra.Command, g *symbols.Graph, sm *state.Machine) {
	st := g.Stats()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d modules, %d declarations, %d references (%d unbound), libraries %v, generation %d\n",
		g.Project().Name, st.Modules, st.Declarations, st.References, st.Unbound, g.Libraries(), g.Generation())
	if counts := sm.Count(); counts[state.Ready] != st.Modules {
		fmt.Fprintf(out, "modules: %s\n", state.FormatCounts(counts))
	}
}
