package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"vbscope/internal/source"
)

var atCmd = &cobra.Command{
	Use:   "at [flags] <Module:line:col> [directory]",
	Short: "Show the declaration at a position",
	Long: `At resolves what the identifier at a 1-based line and column of a module
refers to: the target of a reference, or the declaration written there`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runAt,
}

// parsePosition splits Module:line:col.
func parsePosition(s string) (source.ModuleID, uint32, uint32, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return "", 0, 0, fmt.Errorf("position %q must be Module:line:col", s)
	}
	line, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil || line == 0 {
		return "", 0, 0, fmt.Errorf("invalid line in %q", s)
	}
	col, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil || col == 0 {
		return "", 0, 0, fmt.Errorf("invalid column in %q", s)
	}
	return source.ModuleID(parts[0]), uint32(line), uint32(col), nil
}

func runAt(cmd *cobra.Command, args []string) error {
	module, line, col, err := parsePosition(args[0])
	if err != nil {
		return err
	}
	s, err := openSession(cmd, projectDir(args, 1))
	if err != nil {
		return err
	}
	g, err := s.pipeline.Refresh(cmd.Context(), false)
	if err != nil {
		return err
	}
	id, ok := moduleByName(g.Modules(), module)
	if !ok {
		return fmt.Errorf("unknown module %s", module)
	}
	d, ok := g.DeclarationAt(id, line, col)
	if !ok {
		return fmt.Errorf("nothing declared at %s", args[0])
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s\n", d.Kind, s.qualifiedName(g, d))
	if d.IsUserDefined() {
		fmt.Fprintf(out, "  declared at %s\n", s.location(g, d.Span))
	} else {
		fmt.Fprintf(out, "  from library %s\n", d.Library)
	}
	fmt.Fprintf(out, "  accessibility %s\n", d.Accessibility)
	if d.TypeName != "" {
		fmt.Fprintf(out, "  type %s", d.TypeName)
		if t, ok := g.AsType(d.ID); ok {
			fmt.Fprintf(out, " (%s)", s.qualifiedName(g, t))
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "  %d reference(s)\n", len(g.ReferencesTo(d.ID)))
	return nil
}

func moduleByName(ids []source.ModuleID, name source.ModuleID) (source.ModuleID, bool) {
	for _, id := range ids {
		if source.EqualFold(string(id), string(name)) {
			return id, true
		}
	}
	return "", false
}
