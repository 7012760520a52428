package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vbscope/internal/source"
)

var declsCmd = &cobra.Command{
	Use:   "decls [flags] [directory]",
	Short: "List the declarations of a project",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDecls,
}

func init() {
	declsCmd.Flags().String("module", "", "only this module")
	declsCmd.Flags().String("kind", "", "only declarations whose kind contains this text")
	declsCmd.Flags().Bool("ids", false, "print declaration identities")
	declsCmd.Flags().Bool("exported", false, "only declarations other modules can name")
}

func runDecls(cmd *cobra.Command, args []string) error {
	moduleFilter, _ := cmd.Flags().GetString("module")
	kindFilter, _ := cmd.Flags().GetString("kind")
	showIDs, _ := cmd.Flags().GetBool("ids")
	exportedOnly, _ := cmd.Flags().GetBool("exported")

	s, err := openSession(cmd, projectDir(args, 0))
	if err != nil {
		return err
	}
	g, err := s.pipeline.Refresh(cmd.Context(), false)
	if err != nil {
		return err
	}
	modules := g.Modules()
	if moduleFilter != "" {
		id, ok := moduleByName(modules, source.ModuleID(moduleFilter))
		if !ok {
			return fmt.Errorf("unknown module %s", moduleFilter)
		}
		modules = []source.ModuleID{id}
	}
	out := cmd.OutOrStdout()
	for _, id := range modules {
		decls := g.InModule(id)
		if exportedOnly {
			e, _ := g.Module(id)
			decls = e.Decls.Exported()
		}
		for _, d := range decls {
			kind := d.Kind.String()
			if kindFilter != "" && !strings.Contains(strings.ToLower(kind), strings.ToLower(kindFilter)) {
				continue
			}
			line := fmt.Sprintf("%-22s %-8s %s", kind, d.Accessibility, s.qualifiedName(g, d))
			if d.TypeName != "" {
				line += " As " + d.TypeName
			}
			line += "  " + s.location(g, d.Span)
			if showIDs {
				line += "  " + string(d.ID)
			}
			fmt.Fprintln(out, line)
		}
	}
	return nil
}
