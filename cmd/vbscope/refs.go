package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var refsCmd = &cobra.Command{
	Use:   "refs [flags] <name> [directory]",
	Short: "List the references to a declaration",
	Long: `Refs looks up a declaration by a case-insensitive dotted name (Foo,
Module1.Foo, VBAProject.Module1.Foo, VBA.MsgBox) and lists every reference bound to it`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runRefs,
}

func runRefs(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, projectDir(args, 1))
	if err != nil {
		return err
	}
	g, err := s.pipeline.Refresh(cmd.Context(), false)
	if err != nil {
		return err
	}
	decls := g.LookupAll(args[0])
	if len(decls) == 0 {
		return fmt.Errorf("no declaration named %s", args[0])
	}
	out := cmd.OutOrStdout()
	for i, d := range decls {
		if i > 0 {
			fmt.Fprintln(out)
		}
		where := "library " + d.Library
		if d.IsUserDefined() {
			where = s.location(g, d.Span)
		}
		refs := g.ReferencesTo(d.ID)
		fmt.Fprintf(out, "%s %s (%s): %d reference(s)\n", d.Kind, s.qualifiedName(g, d), where, len(refs))
		for _, ref := range refs {
			enclosing := string(ref.Module)
			if e, ok := g.Decl(ref.Enclosing); ok {
				enclosing = s.qualifiedName(g, e)
			}
			flags := ""
			switch {
			case ref.IsSetAssignment:
				flags = " [set]"
			case ref.IsAssignment:
				flags = " [assign]"
			case ref.IsTypeReference:
				flags = " [type]"
			}
			fmt.Fprintf(out, "  %s in %s%s\n", s.location(g, ref.Span), enclosing, flags)
		}
	}
	return nil
}
