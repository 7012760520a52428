package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"fortio.org/safecast"
	"github.com/spf13/cobra"

	"vbscope/internal/diag"
	"vbscope/internal/diagfmt"
	"vbscope/internal/driver"
	"vbscope/internal/library"
	"vbscope/internal/project"
	"vbscope/internal/source"
	"vbscope/internal/state"
	"vbscope/internal/symbols"
	"vbscope/internal/trace"
)

// session is one opened project: its manifest, module source and pipeline.
type session struct {
	manifest *project.Manifest
	provider *project.DirProvider
	pipeline *driver.Pipeline
}

// projectDir returns the directory argument at index i, "." when absent.
func projectDir(args []string, i int) string {
	if len(args) > i {
		return args[i]
	}
	return "."
}

// openSession loads the manifest governing dir and applies flag overrides.
func openSession(cmd *cobra.Command, dir string) (*session, error) {
	st, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	m, err := project.Open(dir)
	if err != nil {
		return nil, err
	}

	flags := cmd.Root().PersistentFlags()
	if jobs, _ := flags.GetInt("jobs"); jobs > 0 {
		m.Pipeline.Jobs = jobs
	}
	if maxDiag, _ := flags.GetInt("max-diagnostics"); maxDiag > 0 {
		m.Pipeline.MaxDiagnostics = maxDiag
	}
	maxDiag, err := safecast.Conv[uint](m.Pipeline.MaxDiagnostics)
	if err != nil {
		return nil, fmt.Errorf("max diagnostics: %w", err)
	}

	dp, err := project.NewDirProvider(m)
	if err != nil {
		return nil, err
	}
	p := driver.New(driver.Options{
		Project:        m.Name,
		Jobs:           m.Pipeline.Jobs,
		MaxDiagnostics: maxDiag,
		References:     m.References,
		Loader:         library.NewProvider(m.Root),
		Provider:       dp,
		Tracer:         trace.FromContext(cmd.Context()),
	})
	return &session{manifest: m, provider: dp, pipeline: p}, nil
}

// resolve runs the pipeline over the whole project, with the progress UI
// when requested.
func (s *session) resolve(ctx context.Context, tui bool) (*symbols.Graph, error) {
	if tui {
		return runResolveWithUI(ctx, s)
	}
	return s.pipeline.Refresh(ctx, false)
}

// diagnostics collects project-level and module diagnostics of g.
func (s *session) diagnostics(g *symbols.Graph) []diag.Diagnostic {
	out := append([]diag.Diagnostic(nil), s.pipeline.LastRun().Diagnostics...)
	return append(out, g.AllDiagnostics()...)
}

// qualifiedName renders a declaration with the manifest's delimiter.
func (s *session) qualifiedName(g *symbols.Graph, d *symbols.Declaration) string {
	var parts []string
	for cur := d; cur != nil; {
		if cur.Kind != symbols.KindProject {
			parts = append(parts, cur.Name)
		}
		if cur.Parent == symbols.NoDeclID {
			break
		}
		next, ok := g.Decl(cur.Parent)
		if !ok {
			break
		}
		cur = next
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, s.manifest.Settings.Delimiter)
}

// location renders a span of module id as path:line:col.
func (s *session) location(g *symbols.Graph, span source.Span) string {
	snap, ok := g.Snapshot(span.Module)
	if !ok {
		return string(span.Module)
	}
	pos := snap.Position(span.Start)
	return fmt.Sprintf("%s:%d:%d", snap.FormatPath(diagfmt.PathModeRelative.String(), s.manifest.Root), pos.Line, pos.Col)
}

// errResolution is returned when a run leaves modules in a failure stage.
var errResolution = errors.New("resolution finished with errors")

func checkStages(st *state.Machine) error {
	if errs := st.Errors(); len(errs) > 0 {
		return fmt.Errorf("%w: %d module(s) failed", errResolution, len(errs))
	}
	return nil
}

func printDiagnostics(cmd *cobra.Command, s *session, g *symbols.Graph, format string, floor diag.Severity) error {
	diags := diag.AtLeast(s.diagnostics(g), floor)
	switch format {
	case "pretty":
		if len(diags) == 0 {
			return nil
		}
		return diagfmt.Pretty(cmd.ErrOrStderr(), diags, g, diagfmt.PrettyOpts{
			Color:     useColor(cmd, os.Stderr),
			Context:   1,
			PathMode:  diagfmt.PathModeRelative,
			BaseDir:   s.manifest.Root,
			ShowNotes: true,
		})
	case "json":
		return diagfmt.JSON(cmd.OutOrStdout(), diags, g, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         diagfmt.PathModeRelative,
			BaseDir:          s.manifest.Root,
			IncludeNotes:     true,
		})
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// printBag renders the diagnostics a single-file command collected.
func printBag(cmd *cobra.Command, bag *diag.Bag, snap *source.Snapshot, notes bool) error {
	if bag.Len() == 0 {
		return nil
	}
	bag.Sort()
	out := cmd.ErrOrStderr()
	opts := diagfmt.PrettyOpts{Color: useColor(cmd, os.Stderr), Context: 2, ShowNotes: notes}
	if err := diagfmt.Pretty(out, bag.Items(), diagfmt.SetSources(source.NewSet(snap)), opts); err != nil {
		return err
	}
	if n := bag.Dropped(); n > 0 {
		fmt.Fprintf(out, "%d more diagnostic(s) not shown\n", n)
	}
	return nil
}
