package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/vmihailenco/msgpack/v5"

	"vbscope/internal/observ"
	"vbscope/internal/symbols"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [flags] [directory]",
	Short: "Write the declaration graph as JSON or MessagePack",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDump,
}

func init() {
	dumpCmd.Flags().String("format", "json", "output format (json|msgpack)")
	dumpCmd.Flags().StringP("output", "o", "", "write to file instead of stdout")
}

type graphDump struct {
	Project    string        `json:"project" msgpack:"project"`
	Generation uint64        `json:"generation" msgpack:"generation"`
	Libraries  []string      `json:"libraries" msgpack:"libraries"`
	Modules    []moduleDump  `json:"modules" msgpack:"modules"`
	Unbound    int           `json:"unbound" msgpack:"unbound"`
	Timings    observ.Report `json:"timings" msgpack:"timings"`
}

type moduleDump struct {
	Name         string     `json:"name" msgpack:"name"`
	Kind         string     `json:"kind" msgpack:"kind"`
	Path         string     `json:"path,omitempty" msgpack:"path,omitempty"`
	Hash         string     `json:"hash" msgpack:"hash"`
	Diagnostics  int        `json:"diagnostics" msgpack:"diagnostics"`
	Declarations []declDump `json:"declarations" msgpack:"declarations"`
	References   []refDump  `json:"references" msgpack:"references"`
}

type declDump struct {
	ID            string `json:"id" msgpack:"id"`
	Parent        string `json:"parent,omitempty" msgpack:"parent,omitempty"`
	Name          string `json:"name" msgpack:"name"`
	Kind          string `json:"kind" msgpack:"kind"`
	Accessibility string `json:"accessibility" msgpack:"accessibility"`
	Type          string `json:"type,omitempty" msgpack:"type,omitempty"`
	Line          uint32 `json:"line" msgpack:"line"`
	Col           uint32 `json:"col" msgpack:"col"`
}

type refDump struct {
	Name      string `json:"name" msgpack:"name"`
	Target    string `json:"target,omitempty" msgpack:"target,omitempty"`
	Enclosing string `json:"enclosing" msgpack:"enclosing"`
	Line      uint32 `json:"line" msgpack:"line"`
	Col       uint32 `json:"col" msgpack:"col"`
	Assign    bool   `json:"assign,omitempty" msgpack:"assign,omitempty"`
}

func buildDump(g *symbols.Graph, timings observ.Report) graphDump {
	d := graphDump{
		Project:    g.Project().Name,
		Generation: g.Generation(),
		Libraries:  g.Libraries(),
		Unbound:    len(g.Unbound()),
		Timings:    timings,
	}
	for _, id := range g.Modules() {
		e, _ := g.Module(id)
		md := moduleDump{
			Name:        string(id),
			Kind:        e.Snapshot.Kind.String(),
			Path:        e.Snapshot.Path,
			Hash:        e.Snapshot.HashString(),
			Diagnostics: len(g.Diagnostics(id)),
		}
		snap := e.Decls.Snap
		for _, decl := range e.Decls.Decls {
			pos := snap.Position(decl.Span.Start)
			md.Declarations = append(md.Declarations, declDump{
				ID:            string(decl.ID),
				Parent:        string(decl.Parent),
				Name:          decl.Name,
				Kind:          decl.Kind.String(),
				Accessibility: decl.Accessibility.String(),
				Type:          decl.TypeName,
				Line:          pos.Line,
				Col:           pos.Col,
			})
		}
		for _, ref := range g.References(id) {
			pos := snap.Position(ref.Span.Start)
			md.References = append(md.References, refDump{
				Name:      ref.Name,
				Target:    string(ref.Target),
				Enclosing: string(ref.Enclosing),
				Line:      pos.Line,
				Col:       pos.Col,
				Assign:    ref.IsAssignment,
			})
		}
		d.Modules = append(d.Modules, md)
	}
	return d
}

func writeDump(w io.Writer, d graphDump, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	case "msgpack":
		enc := msgpack.NewEncoder(w)
		return enc.Encode(d)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func runDump(cmd *cobra.Command, args []string) (err error) {
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")

	s, err := openSession(cmd, projectDir(args, 0))
	if err != nil {
		return err
	}
	g, err := s.pipeline.Refresh(cmd.Context(), false)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}
	return writeDump(w, buildDump(g, s.pipeline.LastRun().Timings), format)
}
