package main

import (
	"fmt"

	"fortio.org/safecast"
	"github.com/spf13/cobra"

	"vbscope/internal/diag"
	"vbscope/internal/diagfmt"
	"vbscope/internal/parser"
	"vbscope/internal/source"
)

var parseCmd = &cobra.Command{
	Use:   "parse [flags] module.bas",
	Short: "Parse an exported VBA module and print its outline",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func init() {
	parseCmd.Flags().String("format", "outline", "output format (outline|diagnostics)")
}

func runParse(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	maxErrors, err := safecast.Conv[uint](maxDiagnostics)
	if err != nil {
		return fmt.Errorf("max-diagnostics: %w", err)
	}

	snap, err := source.LoadSnapshot("VBAProject", args[0])
	if err != nil {
		return fmt.Errorf("parsing failed: %w", err)
	}
	bag := diag.NewBag(maxDiagnostics)
	res := parser.ParseFile(snap, parser.Options{MaxErrors: maxErrors, Reporter: diag.BagReporter{Bag: bag}})

	if err := printBag(cmd, bag, snap, true); err != nil {
		return err
	}
	switch format {
	case "outline":
		if err := diagfmt.FormatOutline(cmd.OutOrStdout(), res.File, snap); err != nil {
			return err
		}
	case "diagnostics":
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	if bag.HasErrors() {
		return fmt.Errorf("%s: %d error(s)", args[0], bag.Len()+bag.Dropped())
	}
	return nil
}
