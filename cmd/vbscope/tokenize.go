package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vbscope/internal/diag"
	"vbscope/internal/diagfmt"
	"vbscope/internal/lexer"
	"vbscope/internal/source"
)

var tokenizeCmd = &cobra.Command{
	Use:   "tokenize [flags] module.bas",
	Short: "Tokenize an exported VBA module",
	Long:  `Tokenize breaks down an exported VBA module into its tokens and trivia`,
	Args:  cobra.ExactArgs(1),
	RunE:  runTokenize,
}

func init() {
	tokenizeCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

func runTokenize(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}

	snap, err := source.LoadSnapshot("VBAProject", args[0])
	if err != nil {
		return fmt.Errorf("tokenization failed: %w", err)
	}
	bag := diag.NewBag(maxDiagnostics)
	tokens := lexer.Tokenize(snap, lexer.Options{Reporter: diag.BagReporter{Bag: bag}})

	if err := printBag(cmd, bag, snap, false); err != nil {
		return err
	}

	switch format {
	case "pretty":
		return diagfmt.FormatTokensPretty(cmd.OutOrStdout(), tokens, snap)
	case "json":
		return diagfmt.FormatTokensJSON(cmd.OutOrStdout(), tokens)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}
