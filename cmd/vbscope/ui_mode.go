package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// progressUI decides whether resolve draws the live module table. In auto
// mode it needs a terminal on stdout and stays off for --quiet and JSON output.
func progressUI(cmd *cobra.Command) (bool, error) {
	mode, err := cmd.Flags().GetString("ui")
	if err != nil {
		return false, fmt.Errorf("failed to get ui flag: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	case "", "auto":
	default:
		return false, fmt.Errorf("invalid --ui value %q (expected auto|on|off)", mode)
	}
	if quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet"); quiet {
		return false, nil
	}
	if format, _ := cmd.Flags().GetString("format"); format == "json" {
		return false, nil
	}
	return isTerminal(os.Stdout), nil
}
