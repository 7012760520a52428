package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"vbscope/internal/library"
	"vbscope/internal/project"
)

var initCmd = &cobra.Command{
	Use:   "init [flags] [directory]",
	Short: "Create a vbscope.toml for a folder of exported modules",
	Long: `Init writes a project manifest (vbscope.toml) with the default include
patterns and the VBA and stdole references. The project name defaults to the
directory name.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().String("name", "", "project name")
	initCmd.Flags().Bool("excel", false, "also reference the Excel object library")
}

func runInit(cmd *cobra.Command, args []string) (err error) {
	target, err := filepath.Abs(projectDir(args, 0))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	path := filepath.Join(target, project.ManifestName)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	name, _ := cmd.Flags().GetString("name")
	if name = strings.TrimSpace(name); name == "" {
		name = projectName(filepath.Base(target))
	}
	m := project.DefaultManifest(target, name)
	if excel, _ := cmd.Flags().GetBool("excel"); excel {
		m.References = append(m.References, library.Reference{Name: "Excel", BuiltIn: true})
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if err := project.WriteManifest(f, m); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", path)
	return nil
}

// projectName turns a directory name into a VBA identifier, falling back to
// VBAProject.
func projectName(base string) string {
	var b strings.Builder
	for _, r := range base {
		switch {
		case r == '_' || r >= '0' && r <= '9':
			if b.Len() > 0 {
				b.WriteRune(r)
			}
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "VBAProject"
	}
	return b.String()
}
