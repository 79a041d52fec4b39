// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/literature-engine/internal/bib"
)

var convertCmd = &cobra.Command{
	Use:   "convert <input> <output>",
	Short: "Convert bibliography files between BibTeX and RIS",
	Long: `Convert reads a .bib or .ris file and writes the records in the format
implied by the output file's extension. Entries that cannot be decoded
are skipped with a warning.`,
	Args: cobra.ExactArgs(2),
	RunE: runConvert,
}

func runConvert(cmd *cobra.Command, args []string) error {
	inPath, outPath := args[0], args[1]

	records, warnings, err := loadRecords(inPath)
	if err != nil {
		return err
	}
	for _, warn := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s: %s\n", inPath, warn)
	}
	if len(records) == 0 {
		return fmt.Errorf("no usable records in %s", inPath)
	}

	var out string
	switch ext := strings.ToLower(filepath.Ext(outPath)); ext {
	case ".bib":
		out = bib.ToBibTeXList(records)
	case ".ris":
		out = bib.ToRISList(records)
	default:
		return fmt.Errorf("unsupported output type %q: use .bib or .ris", ext)
	}

	if err := os.WriteFile(outPath, []byte(out), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Wrote %d record(s) to %s\n", len(records), outPath)
	return nil
}

func init() {
	rootCmd.AddCommand(convertCmd)
}
