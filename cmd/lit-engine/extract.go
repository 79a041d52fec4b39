// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/literature-engine/internal/cache"
	"github.com/pdiddy/literature-engine/internal/fulltext"
)

var extractCmd = &cobra.Command{
	Use:   "extract <pdf-url>",
	Short: "Download a paper PDF and print its extracted text",
	Long: `Extract downloads the PDF at the given URL, extracts its plain text,
and prints it to stdout. The text is cached, so a second extraction of
the same URL is answered locally.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg := engineConfig()
	store := cache.Open(cfg.Cache)
	if store.Degraded() {
		fmt.Fprintf(os.Stderr, "warning: cache disabled: %v\n", store.Err())
	}
	defer store.Close()

	e := &fulltext.Extractor{
		Client: httpClient(cfg.FullText.HTTPConfig),
		Store:  store,
		Cfg:    cfg.FullText,
	}

	text, err := e.Extract(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Print(text)
	return nil
}

func init() {
	rootCmd.AddCommand(extractCmd)
}
