// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/literature-engine/internal/bib"
	"github.com/pdiddy/literature-engine/internal/graph"
	"github.com/pdiddy/literature-engine/internal/merge"
	"github.com/pdiddy/literature-engine/internal/search"
	"github.com/pdiddy/literature-engine/pkg/types"
)

var graphCmd = &cobra.Command{
	Use:   "graph [files...]",
	Short: "Build a citation graph from bibliography files",
	Long: `Graph loads records from BibTeX (.bib), RIS (.ris), or saved query
(.yaml) files, builds a citation graph keyed by DOI or title+author, and
reports the most-cited papers and connected components.

Citation edges come from an edges file (--citing) with one edge per
line: the citing identifier, whitespace, the cited identifier. An
identifier is a DOI or a "Title|First Author" pair.`,
	RunE: runGraph,
}

func runGraph(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no input files: pass one or more .bib, .ris, or .yaml files")
	}

	b := graph.NewBuilder()
	for _, path := range args {
		records, warnings, err := loadRecords(path)
		if err != nil {
			return err
		}
		for _, warn := range warnings {
			fmt.Fprintf(os.Stderr, "warning: %s: %s\n", path, warn)
		}
		b.AddRecords(records)
	}

	if edgesPath, _ := cmd.Flags().GetString("citing"); edgesPath != "" {
		added, err := loadEdges(b, edgesPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Added %d citation edge(s)\n", added)
	}

	nodes, edges := b.Len()
	fmt.Printf("Graph: %d papers, %d citations\n\n", nodes, edges)

	topN, _ := cmd.Flags().GetInt("top")
	top := b.MostCited(topN)
	if len(top) > 0 {
		fmt.Println("Most cited in graph:")
		for i, rec := range top {
			key := graph.Key(&rec)
			fmt.Printf("%3d. %-60s  cited by %d\n", i+1, truncate(rec.Title, 60), b.InDegree(key))
		}
		fmt.Println()
	}

	comps := b.ConnectedComponents()
	fmt.Printf("Connected components: %d", len(comps))
	if len(comps) > 0 {
		fmt.Printf(" (largest: %d papers)", len(comps[0]))
	}
	fmt.Println()
	return nil
}

// loadRecords reads one bibliography file, dispatching on extension.
func loadRecords(path string) ([]types.PaperRecord, []types.SourceWarning, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".bib":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, err
		}
		records, warnings := bib.ParseBibTeX(string(data))
		return records, warnings, nil
	case ".ris":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, err
		}
		records, warnings := bib.ParseRIS(string(data))
		return records, warnings, nil
	case ".yaml", ".yml":
		qf, err := search.ReadQueryFile(path)
		if err != nil {
			return nil, nil, err
		}
		return qf.Records, nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported file type %q: use .bib, .ris, or .yaml", ext)
	}
}

// loadEdges reads the citing/cited pairs file and adds the edges.
func loadEdges(b *graph.Builder, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	added := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// Tab-separated when identifiers contain spaces (title|author
		// pairs); otherwise plain whitespace.
		var citing, cited string
		if before, after, ok := strings.Cut(line, "\t"); ok {
			citing, cited = strings.TrimSpace(before), strings.TrimSpace(after)
		} else if fields := strings.Fields(line); len(fields) >= 2 {
			citing, cited = fields[0], strings.Join(fields[1:], " ")
		}
		if citing == "" || cited == "" {
			fmt.Fprintf(os.Stderr, "warning: skipping malformed edge line: %q\n", line)
			continue
		}
		b.AddCitation(edgeKey(citing), edgeKey(cited))
		added++
	}
	return added, scanner.Err()
}

// edgeKey converts one edge-file identifier into a graph key. A DOI maps
// to its normalized form; a "Title|First Author" pair maps to the
// title+author key.
func edgeKey(id string) string {
	if title, author, ok := strings.Cut(id, "|"); ok {
		if k := merge.TitleAuthorKey(title, author); k != "" {
			return "ta:" + k
		}
		return ""
	}
	if doi := merge.NormalizeDOI(id); doi != "" {
		return "doi:" + doi
	}
	return ""
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func init() {
	graphCmd.Flags().String("citing", "", "file of citation edges (citing cited, one per line)")
	graphCmd.Flags().Int("top", 10, "how many most-cited papers to list")

	rootCmd.AddCommand(graphCmd)
}
