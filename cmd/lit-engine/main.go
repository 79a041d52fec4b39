// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the lit-engine CLI. Each pipeline
// stage is a subcommand: search, graph, convert, extract, and cache.
package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/literature-engine/internal/secrets"
	"github.com/pdiddy/literature-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns the secret value for key if it exists, or fallback otherwise.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the lit-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "lit-engine",
	Short: "Unified literature search and citation graph engine",
	Long: `lit-engine searches scholarly sources (arXiv, Semantic Scholar, OpenAlex,
PubMed) in parallel, merges duplicate records across sources, and ranks
the result. Downstream subcommands build citation graphs, convert
between BibTeX and RIS, and extract full text from paper PDFs.

All network responses pass through an on-disk cache so repeated queries
are answered locally.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, warns, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		for _, w := range warns {
			fmt.Fprintf(os.Stderr, "warning: %s\n", w)
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./lit-engine.yaml or ~/.config/lit-engine/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("lit-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "lit-engine"))
		}
	}

	viper.SetEnvPrefix("LIT_ENGINE")
	viper.AutomaticEnv()

	viper.SetDefault("search.max_per_source", 100)
	viper.SetDefault("search.source_timeout", "30s")
	viper.SetDefault("search.max_retries", 3)
	viper.SetDefault("search.enable_arxiv", true)
	viper.SetDefault("search.enable_semantic_scholar", true)
	viper.SetDefault("search.enable_openalex", true)
	viper.SetDefault("search.enable_pubmed", false)
	viper.SetDefault("cache.dir", ".lit-cache")
	viper.SetDefault("cache.ttl_hours", 48)
	viper.SetDefault("cache.max_size_mb", 1024)
	viper.SetDefault("full_text.download_timeout", "30s")
	viper.SetDefault("full_text.max_concurrent", 4)
	viper.SetDefault("http.timeout", "30s")
	viper.SetDefault("http.user_agent", "lit-engine/"+version)

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// engineConfig assembles the stage configurations from viper and secrets.
func engineConfig() types.EngineConfig {
	httpCfg := types.HTTPConfig{
		Timeout:   viper.GetDuration("http.timeout"),
		UserAgent: viper.GetString("http.user_agent"),
	}
	return types.EngineConfig{
		Search: types.SearchConfig{
			HTTPConfig:            httpCfg,
			MaxPerSource:          viper.GetInt("search.max_per_source"),
			SourceTimeout:         viper.GetDuration("search.source_timeout"),
			MaxRetries:            viper.GetInt("search.max_retries"),
			EnableArxiv:           viper.GetBool("search.enable_arxiv"),
			EnableSemanticScholar: viper.GetBool("search.enable_semantic_scholar"),
			EnableOpenAlex:        viper.GetBool("search.enable_openalex"),
			EnablePubMed:          viper.GetBool("search.enable_pubmed"),
			SemanticScholarAPIKey: secretDefault("semantic-scholar-api-key", viper.GetString("search.semantic_scholar_api_key")),
			OpenAlexEmail:         secretDefault("openalex-email", viper.GetString("search.openalex_email")),
			PubMedAPIKey:          secretDefault("pubmed-api-key", viper.GetString("search.pubmed_api_key")),
			SourcePriority:        viper.GetStringSlice("search.source_priority"),
		},
		Cache: types.CacheConfig{
			Dir:       viper.GetString("cache.dir"),
			TTLHours:  viper.GetInt("cache.ttl_hours"),
			MaxSizeMB: viper.GetInt("cache.max_size_mb"),
		},
		FullText: types.FullTextConfig{
			HTTPConfig:      httpCfg,
			DownloadTimeout: viper.GetDuration("full_text.download_timeout"),
			MaxConcurrent:   viper.GetInt("full_text.max_concurrent"),
			MaxPages:        viper.GetInt("full_text.max_pages"),
		},
	}
}

// httpClient builds the shared HTTP client for a stage.
func httpClient(cfg types.HTTPConfig) *http.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
