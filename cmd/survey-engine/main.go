// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the survey-engine CLI.
// Each lifecycle stage is a subcommand: collect, resolve, fetch, analyze,
// plus requeue, status, report, and purge for corpus maintenance.
package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/survey-engine/internal/pipeline"
	"github.com/pdiddy/survey-engine/internal/store"
	"github.com/pdiddy/survey-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

const (
	defaultTimeout   = 30 * time.Second
	defaultDelay     = 1 * time.Second
	defaultUserAgent = "survey-engine/0.1"
)

// rootCmd is the base command for the survey-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "survey-engine",
	Short: "Build a research paper corpus for a survey",
	Long: `survey-engine maintains a corpus of research papers through a lifecycle:
collected titles are resolved to bibliographic records, resolved records
are downloaded and converted to text, and processed text is classified
for relevance.

Each stage is a subcommand that claims whatever records are waiting for
it, so stages can run in any order, repeatedly, and survive interruption.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./survey-engine.yaml or ~/.config/survey-engine/config.yaml)")
	rootCmd.PersistentFlags().String("db", "", "path to the corpus database (default: data/papers.db)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("survey-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "survey-engine"))
		}
	}

	viper.SetDefault("db_path", filepath.Join("data", "papers.db"))
	viper.SetDefault("pdf_dir", filepath.Join("data", "pdfs"))
	viper.SetDefault("text_dir", filepath.Join("data", "texts"))
	viper.SetDefault("user_agent", defaultUserAgent)
	viper.SetDefault("openalex_email", "")
	viper.SetDefault("keywords", []string{})

	viper.SetEnvPrefix("SURVEY_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	if db, _ := rootCmd.PersistentFlags().GetString("db"); db != "" {
		viper.Set("db_path", db)
	}
}

// openStore opens the corpus database at the configured path.
func openStore() (*store.Store, error) {
	return store.New(types.StoreConfig{DBPath: viper.GetString("db_path")})
}

// basePipelineConfig assembles the stage configuration shared by every
// command from viper, leaving stage-specific knobs for command flags.
func basePipelineConfig() types.PipelineConfig {
	httpCfg := types.HTTPConfig{
		Timeout:   defaultTimeout,
		UserAgent: viper.GetString("user_agent"),
	}
	return types.PipelineConfig{
		Collect: types.CollectConfig{HTTPConfig: httpCfg},
		Resolve: types.ResolveConfig{
			HTTPConfig:            httpCfg,
			MaxResultsPerProvider: 10,
			RateLimitCooldown:     30 * time.Second,
			RateLimitRetries:      2,
			OpenAlexEmail:         viper.GetString("openalex_email"),
		},
		Fetch: types.FetchConfig{
			HTTPConfig:   httpCfg,
			MaxSizeBytes: 50 << 20,
			MaxDuration:  20 * time.Second,
			PDFDir:       viper.GetString("pdf_dir"),
		},
		Extract: types.ExtractConfig{TextDir: viper.GetString("text_dir")},
		Store:   types.StoreConfig{DBPath: viper.GetString("db_path")},
		Analyze: types.AnalyzeConfig{
			MaxChars: 50000,
			MinScore: 0.5,
			Keywords: viper.GetStringSlice("keywords"),
		},
		RecordDelay:             defaultDelay,
		ConsecutiveTimeoutLimit: 3,
		TimeoutCooldown:         5 * time.Minute,
	}
}

// newPipeline opens the store and wires a pipeline around it. The caller
// owns closing the returned store.
func newPipeline(cfg types.PipelineConfig) (*pipeline.Pipeline, *store.Store, error) {
	s, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	client := &http.Client{Timeout: cfg.Fetch.Timeout}
	return pipeline.New(s, client, cfg, os.Stdout), s, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
