// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the litsearch CLI.
// Implements: prd010-orchestration, prd011-session, prd012-commit (CLI surface).
// See docs/ARCHITECTURE § Engine, § Project Structure.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/litsearch/internal/secrets"
	"github.com/pdiddy/litsearch/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// logger is the process-wide structured logger, configured in the root
// command's PersistentPreRunE.
var logger zerolog.Logger

// rootCmd is the base command for the litsearch CLI.
var rootCmd = &cobra.Command{
	Use:   "litsearch",
	Short: "Literature-search orchestration engine",
	Long: `litsearch turns a research topic or structured clinical question into
multiple independent provider queries, executes them concurrently, merges and
deduplicates the results with cross-query confidence scoring, and expands or
narrows the query set until a usable candidate set is produced.

Each operation is a subcommand: search runs the full expansion loop, explore
walks the citation network around seed identifiers, session inspects the
working log, and commit persists selected candidates through the trust-tiered
gateway.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := zerolog.InfoLevel
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			level = zerolog.DebugLevel
		}
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
			Level(level).With().Timestamp().Logger()

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./litsearch.yaml or ~/.config/litsearch/config.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("litsearch")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "litsearch"))
		}
	}

	viper.SetEnvPrefix("LITSEARCH")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// engineConfig assembles the engine configuration from viper and secrets.
func engineConfig() types.EngineConfig {
	cfg := types.EngineConfig{
		Provider: types.ProviderConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("provider.timeout"),
				UserAgent: viper.GetString("provider.user_agent"),
			},
			Email:             viper.GetString("provider.email"),
			APIKey:            viper.GetString("provider.api_key"),
			MetricsAPIKey:     viper.GetString("provider.metrics_api_key"),
			RequestsPerMinute: viper.GetInt("provider.requests_per_minute"),
			PageSize:          viper.GetInt("provider.page_size"),
		},
		Dispatch: types.DispatchConfig{
			Workers:        viper.GetInt("dispatch.workers"),
			MaxRetries:     viper.GetInt("dispatch.max_retries"),
			RetryBaseDelay: viper.GetDuration("dispatch.retry_base_delay"),
			QueryTimeout:   viper.GetDuration("dispatch.query_timeout"),
		},
		Expansion: types.ExpansionConfig{
			FloorCandidates:   viper.GetInt("expansion.floor_candidates"),
			CeilingCandidates: viper.GetInt("expansion.ceiling_candidates"),
			MaxIterations:     viper.GetInt("expansion.max_iterations"),
			SeedTopK:          viper.GetInt("expansion.seed_top_k"),
		},
		Gateway: types.GatewayConfig{
			StoreDir: viper.GetString("gateway.store_dir"),
		},
	}

	if cfg.Provider.Email == "" {
		cfg.Provider.Email = loadedSecrets["provider-email"]
	}
	if cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = loadedSecrets["provider-api-key"]
	}
	if cfg.Provider.MetricsAPIKey == "" {
		cfg.Provider.MetricsAPIKey = loadedSecrets["metrics-api-key"]
	}

	return cfg.WithDefaults()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
