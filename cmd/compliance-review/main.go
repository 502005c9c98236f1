// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the compliance-review CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/compliance-review/internal/secrets"
	"github.com/pdiddy/compliance-review/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns value when set, otherwise the secret for key from
// .secrets/ or its environment variable.
func secretDefault(key, value string) string {
	if value != "" {
		return value
	}
	v, _ := secrets.Lookup(loadedSecrets, key)
	return v
}

// rootCmd is the base command for the compliance-review CLI.
var rootCmd = &cobra.Command{
	Use:   "compliance-review",
	Short: "Review ADGM corporate documents for regulatory compliance",
	Long: `compliance-review checks legal documents submitted to the Abu Dhabi Global
Market (ADGM) registration authority. It classifies each document, runs
rule-based checks for jurisdiction, drafting language, mandatory sections and
signature blocks, optionally validates the document against a regulatory
knowledge base with a language model, and scores the batch against the
documents its process requires.

Subcommands: review, search, knowledge, serve, version.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading .env: %w", err)
		}

		level, _ := cmd.Flags().GetString("log-level")
		if err := setupLogger(level); err != nil {
			return err
		}

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			slog.Debug("loaded secrets", "keys", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./compliance-review.yaml or ~/.config/compliance-review/compliance-review.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("knowledge-dir", "", "knowledge base directory (contains corpus/, index/)")
	_ = viper.BindPFlag("knowledge.knowledge_dir", rootCmd.PersistentFlags().Lookup("knowledge-dir"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("compliance-review")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "compliance-review"))
		}
	}

	viper.SetEnvPrefix("COMPLIANCE_REVIEW")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults(types.DefaultConfig())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults registers every configuration key so that environment
// variables override keys absent from the config file.
func setDefaults(d types.Config) {
	defaults := map[string]any{
		"review.workers":             d.Review.Workers,
		"review.leading_paragraphs":  d.Review.LeadingParagraphs,
		"review.ruleset":             d.Review.RuleSet,
		"review.output_dir":          d.Review.OutputDir,
		"review.enable_ai":           d.Review.EnableAI,
		"retrieval.top_k":            d.Retrieval.TopK,
		"retrieval.context_passages": d.Retrieval.ContextPassages,
		"retrieval.cache.redis_addr": d.Retrieval.Cache.RedisAddr,
		"retrieval.cache.ttl":        d.Retrieval.Cache.TTL,
		"knowledge.backend":          string(d.Knowledge.Backend),
		"knowledge.knowledge_dir":    d.Knowledge.KnowledgeDir,
		"knowledge.database_url":     d.Knowledge.DatabaseURL,
		"knowledge.partitions":       d.Knowledge.Partitions,
		"embedding.provider":         string(d.Embedding.Provider),
		"embedding.model":            d.Embedding.Model,
		"embedding.base_url":         d.Embedding.BaseURL,
		"embedding.api_key":          d.Embedding.APIKey,
		"embedding.max_retries":      d.Embedding.MaxRetries,
		"llm.provider":               string(d.LLM.Provider),
		"llm.model":                  d.LLM.Model,
		"llm.base_url":               d.LLM.BaseURL,
		"llm.api_key":                d.LLM.APIKey,
		"llm.max_retries":            d.LLM.MaxRetries,
		"reranker.url":               d.Reranker.URL,
		"reranker.timeout":           d.Reranker.Timeout,
		"reranker.max_retries":       d.Reranker.MaxRetries,
		"server.addr":                d.Server.Addr,
	}
	for k, v := range defaults {
		viper.SetDefault(k, v)
	}
}

// loadConfig decodes the merged viper settings.
func loadConfig() (types.Config, error) {
	cfg := types.DefaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding configuration: %w", err)
	}
	return cfg, nil
}

func setupLogger(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
