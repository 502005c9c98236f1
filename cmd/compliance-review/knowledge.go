// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/compliance-review/internal/acquire"
	"github.com/pdiddy/compliance-review/internal/knowledge"
)

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "Manage the regulatory knowledge base (fetch, seed, export, partitions)",
	Long: `Knowledge manages the vector store that backs AI validation and search.
The store is SQLite under knowledge/index/ by default or PostgreSQL with
pgvector when knowledge.backend is pgvector.`,
}

// --- fetch subcommand ---

var knowledgeFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download official ADGM documents into the corpus",
	Long: `Fetch downloads the official ADGM registration pages, checklists,
employment templates and rulebook documents to knowledge/sources/, converts
each to text and writes knowledge/corpus/fetched_official_documents.yaml for
the official_documents partition. Run knowledge seed afterwards to index it.

Files already downloaded are not fetched again. --sources replaces the
built-in list with a YAML list of {category, url} entries.`,
	RunE: runKnowledgeFetch,
}

func runKnowledgeFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	delay, _ := cmd.Flags().GetDuration("delay")
	sourcesFile, _ := cmd.Flags().GetString("sources")

	sources := acquire.DefaultSources()
	if sourcesFile != "" {
		data, err := os.ReadFile(sourcesFile)
		if err != nil {
			return fmt.Errorf("reading %s: %w", sourcesFile, err)
		}
		sources = nil
		if err := yaml.Unmarshal(data, &sources); err != nil {
			return fmt.Errorf("parsing %s: %w", sourcesFile, err)
		}
	}

	ctx := cmd.Context()
	f := &acquire.Fetcher{
		Client:    &http.Client{Timeout: 2 * time.Minute},
		Converter: newConverter(ctx),
		Dir:       filepath.Join(cfg.Knowledge.KnowledgeDir, "sources"),
		UserAgent: "compliance-review/" + version,
		Delay:     delay,
	}
	result, err := f.FetchAll(ctx, sources, os.Stdout)
	if err != nil {
		return err
	}
	if len(result.Passages) > 0 {
		out := filepath.Join(cfg.Knowledge.KnowledgeDir, "corpus", "fetched_official_documents.yaml")
		if err := acquire.WriteCorpus(out, result.Passages); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Wrote %d passages to %s\n", len(result.Passages), out)
	}
	if result.HasFailures() {
		return fmt.Errorf("%d source(s) failed", result.Failed)
	}
	return nil
}

// --- seed subcommand ---

var knowledgeSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Ingest corpus files into the knowledge base",
	Long: `Seed reads corpus YAML files from knowledge/corpus/ (or --dir), embeds
every passage with the configured embedding provider and stores it in its
partition. Files unchanged since the last run are skipped.

--builtin seeds the ADGM regulations, checklists and templates compiled into
the binary instead.`,
	RunE: runKnowledgeSeed,
}

func runKnowledgeSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	builtin, _ := cmd.Flags().GetBool("builtin")
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		dir = filepath.Join(cfg.Knowledge.KnowledgeDir, "corpus")
	}

	ctx := cmd.Context()
	b, err := openKnowledge(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.close()

	var summary knowledge.SeedSummary
	if builtin {
		summary, err = knowledge.SeedDefaults(ctx, b.store, b.embedder, os.Stdout)
	} else {
		summary, err = knowledge.Seed(ctx, b.store, b.embedder, dir, os.Stdout)
	}
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d corpus file(s) failed seeding", summary.Failed)
	}
	return nil
}

// --- export subcommand ---

var knowledgeExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the knowledge base to YAML or JSON",
	Long: `Export writes every stored passage to knowledge/index/export.yaml or
export.json. --partition limits the export to the named partitions.`,
	RunE: runKnowledgeExport,
}

func runKnowledgeExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	partitions, _ := cmd.Flags().GetStringSlice("partition")
	out, _ := cmd.Flags().GetString("output")
	if out == "" {
		out = filepath.Join(cfg.Knowledge.KnowledgeDir, "index", "export."+format)
	}

	ctx := cmd.Context()
	b, err := openKnowledge(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.close()

	n, err := knowledge.Export(ctx, b.store, partitions, format, out)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Exported %d passages to %s\n", n, out)
	return nil
}

// --- partitions subcommand ---

var knowledgePartitionsCmd = &cobra.Command{
	Use:   "partitions",
	Short: "List the partitions present in the knowledge base",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		b, err := openKnowledge(ctx, cfg)
		if err != nil {
			return err
		}
		defer b.close()

		partitions, err := b.store.Partitions(ctx)
		if err != nil {
			return err
		}
		if len(partitions) == 0 {
			fmt.Println("Knowledge base is empty. Run: compliance-review knowledge seed --builtin")
			return nil
		}
		for _, p := range partitions {
			passages, err := b.store.All(ctx, p)
			if err != nil {
				return err
			}
			fmt.Printf("%-28s  %d passages\n", p, len(passages))
		}
		return nil
	},
}

func init() {
	knowledgeFetchCmd.Flags().Duration("delay", time.Second, "pause between downloads")
	knowledgeFetchCmd.Flags().String("sources", "", "YAML list of {category, url} sources (default built-in ADGM list)")

	knowledgeSeedCmd.Flags().Bool("builtin", false, "seed the built-in ADGM corpus")
	knowledgeSeedCmd.Flags().String("dir", "", "corpus directory (default <knowledge_dir>/corpus)")

	knowledgeExportCmd.Flags().String("format", knowledge.FormatYAML, "export format: yaml or json")
	knowledgeExportCmd.Flags().StringSlice("partition", nil, "partitions to export (default all)")
	knowledgeExportCmd.Flags().String("output", "", "output file (default <knowledge_dir>/index/export.<format>)")

	knowledgeCmd.AddCommand(knowledgeFetchCmd)
	knowledgeCmd.AddCommand(knowledgeSeedCmd)
	knowledgeCmd.AddCommand(knowledgeExportCmd)
	knowledgeCmd.AddCommand(knowledgePartitionsCmd)
	rootCmd.AddCommand(knowledgeCmd)
}
