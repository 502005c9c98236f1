// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/compliance-review/internal/classify"
	"github.com/pdiddy/compliance-review/internal/container"
	"github.com/pdiddy/compliance-review/internal/convert"
	"github.com/pdiddy/compliance-review/internal/observability"
	"github.com/pdiddy/compliance-review/internal/review"
	"github.com/pdiddy/compliance-review/internal/rules"
	"github.com/pdiddy/compliance-review/pkg/types"
)

var reviewCmd = &cobra.Command{
	Use:   "review [files...]",
	Short: "Review a batch of documents and print the compliance report",
	Long: `Review classifies each file, runs the rule-based checks and, with --ai,
validates it against the regulatory knowledge base using the configured
language model. The batch is matched to the regulatory process it belongs to
(company incorporation, licensing, employment) and scored.

.docx, .txt and .md files are read natively. Other formats are converted
through the markitdown container when docker or podman is available.

Annotated copies of each document are written to --output-dir.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReview,
}

func runReview(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	outPath, _ := cmd.Flags().GetString("output")
	if format != "json" && format != "yaml" {
		return fmt.Errorf("unsupported format %q: use json or yaml", format)
	}

	ctx := cmd.Context()
	pipeline, cleanup, err := buildPipeline(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	inputs := make([]review.Input, len(args))
	for i, path := range args {
		inputs[i] = review.Input{Name: filepath.Base(path), Path: path}
	}

	report, err := pipeline.Run(ctx, inputs)
	if err != nil {
		return err
	}

	out := io.Writer(os.Stdout)
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating %s: %w", outPath, err)
		}
		defer f.Close()
		out = f
	}
	if err := writeReport(out, report, format); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\nscore: %d (%s), issues: %d, missing documents: %d\n",
		report.Score, report.Status, report.TotalIssues, len(report.MissingDocuments))
	for _, d := range report.Documents {
		if d.ReviewedFile != "" {
			fmt.Fprintf(os.Stderr, "reviewed %s -> %s\n", d.Name, d.ReviewedFile)
		}
	}

	failed := 0
	for _, d := range report.Documents {
		if d.Failed() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d document(s) could not be read", failed)
	}
	return nil
}

// buildPipeline wires the review pipeline from configuration. The returned
// cleanup releases any remote backends.
func buildPipeline(ctx context.Context, cfg types.Config, metrics *observability.Metrics) (*review.Pipeline, func(), error) {
	analyzer := rules.Default()
	if cfg.Review.RuleSet != "" {
		rs, err := rules.LoadRuleSet(cfg.Review.RuleSet)
		if err != nil {
			return nil, nil, err
		}
		if analyzer, err = rules.New(rs); err != nil {
			return nil, nil, err
		}
	}
	classifier, err := classify.New(classify.DefaultRules(), classify.WithLeadingParagraphs(cfg.Review.LeadingParagraphs))
	if err != nil {
		return nil, nil, err
	}

	opts := []review.Option{
		review.WithConverter(newConverter(ctx)),
		review.WithClassifier(classifier),
		review.WithAnalyzer(analyzer),
		review.WithOutputDir(cfg.Review.OutputDir),
		review.WithWorkers(cfg.Review.Workers),
		review.WithLogger(slog.Default()),
		review.WithMetrics(metrics),
	}

	cleanup := func() {}
	if cfg.Review.EnableAI {
		b, err := openBackends(ctx, cfg, metrics, true)
		if err != nil {
			return nil, nil, err
		}
		cleanup = b.close
		if b.reasoner != nil {
			opts = append(opts, review.WithValidator(b.reasoner))
		}
	}
	return review.New(opts...), cleanup, nil
}

// newConverter reads .docx and text natively and adds markitdown for
// everything else when a container runtime and the image are present.
func newConverter(ctx context.Context) *convert.Registry {
	rt, err := container.DetectRuntime(ctx)
	if err != nil {
		slog.Debug("markitdown disabled", "error", err)
		return convert.DefaultRegistry(nil)
	}
	m, err := convert.NewMarkitdownConverter(ctx, rt)
	if err != nil {
		slog.Debug("markitdown disabled", "error", err)
		return convert.DefaultRegistry(nil)
	}
	return convert.DefaultRegistry(m)
}

func writeReport(w io.Writer, report *types.ComplianceReport, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
}

func init() {
	reviewCmd.Flags().String("format", "json", "report format: json or yaml")
	reviewCmd.Flags().String("output", "", "write the report to this file instead of stdout")
	reviewCmd.Flags().String("output-dir", "", "directory for annotated reviewed documents (empty disables)")
	reviewCmd.Flags().Int("workers", 0, "documents reviewed concurrently")
	reviewCmd.Flags().Bool("ai", false, "validate documents with the configured language model")
	reviewCmd.Flags().String("ruleset", "", "YAML rule set replacing the built-in rules")

	_ = viper.BindPFlag("review.output_dir", reviewCmd.Flags().Lookup("output-dir"))
	_ = viper.BindPFlag("review.workers", reviewCmd.Flags().Lookup("workers"))
	_ = viper.BindPFlag("review.enable_ai", reviewCmd.Flags().Lookup("ai"))
	_ = viper.BindPFlag("review.ruleset", reviewCmd.Flags().Lookup("ruleset"))

	rootCmd.AddCommand(reviewCmd)
}
