// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/compliance-review/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the regulatory knowledge base",
	Long: `Search runs a hybrid query against every knowledge-base partition:
dense similarity when an embedding provider is configured, sparse term
overlap always, and cross-encoder reranking when reranker.url is set.
Results are ranked by score.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	k, _ := cmd.Flags().GetInt("k")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	ctx := cmd.Context()
	b, err := openBackends(ctx, cfg, nil, false)
	if err != nil {
		return err
	}
	defer b.close()

	passages, err := b.engine.Search(ctx, strings.Join(args, " "), k)
	if err != nil {
		return err
	}
	return formatSearchOutput(os.Stdout, passages, jsonOutput)
}

func formatSearchOutput(w io.Writer, passages []types.RetrievedPassage, jsonOutput bool) error {
	if jsonOutput {
		if passages == nil {
			passages = []types.RetrievedPassage{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(passages)
	}

	if len(passages) == 0 {
		fmt.Fprintln(w, "No results found.")
		return nil
	}

	fmt.Fprintf(w, "%-4s  %-6s  %-24s  %-28s  %s\n", "Rank", "Score", "Partition", "ID", "Content")
	fmt.Fprintln(w, strings.Repeat("-", 120))
	for i, p := range passages {
		fmt.Fprintf(w, "%-4d  %-6.3f  %-24s  %-28s  %s\n",
			i+1, p.Score, clip(p.Partition, 24), clip(p.ID, 28), clip(oneLine(p.Content), 50))
	}
	fmt.Fprintf(w, "\n%d results\n", len(passages))
	return nil
}

// clip shortens s to n runes, marking the cut with "...".
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func init() {
	searchCmd.Flags().Int("k", 0, "number of passages to return (default retrieval.top_k)")
	searchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(searchCmd)
}
