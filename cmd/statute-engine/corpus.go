// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/statute-engine/internal/corpus"
	"github.com/pdiddy/statute-engine/pkg/types"
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Manage the local statute corpus (ingest, lookup, search, export)",
	Long: `Corpus manages the local SQLite statute store built from law YAML
files. The store backs the engine's citation lookups during reference
expansion; the search subcommand offers FTS5 keyword inspection.`,
}

// --- ingest subcommand ---

var corpusIngestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest law YAML files into the corpus store",
	Long: `Ingest reads law files from corpus/laws/, indexes their passages
into a SQLite database with FTS5, and reports a summary. Unchanged law
files are skipped on subsequent runs.`,
	RunE: runCorpusIngest,
}

func runCorpusIngest(cmd *cobra.Command, args []string) error {
	store, err := corpus.NewStore(corpusConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.Ingest(context.Background(), os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d law file(s) failed indexing", summary.Failed)
	}
	return nil
}

// --- lookup subcommand ---

var corpusLookupCmd = &cobra.Command{
	Use:   "lookup <law-id> <article>",
	Short: "Fetch one statutory passage by exact reference",
	Args:  cobra.ExactArgs(2),
	RunE:  runCorpusLookup,
}

func runCorpusLookup(cmd *cobra.Command, args []string) error {
	lang, _ := cmd.Flags().GetString("language")

	store, err := corpus.NewStore(corpusConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	p, err := store.GetByReference(context.Background(), args[0], args[1], types.Language(lang))
	if err != nil {
		return err
	}
	if p == nil {
		fmt.Printf("No passage found for %s article %s.\n", args[0], args[1])
		return nil
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}
	printPassage(p)
	return nil
}

// --- search subcommand ---

var corpusSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Keyword-search the corpus with full-text search and filters",
	Long: `Search runs an FTS5 keyword query over indexed passages, optionally
filtered by law or language partition. This inspects the local store;
case research retrieves through the vector search service instead.`,
	RunE: runCorpusSearch,
}

func runCorpusSearch(cmd *cobra.Command, args []string) error {
	store, err := corpus.NewStore(corpusConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	opts := searchOptsFromFlags(cmd, args)
	if opts.IsEmpty() {
		return fmt.Errorf("query or filter required: provide search terms, --law, or --language")
	}

	results, err := store.Search(context.Background(), opts)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	for i := range results {
		printPassage(&results[i])
	}
	fmt.Printf("\n%d results\n", len(results))
	return nil
}

// --- export subcommand ---

var corpusExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the corpus to YAML or JSON",
	Long: `Export writes the full corpus (or a filtered subset) to
corpus/index/export.yaml or export.json. Supports the same filter flags
as search for partial exports.`,
	RunE: runCorpusExport,
}

func runCorpusExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	store, err := corpus.NewStore(corpusConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	opts := searchOptsFromFlags(cmd, args)

	switch format {
	case "yaml", "":
		if err := store.ExportYAML(context.Background(), opts); err != nil {
			return err
		}
		fmt.Println("Exported to corpus/index/export.yaml")
	case "json":
		if err := store.ExportJSON(context.Background(), opts); err != nil {
			return err
		}
		fmt.Println("Exported to corpus/index/export.json")
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}

	return nil
}

// --- shared helpers ---

func corpusConfig(cmd *cobra.Command) types.CorpusConfig {
	corpusDir, _ := cmd.Flags().GetString("corpus-dir")
	if corpusDir == "" {
		corpusDir = "corpus"
	}
	maxResults, _ := cmd.Flags().GetInt("max-results")

	return types.CorpusConfig{
		CorpusDir:  corpusDir,
		MaxResults: maxResults,
	}
}

func searchOptsFromFlags(cmd *cobra.Command, args []string) corpus.SearchOptions {
	queryText, _ := cmd.Flags().GetString("query")
	if queryText == "" && len(args) > 0 {
		queryText = strings.Join(args, " ")
	}

	lawID, _ := cmd.Flags().GetString("law")
	lang, _ := cmd.Flags().GetString("language")
	limit, _ := cmd.Flags().GetInt("limit")

	return corpus.SearchOptions{
		Query:      queryText,
		Language:   types.Language(lang),
		LawID:      lawID,
		MaxResults: limit,
	}
}

func printPassage(p *types.Passage) {
	fmt.Printf("[%s] law %s, article %s (%s)\n", p.SourceID, p.LawID, p.Article, p.Language)
	text := p.Text
	if len(text) > 300 {
		text = text[:297] + "..."
	}
	fmt.Printf("  %s\n", text)
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	corpusCmd.PersistentFlags().String("corpus-dir", "corpus", "base directory for the corpus (contains laws/, index/)")
	corpusCmd.PersistentFlags().Int("max-results", 20, "maximum number of query results")

	// Lookup flags.
	corpusLookupCmd.Flags().String("language", "ar", "corpus partition: ar or en")
	corpusLookupCmd.Flags().Bool("json", false, "output the passage as JSON")

	// Search flags.
	corpusSearchCmd.Flags().String("query", "", "full-text search query")
	corpusSearchCmd.Flags().String("law", "", "filter by law ID")
	corpusSearchCmd.Flags().String("language", "", "filter by corpus partition: ar or en")
	corpusSearchCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	corpusSearchCmd.Flags().Bool("json", false, "output results as JSON")

	// Export flags.
	corpusExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	corpusExportCmd.Flags().String("query", "", "full-text search filter for partial export")
	corpusExportCmd.Flags().String("law", "", "filter by law ID for partial export")
	corpusExportCmd.Flags().String("language", "", "filter by partition for partial export")
	corpusExportCmd.Flags().Int("limit", 0, "maximum passages to export (0 = all)")

	// Wire subcommands.
	corpusCmd.AddCommand(corpusIngestCmd)
	corpusCmd.AddCommand(corpusLookupCmd)
	corpusCmd.AddCommand(corpusSearchCmd)
	corpusCmd.AddCommand(corpusExportCmd)

	rootCmd.AddCommand(corpusCmd)
}
