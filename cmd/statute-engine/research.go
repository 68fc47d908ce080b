// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/statute-engine/internal/corpus"
	"github.com/pdiddy/statute-engine/internal/engine"
	"github.com/pdiddy/statute-engine/internal/genai"
	"github.com/pdiddy/statute-engine/internal/retrieval"
	"github.com/pdiddy/statute-engine/internal/rtrace"
	"github.com/pdiddy/statute-engine/pkg/types"
)

var researchCmd = &cobra.Command{
	Use:   "research",
	Short: "Research a case brief and produce an opinion with a trace",
	Long: `Research reads a case brief YAML file, decomposes it into legal
issues, runs coverage-driven retrieval for each issue against the vector
search service, and writes the synthesized opinion and the full research
trace to the output directory.

The opinion cites only passages present in the trace. Research never
fails on degraded external services; the opinion records reduced
confidence and concerns instead.`,
	RunE: runResearch,
}

func runResearch(cmd *cobra.Command, args []string) error {
	briefPath, _ := cmd.Flags().GetString("brief")
	if briefPath == "" {
		return fmt.Errorf("a case brief is required: use --brief case.yaml")
	}

	brief, err := loadBrief(briefPath)
	if err != nil {
		return err
	}

	cfg := engineConfigFromFlags(cmd)
	eng, store, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	result, err := eng.Run(context.Background(), brief, os.Stdout)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return writeResult(result, cfg.OutputDir, jsonOutput)
}

// loadBrief reads and validates a case brief YAML file.
func loadBrief(path string) (*types.CaseBrief, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading case brief: %w", err)
	}
	var brief types.CaseBrief
	if err := yaml.Unmarshal(data, &brief); err != nil {
		return nil, fmt.Errorf("parsing case brief %s: %w", path, err)
	}
	if err := brief.Validate(); err != nil {
		return nil, fmt.Errorf("invalid case brief %s: %w", path, err)
	}
	return &brief, nil
}

// engineConfigFromFlags assembles the engine configuration from flags,
// config file values, and loaded secrets.
func engineConfigFromFlags(cmd *cobra.Command) types.EngineConfig {
	apiKey, _ := cmd.Flags().GetString("api-key")
	provider, _ := cmd.Flags().GetString("provider")
	model, _ := cmd.Flags().GetString("model")
	endpoint, _ := cmd.Flags().GetString("search-endpoint")
	corpusDir, _ := cmd.Flags().GetString("corpus-dir")
	outputDir, _ := cmd.Flags().GetString("output-dir")
	maxIterations, _ := cmd.Flags().GetInt("max-iterations")
	maxPassages, _ := cmd.Flags().GetInt("max-passages")
	maxElapsed, _ := cmd.Flags().GetDuration("max-elapsed")

	if provider == "" {
		provider = viper.GetString("genai.provider")
	}
	if provider == "" {
		provider = "anthropic"
	}
	secretKey := "anthropic-api-key"
	if provider == "openai" {
		secretKey = "openai-api-key"
	}
	if endpoint == "" {
		endpoint = viper.GetString("search.endpoint")
	}
	if model == "" {
		model = viper.GetString("genai.model")
	}

	return types.EngineConfig{
		Research: types.ResearchConfig{
			MaxIterations: maxIterations,
			MaxPassages:   maxPassages,
			MaxElapsed:    maxElapsed,
		},
		GenAI: types.GenAIConfig{
			Provider:       provider,
			Model:          model,
			EmbeddingModel: viper.GetString("genai.embedding_model"),
			APIKey:         secretDefault(secretKey, apiKey),
			CallTimeout:    30 * time.Second,
		},
		Search: types.SearchConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   30 * time.Second,
				UserAgent: "statute-engine/" + version,
			},
			Endpoint:            endpoint,
			SimilarityThreshold: viper.GetFloat64("search.similarity_threshold"),
		},
		Corpus:    types.CorpusConfig{CorpusDir: corpusDir},
		OutputDir: outputDir,
	}
}

// buildEngine wires the engine's collaborators: the generation backend,
// the embedding backend, the vector search adapter, and the corpus store
// that serves citation lookups.
func buildEngine(cfg types.EngineConfig) (*engine.Engine, *corpus.Store, error) {
	httpClient := &http.Client{Timeout: cfg.Search.Timeout}

	var gen genai.Generator
	switch cfg.GenAI.Provider {
	case "openai":
		gen = genai.NewOpenAIBackend(cfg.GenAI)
	case "anthropic", "":
		gen = &genai.AnthropicBackend{Config: cfg.GenAI, Client: httpClient}
	default:
		return nil, nil, fmt.Errorf("unknown generation provider %q: use anthropic or openai", cfg.GenAI.Provider)
	}

	// Embeddings come from the OpenAI embedding API regardless of the
	// generation provider.
	embedCfg := cfg.GenAI
	if embedCfg.Provider != "openai" {
		embedCfg.APIKey = secretDefault("openai-api-key", "")
	}
	embedder := genai.NewOpenAIBackend(embedCfg)

	searcher := &retrieval.HTTPSearcher{Client: httpClient, Config: cfg.Search}
	client := retrieval.NewClient(embedder, searcher, cfg.Search)

	store, err := corpus.NewStore(cfg.Corpus)
	if err != nil {
		return nil, nil, fmt.Errorf("opening corpus store: %w", err)
	}

	return engine.New(gen, client, store, cfg.Research), store, nil
}

// writeResult writes the opinion and trace documents to the output
// directory and prints their paths.
func writeResult(result *engine.CaseResult, outputDir string, jsonOutput bool) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	ext := "yaml"
	if jsonOutput {
		ext = "json"
	}
	opinionPath := filepath.Join(outputDir, fmt.Sprintf("%s-opinion.%s", result.Opinion.CaseID, ext))
	tracePath := filepath.Join(outputDir, fmt.Sprintf("%s-trace.%s", result.Opinion.CaseID, ext))

	var data []byte
	var err error
	if jsonOutput {
		data, err = json.MarshalIndent(result.Opinion, "", "  ")
	} else {
		data, err = yaml.Marshal(result.Opinion)
	}
	if err != nil {
		return fmt.Errorf("encoding opinion: %w", err)
	}
	if err := os.WriteFile(opinionPath, data, 0o644); err != nil {
		return fmt.Errorf("writing opinion: %w", err)
	}

	if jsonOutput {
		err = rtrace.ExportJSON(result.Trace, tracePath)
	} else {
		err = rtrace.ExportYAML(result.Trace, tracePath)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Opinion written to %s\n", opinionPath)
	fmt.Printf("Trace written to %s\n", tracePath)
	return nil
}

func init() {
	researchCmd.Flags().String("brief", "", "path to the case brief YAML file (required)")
	researchCmd.Flags().String("provider", "", "generation provider: anthropic or openai")
	researchCmd.Flags().String("model", "", "generation model identifier")
	researchCmd.Flags().String("api-key", "", "generation API key (default: from .secrets/)")
	researchCmd.Flags().String("search-endpoint", "", "vector search service URL")
	researchCmd.Flags().String("corpus-dir", "corpus", "base directory for the statute corpus (contains laws/, index/)")
	researchCmd.Flags().String("output-dir", "output", "directory for opinion and trace documents")
	researchCmd.Flags().Int("max-iterations", 0, "maximum retrieval iterations per issue (0 = default)")
	researchCmd.Flags().Int("max-passages", 0, "maximum passages per issue (0 = default)")
	researchCmd.Flags().Duration("max-elapsed", 0, "wall-clock budget per issue (0 = default)")
	researchCmd.Flags().Bool("json", false, "write opinion and trace as JSON instead of YAML")

	rootCmd.AddCommand(researchCmd)
}
