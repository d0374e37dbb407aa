package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"docqa/internal/config"
	"docqa/internal/embedding"
	"docqa/internal/errs"
	"docqa/internal/helper"
	"docqa/internal/llmservice"
	"docqa/internal/parser"
	"docqa/internal/rag"
	"docqa/internal/render"
	"docqa/internal/vectorstore"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	// .env is optional; absence is not an error
	_ = godotenv.Load()

	var configPath string
	var debug bool

	rootCmd := &cobra.Command{
		Use:   "docqa",
		Short: "ask questions about a document",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", configFilePath, "path to config.yaml")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	var askFile, askQuestion string
	var askHTML bool
	askCmd := &cobra.Command{
		Use:   "ask",
		Short: "ingest a document and answer a single question",
		RunE: func(cmd *cobra.Command, args []string) error {
			if askFile == "" || askQuestion == "" {
				return fmt.Errorf("--file and --question are required")
			}
			return runAsk(cmd.Context(), configPath, askFile, askQuestion, askHTML)
		},
	}
	askCmd.Flags().StringVar(&askFile, "file", "", "path to the document file")
	askCmd.Flags().StringVar(&askQuestion, "question", "", "question to be answered")
	askCmd.Flags().BoolVar(&askHTML, "html", false, "render the answer as HTML")
	rootCmd.AddCommand(askCmd)

	var chatFile string
	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "ingest a document and answer questions interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			if chatFile == "" {
				return fmt.Errorf("--file is required")
			}
			return runChat(cmd.Context(), configPath, chatFile)
		},
	}
	chatCmd.Flags().StringVar(&chatFile, "file", "", "path to the document file")
	rootCmd.AddCommand(chatCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

// buildPipeline wires the embedder, generator and vector store backend
// selected by the config. The returned cleanup closes backend resources.
func buildPipeline(cfg *config.Config) (*rag.Pipeline, func(), error) {
	embedder, err := embedding.NewEmbedder(&cfg.Embedding)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing embedder: %w", err)
	}

	generator, err := llmservice.NewClient(&cfg.LLM)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing llm client: %w", err)
	}

	cleanup := func() {}
	var factory vectorstore.Factory
	switch cfg.Store.Type {
	case "chromem":
		if cfg.Store.Path != "" {
			if err := helper.CreateFolder(cfg.Store.Path); err != nil {
				return nil, nil, err
			}
		}
		factory, err = vectorstore.NewChromemFactory(cfg.Store.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("initializing vector store: %w", err)
		}
	case "postgres":
		pg := vectorstore.NewPostgresFactory(&cfg.Store)
		factory = pg
		cleanup = func() {
			if err := pg.Close(); err != nil {
				log.Warn().Err(err).Msg("closing postgres store")
			}
		}
	default:
		return nil, nil, fmt.Errorf("%w: unknown store type %q", errs.ErrInvalidInput, cfg.Store.Type)
	}

	return rag.New(cfg, embedder, generator, factory), cleanup, nil
}

func ingestFile(ctx context.Context, cfg *config.Config, pipeline *rag.Pipeline, filePath string) error {
	doc, err := parser.New(cfg.RAG.MaxFileSizeMB).Parse(filePath)
	if err != nil {
		return fmt.Errorf("parsing document: %w", err)
	}
	stats, err := pipeline.Ingest(ctx, doc)
	if err != nil {
		return fmt.Errorf("ingesting document: %w", err)
	}
	log.Info().
		Int("chunks", stats.ChunkCount).
		Float64("avg_chunk_size", stats.AvgChunkSize).
		Int("total_characters", stats.TotalCharacters).
		Int("vectors", stats.VectorCount).
		Msg("document ready")
	return nil
}

func runAsk(ctx context.Context, configPath, filePath, question string, asHTML bool) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	pipeline, cleanup, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := ingestFile(ctx, cfg, pipeline, filePath); err != nil {
		return err
	}
	defer func() {
		if err := pipeline.Clear(ctx); err != nil {
			log.Warn().Err(err).Msg("clearing pipeline")
		}
	}()

	result, err := pipeline.Answer(ctx, question)
	if err != nil {
		return err
	}
	printResult(result.Answer, result.Sources, asHTML)
	return nil
}

func runChat(ctx context.Context, configPath, filePath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	pipeline, cleanup, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := ingestFile(ctx, cfg, pipeline, filePath); err != nil {
		return err
	}
	defer func() {
		if err := pipeline.Clear(ctx); err != nil {
			log.Warn().Err(err).Msg("clearing pipeline")
		}
	}()

	fmt.Println("Document loaded. Ask questions (\"exit\" to quit).")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "exit" || question == "quit" {
			break
		}
		result, err := pipeline.Answer(ctx, question)
		if err != nil {
			if errors.Is(err, errs.ErrEmptyQuestion) {
				continue
			}
			return err
		}
		printResult(result.Answer, result.Sources, false)
	}
	return scanner.Err()
}

func printResult(answer string, sources []string, asHTML bool) {
	if asHTML {
		html, err := render.ToHTML(answer)
		if err != nil {
			log.Warn().Err(err).Msg("rendering answer as HTML, falling back to plain text")
		} else {
			answer = html
		}
	}
	fmt.Printf("\n%s\n", answer)
	if len(sources) > 0 {
		fmt.Printf("\nSources (%d):\n", len(sources))
		for i, source := range sources {
			fmt.Printf("  %d. %s\n", i+1, source)
		}
	}
	fmt.Println()
}
