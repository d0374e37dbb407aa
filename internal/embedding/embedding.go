package embedding

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"docqa/internal/config"
	"docqa/internal/errs"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// NewEmbedder builds the embedder selected by the config. The same
// embedder must be used for ingestion and querying so the embedding
// spaces match.
func NewEmbedder(cfg *config.EmbeddingConfig) (*embeddings.EmbedderImpl, error) {
	switch cfg.Provider {
	case "ollama":
		return NewOllamaEmbedder(cfg)
	case "openai":
		return NewOpenAIEmbedder(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", errs.ErrInvalidInput, cfg.Provider)
	}
}

// NewOpenAIEmbedder creates an embedder against an OpenAI-compatible
// endpoint (OpenRouter included).
func NewOpenAIEmbedder(cfg *config.EmbeddingConfig) (*embeddings.EmbedderImpl, error) {
	log.Debug().Interface("config", map[string]string{
		"base_url":        cfg.BaseURL,
		"embedding_model": cfg.Model,
	}).Msg("creating openai embedder")

	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrEmbeddingFailed, err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrEmbeddingFailed, err)
	}
	return embedder, nil
}

// NewOllamaEmbedder creates a local ollama-backed embedder.
func NewOllamaEmbedder(cfg *config.EmbeddingConfig) (*embeddings.EmbedderImpl, error) {
	log.Debug().Interface("config", map[string]string{
		"base_url":        cfg.BaseURL,
		"embedding_model": cfg.Model,
	}).Msg("creating ollama embedder")

	llm, err := ollama.New(
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrEmbeddingFailed, err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrEmbeddingFailed, err)
	}
	return embedder, nil
}
