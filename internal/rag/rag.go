package rag

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"docqa/internal/chunker"
	"docqa/internal/config"
	"docqa/internal/errs"
	"docqa/internal/helper"
	"docqa/internal/llmservice"
	"docqa/internal/models"
	"docqa/internal/parser"
	"docqa/internal/vectorstore"
)

// Embedder maps text to fixed-dimension vectors. The langchaingo
// embedders satisfy this.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Generator produces an answer for an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Pipeline is the caller-owned handle over one document session: ingest a
// document, answer questions against it, clear it. One collection is
// active at a time; a new ingest replaces the previous one.
type Pipeline struct {
	mu        sync.RWMutex
	cfg       *config.Config
	splitter  *chunker.Splitter
	embedder  Embedder
	generator Generator
	factory   vectorstore.Factory
	store     vectorstore.Store // nil until a successful ingest
}

func New(cfg *config.Config, embedder Embedder, generator Generator, factory vectorstore.Factory) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		splitter:  chunker.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap),
		embedder:  embedder,
		generator: generator,
		factory:   factory,
	}
}

// Ready reports whether a document is currently ingested.
func (p *Pipeline) Ready() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.store != nil
}

// Collection returns the active collection name, empty when none.
func (p *Pipeline) Collection() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.store == nil {
		return ""
	}
	return p.store.Name()
}

// Ingest chunks the document, embeds every chunk and indexes the pairs in
// a fresh uniquely named collection. Any previously active collection is
// dropped first. On failure the pipeline is left uninitialized and must
// not accept queries.
func (p *Pipeline) Ingest(ctx context.Context, doc *parser.Document) (*models.IngestStats, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.store != nil {
		if err := p.store.Drop(ctx); err != nil {
			log.Warn().Err(err).Str("collection", p.store.Name()).Msg("failed to drop previous collection")
		}
		p.store = nil
	}

	chunks, err := p.splitter.Split(doc.Text())
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, errs.ErrEmptyDocument
	}

	vectors, err := p.embedder.EmbedDocuments(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrEmbeddingFailed, err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d vectors for %d chunks", errs.ErrEmbeddingFailed, len(vectors), len(chunks))
	}

	collection := "docqa_" + helper.ShortID()
	store, err := p.factory.Open(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrIndexCreationFailed, err)
	}

	docs := make([]vectorstore.Document, 0, len(chunks))
	totalChars := 0
	for i, chunk := range chunks {
		totalChars += len(chunk)
		docs = append(docs, vectorstore.Document{
			ID:        fmt.Sprintf("%s-%d", doc.Source, i+1),
			Content:   chunk,
			Embedding: vectors[i],
		})
	}
	if err := store.Insert(ctx, docs); err != nil {
		if dropErr := store.Drop(ctx); dropErr != nil {
			log.Warn().Err(dropErr).Str("collection", collection).Msg("failed to drop partial collection")
		}
		return nil, fmt.Errorf("%w: %v", errs.ErrIndexCreationFailed, err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrIndexCreationFailed, err)
	}

	p.store = store
	log.Info().
		Str("source", doc.Source).
		Str("collection", collection).
		Int("chunks", len(chunks)).
		Int("vectors", count).
		Msg("document ingested")

	avg := float64(totalChars) / float64(len(chunks))
	return &models.IngestStats{
		ChunkCount:      len(chunks),
		AvgChunkSize:    math.Round(avg*100) / 100,
		TotalCharacters: totalChars,
		VectorCount:     count,
	}, nil
}

// Answer retrieves the most similar chunks for the question and prompts
// the generator with them as context. Backend failures do not propagate:
// the result always comes back well-formed, carrying a human-readable
// message in Answer when something went wrong. Only an empty question or
// a missing ingest surface as errors.
func (p *Pipeline) Answer(ctx context.Context, question string) (models.QueryResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return models.QueryResult{}, errs.ErrEmptyQuestion
	}

	p.mu.RLock()
	store := p.store
	p.mu.RUnlock()
	if store == nil {
		return models.QueryResult{}, errs.ErrPipelineNotInitialized
	}

	queryVec, err := p.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return degraded(fmt.Errorf("%w: %v", errs.ErrRetrievalFailed, err)), nil
	}

	results, err := store.Search(ctx, queryVec, p.cfg.RAG.TopK)
	if err != nil {
		return degraded(fmt.Errorf("%w: %v", errs.ErrRetrievalFailed, err)), nil
	}

	answer, err := p.generator.Generate(ctx, assemblePrompt(results, question))
	if err != nil {
		return degraded(err), nil
	}

	sources := make([]string, 0, len(results))
	for _, r := range results {
		sources = append(sources, helper.Truncate(r.Content, models.SourcePreviewChars))
	}
	return models.QueryResult{
		Answer:      answer,
		Sources:     sources,
		SourceCount: len(sources),
	}, nil
}

// Clear drops the active collection and returns the pipeline to the
// uninitialized state. Deletion is best-effort: an already-gone or failing
// backend does not cascade. Safe to call repeatedly.
func (p *Pipeline) Clear(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.store == nil {
		return nil
	}
	if err := p.store.Drop(ctx); err != nil {
		log.Warn().Err(err).Str("collection", p.store.Name()).Msg("best-effort collection drop failed")
	}
	p.store = nil
	return nil
}

// assemblePrompt concatenates the retrieved chunks in rank order as
// context ahead of the literal question.
func assemblePrompt(results []vectorstore.Result, question string) string {
	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(r.Content)
	}
	return fmt.Sprintf(models.QAPromptTemplate, sb.String(), question)
}

func degraded(err error) models.QueryResult {
	log.Warn().Err(err).Msg("query degraded to message")
	return models.QueryResult{
		Answer:      llmservice.UserMessage(err),
		Sources:     []string{},
		SourceCount: 0,
	}
}
