package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"docqa/internal/config"
	"docqa/internal/errs"
	"docqa/internal/llmservice"
	"docqa/internal/models"
	"docqa/internal/parser"
	"docqa/internal/vectorstore"
)

// stubEmbedder produces small deterministic feature vectors so the real
// chromem store can rank results without a model.
type stubEmbedder struct {
	failDocs  bool
	failQuery bool
	called    bool
}

func (s *stubEmbedder) embed(text string) []float32 {
	var length, vowels, spaces float32
	for _, r := range text {
		length++
		switch r {
		case 'a', 'e', 'i', 'o', 'u':
			vowels++
		case ' ':
			spaces++
		}
	}
	return []float32{length + 1, vowels + 1, spaces + 1}
}

func (s *stubEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	s.called = true
	if s.failDocs {
		return nil, errors.New("model load failure")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = s.embed(t)
	}
	return out, nil
}

func (s *stubEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	s.called = true
	if s.failQuery {
		return nil, errors.New("embedding backend unavailable")
	}
	return s.embed(text), nil
}

type stubGenerator struct {
	answer string
	err    error
	called bool
	prompt string
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	s.called = true
	s.prompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.answer, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadConfig("testdata/does-not-exist.yaml")
	require.NoError(t, err)
	return cfg
}

func newTestPipeline(t *testing.T, emb *stubEmbedder, gen *stubGenerator) *Pipeline {
	t.Helper()
	factory, err := vectorstore.NewChromemFactory("")
	require.NoError(t, err)
	return New(testConfig(t), emb, gen, factory)
}

// tenParagraphDoc chunks into exactly 10 pieces under the default 500/50
// parameters: each paragraph is well under the chunk size while any two
// together exceed it.
func tenParagraphDoc() *parser.Document {
	var paragraphs []string
	for i := 0; i < 10; i++ {
		paragraphs = append(paragraphs, strings.TrimSpace(strings.Repeat(fmt.Sprintf("paragraph %d words here ", i), 18)))
	}
	return &parser.Document{
		Source: "test.pdf",
		Pages:  []parser.Page{{Number: 1, Text: strings.Join(paragraphs, "\n\n")}},
	}
}

func TestAnswer_BeforeIngest(t *testing.T) {
	emb := &stubEmbedder{}
	gen := &stubGenerator{answer: "yes"}
	p := newTestPipeline(t, emb, gen)

	_, err := p.Answer(context.Background(), "what is this about?")
	require.ErrorIs(t, err, errs.ErrPipelineNotInitialized)
	require.False(t, emb.called, "no backend must be contacted")
	require.False(t, gen.called)
	require.False(t, p.Ready())
}

func TestAnswer_EmptyQuestion(t *testing.T) {
	emb := &stubEmbedder{}
	gen := &stubGenerator{answer: "yes"}
	p := newTestPipeline(t, emb, gen)

	_, err := p.Ingest(context.Background(), tenParagraphDoc())
	require.NoError(t, err)

	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := p.Answer(context.Background(), q)
		require.ErrorIs(t, err, errs.ErrEmptyQuestion)
	}
	require.False(t, gen.called, "no generation for empty questions")
}

func TestIngest_ChunkCountMatchesVectorCount(t *testing.T) {
	p := newTestPipeline(t, &stubEmbedder{}, &stubGenerator{answer: "ok"})

	stats, err := p.Ingest(context.Background(), tenParagraphDoc())
	require.NoError(t, err)
	require.Equal(t, 10, stats.ChunkCount)
	require.Equal(t, 10, stats.VectorCount)
	require.Greater(t, stats.TotalCharacters, 0)
	require.Greater(t, stats.AvgChunkSize, 0.0)
	require.True(t, p.Ready())
}

func TestIngest_EmptyDocument(t *testing.T) {
	p := newTestPipeline(t, &stubEmbedder{}, &stubGenerator{})

	doc := &parser.Document{Source: "blank.pdf", Pages: []parser.Page{{Number: 1, Text: "   \n \n"}}}
	_, err := p.Ingest(context.Background(), doc)
	require.ErrorIs(t, err, errs.ErrEmptyDocument)
	require.False(t, p.Ready())
}

func TestIngest_EmbeddingFailureLeavesPipelineUninitialized(t *testing.T) {
	p := newTestPipeline(t, &stubEmbedder{failDocs: true}, &stubGenerator{})

	_, err := p.Ingest(context.Background(), tenParagraphDoc())
	require.ErrorIs(t, err, errs.ErrEmbeddingFailed)
	require.False(t, p.Ready())

	_, err = p.Answer(context.Background(), "anything")
	require.ErrorIs(t, err, errs.ErrPipelineNotInitialized)
}

func TestAnswer_HealthyBackend(t *testing.T) {
	gen := &stubGenerator{answer: "It is about paragraphs."}
	p := newTestPipeline(t, &stubEmbedder{}, gen)

	_, err := p.Ingest(context.Background(), tenParagraphDoc())
	require.NoError(t, err)

	result, err := p.Answer(context.Background(), "What is this about?")
	require.NoError(t, err)
	require.NotEmpty(t, result.Answer)
	require.GreaterOrEqual(t, result.SourceCount, 1)
	require.LessOrEqual(t, result.SourceCount, 3)
	require.Len(t, result.Sources, result.SourceCount)

	require.Contains(t, gen.prompt, "What is this about?")
	require.Contains(t, gen.prompt, "don't know")
}

func TestAnswer_SourceCountBoundedByIngestedChunks(t *testing.T) {
	p := newTestPipeline(t, &stubEmbedder{}, &stubGenerator{answer: "short"})

	doc := &parser.Document{
		Source: "tiny.pdf",
		Pages:  []parser.Page{{Number: 1, Text: "just one small chunk of text"}},
	}
	stats, err := p.Ingest(context.Background(), doc)
	require.NoError(t, err)
	require.Equal(t, 1, stats.ChunkCount)

	result, err := p.Answer(context.Background(), "what?")
	require.NoError(t, err)
	require.Equal(t, 1, result.SourceCount)
}

func TestAnswer_SourcesTruncated(t *testing.T) {
	p := newTestPipeline(t, &stubEmbedder{}, &stubGenerator{answer: "ok"})

	_, err := p.Ingest(context.Background(), tenParagraphDoc())
	require.NoError(t, err)

	result, err := p.Answer(context.Background(), "what?")
	require.NoError(t, err)
	require.NotEmpty(t, result.Sources)
	for _, source := range result.Sources {
		require.LessOrEqual(t, len(source), models.SourcePreviewChars+len("..."))
		require.True(t, strings.HasSuffix(source, "..."), "long chunks must carry a trailing ellipsis")
	}
}

func TestAnswer_GenerationFailureDegradesToMessage(t *testing.T) {
	gen := &stubGenerator{err: llmservice.Classify(errors.New("connection reset by peer"))}
	p := newTestPipeline(t, &stubEmbedder{}, gen)

	_, err := p.Ingest(context.Background(), tenParagraphDoc())
	require.NoError(t, err)

	result, err := p.Answer(context.Background(), "what?")
	require.NoError(t, err, "query path must never raise for backend failures")
	require.NotEmpty(t, result.Answer)
	require.Empty(t, result.Sources)
	require.Equal(t, 0, result.SourceCount)
}

func TestAnswer_QuotaAndAuthMessagesDistinguished(t *testing.T) {
	cases := []struct {
		backendErr string
		want       string
	}{
		{"402 insufficient credits", "credits"},
		{"invalid api key provided", "API key"},
	}
	for _, tc := range cases {
		gen := &stubGenerator{err: llmservice.Classify(errors.New(tc.backendErr))}
		p := newTestPipeline(t, &stubEmbedder{}, gen)

		_, err := p.Ingest(context.Background(), tenParagraphDoc())
		require.NoError(t, err)

		result, err := p.Answer(context.Background(), "what?")
		require.NoError(t, err)
		require.Contains(t, result.Answer, tc.want)
		require.Equal(t, 0, result.SourceCount)
	}
}

func TestAnswer_RetrievalFailureDegradesToMessage(t *testing.T) {
	emb := &stubEmbedder{}
	p := newTestPipeline(t, emb, &stubGenerator{answer: "unused"})

	_, err := p.Ingest(context.Background(), tenParagraphDoc())
	require.NoError(t, err)

	emb.failQuery = true
	result, err := p.Answer(context.Background(), "what?")
	require.NoError(t, err)
	require.NotEmpty(t, result.Answer)
	require.Equal(t, 0, result.SourceCount)
}

func TestClear_ThenAnswerFails(t *testing.T) {
	p := newTestPipeline(t, &stubEmbedder{}, &stubGenerator{answer: "ok"})

	_, err := p.Ingest(context.Background(), tenParagraphDoc())
	require.NoError(t, err)
	require.True(t, p.Ready())

	require.NoError(t, p.Clear(context.Background()))
	require.False(t, p.Ready())

	_, err = p.Answer(context.Background(), "anything")
	require.ErrorIs(t, err, errs.ErrPipelineNotInitialized)

	// idempotent
	require.NoError(t, p.Clear(context.Background()))
}

func TestIngest_ReplacesPreviousCollection(t *testing.T) {
	p := newTestPipeline(t, &stubEmbedder{}, &stubGenerator{answer: "ok"})

	_, err := p.Ingest(context.Background(), tenParagraphDoc())
	require.NoError(t, err)
	first := p.Collection()
	require.NotEmpty(t, first)

	_, err = p.Ingest(context.Background(), tenParagraphDoc())
	require.NoError(t, err)
	second := p.Collection()
	require.NotEmpty(t, second)
	require.NotEqual(t, first, second, "each ingest must use a fresh uniquely named collection")
}
