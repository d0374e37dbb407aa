package llmservice

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"docqa/internal/config"
	"docqa/internal/errs"
)

// Client generates answers through an OpenAI-compatible chat endpoint.
type Client struct {
	llm         *openai.LLM
	temperature float64
}

func NewClient(cfg *config.LLMConfig) (*Client, error) {
	httpClient := &http.Client{Timeout: time.Duration(cfg.TimeoutSecs) * time.Second}
	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithModel(cfg.Model),
		openai.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrGenerationFailed, err)
	}
	return &Client{llm: llm, temperature: cfg.Temperature}, nil
}

// Generate submits a single text prompt and returns the generated text.
// Failures come back classified (see Classify).
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: prompt}},
		},
	}

	res, err := c.llm.GenerateContent(ctx, messages, llms.WithTemperature(c.temperature))
	if err != nil {
		log.Debug().Err(err).Msg("llm generation failed")
		return "", Classify(err)
	}
	if len(res.Choices) == 0 || res.Choices[0].Content == "" {
		return "", fmt.Errorf("%w: backend returned no content", errs.ErrGenerationFailed)
	}
	return res.Choices[0].Content, nil
}

// Classify maps a backend failure onto the generation error taxonomy.
// The backend exposes no structured codes, so authentication and quota
// failures are recognized by message pattern.
func Classify(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "invalid api key"),
		strings.Contains(msg, "no auth credentials"),
		strings.Contains(msg, "unauthorized"),
		strings.Contains(msg, "401"):
		return fmt.Errorf("%w: %w: %v", errs.ErrGenerationFailed, errs.ErrAuthFailed, err)
	case strings.Contains(msg, "quota"),
		strings.Contains(msg, "insufficient credits"),
		strings.Contains(msg, "402"):
		return fmt.Errorf("%w: %w: %v", errs.ErrGenerationFailed, errs.ErrQuotaExceeded, err)
	default:
		return fmt.Errorf("%w: %v", errs.ErrGenerationFailed, err)
	}
}

// UserMessage renders a classified failure as actionable guidance.
func UserMessage(err error) string {
	switch {
	case errs.IsAuthFailed(err):
		return "Authentication with the LLM backend failed. Check your API key."
	case errs.IsQuotaExceeded(err):
		return "LLM backend quota exceeded. Add credits to your account or check your billing limits."
	default:
		return fmt.Sprintf("Error processing question: %v", err)
	}
}
