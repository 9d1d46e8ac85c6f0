// Package anyllm writes marketing copy through github.com/mozilla-ai/any-llm-go,
// using Anthropic for "claude" requests and Gemini otherwise.
package anyllm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"

	"github.com/vanman2024/content-image-generation-mcp/internal/provider"
	"github.com/vanman2024/content-image-generation-mcp/pkg/models"
)

const (
	systemPrompt   = "You are an expert marketing copywriter."
	claudeMaxToken = 1024
	wordsToTokens  = 1.3
)

type completion struct {
	Text        string
	TotalTokens int
}

// completeFunc runs one chat completion. Backends are adapted to it so tests
// can substitute canned responses.
type completeFunc func(ctx context.Context, params anyllmlib.CompletionParams) (completion, error)

func fromBackend(b anyllmlib.Provider) completeFunc {
	return func(ctx context.Context, params anyllmlib.CompletionParams) (completion, error) {
		resp, err := b.Completion(ctx, params)
		if err != nil {
			return completion{}, err
		}
		if len(resp.Choices) == 0 {
			return completion{}, fmt.Errorf("empty choices in response")
		}
		c := completion{Text: resp.Choices[0].Message.ContentString()}
		if resp.Usage != nil {
			c.TotalTokens = resp.Usage.TotalTokens
		}
		return c, nil
	}
}

type Config struct {
	AnthropicAPIKey string
	GoogleAPIKey    string
}

type Provider struct {
	claude   completeFunc
	gemini   completeFunc
	registry *models.ModelRegistry
	logger   *slog.Logger
}

// New builds whichever backends have keys. At least one is required.
func New(cfg Config, registry *models.ModelRegistry, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Provider{registry: registry, logger: logger.With("provider", "anyllm")}

	if cfg.AnthropicAPIKey != "" {
		b, err := anthropic.New(anyllmlib.WithAPIKey(cfg.AnthropicAPIKey))
		if err != nil {
			return nil, fmt.Errorf("anyllm: create anthropic backend: %w", err)
		}
		p.claude = fromBackend(b)
	}
	if cfg.GoogleAPIKey != "" {
		b, err := gemini.New(anyllmlib.WithAPIKey(cfg.GoogleAPIKey))
		if err != nil {
			return nil, fmt.Errorf("anyllm: create gemini backend: %w", err)
		}
		p.gemini = fromBackend(b)
	}
	if p.claude == nil && p.gemini == nil {
		return nil, provider.ErrAPIKeyRequired
	}
	return p, nil
}

// GenerateText uses Claude when it is asked for and configured, and Gemini
// for everything else.
func (p *Provider) GenerateText(ctx context.Context, req *models.TextRequest) (*models.TextResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	name := "gemini"
	call := p.gemini
	if strings.EqualFold(req.Model, "claude") && p.claude != nil {
		name, call = "claude", p.claude
	}
	if call == nil {
		// Only Claude is configured.
		name, call = "claude", p.claude
	}
	model, ok := p.registry.GetText(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownTextModel, name)
	}

	params := anyllmlib.CompletionParams{
		Model: model.APIModel,
		Messages: []anyllmlib.Message{
			{Role: anyllmlib.RoleSystem, Content: systemPrompt},
			{Role: "user", Content: req.Prompt()},
		},
	}
	if name == "claude" {
		maxTokens := claudeMaxToken
		params.MaxTokens = &maxTokens
	}

	c, err := call(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", provider.ErrTextGenerationFailed, model.APIModel, err)
	}

	tokens := c.TotalTokens
	if tokens == 0 {
		tokens = EstimateTokens(c.Text)
	}
	p.logger.Debug("content generated", "model", model.APIModel, "tokens", tokens)

	return &models.TextResponse{
		Content:    c.Text,
		ModelUsed:  model.APIModel,
		PriceTier:  model.PriceTier,
		TokensUsed: tokens,
	}, nil
}

// EstimateTokens approximates a token count from words when the backend does
// not report usage.
func EstimateTokens(text string) int {
	return int(float64(len(strings.Fields(text))) * wordsToTokens)
}
