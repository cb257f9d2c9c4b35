package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/phenrril/storefront/internal/domain"
)

const DefaultModel = "gpt-4o-mini"

// Describer drafts product descriptions with a chat completion.
type Describer struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewDescriber(apiKey, model string) *Describer {
	return NewDescriberWithConfig(openai.DefaultConfig(apiKey), model)
}

func NewDescriberWithConfig(cfg openai.ClientConfig, model string) *Describer {
	if model == "" {
		model = DefaultModel
	}
	return &Describer{client: openai.NewClientWithConfig(cfg), model: model, timeout: 20 * time.Second}
}

func (d *Describer) Describe(ctx context.Context, p *domain.Product) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	prompt := fmt.Sprintf("Product: %s\nSKU: %s\nCategories: %s\nPrice: %.2f\n\nWrite a two sentence catalog description. Plain text, no markdown.",
		p.Name, p.SKU, strings.Join(p.Categories, ", "), p.Price)
	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: d.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You write short, factual product descriptions for an online store.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: 0.4,
		MaxTokens:   200,
	})
	if err != nil {
		return "", fmt.Errorf("openai describe %s: %w", p.SKU, err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
