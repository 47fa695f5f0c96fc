// Package bio rewrites the short profile title with a language model.
package bio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/neubio/neubio/pkg/apperrors"
)

const (
	DefaultModel = string(anthropic.ModelClaudeHaiku4_5)
	maxTitleLen  = 500
)

// Rewriter turns a rough title into a polished one-line bio.
type Rewriter interface {
	Rewrite(ctx context.Context, name, title string) (string, error)
}

type AnthropicRewriter struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewAnthropic builds a rewriter. Extra options are passed to the client
// (base URL, HTTP client).
func NewAnthropic(apiKey, model string, opts ...option.RequestOption) *AnthropicRewriter {
	if model == "" {
		model = DefaultModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	return &AnthropicRewriter{
		client:    anthropic.NewClient(opts...),
		model:     anthropic.Model(model),
		maxTokens: 200,
	}
}

const systemPrompt = "You write short bios for personal link pages. " +
	"Rewrite the given title into one catchy line of at most 15 words. " +
	"Reply with the line only, no quotes."

func (r *AnthropicRewriter) Rewrite(ctx context.Context, name, title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", apperrors.New(apperrors.Validation, "bio", "title is empty")
	}
	if len(title) > maxTitleLen {
		return "", apperrors.Newf(apperrors.Validation, "bio", "title longer than %d bytes", maxTitleLen)
	}

	prompt := fmt.Sprintf("Name: %s\nTitle: %s", name, title)
	msg, err := r.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     r.model,
		MaxTokens: r.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			if kind := apperrors.FromStatus(apiErr.StatusCode); kind != "" {
				return "", apperrors.Wrap(err, kind, "bio", "")
			}
		}
		return "", apperrors.Wrap(err, apperrors.Unavailable, "bio", "")
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	out := strings.Trim(strings.TrimSpace(b.String()), `"`)
	if out == "" {
		return "", apperrors.New(apperrors.Unavailable, "bio", "model returned no text")
	}
	return out, nil
}
