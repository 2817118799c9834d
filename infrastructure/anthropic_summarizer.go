// infrastructure/anthropic_summarizer.go
package infrastructure

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/vitovidale/video-notes-service/domain"
)

type AnthropicSummarizer struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

func NewAnthropicSummarizer(apiKey, model, baseURL string, timeout time.Duration, logger *zap.Logger) *AnthropicSummarizer {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")))
	}
	return &AnthropicSummarizer{
		client:  anthropic.NewClient(opts...),
		model:   model,
		timeout: timeout,
		logger:  logger,
	}
}

func (s *AnthropicSummarizer) Summarize(ctx context.Context, req domain.SummaryRequest) (string, error) {
	if strings.TrimSpace(req.Transcript) == "" {
		return "", domain.ErrMissingTranscript
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	prompt := BuildPrompt(req)
	msg, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(s.model),
		MaxTokens:   prompt.MaxTokens,
		System:      []anthropic.TextBlockParam{{Text: prompt.System}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt.User))},
		Temperature: anthropic.Float(temperature),
	})
	if err != nil {
		s.logger.Error("anthropic request failed", zap.String("model", s.model), zap.Error(err))
		return "", fmt.Errorf("%w: %v", domain.ErrSummarizationUnavailable, err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	summary := strings.TrimSpace(b.String())
	if summary == "" {
		return "", fmt.Errorf("%w: empty completion", domain.ErrSummarizationUnavailable)
	}
	return summary, nil
}
