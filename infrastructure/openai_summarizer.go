// infrastructure/openai_summarizer.go
package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"go.uber.org/zap"

	"github.com/vitovidale/video-notes-service/domain"
)

// OpenAISummarizer talks to the OpenAI chat completions API or any compatible endpoint.
type OpenAISummarizer struct {
	client  openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

func NewOpenAISummarizer(apiKey, model, baseURL string, timeout time.Duration, logger *zap.Logger) *OpenAISummarizer {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}
	return &OpenAISummarizer{
		client:  openai.NewClient(opts...),
		model:   model,
		timeout: timeout,
		logger:  logger,
	}
}

func (s *OpenAISummarizer) Summarize(ctx context.Context, req domain.SummaryRequest) (string, error) {
	if strings.TrimSpace(req.Transcript) == "" {
		return "", domain.ErrMissingTranscript
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	prompt := BuildPrompt(req)
	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt.System),
			openai.UserMessage(prompt.User),
		},
		MaxTokens:   openai.Int(prompt.MaxTokens),
		Temperature: openai.Float(temperature),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			s.logger.Error("openai request rejected", zap.Int("status", apiErr.StatusCode), zap.Error(err))
		}
		return "", fmt.Errorf("%w: %v", domain.ErrSummarizationUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", domain.ErrSummarizationUnavailable)
	}
	summary := strings.TrimSpace(resp.Choices[0].Message.Content)
	if summary == "" {
		return "", fmt.Errorf("%w: empty completion", domain.ErrSummarizationUnavailable)
	}
	s.logger.Debug("openai summary generated",
		zap.String("model", s.model),
		zap.String("tier", string(req.Tier)),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens))
	return summary, nil
}
