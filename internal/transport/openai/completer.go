package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/sharingan/internal/domain"
	"github.com/kailas-cloud/sharingan/internal/metrics"
)

// Completer generates an answer from retrieved context via chat completions.
type Completer struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewCompleter creates a chat completion client. cfg.Model is the completion model.
func NewCompleter(cfg *Config) *Completer {
	return &Completer{
		client: newClient(cfg),
		model:  cfg.Model,
		logger: loggerOrNop(cfg.Logger),
	}
}

// Complete sends the context as the user message followed by the instructions as the system message.
// The order and roles are part of the output contract and must not be swapped.
func (c *Completer) Complete(ctx context.Context, contextText, instructions string) (domain.Completion, error) {
	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: contextText},
			{Role: openai.ChatMessageRoleSystem, Content: instructions},
		},
	})
	if err == nil && len(resp.Choices) == 0 {
		err = errors.New("no choices in completion response")
	}
	metrics.ObserveUpstream(metrics.ProviderOpenAI, metrics.OpCompletion, start, err)
	if err != nil {
		return domain.Completion{}, fmt.Errorf("failed to generate completion: %w", parseAPIError(err))
	}

	recordTokens(c.model, metrics.OpCompletion, resp.Usage)

	msg := resp.Choices[0].Message
	c.logger.Debug("completion generated",
		zap.Duration("duration", time.Since(start)),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
		zap.Int("response_len", len(msg.Content)),
	)

	return domain.Completion{Role: msg.Role, Content: msg.Content}, nil
}
