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

// Config holds the OpenAI-compatible provider settings shared by Embedder and Completer.
type Config struct {
	APIKey  string
	BaseURL string // empty means api.openai.com
	Model   string
	Logger  *zap.Logger
}

func newClient(cfg *Config) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}

func loggerOrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// Embedder turns a prompt into a vector using the embeddings endpoint.
type Embedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
	logger *zap.Logger
}

// NewEmbedder creates an embedding client. cfg.Model is the embedding model.
func NewEmbedder(cfg *Config) *Embedder {
	return &Embedder{
		client: newClient(cfg),
		model:  openai.EmbeddingModel(cfg.Model),
		logger: loggerOrNop(cfg.Logger),
	}
}

// Embed vectorizes text. Exactly one provider call, no retry.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: e.model,
	})
	if err == nil && len(resp.Data) == 0 {
		err = errors.New("empty embedding response")
	}
	metrics.ObserveUpstream(metrics.ProviderOpenAI, metrics.OpEmbedding, start, err)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("failed to generate embeddings: %w", parseAPIError(err))
	}

	recordTokens(string(e.model), metrics.OpEmbedding, resp.Usage)

	vec := resp.Data[0].Embedding
	e.logger.Debug("embedding generated",
		zap.Duration("duration", time.Since(start)),
		zap.Int("dimensions", len(vec)),
		zap.Int("input_len", len(text)),
	)

	return domain.EmbeddingResult{
		Embedding:    vec,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", parseAPIError(err))
	}
	return nil
}

func recordTokens(model, operation string, usage openai.Usage) {
	if usage.TotalTokens <= 0 {
		return
	}
	metrics.TokensTotal.WithLabelValues(model, operation, "prompt").Add(float64(usage.PromptTokens))
	if usage.CompletionTokens > 0 {
		metrics.TokensTotal.WithLabelValues(model, operation, "completion").Add(float64(usage.CompletionTokens))
	}
	metrics.TokensTotal.WithLabelValues(model, operation, "total").Add(float64(usage.TotalTokens))
}
