package semantic

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/sharingan/internal/domain"
	"github.com/kailas-cloud/sharingan/internal/logger"
)

// Service answers a prompt from retrieved context: validate, check credentials,
// initialize the index, embed, retrieve, compose, complete. Stages run in order, each at most once.
type Service struct {
	creds     CredentialsValidator
	embed     Embedder
	index     Index
	completer Completer
}

// New creates a semantic search service.
func New(creds CredentialsValidator, embed Embedder, index Index, completer Completer) *Service {
	return &Service{creds: creds, embed: embed, index: index, completer: completer}
}

// Answer runs the pipeline for one request. Errors are *domain.ValidationError,
// *domain.ConfigurationError or *domain.UpstreamError.
func (s *Service) Answer(ctx context.Context, req domain.SearchRequest) (domain.Completion, error) {
	log := logger.FromContext(ctx)

	if err := req.Validate(); err != nil {
		log.Warn("request rejected", zap.Error(err))
		return domain.Completion{}, err
	}

	log.Info("processing semantic search request",
		zap.Int("prompt_len", len(req.Prompt)),
		zap.Int("instructions_len", len(req.Instructions)),
		zap.String("course_id", req.CourseID),
	)

	if err := s.creds.ValidateCredentials(); err != nil {
		log.Error("configuration invalid", zap.Error(err))
		return domain.Completion{}, err
	}

	if err := s.index.Initialize(ctx); err != nil {
		return domain.Completion{}, stageFailed(log, domain.StageInitialize, err)
	}

	start := time.Now()
	emb, err := s.embed.Embed(ctx, req.Prompt)
	if err != nil {
		return domain.Completion{}, stageFailed(log, domain.StageEmbed, err)
	}
	log.Info("embedding generated",
		zap.Duration("duration", time.Since(start)),
		zap.Int("dimensions", len(emb.Embedding)),
		zap.Int("total_tokens", emb.TotalTokens),
	)

	start = time.Now()
	matches, err := s.index.Query(ctx, emb.Embedding, req.CourseID)
	if err != nil {
		return domain.Completion{}, stageFailed(log, domain.StageRetrieve, err)
	}

	contextText := ComposeContext(matches)
	log.Info("context composed",
		zap.Duration("retrieve_duration", time.Since(start)),
		zap.Int("match_count", len(matches)),
		zap.Int("context_len", len(contextText)),
	)

	start = time.Now()
	completion, err := s.completer.Complete(ctx, contextText, req.Instructions)
	if err != nil {
		return domain.Completion{}, stageFailed(log, domain.StageComplete, err)
	}
	log.Info("completion generated",
		zap.Duration("duration", time.Since(start)),
		zap.Int("response_len", len(completion.Content)),
	)

	return completion, nil
}

func stageFailed(log *zap.Logger, stage string, err error) error {
	log.Error("pipeline stage failed", zap.String("stage", stage), zap.Error(err))
	return domain.NewUpstreamError(stage, err)
}
