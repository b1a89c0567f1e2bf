// Package app wires configuration, providers and the pipeline into ready-to-serve handlers.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/sharingan/internal/config"
	dbRedis "github.com/kailas-cloud/sharingan/internal/db/redis"
	"github.com/kailas-cloud/sharingan/internal/metrics"
	"github.com/kailas-cloud/sharingan/internal/repository/vectorindex"
	"github.com/kailas-cloud/sharingan/internal/transport/function"
	openaiTransport "github.com/kailas-cloud/sharingan/internal/transport/openai"
	"github.com/kailas-cloud/sharingan/internal/transport/pinecone"
	healthuc "github.com/kailas-cloud/sharingan/internal/usecase/health"
	"github.com/kailas-cloud/sharingan/internal/usecase/semantic"
)

const readinessTimeout = 5 * time.Second

// App holds the assembled components.
type App struct {
	Handler *function.Handler
	Health  *healthuc.Service

	closers []func()
}

// index is what both vector index backends provide.
type index interface {
	semantic.Index
	healthuc.IndexPinger
}

// New builds the pipeline from cfg. Missing credentials do not fail here:
// they are reported per request so the process can start and answer /health.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	metrics.RegisterUpstreamMetrics()

	if err := cfg.ValidateCredentials(); err != nil {
		logger.Warn("credentials incomplete, requests will fail until configured", zap.Error(err))
	}

	a := &App{}

	idx, err := a.buildIndex(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	embedder := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.EmbeddingModel,
		Logger:  logger,
	})
	completer := openaiTransport.NewCompleter(&openaiTransport.Config{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.Model,
		Logger:  logger,
	})

	svc := semantic.New(cfg, embedder, idx, completer)
	a.Handler = function.NewHandler(svc, logger)
	a.Health = healthuc.New(idx, embedder)

	logger.Info("pipeline assembled",
		zap.String("index_driver", cfg.Index.Driver),
		zap.String("index_name", cfg.Index.Name),
		zap.String("embedding_model", cfg.OpenAI.EmbeddingModel),
		zap.String("completion_model", cfg.OpenAI.Model),
		zap.Int("top_k", cfg.Search.TopK),
	)
	return a, nil
}

func (a *App) buildIndex(ctx context.Context, cfg *config.Config, logger *zap.Logger) (index, error) {
	switch cfg.Index.Driver {
	case config.DriverRedis, config.DriverValkey:
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Index.Addrs,
			Password: cfg.Index.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("create %s store: %w", cfg.Index.Driver, err)
		}
		a.closers = append(a.closers, store.Close)

		if err := store.WaitForReady(ctx, readinessTimeout); err != nil {
			logger.Warn("index store not ready yet", zap.Strings("addrs", cfg.Index.Addrs), zap.Error(err))
		}

		return &redisIndex{
			Repo: vectorindex.New(store, vectorindex.Config{
				IndexName:    cfg.Index.Name,
				TopK:         cfg.Search.TopK,
				ReturnFields: cfg.Index.ReturnFields,
				Logger:       logger,
			}),
			store: store,
		}, nil

	case config.DriverPinecone:
		return pinecone.NewClient(pinecone.Config{
			APIKey:        cfg.Index.APIKey,
			Environment:   cfg.Index.Environment,
			IndexName:     cfg.Index.Name,
			Host:          cfg.Index.Host,
			ControllerURL: cfg.Index.ControllerURL,
			TopK:          cfg.Search.TopK,
			HTTPClient:    &http.Client{Timeout: 30 * time.Second},
			Logger:        logger,
		}), nil

	default:
		return nil, fmt.Errorf("unknown index driver %q", cfg.Index.Driver)
	}
}

// redisIndex adds the store's Ping to the repository for health checks.
type redisIndex struct {
	*vectorindex.Repo
	store *dbRedis.Store
}

func (r *redisIndex) Ping(ctx context.Context) error { return r.store.Ping(ctx) }

// Close releases backend connections.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
