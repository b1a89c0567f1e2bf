package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/sharingan/internal/db"
	"github.com/kailas-cloud/sharingan/internal/domain"
	"github.com/kailas-cloud/sharingan/internal/metrics"
)

// store is the consumer interface for the index (ISP).
type store interface {
	Ping(ctx context.Context) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Config holds index query settings.
type Config struct {
	IndexName    string
	TopK         int
	ReturnFields []string
	Logger       *zap.Logger
}

// Repo answers nearest-neighbour queries against a Redis/Valkey FT index.
// It implements the same contract as the Pinecone client.
type Repo struct {
	store        store
	indexName    string
	keyPrefix    string
	topK         int
	returnFields []string
	logger       *zap.Logger

	mu          sync.Mutex
	initialized bool
}

// New creates a vector index repository.
func New(s store, cfg Config) *Repo {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repo{
		store:        s,
		indexName:    cfg.IndexName,
		keyPrefix:    cfg.IndexName + ":",
		topK:         cfg.TopK,
		returnFields: slices.Clone(cfg.ReturnFields),
		logger:       logger,
	}
}

// Initialize checks connectivity and that the index exists.
// Succeeds once; a failed attempt is retried on the next call.
func (r *Repo) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return nil
	}

	start := time.Now()
	err := r.checkIndex(ctx)
	metrics.ObserveUpstream(metrics.ProviderRedis, metrics.OpInitialize, start, err)
	if err != nil {
		r.logger.Error("vector index initialization failed", zap.String("index", r.indexName), zap.Error(err))
		return fmt.Errorf("failed to initialize index %s: %w", r.indexName, err)
	}

	r.initialized = true
	r.logger.Info("vector index initialized", zap.String("index", r.indexName))
	return nil
}

func (r *Repo) checkIndex(ctx context.Context) error {
	if err := r.store.Ping(ctx); err != nil {
		return err
	}
	exists, err := r.store.IndexExists(ctx, r.indexName)
	if err != nil {
		return err
	}
	if !exists {
		return db.ErrIndexNotFound
	}
	return nil
}

// Query returns up to topK nearest matches. A non-empty courseID adds a TAG pre-filter on course.
func (r *Repo) Query(ctx context.Context, vector []float32, courseID string) ([]domain.Match, error) {
	q := &db.KNNQuery{
		IndexName:    r.indexName,
		Vector:       vector,
		K:            r.topK,
		ReturnFields: r.returnFields,
	}
	if courseID != "" {
		q.Filters = map[string]string{domain.MetadataCourse: courseID}
	}

	start := time.Now()
	sr, err := r.store.SearchKNN(ctx, q)
	metrics.ObserveUpstream(metrics.ProviderRedis, metrics.OpQuery, start, err)
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			// index dropped after startup: force a fresh check next time
			r.mu.Lock()
			r.initialized = false
			r.mu.Unlock()
		}
		return nil, fmt.Errorf("failed to query index %s: %w", r.indexName, err)
	}

	matches := r.toMatches(sr)
	r.logger.Info("index query completed",
		zap.Duration("duration", time.Since(start)),
		zap.Int("match_count", len(matches)),
		zap.String("course_id", courseID),
	)
	return matches, nil
}

func (r *Repo) toMatches(sr *db.SearchResult) []domain.Match {
	if sr == nil {
		return []domain.Match{}
	}
	matches := make([]domain.Match, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		meta := make(domain.Metadata, len(e.Fields))
		for k, v := range e.Fields {
			meta[k] = v
		}
		matches = append(matches, domain.Match{
			ID:       strings.TrimPrefix(e.Key, r.keyPrefix),
			Score:    e.Score,
			Metadata: meta,
		})
	}
	return matches
}
