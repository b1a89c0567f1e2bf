package semantic

import (
	"context"

	"github.com/kailas-cloud/sharingan/internal/domain"
)

// CredentialsValidator reports missing provider credentials as *domain.ConfigurationError.
type CredentialsValidator interface {
	ValidateCredentials() error
}

// Embedder vectorizes the prompt.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Index is the vector index contract shared by the Pinecone and Redis/Valkey backends.
type Index interface {
	Initialize(ctx context.Context) error
	Query(ctx context.Context, vector []float32, courseID string) ([]domain.Match, error)
}

// Completer generates the answer from context and instructions.
type Completer interface {
	Complete(ctx context.Context, contextText, instructions string) (domain.Completion, error)
}
