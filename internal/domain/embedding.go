package domain

// EmbeddingResult carries the embedding vector and the token usage reported by the provider.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}
