// Package pinecone is a REST client for legacy environment-based Pinecone indexes.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/sharingan/internal/domain"
	"github.com/kailas-cloud/sharingan/internal/metrics"
)

const maxErrorBody = 4 << 10

// Config holds the index connection settings.
type Config struct {
	APIKey        string
	Environment   string
	IndexName     string
	Host          string // full index URL; skips the project lookup when set
	ControllerURL string // defaults to https://controller.<environment>.pinecone.io
	TopK          int
	HTTPClient    *http.Client
	Logger        *zap.Logger
}

// Client queries one Pinecone index.
type Client struct {
	apiKey        string
	environment   string
	indexName     string
	controllerURL string
	topK          int
	http          *http.Client
	logger        *zap.Logger

	mu   sync.Mutex
	host string
}

// NewClient creates an index client. No network calls until Initialize.
func NewClient(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	controller := cfg.ControllerURL
	if controller == "" {
		controller = fmt.Sprintf("https://controller.%s.pinecone.io", cfg.Environment)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		apiKey:        cfg.APIKey,
		environment:   cfg.Environment,
		indexName:     cfg.IndexName,
		controllerURL: strings.TrimRight(controller, "/"),
		topK:          cfg.TopK,
		http:          hc,
		logger:        logger,
		host:          strings.TrimRight(cfg.Host, "/"),
	}
}

// Initialize resolves the index host from the project name.
// Succeeds once; a failed attempt is retried on the next call.
func (c *Client) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.host != "" {
		return nil
	}

	c.logger.Info("initializing pinecone client", zap.String("environment", c.environment))
	start := time.Now()

	var who struct {
		ProjectName string `json:"project_name"`
	}
	err := c.do(ctx, http.MethodGet, c.controllerURL+"/actions/whoami", nil, &who)
	if err == nil && who.ProjectName == "" {
		err = errors.New("empty project name in whoami response")
	}
	metrics.ObserveUpstream(metrics.ProviderPinecone, metrics.OpInitialize, start, err)
	if err != nil {
		c.logger.Error("pinecone initialization failed", zap.Error(err))
		return fmt.Errorf("failed to initialize Pinecone: %w", err)
	}

	c.host = fmt.Sprintf("https://%s-%s.svc.%s.pinecone.io", c.indexName, who.ProjectName, c.environment)
	c.logger.Info("pinecone client initialized", zap.String("host", c.host))
	return nil
}

type queryRequest struct {
	Vector          []float32         `json:"vector"`
	TopK            int               `json:"topK"`
	IncludeMetadata bool              `json:"includeMetadata"`
	IncludeValues   bool              `json:"includeValues"`
	Filter          map[string]string `json:"filter,omitempty"`
}

type queryResponse struct {
	Matches []struct {
		ID       string         `json:"id"`
		Score    float64        `json:"score"`
		Metadata map[string]any `json:"metadata"`
	} `json:"matches"`
}

// Query returns up to topK nearest matches in index order.
// A non-empty courseID restricts matches to metadata course == courseID.
func (c *Client) Query(ctx context.Context, vector []float32, courseID string) ([]domain.Match, error) {
	c.mu.Lock()
	host := c.host
	c.mu.Unlock()
	if host == "" {
		return nil, errors.New("failed to query Pinecone: client is not initialized")
	}

	req := queryRequest{
		Vector:          vector,
		TopK:            c.topK,
		IncludeMetadata: true,
	}
	if courseID != "" {
		req.Filter = map[string]string{domain.MetadataCourse: courseID}
	}

	start := time.Now()
	var resp queryResponse
	err := c.do(ctx, http.MethodPost, host+"/query", req, &resp)
	metrics.ObserveUpstream(metrics.ProviderPinecone, metrics.OpQuery, start, err)
	if err != nil {
		c.logger.Error("pinecone query failed", zap.Error(err))
		return nil, fmt.Errorf("failed to query Pinecone: %w", err)
	}

	matches := make([]domain.Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		matches = append(matches, domain.Match{ID: m.ID, Score: m.Score, Metadata: m.Metadata})
	}

	c.logger.Info("pinecone query completed",
		zap.Duration("duration", time.Since(start)),
		zap.Int("match_count", len(matches)),
		zap.String("course_id", courseID),
	)
	return matches, nil
}

// Ping checks the controller is reachable with the configured key.
func (c *Client) Ping(ctx context.Context) error {
	var who struct {
		ProjectName string `json:"project_name"`
	}
	return c.do(ctx, http.MethodGet, c.controllerURL+"/actions/whoami", nil, &who)
}

// StatusError is a non-2xx answer from Pinecone.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d", e.StatusCode)
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
}

func (c *Client) do(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage prefers the "message" field of a JSON error body, else the trimmed text.
func errorMessage(raw []byte) string {
	var parsed struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &parsed) == nil && parsed.Message != "" {
		return parsed.Message
	}
	return strings.TrimSpace(string(raw))
}
