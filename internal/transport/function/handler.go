// Package function adapts the semantic search pipeline to a cloud-function style
// invocation: a raw event in, a status/headers/body response out.
package function

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/sharingan/internal/domain"
	"github.com/kailas-cloud/sharingan/internal/logger"
	"github.com/kailas-cloud/sharingan/internal/metrics"
)

// Route is the only path the pipeline answers on.
const Route = "/api/semantic-search"

const genericErrorMessage = "An unexpected error occurred"

// Pipeline outcome label values.
const (
	OutcomeOK                  = "ok"
	OutcomeValidationFailed    = "validation_failed"
	OutcomeConfigurationFailed = "configuration_failed"
	OutcomeUpstreamFailed      = "upstream_failed"
	OutcomeInternalError       = "internal_error"
)

// Event is one invocation.
type Event struct {
	Body            string
	HTTPMethod      string
	Path            string
	Headers         map[string]string
	RequestID       string
	FunctionName    string
	FunctionVersion string
}

// Response is what the runtime writes back to the caller.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       string
}

// Answerer runs the pipeline.
type Answerer interface {
	Answer(ctx context.Context, req domain.SearchRequest) (domain.Completion, error)
}

// Handler turns events into responses. Safe for concurrent use.
type Handler struct {
	svc    Answerer
	logger *zap.Logger
}

// NewHandler creates a Handler.
func NewHandler(svc Answerer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

type successBody struct {
	Response domain.Completion `json:"response"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Invoke runs one invocation. It never returns an error and never panics:
// every failure becomes a 500 with {"error": message}.
func (h *Handler) Invoke(ctx context.Context, ev Event) (resp Response) {
	start := time.Now()

	if ev.RequestID == "" {
		ev.RequestID = uuid.NewString()
	}

	log := logger.FromContextOr(ctx, h.logger).With(
		zap.String("request_id", ev.RequestID),
		zap.String("function_name", ev.FunctionName),
	)
	if ev.FunctionVersion != "" {
		log = log.With(zap.String("function_version", ev.FunctionVersion))
	}
	ctx = logger.ContextWithLogger(ctx, log)

	log.Info("function invoked", zap.String("method", ev.HTTPMethod), zap.String("path", ev.Path))

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("unhandled panic in function",
				zap.Any("panic", rec),
				zap.Stack("stack"),
			)
			metrics.PipelineOutcomesTotal.WithLabelValues(OutcomeInternalError).Inc()
			resp = errorResponse(genericErrorMessage)
		}
		log.Info("function completed",
			zap.Int("status_code", resp.StatusCode),
			zap.Duration("duration", time.Since(start)),
		)
	}()

	req, err := parseRequest(ev.Body)
	if err == nil {
		var completion domain.Completion
		completion, err = h.svc.Answer(ctx, req)
		if err == nil {
			metrics.PipelineOutcomesTotal.WithLabelValues(OutcomeOK).Inc()
			return jsonResponse(200, successBody{Response: completion})
		}
	}

	metrics.PipelineOutcomesTotal.WithLabelValues(outcomeOf(err)).Inc()
	log.Error("error processing semantic search request", zap.Error(err))
	return errorResponse(err.Error())
}

// parseRequest decodes the body; an empty body is treated as {}.
func parseRequest(body string) (domain.SearchRequest, error) {
	var req domain.SearchRequest
	if strings.TrimSpace(body) == "" {
		return req, nil
	}
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return req, domain.NewValidationError(fmt.Sprintf("invalid request body: %v", err))
	}
	return req, nil
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return OutcomeValidationFailed
	case errors.Is(err, domain.ErrConfiguration):
		return OutcomeConfigurationFailed
	case errors.Is(err, domain.ErrUpstream):
		return OutcomeUpstreamFailed
	default:
		return OutcomeInternalError
	}
}

// Every failure class maps to 500; callers rely on the message, not the status.
func errorResponse(msg string) Response {
	return jsonResponse(500, errorBody{Error: msg})
}

// jsonResponse encodes body without HTML escaping so completion text reaches the caller as generated.
func jsonResponse(status int, body any) Response {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	var payload string
	if err := enc.Encode(body); err != nil {
		status = 500
		payload = `{"error":"` + genericErrorMessage + `"}`
	} else {
		payload = strings.TrimSuffix(buf.String(), "\n")
	}
	return Response{
		StatusCode: status,
		Headers:    DefaultHeaders(),
		Body:       payload,
	}
}

// DefaultHeaders are set on every pipeline response.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Content-Type":                     "application/json",
		"Access-Control-Allow-Origin":      "*",
		"Access-Control-Allow-Credentials": "true",
	}
}
