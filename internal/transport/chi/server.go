package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/sharingan/internal/metrics"
	"github.com/kailas-cloud/sharingan/internal/transport/function"
	healthuc "github.com/kailas-cloud/sharingan/internal/usecase/health"
)

const maxBodyBytes = 1 << 20

// Invoker runs one function invocation.
type Invoker interface {
	Invoke(ctx context.Context, ev function.Event) function.Response
}

// HealthChecker aggregates component checks.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server is the local HTTP listener in front of the function handler.
type Server struct {
	invoker      Invoker
	health       HealthChecker
	functionName string
	logger       *zap.Logger
}

// NewServer creates the listener. health may be nil, which disables /health.
func NewServer(invoker Invoker, health HealthChecker, functionName string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{invoker: invoker, health: health, functionName: functionName, logger: logger}
}

// Router builds the chi router with the full middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(s.logger))
	r.Use(metrics.Middleware())

	r.Post(function.Route, s.SemanticSearch)
	if s.health != nil {
		r.Get("/health", s.HealthCheck)
	}
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)
	return r
}

// SemanticSearch handles POST /api/semantic-search by replaying the request as a function event.
func (s *Server) SemanticSearch(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "Request body too large"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal Server Error"})
		return
	}

	// RequestID middleware always sets an id before this handler runs
	requestID := chiMiddleware.GetReqID(r.Context())

	resp := s.invoker.Invoke(r.Context(), function.Event{
		Body:            string(body),
		HTTPMethod:      r.Method,
		Path:            r.URL.Path,
		Headers:         flattenHeaders(r.Header),
		RequestID:       requestID,
		FunctionName:    s.functionName,
		FunctionVersion: "local",
	})

	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, resp.Body)
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{Status: string(report.Status), Checks: checks})
}

type errorBody struct {
	Error string `json:"error"`
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, errorBody{Error: "Not Found"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// flattenHeaders keeps the first value of each header, as function runtimes deliver them.
func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}
