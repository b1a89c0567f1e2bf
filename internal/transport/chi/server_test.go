package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/sharingan/internal/transport/function"
	healthuc "github.com/kailas-cloud/sharingan/internal/usecase/health"
)

// --- Mocks ---

type mockInvoker struct {
	resp    function.Response
	last    function.Event
	called  int
	panicOn bool
}

func (m *mockInvoker) Invoke(_ context.Context, ev function.Event) function.Response {
	m.called++
	m.last = ev
	if m.panicOn {
		panic("boom")
	}
	return m.resp
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

func okResponse() function.Response {
	return function.Response{
		StatusCode: 200,
		Headers:    function.DefaultHeaders(),
		Body:       `{"response":{"role":"assistant","content":"hi"}}`,
	}
}

func newTestServer(inv *mockInvoker, h HealthChecker) http.Handler {
	return NewServer(inv, h, "sharingan-semantic-search-local", zap.NewNop()).Router()
}

// --- Tests ---

func TestSemanticSearch_ForwardsEvent(t *testing.T) {
	inv := &mockInvoker{resp: okResponse()}
	srv := newTestServer(inv, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/semantic-search",
		strings.NewReader(`{"prompt":"p","instructions":"i"}`))
	req.Header.Set("X-Request-Id", "abc-123")
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if rr.Body.String() != `{"response":{"role":"assistant","content":"hi"}}` {
		t.Errorf("unexpected body: %s", rr.Body.String())
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS origin header")
	}
	if rr.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("missing CORS credentials header")
	}
	if rr.Header().Get("X-Request-ID") != "abc-123" {
		t.Errorf("X-Request-ID = %q", rr.Header().Get("X-Request-ID"))
	}

	if inv.last.Body != `{"prompt":"p","instructions":"i"}` {
		t.Errorf("event body = %q", inv.last.Body)
	}
	if inv.last.HTTPMethod != http.MethodPost || inv.last.Path != "/api/semantic-search" {
		t.Errorf("unexpected event: %+v", inv.last)
	}
	if inv.last.RequestID != "abc-123" {
		t.Errorf("event request id = %q", inv.last.RequestID)
	}
	if inv.last.FunctionName != "sharingan-semantic-search-local" {
		t.Errorf("event function name = %q", inv.last.FunctionName)
	}
	if inv.last.Headers["X-Request-Id"] != "abc-123" {
		t.Errorf("event headers = %v", inv.last.Headers)
	}
}

func TestSemanticSearch_GeneratesRequestID(t *testing.T) {
	inv := &mockInvoker{resp: okResponse()}
	srv := newTestServer(inv, nil)

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/semantic-search",
		strings.NewReader(`{"prompt":"p","instructions":"i"}`)))

	if inv.last.RequestID == "" {
		t.Fatal("expected a generated request id")
	}
	if got := rr.Header().Get("X-Request-ID"); got != inv.last.RequestID {
		t.Errorf("X-Request-ID = %q, event request id = %q", got, inv.last.RequestID)
	}
}

func TestSemanticSearch_ErrorStatusPassedThrough(t *testing.T) {
	inv := &mockInvoker{resp: function.Response{
		StatusCode: 500,
		Headers:    function.DefaultHeaders(),
		Body:       `{"error":"Prompt is required"}`,
	}}
	srv := newTestServer(inv, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/semantic-search", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if rr.Body.String() != `{"error":"Prompt is required"}` {
		t.Errorf("unexpected body: %s", rr.Body.String())
	}
}

func TestSemanticSearch_BodyTooLarge(t *testing.T) {
	inv := &mockInvoker{resp: okResponse()}
	srv := newTestServer(inv, nil)

	big := strings.Repeat("a", maxBodyBytes+1)
	req := httptest.NewRequest(http.MethodPost, "/api/semantic-search", strings.NewReader(big))
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d", rr.Code)
	}
	if inv.called != 0 {
		t.Error("invoker must not be called")
	}
}

func TestRouter_NotFound(t *testing.T) {
	tests := []struct {
		method, path string
	}{
		{http.MethodGet, "/api/semantic-search"},
		{http.MethodPut, "/api/semantic-search"},
		{http.MethodPost, "/api/other"},
		{http.MethodGet, "/"},
		{http.MethodPost, "/health"},
	}

	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			inv := &mockInvoker{resp: okResponse()}
			srv := newTestServer(inv, &mockHealth{report: healthuc.Report{Status: healthuc.Healthy}})

			rr := httptest.NewRecorder()
			srv.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, http.NoBody))

			if rr.Code != http.StatusNotFound {
				t.Fatalf("status = %d", rr.Code)
			}
			var body map[string]string
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["error"] != "Not Found" {
				t.Errorf("error = %q", body["error"])
			}
			if rr.Header().Get("Content-Type") != "application/json" {
				t.Errorf("content type = %q", rr.Header().Get("Content-Type"))
			}
			if inv.called != 0 {
				t.Error("invoker must not be called")
			}
		})
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		report     healthuc.Report
		wantStatus int
	}{
		{
			"healthy",
			healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{"index": healthuc.CheckOK}},
			http.StatusOK,
		},
		{
			"degraded",
			healthuc.Report{Status: healthuc.Degraded, Checks: map[string]healthuc.CheckResult{"index": "dial tcp: connection refused"}},
			http.StatusServiceUnavailable,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(&mockInvoker{}, &mockHealth{report: tc.report})

			rr := httptest.NewRecorder()
			srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

			if rr.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tc.wantStatus)
			}
			var body healthResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Status != string(tc.report.Status) {
				t.Errorf("status = %q", body.Status)
			}
			if body.Checks["index"] != string(tc.report.Checks["index"]) {
				t.Errorf("checks = %v", body.Checks)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(&mockInvoker{resp: okResponse()}, nil)
	srv.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/semantic-search", strings.NewReader(`{}`)))

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "sharingan_http_requests_total") {
		t.Error("expected http metrics in exposition")
	}
}

func TestJSONRecoverer(t *testing.T) {
	srv := newTestServer(&mockInvoker{panicOn: true}, nil)

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/semantic-search", strings.NewReader(`{}`)))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"error":"Internal Server Error"`) {
		t.Errorf("unexpected body: %s", rr.Body.String())
	}
}

func TestWideEventMiddleware_CanonicalLogLine(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	srv := NewServer(&mockInvoker{resp: okResponse()}, nil, "fn", zap.New(core)).Router()

	req := httptest.NewRequest(http.MethodPost, "/api/semantic-search", strings.NewReader(`{}`))
	srv.ServeHTTP(httptest.NewRecorder(), req)

	lines := logs.FilterMessage("http_request").All()
	if len(lines) != 1 {
		t.Fatalf("expected 1 canonical log line, got %d", len(lines))
	}
	fields := lines[0].ContextMap()
	if fields["status"] != int64(200) {
		t.Errorf("status field = %v", fields["status"])
	}
	if fields["path"] != "/api/semantic-search" {
		t.Errorf("path field = %v", fields["path"])
	}
	if id, _ := fields["request_id"].(string); id == "" {
		t.Error("expected generated request_id")
	}
}
