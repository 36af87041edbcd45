package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aescanero/challenge/internal/application/challenge"
	"github.com/aescanero/challenge/internal/application/workers"
	metricsprom "github.com/aescanero/challenge/pkg/adapters/metrics/prometheus"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type fakeMetrics struct {
	mu         sync.Mutex
	requests   map[string]int
	rejections int
}

func (m *fakeMetrics) ObserveRequest(route, status string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.requests == nil {
		m.requests = make(map[string]int)
	}
	m.requests[route+" "+status]++
}

func (m *fakeMetrics) RecordRejection() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejections++
}

// saturatedPool rejects every submission
type saturatedPool struct{}

func (saturatedPool) Submit(workers.Task) (*workers.Future, error) {
	return nil, workers.ErrPoolSaturated
}

func (saturatedPool) Snapshot() workers.Snapshot {
	return workers.Snapshot{CoreSize: 4, MaxSize: 40, PoolSize: 40, ActiveCount: 40, QueueLength: 2, QueueCapacity: 2}
}

type testEnv struct {
	server   *Server
	pool     *workers.Pool
	metrics  *fakeMetrics
	registry *prometheus.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, challenge.Config{
		SlowThresholdID: 20,
		SlowDelay:       10 * time.Millisecond,
	}, nil)
}

// newTestEnvWith builds a server over a real pool. A non-nil tp records both
// the server spans and the challenge spans.
func newTestEnvWith(t *testing.T, cfg challenge.Config, tp trace.TracerProvider) *testEnv {
	t.Helper()

	pool, err := workers.NewPool(workers.Config{
		Name:          "http-test",
		CoreSize:      4,
		MaxSize:       40,
		QueueCapacity: 2,
		KeepAlive:     time.Minute,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	t.Cleanup(func() { _ = pool.Shutdown(context.Background()) })

	registry := prometheus.NewRegistry()
	if _, err := metricsprom.RegisterPoolCollector(registry, pool); err != nil {
		t.Fatalf("RegisterPoolCollector() error = %v", err)
	}

	var opts []challenge.Option
	if tp != nil {
		opts = append(opts, challenge.WithTracerProvider(tp))
	}
	svc := challenge.NewService(challenge.NewCatalog(19), cfg, nil, zap.NewNop(), opts...)

	metrics := &fakeMetrics{}
	server := NewServer(&Config{
		Addr:           ":8080",
		Pool:           pool,
		Challenges:     svc,
		Metrics:        metrics,
		Gatherer:       registry,
		Logger:         zap.NewNop(),
		TracerProvider: tp,
		Propagators:    propagation.TraceContext{},
	})

	return &testEnv{server: server, pool: pool, metrics: metrics, registry: registry}
}

func (e *testEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_ListChallenges(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/challenge")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var items []challenge.Challenge
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(items) != 19 {
		t.Fatalf("len(items) = %d, want 19", len(items))
	}
	if items[0].ID != 1 || items[18].ID != 19 {
		t.Errorf("items not ordered: first=%d last=%d", items[0].ID, items[18].ID)
	}
}

func TestServer_GetChallenge(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{name: "existing id", path: "/challenge/5", wantStatus: http.StatusOK, wantBody: `[{"id":5,"name":"Challenge 5"}]`},
		{name: "zero id", path: "/challenge/0", wantStatus: http.StatusNotFound, wantBody: `"NOT_FOUND"`},
		{name: "negative id", path: "/challenge/-1", wantStatus: http.StatusNotFound, wantBody: `"NOT_FOUND"`},
		{name: "threshold id", path: "/challenge/20", wantStatus: http.StatusNotFound, wantBody: `"NOT_FOUND"`},
		{name: "slow id", path: "/challenge/21", wantStatus: http.StatusNotFound, wantBody: `"NOT_FOUND"`},
		{name: "non-numeric id", path: "/challenge/abc", wantStatus: http.StatusNotFound, wantBody: `"NOT_FOUND"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.get(t, tt.path)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %s, want to contain %s", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestServer_PoolSaturated(t *testing.T) {
	metrics := &fakeMetrics{}
	server := NewServer(&Config{
		Addr:       ":8080",
		Pool:       saturatedPool{},
		Challenges: challenge.NewService(challenge.NewCatalog(19), challenge.Config{SlowThresholdID: 20}, nil, zap.NewNop()),
		Metrics:    metrics,
		Gatherer:   prometheus.NewRegistry(),
		Logger:     zap.NewNop(),
	})

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/challenge/5", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Error.Code != "POOL_SATURATED" {
		t.Errorf("code = %q, want POOL_SATURATED", resp.Error.Code)
	}
	if metrics.rejections != 1 {
		t.Errorf("rejections = %d, want 1", metrics.rejections)
	}
	if metrics.requests["/challenge/:id 503"] != 1 {
		t.Errorf("requests = %v, want one /challenge/:id 503", metrics.requests)
	}

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("health status = %d, want 503", rec.Code)
	}
}

func TestServer_PoolStatus(t *testing.T) {
	env := newTestEnv(t)

	// Run one request so the counters move
	if rec := env.get(t, "/challenge/1"); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	rec := env.get(t, "/pool")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var snap workers.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if snap.CoreSize != 4 || snap.MaxSize != 40 || snap.QueueCapacity != 2 {
		t.Errorf("snapshot shape = %d/%d/%d, want 4/40/2", snap.CoreSize, snap.MaxSize, snap.QueueCapacity)
	}
	if snap.CompletedTaskCount != 1 || snap.TaskCount != 1 {
		t.Errorf("task/completed = %d/%d, want 1/1", snap.TaskCount, snap.CompletedTaskCount)
	}
}

func TestServer_Metrics(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := rec.Body.String()
	for _, want := range []string{
		`managed_async_executor_threads{type="core"} 4`,
		`managed_async_executor_threads{type="max"} 40`,
		`managed_async_executor_tasks{type="total_created"} 0`,
		`managed_async_executor_queue 0`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestServer_HealthAndRequestID(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get(requestIDHeader); got != "abc-123" {
		t.Errorf("request id = %q, want abc-123", got)
	}

	rec = env.get(t, "/health")
	if rec.Header().Get(requestIDHeader) == "" {
		t.Error("request id was not generated")
	}
}

func TestServer_ContinuesIncomingTrace(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	env := newTestEnvWith(t, challenge.Config{SlowThresholdID: 20}, tp)

	const (
		traceID  = "4bf92f3577b34da6a3ce929d0e0e4736"
		clientID = "00f067aa0ba902b7"
	)

	req := httptest.NewRequest(http.MethodGet, "/challenge/5", nil)
	req.Header.Set("traceparent", "00-"+traceID+"-"+clientID+"-01")
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var handle, server sdktrace.ReadOnlySpan
	for _, span := range recorder.Ended() {
		switch {
		case span.Name() == "Handle request":
			handle = span
		case span.SpanKind() == trace.SpanKindServer:
			server = span
		}
	}
	if handle == nil || server == nil {
		t.Fatalf("recorded spans missing: handle=%v server=%v", handle != nil, server != nil)
	}

	if got := server.Parent().SpanID().String(); got != clientID {
		t.Errorf("server span parent = %s, want %s", got, clientID)
	}
	if got := handle.Parent().TraceID().String(); got != traceID {
		t.Errorf("Handle request parent trace = %s, want %s", got, traceID)
	}
	if handle.SpanContext().TraceID() != server.SpanContext().TraceID() {
		t.Error("Handle request started a new trace")
	}
	if handle.Parent().SpanID() != server.SpanContext().SpanID() {
		t.Errorf("Handle request parent = %s, want server span %s",
			handle.Parent().SpanID(), server.SpanContext().SpanID())
	}
}

// serveAsync runs one request in the background and returns its recorder
// once the handler has written the response.
func serveAsync(env *testEnv, req *http.Request) <-chan *httptest.ResponseRecorder {
	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		rec := httptest.NewRecorder()
		env.server.Handler().ServeHTTP(rec, req)
		done <- rec
	}()
	return done
}

func waitActive(t *testing.T, pool *workers.Pool, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for pool.Snapshot().ActiveCount < want {
		if time.Now().After(deadline) {
			t.Fatalf("active count = %d, want %d", pool.Snapshot().ActiveCount, want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON %q: %v", rec.Body.String(), err)
	}
	return resp.Error.Code
}

func TestServer_PoolShutdown(t *testing.T) {
	env := newTestEnvWith(t, challenge.Config{
		SlowThresholdID: 20,
		SlowDelay:       time.Hour,
	}, nil)

	inflight := serveAsync(env, httptest.NewRequest(http.MethodGet, "/challenge/50", nil))
	waitActive(t, env.pool, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := env.pool.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	select {
	case rec := <-inflight:
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("in-flight status = %d, want 503", rec.Code)
		}
		if got := errorCode(t, rec); got != "INTERRUPTED" {
			t.Errorf("in-flight code = %q, want INTERRUPTED", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight request did not finish after shutdown")
	}

	rec := env.get(t, "/challenge/5")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status after shutdown = %d, want 503", rec.Code)
	}
	if got := errorCode(t, rec); got != "SHUTTING_DOWN" {
		t.Errorf("code after shutdown = %q, want SHUTTING_DOWN", got)
	}
}

func TestServer_ClientCancelled(t *testing.T) {
	env := newTestEnvWith(t, challenge.Config{
		SlowThresholdID: 20,
		SlowDelay:       time.Hour,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/challenge/50", nil).WithContext(ctx)
	result := serveAsync(env, req)
	waitActive(t, env.pool, 1)

	cancel()

	select {
	case rec := <-result:
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", rec.Code)
		}
		if got := errorCode(t, rec); got != "CANCELLED" {
			t.Errorf("code = %q, want CANCELLED", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler kept waiting after the client went away")
	}

	// The task is not tied to the client and still holds its worker
	if got := env.pool.Snapshot().ActiveCount; got != 1 {
		t.Errorf("active count = %d, want 1", got)
	}
}
