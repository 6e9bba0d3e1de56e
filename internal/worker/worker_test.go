package worker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aescanero/dago-node-calculator/internal/calculator"
	"github.com/aescanero/dago-node-calculator/internal/config"
	"github.com/aescanero/dago-node-calculator/internal/eval/cel"
	"github.com/aescanero/dago-node-calculator/internal/numeric"
	"github.com/aescanero/dago-node-calculator/internal/plot"
	"github.com/aescanero/dago-node-calculator/internal/symbolic"
)

// fakeStream records stream writes and serves a fixed batch of messages once.
type fakeStream struct {
	mu       sync.Mutex
	groupErr error
	pending  []redis.XMessage
	added    map[string][]string
	acked    []string
	pingErr  error
}

func newFakeStream(messages ...redis.XMessage) *fakeStream {
	return &fakeStream{pending: messages, added: make(map[string][]string)}
}

func (f *fakeStream) XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd {
	return redis.NewStatusResult("OK", f.groupErr)
}

func (f *fakeStream) XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd {
	f.mu.Lock()
	batch := f.pending
	f.pending = nil
	f.mu.Unlock()

	if len(batch) > 0 {
		return redis.NewXStreamSliceCmdResult([]redis.XStream{{Stream: a.Streams[0], Messages: batch}}, nil)
	}
	<-ctx.Done()
	return redis.NewXStreamSliceCmdResult(nil, ctx.Err())
}

func (f *fakeStream) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	values := a.Values.(map[string]interface{})
	f.added[a.Stream] = append(f.added[a.Stream], values["data"].(string))
	return redis.NewStringResult("1-0", nil)
}

func (f *fakeStream) XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, ids...)
	return redis.NewIntResult(int64(len(ids)), nil)
}

func (f *fakeStream) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", f.pingErr)
}

func (f *fakeStream) events(t *testing.T, stream string) []map[string]interface{} {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []map[string]interface{}
	for _, data := range f.added[stream] {
		var event map[string]interface{}
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			t.Fatalf("invalid event %s: %v", data, err)
		}
		out = append(out, event)
	}
	return out
}

func newTestCalculator(t *testing.T) *calculator.Calculator {
	t.Helper()
	r, err := plot.NewRenderer(plot.DefaultOptions)
	if err != nil {
		t.Fatal(err)
	}
	return calculator.NewCalculator(symbolic.NewParser(), numeric.NewNative(), r, zap.NewNop())
}

func newTestWorker(t *testing.T, client StreamClient) *Worker {
	t.Helper()
	cfg := &config.Config{
		WorkerID:            "calculator-test",
		MaxExpressionLength: 64,
		StreamKey:           "calculator.work",
		ConsumerGroup:       "calculator-workers",
		ResultStream:        "calculator.done",
		BlockTime:           10 * time.Millisecond,
	}
	return NewWorker(cfg, client, newTestCalculator(t), zap.NewNop())
}

func message(id, data string) redis.XMessage {
	return redis.XMessage{ID: id, Values: map[string]interface{}{"data": data}}
}

func TestParseWorkRequest(t *testing.T) {
	req, err := parseWorkRequest(map[string]interface{}{
		"data": `{"request_id":"r1","operation":"plot","expression":"sin(x)","x_min":-2}`,
	})
	if err != nil {
		t.Fatal(err)
	}
	if req.RequestID != "r1" || req.Operation != OperationPlot {
		t.Errorf("request = %+v", req)
	}
	if rng := req.Range(); rng.Min != -2 || rng.Max != numeric.DefaultRange.Max {
		t.Errorf("Range() = %+v", rng)
	}

	req, err = parseWorkRequest(map[string]interface{}{"data": `{"expression":"2+2"}`})
	if err != nil {
		t.Fatal(err)
	}
	if req.RequestID == "" {
		t.Error("missing request id was not generated")
	}
	if req.Operation != OperationCalculate {
		t.Errorf("Operation = %q", req.Operation)
	}

	for _, values := range []map[string]interface{}{
		{},
		{"data": 42},
		{"data": "{not json"},
	} {
		if _, err := parseWorkRequest(values); err == nil {
			t.Errorf("parseWorkRequest(%v) succeeded", values)
		}
	}
}

func TestHandleCalculate(t *testing.T) {
	fake := newFakeStream()
	w := newTestWorker(t, fake)
	w.handleMessage(message("1-0", `{"request_id":"r1","expression":"x + x"}`))

	events := fake.events(t, "calculator.done")
	if len(events) != 1 {
		t.Fatalf("published %d results", len(events))
	}
	if events[0]["result"] != "2*x" || events[0]["banner"] != "Result: 2*x" {
		t.Errorf("event = %v", events[0])
	}
	if events[0]["worker_id"] != "calculator-test" {
		t.Errorf("worker_id = %v", events[0]["worker_id"])
	}
	if len(fake.acked) != 1 || fake.acked[0] != "1-0" {
		t.Errorf("acked = %v", fake.acked)
	}
}

func TestHandlePlot(t *testing.T) {
	fake := newFakeStream()
	w := newTestWorker(t, fake)
	w.handleMessage(message("2-0", `{"request_id":"r2","operation":"plot","expression":"log(x)","x_min":-1,"x_max":1,"format":"svg"}`))

	events := fake.events(t, "calculator.done")
	if len(events) != 1 {
		t.Fatalf("published %d results", len(events))
	}
	event := events[0]
	if event["title"] != "Graph of log(x)" || event["legend"] != "y = log(x)" {
		t.Errorf("labels = %v, %v", event["title"], event["legend"])
	}
	if event["content_type"] != "image/svg+xml" {
		t.Errorf("content_type = %v", event["content_type"])
	}
	ys := event["y"].([]interface{})
	if len(ys) != numeric.SampleCount {
		t.Fatalf("len(y) = %d", len(ys))
	}
	// log of a negative number is not finite
	if ys[0] != nil {
		t.Errorf("y[0] = %v, want null", ys[0])
	}
	if ys[len(ys)-1] == nil {
		t.Error("y at x=1 is null")
	}
	if s, _ := event["image"].(string); s == "" {
		t.Error("image missing")
	}
}

func TestHandlePlotExtremeRange(t *testing.T) {
	fake := newFakeStream()
	w := newTestWorker(t, fake)
	w.handleMessage(message("2-1", `{"request_id":"r7","operation":"plot","expression":"x","x_min":-1e308,"x_max":1e308,"format":"svg"}`))

	events := fake.events(t, "calculator.done")
	if len(events) != 1 {
		t.Fatalf("published %d results", len(events))
	}
	xs := events[0]["x"].([]interface{})
	if len(xs) != numeric.SampleCount || xs[0] != -1e308 || xs[len(xs)-1] != 1e308 {
		t.Errorf("x spans %d values", len(xs))
	}
	if len(fake.acked) != 1 || fake.acked[0] != "2-1" {
		t.Errorf("acked = %v", fake.acked)
	}
}

func TestHandleFailuresArePublished(t *testing.T) {
	tests := []struct {
		name string
		data string
		kind string
	}{
		{"parse", `{"request_id":"r3","expression":"2*+"}`, string(calculator.ParseFailure)},
		{"plot", `{"request_id":"r4","operation":"plot","expression":"2*+"}`, string(calculator.PlotFailure)},
		{"operation", `{"request_id":"r5","operation":"integrate","expression":"x"}`, "invalid_request"},
		{"length", `{"request_id":"r6","expression":"xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx"}`, "invalid_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeStream()
			w := newTestWorker(t, fake)
			w.handleMessage(message("3-0", tt.data))

			if got := fake.events(t, "calculator.done"); len(got) != 0 {
				t.Errorf("published results %v", got)
			}
			errs := fake.events(t, "calculator.done.errors")
			if len(errs) != 1 {
				t.Fatalf("published %d errors", len(errs))
			}
			if errs[0]["kind"] != tt.kind {
				t.Errorf("kind = %v, want %s", errs[0]["kind"], tt.kind)
			}
			if len(fake.acked) != 1 {
				t.Errorf("acked = %v", fake.acked)
			}
		})
	}
}

func TestHandleMalformedMessageIsAcked(t *testing.T) {
	fake := newFakeStream()
	w := newTestWorker(t, fake)
	w.handleMessage(message("4-0", "{"))

	if len(fake.added) != 0 {
		t.Errorf("published %v", fake.added)
	}
	if len(fake.acked) != 1 || fake.acked[0] != "4-0" {
		t.Errorf("acked = %v", fake.acked)
	}
}

func TestStartProcessesAndStops(t *testing.T) {
	fake := newFakeStream(
		message("5-0", `{"expression":"2+2"}`),
		message("5-1", `{"expression":"sin(0)"}`),
	)
	w := newTestWorker(t, fake)
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		fake.mu.Lock()
		n := len(fake.acked)
		fake.mu.Unlock()
		if n == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("acked %d of 2 messages", n)
		}
		time.Sleep(5 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.Stop(ctx); err != nil {
		t.Fatal(err)
	}

	events := fake.events(t, "calculator.done")
	if len(events) != 2 || events[0]["result"] != "4" || events[1]["result"] != "0" {
		t.Errorf("events = %v", events)
	}
}

func TestEnsureConsumerGroup(t *testing.T) {
	fake := newFakeStream()
	fake.groupErr = errors.New("BUSYGROUP Consumer Group name already exists")
	w := newTestWorker(t, fake)
	if err := w.ensureConsumerGroup(); err != nil {
		t.Errorf("existing group: %v", err)
	}

	fake.groupErr = errors.New("NOAUTH Authentication required")
	if err := w.ensureConsumerGroup(); err == nil {
		t.Error("expected error")
	}
}

func TestHealthWithoutRedis(t *testing.T) {
	hs := NewHealthServer(0, nil, newTestCalculator(t), zap.NewNop())
	srv := httptest.NewServer(hs.Handler())
	defer srv.Close()

	for path, want := range map[string]string{"/health": "healthy", "/ready": "ready"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		var body HealthResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK || body.Status != want {
			t.Errorf("%s: %d %+v", path, resp.StatusCode, body)
		}
		if _, ok := body.Checks["redis"]; ok {
			t.Errorf("%s: redis checked while disabled", path)
		}
		if body.CachedPrograms != nil {
			t.Errorf("%s: native backend reported a program cache", path)
		}
	}
}

func TestHealthReportsCachedPrograms(t *testing.T) {
	r, err := plot.NewRenderer(plot.DefaultOptions)
	if err != nil {
		t.Fatal(err)
	}
	calc := calculator.NewCalculator(symbolic.NewParser(), cel.NewEvaluator(calculator.Variable), r, zap.NewNop())
	if _, err := calc.Plot(context.Background(), "sin(x)", numeric.DefaultRange, plot.FormatSVG); err != nil {
		t.Fatal(err)
	}
	hs := NewHealthServer(0, nil, calc, zap.NewNop())

	rec := httptest.NewRecorder()
	hs.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	var body HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK || body.Backend != "cel" {
		t.Fatalf("status %d, body %+v", rec.Code, body)
	}
	if body.CachedPrograms == nil || *body.CachedPrograms != 1 {
		t.Errorf("cached_programs = %v", body.CachedPrograms)
	}
}

func TestHealthRedisDown(t *testing.T) {
	fake := newFakeStream()
	fake.pingErr = errors.New("connection refused")
	hs := NewHealthServer(0, fake, newTestCalculator(t), zap.NewNop())

	for _, path := range []string{"/health", "/ready"} {
		rec := httptest.NewRecorder()
		hs.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: status %d", path, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	hs.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	var body HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Checks["calculator"] != "healthy" || body.Backend != "native" {
		t.Errorf("body = %+v", body)
	}
}
