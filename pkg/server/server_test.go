package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/javelinrt/javelin/internal/clock"
	"github.com/javelinrt/javelin/pkg/archive"
	"github.com/javelinrt/javelin/pkg/engine"
)

func newTestServer(t *testing.T, mut func(*Options)) *Server {
	t.Helper()

	opts := Options{
		Engine: engine.New(engine.Options{
			Clock: clock.NewManual(time.Unix(1700000000, 0)),
			Rand:  func() float64 { return 0.5 },
		}),
	}
	if mut != nil {
		mut(&opts)
	}

	s, err := New(opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func postRun(t *testing.T, s *Server, source string) string {
	t.Helper()

	body, _ := json.Marshal(map[string]string{"source": source})
	req := httptest.NewRequest("POST", "/api/run", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("POST /api/run = %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp["runId"] == "" {
		t.Fatal("no runId in response")
	}
	return resp["runId"]
}

func waitForJob(t *testing.T, s *Server, id string) *Job {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if job, ok := s.runs.Get(id); ok && job.finished() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("run %s did not finish", id)
	return nil
}

func runAndWait(t *testing.T, s *Server, source string) *Job {
	t.Helper()
	return waitForJob(t, s, postRun(t, s, source))
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest("GET", "/api/health", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status = %v", resp["status"])
	}
}

func TestRunLifecycle(t *testing.T) {
	s := newTestServer(t, nil)

	job := runAndWait(t, s, `System.out.println("hi");`)
	if job.Status != "completed" {
		t.Fatalf("status = %q, error = %q", job.Status, job.Error)
	}
	if job.Result == nil || job.Result.Output != "hi\n" {
		t.Fatalf("result = %+v", job.Result)
	}
	if job.Finished == nil {
		t.Error("finished timestamp missing")
	}

	// Status is also served over the API.
	req := httptest.NewRequest("GET", "/api/run/"+job.ID, nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/run/{id} = %d", w.Code)
	}
	var got Job
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if got.Status != "completed" || got.ID != job.ID {
		t.Errorf("job over API = %+v", got)
	}
}

func TestRunRejectsBadRequests(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"empty source", `{"source":""}`},
		{"blank source", `{"source":"   "}`},
		{"not json", `hello`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/run", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			s.ServeHTTP(w, req)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
		})
	}

	req := httptest.NewRequest("GET", "/api/run", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/run = %d, want 405", w.Code)
	}
}

func TestJobNotFound(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest("GET", "/api/run/no-such-run", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestHeapEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	runAndWait(t, s, `int x = 1;`)

	req := httptest.NewRequest("GET", "/api/heap", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var status map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if status["max"].(float64) == 0 {
		t.Error("heap max missing")
	}
	if status["used"].(float64) != 4 {
		t.Errorf("heap used = %v, want 4", status["used"])
	}
}

func TestGCEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	runAndWait(t, s, `int x = 1;`)

	req := httptest.NewRequest("POST", "/api/gc", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var sample map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &sample); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if sample["collections"].(float64) != 1 {
		t.Errorf("collections = %v, want 1", sample["collections"])
	}

	req = httptest.NewRequest("GET", "/api/gc", nil)
	w = httptest.NewRecorder()
	s.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/gc = %d, want 405", w.Code)
	}
}

func TestTimeTravelEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	// No snapshots yet.
	req := httptest.NewRequest("POST", "/api/timetravel/back", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("back with no snapshots = %d, want 404", w.Code)
	}

	runAndWait(t, s, "int a = 1;\nint b = 2;\nint c = 3;\n")

	current := timeTravelID(t, s, "GET", "/api/timetravel/current")
	back := timeTravelID(t, s, "POST", "/api/timetravel/back")
	if back >= current {
		t.Errorf("back id %d not before current id %d", back, current)
	}
	forward := timeTravelID(t, s, "POST", "/api/timetravel/forward")
	if forward != current {
		t.Errorf("forward id = %d, want %d", forward, current)
	}
}

func timeTravelID(t *testing.T, s *Server, method, path string) int {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("%s %s = %d: %s", method, path, w.Code, w.Body.String())
	}
	var snap map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	return int(snap["id"].(float64))
}

func TestMetricsAfterRun(t *testing.T) {
	s := newTestServer(t, nil)
	runAndWait(t, s, `System.out.println(1);`)

	req := httptest.NewRequest("GET", "/api/metrics", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var summary map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &summary); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if summary["runs"].(float64) != 1 {
		t.Errorf("runs = %v, want 1", summary["runs"])
	}
	if summary["simulated"].(bool) {
		t.Error("measured metrics flagged simulated")
	}
}

func TestViolationsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	runAndWait(t, s, "String s = null;\ns.length();\n")

	req := httptest.NewRequest("GET", "/api/violations", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var payload struct {
		Safety   []map[string]interface{} `json:"safety"`
		Deadline []map[string]interface{} `json:"deadline"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if len(payload.Safety) != 1 {
		t.Errorf("safety violations = %d, want 1", len(payload.Safety))
	}
	if len(payload.Deadline) != 0 {
		t.Errorf("deadline violations = %d, want 0", len(payload.Deadline))
	}
}

func TestRunsListsArchivedReports(t *testing.T) {
	backend, err := archive.NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	s := newTestServer(t, func(o *Options) { o.Archive = backend })

	job := runAndWait(t, s, `System.out.println("kept");`)

	req := httptest.NewRequest("GET", "/api/runs", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var reports []*archive.RunReport
	if err := json.Unmarshal(w.Body.Bytes(), &reports); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("reports = %d, want 1", len(reports))
	}
	if reports[0].RunID != job.ID {
		t.Errorf("report id = %q, want %q", reports[0].RunID, job.ID)
	}
	if reports[0].Output != "kept\n" {
		t.Errorf("report output = %q", reports[0].Output)
	}
}

func TestEventsReplayFinishedRun(t *testing.T) {
	s := newTestServer(t, nil)
	job := runAndWait(t, s, `System.out.println("hi");`)

	req := httptest.NewRequest("GET", "/api/events/"+job.ID, nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "event: init") {
		t.Errorf("missing init frame: %q", body)
	}
	if !strings.Contains(body, job.ID) {
		t.Errorf("init frame missing run id: %q", body)
	}
}

func TestEventsRequiresID(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest("GET", "/api/events/", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestEventsDisconnectStopsStream(t *testing.T) {
	s := newTestServer(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest("GET", "/api/events/unknown-run", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	// Returns immediately because the client context is already gone.
	s.ServeHTTP(w, req)

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestCORSHeaders(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest("OPTIONS", "/api/health", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("OPTIONS = %d, want 200", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("default allow-origin = %q, want *", got)
	}

	restricted := newTestServer(t, func(o *Options) {
		o.CORSOrigins = []string{"http://localhost:3000"}
	})

	req = httptest.NewRequest("GET", "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w = httptest.NewRecorder()
	restricted.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("allowed origin = %q", got)
	}

	req = httptest.NewRequest("GET", "/api/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	restricted.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("rejected origin got header %q", got)
	}
}

func TestNewRequiresEngine(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error for missing engine")
	}
}
