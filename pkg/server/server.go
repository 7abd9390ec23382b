// Package server exposes the runtime over HTTP for the web UI: submit
// runs, poll their state, follow execution events over SSE, and inspect
// the live session (heap, collections, time travel, violations).
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/javelinrt/javelin/pkg/archive"
	"github.com/javelinrt/javelin/pkg/engine"
	"github.com/javelinrt/javelin/pkg/telemetry"
	"github.com/javelinrt/javelin/pkg/timetravel"
)

// Job tracks one submitted run through its lifecycle.
type Job struct {
	ID        string         `json:"id"`
	Status    string         `json:"status"` // pending, running, completed, failed
	Submitted time.Time      `json:"submitted"`
	Finished  *time.Time     `json:"finished,omitempty"`
	Result    *engine.Result `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
}

func (j *Job) finished() bool {
	return j.Status == "completed" || j.Status == "failed"
}

// Options configures a server.
type Options struct {
	// Engine executes submitted runs and backs the session endpoints.
	// Required.
	Engine *engine.Engine

	// Archive persists run reports. Nil disables persistence; /api/runs
	// then lists nothing.
	Archive archive.Backend

	// Collector aggregates run statistics for /api/metrics. Created
	// when nil.
	Collector *telemetry.Collector

	// Exporter ships run spans over OTLP once initialized. Optional.
	Exporter *telemetry.Exporter

	// CORSOrigins lists allowed origins. Empty allows any origin.
	CORSOrigins []string
}

// Server handles HTTP requests for the web UI. One engine backs all
// requests: submitted runs execute sequentially, and the heap, GC, and
// time-travel endpoints inspect whatever the latest run left behind.
type Server struct {
	opts      Options
	mux       *http.ServeMux
	broker    *Broker
	collector *telemetry.Collector
	runs      *RunTable

	// mu serializes engine access: Interpret, TriggerGC, and the
	// time-travel cursor all mutate shared runtime state.
	mu sync.Mutex
}

// New creates a server around one session engine.
func New(opts Options) (*Server, error) {
	if opts.Engine == nil {
		return nil, errors.New("server: engine required")
	}
	if opts.Collector == nil {
		opts.Collector = telemetry.NewCollector()
	}

	s := &Server{
		opts:      opts,
		mux:       http.NewServeMux(),
		broker:    NewBroker(),
		collector: opts.Collector,
		runs:      NewRunTable(),
	}

	s.setupRoutes()
	return s, nil
}

// setupRoutes configures HTTP handlers.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/run", s.handleRun)
	s.mux.HandleFunc("/api/run/", s.handleJob)
	s.mux.HandleFunc("/api/runs", s.handleRuns)
	s.mux.HandleFunc("/api/heap", s.handleHeap)
	s.mux.HandleFunc("/api/gc", s.handleGC)
	s.mux.HandleFunc("/api/timetravel/back", s.handleStepBack)
	s.mux.HandleFunc("/api/timetravel/forward", s.handleStepForward)
	s.mux.HandleFunc("/api/timetravel/current", s.handleCurrent)
	s.mux.HandleFunc("/api/metrics", s.handleMetrics)
	s.mux.HandleFunc("/api/violations", s.handleViolations)
	s.mux.HandleFunc("/api/events/", s.handleEvents)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if origin := s.allowOrigin(r.Header.Get("Origin")); origin != "" {
		w.Header().Set("Access-Control-Allow-Origin", origin)
	}
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	s.mux.ServeHTTP(w, r)
}

func (s *Server) allowOrigin(origin string) string {
	if len(s.opts.CORSOrigins) == 0 {
		return "*"
	}
	for _, o := range s.opts.CORSOrigins {
		if o == "*" {
			return "*"
		}
		if o == origin {
			return origin
		}
	}
	return ""
}

// Runs exposes the run table; the serve command hangs its cleanup
// ticker off it.
func (s *Server) Runs() *RunTable { return s.runs }

// handleHealth reports liveness plus run-table occupancy.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]interface{}{
		"status": "ok",
		"runs":   s.runs.Stats(),
	})
}

// handleRun accepts a source program and starts executing it.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Source string `json:"source"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Source) == "" {
		jsonError(w, "Source required", http.StatusBadRequest)
		return
	}

	runID := uuid.New()
	s.runs.Put(&Job{
		ID:        runID.String(),
		Status:    "pending",
		Submitted: time.Now(),
	})

	go s.execute(runID, req.Source)

	jsonResponse(w, map[string]string{
		"runId":  runID.String(),
		"status": "started",
	})
}

// execute performs the run and narrates it to event subscribers.
func (s *Server) execute(runID uuid.UUID, source string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := runID.String()
	s.runs.Update(id, func(j *Job) { j.Status = "running" })
	s.broker.PublishPhase(id, "running")

	started := time.Now()
	res, err := s.opts.Engine.InterpretAs(context.Background(), runID, source)
	finished := time.Now()

	if err != nil {
		s.runs.Update(id, func(j *Job) {
			j.Status = "failed"
			j.Error = err.Error()
			j.Finished = &finished
		})
		s.broker.PublishError(id, err)
		return
	}

	stats := runStats(res)
	s.collector.Record(stats)
	s.opts.Exporter.RecordRun(context.Background(), id, started, stats, res.GCMetrics)

	// Persist before flipping the status: a poller that sees "completed"
	// can rely on /api/runs and /api/metrics already reflecting the run.
	if s.opts.Archive != nil {
		report := archive.NewReport(res, source, started)
		if aerr := s.opts.Archive.Save(context.Background(), report); aerr == nil {
			s.broker.PublishPhase(id, "archived")
		}
	}

	s.runs.Update(id, func(j *Job) {
		j.Status = "completed"
		j.Result = res
		j.Finished = &finished
	})

	for _, sample := range res.GCMetrics {
		s.broker.Publish(id, Event{Event: "gc", Data: sample})
	}
	for _, v := range res.SafetyViolations {
		s.broker.Publish(id, Event{Event: "violation", Data: map[string]interface{}{
			"kind":      "safety",
			"violation": v,
		}})
	}
	for _, v := range res.DeadlineViolations {
		s.broker.Publish(id, Event{Event: "violation", Data: map[string]interface{}{
			"kind":      "deadline",
			"violation": v,
		}})
	}

	job, _ := s.runs.Get(id)
	s.broker.PublishComplete(id, job)
}

// handleJob returns run status by ID.
func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Path[len("/api/run/"):]
	if id == "" {
		jsonError(w, "Run ID required", http.StatusBadRequest)
		return
	}

	job, ok := s.runs.Get(id)
	if !ok {
		jsonError(w, "Run not found", http.StatusNotFound)
		return
	}

	jsonResponse(w, job)
}

// handleRuns lists archived run reports, newest first.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.opts.Archive == nil {
		jsonResponse(w, []*archive.RunReport{})
		return
	}

	reports, err := s.opts.Archive.List(r.Context())
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, reports)
}

// handleHeap reports current on-heap and off-heap occupancy.
func (s *Server) handleHeap(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	status := s.opts.Engine.HeapStatus()
	s.mu.Unlock()

	jsonResponse(w, status)
}

// handleGC forces one collection cycle out of band.
func (s *Server) handleGC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.Lock()
	sample := s.opts.Engine.TriggerGC()
	s.mu.Unlock()

	jsonResponse(w, sample)
}

func (s *Server) handleStepBack(w http.ResponseWriter, r *http.Request) {
	s.stepSnapshot(w, r, s.opts.Engine.StepBack)
}

func (s *Server) handleStepForward(w http.ResponseWriter, r *http.Request) {
	s.stepSnapshot(w, r, s.opts.Engine.StepForward)
}

func (s *Server) stepSnapshot(w http.ResponseWriter, r *http.Request, step func() *timetravel.Snapshot) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.Lock()
	snap := step()
	s.mu.Unlock()

	if snap == nil {
		jsonError(w, "No snapshots captured", http.StatusNotFound)
		return
	}
	jsonResponse(w, snap)
}

// handleCurrent returns the snapshot under the time-travel cursor.
func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	snap := s.opts.Engine.CurrentSnapshot()
	s.mu.Unlock()

	if snap == nil {
		jsonError(w, "No snapshots captured", http.StatusNotFound)
		return
	}
	jsonResponse(w, snap)
}

// handleMetrics reports the measured aggregate across runs.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, s.collector.Summary())
}

// handleViolations reports the session's violation logs.
func (s *Server) handleViolations(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	payload := map[string]interface{}{
		"safety":   s.opts.Engine.SafetyViolations(),
		"deadline": s.opts.Engine.DeadlineViolations(),
	}
	s.mu.Unlock()

	jsonResponse(w, payload)
}

// handleEvents streams run events over SSE. Subscribing to a finished
// run replays its final state and closes.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Path[len("/api/events/"):]
	if id == "" {
		jsonError(w, "Run ID required", http.StatusBadRequest)
		return
	}

	var initial interface{}
	terminal := false
	if job, ok := s.runs.Get(id); ok {
		initial = job
		terminal = job.finished()
	}

	s.broker.Serve(w, r, id, initial, terminal)
}

// runStats flattens a result for the metrics collector and the span
// exporter.
func runStats(res *engine.Result) telemetry.RunStats {
	return telemetry.RunStats{
		Duration:           res.Duration,
		Statements:         res.Statements,
		AllocatedObjects:   res.Heap.Counters.Allocated,
		FreedObjects:       res.Heap.Counters.Freed,
		Collections:        res.Heap.Counters.Collections,
		SafetyViolations:   len(res.SafetyViolations),
		DeadlineViolations: len(res.DeadlineViolations),
		Diagnostics:        len(res.Diagnostics),
		Halted:             res.Halted,
	}
}

// Helper functions

func jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
