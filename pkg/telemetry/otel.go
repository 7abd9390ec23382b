package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/javelinrt/javelin/pkg/heap"
)

// OTLPConfig configures the OTLP gRPC trace exporter.
type OTLPConfig struct {
	// Endpoint is the OTLP gRPC endpoint (e.g., "localhost:4317")
	Endpoint string

	// ServiceName identifies this service in traces
	ServiceName string

	// ServiceVersion is reported as a resource attribute
	ServiceVersion string

	// Environment tags spans (development, staging, production)
	Environment string

	// InsecureTLS disables transport security (local collectors only)
	InsecureTLS bool

	// Headers are attached to every export request (auth tokens etc.)
	Headers map[string]string

	// BatchTimeout is the maximum delay before a batch ships
	BatchTimeout time.Duration

	// MaxBatchSize is the maximum number of spans per batch
	MaxBatchSize int

	// MaxQueueSize is the span buffer size before drops
	MaxQueueSize int

	// ExportTimeout bounds a single export call
	ExportTimeout time.Duration

	// SamplingRatio is the fraction of runs to trace (0.0 to 1.0)
	SamplingRatio float64
}

// DefaultOTLPConfig returns settings for a local collector.
func DefaultOTLPConfig() OTLPConfig {
	return OTLPConfig{
		Endpoint:       "localhost:4317",
		ServiceName:    "javelin",
		ServiceVersion: "dev",
		Environment:    "development",
		InsecureTLS:    true,
		BatchTimeout:   5 * time.Second,
		MaxBatchSize:   512,
		MaxQueueSize:   2048,
		ExportTimeout:  30 * time.Second,
		SamplingRatio:  1.0,
	}
}

// Exporter ships run spans to an OpenTelemetry collector over gRPC.
// A nil *Exporter is inert, so call sites that only sometimes trace
// need no enabled checks.
type Exporter struct {
	mu  sync.Mutex
	cfg OTLPConfig

	provider    *sdktrace.TracerProvider
	tracer      trace.Tracer
	initialized bool
}

// NewExporter creates an exporter. Zero-valued cfg fields take their
// defaults. Init must be called before spans are recorded.
func NewExporter(cfg OTLPConfig) *Exporter {
	def := DefaultOTLPConfig()
	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = def.ServiceName
	}
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = def.ServiceVersion
	}
	if cfg.Environment == "" {
		cfg.Environment = def.Environment
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = def.BatchTimeout
	}
	if cfg.MaxBatchSize == 0 {
		cfg.MaxBatchSize = def.MaxBatchSize
	}
	if cfg.MaxQueueSize == 0 {
		cfg.MaxQueueSize = def.MaxQueueSize
	}
	if cfg.ExportTimeout == 0 {
		cfg.ExportTimeout = def.ExportTimeout
	}
	return &Exporter{cfg: cfg}
}

// Config returns the effective configuration.
func (e *Exporter) Config() OTLPConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// Init dials the collector, installs the global tracer provider, and
// sets up W3C trace-context propagation. Calling Init twice is a no-op.
func (e *Exporter) Init(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var dialOpts []grpc.DialOption
	if e.cfg.InsecureTLS {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	exporterOpts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(e.cfg.Endpoint),
		otlptracegrpc.WithDialOption(dialOpts...),
		otlptracegrpc.WithTimeout(e.cfg.ExportTimeout),
	}
	if e.cfg.InsecureTLS {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithInsecure())
	}
	if len(e.cfg.Headers) > 0 {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithHeaders(e.cfg.Headers))
	}

	exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
	if err != nil {
		return fmt.Errorf("create OTLP exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(e.cfg.ServiceName),
			semconv.ServiceVersion(e.cfg.ServiceVersion),
			semconv.DeploymentEnvironment(e.cfg.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("create resource: %w", err)
	}

	var sampler sdktrace.Sampler
	if e.cfg.SamplingRatio >= 1.0 {
		sampler = sdktrace.AlwaysSample()
	} else if e.cfg.SamplingRatio <= 0 {
		sampler = sdktrace.NeverSample()
	} else {
		sampler = sdktrace.TraceIDRatioBased(e.cfg.SamplingRatio)
	}

	e.provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(e.cfg.BatchTimeout),
			sdktrace.WithMaxExportBatchSize(e.cfg.MaxBatchSize),
			sdktrace.WithMaxQueueSize(e.cfg.MaxQueueSize),
			sdktrace.WithExportTimeout(e.cfg.ExportTimeout),
		),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(e.provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	e.tracer = e.provider.Tracer(e.cfg.ServiceName)
	e.initialized = true
	return nil
}

// Initialized reports whether Init has completed.
func (e *Exporter) Initialized() bool {
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initialized
}

// RecordRun emits one completed run as a span, reconstructing its
// timeline from the run's clock readings: the span covers
// [started, started+stats.Duration] and each collection cycle becomes
// a span event at its measured timestamp.
func (e *Exporter) RecordRun(ctx context.Context, runID string, started time.Time, stats RunStats, gc []heap.MetricsSample) {
	if e == nil {
		return
	}
	e.mu.Lock()
	tracer := e.tracer
	e.mu.Unlock()
	if tracer == nil {
		return
	}

	_, span := tracer.Start(ctx, "javelin.run",
		trace.WithTimestamp(started),
		trace.WithAttributes(
			attribute.String("javelin.run_id", runID),
			attribute.Int64("javelin.statements", stats.Statements),
			attribute.Int64("javelin.heap.allocated_objects", stats.AllocatedObjects),
			attribute.Int64("javelin.heap.freed_objects", stats.FreedObjects),
			attribute.Int64("javelin.gc.collections", stats.Collections),
			attribute.Int("javelin.safety.violations", stats.SafetyViolations),
			attribute.Int("javelin.deadline.violations", stats.DeadlineViolations),
			attribute.Int("javelin.diagnostics", stats.Diagnostics),
			attribute.Bool("javelin.halted", stats.Halted),
		),
	)

	for _, s := range gc {
		span.AddEvent("gc.pause",
			trace.WithTimestamp(s.Timestamp),
			trace.WithAttributes(
				attribute.Float64("gc.pause_ms", s.PauseTimeMs),
				attribute.Float64("gc.compaction_ms", s.CompactionTimeMs),
				attribute.Float64("gc.heap_usage_pct", s.HeapUsagePct),
				attribute.Int64("gc.freed_count", s.FreedCount),
				attribute.Int("gc.merges", s.Merges),
			),
		)
	}

	if stats.Halted {
		span.SetStatus(codes.Error, "execution halted")
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(started.Add(stats.Duration)))
}

// Shutdown flushes pending spans and stops the provider.
func (e *Exporter) Shutdown(ctx context.Context) error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return nil
	}
	e.initialized = false
	return e.provider.Shutdown(ctx)
}
