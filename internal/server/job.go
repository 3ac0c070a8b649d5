package server

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/minifyco/minify/internal/cache"
	"github.com/minifyco/minify/internal/diag"
	"github.com/minifyco/minify/internal/metrics"
	"github.com/minifyco/minify/internal/plugin"
	"github.com/minifyco/minify/internal/store"
	"github.com/minifyco/minify/internal/tracing"
)

// Result is the outcome of one minify job, shared by the CLI's
// --benchmark output and the daemon's ?benchmark=1 response.
type Result struct {
	JobID       string
	Format      string
	Output      []byte
	InputBytes  int
	OutputBytes int
	ReducedPct  float64
	Duration    time.Duration
	CacheHit    bool
}

// Minifier runs one minify job through the format registry, consulting
// the cache first and optionally recording the outcome to the job store
// and metrics collector. It is the one piece of logic the CLI's
// `minify <format>` command and the daemon's `POST /v1/minify/{format}`
// route both run through, so cache/store/metrics wiring only happens
// in one place.
type Minifier struct {
	Registry  *plugin.Registry
	Cache     *cache.Cache
	Store     *store.Store // nil disables history persistence
	Collector *metrics.Collector
}

// NewMinifier builds a Minifier with a freshly wired format registry.
func NewMinifier(c *cache.Cache, st *store.Store, collector *metrics.Collector) *Minifier {
	return &Minifier{
		Registry:  formatRegistry(),
		Cache:     c,
		Store:     st,
		Collector: collector,
	}
}

// Run minifies input as format, consulting the cache first. The returned
// Report has offsets resolved against input by the caller, via
// diag.Resolve, before being shown to a user.
func (m *Minifier) Run(ctx context.Context, format string, input []byte) (*Result, *diag.Report) {
	start := time.Now()

	ctx, span := tracing.StartJobSpan(ctx, format)
	defer span.End()

	jobID := uuid.New().String()
	tracing.SetJobAttributes(ctx, jobID, format, len(input))

	fn, ok := m.Registry.Lookup(format)
	if !ok {
		rep := &diag.Report{Template: "no minifier registered for format %d:%d", Offset: 0}
		return nil, rep
	}

	key := cache.Key(format, input)
	if m.Cache != nil {
		if cached, hit := m.Cache.Get(key); hit {
			result := m.finish(ctx, jobID, format, input, cached, time.Since(start), true, "")
			return result, nil
		}
	}

	output, rep := fn(input)
	if rep != nil {
		if m.Collector != nil {
			m.Collector.RecordError(rep.Template)
		}
		tracing.RecordError(ctx, rep)
		m.recordJob(jobID, format, len(input), 0, time.Since(start), false, rep.Template)
		return nil, rep
	}

	if m.Cache != nil {
		m.Cache.Set(key, output)
	}

	result := m.finish(ctx, jobID, format, input, output, time.Since(start), false, "")
	return result, nil
}

func (m *Minifier) finish(ctx context.Context, jobID, format string, input, output []byte, duration time.Duration, cacheHit bool, errTemplate string) *Result {
	inputBytes := len(input)
	outputBytes := len(output)
	var reducedPct float64
	if inputBytes > 0 {
		reducedPct = float64(inputBytes-outputBytes) / float64(inputBytes) * 100
	}

	tracing.SetResultAttributes(ctx, outputBytes, reducedPct, cacheHit)

	if m.Collector != nil {
		m.Collector.Record(format, inputBytes, outputBytes, duration, cacheHit)
	}
	m.recordJob(jobID, format, inputBytes, outputBytes, duration, cacheHit, errTemplate)

	return &Result{
		JobID:       jobID,
		Format:      format,
		Output:      output,
		InputBytes:  inputBytes,
		OutputBytes: outputBytes,
		ReducedPct:  reducedPct,
		Duration:    duration,
		CacheHit:    cacheHit,
	}
}

func (m *Minifier) recordJob(jobID, format string, inputBytes, outputBytes int, duration time.Duration, cacheHit bool, errTemplate string) {
	if m.Store == nil {
		return
	}
	job := &store.Job{
		ID:            jobID,
		CreatedAt:     time.Now().UTC().Format(time.RFC3339),
		Format:        format,
		InputBytes:    int64(inputBytes),
		OutputBytes:   int64(outputBytes),
		DurationMs:    duration.Milliseconds(),
		CacheHit:      cacheHit,
		ErrorTemplate: errTemplate,
	}
	if inputBytes > 0 {
		job.ReducedPct = float64(inputBytes-outputBytes) / float64(inputBytes) * 100
	}
	_ = m.Store.InsertJob(job) // best-effort: history persistence must not fail the job
}
