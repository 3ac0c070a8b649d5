package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// StartPipelineSpan creates a span covering one run of the inline
// decode/delegate/encode coordinator; phase names the run.
func StartPipelineSpan(ctx context.Context, phase string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "pipeline."+phase,
		trace.WithAttributes(attribute.String("pipeline.phase", phase)),
	)
}

// StartMiddlewareSpan creates a child span for one named processing step;
// the inline coordinator uses it for each of its decode, delegate and
// encode stages.
func StartMiddlewareSpan(ctx context.Context, name, phase string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "middleware."+name+"."+phase,
		trace.WithAttributes(
			attribute.String("middleware.name", name),
			attribute.String("middleware.phase", phase),
		),
	)
}

// StartJobSpan creates a span covering a single minify job, from decode
// through encode.
func StartJobSpan(ctx context.Context, format string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "minify.job",
		trace.WithAttributes(attribute.String("job.format", format)),
	)
}

// SetJobAttributes adds request-level attributes to the current span.
func SetJobAttributes(ctx context.Context, jobID, format string, inputBytes int) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("job.id", jobID),
		attribute.String("job.format", format),
		attribute.Int("job.input_bytes", inputBytes),
	)
}

// SetResultAttributes adds result-level attributes to the current span.
func SetResultAttributes(ctx context.Context, outputBytes int, reducedPct float64, cacheHit bool) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.Int("result.output_bytes", outputBytes),
		attribute.Float64("result.reduced_pct", reducedPct),
		attribute.Bool("result.cache_hit", cacheHit),
	)
}

// RecordError records an error on the current span.
func RecordError(ctx context.Context, err error) {
	if err != nil {
		trace.SpanFromContext(ctx).RecordError(err)
	}
}
