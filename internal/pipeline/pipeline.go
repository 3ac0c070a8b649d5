// Package pipeline runs one inline <script>/<style> body through a fixed
// three-stage coordinator: decode (XML entity/CDATA unescaping), delegate
// (the format-specific child minifier), encode (XML re-escaping). There is
// no middleware ordering to configure and nothing ever short-circuits with
// a cached result, but per-stage timing, per-stage tracing, and panic
// recovery are kept.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/minifyco/minify/internal/diag"
	"github.com/minifyco/minify/internal/tracing"
)

// Decoder turns a raw tag body into bytes ready for the child minifier,
// plus a same-length offsetMap where offsetMap[j] is the byte offset
// within the original body that produced decoded byte j.
type Decoder func(body []byte) (decoded []byte, offsetMap []int, rep *diag.Report)

// Delegate is the child-minifier entry point shape shared by cssmin,
// jsmin, and jsonmin.
type Delegate func(input []byte) ([]byte, *diag.Report)

// Encoder turns the delegate's minified output back into document bytes.
type Encoder func(minified []byte) []byte

// Coordinator runs Decode, Delegate, and Encode in order for every inline
// body of one format, recording per-stage timing along the way.
type Coordinator struct {
	Format   string
	Decode   Decoder
	Delegate Delegate
	Encode   Encoder

	mu      sync.Mutex
	timings map[string]time.Duration
}

// New builds a Coordinator for one inline-content format.
func New(format string, decode Decoder, delegate Delegate, encode Encoder) *Coordinator {
	return &Coordinator{
		Format:   format,
		Decode:   decode,
		Delegate: delegate,
		Encode:   encode,
		timings:  make(map[string]time.Duration),
	}
}

// Run decodes body, runs the child minifier, and re-encodes the result.
// bodyOffset is the position of body's first byte within the outer
// document; any error offset a stage reports is translated back into that
// outer coordinate system before being returned.
func (c *Coordinator) Run(ctx context.Context, body []byte, bodyOffset int) ([]byte, *diag.Report) {
	ctx, span := tracing.StartPipelineSpan(ctx, "inline."+c.Format)
	defer span.End()

	decoded, offsetMap, rep := c.runDecode(ctx, body)
	if rep != nil {
		return nil, &diag.Report{Template: rep.Template, Offset: bodyOffset + rep.Offset}
	}

	minified, rep := c.runDelegate(ctx, decoded)
	if rep != nil {
		return nil, &diag.Report{Template: rep.Template, Offset: bodyOffset + mapOffset(offsetMap, rep.Offset)}
	}

	return c.runEncode(ctx, minified), nil
}

// mapOffset translates a decoded-coordinate offset back to body
// coordinates. An offset at or past the end of the map (the error points
// just past the last decoded byte, e.g. an unclosed literal) maps to just
// past the last tracked source byte.
func mapOffset(offsetMap []int, offset int) int {
	if offset >= 0 && offset < len(offsetMap) {
		return offsetMap[offset]
	}
	if len(offsetMap) > 0 {
		return offsetMap[len(offsetMap)-1] + 1
	}
	return 0
}

func (c *Coordinator) runDecode(ctx context.Context, body []byte) (decoded []byte, offsetMap []int, rep *diag.Report) {
	_, span := tracing.StartMiddlewareSpan(ctx, c.Format, "decode")
	start := time.Now()
	defer func() {
		c.recordTiming("decode", time.Since(start))
		if r := recover(); r != nil {
			rep = panicReport("decoding", r)
		}
		span.End()
	}()
	return c.Decode(body)
}

func (c *Coordinator) runDelegate(ctx context.Context, decoded []byte) (out []byte, rep *diag.Report) {
	_, span := tracing.StartMiddlewareSpan(ctx, c.Format, "delegate")
	start := time.Now()
	defer func() {
		c.recordTiming("delegate", time.Since(start))
		if r := recover(); r != nil {
			rep = panicReport("minifying", r)
		}
		span.End()
	}()
	return c.Delegate(decoded)
}

func (c *Coordinator) runEncode(ctx context.Context, minified []byte) []byte {
	_, span := tracing.StartMiddlewareSpan(ctx, c.Format, "encode")
	defer span.End()
	start := time.Now()
	out := c.Encode(minified)
	c.recordTiming("encode", time.Since(start))
	return out
}

func panicReport(stage string, r interface{}) *diag.Report {
	return &diag.Report{
		Template: fmt.Sprintf("panic %s inline body: %v, in line %%d, column %%d", stage, r),
		Offset:   0,
	}
}

func (c *Coordinator) recordTiming(stage string, d time.Duration) {
	c.mu.Lock()
	c.timings[stage] = d
	c.mu.Unlock()
}

// Timings returns a snapshot of the latest per-stage execution times.
func (c *Coordinator) Timings() map[string]time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := make(map[string]time.Duration, len(c.timings))
	for k, v := range c.timings {
		snap[k] = v
	}
	return snap
}
