package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// labeledCounter tracks a counter value for a specific label combination.
type labeledCounter struct {
	labels map[string]string
	value  int64
}

// histogram tracks a distribution of observed values using pre-defined buckets.
type histogram struct {
	mu      sync.Mutex
	labels  map[string]string
	buckets []float64 // upper bounds, sorted ascending
	counts  []int64   // count per bucket
	sum     float64
	count   int64
}

func newHistogram(labels map[string]string, buckets []float64) *histogram {
	sorted := make([]float64, len(buckets))
	copy(sorted, buckets)
	sort.Float64s(sorted)
	return &histogram{
		labels:  labels,
		buckets: sorted,
		counts:  make([]int64, len(sorted)),
	}
}

func (h *histogram) observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sum += v
	h.count++
	for i, bound := range h.buckets {
		if v <= bound {
			h.counts[i]++
			break
		}
	}
}

// counterVec is a thread-safe collection of labeled counters.
type counterVec struct {
	mu       sync.RWMutex
	counters map[string]*labeledCounter
}

func newCounterVec() *counterVec {
	return &counterVec{counters: make(map[string]*labeledCounter)}
}

func (cv *counterVec) inc(labels map[string]string) {
	key := labelsKey(labels)
	cv.mu.Lock()
	c, ok := cv.counters[key]
	if !ok {
		c = &labeledCounter{labels: copyLabels(labels)}
		cv.counters[key] = c
	}
	cv.mu.Unlock()
	atomic.AddInt64(&c.value, 1)
}

func (cv *counterVec) snapshot() []labeledCounter {
	cv.mu.RLock()
	defer cv.mu.RUnlock()
	result := make([]labeledCounter, 0, len(cv.counters))
	for _, c := range cv.counters {
		result = append(result, labeledCounter{
			labels: copyLabels(c.labels),
			value:  atomic.LoadInt64(&c.value),
		})
	}
	return result
}

// histogramVec is a thread-safe collection of labeled histograms.
type histogramVec struct {
	mu         sync.RWMutex
	histograms map[string]*histogram
	buckets    []float64
}

func newHistogramVec(buckets []float64) *histogramVec {
	return &histogramVec{
		histograms: make(map[string]*histogram),
		buckets:    buckets,
	}
}

func (hv *histogramVec) observe(labels map[string]string, v float64) {
	key := labelsKey(labels)
	hv.mu.RLock()
	h, ok := hv.histograms[key]
	hv.mu.RUnlock()
	if !ok {
		hv.mu.Lock()
		h, ok = hv.histograms[key]
		if !ok {
			h = newHistogram(copyLabels(labels), hv.buckets)
			hv.histograms[key] = h
		}
		hv.mu.Unlock()
	}
	h.observe(v)
}

func (hv *histogramVec) snapshot() []*histogram {
	hv.mu.RLock()
	defer hv.mu.RUnlock()
	result := make([]*histogram, 0, len(hv.histograms))
	for _, h := range hv.histograms {
		h.mu.Lock()
		snap := &histogram{
			labels:  copyLabels(h.labels),
			buckets: h.buckets,
			counts:  make([]int64, len(h.counts)),
			sum:     h.sum,
			count:   h.count,
		}
		copy(snap.counts, h.counts)
		h.mu.Unlock()
		result = append(result, snap)
	}
	return result
}

func labelsKey(labels map[string]string) string {
	// Build a deterministic key from sorted label pairs.
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	key := ""
	for _, k := range keys {
		key += k + "=" + labels[k] + ","
	}
	return key
}

func copyLabels(labels map[string]string) map[string]string {
	cp := make(map[string]string, len(labels))
	for k, v := range labels {
		cp[k] = v
	}
	return cp
}

// Collector tracks live metrics using atomic counters for lock-free,
// concurrent-safe updates. It provides an in-memory real-time view of
// job throughput, byte reduction, and cache performance. It is the
// teacher's request/token/cost Collector re-keyed from an LLM request's
// provider and model to a minify job's format.
type Collector struct {
	totalJobs        int64
	totalInputBytes  int64
	totalOutputBytes int64

	cacheHits   int64
	cacheMisses int64

	activeJobs int64

	startTime time.Time

	// Labeled Prometheus-style metrics.
	jobsByFormat   *counterVec   // labels: format
	errors         *counterVec   // labels: template
	jobDuration    *histogramVec // labels: format (seconds)
	bytesIn        *histogramVec // labels: format
	bytesOut       *histogramVec // labels: format
	reducedPct     *histogramVec // labels: format
	middlewareTime *histogramVec // labels: middleware, phase
}

// Stats is a point-in-time snapshot of the collector's counters,
// suitable for JSON serialisation and display by the daemon.
type Stats struct {
	Uptime         string  `json:"uptime"`
	TotalJobs      int64   `json:"total_jobs"`
	InputBytes     int64   `json:"input_bytes"`
	OutputBytes    int64   `json:"output_bytes"`
	ReducedPercent float64 `json:"reduced_percent"`
	CacheHitRate   float64 `json:"cache_hit_rate"`
	CacheHits      int64   `json:"cache_hits"`
	CacheMisses    int64   `json:"cache_misses"`
	ActiveJobs     int64   `json:"active_jobs"`
}

// byteBuckets are tuned for the size of typical inline CSS/JS/HTML/JSON
// snippets, not whole-file payloads.
var byteBuckets = []float64{256, 1024, 4096, 16384, 65536, 262144, 1048576}

// durationBuckets are tuned for pure in-process minification, which runs
// in microseconds to low milliseconds rather than network-bound latencies.
var durationBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}

// pctBuckets bucket the percentage of bytes a job removed.
var pctBuckets = []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

// middlewareBuckets are tuned for per-middleware execution times (smaller).
var middlewareBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

// NewCollector creates a new Collector with all counters initialised to zero
// and the start time set to now.
func NewCollector() *Collector {
	return &Collector{
		startTime:      time.Now(),
		jobsByFormat:   newCounterVec(),
		errors:         newCounterVec(),
		jobDuration:    newHistogramVec(durationBuckets),
		bytesIn:        newHistogramVec(byteBuckets),
		bytesOut:       newHistogramVec(byteBuckets),
		reducedPct:     newHistogramVec(pctBuckets),
		middlewareTime: newHistogramVec(middlewareBuckets),
	}
}

// Record atomically updates all counters from one completed minify job.
func (c *Collector) Record(format string, inputBytes, outputBytes int, duration time.Duration, cacheHit bool) {
	atomic.AddInt64(&c.totalJobs, 1)
	atomic.AddInt64(&c.totalInputBytes, int64(inputBytes))
	atomic.AddInt64(&c.totalOutputBytes, int64(outputBytes))

	c.jobsByFormat.inc(map[string]string{"format": format})
	c.jobDuration.observe(map[string]string{"format": format}, duration.Seconds())
	c.bytesIn.observe(map[string]string{"format": format}, float64(inputBytes))
	c.bytesOut.observe(map[string]string{"format": format}, float64(outputBytes))

	if inputBytes > 0 {
		reduced := float64(inputBytes-outputBytes) / float64(inputBytes) * 100
		c.reducedPct.observe(map[string]string{"format": format}, reduced)
	}

	if cacheHit {
		atomic.AddInt64(&c.cacheHits, 1)
	} else {
		atomic.AddInt64(&c.cacheMisses, 1)
	}
}

// IncrementActive increments the active job counter. Call this when a job
// enters the minifier.
func (c *Collector) IncrementActive() {
	atomic.AddInt64(&c.activeJobs, 1)
}

// DecrementActive decrements the active job counter. Call this when a job
// leaves the minifier (regardless of success or failure).
func (c *Collector) DecrementActive() {
	atomic.AddInt64(&c.activeJobs, -1)
}

// Stats returns a point-in-time snapshot of all metrics.
func (c *Collector) Stats() *Stats {
	totalJobs := atomic.LoadInt64(&c.totalJobs)
	inputBytes := atomic.LoadInt64(&c.totalInputBytes)
	outputBytes := atomic.LoadInt64(&c.totalOutputBytes)
	hits := atomic.LoadInt64(&c.cacheHits)
	misses := atomic.LoadInt64(&c.cacheMisses)

	var hitRate float64
	totalCacheOps := hits + misses
	if totalCacheOps > 0 {
		hitRate = float64(hits) / float64(totalCacheOps) * 100
	}

	var reducedPercent float64
	if inputBytes > 0 {
		reducedPercent = float64(inputBytes-outputBytes) / float64(inputBytes) * 100
	}

	return &Stats{
		Uptime:         formatDuration(time.Since(c.startTime)),
		TotalJobs:      totalJobs,
		InputBytes:     inputBytes,
		OutputBytes:    outputBytes,
		ReducedPercent: reducedPercent,
		CacheHitRate:   hitRate,
		CacheHits:      hits,
		CacheMisses:    misses,
		ActiveJobs:     atomic.LoadInt64(&c.activeJobs),
	}
}

// RecordError increments the error counter for the given error template
// (the undecorated %d/%d diag.Report template, so distinct offsets in
// the same kind of failure collapse into one series).
func (c *Collector) RecordError(template string) {
	c.errors.inc(map[string]string{"template": template})
}

// ObserveMiddlewareTime records a router middleware execution time in seconds.
func (c *Collector) ObserveMiddlewareTime(middleware, phase string, seconds float64) {
	c.middlewareTime.observe(map[string]string{
		"middleware": middleware,
		"phase":      phase,
	}, seconds)
}

// JobsByFormat returns the per-format job counter vec for Prometheus export.
func (c *Collector) JobsByFormat() *counterVec { return c.jobsByFormat }

// Errors returns the error counter vec for Prometheus export.
func (c *Collector) Errors() *counterVec { return c.errors }

// JobDuration returns the per-format job duration histogram vec for Prometheus export.
func (c *Collector) JobDuration() *histogramVec { return c.jobDuration }

// BytesIn returns the per-format input-size histogram vec for Prometheus export.
func (c *Collector) BytesIn() *histogramVec { return c.bytesIn }

// BytesOut returns the per-format output-size histogram vec for Prometheus export.
func (c *Collector) BytesOut() *histogramVec { return c.bytesOut }

// ReducedPct returns the per-format size-reduction histogram vec for Prometheus export.
func (c *Collector) ReducedPct() *histogramVec { return c.reducedPct }

// MiddlewareTime returns the middleware timing histogram vec for Prometheus export.
func (c *Collector) MiddlewareTime() *histogramVec { return c.middlewareTime }

// formatDuration produces a human-readable duration string like "2d 5h 32m".
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return d.Round(time.Second).String()
	}

	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		return formatWithUnits(days, "d", hours, "h", minutes, "m")
	}
	if hours > 0 {
		return formatWithUnits(hours, "h", minutes, "m", 0, "")
	}
	return formatWithUnits(minutes, "m", 0, "", 0, "")
}

// formatWithUnits builds a compact duration string from up to three components.
func formatWithUnits(v1 int, u1 string, v2 int, u2 string, v3 int, u3 string) string {
	s := ""
	if v1 > 0 {
		s += intStr(v1) + u1
	}
	if v2 > 0 {
		if s != "" {
			s += " "
		}
		s += intStr(v2) + u2
	}
	if v3 > 0 && u3 != "" {
		if s != "" {
			s += " "
		}
		s += intStr(v3) + u3
	}
	if s == "" {
		return "0m"
	}
	return s
}

// intStr converts an int to its string representation without importing strconv.
func intStr(n int) string {
	if n == 0 {
		return "0"
	}
	if n < 0 {
		return "-" + intStr(-n)
	}
	digits := make([]byte, 0, 10)
	for n > 0 {
		digits = append(digits, byte('0'+n%10))
		n /= 10
	}
	// reverse
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	return string(digits)
}
