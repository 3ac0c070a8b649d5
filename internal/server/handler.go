package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/minifyco/minify/internal/diag"
	"github.com/rs/zerolog"
)

// Handler serves the daemon's HTTP surface: one minify job per request,
// a health probe, and a job-history query, all cut down from the
// teacher's ProxyHandler (format detection, chain run, upstream forward)
// to the single fixed operation this domain has.
type Handler struct {
	Minifier    *Minifier
	Logger      zerolog.Logger
	AuthToken   string // empty disables bearer auth
	MaxBodySize int64  // 0 means unlimited
}

// NewHandler builds a Handler around an already-wired Minifier.
func NewHandler(m *Minifier, logger zerolog.Logger, authToken string, maxBodySize int64) *Handler {
	return &Handler{
		Minifier:    m,
		Logger:      logger,
		AuthToken:   authToken,
		MaxBodySize: maxBodySize,
	}
}

// RequireAuth is chi middleware enforcing the bearer token configured on
// the Handler. It is a no-op if no token is configured, matching the
// teacher's dev-mode behavior of running without auth when none is set.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.AuthToken == "" {
			next.ServeHTTP(w, r)
			return
		}

		const prefix = "Bearer "
		auth := r.Header.Get("Authorization")
		if len(auth) <= len(prefix) || auth[:len(prefix)] != prefix {
			writeJSONError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		presented := auth[len(prefix):]
		if subtle.ConstantTimeCompare([]byte(presented), []byte(h.AuthToken)) != 1 {
			writeJSONError(w, http.StatusUnauthorized, "invalid bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HandleMinify reads the request body, runs it through the format named
// by the {format} URL parameter, and writes the minified result. With
// ?benchmark=1 it instead writes a JSON summary of the job, matching the
// CLI's --benchmark flag.
func (h *Handler) HandleMinify(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	format := chi.URLParam(r, "format")

	logger := h.Logger.With().
		Str("format", format).
		Str("path", r.URL.Path).
		Logger()

	if _, ok := h.Minifier.Registry.Lookup(format); !ok {
		writeJSONError(w, http.StatusNotFound, "unsupported format: "+format)
		return
	}

	if h.MaxBodySize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxBodySize)
	}
	input, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		logger.Error().Err(err).Msg("failed to read request body")
		writeJSONError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	defer r.Body.Close()

	result, rep := h.Minifier.Run(r.Context(), format, input)
	if rep != nil {
		logger.Warn().Str("detail", rep.Error()).Msg("minify job failed")
		writeJSONError(w, http.StatusUnprocessableEntity, resolveDetail(input, rep))
		return
	}

	if r.URL.Query().Get("benchmark") == "1" {
		writeBenchmark(w, result)
		return
	}

	w.Header().Set("X-Minify-Job-Id", result.JobID)
	w.Header().Set("X-Minify-Cache", cacheHeader(result.CacheHit))
	w.Header().Set("Content-Type", contentTypeFor(format))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Output); err != nil {
		logger.Error().Err(err).Msg("failed to write response body")
	}

	logger.Info().
		Str("job_id", result.JobID).
		Int("input_bytes", result.InputBytes).
		Int("output_bytes", result.OutputBytes).
		Dur("duration", time.Since(start)).
		Bool("cache_hit", result.CacheHit).
		Msg("minify job completed")
}

// HandleHealthz returns a minimal liveness response.
func (h *Handler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// HandleHistory returns a page of past job records, paginated with
// ?limit= and ?offset=.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if h.Minifier.Store == nil {
		writeJSONError(w, http.StatusNotImplemented, "job history is disabled")
		return
	}

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	jobs, err := h.Minifier.Store.ListJobs(limit, offset)
	if err != nil {
		h.Logger.Error().Err(err).Msg("failed to list job history")
		writeJSONError(w, http.StatusInternalServerError, "failed to list job history")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"jobs": jobs})
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func cacheHeader(hit bool) string {
	if hit {
		return "HIT"
	}
	return "MISS"
}

func contentTypeFor(format string) string {
	switch format {
	case "css":
		return "text/css; charset=utf-8"
	case "js":
		return "text/javascript; charset=utf-8"
	case "json":
		return "application/json; charset=utf-8"
	case "xml":
		return "application/xml; charset=utf-8"
	case "html":
		return "text/html; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// writeJSONError writes a JSON error response with the given status code and message.
func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	resp := map[string]interface{}{
		"error": map[string]interface{}{
			"message": message,
		},
	}
	data, _ := json.Marshal(resp)
	_, _ = w.Write(data)
}

// resolveDetail renders a job's deferred-offset error template against
// the input that produced it, giving the caller a line:column message.
func resolveDetail(input []byte, rep *diag.Report) string {
	return diag.Resolve(input, rep)
}

// writeBenchmark writes the ?benchmark=1 JSON summary of a completed job.
func writeBenchmark(w http.ResponseWriter, result *Result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"job_id":       result.JobID,
		"format":       result.Format,
		"input_bytes":  result.InputBytes,
		"output_bytes": result.OutputBytes,
		"reduced_pct":  result.ReducedPct,
		"duration_ms":  result.Duration.Milliseconds(),
		"cache_hit":    result.CacheHit,
	})
}
