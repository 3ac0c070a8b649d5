package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Job represents a single persisted minify job record.
type Job struct {
	ID            string
	CreatedAt     string
	Format        string
	InputBytes    int64
	OutputBytes   int64
	DurationMs    int64
	ReducedPct    float64
	CacheHit      bool
	ErrorTemplate string
}

// JobStats holds aggregate statistics for a range of jobs.
type JobStats struct {
	TotalJobs        int64
	TotalInputBytes  int64
	TotalOutputBytes int64
	TotalErrors      int64
	CacheHits        int64
	CacheMisses      int64
}

// InsertJob stores a new job record. The caller is responsible for
// providing a unique ID (typically a UUID).
func (s *Store) InsertJob(j *Job) error {
	cacheHitInt := 0
	if j.CacheHit {
		cacheHitInt = 1
	}

	_, err := s.writer.Exec(`
		INSERT INTO jobs (
			id, created_at, format, input_bytes, output_bytes,
			duration_ms, reduced_pct, cache_hit, error_template
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.CreatedAt, j.Format, j.InputBytes, j.OutputBytes,
		j.DurationMs, j.ReducedPct, cacheHitInt, j.ErrorTemplate,
	)
	if err != nil {
		return fmt.Errorf("store: insert job: %w", err)
	}
	return nil
}

// GetJob retrieves a single job by its ID.
// Returns sql.ErrNoRows if the job does not exist.
func (s *Store) GetJob(id string) (*Job, error) {
	j := &Job{}
	var cacheHitInt int

	err := s.reader.QueryRow(`
		SELECT id, created_at, format, input_bytes, output_bytes,
		       duration_ms, reduced_pct, cache_hit, error_template
		FROM jobs WHERE id = ?`, id,
	).Scan(
		&j.ID, &j.CreatedAt, &j.Format, &j.InputBytes, &j.OutputBytes,
		&j.DurationMs, &j.ReducedPct, &cacheHitInt, &j.ErrorTemplate,
	)
	if err != nil {
		return nil, fmt.Errorf("store: get job %s: %w", id, err)
	}

	j.CacheHit = cacheHitInt != 0
	return j, nil
}

// ListJobs returns a page of jobs ordered by creation time descending.
func (s *Store) ListJobs(limit, offset int) ([]*Job, error) {
	rows, err := s.reader.Query(`
		SELECT id, created_at, format, input_bytes, output_bytes,
		       duration_ms, reduced_pct, cache_hit, error_template
		FROM jobs
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list jobs: %w", err)
	}
	defer rows.Close()

	var results []*Job
	for rows.Next() {
		j := &Job{}
		var cacheHitInt int
		if err := rows.Scan(
			&j.ID, &j.CreatedAt, &j.Format, &j.InputBytes, &j.OutputBytes,
			&j.DurationMs, &j.ReducedPct, &cacheHitInt, &j.ErrorTemplate,
		); err != nil {
			return nil, fmt.Errorf("store: scan job row: %w", err)
		}
		j.CacheHit = cacheHitInt != 0
		results = append(results, j)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list jobs iteration: %w", err)
	}
	return results, nil
}

// GetJobStats computes aggregate statistics for all jobs whose
// created_at is >= since.
func (s *Store) GetJobStats(since time.Time) (*JobStats, error) {
	sinceStr := since.UTC().Format(time.RFC3339)
	stats := &JobStats{}

	err := s.reader.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(input_bytes), 0),
			COALESCE(SUM(output_bytes), 0),
			COALESCE(SUM(CASE WHEN error_template != '' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN cache_hit = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN cache_hit = 0 THEN 1 ELSE 0 END), 0)
		FROM jobs
		WHERE created_at >= ?`, sinceStr,
	).Scan(
		&stats.TotalJobs,
		&stats.TotalInputBytes,
		&stats.TotalOutputBytes,
		&stats.TotalErrors,
		&stats.CacheHits,
		&stats.CacheMisses,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return stats, nil
		}
		return nil, fmt.Errorf("store: get job stats: %w", err)
	}

	return stats, nil
}
