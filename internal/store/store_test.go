package store

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func openCoreTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestOpen_Close(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if st.Path() != path {
		t.Errorf("Path: got %q, want %q", st.Path(), path)
	}
	if st.Writer() == nil {
		t.Error("Writer is nil")
	}
	if st.Reader() == nil {
		t.Error("Reader is nil")
	}

	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "test.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("Open with nested dir: %v", err)
	}
	st.Close()
}

func TestPing(t *testing.T) {
	st := openCoreTestStore(t)
	if err := st.Ping(); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestInsertJob_GetJob(t *testing.T) {
	st := openCoreTestStore(t)

	job := &Job{
		ID:          "job-001",
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		Format:      "css",
		InputBytes:  1000,
		OutputBytes: 600,
		DurationMs:  5,
		ReducedPct:  40.0,
		CacheHit:    false,
	}

	if err := st.InsertJob(job); err != nil {
		t.Fatalf("InsertJob: %v", err)
	}

	got, err := st.GetJob("job-001")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}

	if got.ID != job.ID {
		t.Errorf("ID: got %q, want %q", got.ID, job.ID)
	}
	if got.Format != job.Format {
		t.Errorf("Format: got %q, want %q", got.Format, job.Format)
	}
	if got.InputBytes != job.InputBytes {
		t.Errorf("InputBytes: got %d, want %d", got.InputBytes, job.InputBytes)
	}
	if got.OutputBytes != job.OutputBytes {
		t.Errorf("OutputBytes: got %d, want %d", got.OutputBytes, job.OutputBytes)
	}
	if got.CacheHit != job.CacheHit {
		t.Errorf("CacheHit: got %v, want %v", got.CacheHit, job.CacheHit)
	}
}

func TestGetJob_NotFound(t *testing.T) {
	st := openCoreTestStore(t)

	_, err := st.GetJob("nonexistent")
	if err == nil {
		t.Fatal("expected error for nonexistent job")
	}
}

func TestListJobs(t *testing.T) {
	st := openCoreTestStore(t)

	for i := 0; i < 5; i++ {
		job := &Job{
			ID:         fmt.Sprintf("list-%d", i),
			CreatedAt:  time.Now().UTC().Format(time.RFC3339),
			Format:     "json",
			InputBytes: 100,
		}
		if err := st.InsertJob(job); err != nil {
			t.Fatalf("InsertJob %d: %v", i, err)
		}
	}

	results, err := st.ListJobs(3, 0)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("ListJobs(3, 0): got %d results, want 3", len(results))
	}

	results, err = st.ListJobs(10, 3)
	if err != nil {
		t.Fatalf("ListJobs offset: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("ListJobs(10, 3): got %d results, want 2", len(results))
	}
}

func TestGetJobStats(t *testing.T) {
	st := openCoreTestStore(t)

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		job := &Job{
			ID:          fmt.Sprintf("stats-%d", i),
			CreatedAt:   now.Format(time.RFC3339),
			Format:      "html",
			InputBytes:  100,
			OutputBytes: 80,
			CacheHit:    i == 0, // first one is a cache hit
		}
		if err := st.InsertJob(job); err != nil {
			t.Fatalf("InsertJob: %v", err)
		}
	}

	stats, err := st.GetJobStats(now.Add(-1 * time.Hour))
	if err != nil {
		t.Fatalf("GetJobStats: %v", err)
	}

	if stats.TotalJobs != 3 {
		t.Errorf("TotalJobs: got %d, want 3", stats.TotalJobs)
	}
	if stats.CacheHits != 1 {
		t.Errorf("CacheHits: got %d, want 1", stats.CacheHits)
	}
	if stats.CacheMisses != 2 {
		t.Errorf("CacheMisses: got %d, want 2", stats.CacheMisses)
	}
}

func TestGetJobStats_CountsErrors(t *testing.T) {
	st := openCoreTestStore(t)

	now := time.Now().UTC()
	jobs := []*Job{
		{ID: "ok", CreatedAt: now.Format(time.RFC3339), Format: "css"},
		{ID: "bad", CreatedAt: now.Format(time.RFC3339), Format: "css", ErrorTemplate: "unexpected %d:%d"},
	}
	for _, j := range jobs {
		if err := st.InsertJob(j); err != nil {
			t.Fatalf("InsertJob: %v", err)
		}
	}

	stats, err := st.GetJobStats(now.Add(-1 * time.Hour))
	if err != nil {
		t.Fatalf("GetJobStats: %v", err)
	}
	if stats.TotalErrors != 1 {
		t.Errorf("TotalErrors: got %d, want 1", stats.TotalErrors)
	}
}

func TestPrune(t *testing.T) {
	st := openCoreTestStore(t)

	oldTime := time.Now().UTC().AddDate(0, 0, -60).Format(time.RFC3339)
	newTime := time.Now().UTC().Format(time.RFC3339)

	for i, ts := range []string{oldTime, oldTime, newTime} {
		job := &Job{
			ID:        fmt.Sprintf("prune-%d", i),
			CreatedAt: ts,
			Format:    "xml",
		}
		if err := st.InsertJob(job); err != nil {
			t.Fatalf("InsertJob: %v", err)
		}
	}

	pruned, err := st.Prune(30) // retain 30 days
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}

	if pruned < 2 {
		t.Errorf("Prune: got %d rows deleted, want at least 2", pruned)
	}

	remaining, err := st.ListJobs(100, 0)
	if err != nil {
		t.Fatalf("ListJobs after prune: %v", err)
	}
	if len(remaining) != 1 {
		t.Errorf("after prune: got %d jobs, want 1", len(remaining))
	}
}

func TestConcurrentReadWrite(t *testing.T) {
	st := openCoreTestStore(t)

	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			job := &Job{
				ID:        fmt.Sprintf("conc-%d", n),
				CreatedAt: time.Now().UTC().Format(time.RFC3339),
				Format:    "js",
			}
			if err := st.InsertJob(job); err != nil {
				t.Errorf("concurrent InsertJob %d: %v", n, err)
			}
		}(i)
	}

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = st.ListJobs(10, 0)
		}()
	}

	wg.Wait()
}

func TestWALMode(t *testing.T) {
	st := openCoreTestStore(t)

	var mode string
	err := st.Writer().QueryRow("PRAGMA journal_mode").Scan(&mode)
	if err != nil {
		t.Fatalf("PRAGMA journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode: got %q, want %q", mode, "wal")
	}
}

func TestMigrations(t *testing.T) {
	st := openCoreTestStore(t)

	var version int
	err := st.Writer().QueryRow("SELECT MAX(version) FROM migrations").Scan(&version)
	if err != nil {
		t.Fatalf("query migration version: %v", err)
	}

	expected := len(migrations)
	if version != expected {
		t.Errorf("migration version: got %d, want %d", version, expected)
	}
}

func TestInsertJob_CacheHitFlag(t *testing.T) {
	st := openCoreTestStore(t)

	job := &Job{
		ID:        "cache-flag-test",
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Format:    "css",
		CacheHit:  true,
	}
	if err := st.InsertJob(job); err != nil {
		t.Fatalf("InsertJob: %v", err)
	}

	got, err := st.GetJob("cache-flag-test")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if !got.CacheHit {
		t.Error("CacheHit: got false, want true")
	}
}
