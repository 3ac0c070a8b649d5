package daemon

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/minifyco/minify/internal/cache"
	"github.com/minifyco/minify/internal/config"
	"github.com/minifyco/minify/internal/logging"
	"github.com/minifyco/minify/internal/metrics"
	"github.com/minifyco/minify/internal/router"
	"github.com/minifyco/minify/internal/server"
	"github.com/minifyco/minify/internal/store"
	"github.com/minifyco/minify/internal/tracing"
	"github.com/minifyco/minify/internal/vault"
	"github.com/minifyco/minify/internal/version"
)

// Run is the daemon's main orchestrator. It wires the cache, store,
// metrics collector, tracer, and HTTP server together and blocks until a
// shutdown signal is received.
func Run(cfg *config.Config, foreground bool) error {
	dataDir := cfg.Server.DataDir
	logger, closeLog, err := logging.New(dataDir, cfg.Server.LogLevel, foreground)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	defer closeLog()
	log.Logger = logger

	log.Info().
		Str("version", version.Version).
		Str("data_dir", dataDir).
		Bool("foreground", foreground).
		Msg("minify daemon starting")

	if IsRunning(dataDir) {
		return fmt.Errorf("minify is already running (PID file exists at %s)", filepath.Join(dataDir, pidFilename))
	}

	var st *store.Store
	if cfg.Store.Enabled {
		dbPath := filepath.Join(dataDir, "minify.db")
		st, err = store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer st.Close()
		log.Info().Str("db_path", dbPath).Msg("store opened")
	}

	var c *cache.Cache
	c, err = cache.New(cfg.Cache.Size, time.Duration(cfg.Cache.TTLSeconds)*time.Second, cfg.Cache.Enabled)
	if err != nil {
		return fmt.Errorf("creating cache: %w", err)
	}

	collector := metrics.NewCollector()

	if err := WritePID(dataDir); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer func() {
		if err := RemovePID(dataDir); err != nil {
			log.Error().Err(err).Msg("failed to remove PID file")
		}
	}()
	log.Info().Int("pid", os.Getpid()).Msg("PID file written")

	configFile := config.ConfigFilePath()
	if configFile == "" {
		configFile = filepath.Join(dataDir, config.DefaultConfigFilename)
	}

	var watcher *config.Watcher
	if _, statErr := os.Stat(configFile); statErr == nil {
		w, watchErr := config.Watch(configFile)
		if watchErr != nil {
			log.Warn().Err(watchErr).Msg("failed to start config watcher; continuing without hot-reload")
		} else {
			watcher = w
			defer watcher.Close()
			watcher.OnChange(func(old, newCfg *config.Config) {
				log.Info().Msg("configuration reloaded")
			})
			log.Info().Str("file", configFile).Msg("config watcher started")
		}
	}

	var shutdownTracing func(context.Context) error
	if cfg.Tracing.Enabled {
		shutdownTracing, err = tracing.Init(context.Background(), cfg.Tracing.ServiceName, version.Version, cfg.Tracing.Exporter, cfg.Tracing.Endpoint, cfg.Tracing.SampleRate, cfg.Tracing.Insecure)
		if err != nil {
			log.Warn().Err(err).Msg("failed to start tracing; continuing without it")
		} else {
			log.Info().Str("exporter", cfg.Tracing.Exporter).Msg("tracing initialized")
		}
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	var purgerDone <-chan struct{}
	if c.Enabled() {
		purgerDone = c.StartPurger(bgCtx)
	}

	var prunerDone chan struct{}
	if st != nil && cfg.Store.RetentionDays > 0 {
		prunerDone = make(chan struct{})
		go func() {
			defer close(prunerDone)
			runPruner(bgCtx, st, cfg.Store.RetentionDays)
		}()
	}

	authToken := cfg.Auth.Token
	if cfg.Auth.Enabled && authToken == "" {
		v := vault.New()
		if cfg.Auth.TokenRef != "" {
			if tok, err := v.ResolveKeyRef(cfg.Auth.TokenRef); err == nil {
				authToken = tok
			} else {
				log.Warn().Err(err).Str("token_ref", cfg.Auth.TokenRef).Msg("failed to resolve auth.token_ref; requests will be rejected")
			}
		} else if tok, err := v.Get(); err == nil {
			authToken = tok
		} else {
			log.Warn().Err(err).Msg("auth enabled but no token configured; requests will be rejected")
		}
	}
	if !cfg.Auth.Enabled {
		authToken = ""
	}

	minifier := server.NewMinifier(c, st, collector)
	handler := server.NewHandler(minifier, log.Logger, authToken, cfg.Server.MaxBodySize)

	var metricsCollector *metrics.Collector
	if cfg.Metrics.Enabled {
		metricsCollector = collector
	}

	readTimeout := time.Duration(cfg.Server.ReadTimeout) * time.Second
	writeTimeout := time.Duration(cfg.Server.WriteTimeout) * time.Second
	idleTimeout := time.Duration(cfg.Server.IdleTimeout) * time.Second
	srv := router.NewServer(handler, cfg.Server.Addr, readTimeout, writeTimeout, idleTimeout, cfg.Tracing.Enabled, metricsCollector)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("server starting")
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	if foreground {
		fmt.Printf("\n  minify is running!\n")
		fmt.Printf("  Listening: http://localhost%s\n\n", cfg.Server.Addr)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("fatal server error")
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Info().Msg("shutting down")

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}

	if shutdownTracing != nil {
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("tracing shutdown error")
		}
	}

	bgCancel()
	if purgerDone != nil {
		<-purgerDone
	}
	if prunerDone != nil {
		<-prunerDone
	}

	if err := RemovePID(dataDir); err != nil {
		log.Error().Err(err).Msg("failed to remove PID file during shutdown")
	}

	log.Info().Msg("minify daemon stopped")
	return nil
}

// Stop reads the PID file and sends SIGTERM to the running daemon.
func Stop() error {
	dataDir := config.Get().Server.DataDir

	pid, err := ReadPID(dataDir)
	if err != nil {
		return fmt.Errorf("minify does not appear to be running: %w", err)
	}

	if !isProcessAlive(pid) {
		if rmErr := RemovePID(dataDir); rmErr != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to remove stale PID file: %v\n", rmErr)
		}
		return fmt.Errorf("minify is not running (stale PID file removed)")
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("finding process %d: %w", pid, err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("sending SIGTERM to process %d: %w", pid, err)
	}

	fmt.Printf("Sent SIGTERM to minify (PID %d)\n", pid)

	for i := 0; i < 30; i++ {
		time.Sleep(100 * time.Millisecond)
		if !isProcessAlive(pid) {
			return nil
		}
	}

	return nil
}

// Status checks if the daemon is running and prints the HTTP status of a
// request to its /healthz endpoint.
func Status() error {
	cfg := config.Get()
	dataDir := cfg.Server.DataDir

	if !IsRunning(dataDir) {
		fmt.Println("minify is not running")
		return nil
	}

	pid, _ := ReadPID(dataDir)
	fmt.Printf("minify is running (PID %d)\n", pid)

	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get("http://localhost" + cfg.Server.Addr + "/healthz")
	if err != nil {
		fmt.Println("  (server unreachable)")
		return nil
	}
	defer resp.Body.Close()

	fmt.Printf("  HTTP status: %s\n", resp.Status)
	return nil
}

// runPruner periodically prunes old job history from the store.
func runPruner(ctx context.Context, st *store.Store, retentionDays int) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						log.Error().Interface("panic", r).Msg("data pruner: recovered from panic")
					}
				}()
				n, err := st.Prune(retentionDays)
				if err != nil {
					log.Error().Err(err).Msg("data pruning failed")
				} else if n > 0 {
					log.Info().Int64("rows", n).Int("retention_days", retentionDays).Msg("pruned old job history")
				}
			}()
		}
	}
}
