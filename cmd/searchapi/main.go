// Package main implements the search HTTP API: a plain JSON surface over
// the search and stats services, dependency-injected once at startup
// rather than through package-level singletons.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tgindex/core/engine/search"
	"github.com/tgindex/core/engine/searchengine"
	"github.com/tgindex/core/pkg/cache"
	"github.com/tgindex/core/pkg/config"
	"github.com/tgindex/core/pkg/metrics"
	"github.com/tgindex/core/pkg/mid"
	"github.com/tgindex/core/pkg/stats"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	var (
		configPath = flag.String("config", "", "path to TOML config file")
		port       = flag.String("port", "8080", "HTTP listen port")
		corsOrigin = flag.String("cors-origin", "*", "Access-Control-Allow-Origin value")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, *port, *corsOrigin, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, port, corsOrigin string, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engineClient := searchengine.New(searchengine.Config{
		Host:       cfg.Meili.Host,
		APIKey:     cfg.Meili.MasterKey,
		IndexName:  cfg.Meili.Index,
		Timeout:    cfg.Meili.Timeout,
		MaxRetries: cfg.Meili.MaxRetries,
	})

	rdb := redis.NewClient(&redis.Options{
		Addr:       fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		DB:         cfg.Redis.DB,
		MaxRetries: cfg.Redis.MaxRetries,
	})
	defer rdb.Close()

	searchCache := cache.New(rdb, cache.WithTTL(cfg.Redis.CacheTTL), cache.WithLogger(logger))
	reg := metrics.New()
	searchSvc := search.New(engineClient, searchCache, search.WithMetrics(reg))
	statsSvc := stats.New(rdb)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/v1/search", handleSearch(searchSvc, statsSvc, cfg, logger))
	mux.HandleFunc("GET /api/v1/stats", handleStats(statsSvc, logger))
	mux.Handle("GET /metrics", reg.Handler())

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.OTel("searchapi"),
		mid.CORS(corsOrigin),
	)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("search api starting", "port", port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// SearchResponse is the JSON response for GET /api/v1/search. On any caught
// failure after cache lookup and retries are exhausted, a generic message is
// surfaced rather than internal error detail.
type SearchResponse struct {
	Error string `json:"error,omitempty"`
	*searchengine.SearchResult
}

func handleSearch(svc *search.Service, statsSvc *stats.Service, cfg config.Config, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		query := q.Get("q")
		if query == "" {
			writeJSON(w, http.StatusBadRequest, SearchResponse{Error: "q is required"})
			return
		}

		req := search.Request{
			Query:    query,
			Limit:    parseInt64(q.Get("limit"), int64(cfg.Search.DefaultLimit)),
			Offset:   parseInt64(q.Get("offset"), 0),
			Sort:     q.Get("sort"),
			UseCache: true,
		}

		result, err := svc.Search(r.Context(), req)
		if err != nil {
			logger.Error("search failed", "query", query, "error", err)
			writeJSON(w, http.StatusInternalServerError, SearchResponse{Error: "search failed, please retry"})
			return
		}

		statsSvc.RecordSearch(r.Context(), query)
		writeJSON(w, http.StatusOK, SearchResponse{SearchResult: result})
	}
}

func handleStats(svc *stats.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		topK := parseInt64(r.URL.Query().Get("top"), 10)
		writeJSON(w, http.StatusOK, svc.GetStats(r.Context(), topK))
	}
}

func parseInt64(s string, fallback int64) int64 {
	if s == "" {
		return fallback
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
