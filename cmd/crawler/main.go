// Package main implements the crawler binary: it wires the chat
// transport, historical sync, realtime listener, ingest service, and
// checkpoint store together and drives one of the three run modes.
//
// The chat transport itself (session management, flood-wait handling,
// MTProto) is explicitly out of scope: this binary wires a NATS-backed
// realtime.NATSSource for the event-subscription facility and leaves the
// historical MessageFetcher as an external wiring point, using
// chatclient.Fake as the placeholder until a real adapter is supplied.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/tgindex/core/engine/chatclient"
	"github.com/tgindex/core/engine/crawler"
	"github.com/tgindex/core/engine/dedupwindow"
	"github.com/tgindex/core/engine/ingest"
	"github.com/tgindex/core/engine/realtime"
	"github.com/tgindex/core/engine/registry"
	"github.com/tgindex/core/engine/searchengine"
	"github.com/tgindex/core/engine/state"
	"github.com/tgindex/core/pkg/config"
	"github.com/tgindex/core/pkg/metrics"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	var (
		configPath = flag.String("config", "", "path to TOML config file")
		mode       = flag.String("mode", "both", "run mode: historical|realtime|both")
		limit      = flag.Int("limit", 0, "max messages to fetch per channel in historical mode (0 = unbounded)")
		statePath  = flag.String("state", "data/state.json", "checkpoint store path")
		registryPath = flag.String("registry", "configs/channels.json", "channel registry path")
		natsURL    = flag.String("nats-url", nats.DefaultURL, "NATS server URL for realtime events")
		metricsPort = flag.Int("metrics-port", 0, "serve Prometheus /metrics on this port (0 disables)")
		debug      = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	if *debug {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
		slog.SetDefault(logger)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, crawler.Mode(*mode), *limit, *statePath, *registryPath, *natsURL, *metricsPort, logger); err != nil {
		logger.Error("crawler exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, mode crawler.Mode, limit int, statePath, registryPath, natsURL string, metricsPort int, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(filepath.Dir(statePath), 0o755); err != nil {
		return err
	}

	store, err := state.Open(statePath,
		state.WithFlushInterval(cfg.Indexer.StateFlushInterval),
		state.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	reg, err := registry.Open(registryPath)
	if err != nil {
		return err
	}

	engineClient := searchengine.New(searchengine.Config{
		Host:       cfg.Meili.Host,
		APIKey:     cfg.Meili.MasterKey,
		IndexName:  cfg.Meili.Index,
		Timeout:    cfg.Meili.Timeout,
		MaxRetries: cfg.Meili.MaxRetries,
	})

	metricsReg := metrics.New()
	if metricsPort > 0 {
		metricsReg.ServeAsync(metricsPort)
		logger.Info("metrics server listening", "port", metricsPort)
	}

	window := dedupwindow.New(dedupwindow.DefaultCapacity, 3)
	ingestSvc := ingest.New(engineClient, window, ingest.WithLogger(logger), ingest.WithMetrics(metricsReg))

	chat, err := newChatClient(natsURL)
	if err != nil {
		return err
	}

	orch := crawler.New(chat, store, ingestSvc,
		crawler.WithBatchSize(cfg.Indexer.BatchSize),
		crawler.WithLogger(logger),
	)

	channels := toOrchestratorChannels(reg.List())
	logger.Info("crawler starting", "mode", mode, "channels", len(channels))
	return orch.Run(ctx, mode, channels, effectiveLimit(limit), cfg.Indexer.RateLimitDelay)
}

func effectiveLimit(limit int) int {
	if limit <= 0 {
		return 1 << 30
	}
	return limit
}

func toOrchestratorChannels(entries []registry.Channel) []crawler.Channel {
	out := make([]crawler.Channel, 0, len(entries))
	for _, e := range entries {
		out = append(out, crawler.Channel{ID: e.ChannelID, Username: e.Username, Enabled: e.Enabled})
	}
	return out
}

// natsChatClient pairs a NATS-backed realtime event source with the
// in-memory historical fetcher placeholder, satisfying crawler.ChatClient
// until a real MTProto adapter is wired in.
type natsChatClient struct {
	chatclient.MessageFetcher
	chatclient.EventSource
	conn *nats.Conn
}

func (c *natsChatClient) Close() error {
	c.conn.Close()
	return nil
}

func newChatClient(natsURL string) (*natsChatClient, error) {
	conn, err := nats.Connect(natsURL, nats.Timeout(5*time.Second))
	if err != nil {
		return nil, err
	}
	return &natsChatClient{
		MessageFetcher: chatclient.NewFake(),
		EventSource:    realtime.NewNATSSource(conn, realtime.DefaultSubject),
		conn:           conn,
	}, nil
}
