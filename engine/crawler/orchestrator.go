// Package crawler implements the crawler orchestrator: it wires the
// chat client, historical sync, realtime listener, ingest service, and
// checkpoint store together, serializes ingest activity, and drives the
// three run modes.
package crawler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tgindex/core/engine/chatclient"
	"github.com/tgindex/core/engine/document"
	"github.com/tgindex/core/engine/historicalsync"
	"github.com/tgindex/core/engine/ingest"
	"github.com/tgindex/core/engine/realtime"
	"github.com/tgindex/core/engine/state"
)

// Mode selects which producers the orchestrator drives.
type Mode string

const (
	ModeHistorical Mode = "historical"
	ModeRealtime   Mode = "realtime"
	ModeBoth       Mode = "both"
)

// DefaultBatchSize is the historical-mode batch size when none is given.
const DefaultBatchSize = 50

// Channel is one entry of the channel registry relevant to crawling.
type Channel struct {
	ID       int64
	Username string
	Enabled  bool
}

// ChatClient is the transport surface the orchestrator needs: a historical
// fetcher and a realtime event source over the same connection.
type ChatClient interface {
	chatclient.MessageFetcher
	chatclient.EventSource
}

// Orchestrator drives the crawl. Ingest activity — single messages from the
// realtime listener and batches from historical sync — is serialized behind
// a mutex so engine writes from the two producers never interleave.
type Orchestrator struct {
	chat      ChatClient
	sync      *historicalsync.Sync
	listener  *realtime.Listener
	ingest    *ingest.Service
	store     *state.Store
	batchSize int
	log       *slog.Logger

	ingestMu sync.Mutex
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithBatchSize overrides the historical-mode batch size.
func WithBatchSize(n int) Option {
	return func(o *Orchestrator) { o.batchSize = n }
}

// WithLogger overrides the orchestrator's logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

// New constructs an Orchestrator over chat, store, and svc.
func New(chat ChatClient, store *state.Store, svc *ingest.Service, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		chat:      chat,
		sync:      historicalsync.New(chat, store),
		ingest:    svc,
		store:     store,
		batchSize: DefaultBatchSize,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.listener = realtime.New(chat, o.log)
	return o
}

// Run dispatches to the requested mode(s), then flushes state and
// disconnects the chat client on return.
func (o *Orchestrator) Run(ctx context.Context, mode Mode, channels []Channel, limit int, rateLimitDelay time.Duration) error {
	defer o.shutdown()

	switch mode {
	case ModeHistorical:
		return o.runHistorical(ctx, channels, limit, rateLimitDelay)
	case ModeRealtime:
		return o.runRealtime(ctx, channels)
	case ModeBoth:
		var histErr error
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			histErr = o.runHistorical(ctx, channels, limit, rateLimitDelay)
		}()
		rtErr := o.runRealtime(ctx, channels)
		wg.Wait()
		return errors.Join(histErr, rtErr)
	default:
		return errors.New("crawler: unknown mode " + string(mode))
	}
}

// runHistorical implements historical mode, one channel at a time. A single
// batchLimiter paces batch flushes across all channels in this run, in
// addition to historicalsync's own per-item pacing within each channel.
func (o *Orchestrator) runHistorical(ctx context.Context, channels []Channel, limit int, rateLimitDelay time.Duration) error {
	var batchLimiter *rate.Limiter
	if rateLimitDelay > 0 {
		batchLimiter = rate.NewLimiter(rate.Every(rateLimitDelay), 1)
	}

	for _, ch := range channels {
		if !ch.Enabled {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		o.syncOneChannel(ctx, ch, limit, rateLimitDelay, batchLimiter)
	}
	return ctx.Err()
}

func (o *Orchestrator) syncOneChannel(ctx context.Context, ch Channel, limit int, rateLimitDelay time.Duration, batchLimiter *rate.Limiter) {
	var (
		batch     []document.MessageInput
		lastMsgID int64
	)

	flush := func() bool {
		if len(batch) == 0 {
			return true
		}
		if batchLimiter != nil {
			if err := batchLimiter.Wait(ctx); err != nil {
				batch = nil
				return false
			}
		}
		o.ingestMu.Lock()
		_, err := o.ingest.IngestBatch(ctx, batch, true)
		o.ingestMu.Unlock()
		if err != nil {
			o.log.Error("crawler: historical batch failed, stopping channel", "channel_id", ch.ID, "error", err)
			batch = nil
			return false
		}
		o.store.Set(ch.ID, lastMsgID)
		batch = nil
		return true
	}

	for item := range o.sync.SyncChannel(ctx, ch.ID, limit, rateLimitDelay, nil) {
		if ctx.Err() != nil {
			return
		}
		if item.Err != nil {
			o.log.Error("crawler: fetch error, stopping channel", "channel_id", ch.ID, "error", item.Err)
			return
		}
		if item.Message.MsgID > lastMsgID {
			lastMsgID = item.Message.MsgID
		}
		batch = append(batch, item.Message)
		if len(batch) >= o.batchSize {
			if !flush() {
				return
			}
		}
	}
	flush()
}

// runRealtime implements realtime mode: collect enabled channel ids
// and subscribe, serializing each forwarded message behind ingestMu.
func (o *Orchestrator) runRealtime(ctx context.Context, channels []Channel) error {
	var ids []int64
	for _, ch := range channels {
		if ch.Enabled {
			ids = append(ids, ch.ID)
		}
	}
	if len(ids) == 0 {
		o.log.Info("crawler: no enabled channels for realtime mode")
		return nil
	}

	return o.listener.Run(ctx, ids, func(ctx context.Context, in document.MessageInput) error {
		o.ingestMu.Lock()
		outcome := o.ingest.IngestMessage(ctx, in)
		o.ingestMu.Unlock()
		if outcome == ingest.Error {
			return errors.New("ingest failed")
		}
		return nil
	})
}

// shutdown flushes the checkpoint store and disconnects the chat client if
// it supports it.
func (o *Orchestrator) shutdown() {
	if err := o.store.Flush(); err != nil {
		o.log.Error("crawler: flush on shutdown failed", "error", err)
	}
	if closer, ok := o.chat.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			o.log.Error("crawler: chat client close failed", "error", err)
		}
	}
}
