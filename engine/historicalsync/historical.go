// Package historicalsync implements the resumable, rate-limited historical
// backfill producer: it reads the checkpoint, drives the chat
// client's message iterator above it, and yields items without itself
// mutating the checkpoint — the crawler orchestrator does that after a
// successful ingest.
package historicalsync

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/tgindex/core/engine/chatclient"
	"github.com/tgindex/core/engine/document"
	"github.com/tgindex/core/engine/state"
)

// Sync drives a channel's history from its checkpoint forward.
type Sync struct {
	fetcher chatclient.MessageFetcher
	store   *state.Store
}

// New constructs a Sync over fetcher, reading checkpoints from store.
func New(fetcher chatclient.MessageFetcher, store *state.Store) *Sync {
	return &Sync{fetcher: fetcher, store: store}
}

// Item is one message yielded by SyncChannel, carrying any producer error
// alongside it.
type Item struct {
	Message document.MessageInput
	Err     error
}

// SyncChannel reads the checkpoint for channelID and drives the fetcher in
// chronological order starting above it, yielding at most limit items. If
// progress is non-nil it is invoked with the running count after each item.
// When rateLimitDelay is positive, a token-bucket limiter (burst 1, one
// token per rateLimitDelay) paces consumption of the fetcher so no two
// items are processed closer together than rateLimitDelay. The checkpoint
// is not mutated here.
func (s *Sync) SyncChannel(ctx context.Context, channelID int64, limit int, rateLimitDelay time.Duration, progress func(int)) <-chan Item {
	out := make(chan Item)
	minID := s.store.Get(channelID)

	var limiter *rate.Limiter
	if rateLimitDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(rateLimitDelay), 1)
		// Start with an empty bucket so the wait after the first item also
		// lasts a full rateLimitDelay.
		limiter.Allow()
	}

	go func() {
		defer close(out)
		count := 0
		for res := range s.fetcher.FetchMessages(ctx, channelID, minID, limit) {
			select {
			case out <- Item{Message: res.Message, Err: res.Err}:
			case <-ctx.Done():
				return
			}
			count++
			if progress != nil {
				progress(count)
			}
			if res.Err == nil && limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					return
				}
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
		}
	}()
	return out
}
