// Package realtime implements the realtime listener: it subscribes
// to new-message events restricted to a channel-id set and forwards
// non-empty messages to the ingest service, logging and swallowing any
// callback failure so the subscription keeps running.
package realtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tgindex/core/engine/chatclient"
	"github.com/tgindex/core/engine/document"
)

// IngestFunc is the ingest callback invoked per realtime message.
type IngestFunc func(ctx context.Context, in document.MessageInput) error

// Listener subscribes to chatclient.EventSource and drives IngestFunc.
type Listener struct {
	source chatclient.EventSource
	log    *slog.Logger
}

// New constructs a Listener over source.
func New(source chatclient.EventSource, log *slog.Logger) *Listener {
	if log == nil {
		log = slog.Default()
	}
	return &Listener{source: source, log: log}
}

// Run subscribes for channelIDs and blocks until ctx is cancelled or the
// source returns. Events with empty text are dropped before reaching
// ingestFn. A panic or error from ingestFn is logged and swallowed — the
// subscription is never torn down because of it.
func (l *Listener) Run(ctx context.Context, channelIDs []int64, ingestFn IngestFunc) error {
	if len(channelIDs) == 0 {
		l.log.Info("realtime: no enabled channels, nothing to subscribe to")
		return nil
	}

	return l.source.Subscribe(ctx, channelIDs, func(ctx context.Context, ev chatclient.NewMessageEvent) {
		if document.IsEmptyText(ev.Message.Text) {
			return
		}
		l.safeIngest(ctx, ingestFn, ev.Message)
	})
}

func (l *Listener) safeIngest(ctx context.Context, ingestFn IngestFunc, in document.MessageInput) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("realtime: ingest callback panicked", "error", fmt.Sprint(r), "chat_id", in.ChatID, "msg_id", in.MsgID)
		}
	}()
	if err := ingestFn(ctx, in); err != nil {
		l.log.Error("realtime: ingest callback failed", "error", err, "chat_id", in.ChatID, "msg_id", in.MsgID)
	}
}
