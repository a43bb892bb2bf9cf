// Package chatclient defines the interfaces the core consumes from the chat
// transport. A production adapter
// (session management, flood-wait handling, MTProto transport) is an
// external wiring concern; this package only specifies the boundary.
package chatclient

import (
	"context"

	"github.com/tgindex/core/engine/document"
)

// FetchResult is one item from a historical fetch, carrying either a
// message or a terminal error for that step.
type FetchResult struct {
	Message document.MessageInput
	Err     error
}

// MessageFetcher drives a channel's message history. Direction is always
// chronological (oldest-first): implementations yield messages with
// msg_id > minID in ascending order, stopping after limit items or when
// exhausted. The returned channel is closed when the fetch completes or ctx
// is cancelled.
type MessageFetcher interface {
	FetchMessages(ctx context.Context, channelID int64, minID int64, limit int) <-chan FetchResult
}

// FloodWaiter exposes the transient flood-wait signal: a blocking pause for
// the interval the chat service advises. No package in this module calls
// it; engine/historicalsync forwards every fetch error unchanged, and the
// crawler orchestrator stops that channel's sync on the first one.
type FloodWaiter interface {
	// Wait blocks for the advised duration or until ctx is cancelled.
	Wait(ctx context.Context, seconds float64) error
}

// NewMessageEvent is a realtime new-message notification as published by
// the chat gateway on the event-subscription facility.
type NewMessageEvent struct {
	Message document.MessageInput
}

// EventSource is the event-subscription facility consumed by the realtime
// listener.
type EventSource interface {
	// Subscribe registers handler for new-message events restricted to
	// channelIDs. Subscribe blocks until ctx is cancelled.
	Subscribe(ctx context.Context, channelIDs []int64, handler func(context.Context, NewMessageEvent)) error
}
