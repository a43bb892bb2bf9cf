package chatclient

import (
	"context"
	"sort"

	"github.com/tgindex/core/engine/document"
)

// Fake is an in-memory MessageFetcher and EventSource backing the core's
// tests; it also doubles as a minimal usage example for a real adapter.
type Fake struct {
	// Messages maps channel id to its full history, any order.
	Messages map[int64][]document.MessageInput
}

// NewFake returns an empty Fake.
func NewFake() *Fake {
	return &Fake{Messages: make(map[int64][]document.MessageInput)}
}

// Add appends a message to channelID's history. msg.ChatID is set to
// channelID regardless of its current value.
func (f *Fake) Add(channelID int64, msg document.MessageInput) {
	msg.ChatID = channelID
	f.Messages[channelID] = append(f.Messages[channelID], msg)
}

// FetchMessages implements MessageFetcher: returns items with msg_id >
// minID in ascending order, capped at limit.
func (f *Fake) FetchMessages(ctx context.Context, channelID int64, minID int64, limit int) <-chan FetchResult {
	out := make(chan FetchResult)
	items := append([]document.MessageInput(nil), f.Messages[channelID]...)
	sort.Slice(items, func(i, j int) bool { return items[i].MsgID < items[j].MsgID })

	go func() {
		defer close(out)
		sent := 0
		for _, item := range items {
			if sent >= limit {
				return
			}
			if item.MsgID <= minID {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case out <- FetchResult{Message: item}:
				sent++
			}
		}
	}()
	return out
}

// Subscribe implements EventSource by blocking until ctx is cancelled; it
// carries no built-in event source. Tests that need to drive realtime
// events synthetically should call the listener's handler directly instead
// of going through Subscribe.
func (f *Fake) Subscribe(ctx context.Context, channelIDs []int64, handler func(context.Context, NewMessageEvent)) error {
	<-ctx.Done()
	return ctx.Err()
}
