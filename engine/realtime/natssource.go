package realtime

import (
	"context"

	"github.com/nats-io/nats.go"
	"github.com/tgindex/core/engine/chatclient"
	"github.com/tgindex/core/pkg/natsutil"
)

// DefaultSubject is the NATS subject the chat gateway publishes
// NewMessageEvent on.
const DefaultSubject = "tg.messages.new"

// NATSSource implements chatclient.EventSource over a NATS connection using
// pkg/natsutil's typed Subscribe helper. Filtering to the requested channel
// set happens in the handler since NATS subjects are not channel-scoped.
type NATSSource struct {
	conn    *nats.Conn
	subject string
}

// NewNATSSource constructs a NATSSource subscribing to subject. An empty
// subject defaults to DefaultSubject.
func NewNATSSource(conn *nats.Conn, subject string) *NATSSource {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSSource{conn: conn, subject: subject}
}

// Subscribe implements chatclient.EventSource: blocks until ctx is
// cancelled, invoking handler for every NewMessageEvent whose ChatID is in
// channelIDs.
func (s *NATSSource) Subscribe(ctx context.Context, channelIDs []int64, handler func(context.Context, chatclient.NewMessageEvent)) error {
	want := make(map[int64]struct{}, len(channelIDs))
	for _, id := range channelIDs {
		want[id] = struct{}{}
	}

	sub, err := natsutil.Subscribe(s.conn, s.subject, func(ctx context.Context, ev chatclient.NewMessageEvent) {
		if _, ok := want[ev.Message.ChatID]; !ok {
			return
		}
		handler(ctx, ev)
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	<-ctx.Done()
	return ctx.Err()
}
