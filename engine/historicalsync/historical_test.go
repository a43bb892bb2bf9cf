package historicalsync

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/tgindex/core/engine/chatclient"
	"github.com/tgindex/core/engine/document"
	"github.com/tgindex/core/engine/state"
)

func newStore(t *testing.T) *state.Store {
	t.Helper()
	s, err := state.Open(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSyncChannelStartsAboveCheckpoint(t *testing.T) {
	f := chatclient.NewFake()
	for i := int64(1); i <= 5; i++ {
		f.Add(1, document.MessageInput{MsgID: i, Text: "x"})
	}
	store := newStore(t)
	store.Set(1, 2)

	s := New(f, store)
	var got []int64
	for item := range s.SyncChannel(context.Background(), 1, 10, 0, nil) {
		got = append(got, item.Message.MsgID)
	}
	if len(got) != 3 || got[0] != 3 || got[2] != 5 {
		t.Fatalf("expected [3 4 5], got %v", got)
	}
}

func TestSyncChannelDoesNotMutateCheckpoint(t *testing.T) {
	f := chatclient.NewFake()
	f.Add(1, document.MessageInput{MsgID: 10, Text: "x"})
	store := newStore(t)

	s := New(f, store)
	for range s.SyncChannel(context.Background(), 1, 10, 0, nil) {
	}
	if got := store.Get(1); got != 0 {
		t.Fatalf("expected checkpoint untouched, got %d", got)
	}
}

func TestSyncChannelProgressCallback(t *testing.T) {
	f := chatclient.NewFake()
	for i := int64(1); i <= 3; i++ {
		f.Add(1, document.MessageInput{MsgID: i, Text: "x"})
	}
	store := newStore(t)
	s := New(f, store)

	var counts []int
	for range s.SyncChannel(context.Background(), 1, 10, 0, func(c int) { counts = append(counts, c) }) {
	}
	if len(counts) != 3 || counts[2] != 3 {
		t.Fatalf("expected progress [1 2 3], got %v", counts)
	}
}

func TestSyncChannelRateLimitDelay(t *testing.T) {
	f := chatclient.NewFake()
	f.Add(1, document.MessageInput{MsgID: 1, Text: "x"})
	f.Add(1, document.MessageInput{MsgID: 2, Text: "x"})
	store := newStore(t)
	s := New(f, store)

	start := time.Now()
	for range s.SyncChannel(context.Background(), 1, 10, 20*time.Millisecond, nil) {
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Fatal("expected rate limit delay to have elapsed")
	}
}

func TestSyncChannelRespectsLimit(t *testing.T) {
	f := chatclient.NewFake()
	for i := int64(1); i <= 10; i++ {
		f.Add(1, document.MessageInput{MsgID: i, Text: "x"})
	}
	store := newStore(t)
	s := New(f, store)

	var count int
	for range s.SyncChannel(context.Background(), 1, 3, 0, nil) {
		count++
	}
	if count != 3 {
		t.Fatalf("expected 3, got %d", count)
	}
}

func TestSyncChannelCancellation(t *testing.T) {
	f := chatclient.NewFake()
	for i := int64(1); i <= 100; i++ {
		f.Add(1, document.MessageInput{MsgID: i, Text: "x"})
	}
	store := newStore(t)
	s := New(f, store)

	ctx, cancel := context.WithCancel(context.Background())
	ch := s.SyncChannel(ctx, 1, 100, 0, nil)
	<-ch
	cancel()
	for range ch {
		// must terminate
	}
}
