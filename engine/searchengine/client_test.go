package searchengine

import (
	"context"
	"errors"
	"testing"

	"github.com/meilisearch/meilisearch-go"
	"github.com/tgindex/core/engine/document"
	"github.com/tgindex/core/pkg/resilience"
)

type fakeBackend struct {
	addCalls     int
	failAddUntil int // AddDocuments fails for the first N calls
	searchResp   *meilisearch.SearchResponse
	searchErr    error
	lastReq      *meilisearch.SearchRequest
	lastQuery    string
}

func (f *fakeBackend) CreateIndex(uid, primaryKey string) error { return nil }
func (f *fakeBackend) UpdateSettings(*meilisearch.Settings) error { return nil }

func (f *fakeBackend) AddDocuments(docs []document.Document) error {
	f.addCalls++
	if f.addCalls <= f.failAddUntil {
		return errors.New("engine unavailable")
	}
	return nil
}

func (f *fakeBackend) Search(query string, req *meilisearch.SearchRequest) (*meilisearch.SearchResponse, error) {
	f.lastQuery = query
	f.lastReq = req
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchResp, nil
}

func newTestClient(b backend) *Client {
	return &Client{
		cfg:     withDefaults(Config{IndexName: "messages", MaxRetries: 3}),
		b:       b,
		breaker: resilience.NewBreaker(resilience.DefaultBreakerOpts),
	}
}

func TestAddDocumentsEmptyIsNoOp(t *testing.T) {
	fb := &fakeBackend{}
	c := newTestClient(fb)
	if err := c.AddDocuments(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if fb.addCalls != 0 {
		t.Fatalf("expected no backend call, got %d", fb.addCalls)
	}
}

func TestAddDocumentsRetriesThenSucceeds(t *testing.T) {
	fb := &fakeBackend{failAddUntil: 2}
	c := newTestClient(fb)
	docs := []document.Document{document.Transform(document.MessageInput{ChatID: 1, MsgID: 1, Text: "hi there"})}
	if err := c.AddDocuments(context.Background(), docs); err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if fb.addCalls != 3 {
		t.Fatalf("expected 3 attempts, got %d", fb.addCalls)
	}
}

func TestAddDocumentsExhaustsRetries(t *testing.T) {
	fb := &fakeBackend{failAddUntil: 99}
	c := newTestClient(fb)
	docs := []document.Document{document.Transform(document.MessageInput{ChatID: 1, MsgID: 1, Text: "hi there"})}
	if err := c.AddDocuments(context.Background(), docs); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if fb.addCalls != 3 {
		t.Fatalf("expected MaxRetries attempts, got %d", fb.addCalls)
	}
}

func TestSearchReturnsRawResultVerbatim(t *testing.T) {
	fb := &fakeBackend{
		searchResp: &meilisearch.SearchResponse{
			Hits:               []any{map[string]any{"id": "1_1"}},
			EstimatedTotalHits: 1,
			Limit:              20,
			Offset:             0,
		},
	}
	c := newTestClient(fb)
	res, err := c.Search(context.Background(), SearchParams{Query: "AI", Limit: 20})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Hits) != 1 || res.Hits[0]["id"] != "1_1" {
		t.Fatalf("unexpected hits: %v", res.Hits)
	}
	if fb.lastQuery != "AI" {
		t.Fatalf("expected query passthrough, got %q", fb.lastQuery)
	}
}

func TestSearchJoinsFilters(t *testing.T) {
	fb := &fakeBackend{searchResp: &meilisearch.SearchResponse{}}
	c := newTestClient(fb)
	_, err := c.Search(context.Background(), SearchParams{
		Query:   "AI",
		Filters: []string{`date >= 1`, `chat_username = "news"`},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := `date >= 1 AND chat_username = "news"`
	if fb.lastReq.Filter != want {
		t.Fatalf("got %q, want %q", fb.lastReq.Filter, want)
	}
}

func TestAddDocumentsTripsBreakerAfterRepeatedOutages(t *testing.T) {
	fb := &fakeBackend{failAddUntil: 9999}
	c := newTestClient(fb)
	docs := []document.Document{document.Transform(document.MessageInput{ChatID: 1, MsgID: 1, Text: "hi there"})}

	for i := 0; i < resilience.DefaultBreakerOpts.FailThreshold; i++ {
		if err := c.AddDocuments(context.Background(), docs); err == nil {
			t.Fatal("expected failure while backend is down")
		}
	}

	callsBeforeTrip := fb.addCalls
	if err := c.AddDocuments(context.Background(), docs); err != resilience.ErrCircuitOpen {
		t.Fatalf("expected circuit open error, got %v", err)
	}
	if fb.addCalls != callsBeforeTrip {
		t.Fatalf("expected breaker to short-circuit without calling backend, calls went from %d to %d", callsBeforeTrip, fb.addCalls)
	}
}
