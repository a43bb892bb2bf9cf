// Package searchengine is the thin retry-with-exponential-backoff wrapper
// over the external search engine's add/search primitives. The
// underlying client is Meilisearch; this package owns only retry, timeout,
// and the generic operation shapes the rest of the core depends on.
package searchengine

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/meilisearch/meilisearch-go"
	"github.com/tgindex/core/engine/document"
	"github.com/tgindex/core/pkg/fn"
	"github.com/tgindex/core/pkg/resilience"
)

var tracer = otel.Tracer("engine/searchengine")

// Config configures the engine client.
type Config struct {
	Host       string
	APIKey     string
	IndexName  string
	Timeout    time.Duration
	MaxRetries int
}

// SearchResult mirrors the engine's raw result shape, returned verbatim by
// Search.
type SearchResult struct {
	Hits             []map[string]any `json:"hits"`
	EstimatedTotal   int64            `json:"estimatedTotalHits"`
	Limit            int64            `json:"limit"`
	Offset           int64            `json:"offset"`
	ProcessingTimeMs int64            `json:"processingTimeMs"`
}

// SearchParams are the parameters to a query, already resolved by the
// search service (query string, sort directives, filter expressions).
type SearchParams struct {
	Query   string
	Limit   int64
	Offset  int64
	Filters []string
	Sort    []string
}

// backend is the minimal surface Client needs from an index, kept narrow so
// tests can supply a fake without modeling the entire Meilisearch SDK.
type backend interface {
	CreateIndex(uid, primaryKey string) error
	UpdateSettings(settings *meilisearch.Settings) error
	AddDocuments(docs []document.Document) error
	Search(query string, req *meilisearch.SearchRequest) (*meilisearch.SearchResponse, error)
}

// meiliBackend adapts the real SDK to backend.
type meiliBackend struct {
	raw   meilisearch.ServiceManager
	index meilisearch.IndexManager
}

func (m *meiliBackend) CreateIndex(uid, primaryKey string) error {
	_, err := m.raw.CreateIndex(&meilisearch.IndexConfig{Uid: uid, PrimaryKey: primaryKey})
	return err
}

func (m *meiliBackend) UpdateSettings(settings *meilisearch.Settings) error {
	_, err := m.index.UpdateSettings(settings)
	return err
}

func (m *meiliBackend) AddDocuments(docs []document.Document) error {
	_, err := m.index.AddDocuments(docs, nil)
	return err
}

func (m *meiliBackend) Search(query string, req *meilisearch.SearchRequest) (*meilisearch.SearchResponse, error) {
	return m.index.Search(query, req)
}

// Client wraps an index backend with the generic retry decorator and a
// circuit breaker that trips after repeated exhausted-retry failures, so a
// sustained engine outage stops burning retry budget on every call.
type Client struct {
	cfg     Config
	b       backend
	breaker *resilience.Breaker
}

// New constructs an engine client bound to cfg.IndexName.
func New(cfg Config) *Client {
	cfg = withDefaults(cfg)
	raw := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:    cfg.Host,
		APIKey:  cfg.APIKey,
		Timeout: cfg.Timeout,
	})
	return &Client{
		cfg:     cfg,
		b:       &meiliBackend{raw: raw, index: raw.Index(cfg.IndexName)},
		breaker: resilience.NewBreaker(resilience.DefaultBreakerOpts),
	}
}

func withDefaults(cfg Config) Config {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return cfg
}

// retryOpts implements backoff exactly: sleep 2^attempt * 100ms
// between attempts, up to max_retries, no jitter.
func (c *Client) retryOpts() fn.RetryOpts {
	return fn.RetryOpts{
		MaxAttempts: c.cfg.MaxRetries,
		InitialWait: 100 * time.Millisecond,
		MaxWait:     time.Hour, // doubling only caps at max_retries, not at a wall-clock ceiling
		Jitter:      false,
	}
}

// CreateIndex creates the bound index with "id" as its primary key.
func (c *Client) CreateIndex(ctx context.Context) error {
	return c.retryVoid(ctx, "createIndex", func() error {
		return c.b.CreateIndex(c.cfg.IndexName, "id")
	})
}

// ConfigureIndex pushes index settings (searchable/filterable/sortable
// attributes and the like).
func (c *Client) ConfigureIndex(ctx context.Context, settings *meilisearch.Settings) error {
	return c.retryVoid(ctx, "configureIndex", func() error {
		return c.b.UpdateSettings(settings)
	})
}

// AddDocuments indexes docs. A no-op for an empty slice.
func (c *Client) AddDocuments(ctx context.Context, docs []document.Document) error {
	if len(docs) == 0 {
		return nil
	}
	return c.retryVoid(ctx, "addDocuments", func() error {
		return c.b.AddDocuments(docs)
	})
}

// retryVoid wraps f in a client-kind span named searchengine.<op>, then runs
// it through the breaker and retry decorator.
func (c *Client) retryVoid(ctx context.Context, op string, f func() error) error {
	ctx, span := tracer.Start(ctx, "searchengine."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("searchengine.index", c.cfg.IndexName)),
	)
	defer span.End()

	err := c.breaker.Call(ctx, func(ctx context.Context) error {
		r := fn.Retry(ctx, c.retryOpts(), func(context.Context) fn.Result[struct{}] {
			return fn.FromPair(struct{}{}, f())
		})
		_, err := r.Unwrap()
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// Search executes a query with retry and returns the engine's raw result.
func (c *Client) Search(ctx context.Context, p SearchParams) (*SearchResult, error) {
	ctx, span := tracer.Start(ctx, "searchengine.search",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("searchengine.index", c.cfg.IndexName),
			attribute.Int64("searchengine.limit", p.Limit),
			attribute.Int64("searchengine.offset", p.Offset),
		),
	)
	defer span.End()

	req := &meilisearch.SearchRequest{
		Limit:  p.Limit,
		Offset: p.Offset,
		Sort:   p.Sort,
	}
	if len(p.Filters) > 0 {
		req.Filter = joinFilters(p.Filters)
	}

	r := resilience.CallResult(c.breaker, ctx, func(ctx context.Context) fn.Result[*meilisearch.SearchResponse] {
		return fn.Retry(ctx, c.retryOpts(), func(context.Context) fn.Result[*meilisearch.SearchResponse] {
			resp, err := c.b.Search(p.Query, req)
			return fn.FromPair(resp, err)
		})
	})
	resp, err := r.Unwrap()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("searchengine: search: %w", err)
	}

	hits := make([]map[string]any, 0, len(resp.Hits))
	for _, h := range resp.Hits {
		if m, ok := h.(map[string]any); ok {
			hits = append(hits, m)
		}
	}
	return &SearchResult{
		Hits:             hits,
		EstimatedTotal:   resp.EstimatedTotalHits,
		Limit:            resp.Limit,
		Offset:           resp.Offset,
		ProcessingTimeMs: resp.ProcessingTimeMs,
	}, nil
}

func joinFilters(filters []string) string {
	out := filters[0]
	for _, f := range filters[1:] {
		out += " AND " + f
	}
	return out
}
