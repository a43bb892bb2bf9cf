// Package search implements the search service: request
// normalization, query parsing, cache-key derivation, and cache-aside
// dispatch to the engine client.
package search

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tgindex/core/engine/query"
	"github.com/tgindex/core/engine/searchengine"
	"github.com/tgindex/core/pkg/cache"
	"github.com/tgindex/core/pkg/metrics"
)

var tracer = otel.Tracer("engine/search")

// DefaultLimit and MaxLimit bound the result page size.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Request is a search call as issued by the HTTP API.
type Request struct {
	Query    string
	Limit    int64
	Offset   int64
	Filter   string // caller-supplied extra filter clause, ANDed in after parsed filters
	Sort     string // "date", "relevance", or empty (defer to parsed query)
	UseCache bool
}

// Engine is the narrow surface the search service needs from the engine
// client; satisfied by *engine/searchengine.Client.
type Engine interface {
	Search(ctx context.Context, p searchengine.SearchParams) (*searchengine.SearchResult, error)
}

// Service is the search service. It owns its cache and engine client for
// the lifetime of the process.
type Service struct {
	engine  Engine
	cache   *cache.Cache
	metrics *metrics.Registry
	latency *metrics.Histogram
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records a search latency histogram on reg. Cache hits and
// misses are not counted.
func WithMetrics(reg *metrics.Registry) Option {
	return func(s *Service) { s.metrics = reg }
}

// New constructs a Service over engine and cache.
func New(engine Engine, c *cache.Cache, opts ...Option) *Service {
	s := &Service{engine: engine, cache: c}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics != nil {
		s.latency = s.metrics.Histogram("search_request_duration_seconds", "search dispatch latency", nil)
	}
	return s
}

// Search normalizes req, parses the query, derives the cache key, and
// dispatches through the cache-aside path when UseCache is set.
// Returns the engine's raw result verbatim.
func (s *Service) Search(ctx context.Context, req Request) (*searchengine.SearchResult, error) {
	ctx, span := tracer.Start(ctx, "search.dispatch", trace.WithAttributes(
		attribute.Bool("search.use_cache", req.UseCache),
	))
	defer span.End()

	start := time.Now()
	result, err := s.search(ctx, req)
	if s.latency != nil {
		s.latency.Since(start)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}

func (s *Service) search(ctx context.Context, req Request) (*searchengine.SearchResult, error) {
	req = normalize(req)
	parsed := query.Parse(req.Query)

	searchQuery := strings.Join(parsed.Keywords, " ")

	filters := append([]string(nil), parsed.Filters...)
	if req.Filter != "" {
		filters = append(filters, req.Filter)
	}

	sortDirectives := resolveSort(req.Sort, parsed.Sort)

	params := searchengine.SearchParams{
		Query:   searchQuery,
		Limit:   req.Limit,
		Offset:  req.Offset,
		Filters: filters,
		Sort:    sortDirectives,
	}

	compute := func() (*searchengine.SearchResult, error) {
		return s.engine.Search(ctx, params)
	}

	if !req.UseCache {
		return compute()
	}

	key := cacheKey(searchQuery, req.Limit, req.Offset, sortDirectives, filters)
	return cache.GetOrCompute(ctx, s.cache, key, compute)
}

// normalize applies limit/offset/query normalization.
func normalize(req Request) Request {
	req.Query = strings.TrimSpace(req.Query)
	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}
	if req.Limit > MaxLimit {
		req.Limit = MaxLimit
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	return req
}

// resolveSort picks the effective sort directive list: an explicit caller
// sort wins over the parsed query's sort: token. Both speak the same small
// enum ("date" or "relevance") as the HTTP API's sort= parameter, so both
// are translated through the same mapping.
func resolveSort(callerSort, parsedSort string) []string {
	effective := callerSort
	if effective == "" {
		effective = parsedSort
	}
	switch effective {
	case "date":
		return []string{"date:desc"}
	default:
		return nil
	}
}

// cacheKey fingerprints the resolved dispatch parameters. The filter list is
// sorted before hashing so semantically equal queries always share a key.
func cacheKey(searchQuery string, limit, offset int64, sortDirectives, filters []string) string {
	sorted := append([]string(nil), filters...)
	sort.Strings(sorted)

	return cache.Key(searchQuery, map[string]any{
		"limit":   limit,
		"offset":  offset,
		"sort":    strings.Join(sortDirectives, ","),
		"filters": strings.Join(sorted, "|"),
	})
}
