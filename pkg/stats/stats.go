// Package stats implements the search stats service: a Redis-backed
// total-search counter and a keyword frequency sorted set, surfaced through
// GetStats for the search HTTP API's /api/v1/stats route.
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	totalKey   = "stats:total_searches"
	keywordKey = "stats:keywords"
)

// backend is the narrow Redis surface the stats service needs.
type backend interface {
	Incr(ctx context.Context, key string) error
	ZIncrBy(ctx context.Context, key string, increment float64, member string) error
	ZRevRangeWithScores(ctx context.Context, key string, count int64) ([]KeywordScore, error)
	Get(ctx context.Context, key string) (int64, error)
}

type redisBackend struct {
	rdb *redis.Client
}

func (b redisBackend) Incr(ctx context.Context, key string) error {
	return b.rdb.Incr(ctx, key).Err()
}

func (b redisBackend) ZIncrBy(ctx context.Context, key string, increment float64, member string) error {
	return b.rdb.ZIncrBy(ctx, key, increment, member).Err()
}

func (b redisBackend) Get(ctx context.Context, key string) (int64, error) {
	n, err := b.rdb.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

func (b redisBackend) ZRevRangeWithScores(ctx context.Context, key string, count int64) ([]KeywordScore, error) {
	zs, err := b.rdb.ZRevRangeWithScores(ctx, key, 0, count-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]KeywordScore, 0, len(zs))
	for _, z := range zs {
		out = append(out, KeywordScore{Keyword: fmt.Sprintf("%v", z.Member), Score: z.Score})
	}
	return out, nil
}

// KeywordScore is one entry of GetStats's top-K result.
type KeywordScore struct {
	Keyword string  `json:"keyword"`
	Score   float64 `json:"score"`
}

// Stats is the aggregate returned by GetStats.
type Stats struct {
	TotalSearches int64          `json:"total_searches"`
	TopKeywords   []KeywordScore `json:"top_keywords"`
}

// Service is the stats service.
type Service struct {
	b   backend
	log *slog.Logger
}

// New constructs a Service over rdb.
func New(rdb *redis.Client) *Service {
	return &Service{b: redisBackend{rdb: rdb}, log: slog.Default()}
}

// RecordSearch increments the total counter and the keyword sorted set for
// every keyword in query, lowercased. Backend errors are logged and
// swallowed.
func (s *Service) RecordSearch(ctx context.Context, query string) {
	if err := s.b.Incr(ctx, totalKey); err != nil {
		s.log.Error("stats: incr total failed", "error", err)
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return
	}
	for _, kw := range strings.Fields(q) {
		if err := s.b.ZIncrBy(ctx, keywordKey, 1, kw); err != nil {
			s.log.Error("stats: zincrby failed", "keyword", kw, "error", err)
		}
	}
}

// GetStats returns the total search count and the top-K keywords by score.
// Backend errors are logged and result in zero-valued fields rather than
// propagating.
func (s *Service) GetStats(ctx context.Context, topK int64) Stats {
	total, err := s.b.Get(ctx, totalKey)
	if err != nil {
		s.log.Error("stats: get total failed", "error", err)
	}
	top, err := s.b.ZRevRangeWithScores(ctx, keywordKey, topK)
	if err != nil {
		s.log.Error("stats: zrevrange failed", "error", err)
		top = nil
	}
	return Stats{TotalSearches: total, TopKeywords: top}
}
