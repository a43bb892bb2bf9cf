package stats

import (
	"context"
	"errors"
	"log/slog"
	"testing"
)

type fakeBackend struct {
	total    int64
	keywords map[string]float64
	incrErr  error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{keywords: make(map[string]float64)}
}

func (f *fakeBackend) Incr(ctx context.Context, key string) error {
	if f.incrErr != nil {
		return f.incrErr
	}
	f.total++
	return nil
}

func (f *fakeBackend) ZIncrBy(ctx context.Context, key string, increment float64, member string) error {
	f.keywords[member] += increment
	return nil
}

func (f *fakeBackend) Get(ctx context.Context, key string) (int64, error) {
	return f.total, nil
}

func (f *fakeBackend) ZRevRangeWithScores(ctx context.Context, key string, count int64) ([]KeywordScore, error) {
	var out []KeywordScore
	for k, v := range f.keywords {
		out = append(out, KeywordScore{Keyword: k, Score: v})
	}
	if int64(len(out)) > count {
		out = out[:count]
	}
	return out, nil
}

func newTestService(b backend) *Service {
	return &Service{b: b, log: slog.Default()}
}

func TestRecordSearchIncrementsTotalAndKeywords(t *testing.T) {
	b := newFakeBackend()
	s := newTestService(b)

	s.RecordSearch(context.Background(), "Hello World")
	s.RecordSearch(context.Background(), "hello there")

	if b.total != 2 {
		t.Fatalf("expected total 2, got %d", b.total)
	}
	if b.keywords["hello"] != 2 {
		t.Fatalf("expected hello counted twice, got %v", b.keywords["hello"])
	}
	if b.keywords["world"] != 1 {
		t.Fatalf("expected world counted once, got %v", b.keywords["world"])
	}
}

func TestRecordSearchEmptyQuerySkipsKeywords(t *testing.T) {
	b := newFakeBackend()
	s := newTestService(b)

	s.RecordSearch(context.Background(), "   ")
	if b.total != 1 {
		t.Fatalf("expected total still incremented, got %d", b.total)
	}
	if len(b.keywords) != 0 {
		t.Fatalf("expected no keywords recorded, got %v", b.keywords)
	}
}

func TestGetStatsReturnsTotalAndTopKeywords(t *testing.T) {
	b := newFakeBackend()
	s := newTestService(b)
	s.RecordSearch(context.Background(), "alpha beta")

	stats := s.GetStats(context.Background(), 10)
	if stats.TotalSearches != 1 {
		t.Fatalf("expected total 1, got %d", stats.TotalSearches)
	}
	if len(stats.TopKeywords) != 2 {
		t.Fatalf("expected 2 keywords, got %v", stats.TopKeywords)
	}
}

func TestRecordSearchBackendErrorSwallowed(t *testing.T) {
	b := newFakeBackend()
	b.incrErr = errors.New("connection refused")
	s := newTestService(b)

	s.RecordSearch(context.Background(), "hello")
}
