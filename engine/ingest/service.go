// Package ingest is the ingest service: the single- and
// batch-message entry points that compose the transformer, filter, and
// dedup window, and dispatch surviving documents to the search engine.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tgindex/core/engine/dedupwindow"
	"github.com/tgindex/core/engine/document"
	"github.com/tgindex/core/engine/filter"
	"github.com/tgindex/core/engine/simhash"
	"github.com/tgindex/core/pkg/metrics"
)

var tracer = otel.Tracer("engine/ingest")

// Outcome is the per-message result of IngestMessage.
type Outcome int

const (
	Indexed Outcome = iota
	Skipped
	Error
)

func (o Outcome) String() string {
	switch o {
	case Indexed:
		return "INDEXED"
	case Skipped:
		return "SKIPPED"
	default:
		return "ERROR"
	}
}

// EngineClient is the narrow surface the ingest service needs from the
// search engine client; satisfied by *engine/searchengine.Client.
type EngineClient interface {
	AddDocuments(ctx context.Context, docs []document.Document) error
}

// Service is the ingest service. Not internally thread-safe — it mutates
// the dedup window — callers must serialize ingest* calls; the crawler orchestrator owns that lock.
type Service struct {
	engine    EngineClient
	window    *dedupwindow.Window
	minLen    int
	mediaType func(document.MessageInput) string
	log       *slog.Logger
	metrics   *metrics.Registry
}

// Option configures a Service.
type Option func(*Service)

// WithMinLength overrides the filter's minimum text length.
func WithMinLength(n int) Option {
	return func(s *Service) { s.minLen = n }
}

// WithLogger overrides the service's logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithMetrics registers per-outcome ingest counters on reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(s *Service) { s.metrics = reg }
}

// New constructs an ingest service around engine and window.
func New(engine EngineClient, window *dedupwindow.Window, opts ...Option) *Service {
	s := &Service{
		engine: engine,
		window: window,
		minLen: filter.DefaultMinLength,
		mediaType: func(in document.MessageInput) string {
			return in.MediaType
		},
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// recordOutcome increments the counter for outcome, if metrics are wired.
func (s *Service) recordOutcome(outcome Outcome) {
	if s.metrics == nil {
		return
	}
	name := metrics.WithLabels("ingest_outcomes_total", "outcome", outcome.String())
	s.metrics.Counter(name, "total ingest results by outcome").Inc()
}

// IngestMessage runs the single-message pipeline: non-empty check →
// transform → filter → dedup-window check → addDocuments([doc]) → on
// success, push the fingerprint into the dedup window.
func (s *Service) IngestMessage(ctx context.Context, in document.MessageInput) Outcome {
	ctx, span := tracer.Start(ctx, "ingest.message")
	defer span.End()

	outcome := s.ingestMessage(ctx, in)
	span.SetAttributes(attribute.String("ingest.outcome", outcome.String()))
	s.recordOutcome(outcome)
	return outcome
}

func (s *Service) ingestMessage(ctx context.Context, in document.MessageInput) Outcome {
	if document.IsEmptyText(in.Text) {
		return Skipped
	}

	doc := document.Transform(in)

	if !filter.ApplyAll(doc, s.mediaType(in), s.minLen) {
		return Skipped
	}
	if s.window.Contains(doc.Simhash) {
		return Skipped
	}

	if err := s.engine.AddDocuments(ctx, []document.Document{doc}); err != nil {
		s.log.Error("ingest: addDocuments failed", "id", doc.ID, "error", err)
		return Error
	}

	s.window.Add(doc.Simhash)
	return Indexed
}

// IngestBatch runs the batch pipeline: each input passes the same
// per-message checks, additionally rejecting fingerprints that duplicate one
// already staged earlier in this batch (earlier entries win). Surviving
// documents are submitted in a single addDocuments call; on success all
// staged fingerprints are appended to the dedup window in order. On engine
// failure, no fingerprint is committed — the same documents must be
// re-submitted by a retry — and the result is 0 unless raiseOnError
// propagates the error.
func (s *Service) IngestBatch(ctx context.Context, inputs []document.MessageInput, raiseOnError bool) (int, error) {
	ctx, span := tracer.Start(ctx, "ingest.batch", trace.WithAttributes(attribute.Int("ingest.batch_input_size", len(inputs))))
	defer span.End()

	n, err := s.ingestBatch(ctx, inputs, raiseOnError)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.recordOutcome(Error)
		return n, err
	}
	span.SetAttributes(attribute.Int("ingest.batch_indexed", n))
	for i := 0; i < n; i++ {
		s.recordOutcome(Indexed)
	}
	for i := 0; i < len(inputs)-n; i++ {
		s.recordOutcome(Skipped)
	}
	return n, nil
}

func (s *Service) ingestBatch(ctx context.Context, inputs []document.MessageInput, raiseOnError bool) (int, error) {
	var (
		staged       []document.Document
		fingerprints []string
	)

	for _, in := range inputs {
		if document.IsEmptyText(in.Text) {
			continue
		}
		doc := document.Transform(in)
		if !filter.ApplyAll(doc, s.mediaType(in), s.minLen) {
			continue
		}
		if s.window.Contains(doc.Simhash) {
			continue
		}
		if stagedDuplicate(doc.Simhash, fingerprints) {
			continue
		}
		staged = append(staged, doc)
		fingerprints = append(fingerprints, doc.Simhash)
	}

	if len(staged) == 0 {
		return 0, nil
	}

	if err := s.engine.AddDocuments(ctx, staged); err != nil {
		s.log.Error("ingest: addDocuments batch failed", "batch_size", len(staged), "error", err)
		if raiseOnError {
			return 0, fmt.Errorf("ingest batch: %w", err)
		}
		return 0, nil
	}

	for _, fp := range fingerprints {
		s.window.Add(fp)
	}
	return len(staged), nil
}

// stagedDuplicate mirrors the dedup window's predicate over the batch
// staged so far: a later entry is rejected if it is a near-duplicate of any
// fingerprint already staged (earlier entries win).
func stagedDuplicate(h string, staged []string) bool {
	for _, s := range staged {
		if simhash.IsDuplicate(h, s, simhash.DefaultThreshold) {
			return true
		}
	}
	return false
}
