package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/tgindex/core/engine/dedupwindow"
	"github.com/tgindex/core/engine/document"
)

type fakeEngine struct {
	calls     [][]document.Document
	failNext  bool
	failCount int
}

func (f *fakeEngine) AddDocuments(_ context.Context, docs []document.Document) error {
	if f.failNext && f.failCount > 0 {
		f.failCount--
		return errors.New("engine down")
	}
	f.calls = append(f.calls, docs)
	return nil
}

func newService(engine EngineClient) *Service {
	return New(engine, dedupwindow.New(100, 3))
}

// S1 – Batch with intra-batch duplicate.
func TestIngestBatch_IntraBatchDuplicate(t *testing.T) {
	fe := &fakeEngine{}
	svc := newService(fe)

	inputs := []document.MessageInput{
		{ChatID: 1, MsgID: 1, Text: "First unique message"},
		{ChatID: 1, MsgID: 2, Text: "First unique message"},
		{ChatID: 1, MsgID: 3, Text: "Second unique message"},
		{ChatID: 1, MsgID: 4, Text: "Hi"}, // too short, filtered
	}

	count, err := svc.IngestBatch(context.Background(), inputs, false)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}
	if len(fe.calls) != 1 {
		t.Fatalf("expected exactly one addDocuments call, got %d", len(fe.calls))
	}
	got := fe.calls[0]
	if len(got) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(got))
	}
	if got[0].MsgID != 1 || got[1].MsgID != 3 {
		t.Fatalf("expected msg_id 1 then 3 in original order, got %d then %d", got[0].MsgID, got[1].MsgID)
	}
}

// S2 – Cross-batch dedup.
func TestIngestBatch_CrossBatchDedup(t *testing.T) {
	fe := &fakeEngine{}
	svc := newService(fe)

	outcome := svc.IngestMessage(context.Background(), document.MessageInput{ChatID: 1, MsgID: 0, Text: "Old message content"})
	if outcome != Indexed {
		t.Fatalf("expected INDEXED, got %v", outcome)
	}

	count, err := svc.IngestBatch(context.Background(), []document.MessageInput{
		{ChatID: 1, MsgID: 1, Text: "Old message content"},
		{ChatID: 1, MsgID: 2, Text: "New message content"},
	}, false)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected count 1, got %d", count)
	}
	if len(fe.calls) != 2 {
		t.Fatalf("expected 2 total addDocuments calls, got %d", len(fe.calls))
	}
	second := fe.calls[1]
	if len(second) != 1 || second[0].MsgID != 2 {
		t.Fatalf("expected single msg_id 2, got %v", second)
	}
}

// S3 – Engine failure rollback.
func TestIngestBatch_EngineFailureRollback(t *testing.T) {
	fe := &fakeEngine{failNext: true, failCount: 1}
	svc := newService(fe)

	inputs := []document.MessageInput{
		{ChatID: 1, MsgID: 1, Text: "First unique message"},
		{ChatID: 1, MsgID: 2, Text: "First unique message"},
		{ChatID: 1, MsgID: 3, Text: "Second unique message"},
		{ChatID: 1, MsgID: 4, Text: "Hi"},
	}

	count, err := svc.IngestBatch(context.Background(), inputs, false)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("expected count 0 on engine failure, got %d", count)
	}
	if svc.window.Len() != 0 {
		t.Fatalf("expected dedup window unchanged, got %d entries", svc.window.Len())
	}

	// Retry with a working engine: should produce count=2.
	count, err = svc.IngestBatch(context.Background(), inputs, false)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("expected retry to produce count 2, got %d", count)
	}
}

func TestIngestBatch_RaiseOnErrorPropagates(t *testing.T) {
	fe := &fakeEngine{failNext: true, failCount: 1}
	svc := newService(fe)

	_, err := svc.IngestBatch(context.Background(), []document.MessageInput{
		{ChatID: 1, MsgID: 1, Text: "a reasonably long message"},
	}, true)
	if err == nil {
		t.Fatal("expected error to propagate with raiseOnError")
	}
}

func TestIngestBatch_EmptyInputsIsNoOp(t *testing.T) {
	fe := &fakeEngine{}
	svc := newService(fe)
	count, err := svc.IngestBatch(context.Background(), nil, false)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("expected 0, got %d", count)
	}
	if len(fe.calls) != 0 {
		t.Fatalf("expected no addDocuments call, got %d", len(fe.calls))
	}
}

func TestIngestMessage_SkippedOnEmptyText(t *testing.T) {
	fe := &fakeEngine{}
	svc := newService(fe)
	if outcome := svc.IngestMessage(context.Background(), document.MessageInput{ChatID: 1, MsgID: 1, Text: "   "}); outcome != Skipped {
		t.Fatalf("expected SKIPPED, got %v", outcome)
	}
}

func TestIngestMessage_ErrorOnEngineFailure(t *testing.T) {
	fe := &fakeEngine{failNext: true, failCount: 1}
	svc := newService(fe)
	if outcome := svc.IngestMessage(context.Background(), document.MessageInput{ChatID: 1, MsgID: 1, Text: "a reasonably long message"}); outcome != Error {
		t.Fatalf("expected ERROR, got %v", outcome)
	}
}
