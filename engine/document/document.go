// Package document defines the ingest pipeline's data model (the message
// input record and the indexable document it transforms into) and the
// transformer that composes text normalization and deduper fingerprinting
// into a canonical document.
package document

import (
	"fmt"
	"strings"

	"github.com/tgindex/core/engine/simhash"
	"github.com/tgindex/core/engine/textproc"
)

// MessageInput is a raw message record as handed to the ingest pipeline by
// a producer (historical sync or realtime listener). Producers guarantee no
// ordering; the core tolerates out-of-order arrival within a batch.
type MessageInput struct {
	ChatID      int64
	MsgID       int64
	Text        string
	Date        int64 // Unix seconds
	ChatTitle   string
	ChatUsername string
	URL         string
	MediaType   string
}

// Document is the canonical indexable document produced by Transform.
type Document struct {
	ID       string `json:"id"`
	ChatID   int64  `json:"chat_id"`
	MsgID    int64  `json:"msg_id"`
	Date     int64  `json:"date"`
	Text     string `json:"text"`
	TextNorm string `json:"text_norm"`
	Simp     string `json:"simp"`
	Trad     string `json:"trad"`
	Pinyin   string `json:"pinyin"`
	Simhash  string `json:"simhash"`
	URL      string `json:"url,omitempty"`
}

// Transform composes the normalizer and deduper into a canonical document.
// Pure: no I/O, never fails on valid text. Malformed dates are the caller's
// responsibility; Transform assumes a well-formed input.
func Transform(in MessageInput) Document {
	textNorm := textproc.Normalize(in.Text)
	simp := textproc.ToSimplified(textNorm)
	trad := textproc.ToTraditional(textNorm)

	return Document{
		ID:       fmt.Sprintf("%d_%d", in.ChatID, in.MsgID),
		ChatID:   in.ChatID,
		MsgID:    in.MsgID,
		Date:     in.Date,
		Text:     in.Text,
		TextNorm: textNorm,
		Simp:     simp,
		Trad:     trad,
		Pinyin:   textproc.ToPinyin(simp),
		Simhash:  simhash.Compute(textNorm),
		URL:      resolveURL(in),
	}
}

// resolveURL synthesizes a t.me permalink when absent and a chat username is
// known; otherwise it passes the input URL through unchanged (possibly
// empty).
func resolveURL(in MessageInput) string {
	if in.URL != "" {
		return in.URL
	}
	if in.ChatUsername != "" {
		return fmt.Sprintf("https://t.me/%s/%d", in.ChatUsername, in.MsgID)
	}
	return ""
}

// IsEmptyText reports whether s is empty or all-whitespace.
func IsEmptyText(s string) bool {
	return strings.TrimSpace(s) == ""
}
