// Package filter implements the boolean predicates a transformed document
// must satisfy before it is eligible for indexing.
package filter

import (
	"strings"
	"unicode/utf8"

	"github.com/tgindex/core/engine/document"
)

// DefaultMinLength is the minimum trimmed-text length a document must meet.
const DefaultMinLength = 5

// serviceMediaType is a vestigial media-type sentinel: never produced by
// the bundled producers, but honored here in case an upstream producer
// sets it.
const serviceMediaType = "service"

// NonEmpty reports whether the document has non-blank text.
func NonEmpty(doc document.Document) bool {
	return !document.IsEmptyText(doc.Text)
}

// NotService reports whether the document is not a chat "service message".
func NotService(doc document.Document, mediaType string) bool {
	return mediaType != serviceMediaType
}

// MinLength reports whether the trimmed text is at least minLen runes long.
// Counted in runes, not bytes, so multi-byte CJK text isn't penalized
// relative to Latin text of the same character count.
func MinLength(doc document.Document, minLen int) bool {
	return utf8.RuneCountInString(strings.TrimSpace(doc.Text)) >= minLen
}

// ApplyAll reports whether doc passes all three predicates. mediaType is
// carried separately from Document because it is not part of the indexable
// schema but is available on the originating MessageInput.
func ApplyAll(doc document.Document, mediaType string, minLen int) bool {
	if minLen <= 0 {
		minLen = DefaultMinLength
	}
	return NonEmpty(doc) && NotService(doc, mediaType) && MinLength(doc, minLen)
}
