// Package textproc implements the Chinese-aware text normalization stage of
// the ingest pipeline: Unicode normalization, whitespace collapse, simplified
// /traditional Chinese conversion, and pinyin romanization.
package textproc

import (
	"strings"
	"unicode"

	"github.com/mozillazg/go-pinyin"
	"golang.org/x/text/unicode/norm"
)

// Normalize applies NFC normalization and collapses runs of Unicode
// whitespace into a single space, trimming the result. Empty input returns
// empty.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFC.String(s)

	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			inSpace = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ToSimplified converts traditional Chinese characters in s to their
// simplified form, passing through any character absent from the conversion
// table unchanged.
func ToSimplified(s string) string {
	return convert(s, traditionalToSimplified)
}

// ToTraditional converts simplified Chinese characters in s to their
// traditional form, passing through any character absent from the
// conversion table unchanged.
func ToTraditional(s string) string {
	return convert(s, simplifiedToTraditional)
}

func convert(s string, table map[rune]rune) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if mapped, ok := table[r]; ok {
			b.WriteRune(mapped)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var pinyinArgs = pinyin.Args{
	Style:     pinyin.Normal,
	Heteronym: false,
	Separator: " ",
	Fallback: func(r rune, a pinyin.Args) []string {
		return []string{string(r)}
	},
}

// ToPinyin romanizes s (expected to be simplified Chinese) into
// space-joined syllables in normal (non-toned) style. Runs of non-Han
// characters pass through unchanged as their own "syllable".
func ToPinyin(s string) string {
	if s == "" {
		return ""
	}
	syllables := pinyin.Pinyin(s, pinyinArgs)
	parts := make([]string, 0, len(syllables))
	for _, group := range syllables {
		if len(group) == 0 {
			continue
		}
		parts = append(parts, group[0])
	}
	return strings.Join(parts, " ")
}
