// Package chunk splits document text into bounded, overlapping passages.
package chunk

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultSize is the maximum chunk length in characters.
	DefaultSize = 1024

	// DefaultOverlap is the number of trailing characters of a chunk repeated
	// at the start of the next one.
	DefaultOverlap = 20
)

// Chunk is a contiguous passage of a document.
type Chunk struct {
	// Text is the passage, at most Splitter.Size characters long.
	Text string

	// Ordinal is the position of the chunk within its document, from 0.
	Ordinal int

	// Source is the storage key of the document the chunk came from.
	Source string
}

// Splitter splits text preferring paragraph, then sentence, then word
// boundaries. Lengths are counted in runes.
type Splitter struct {
	// Size is the hard upper bound on a chunk's length, overlap included.
	Size int

	// Overlap is how many characters of the previous chunk prefix the next.
	Overlap int
}

// NewSplitter returns a Splitter, applying defaults for a zero size and
// rejecting an overlap that leaves no room for new text.
func NewSplitter(size, overlap int) (Splitter, error) {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		return Splitter{}, fmt.Errorf("chunk overlap cannot be negative: %d", overlap)
	}
	if overlap >= size {
		return Splitter{}, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", overlap, size)
	}
	return Splitter{Size: size, Overlap: overlap}, nil
}

// Chunks splits a document's text and labels each passage with source.
func (s Splitter) Chunks(source, text string) []Chunk {
	texts := s.Split(text)
	out := make([]Chunk, len(texts))
	for i, t := range texts {
		out[i] = Chunk{Text: t, Ordinal: i, Source: source}
	}
	return out
}

// Split returns the passages of text. Whitespace-only text yields none.
func (s Splitter) Split(text string) []string {
	size, overlap := s.Size, s.Overlap
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	if strings.TrimSpace(text) == "" {
		return nil
	}

	pieces := split(text, levelParagraph, size-overlap)

	var (
		chunks []string
		cur    strings.Builder
		curLen int
		fresh  bool
	)

	emit := func() {
		if t := strings.TrimSpace(cur.String()); t != "" && fresh {
			chunks = append(chunks, t)
		}
	}

	for _, p := range pieces {
		pl := utf8.RuneCountInString(p)
		// A whitespace run split into pieces never starts a chunk of its own.
		blank := strings.TrimSpace(p) == ""
		if blank && (!fresh || curLen+pl > size) {
			continue
		}
		if curLen+pl > size && fresh {
			emit()
			prefix := tail(strings.TrimSpace(cur.String()), overlap)
			cur.Reset()
			cur.WriteString(prefix)
			curLen = utf8.RuneCountInString(prefix)
			fresh = false
		}
		cur.WriteString(p)
		curLen += pl
		if !blank {
			fresh = true
		}
	}
	emit()

	return chunks
}

// tail returns at most n runes from the end of s as an overlap prefix,
// starting on a word boundary when one exists and ending in a space.
func tail(s string, n int) string {
	if n <= 1 {
		return ""
	}
	r := []rune(s)
	keep := n - 1
	if keep > len(r) {
		keep = len(r)
	}
	t := r[len(r)-keep:]

	// drop a leading partial word
	if keep < len(r) && !unicode.IsSpace(r[len(r)-keep-1]) {
		for i, c := range t {
			if unicode.IsSpace(c) {
				t = t[i:]
				break
			}
		}
	}

	out := strings.TrimSpace(string(t))
	if out == "" {
		return ""
	}
	return out + " "
}

type level int

const (
	levelParagraph level = iota
	levelSentence
	levelWord
	levelRune
)

// split breaks text into pieces of at most limit runes whose concatenation is
// text, descending to finer boundaries only where a piece is still too long.
func split(text string, lvl level, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var parts []string
	switch lvl {
	case levelParagraph:
		parts = splitParagraphs(text)
	case levelSentence:
		parts = splitAfterFunc(text, isSentenceEnd)
	case levelWord:
		parts = splitAfterFunc(text, func(r []rune, i int) bool {
			return unicode.IsSpace(r[i]) && (i+1 == len(r) || !unicode.IsSpace(r[i+1]))
		})
	default:
		return splitRunes(text, limit)
	}

	if len(parts) <= 1 {
		return split(text, lvl+1, limit)
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, split(p, lvl+1, limit)...)
	}
	return out
}

func splitParagraphs(text string) []string {
	return splitAfterFunc(text, func(r []rune, i int) bool {
		// end of a run of blank-line separators
		if r[i] != '\n' || i == 0 {
			return false
		}
		j := i - 1
		for j >= 0 && r[j] != '\n' && unicode.IsSpace(r[j]) {
			j--
		}
		if j < 0 || r[j] != '\n' {
			return false
		}
		return i+1 == len(r) || r[i+1] != '\n'
	})
}

func isSentenceEnd(r []rune, i int) bool {
	// cut after the whitespace that follows a terminator
	if !unicode.IsSpace(r[i]) || (i+1 < len(r) && unicode.IsSpace(r[i+1])) {
		return false
	}
	j := i
	for j >= 0 && unicode.IsSpace(r[j]) {
		j--
	}
	if j < 0 {
		return false
	}
	switch r[j] {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}

// splitAfterFunc cuts text after every index where cut reports true.
func splitAfterFunc(text string, cut func(r []rune, i int) bool) []string {
	r := []rune(text)
	var parts []string
	start := 0
	for i := range r {
		if cut(r, i) {
			parts = append(parts, string(r[start:i+1]))
			start = i + 1
		}
	}
	if start < len(r) {
		parts = append(parts, string(r[start:]))
	}
	return parts
}

func splitRunes(text string, limit int) []string {
	r := []rune(text)
	parts := make([]string, 0, len(r)/limit+1)
	for len(r) > limit {
		parts = append(parts, string(r[:limit]))
		r = r[limit:]
	}
	if len(r) > 0 {
		parts = append(parts, string(r))
	}
	return parts
}
