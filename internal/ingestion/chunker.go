// Package ingestion handles corpus processing: chunking and the offline
// index build pipeline.
package ingestion

import "strings"

const (
	// DefaultChunkSize is the default chunk length in runes.
	DefaultChunkSize = 2500

	// DefaultOverlap is the default shared-context length between
	// consecutive chunks, in runes.
	DefaultOverlap = 300
)

// Segment is one chunk of corpus text together with its rune offset into
// the source document.
type Segment struct {
	Text   string
	Offset int
}

// Splitter splits a document into overlapping segments suitable for
// embedding and retrieval. Boundaries prefer natural breakpoints
// (paragraph, line, sentence, word) over hard cuts. Splitting is
// deterministic: identical input and parameters always yield the same
// segment sequence.
type Splitter struct {
	chunkSize int
	overlap   int
}

// separators in decreasing preference order. Each cut lands just after a
// separator occurrence when one exists inside the search window.
var separators = []string{"\n\n", "\n", ". ", "! ", "? ", " "}

// NewSplitter creates a Splitter. Non-positive sizes fall back to defaults;
// overlap is clamped below chunkSize so every step makes progress.
func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 2
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}
}

// Split produces the segment sequence for text. Consecutive segments share
// exactly s.overlap runes, the final segment may be shorter than the chunk
// size, and concatenating segments with the overlap removed reconstructs
// the input with no gaps.
func (s *Splitter) Split(text string) []Segment {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	var segments []Segment

	start := 0
	for {
		end := start + s.chunkSize
		if end >= len(runes) {
			segments = append(segments, Segment{
				Text:   string(runes[start:]),
				Offset: start,
			})
			return segments
		}

		cut := s.findCut(runes, start, end)
		segments = append(segments, Segment{
			Text:   string(runes[start:cut]),
			Offset: start,
		})

		// The next segment re-covers the last overlap runes of this one.
		start = cut - s.overlap
	}
}

// findCut picks the boundary for a segment spanning [start, end). It scans
// backwards from end for the most-preferred separator whose cut point still
// lies beyond the overlap region (guaranteeing forward progress), and falls
// back to a hard cut at end.
func (s *Splitter) findCut(runes []rune, start, end int) int {
	// The cut must leave more than overlap runes in this segment, or the
	// next segment would start at or before this one.
	minCut := start + s.overlap + 1
	if minCut >= end {
		return end
	}

	window := string(runes[minCut:end])
	for _, sep := range separators {
		if idx := strings.LastIndex(window, sep); idx >= 0 {
			return minCut + runeLen(window[:idx]) + runeLen(sep)
		}
	}
	return end
}

// runeLen returns the rune count of a string (window indexes are byte
// offsets, segment positions are rune offsets).
func runeLen(s string) int {
	return len([]rune(s))
}
