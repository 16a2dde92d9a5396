package ingestion

import (
	"strings"
	"testing"
)

func TestNewSplitter_Defaults(t *testing.T) {
	s := NewSplitter(0, -1)

	if s.chunkSize != DefaultChunkSize {
		t.Errorf("expected default chunk size %d, got %d", DefaultChunkSize, s.chunkSize)
	}
	if s.overlap != DefaultOverlap {
		t.Errorf("expected default overlap %d, got %d", DefaultOverlap, s.overlap)
	}
}

func TestNewSplitter_ClampsOverlap(t *testing.T) {
	s := NewSplitter(100, 100)

	if s.overlap >= s.chunkSize {
		t.Errorf("overlap %d not clamped below chunk size %d", s.overlap, s.chunkSize)
	}
}

func TestSplitter_EmptyInput(t *testing.T) {
	s := NewSplitter(50, 10)

	if segments := s.Split(""); segments != nil {
		t.Errorf("expected nil for empty input, got %v", segments)
	}
}

func TestSplitter_ShortInput(t *testing.T) {
	s := NewSplitter(50, 10)

	segments := s.Split("short text")
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
	if segments[0].Text != "short text" {
		t.Errorf("expected input unchanged, got %q", segments[0].Text)
	}
	if segments[0].Offset != 0 {
		t.Errorf("expected offset 0, got %d", segments[0].Offset)
	}
}

func TestSplitter_SegmentSizeBound(t *testing.T) {
	s := NewSplitter(50, 10)
	text := strings.Repeat("word and more text here. ", 40)

	segments := s.Split(text)
	if len(segments) < 2 {
		t.Fatalf("expected multiple segments, got %d", len(segments))
	}

	for i, seg := range segments {
		if n := len([]rune(seg.Text)); n > 50 {
			t.Errorf("segment %d has %d runes, exceeds chunk size 50", i, n)
		}
	}
}

func TestSplitter_ConsecutiveOverlap(t *testing.T) {
	s := NewSplitter(50, 10)
	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 30)

	segments := s.Split(text)
	if len(segments) < 2 {
		t.Fatalf("expected multiple segments, got %d", len(segments))
	}

	// Each segment starts with the last 10 runes of its predecessor.
	for i := 1; i < len(segments); i++ {
		prev := []rune(segments[i-1].Text)
		cur := []rune(segments[i].Text)

		tail := string(prev[len(prev)-10:])
		var head string
		if len(cur) >= 10 {
			head = string(cur[:10])
		} else {
			head = string(cur)
			tail = tail[:len(head)]
		}
		if head != tail {
			t.Errorf("segments %d/%d do not share 10 runes: tail %q vs head %q", i-1, i, tail, head)
		}

		if segments[i].Offset != segments[i-1].Offset+len(prev)-10 {
			t.Errorf("segment %d offset %d inconsistent with predecessor", i, segments[i].Offset)
		}
	}
}

func TestSplitter_LosslessReconstruction(t *testing.T) {
	s := NewSplitter(50, 10)
	text := strings.Repeat("Paragraph one has details.\n\nParagraph two differs. ", 20)

	segments := s.Split(text)

	var sb strings.Builder
	for i, seg := range segments {
		runes := []rune(seg.Text)
		if i == 0 {
			sb.WriteString(seg.Text)
			continue
		}
		sb.WriteString(string(runes[10:]))
	}

	if sb.String() != text {
		t.Error("concatenating segments with overlap removed did not reconstruct the input")
	}
}

func TestSplitter_OffsetsMatchSource(t *testing.T) {
	s := NewSplitter(60, 15)
	text := strings.Repeat("Tuition must be paid by the first week. Late fees apply. ", 25)
	runes := []rune(text)

	for i, seg := range s.Split(text) {
		segRunes := []rune(seg.Text)
		got := string(runes[seg.Offset : seg.Offset+len(segRunes)])
		if got != seg.Text {
			t.Errorf("segment %d text does not match source at offset %d", i, seg.Offset)
		}
	}
}

func TestSplitter_PrefersParagraphBreaks(t *testing.T) {
	s := NewSplitter(50, 10)
	// A paragraph break sits inside the search window; the cut should land
	// just after it rather than mid-sentence at the hard limit.
	text := "First paragraph text goes here now.\n\nSecond paragraph continues with more text afterwards."

	segments := s.Split(text)
	if len(segments) < 2 {
		t.Fatalf("expected multiple segments, got %d", len(segments))
	}
	if !strings.HasSuffix(segments[0].Text, "\n\n") {
		t.Errorf("expected first segment to end at the paragraph break, got %q", segments[0].Text)
	}
}

func TestSplitter_Deterministic(t *testing.T) {
	s := NewSplitter(50, 10)
	text := strings.Repeat("Registration closes on Friday. Appeals go to the registrar. ", 20)

	first := s.Split(text)
	second := s.Split(text)

	if len(first) != len(second) {
		t.Fatalf("segment counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("segment %d differs between runs", i)
		}
	}
}

func TestSplitter_MultibyteRunes(t *testing.T) {
	s := NewSplitter(30, 5)
	text := strings.Repeat("授業料は期限までに納付してください。 ", 15)

	segments := s.Split(text)
	if len(segments) < 2 {
		t.Fatalf("expected multiple segments, got %d", len(segments))
	}

	var sb strings.Builder
	for i, seg := range segments {
		runes := []rune(seg.Text)
		if n := len(runes); n > 30 {
			t.Errorf("segment %d has %d runes, exceeds chunk size", i, n)
		}
		if i == 0 {
			sb.WriteString(seg.Text)
		} else {
			sb.WriteString(string(runes[5:]))
		}
	}
	if sb.String() != text {
		t.Error("multibyte input not reconstructed from segments")
	}
}
