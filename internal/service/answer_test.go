package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/campusdesk/assistant/internal/llm"
	"github.com/campusdesk/assistant/internal/vectorstore"
)

// stubLLM records calls and returns a canned response.
type stubLLM struct {
	calls      int
	lastPrompt string
	lastOpts   llm.GenerateOptions
	response   string
	err        error
}

func (s *stubLLM) Generate(_ context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
	s.calls++
	s.lastPrompt = prompt
	s.lastOpts = opts
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

var _ llm.LLM = (*stubLLM)(nil)

func chunksOf(contents ...string) []vectorstore.SearchResult {
	out := make([]vectorstore.SearchResult, len(contents))
	for i, c := range contents {
		out[i] = vectorstore.SearchResult{ID: c, Content: c}
	}
	return out
}

func TestAnswerer_EmptyContextShortCircuits(t *testing.T) {
	model := &stubLLM{response: "should not be called"}
	a := NewAnswerer(model)

	answer, err := a.Answer(context.Background(), "What is the tuition deadline?", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != NoContextAnswer {
		t.Errorf("expected the fixed no-context answer, got %q", answer)
	}
	if model.calls != 0 {
		t.Errorf("expected no model calls, got %d", model.calls)
	}
}

func TestAnswerer_GeneratesFromChunks(t *testing.T) {
	model := &stubLLM{response: "  Tuition is due in the first week.  "}
	a := NewAnswerer(model, WithModel("llama3-8b-8192"))

	answer, err := a.Answer(context.Background(), "When is tuition due?",
		chunksOf("Tuition must be paid by the first week of the semester."))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if answer != "Tuition is due in the first week." {
		t.Errorf("expected trimmed response, got %q", answer)
	}
	if model.calls != 1 {
		t.Errorf("expected exactly one model call, got %d", model.calls)
	}
	if model.lastOpts.Model != "llama3-8b-8192" {
		t.Errorf("expected configured model, got %q", model.lastOpts.Model)
	}
	if !strings.Contains(model.lastPrompt, "Tuition must be paid") {
		t.Error("prompt does not contain the chunk content")
	}
	if !strings.Contains(model.lastPrompt, "When is tuition due?") {
		t.Error("prompt does not contain the question")
	}
}

func TestAnswerer_PromptKeepsChunkOrder(t *testing.T) {
	model := &stubLLM{response: "ok"}
	a := NewAnswerer(model)

	_, err := a.Answer(context.Background(), "q",
		chunksOf("most relevant chunk", "second chunk", "third chunk"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first := strings.Index(model.lastPrompt, "most relevant chunk")
	second := strings.Index(model.lastPrompt, "second chunk")
	third := strings.Index(model.lastPrompt, "third chunk")
	if first < 0 || second < 0 || third < 0 {
		t.Fatal("prompt is missing chunk content")
	}
	if !(first < second && second < third) {
		t.Error("chunks do not appear in reranked order")
	}
	if !strings.Contains(model.lastPrompt, "[Doc 1]") || !strings.Contains(model.lastPrompt, "[Doc 3]") {
		t.Error("prompt is missing document delimiters")
	}
}

func TestAnswerer_BoundsContextLength(t *testing.T) {
	model := &stubLLM{response: "ok"}
	a := NewAnswerer(model, WithMaxContextChars(40))

	long := strings.Repeat("x", 100)
	_, err := a.Answer(context.Background(), "q", chunksOf(long, long))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := strings.Count(model.lastPrompt, "x"); got > 40 {
		t.Errorf("context exceeds bound: %d chars of chunk content", got)
	}
}

func TestAnswerer_PropagatesModelError(t *testing.T) {
	model := &stubLLM{err: llm.ErrUnavailable}
	a := NewAnswerer(model)

	_, err := a.Answer(context.Background(), "q", chunksOf("some context"))
	if !errors.Is(err, llm.ErrUnavailable) {
		t.Errorf("expected wrapped ErrUnavailable, got %v", err)
	}
}
