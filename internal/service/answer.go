package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/campusdesk/assistant/internal/llm"
	"github.com/campusdesk/assistant/internal/vectorstore"
)

// NoContextAnswer is the fixed reply when retrieval yields nothing
// relevant. It is returned without invoking the generative model.
const NoContextAnswer = "I could not find relevant information about that in the university regulations. Please rephrase your question or contact student affairs directly."

const defaultSystemPrompt = "You are a university support assistant. Answer the student's question using only the supplied context documents. If the context does not contain the answer, say that you do not know. Do not invent rules."

const (
	// DefaultMaxContextChars bounds the assembled context block.
	DefaultMaxContextChars = 12000

	// answerTemperature keeps grounded answers factual and repeatable.
	answerTemperature = 0.3

	// answerMaxTokens bounds the generated answer length.
	answerMaxTokens = 1024
)

// Answerer assembles retrieved chunks into a bounded prompt context and
// invokes the generative model for a grounded answer.
type Answerer struct {
	llmClient       llm.LLM
	model           string
	systemPrompt    string
	maxContextChars int
}

// AnswererOption is a functional option for configuring Answerer.
type AnswererOption func(*Answerer)

// WithModel sets the generation model.
func WithModel(model string) AnswererOption {
	return func(a *Answerer) {
		a.model = model
	}
}

// WithSystemPrompt overrides the grounding system prompt.
func WithSystemPrompt(prompt string) AnswererOption {
	return func(a *Answerer) {
		a.systemPrompt = prompt
	}
}

// WithMaxContextChars bounds the assembled context block length.
func WithMaxContextChars(n int) AnswererOption {
	return func(a *Answerer) {
		if n > 0 {
			a.maxContextChars = n
		}
	}
}

// NewAnswerer creates an Answerer backed by the given LLM client.
func NewAnswerer(llmClient llm.LLM, opts ...AnswererOption) *Answerer {
	a := &Answerer{
		llmClient:       llmClient,
		systemPrompt:    defaultSystemPrompt,
		maxContextChars: DefaultMaxContextChars,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Answer produces a grounded answer for question from chunks, which must
// already be in reranked (most relevant first) order. Empty chunks
// short-circuit to NoContextAnswer without a model call. The model's
// response is returned trimmed of surrounding whitespace.
func (a *Answerer) Answer(ctx context.Context, question string, chunks []vectorstore.SearchResult) (string, error) {
	if len(chunks) == 0 {
		return NoContextAnswer, nil
	}

	prompt := a.buildPrompt(question, chunks)

	response, err := a.llmClient.Generate(ctx, prompt, llm.GenerateOptions{
		Model:        a.model,
		SystemPrompt: a.systemPrompt,
		Temperature:  answerTemperature,
		MaxTokens:    answerMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}

	return strings.TrimSpace(response), nil
}

// buildPrompt concatenates chunk texts in reranked order, each delimited so
// the model can distinguish boundaries, into one context block bounded by
// maxContextChars.
func (a *Answerer) buildPrompt(question string, chunks []vectorstore.SearchResult) string {
	var sb strings.Builder

	sb.WriteString("## Context Documents\n\n")

	used := 0
	for i, chunk := range chunks {
		content := chunk.Content
		if used+len(content) > a.maxContextChars {
			remaining := a.maxContextChars - used
			if remaining <= 0 {
				break
			}
			content = truncateRunes(content, remaining)
		}

		sb.WriteString(fmt.Sprintf("[Doc %d]\n", i+1))
		sb.WriteString(content)
		sb.WriteString("\n\n")
		used += len(content)
	}

	sb.WriteString("## Question\n")
	sb.WriteString(question)
	sb.WriteString("\n\n")
	sb.WriteString("## Answer (be brief and direct)\n")

	return sb.String()
}

// truncateRunes cuts s to at most n bytes without splitting a rune.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
