package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultGroqBaseURL is Groq's OpenAI-compatible API endpoint.
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"

	// DefaultGroqModel is the default hosted generation model.
	DefaultGroqModel = "llama3-8b-8192"
)

// GroqClient implements the LLM interface against Groq's OpenAI-compatible
// chat completions API.
type GroqClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// GroqOption is a functional option for configuring GroqClient.
type GroqOption func(*GroqClient)

// WithGroqBaseURL sets a custom base URL.
func WithGroqBaseURL(url string) GroqOption {
	return func(c *GroqClient) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithGroqModel sets the default model for the client.
func WithGroqModel(model string) GroqOption {
	return func(c *GroqClient) {
		c.model = model
	}
}

// WithGroqHTTPClient sets a custom HTTP client.
func WithGroqHTTPClient(client *http.Client) GroqOption {
	return func(c *GroqClient) {
		c.httpClient = client
	}
}

// NewGroqClient creates a new Groq LLM client.
func NewGroqClient(apiKey string, opts ...GroqOption) *GroqClient {
	c := &GroqClient{
		baseURL: DefaultGroqBaseURL,
		apiKey:  apiKey,
		model:   DefaultGroqModel,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// chatMessage is one message in a chat completions request.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest represents the request body for the chat completions API.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// chatResponse represents the response from the chat completions API.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate sends a prompt to Groq and returns the complete response.
func (c *GroqClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	model := opts.Model
	if model == "" {
		model = c.model
	}

	var messages []chatMessage
	if opts.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: opts.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: groq API error (status %d): %s", ErrUnavailable, resp.StatusCode, string(respBody))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrUnavailable, err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion returned", ErrUnavailable)
	}

	return result.Choices[0].Message.Content, nil
}

// Ensure GroqClient implements LLM interface.
var _ LLM = (*GroqClient)(nil)
