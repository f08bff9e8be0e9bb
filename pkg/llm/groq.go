package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"moneyradar/pkg/clients"
)

// GroqProvider calls an OpenAI-compatible chat completions endpoint.
// Groq's free tier rate-limits aggressively, so rate-limit responses are
// retried with exponential backoff capped at a minute, honouring the
// Retry-After header when the server sends one.
type GroqProvider struct {
	client     *http.Client
	apiKey     string
	apiURL     string
	model      string
	maxTokens  int
	maxRetries int
}

// NewGroqProvider creates a provider for Groq or any OpenAI-compatible API
func NewGroqProvider(cfg Config) *GroqProvider {
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = "https://api.groq.com/openai/v1"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 300
	}
	return &GroqProvider{
		client:     &http.Client{Timeout: timeout},
		apiKey:     cfg.APIKey,
		apiURL:     apiURL,
		model:      cfg.Model,
		maxTokens:  maxTokens,
		maxRetries: cfg.MaxRetries,
	}
}

type groqRequest struct {
	Model       string        `json:"model"`
	Messages    []groqMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends the prompt and returns the model's text response
func (p *GroqProvider) Complete(ctx context.Context, prompt string) (string, error) {
	if p.model == "" {
		return "", errors.New("groq model is required")
	}

	payload, err := json.Marshal(groqRequest{
		Model:       p.model,
		Messages:    []groqMessage{{Role: "user", Content: prompt}},
		Temperature: 0.1,
		MaxTokens:   p.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("groq: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("groq: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	retryCfg := clients.RetryConfig{
		MaxRetries: p.maxRetries,
		BaseDelay:  2 * time.Second,
		MaxDelay:   60 * time.Second,
		Multiplier: 2.0,
		RetryFunc: func(resp *http.Response, err error) bool {
			// Only rate limits are worth waiting for; other failures fall
			// through to the caller's rule-based fallback immediately.
			return err == nil && resp != nil && resp.StatusCode == http.StatusTooManyRequests
		},
	}

	resp, err := clients.DoWithRetry(ctx, p.client, req, retryCfg)
	if err != nil {
		return "", fmt.Errorf("groq: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("groq: unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var parsed groqResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("groq: decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("groq: empty choices in response")
	}

	return parsed.Choices[0].Message.Content, nil
}
