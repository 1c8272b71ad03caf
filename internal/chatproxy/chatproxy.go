// Package chatproxy forwards chat-completion requests to the upstream
// provider using a server-held credential. The credential is read once at
// construction and never echoed in responses or error messages.
package chatproxy

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
)

const (
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultModel       = "gpt-3.5-turbo"
	defaultTemperature = 0.7
	defaultTimeout     = 60 * time.Second
)

var (
	ErrMissingAPIKey    = errors.New("upstream api key not configured")
	ErrInvalidChatInput = errors.New("invalid chat input")
	ErrUpstream         = errors.New("upstream chat completion failed")
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request carries a completion request. A nil Temperature falls back to
// the default; zero is a valid, deterministic setting.
type Request struct {
	Messages    []Message
	Model       string
	Temperature *float64
}

// Client calls the upstream chat-completions API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the upstream endpoint (used by tests).
func WithBaseURL(baseURL string) Option {
	return func(client *Client) {
		client.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient overrides the transport.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(client *Client) {
		client.httpClient = httpClient
	}
}

// New returns a Client holding the upstream credential.
func New(apiKey string, options ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, option := range options {
		if option != nil {
			option(client)
		}
	}
	return client, nil
}

type completionPayload struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete forwards the request and returns the assistant's reply.
func (client *Client) Complete(ctx context.Context, request Request) (string, error) {
	if len(request.Messages) == 0 {
		return "", fmt.Errorf("%w: messages are required", ErrInvalidChatInput)
	}
	model := request.Model
	if model == "" {
		model = defaultModel
	}
	temperature := defaultTemperature
	if request.Temperature != nil {
		temperature = *request.Temperature
	}
	payload, err := json.Marshal(completionPayload{
		Model:       model,
		Messages:    request.Messages,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidChatInput, err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, client.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build upstream request: %w", err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("Authorization", "Bearer "+client.apiKey)

	httpResponse, err := client.httpClient.Do(httpRequest)
	if err != nil {
		// Transport errors can embed the request URL but never the
		// Authorization header; safe to propagate.
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer httpResponse.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResponse.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrUpstream, err)
	}

	var parsed completionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: status %d", ErrUpstream, httpResponse.StatusCode)
	}
	if httpResponse.StatusCode != http.StatusOK {
		message := "status " + httpResponse.Status
		if parsed.Error != nil && parsed.Error.Message != "" {
			message = parsed.Error.Message
		}
		return "", fmt.Errorf("%w: %s", ErrUpstream, message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", ErrUpstream)
	}
	return parsed.Choices[0].Message.Content, nil
}
