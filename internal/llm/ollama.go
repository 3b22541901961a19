// Package llm is an Ollama-compatible HTTP client: chat (streaming and
// non-streaming), health checks, and model management (list/pull/delete).
// The wire format is Ollama's own NDJSON streaming contract, so the client
// talks plain net/http rather than a vendor SDK.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"
)

const (
	connectTimeout = 5 * time.Second
	requestTimeout = 120 * time.Second
)

// ChatMessage is one turn in a chat request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatOptions tunes decoding. Temperature and NumPredict mirror Ollama's
// request schema directly.
type ChatOptions struct {
	Temperature float32 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type chatRequest struct {
	Model     string          `json:"model"`
	Messages  []ChatMessage   `json:"messages"`
	Stream    bool            `json:"stream"`
	Options   *ChatOptions    `json:"options,omitempty"`
	KeepAlive string          `json:"keep_alive,omitempty"`
	Format    json.RawMessage `json:"format,omitempty"`
}

type chatMessageResponse struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Message chatMessageResponse `json:"message"`
	Done    bool                `json:"done"`
}

// ModelDetails is the nested detail block Ollama reports per tag.
type ModelDetails struct {
	ParameterSize     string `json:"parameter_size,omitempty"`
	QuantizationLevel string `json:"quantization_level,omitempty"`
	Family            string `json:"family,omitempty"`
}

// ModelInfo describes one locally available Ollama model.
type ModelInfo struct {
	Name    string        `json:"name"`
	Size    uint64        `json:"size"`
	Digest  string        `json:"digest,omitempty"`
	Details *ModelDetails `json:"details,omitempty"`
}

type tagsResponse struct {
	Models []ModelInfo `json:"models"`
}

// PullProgress is one line of a model pull's NDJSON progress stream.
type PullProgress struct {
	Status    string `json:"status"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
}

// Client is an Ollama HTTP API client bound to one base URL and default
// chat model.
type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
}

// NewClient builds a Client. The underlying transport bounds connection
// establishment to connectTimeout; callers (or the per-call helpers below)
// bound the overall request with a context deadline.
func NewClient(baseURL, model string) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
	}
	return &Client{
		httpClient: &http.Client{Transport: transport},
		baseURL:    baseURL,
		model:      model,
	}
}

// Name identifies this provider in logs and UI-facing errors.
func (c *Client) Name() string {
	return "Ollama"
}

// Model returns the configured default chat model.
func (c *Client) Model() string {
	return c.model
}

// Chat sends a non-streaming chat request and returns the full response
// content.
func (c *Client) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	return c.chat(ctx, messages, nil, 0.3)
}

// ChatWithSchema runs a non-streaming chat request constrained to the given
// JSON schema and temperature, for callers (the note summarizer) that need
// structured output rather than free text.
func (c *Client) ChatWithSchema(ctx context.Context, messages []ChatMessage, schema json.RawMessage, temperature float32) (string, error) {
	return c.chat(ctx, messages, schema, temperature)
}

func (c *Client) chat(ctx context.Context, messages []ChatMessage, schema json.RawMessage, temperature float32) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req := chatRequest{
		Model:     c.model,
		Messages:  messages,
		Stream:    false,
		Options:   &ChatOptions{Temperature: temperature, NumPredict: 1024},
		KeepAlive: "5m",
		Format:    schema,
	}

	resp, err := c.post(ctx, "/api/chat", req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%w: %s", ErrModelNotFound, c.model)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm: ollama chat returned HTTP %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("llm: decode chat response: %w", err)
	}
	return parsed.Message.Content, nil
}

// ChatStreaming sends a streaming chat request, invoking onChunk with each
// non-empty content delta as it arrives, and returns the full accumulated
// text once the stream reports done.
func (c *Client) ChatStreaming(ctx context.Context, messages []ChatMessage, onChunk func(content string)) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req := chatRequest{
		Model:     c.model,
		Messages:  messages,
		Stream:    true,
		Options:   &ChatOptions{Temperature: 0.3, NumPredict: 1024},
		KeepAlive: "5m",
	}

	resp, err := c.post(ctx, "/api/chat", req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%w: %s", ErrModelNotFound, c.model)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm: ollama chat returned HTTP %d", resp.StatusCode)
	}

	var accumulated bytes.Buffer
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var parsed chatResponse
		if err := json.Unmarshal(line, &parsed); err != nil {
			continue
		}
		if content := parsed.Message.Content; content != "" {
			accumulated.WriteString(content)
			if onChunk != nil {
				onChunk(content)
			}
		}
		if parsed.Done {
			return accumulated.String(), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("llm: read chat stream: %w", err)
	}

	if accumulated.Len() == 0 {
		return "", ErrStreamInterrupted
	}
	return accumulated.String(), nil
}

// HealthCheck reports whether the Ollama server is reachable. A transport
// error is treated as "not healthy" rather than propagated.
func (c *Client) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// ListModels returns the models currently pulled into the Ollama server.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm: list models: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("llm: list models returned HTTP %d", resp.StatusCode)
	}
	var parsed tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("llm: decode tags response: %w", err)
	}
	return parsed.Models, nil
}

// PullModel streams a model download, invoking onProgress for each
// progress line. Unlike chat/list/delete, no overall request timeout is
// applied here beyond the caller's own context — only connection
// establishment is bounded, since a pull can legitimately run far longer
// than requestTimeout.
func (c *Client) PullModel(ctx context.Context, name string, onProgress func(PullProgress)) error {
	body, err := json.Marshal(map[string]any{"model": name, "stream": true})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("llm: pull model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrModelNotFound, name)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("llm: pull model returned HTTP %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var progress PullProgress
		if err := json.Unmarshal(line, &progress); err != nil {
			continue
		}
		if onProgress != nil {
			onProgress(progress)
		}
		if progress.Status == "success" {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("llm: read pull stream: %w", err)
	}
	return ErrStreamInterrupted
}

// DeleteModel removes a model from the Ollama server.
func (c *Client) DeleteModel(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	body, err := json.Marshal(map[string]any{"model": name})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/delete", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("llm: delete model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrModelNotFound, name)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("llm: delete model returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("llm: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm: request %s: %w", path, err)
	}
	return resp, nil
}
