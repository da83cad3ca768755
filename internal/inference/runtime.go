package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RuntimeClient is a client for the model runtime API. The runtime process
// holds the pretrained model and tokenizer; it tokenizes input (silently
// truncating to the model's 512-token limit) and returns raw logits. All
// probability calibration happens on our side.
type RuntimeClient struct {
	baseURL    string
	httpClient *http.Client
}

// LogitsRequest represents a single inference request.
type LogitsRequest struct {
	Text string `json:"text"`
}

// LogitsResponse represents raw model output for one input.
type LogitsResponse struct {
	Logits    []float64 `json:"logits"`
	Labels    []string  `json:"labels"`
	ModelID   string    `json:"model_id"`
	Truncated bool      `json:"truncated"`
}

// RuntimeHealth represents the runtime's health check response.
type RuntimeHealth struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Device      string `json:"device"`
	Message     string `json:"message"`
}

// NewRuntimeClient creates a new model runtime client.
func NewRuntimeClient(baseURL string, timeout time.Duration) *RuntimeClient {
	return &RuntimeClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Logits runs the model forward pass for a single text.
func (c *RuntimeClient) Logits(ctx context.Context, text string) (*LogitsResponse, error) {
	reqBody := LogitsRequest{
		Text: text,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/logits", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("model runtime returned status %d: %s", resp.StatusCode, string(body))
	}

	var result LogitsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// HealthCheck checks if the model runtime is healthy and its model loaded.
func (c *RuntimeClient) HealthCheck(ctx context.Context) (*RuntimeHealth, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/v1/health", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("model runtime returned status %d: %s", resp.StatusCode, string(body))
	}

	var result RuntimeHealth
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}
