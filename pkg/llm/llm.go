package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// LLM is a single-turn chat completion.
type LLM interface {
	Chat(ctx context.Context, prompt string) (string, error)
	Provider() Provider
	Model() string
}

const (
	maxTokens   = 600
	temperature = 0.2
)

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}

// userMessage is the request body both chat APIs accept.
func userMessage(model, prompt string) map[string]interface{} {
	return map[string]interface{}{
		"model":       model,
		"messages":    []map[string]string{{"role": "user", "content": prompt}},
		"max_tokens":  maxTokens,
		"temperature": temperature,
	}
}

// postJSON sends body to endpoint and decodes a 200 reply into out. Any
// other status is an error carrying the raw reply.
func postJSON(ctx context.Context, hc *http.Client, endpoint string, headers map[string]string, body, out interface{}, provider Provider) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", provider, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s API error (status %d): %s", provider, resp.StatusCode, string(respBytes))
	}
	return json.Unmarshal(respBytes, out)
}
