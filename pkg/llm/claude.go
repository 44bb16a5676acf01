package llm

import (
	"context"
	"fmt"
	"net/http"
)

const (
	claudeEndpoint     = "https://api.anthropic.com/v1/messages"
	claudeDefaultModel = "claude-sonnet-4-20250514"
)

type Claude struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewClaude returns a Messages API client. An empty model selects the default.
func NewClaude(apiKey, model string) *Claude {
	if model == "" {
		model = claudeDefaultModel
	}
	return &Claude{apiKey: apiKey, model: model, endpoint: claudeEndpoint, client: newHTTPClient()}
}

func (c *Claude) Provider() Provider { return ProviderClaude }

func (c *Claude) Model() string { return c.model }

func (c *Claude) Chat(ctx context.Context, prompt string) (string, error) {
	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": "2023-06-01",
	}
	var reply struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := postJSON(ctx, c.client, c.endpoint, headers, userMessage(c.model, prompt), &reply, ProviderClaude); err != nil {
		return "", err
	}

	switch {
	case reply.Error.Message != "":
		return "", fmt.Errorf("claude API error: %s", reply.Error.Message)
	case len(reply.Content) == 0:
		return "", fmt.Errorf("empty response from claude")
	}
	return reply.Content[0].Text, nil
}
