package llm

import (
	"context"
	"fmt"
	"net/http"
)

const (
	openAIEndpoint     = "https://api.openai.com/v1/chat/completions"
	openAIDefaultModel = "gpt-4o"
)

type OpenAI struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewOpenAI returns a Chat Completions client. An empty model selects the default.
func NewOpenAI(apiKey, model string) *OpenAI {
	if model == "" {
		model = openAIDefaultModel
	}
	return &OpenAI{apiKey: apiKey, model: model, endpoint: openAIEndpoint, client: newHTTPClient()}
}

func (o *OpenAI) Provider() Provider { return ProviderOpenAI }

func (o *OpenAI) Model() string { return o.model }

func (o *OpenAI) Chat(ctx context.Context, prompt string) (string, error) {
	headers := map[string]string{"Authorization": "Bearer " + o.apiKey}
	var reply struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := postJSON(ctx, o.client, o.endpoint, headers, userMessage(o.model, prompt), &reply, ProviderOpenAI); err != nil {
		return "", err
	}

	switch {
	case reply.Error.Message != "":
		return "", fmt.Errorf("openai API error: %s", reply.Error.Message)
	case len(reply.Choices) == 0:
		return "", fmt.Errorf("empty response from openai")
	}
	return reply.Choices[0].Message.Content, nil
}
