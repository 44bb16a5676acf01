package llm

import (
	"fmt"
	"os"
	"strings"
)

type Provider string

const (
	ProviderClaude Provider = "claude"
	ProviderOpenAI Provider = "openai"
)

type providerEnv struct {
	keyVar   string
	modelVar string
	build    func(apiKey, model string) LLM
}

var providers = map[Provider]providerEnv{
	ProviderClaude: {
		keyVar:   "ANTHROPIC_API_KEY",
		modelVar: "CLAUDE_MODEL",
		build:    func(k, m string) LLM { return NewClaude(k, m) },
	},
	ProviderOpenAI: {
		keyVar:   "OPENAI_API_KEY",
		modelVar: "OPENAI_MODEL",
		build:    func(k, m string) LLM { return NewOpenAI(k, m) },
	},
}

// CreateFromEnv picks the provider from providerOverride, then
// $LLM_PROVIDER, then Claude. The model comes from modelOverride, then
// the provider's model variable, then the provider default.
func CreateFromEnv(providerOverride, modelOverride string) (LLM, error) {
	name := Provider(strings.ToLower(strings.TrimSpace(providerOverride)))
	if name == "" {
		name = Provider(strings.ToLower(os.Getenv("LLM_PROVIDER")))
	}
	if name == "" {
		name = ProviderClaude
	}

	p, ok := providers[name]
	if !ok {
		return nil, fmt.Errorf("unsupported provider: %s (supported: claude, openai)", name)
	}
	apiKey := os.Getenv(p.keyVar)
	if apiKey == "" {
		return nil, fmt.Errorf("%s environment variable not set", p.keyVar)
	}
	model := modelOverride
	if model == "" {
		model = os.Getenv(p.modelVar)
	}
	return p.build(apiKey, model), nil
}
