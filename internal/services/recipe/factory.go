package recipe

import (
	"github.com/socialchef/recipekeeper/internal/config"
)

// Credentials holds the API keys and model names for each provider.
type Credentials struct {
	GeminiKey   string
	GeminiModel string
	GroqKey     string
	GroqModel   string
}

// NewGenerator creates a new generator based on the configuration
// It can optionally wrap the generator in a fallback wrapper if enabled
func NewGenerator(cfg config.GenerationConfig, creds Credentials) Generator {
	primary := newGenerator(cfg.Provider, creds)

	if cfg.FallbackEnabled && cfg.FallbackProvider != "" && cfg.FallbackProvider != cfg.Provider {
		return NewFallbackGenerator(primary, newGenerator(cfg.FallbackProvider, creds))
	}

	return primary
}

func newGenerator(provider string, creds Credentials) Generator {
	switch ProviderType(provider) {
	case ProviderGroq:
		return NewGroqGenerator(creds.GroqKey, creds.GroqModel)
	default:
		// Default to gemini
		return NewGeminiGenerator(creds.GeminiKey, creds.GeminiModel)
	}
}
