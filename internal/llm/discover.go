package llm

import "os"

// ProviderConfig is what discovery needs to pick a backend: prior explicit
// configuration plus whatever credential it recorded.
type ProviderConfig struct {
	Provider string // "anthropic", "claude-code", or empty
	Model    string
	APIKey   string
	Command  string // claude-code binary override
}

// Discover selects exactly one provider. Priority: a backend named in the
// config, then environment credentials, then failure. A configured backend
// whose credential is missing falls through to the next tier instead of
// failing outright, so a stale config entry never blocks a working key.
func Discover(cfg ProviderConfig) (Provider, error) {
	switch cfg.Provider {
	case "anthropic":
		if key := firstNonEmpty(cfg.APIKey, os.Getenv("ANTHROPIC_API_KEY")); key != "" {
			return NewAnthropicProvider(key, cfg.Model), nil
		}
		// Configured but no key anywhere; fall through.
	case "claude-code":
		return NewClaudeCLIProvider(cfg.Command, cfg.Model), nil
	}

	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		return NewAnthropicProvider(key, cfg.Model), nil
	}

	return nil, ErrNoProvider
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
