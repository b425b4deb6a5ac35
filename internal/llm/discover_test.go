package llm

import (
	"errors"
	"testing"
)

func TestDiscover(t *testing.T) {
	tests := []struct {
		name     string
		cfg      ProviderConfig
		envKey   string
		wantName string
		wantErr  error
	}{
		{
			name:     "configured anthropic with key",
			cfg:      ProviderConfig{Provider: "anthropic", APIKey: "sk-cfg"},
			wantName: "anthropic",
		},
		{
			name:     "configured anthropic falls back to env key",
			cfg:      ProviderConfig{Provider: "anthropic"},
			envKey:   "sk-env",
			wantName: "anthropic",
		},
		{
			name:    "configured anthropic without any key falls through",
			cfg:     ProviderConfig{Provider: "anthropic"},
			wantErr: ErrNoProvider,
		},
		{
			name:     "configured claude-code needs no credential",
			cfg:      ProviderConfig{Provider: "claude-code"},
			wantName: "claude-code",
		},
		{
			name:     "no config, env key present",
			cfg:      ProviderConfig{},
			envKey:   "sk-env",
			wantName: "anthropic",
		},
		{
			name:    "nothing configured",
			cfg:     ProviderConfig{},
			wantErr: ErrNoProvider,
		},
		{
			name:     "unknown backend name falls through to env",
			cfg:      ProviderConfig{Provider: "openai"},
			envKey:   "sk-env",
			wantName: "anthropic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ANTHROPIC_API_KEY", tt.envKey)

			p, err := Discover(tt.cfg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Discover: %v", err)
			}
			if p.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", p.Name(), tt.wantName)
			}
		})
	}
}

func TestDiscoverModelPassthrough(t *testing.T) {
	p, err := Discover(ProviderConfig{Provider: "anthropic", APIKey: "sk", Model: "claude-opus-4-1"})
	if err != nil {
		t.Fatal(err)
	}
	if p.Model() != "claude-opus-4-1" {
		t.Errorf("Model() = %q", p.Model())
	}
}
