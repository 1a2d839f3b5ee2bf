package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
		wantModel   string
	}{
		{
			name:      "gemini with defaults",
			config:    Config{Type: ProviderTypeGemini, APIKey: "test-key"},
			wantModel: "gemini-1.5-flash",
		},
		{
			name:        "gemini without key",
			config:      Config{Type: ProviderTypeGemini},
			expectError: true,
		},
		{
			name:      "ollama provider with defaults",
			config:    Config{Type: ProviderTypeOllama},
			wantModel: "llama3.1:latest",
		},
		{
			name:      "openai provider",
			config:    Config{Type: ProviderTypeOpenAI, Model: "gpt-4o-mini", APIKey: "test-key"},
			wantModel: "gpt-4o-mini",
		},
		{
			name:      "anthropic provider",
			config:    Config{Type: ProviderTypeAnthropic, APIKey: "test-key"},
			wantModel: "claude-sonnet-4-5-20250929",
		},
		{
			name:        "anthropic without key",
			config:      Config{Type: ProviderTypeAnthropic},
			expectError: true,
		},
		{
			name:        "unknown provider type",
			config:      Config{Type: ProviderType("unknown")},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.config)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, p)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, p.GetModel())

			p.SetModel("other")
			assert.Equal(t, "other", p.GetModel())
		})
	}
}

func TestMapProviderIDToType(t *testing.T) {
	assert.Equal(t, ProviderTypeGemini, MapProviderIDToType("gemini"))
	assert.Equal(t, ProviderTypeOllama, MapProviderIDToType("ollama"))
	assert.Equal(t, ProviderTypeOpenAI, MapProviderIDToType("openai"))
	assert.Equal(t, ProviderTypeAnthropic, MapProviderIDToType("anthropic"))
	assert.Equal(t, ProviderType("mystery"), MapProviderIDToType("mystery"))

	assert.False(t, RequiresAPIKey(ProviderTypeOllama))
	assert.True(t, RequiresAPIKey(ProviderTypeGemini))
}
