package config

import (
	"fmt"
	"strconv"
)

// KnownProviders lists the assistant backends in display order.
var KnownProviders = []string{"gemini", "openai", "anthropic", "ollama"}

// UpdateAssistantField updates a single [assistant] field in the user config.
//
// Fields: "provider", "model", "base_url", "timeout_seconds"
func UpdateAssistantField(dataDir, fieldName, value string) error {
	cfg, err := LoadUserConfig(dataDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	switch fieldName {
	case "provider":
		if !IsKnownProvider(value) {
			return fmt.Errorf("unknown provider: %s", value)
		}
		if cfg.Assistant.Provider != value {
			// A model name rarely carries over between backends
			cfg.Assistant.Model = ""
			cfg.Assistant.BaseURL = ""
		}
		cfg.Assistant.Provider = value
	case "model":
		cfg.Assistant.Model = value
	case "base_url":
		cfg.Assistant.BaseURL = value
	case "timeout_seconds":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("timeout_seconds must be a positive integer, got %q", value)
		}
		cfg.Assistant.TimeoutSeconds = n
	default:
		return fmt.Errorf("unknown assistant field: %s", fieldName)
	}

	if err := SaveUserConfig(cfg, dataDir); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

func IsKnownProvider(id string) bool {
	for _, p := range KnownProviders {
		if p == id {
			return true
		}
	}
	return false
}

// ProviderDisplayName returns the display name for a provider
func ProviderDisplayName(providerID string) string {
	switch providerID {
	case "gemini":
		return "Gemini"
	case "ollama":
		return "Ollama"
	case "anthropic":
		return "Anthropic"
	case "openai":
		return "OpenAI"
	default:
		return providerID
	}
}

// ProviderDefaultBaseURL returns the default base URL for a provider
func ProviderDefaultBaseURL(providerID string) string {
	switch providerID {
	case "gemini":
		return "https://generativelanguage.googleapis.com/v1beta/openai/"
	case "anthropic":
		return "https://api.anthropic.com"
	case "openai":
		return "https://api.openai.com/v1"
	case "ollama":
		return "http://localhost:11434"
	default:
		return ""
	}
}
