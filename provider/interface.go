// Package provider adapts the generative-AI backends to model.Provider.
//
// Gemini is reached through its OpenAI-compatible endpoint with the OpenAI
// SDK, so the Gemini and OpenAI providers share one implementation. Anthropic
// and Ollama use their own SDKs.
//
// # Usage
//
//	p, err := provider.NewProvider(provider.Config{
//	    Type:   provider.ProviderTypeGemini,
//	    Model:  "gemini-1.5-flash",
//	    APIKey: key,
//	})
//	if err != nil {
//	    // handle error
//	}
//	err = p.Generate(ctx, prompt, model.GenerationConfig{Temperature: 0.7, MaxOutputTokens: 4096}, nil)
package provider

import "net/http"

// Note: The Provider interface and StreamCallback are defined in the model package
// (model/provider.go) to avoid import cycles. This package implements model.Provider.

// ProviderType identifies the provider implementation.
type ProviderType string

const (
	ProviderTypeGemini    ProviderType = "gemini"
	ProviderTypeOllama    ProviderType = "ollama"
	ProviderTypeOpenAI    ProviderType = "openai"
	ProviderTypeAnthropic ProviderType = "anthropic"
)

// Config holds provider-specific configuration.
type Config struct {
	Type    ProviderType
	BaseURL string
	Model   string
	APIKey  string // unused for Ollama

	// HTTPClient overrides the transport. Nil uses the SDK default.
	HTTPClient *http.Client
}
