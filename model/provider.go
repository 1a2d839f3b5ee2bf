package model

import "context"

// Provider abstracts the generative-AI backends (Gemini, OpenAI, Anthropic,
// Ollama) behind provider-agnostic types.
//
// This interface lives in the model package (not provider) so that packages
// consuming a Provider do not import the concrete SDK wrappers.
type Provider interface {
	// Generate sends a single prompt and streams the reply through callback.
	// callback may be nil.
	Generate(ctx context.Context, prompt string, gen GenerationConfig, callback StreamCallback) error

	// GetModel returns the model identifier used for API calls.
	GetModel() string

	// SetModel changes the active model.
	SetModel(model string)

	// Ping checks if the provider is reachable.
	Ping(ctx context.Context) error
}

// StreamCallback is called for each chunk of streamed response.
type StreamCallback func(chunk string) error
