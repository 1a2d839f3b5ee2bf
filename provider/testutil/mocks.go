package testutil

import (
	"context"
	"sync"

	"blac/model"
)

// MockProvider implements model.Provider for testing
type MockProvider struct {
	// Configurable responses
	GenerateFunc func(ctx context.Context, prompt string, gen model.GenerationConfig, callback model.StreamCallback) error
	PingFunc     func(ctx context.Context) error

	mu           sync.Mutex
	currentModel string
	prompts      []string
	configs      []model.GenerationConfig
}

// NewMockProvider creates a mock provider that replies with reply in one chunk
func NewMockProvider(modelName, reply string) *MockProvider {
	mock := &MockProvider{
		currentModel: modelName,
	}
	mock.GenerateFunc = func(ctx context.Context, prompt string, gen model.GenerationConfig, callback model.StreamCallback) error {
		if callback != nil && reply != "" {
			return callback(reply)
		}
		return nil
	}
	mock.PingFunc = func(ctx context.Context) error { return nil }
	return mock
}

func (m *MockProvider) Generate(ctx context.Context, prompt string, gen model.GenerationConfig, callback model.StreamCallback) error {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.configs = append(m.configs, gen)
	m.mu.Unlock()
	return m.GenerateFunc(ctx, prompt, gen, callback)
}

func (m *MockProvider) GetModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentModel
}

func (m *MockProvider) SetModel(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentModel = model
}

func (m *MockProvider) Ping(ctx context.Context) error {
	return m.PingFunc(ctx)
}

// Prompts returns every prompt passed to Generate, in call order
func (m *MockProvider) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// Configs returns every GenerationConfig passed to Generate, in call order
func (m *MockProvider) Configs() []model.GenerationConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.GenerationConfig(nil), m.configs...)
}

// LastPrompt returns the most recent prompt or "" if none
func (m *MockProvider) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}
