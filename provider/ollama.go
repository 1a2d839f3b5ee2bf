package provider

import (
	"context"
	"fmt"
	"net/http"

	"blac/model"
	"blac/ollama"
)

// OllamaProvider wraps ollama.Client to implement the Provider interface.
type OllamaProvider struct {
	client *ollama.Client
}

// NewOllamaProvider creates a new Ollama provider instance.
//
// Parameters:
//   - baseURL: The Ollama server URL. Defaults to "http://localhost:11434".
//   - model: The model name to use. Defaults to "llama3.1:latest".
func NewOllamaProvider(baseURL, model string, httpClient *http.Client) (*OllamaProvider, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	client, err := ollama.NewClientWithHTTP(baseURL, model, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create Ollama client: %w", err)
	}

	return &OllamaProvider{
		client: client,
	}, nil
}

// Generate maps the generation config onto Ollama's temperature and
// num_predict options.
func (p *OllamaProvider) Generate(ctx context.Context, prompt string, gen model.GenerationConfig, callback model.StreamCallback) error {
	opts := ollama.Options{
		Temperature: gen.Temperature,
		NumPredict:  gen.MaxOutputTokens,
	}
	var cb ollama.StreamCallback
	if callback != nil {
		cb = func(chunk string) error { return callback(chunk) }
	}
	return p.client.Generate(ctx, prompt, opts, cb)
}

func (p *OllamaProvider) GetModel() string {
	return p.client.GetModel()
}

func (p *OllamaProvider) SetModel(model string) {
	p.client.SetModel(model)
}

// ListModels returns the models pulled on the server.
func (p *OllamaProvider) ListModels(ctx context.Context) ([]ollama.ModelInfo, error) {
	return p.client.ListModels(ctx)
}

func (p *OllamaProvider) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}
