package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"blac/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface checks
var (
	_ model.Provider = (*OllamaProvider)(nil)
	_ model.Provider = (*OpenAIProvider)(nil)
	_ model.Provider = (*AnthropicProvider)(nil)
)

func TestOllamaProviderGenerate(t *testing.T) {
	var body struct {
		Options map[string]any `json:"options"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"pong"},"done":true}` + "\n"))
	}))
	defer srv.Close()

	p, err := NewOllamaProvider(srv.URL, "llama3.1", srv.Client())
	require.NoError(t, err)

	var got string
	err = p.Generate(context.Background(), "ping", model.GenerationConfig{Temperature: 0.7, MaxOutputTokens: 4096}, func(chunk string) error {
		got += chunk
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "pong", got)
	assert.InDelta(t, 0.7, body.Options["temperature"], 1e-9)
	assert.EqualValues(t, 4096, body.Options["num_predict"])
}
