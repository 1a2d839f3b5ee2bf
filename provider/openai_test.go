package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"blac/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sseChunk(content string) string {
	return fmt.Sprintf(`data: {"id":"c1","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"content":%q}}]}`+"\n\n", content)
}

func TestGeminiProviderGenerate(t *testing.T) {
	var body map[string]any
	var auth, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(sseChunk("Hello, ")))
		_, _ = w.Write([]byte(sseChunk("world")))
		_, _ = w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer srv.Close()

	p, err := NewGeminiProvider(srv.URL+"/v1beta/openai/", "secret", "", srv.Client())
	require.NoError(t, err)
	assert.Equal(t, "Gemini", p.Name())

	var sb strings.Builder
	err = p.Generate(context.Background(), "say hi", model.GenerationConfig{Temperature: 0.1, MaxOutputTokens: 8192}, func(chunk string) error {
		sb.WriteString(chunk)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello, world", sb.String())
	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, "/v1beta/openai/chat/completions", path)
	assert.Equal(t, "gemini-1.5-flash", body["model"])
	assert.InDelta(t, 0.1, body["temperature"], 1e-9)
	assert.EqualValues(t, 8192, body["max_tokens"])

	msgs := body["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0].(map[string]any)["role"])
}

func TestOpenAIProviderHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(srv.URL, "wrong", "gpt-4o-mini", srv.Client())
	require.NoError(t, err)

	err = p.Generate(context.Background(), "x", model.GenerationConfig{Temperature: 0.7}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OpenAI streaming error")
}

func TestAnthropicProviderGenerate(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "text/event-stream")
		events := []string{
			"event: content_block_delta\n" + `data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hi"}}` + "\n\n",
			"event: content_block_delta\n" + `data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":" there"}}` + "\n\n",
			"event: message_stop\n" + `data: {"type":"message_stop"}` + "\n\n",
		}
		for _, e := range events {
			_, _ = w.Write([]byte(e))
		}
	}))
	defer srv.Close()

	p, err := NewAnthropicProvider(srv.URL, "key", "claude-3-5-haiku-20241022", srv.Client())
	require.NoError(t, err)

	var sb strings.Builder
	err = p.Generate(context.Background(), "hello", model.GenerationConfig{Temperature: 0.7, MaxOutputTokens: 4096}, func(chunk string) error {
		sb.WriteString(chunk)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi there", sb.String())
	assert.EqualValues(t, 4096, body["max_tokens"])
	assert.InDelta(t, 0.7, body["temperature"], 1e-9)
}
