package assistant

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"blac/config"
	"blac/model"
	"blac/provider"
	"blac/provider/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPromptDirectiveOrder(t *testing.T) {
	tests := []struct {
		opts model.ToggleOptions
		want string
	}{
		{model.ToggleOptions{}, "hi\n"},
		{model.ToggleOptions{ThinkMode: true}, "(Think step by step)\nhi\n"},
		{model.ToggleOptions{RealTimeSearch: true}, "(Use live web data if needed)\nhi\n"},
		{model.ToggleOptions{CodeMode: true}, "(Format as code with explanations)\nhi\n"},
		{model.ToggleOptions{ThinkMode: true, RealTimeSearch: true}, "(Think step by step)\n(Use live web data if needed)\nhi\n"},
		{model.ToggleOptions{ThinkMode: true, CodeMode: true}, "(Think step by step)\n(Format as code with explanations)\nhi\n"},
		{model.ToggleOptions{RealTimeSearch: true, CodeMode: true}, "(Use live web data if needed)\n(Format as code with explanations)\nhi\n"},
		{model.ToggleOptions{ThinkMode: true, RealTimeSearch: true, CodeMode: true},
			"(Think step by step)\n(Use live web data if needed)\n(Format as code with explanations)\nhi\n"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BuildPrompt("hi", tt.opts), "%+v", tt.opts)
	}
}

func TestPreset(t *testing.T) {
	assert.Equal(t, model.GenerationConfig{Temperature: 0.1, MaxOutputTokens: 8192}, Preset(model.ToggleOptions{ThinkMode: true}))
	assert.Equal(t, model.GenerationConfig{Temperature: 0.1, MaxOutputTokens: 8192}, Preset(model.ToggleOptions{ThinkMode: true, CodeMode: true}))
	assert.Equal(t, model.GenerationConfig{Temperature: 0.7, MaxOutputTokens: 4096}, Preset(model.ToggleOptions{RealTimeSearch: true, CodeMode: true}))
	assert.Equal(t, model.GenerationConfig{Temperature: 0.7, MaxOutputTokens: 4096}, Preset(model.ToggleOptions{}))
}

func clientWith(t *testing.T, mock *testutil.MockProvider, opts ...Option) *Client {
	t.Helper()
	factory := WithProviderFactory(func(*config.Config, provider.KeySource) (model.Provider, error) {
		return mock, nil
	})
	return NewClient(config.Default(t.TempDir()), nil, append([]Option{factory}, opts...)...)
}

func TestSendMessageAppliesPromptAndPreset(t *testing.T) {
	mock := testutil.NewMockProvider("gemini-1.5-flash", "Hello there")
	c := clientWith(t, mock)

	reply := c.SendMessage(context.Background(), "hi", model.ToggleOptions{ThinkMode: true, CodeMode: true})
	assert.Equal(t, "Hello there", reply)
	assert.Equal(t, "(Think step by step)\n(Format as code with explanations)\nhi\n", mock.LastPrompt())
	assert.Equal(t, []model.GenerationConfig{PresetPrecise}, mock.Configs())
}

func TestSendMessageFailureStrings(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"deadline", context.DeadlineExceeded, TimeoutReply},
		{"network", &url.Error{Op: "Post", URL: "https://x", Err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}},
			"Network error: dial tcp: connection refused"},
		{"generic", errors.New("quota exceeded"), "Error: quota exceeded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockProvider("m", "")
			mock.GenerateFunc = func(context.Context, string, model.GenerationConfig, model.StreamCallback) error {
				return tt.err
			}
			assert.Equal(t, tt.want, clientWith(t, mock).SendMessage(context.Background(), "q", model.ToggleOptions{}))
		})
	}
}

func TestSendMessageTimeout(t *testing.T) {
	mock := testutil.NewMockProvider("m", "")
	mock.GenerateFunc = func(ctx context.Context, _ string, _ model.GenerationConfig, cb model.StreamCallback) error {
		_ = cb("partial")
		<-ctx.Done()
		return ctx.Err()
	}
	c := clientWith(t, mock, WithTimeout(20*time.Millisecond))

	start := time.Now()
	assert.Equal(t, TimeoutReply, c.SendMessage(context.Background(), "slow", model.ToggleOptions{}))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSendMessageEmptyReply(t *testing.T) {
	mock := testutil.NewMockProvider("m", "  \n")
	assert.Equal(t, EmptyReply, clientWith(t, mock).SendMessage(context.Background(), "q", model.ToggleOptions{}))
}

func TestStreamMessageChunks(t *testing.T) {
	mock := testutil.NewMockProvider("m", "")
	mock.GenerateFunc = func(_ context.Context, _ string, _ model.GenerationConfig, cb model.StreamCallback) error {
		for _, c := range []string{"a", "b", "c"} {
			if err := cb(c); err != nil {
				return err
			}
		}
		return nil
	}

	var chunks []string
	reply := clientWith(t, mock).StreamMessage(context.Background(), "q", model.ToggleOptions{}, func(c string) {
		chunks = append(chunks, c)
	})
	assert.Equal(t, "abc", reply)
	assert.Equal(t, []string{"a", "b", "c"}, chunks)
}

type mapKeys map[string]string

func (m mapKeys) APIKey(id string) string { return m[id] }

func TestSendMessageMissingKey(t *testing.T) {
	c := NewClient(config.Default(t.TempDir()), mapKeys{})
	reply := c.SendMessage(context.Background(), "q", model.ToggleOptions{})
	assert.True(t, strings.HasPrefix(reply, ErrorPrefix), reply)
	assert.Contains(t, reply, "no API key configured")
}

func TestSendMessageReadsKeyAtCallTime(t *testing.T) {
	var auths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auths = append(auths, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(`data: {"id":"1","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"content":"ok"}}]}` + "\n\n"))
		_, _ = w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer srv.Close()

	cfg := config.Default(t.TempDir())
	cfg.Assistant.BaseURL = srv.URL
	keys := mapKeys{"gemini": "first"}
	c := NewClient(cfg, keys, WithHTTPClient(srv.Client()))

	require.Equal(t, "ok", c.SendMessage(context.Background(), "q", model.ToggleOptions{}))
	keys["gemini"] = "second"
	require.Equal(t, "ok", c.SendMessage(context.Background(), "q", model.ToggleOptions{}))

	assert.Equal(t, []string{"Bearer first", "Bearer second"}, auths)
}
