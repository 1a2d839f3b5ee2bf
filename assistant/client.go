// Package assistant turns a prompt and the current toggles into one call to
// the configured generative backend and always yields displayable text.
package assistant

import (
	"context"
	"net/http"
	"strings"
	"time"

	"blac/config"
	apperrors "blac/errors"
	"blac/model"
	"blac/provider"
)

// Fixed replies for the failure categories.
const (
	TimeoutReply  = "Request timed out. Please try again."
	NetworkPrefix = "Network error: "
	ErrorPrefix   = "Error: "
	EmptyReply    = "No response"
)

// ProviderFactory builds the backend for one call.
type ProviderFactory func(cfg *config.Config, keys provider.KeySource) (model.Provider, error)

// Client sends prompts to the assistant backend. It is safe for concurrent
// use; each call builds its own provider.
type Client struct {
	cfg        *config.Config
	keys       provider.KeySource
	factory    ProviderFactory
	httpClient *http.Client
	timeout    time.Duration
}

type Option func(*Client)

// WithProviderFactory replaces the config-driven backend construction.
func WithProviderFactory(f ProviderFactory) Option {
	return func(c *Client) { c.factory = f }
}

// WithTimeout overrides the configured bound on a single call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

func NewClient(cfg *config.Config, keys provider.KeySource, opts ...Option) *Client {
	c := &Client{
		cfg:  cfg,
		keys: keys,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.factory == nil {
		c.factory = func(cfg *config.Config, keys provider.KeySource) (model.Provider, error) {
			return provider.FromConfig(cfg, keys, c.httpClient)
		}
	}
	if c.timeout <= 0 {
		c.timeout = cfg.AssistantTimeout()
	}
	return c
}

// SendMessage returns the model's reply or one of the fixed failure strings.
func (c *Client) SendMessage(ctx context.Context, prompt string, opts model.ToggleOptions) string {
	return c.StreamMessage(ctx, prompt, opts, nil)
}

// StreamMessage is SendMessage with each received chunk also passed to
// onChunk. The returned string is the whole reply; on failure any partial
// text is discarded in favor of the failure string.
func (c *Client) StreamMessage(ctx context.Context, prompt string, opts model.ToggleOptions, onChunk func(string)) string {
	p, err := c.factory(c.cfg, c.keys)
	if err != nil {
		return describe(err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	full := BuildPrompt(prompt, opts)
	gen := Preset(opts)

	config.Debugf("[Assistant] model=%s temp=%.1f max=%d think=%t search=%t code=%t",
		p.GetModel(), gen.Temperature, gen.MaxOutputTokens, opts.ThinkMode, opts.RealTimeSearch, opts.CodeMode)

	var sb strings.Builder
	err = p.Generate(ctx, full, gen, func(chunk string) error {
		sb.WriteString(chunk)
		if onChunk != nil {
			onChunk(chunk)
		}
		return nil
	})
	if err == nil && ctx.Err() == context.DeadlineExceeded {
		err = ctx.Err()
	}
	if err != nil {
		config.Debugf("[Assistant] call failed: %v", err)
		return describe(err)
	}

	reply := sb.String()
	if strings.TrimSpace(reply) == "" {
		return EmptyReply
	}
	return reply
}

func describe(err error) string {
	switch apperrors.Classify(err) {
	case apperrors.KindTimeout:
		return TimeoutReply
	case apperrors.KindNetwork:
		return NetworkPrefix + apperrors.Message(err)
	default:
		return ErrorPrefix + apperrors.Message(err)
	}
}
