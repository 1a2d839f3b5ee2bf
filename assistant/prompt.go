package assistant

import (
	"strings"

	"blac/model"
)

// Directive lines prepended to the prompt, in this fixed order.
const (
	DirectiveThink  = "(Think step by step)"
	DirectiveSearch = "(Use live web data if needed)"
	DirectiveCode   = "(Format as code with explanations)"
)

// Generation presets.
var (
	PresetDefault = model.GenerationConfig{Temperature: 0.7, MaxOutputTokens: 4096}
	PresetPrecise = model.GenerationConfig{Temperature: 0.1, MaxOutputTokens: 8192}
)

// BuildPrompt returns the directive lines enabled by opts followed by the
// prompt. Every line, the prompt included, ends with a newline.
func BuildPrompt(prompt string, opts model.ToggleOptions) string {
	var sb strings.Builder
	if opts.ThinkMode {
		sb.WriteString(DirectiveThink)
		sb.WriteByte('\n')
	}
	if opts.RealTimeSearch {
		sb.WriteString(DirectiveSearch)
		sb.WriteByte('\n')
	}
	if opts.CodeMode {
		sb.WriteString(DirectiveCode)
		sb.WriteByte('\n')
	}
	sb.WriteString(prompt)
	sb.WriteByte('\n')
	return sb.String()
}

// Preset selects the generation parameters. Only reasoning mode changes them.
func Preset(opts model.ToggleOptions) model.GenerationConfig {
	if opts.ThinkMode {
		return PresetPrecise
	}
	return PresetDefault
}
