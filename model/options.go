package model

// ToggleOptions are the per-send switches that shape the prompt and the
// generation parameters. Each flips independently.
type ToggleOptions struct {
	ThinkMode      bool
	RealTimeSearch bool
	CodeMode       bool
}

func (o ToggleOptions) ToggleThinkMode() ToggleOptions {
	o.ThinkMode = !o.ThinkMode
	return o
}

func (o ToggleOptions) ToggleSearch() ToggleOptions {
	o.RealTimeSearch = !o.RealTimeSearch
	return o
}

func (o ToggleOptions) ToggleCodeMode() ToggleOptions {
	o.CodeMode = !o.CodeMode
	return o
}

// GenerationConfig is the sampling configuration sent with a prompt.
type GenerationConfig struct {
	Temperature     float64
	MaxOutputTokens int
}
