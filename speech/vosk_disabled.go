//go:build !vosk

package speech

// DefaultEngineFactory reports that no engine was compiled in.
var DefaultEngineFactory EngineFactory = func(string, int) (Engine, error) {
	return nil, ErrEngineUnavailable
}
