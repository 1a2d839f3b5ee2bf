package speech

import (
	"time"

	"blac/config"
)

// Service pairs the model manager with a listener over the same model.
type Service struct {
	*ModelManager
	*Listener
}

// NewService builds the configured voice pipeline: the Vosk engine (when
// compiled in) fed by the capture command.
func NewService(cfg *config.Config, opts ...ListenerOption) *Service {
	models := NewModelManagerFromConfig(cfg)
	if cfg.Voice.MaxListenSeconds > 0 {
		opts = append([]ListenerOption{WithMaxListen(time.Duration(cfg.Voice.MaxListenSeconds) * time.Second)}, opts...)
	}
	listener := NewListener(models, DefaultEngineFactory, NewCommandOpener(cfg.Voice.CaptureCommand), cfg.Voice.SampleRate, opts...)
	return &Service{ModelManager: models, Listener: listener}
}
