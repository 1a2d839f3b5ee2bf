//go:build vosk

package speech

import (
	"fmt"

	vosk "github.com/alphacep/vosk-api/go"
)

// VoskEngine wraps a Vosk recognizer and the model it was built from.
type VoskEngine struct {
	model *vosk.VoskModel
	rec   *vosk.VoskRecognizer
}

func NewVoskEngine(modelDir string, sampleRate int) (Engine, error) {
	vosk.SetLogLevel(-1)

	model, err := vosk.NewModel(modelDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load speech model: %w", err)
	}
	rec, err := vosk.NewRecognizer(model, float64(sampleRate))
	if err != nil {
		model.Free()
		return nil, fmt.Errorf("failed to create recognizer: %w", err)
	}
	return &VoskEngine{model: model, rec: rec}, nil
}

func (e *VoskEngine) AcceptWaveform(pcm []byte) bool {
	return e.rec.AcceptWaveform(pcm) == 1
}

func (e *VoskEngine) Result() string {
	return e.rec.Result()
}

func (e *VoskEngine) Close() {
	e.rec.Free()
	e.model.Free()
}

// DefaultEngineFactory loads Vosk models.
var DefaultEngineFactory EngineFactory = NewVoskEngine
