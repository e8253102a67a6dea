package transcription

import (
	"context"

	"github.com/nijaru/yt-adwatch/config"
	"github.com/nijaru/yt-adwatch/errors"
)

type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Recognizer is a loaded speech-to-text model. It is created once at start
// up by NewRecognizer, shared by every transcription in the run and closed
// at exit.
type Recognizer interface {
	Recognize(ctx context.Context, audioPath string) ([]Segment, error)
	ModelName() string
	Close() error
}

func NewRecognizer(cfg config.STTConfig) (Recognizer, error) {
	const op = "transcription.NewRecognizer"

	switch cfg.Backend {
	case config.BackendScript:
		r, err := NewScriptRecognizer(cfg)
		if err != nil {
			return nil, err
		}
		return r, nil
	case config.BackendOpenAI:
		r, err := NewOpenAIRecognizer(cfg)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, errors.Config(op, nil, "unknown STT backend: "+cfg.Backend)
	}
}
