package transcription

import (
	"context"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"

	"github.com/nijaru/yt-adwatch/config"
	apperrors "github.com/nijaru/yt-adwatch/errors"
)

// OpenAIRecognizer sends audio to an OpenAI-compatible transcription API.
type OpenAIRecognizer struct {
	client   *openai.Client
	model    string
	language string
}

func NewOpenAIRecognizer(cfg config.STTConfig) (*OpenAIRecognizer, error) {
	const op = "transcription.NewOpenAIRecognizer"

	if cfg.OpenAIAPIKey == "" {
		return nil, apperrors.Config(op, nil, "OpenAI API key is required")
	}

	clientCfg := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIURL != "" {
		clientCfg.BaseURL = cfg.OpenAIURL
	}

	model := cfg.OpenAIModel
	if model == "" {
		model = openai.Whisper1
	}

	return &OpenAIRecognizer{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    model,
		language: cfg.Language,
	}, nil
}

func (r *OpenAIRecognizer) ModelName() string {
	return r.model
}

func (r *OpenAIRecognizer) Close() error {
	return nil
}

func (r *OpenAIRecognizer) Recognize(ctx context.Context, audioPath string) ([]Segment, error) {
	resp, err := r.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    r.model,
		FilePath: audioPath,
		Language: r.language,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, errors.Wrap(err, "transcription request failed")
	}

	if len(resp.Segments) == 0 {
		if resp.Text == "" {
			return nil, nil
		}
		return []Segment{{Start: 0, End: resp.Duration, Text: resp.Text}}, nil
	}

	segments := make([]Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		segments = append(segments, Segment{Start: s.Start, End: s.End, Text: s.Text})
	}
	return segments, nil
}
