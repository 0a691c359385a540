package transcribe

import (
	"bytes"
	"context"

	"github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"
)

// Transcriber converts voice audio into text. An empty string with a nil
// error means the audio could not be understood; callers must not classify
// empty output.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

type Whisper struct {
	client *openai.Client
	model  string
	logger *log.Entry
}

const DefaultModel = openai.Whisper1

func NewWhisper(apiKey, model, baseURL string) *Whisper {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Whisper{
		client: openai.NewClientWithConfig(config),
		model:  model,
		logger: log.WithField("object", "Whisper"),
	}
}

func (w *Whisper) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: filename,
		Reader:   bytes.NewReader(audio),
	})
	if err != nil {
		w.logger.WithField("error", err.Error()).Error("transcription request failed")
		return "", err
	}
	return resp.Text, nil
}
