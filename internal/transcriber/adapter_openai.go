package transcriber

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/turnscribe/turnscribe/internal/transcript"
)

// OpenAIAdapter implements Adapter for the Whisper transcription API.
// Whisper provides word timestamps but no diarization, so words carry no
// speaker id and segmentation yields no turns; the flat transcript is still
// available on the result.
type OpenAIAdapter struct {
	client   *openai.Client
	model    string
	language string
}

func NewOpenAIAdapter(cfg Config) *OpenAIAdapter {
	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}
	return &OpenAIAdapter{
		client:   openai.NewClient(cfg.APIKey),
		model:    model,
		language: cfg.Language,
	}
}

func (a *OpenAIAdapter) Transcribe(ctx context.Context, wav []byte) (*Result, error) {
	req := openai.AudioRequest{
		Model:    a.model,
		Reader:   bytes.NewReader(wav),
		FilePath: "audio.wav",
		Language: a.language,
		Format:   openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularityWord,
		},
	}

	resp, err := a.client.CreateTranscription(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, &ServiceError{Status: apiErr.HTTPStatusCode, Message: apiErr.Message}
		}
		return nil, &TransportError{Err: fmt.Errorf("openai transcription: %w", err)}
	}

	result := &Result{
		Transcript: resp.Text,
		Words:      make([]transcript.Word, 0, len(resp.Words)),
	}
	for _, w := range resp.Words {
		result.Words = append(result.Words, transcript.Word{
			Text:  w.Word,
			Start: w.Start,
			End:   w.End,
		})
	}
	return result, nil
}
