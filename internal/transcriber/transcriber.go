package transcriber

import (
	"context"
	"fmt"
	"time"

	"github.com/turnscribe/turnscribe/internal/transcript"
)

// Result is the parsed response of a transcription request. An empty
// transcript with no words is the "no speech detected" outcome, which is a
// success, not an error.
type Result struct {
	Transcript string
	Words      []transcript.Word
}

// Empty reports whether the service detected no speech.
func (r *Result) Empty() bool {
	return r.Transcript == "" && len(r.Words) == 0
}

// Adapter sends one encoded WAV container to a transcription service and
// returns the parsed result or a typed failure. Implementations perform a
// single request with no retries; retry policy belongs to the caller's layer.
type Adapter interface {
	Transcribe(ctx context.Context, wav []byte) (*Result, error)
}

// Config selects and configures a transcription backend.
type Config struct {
	Provider string // "relay", "deepgram" or "openai"
	APIKey   string
	Model    string
	Language string
	Endpoint string // relay only: full URL of the transcription endpoint
	Timeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Provider: "relay",
		Endpoint: "http://localhost:8000/transcribe",
		Timeout:  60 * time.Second,
	}
}

// NewAdapter creates the adapter for the configured provider.
func NewAdapter(cfg Config) (Adapter, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	switch cfg.Provider {
	case "relay":
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("relay endpoint required")
		}
		return NewRelayAdapter(cfg.Endpoint, cfg.Timeout), nil

	case "deepgram":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("Deepgram API key required")
		}
		return NewDeepgramAdapter(cfg.APIKey, cfg.Model, cfg.Language, cfg.Timeout), nil

	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		return NewOpenAIAdapter(cfg), nil

	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}
