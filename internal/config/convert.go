package config

import (
	"github.com/turnscribe/turnscribe/internal/recording"
	"github.com/turnscribe/turnscribe/internal/transcriber"
)

// RecorderConfig converts the recording section for the capture layer.
func (c *Config) RecorderConfig() recording.Config {
	return recording.Config{
		SampleRate:        c.Recording.SampleRate,
		Channels:          c.Recording.Channels,
		Format:            c.Recording.Format,
		BufferSize:        c.Recording.BufferSize,
		Device:            c.Recording.Device,
		ChannelBufferSize: c.Recording.ChannelBufferSize,
	}
}

// TranscriberConfig converts the transcription section for the adapter
// factory, resolving the provider's API key.
func (c *Config) TranscriberConfig() transcriber.Config {
	return transcriber.Config{
		Provider: c.Transcription.Provider,
		APIKey:   c.ResolveAPIKey(c.Transcription.Provider),
		Model:    c.Transcription.Model,
		Language: c.Transcription.Language,
		Endpoint: c.Transcription.Endpoint,
		Timeout:  c.Transcription.Timeout,
	}
}
