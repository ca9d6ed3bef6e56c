package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/turnscribe/turnscribe/internal/audio"
	"github.com/turnscribe/turnscribe/internal/config"
	"github.com/turnscribe/turnscribe/internal/transcriber"
	"github.com/turnscribe/turnscribe/internal/transcript"
)

func transcribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe <file.wav>",
		Short: "Transcribe an existing WAV file without recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranscribe(cmd.Context(), args[0])
		},
	}
}

func runTranscribe(ctx context.Context, path string) error {
	cfg, err := config.Load()
	if errors.Is(err, config.ErrConfigNotFound) {
		cfg = config.DefaultConfig()
	} else if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read container %s: %w", path, err)
	}

	// Round-trip through the decoder so a malformed container fails here
	// instead of at the service.
	payload, format, err := audio.Decode(data)
	if err != nil {
		return fmt.Errorf("invalid WAV container %s: %w", path, err)
	}
	fmt.Println(styleMuted.Render(fmt.Sprintf(
		"%s: %.1fs of %d Hz / %d ch audio",
		path, audio.PayloadDuration(payload, format).Seconds(), format.SampleRate, format.Channels)))

	adapter, err := transcriber.NewAdapter(cfg.TranscriberConfig())
	if err != nil {
		return err
	}

	reqCtx, cancel := context.WithTimeout(ctx, cfg.Transcription.Timeout)
	defer cancel()

	result, err := adapter.Transcribe(reqCtx, data)
	if err != nil {
		return fmt.Errorf("transcription failed: %w", err)
	}

	if result.Empty() {
		fmt.Println(styleMuted.Render("No speech detected."))
		return nil
	}

	turns := transcript.Segment(result.Words)
	if len(turns) == 0 {
		// No speaker labels came back; fall back to the flat transcript.
		fmt.Println(result.Transcript)
		return nil
	}

	renderTurns(os.Stdout, turns)
	return nil
}
