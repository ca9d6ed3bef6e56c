package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/turnscribe/turnscribe/internal/config"
)

func configureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactive configuration setup",
		Long: `Interactive configuration wizard for turnscribe.
This will guide you through setting up:
- The transcription provider and its API key
- Recording parameters
- Notification preferences`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure()
		},
	}
}

func runConfigure() error {
	cfg, err := config.Load()
	if errors.Is(err, config.ErrConfigNotFound) {
		cfg = config.DefaultConfig()
	} else if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	provider := cfg.Transcription.Provider
	endpoint := cfg.Transcription.Endpoint
	model := cfg.Transcription.Model
	language := cfg.Transcription.Language
	apiKey := ""
	sampleRate := strconv.Itoa(cfg.Recording.SampleRate)
	notifications := cfg.Notifications.Type
	if !cfg.Notifications.Enabled {
		notifications = "none"
	}

	providerForm := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Transcription Provider").
				Description(fmt.Sprintf("Currently: %s", cfg.Transcription.Provider)).
				Options(
					huh.NewOption("Relay backend (self-hosted)", "relay"),
					huh.NewOption("Deepgram", "deepgram"),
					huh.NewOption("OpenAI Whisper", "openai"),
				).
				Value(&provider),
		),
	).WithTheme(formTheme())

	if err := providerForm.Run(); err != nil {
		return fmt.Errorf("configuration wizard error: %w", err)
	}

	var fields []huh.Field
	switch provider {
	case "relay":
		fields = append(fields, huh.NewInput().
			Title("Relay Endpoint").
			Description("URL of the transcription backend").
			Placeholder("http://localhost:8000/transcribe").
			Value(&endpoint))
	default:
		fields = append(fields, huh.NewInput().
			Title("API Key").
			Description("Leave empty to keep the current key or use the environment").
			EchoMode(huh.EchoModePassword).
			Value(&apiKey))
		fields = append(fields, huh.NewInput().
			Title("Model").
			Description("Empty uses the provider default").
			Value(&model))
	}
	fields = append(fields,
		huh.NewInput().
			Title("Language").
			Description("ISO-639-1 code (e.g. 'en') or empty for auto-detect").
			Placeholder("auto-detect").
			Value(&language),
		huh.NewInput().
			Title("Sample Rate").
			Description("Capture sample rate in Hz").
			Value(&sampleRate),
		huh.NewSelect[string]().
			Title("Notifications").
			Options(
				huh.NewOption("Desktop (notify-send)", "desktop"),
				huh.NewOption("Log only", "log"),
				huh.NewOption("None", "none"),
			).
			Value(&notifications),
	)

	detailForm := huh.NewForm(huh.NewGroup(fields...)).WithTheme(formTheme())
	if err := detailForm.Run(); err != nil {
		return fmt.Errorf("configuration wizard error: %w", err)
	}

	cfg.Transcription.Provider = provider
	cfg.Transcription.Endpoint = endpoint
	cfg.Transcription.Model = model
	cfg.Transcription.Language = language
	if apiKey != "" {
		if cfg.Providers == nil {
			cfg.Providers = make(map[string]config.ProviderConfig)
		}
		cfg.Providers[provider] = config.ProviderConfig{APIKey: apiKey}
	}
	if rate, err := strconv.Atoi(sampleRate); err == nil && rate > 0 {
		cfg.Recording.SampleRate = rate
	}
	cfg.Notifications.Enabled = notifications != "none"
	if notifications != "none" {
		cfg.Notifications.Type = notifications
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Println()
	fmt.Println(styleSuccess.Render("Configuration saved."))
	fmt.Println(styleMuted.Render("Run 'turnscribe serve' to start the daemon."))
	return nil
}

func formTheme() *huh.Theme {
	t := huh.ThemeBase()
	t.Focused.Title = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	t.Focused.Description = lipgloss.NewStyle().Foreground(colorMuted)
	t.Focused.SelectedOption = lipgloss.NewStyle().Foreground(colorAccent)
	return t
}
