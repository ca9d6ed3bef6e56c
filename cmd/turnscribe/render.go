package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/turnscribe/turnscribe/internal/transcript"
)

var (
	colorPrimary = lipgloss.Color("12")
	colorAccent  = lipgloss.Color("10")
	colorMuted   = lipgloss.Color("8")

	styleSuccess = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	styleMuted   = lipgloss.NewStyle().Foreground(colorMuted)

	// One style per speaker, cycled when a conversation has more voices
	// than colors.
	speakerStyles = []lipgloss.Style{
		lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
		lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true),
		lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true),
	}
)

// renderTurns writes one line per speaker turn with a colored speaker label
// and a muted time range.
func renderTurns(w io.Writer, turns []transcript.Turn) {
	for _, turn := range turns {
		style := speakerStyles[turn.Speaker%len(speakerStyles)]
		label := style.Render(fmt.Sprintf("Speaker %d", turn.Speaker))
		timing := styleMuted.Render(fmt.Sprintf("[%.2fs - %.2fs]", turn.Start, turn.End))
		fmt.Fprintf(w, "%s %s %s\n", label, timing, turn.Text)
	}
}
