package notify

import (
	"fmt"
	"log/slog"
	"os/exec"
)

const appName = "Turnscribe"

// Notifier surfaces session lifecycle events to the user.
type Notifier interface {
	RecordingStarted()
	RecordingStopped()
	Completed(turns int)
	Failed(detail string)
}

// New picks a notifier implementation by name. Unknown names and disabled
// notifications both get the Nop notifier.
func New(enabled bool, kind string, log *slog.Logger) Notifier {
	if !enabled {
		return Nop{}
	}
	switch kind {
	case "desktop", "":
		return Desktop{}
	case "log":
		return Log{log: log}
	default:
		return Nop{}
	}
}

// Desktop sends notifications through notify-send.
type Desktop struct{}

func (Desktop) RecordingStarted() {
	send(fmt.Sprintf("%s: Recording Started", appName))
}

func (Desktop) RecordingStopped() {
	send(fmt.Sprintf("%s: Transcribing...", appName))
}

func (Desktop) Completed(turns int) {
	send(fmt.Sprintf("%s: Transcript ready (%d turns)", appName, turns))
}

func (Desktop) Failed(detail string) {
	cmd := exec.Command("notify-send", "-a", appName, "-u", "critical",
		fmt.Sprintf("%s: %s", appName, detail))
	if err := cmd.Run(); err != nil {
		slog.Warn("failed to send error notification", "error", err)
	}
}

func send(msg string) {
	cmd := exec.Command("notify-send", "-a", appName, msg)
	if err := cmd.Run(); err != nil {
		slog.Warn("failed to send notification", "error", err)
	}
}

// Log writes notifications to the structured log. Useful on headless hosts
// without a notification daemon.
type Log struct {
	log *slog.Logger
}

func (l Log) logger() *slog.Logger {
	if l.log != nil {
		return l.log
	}
	return slog.Default()
}

func (l Log) RecordingStarted() { l.logger().Info("recording started") }
func (l Log) RecordingStopped() { l.logger().Info("recording stopped, transcribing") }

func (l Log) Completed(turns int) {
	l.logger().Info("transcript ready", "turns", turns)
}

func (l Log) Failed(detail string) {
	l.logger().Error("session failed", "detail", detail)
}

// Nop is a Notifier that does absolutely nothing.
// Useful in unit tests or headless builds.
type Nop struct{}

func (Nop) RecordingStarted()   {}
func (Nop) RecordingStopped()   {}
func (Nop) Completed(turns int) {}
func (Nop) Failed(detail string) {}
