package daemon

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/turnscribe/turnscribe/internal/bus"
	"github.com/turnscribe/turnscribe/internal/config"
	"github.com/turnscribe/turnscribe/internal/pipeline"
	"github.com/turnscribe/turnscribe/internal/transcript"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestDaemon builds a daemon backed by a config written into a temp
// XDG tree so sockets, pid files and config never touch the real home.
func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	cfg := config.DefaultConfig()
	cfg.Notifications.Enabled = false
	if err := config.Save(cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}

	manager, err := config.NewManager(testLogger())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	d, err := New(manager, testLogger())
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	return d
}

func startDaemon(t *testing.T, d *Daemon) {
	t.Helper()

	done := make(chan error, 1)
	go func() { done <- d.Run() }()
	t.Cleanup(func() {
		d.cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("daemon did not shut down")
		}
	})

	// Wait for the socket to come up.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c, err := bus.Dial(); err == nil {
			c.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("daemon socket never became reachable")
}

func TestDaemonControlCommands(t *testing.T) {
	d := newTestDaemon(t)
	startDaemon(t, d)

	t.Run("status when idle", func(t *testing.T) {
		resp, err := bus.SendCommand(bus.CmdStatus)
		if err != nil {
			t.Fatalf("SendCommand(status) error = %v", err)
		}
		if resp != "STATUS state=idle\n" {
			t.Errorf("status response = %q", resp)
		}
	})

	t.Run("version", func(t *testing.T) {
		resp, err := bus.SendCommand(bus.CmdVersion)
		if err != nil {
			t.Fatalf("SendCommand(version) error = %v", err)
		}
		if !strings.Contains(resp, bus.ProtoVer) {
			t.Errorf("version response = %q, want proto %s", resp, bus.ProtoVer)
		}
	})

	t.Run("finish without a session", func(t *testing.T) {
		resp, err := bus.SendCommand(bus.CmdFinish)
		if err != nil {
			t.Fatalf("SendCommand(finish) error = %v", err)
		}
		if resp != "ERR no_session\n" {
			t.Errorf("finish response = %q", resp)
		}
	})

	t.Run("cancel is always accepted", func(t *testing.T) {
		resp, err := bus.SendCommand(bus.CmdCancel)
		if err != nil {
			t.Fatalf("SendCommand(cancel) error = %v", err)
		}
		if resp != "OK cancelled\n" {
			t.Errorf("cancel response = %q", resp)
		}
	})

	t.Run("unknown command", func(t *testing.T) {
		resp, err := bus.SendCommand('x')
		if err != nil {
			t.Fatalf("SendCommand(x) error = %v", err)
		}
		if !strings.HasPrefix(resp, "ERR unknown=") {
			t.Errorf("unknown command response = %q", resp)
		}
	})
}

func TestDaemonRejectsSecondInstance(t *testing.T) {
	d := newTestDaemon(t)
	startDaemon(t, d)

	second, err := New(d.manager, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := second.Run(); err == nil {
		t.Error("second daemon should refuse to start while the pid file is live")
	}
}

func TestErrToken(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"busy", pipeline.ErrBusy, "busy"},
		{"no session", pipeline.ErrNoSession, "no_session"},
		{"other", errors.New("boom\nbang"), "boom bang"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errToken(tt.err); got != tt.want {
				t.Errorf("errToken() = %q, want %q", got, tt.want)
			}
		})
	}
}

type recordingNotifier struct {
	mu        sync.Mutex
	completed []int
	failed    []string
}

func (n *recordingNotifier) RecordingStarted() {}
func (n *recordingNotifier) RecordingStopped() {}

func (n *recordingNotifier) Completed(turns int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, turns)
}

func (n *recordingNotifier) Failed(detail string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, detail)
}

func TestReport(t *testing.T) {
	d := newTestDaemon(t)
	notifier := &recordingNotifier{}
	d.notifier = notifier

	d.report(pipeline.Outcome{Turns: []transcript.Turn{
		{Speaker: 0, Text: "Hello world."},
		{Speaker: 1, Text: "Hi."},
	}})
	d.report(pipeline.Outcome{Empty: true})
	d.report(pipeline.Outcome{Failure: &pipeline.Failure{
		Kind:   pipeline.ServiceError,
		Detail: "quota exceeded",
	}})

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.completed) != 2 || notifier.completed[0] != 2 || notifier.completed[1] != 0 {
		t.Errorf("completed notifications = %v, want [2 0]", notifier.completed)
	}
	if len(notifier.failed) != 1 || notifier.failed[0] != "quota exceeded" {
		t.Errorf("failed notifications = %v, want [quota exceeded]", notifier.failed)
	}
}
