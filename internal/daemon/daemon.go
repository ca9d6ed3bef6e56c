package daemon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/turnscribe/turnscribe/internal/bus"
	"github.com/turnscribe/turnscribe/internal/config"
	"github.com/turnscribe/turnscribe/internal/metrics"
	"github.com/turnscribe/turnscribe/internal/notify"
	"github.com/turnscribe/turnscribe/internal/pipeline"
	"github.com/turnscribe/turnscribe/internal/recording"
	"github.com/turnscribe/turnscribe/internal/transcriber"
)

// Daemon owns the control socket and drives the recording pipeline from
// client commands.
type Daemon struct {
	manager  *config.Manager
	notifier notify.Notifier
	log      *slog.Logger

	controller *pipeline.Controller

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(manager *config.Manager, log *slog.Logger) (*Daemon, error) {
	if log == nil {
		log = slog.Default()
	}
	cfg := manager.GetConfig()

	recorder := recording.NewRecorder(cfg.RecorderConfig(), log)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.Default()
	}

	controller := pipeline.New(recorder, &reloadingAdapter{manager: manager}, pipeline.Options{
		StageDir: cfg.Recording.StageDir,
		Logger:   log,
		Metrics:  m,
	})

	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		manager:    manager,
		notifier:   notify.New(cfg.Notifications.Enabled, cfg.Notifications.Type, log),
		log:        log,
		controller: controller,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Run blocks serving the control socket until a quit command or signal.
func (d *Daemon) Run() error {
	if err := bus.CheckExistingDaemon(); err != nil {
		return err
	}

	ln, err := bus.Listen()
	if err != nil {
		return err
	}
	defer ln.Close()

	if err := bus.CreatePidFile(); err != nil {
		return fmt.Errorf("create pid file: %w", err)
	}
	defer bus.RemovePidFile()

	if err := d.manager.StartWatching(d.ctx); err != nil {
		d.log.Warn("config watching disabled", "error", err)
	}
	defer d.manager.Stop()

	if cfg := d.manager.GetConfig(); cfg.Metrics.Enabled {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := metrics.Serve(d.ctx, cfg.Metrics.Addr, d.log); err != nil {
				d.log.Warn("metrics server stopped", "error", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			d.log.Info("received signal, shutting down", "signal", sig)
			d.cancel()
		case <-d.ctx.Done():
		}
	}()

	// Unblock Accept on shutdown.
	go func() {
		<-d.ctx.Done()
		ln.Close()
	}()

	d.wg.Add(1)
	go d.consumeOutcomes()

	d.log.Info("daemon started", "socket", bus.SockName)

	for {
		c, err := ln.Accept()
		if err != nil {
			if d.ctx.Err() != nil {
				d.controller.Cancel()
				d.wg.Wait()
				d.log.Info("daemon stopped")
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		go d.handle(c)
	}
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		fmt.Fprintf(c, "ERR read_error: %v\n", err)
		return
	}
	if len(line) == 0 {
		fmt.Fprint(c, "ERR empty\n")
		return
	}

	switch line[0] {
	case bus.CmdStart:
		if err := d.controller.Start(d.ctx); err != nil {
			fmt.Fprintf(c, "ERR %s\n", errToken(err))
			return
		}
		d.notifier.RecordingStarted()
		go d.watchTimeout(d.controller.Session())
		fmt.Fprint(c, "OK recording\n")

	case bus.CmdFinish:
		if d.controller.State() != pipeline.Capturing {
			fmt.Fprint(c, "ERR no_session\n")
			return
		}
		d.notifier.RecordingStopped()
		fmt.Fprint(c, "OK transcribing\n")
		// Stop blocks through encode and submit; the outcome consumer
		// reports the result.
		go func() {
			if err := d.controller.Stop(d.ctx); err != nil {
				d.log.Warn("session did not complete", "error", err)
			}
		}()

	case bus.CmdCancel:
		d.controller.Cancel()
		fmt.Fprint(c, "OK cancelled\n")

	case bus.CmdStatus:
		fmt.Fprintf(c, "STATUS state=%s\n", d.controller.State())

	case bus.CmdVersion:
		fmt.Fprintf(c, "STATUS proto=%s\n", bus.ProtoVer)

	case bus.CmdQuit:
		fmt.Fprint(c, "OK quitting\n")
		d.cancel()

	default:
		fmt.Fprintf(c, "ERR unknown=%q\n", line[0])
	}
}

// watchTimeout force-stops a session that hits the configured recording
// limit. The session id guard keeps an expired timer from touching a later
// session.
func (d *Daemon) watchTimeout(sess uuid.UUID) {
	timeout := d.manager.GetConfig().Recording.Timeout
	if timeout <= 0 {
		return
	}

	select {
	case <-time.After(timeout):
	case <-d.ctx.Done():
		return
	}

	if d.controller.State() != pipeline.Capturing || d.controller.Session() != sess {
		return
	}

	d.log.Warn("recording timeout reached, stopping session", "timeout", timeout)
	d.notifier.RecordingStopped()
	if err := d.controller.Stop(d.ctx); err != nil {
		d.log.Warn("session did not complete after timeout", "error", err)
	}
}

// consumeOutcomes turns terminal session results into notifications and log
// lines.
func (d *Daemon) consumeOutcomes() {
	defer d.wg.Done()

	for {
		select {
		case outcome := <-d.controller.Outcomes():
			d.report(outcome)
		case <-d.ctx.Done():
			return
		}
	}
}

func (d *Daemon) report(outcome pipeline.Outcome) {
	if outcome.Failed() {
		d.notifier.Failed(outcome.Failure.Detail)
		return
	}
	if outcome.Empty {
		d.notifier.Completed(0)
		return
	}

	d.notifier.Completed(len(outcome.Turns))
	for _, turn := range outcome.Turns {
		d.log.Info("turn", "speaker", turn.Speaker, "start", turn.Start, "end", turn.End, "text", turn.Text)
	}
}

func errToken(err error) string {
	switch {
	case errors.Is(err, pipeline.ErrBusy):
		return "busy"
	case errors.Is(err, pipeline.ErrNoSession):
		return "no_session"
	default:
		return strings.ReplaceAll(err.Error(), "\n", " ")
	}
}

// reloadingAdapter builds a transcription adapter from the live config on
// every submission so provider changes take effect without a restart.
type reloadingAdapter struct {
	manager *config.Manager
}

func (r *reloadingAdapter) Transcribe(ctx context.Context, wav []byte) (*transcriber.Result, error) {
	adapter, err := transcriber.NewAdapter(r.manager.GetConfig().TranscriberConfig())
	if err != nil {
		return nil, err
	}
	return adapter.Transcribe(ctx, wav)
}
