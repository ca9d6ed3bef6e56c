package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/turnscribe/turnscribe/internal/audio"
	"github.com/turnscribe/turnscribe/internal/metrics"
	"github.com/turnscribe/turnscribe/internal/recording"
	"github.com/turnscribe/turnscribe/internal/transcriber"
	"github.com/turnscribe/turnscribe/internal/transcript"
)

// ErrBusy is returned by Start while a session is active. Starting during
// an active session is rejected, never silently ignored, so the control
// surface can report it.
var ErrBusy = errors.New("a recording session is already active")

// ErrNoSession is returned by Stop when nothing is being captured.
var ErrNoSession = errors.New("no active recording session")

// Source is the capture device boundary. recording.Recorder implements it.
type Source interface {
	Start(ctx context.Context) (<-chan recording.Frame, <-chan error, error)
	Stop() error
	Wait()
}

type Options struct {
	Format   audio.Format
	StageDir string // when set, the encoded container is also written here
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

// Controller drives one recording session at a time through
// Idle -> Capturing -> Encoding -> Submitting -> {Completed, Failed}.
// Terminal states reset the sample buffer before the next Start is accepted.
type Controller struct {
	source  Source
	adapter transcriber.Adapter
	format  audio.Format
	stage   string
	log     *slog.Logger
	metrics *metrics.Metrics

	mu        sync.Mutex
	state     State
	session   uuid.UUID
	buffer    *audio.Buffer
	cancel    context.CancelFunc
	startedAt time.Time

	collectWg sync.WaitGroup
	outcomes  chan Outcome
}

func New(source Source, adapter transcriber.Adapter, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	format := opts.Format
	if format == (audio.Format{}) {
		format = audio.DefaultFormat()
	}
	return &Controller{
		source:   source,
		adapter:  adapter,
		format:   format,
		stage:    opts.StageDir,
		log:      opts.Logger,
		metrics:  opts.Metrics,
		state:    Idle,
		buffer:   audio.NewBuffer(),
		outcomes: make(chan Outcome, 8),
	}
}

// Outcomes delivers one Outcome per terminal session. The channel is
// buffered; a slow consumer drops outcomes rather than blocking the pipeline.
func (c *Controller) Outcomes() <-chan Outcome {
	return c.outcomes
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns the current session id. Callers holding a session id can
// tell whether a later observation still refers to the same session.
func (c *Controller) Session() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Busy reports whether a session is in flight: capturing, encoding or
// waiting on the transcription service.
func (c *Controller) Busy() bool {
	switch c.State() {
	case Capturing, Encoding, Submitting:
		return true
	}
	return false
}

// Start begins a new recording session. Returns ErrBusy while a session is
// active; a prior terminal state (Completed or Failed) does not block.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()

	switch c.state {
	case Capturing, Encoding, Submitting:
		c.mu.Unlock()
		return ErrBusy
	}

	// A cancelled session's collector may still be draining; wait for it so
	// its leftover frames cannot land in the new session's buffer. collect()
	// never takes c.mu, so waiting under the lock is safe.
	c.collectWg.Wait()

	// Stale data from a prior session must never leak into a new container.
	c.buffer.Reset()
	c.session = uuid.New()
	sess := c.session

	captureCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	frameCh, errCh, err := c.source.Start(captureCtx)
	if err != nil {
		cancel()
		c.cancel = nil
		c.mu.Unlock()
		c.fail(sess, classify(err))
		return err
	}

	c.state = Capturing
	c.startedAt = time.Now()
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.SessionsStarted.Inc()
		c.metrics.Busy.Set(1)
	}
	c.log.Info("recording started", "session", sess)

	c.collectWg.Add(1)
	go c.collect(frameCh, errCh)

	return nil
}

// collect drains capture frames into the sample buffer. Read errors are
// reported but do not abort the session; losing the tail of a recording is
// worse than a gap.
func (c *Controller) collect(frameCh <-chan recording.Frame, errCh <-chan error) {
	defer c.collectWg.Done()

	for frameCh != nil || errCh != nil {
		select {
		case frame, ok := <-frameCh:
			if !ok {
				frameCh = nil
				continue
			}
			c.buffer.Append(frame.Data)
			if c.metrics != nil {
				c.metrics.AudioBytesCaptured.Add(float64(len(frame.Data)))
			}
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				c.log.Warn("capture error mid-session, continuing", "error", err)
			}
		}
	}
}

// Stop tears down the capture tap, encodes the accumulated audio, submits
// it and publishes the outcome. Blocks until the session is terminal; run
// it off the control goroutine.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Capturing {
		c.mu.Unlock()
		return ErrNoSession
	}
	sess := c.session
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	// Tear down the tap, then wait for the capture loop and the collector:
	// the buffer is only read after the last append.
	if cancel != nil {
		cancel()
	}
	_ = c.source.Stop()
	c.source.Wait()
	c.collectWg.Wait()

	c.mu.Lock()
	if c.session != sess || c.state != Capturing {
		// Session was cancelled while we were draining.
		c.mu.Unlock()
		return nil
	}
	c.state = Encoding
	payload := c.buffer.Snapshot()
	recordingSeconds := time.Since(c.startedAt).Seconds()
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordingDuration.Observe(recordingSeconds)
	}
	c.log.Info("recording stopped", "session", sess, "bytes", len(payload))

	wav, err := audio.Encode(payload, c.format)
	if err != nil {
		c.fail(sess, &Failure{Kind: FormatUnsupported, Detail: err.Error()})
		return err
	}

	if c.stage != "" {
		if err := c.stageContainer(sess, wav); err != nil {
			c.fail(sess, &Failure{Kind: FileIOFailure, Detail: err.Error()})
			return err
		}
	}

	c.mu.Lock()
	if c.session != sess {
		c.mu.Unlock()
		return nil
	}
	c.state = Submitting
	c.mu.Unlock()

	submitStart := time.Now()
	result, err := c.adapter.Transcribe(ctx, wav)
	if c.metrics != nil {
		c.metrics.TranscriptionDuration.Observe(time.Since(submitStart).Seconds())
	}

	c.mu.Lock()
	if c.session != sess {
		// A newer session took over while the request was in flight; this
		// result must not touch its state.
		c.mu.Unlock()
		c.log.Info("dropping stale transcription result", "session", sess)
		return nil
	}

	if err != nil {
		c.mu.Unlock()
		c.fail(sess, classify(err))
		return err
	}

	outcome := Outcome{Session: sess, Transcript: result.Transcript}
	if result.Empty() {
		outcome.Empty = true
	} else {
		outcome.Turns = transcript.Segment(result.Words)
	}

	c.state = Completed
	c.buffer.Reset()
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.Busy.Set(0)
		if outcome.Empty {
			c.metrics.SessionsEmpty.Inc()
		} else {
			c.metrics.SessionsCompleted.Inc()
			c.metrics.TurnsEmitted.Add(float64(len(outcome.Turns)))
		}
	}
	c.log.Info("session completed", "session", sess, "turns", len(outcome.Turns), "empty", outcome.Empty)

	c.publish(outcome)
	return nil
}

// Cancel aborts the current session, whatever its state. Any in-flight
// transcription response is invalidated and will be dropped on arrival.
func (c *Controller) Cancel() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.session = uuid.New() // orphan any in-flight result
	c.state = Idle
	c.buffer.Reset()
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	_ = c.source.Stop()

	if c.metrics != nil {
		c.metrics.Busy.Set(0)
	}
	c.log.Info("session cancelled")
}

func (c *Controller) fail(sess uuid.UUID, failure *Failure) {
	c.mu.Lock()
	if c.session != sess {
		c.mu.Unlock()
		c.log.Info("dropping stale failure", "session", sess, "kind", failure.Kind)
		return
	}
	c.state = Failed
	c.buffer.Reset()
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.Busy.Set(0)
		c.metrics.SessionsFailed.WithLabelValues(string(failure.Kind)).Inc()
	}
	c.log.Error("session failed", "session", sess, "kind", failure.Kind, "detail", failure.Detail)

	c.publish(Outcome{Session: sess, Failure: failure})
}

func (c *Controller) publish(outcome Outcome) {
	select {
	case c.outcomes <- outcome:
	default:
		c.log.Warn("outcome dropped: no consumer", "session", outcome.Session)
	}
}

func (c *Controller) stageContainer(sess uuid.UUID, wav []byte) error {
	if err := os.MkdirAll(c.stage, 0o755); err != nil {
		return fmt.Errorf("create stage dir: %w", err)
	}
	path := filepath.Join(c.stage, sess.String()+".wav")
	if err := os.WriteFile(path, wav, 0o644); err != nil {
		return fmt.Errorf("stage container: %w", err)
	}
	c.log.Debug("container staged", "path", path)
	return nil
}
