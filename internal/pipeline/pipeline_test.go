package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/turnscribe/turnscribe/internal/audio"
	"github.com/turnscribe/turnscribe/internal/metrics"
	"github.com/turnscribe/turnscribe/internal/recording"
	"github.com/turnscribe/turnscribe/internal/testutil"
	"github.com/turnscribe/turnscribe/internal/transcriber"
	"github.com/turnscribe/turnscribe/internal/transcript"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newController(source Source, adapter transcriber.Adapter) *Controller {
	return New(source, adapter, Options{Logger: testLogger()})
}

func waitOutcome(t *testing.T, c *Controller) Outcome {
	t.Helper()
	select {
	case outcome := <-c.Outcomes():
		return outcome
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for outcome")
		return Outcome{}
	}
}

func TestControllerHappyPath(t *testing.T) {
	payload := bytes.Repeat([]byte{0x11, 0x22}, 512)
	source := &testutil.FakeSource{Frames: testutil.Frames(payload, 4)}
	adapter := &testutil.FakeAdapter{Result: testutil.DiarizedResult()}

	reg := prometheus.NewRegistry()
	c := New(source, adapter, Options{Logger: testLogger(), Metrics: metrics.New(reg)})

	if c.State() != Idle {
		t.Fatalf("initial state = %s, want idle", c.State())
	}

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if c.State() != Capturing {
		t.Errorf("state after Start() = %s, want capturing", c.State())
	}
	if !c.Busy() {
		t.Error("Busy() = false while capturing, want true")
	}

	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	outcome := waitOutcome(t, c)
	if outcome.Failed() {
		t.Fatalf("outcome failed: %v", outcome.Failure)
	}
	if outcome.Empty {
		t.Error("outcome empty, want turns")
	}
	want := []transcript.Turn{
		{Speaker: 0, Text: "hello world", Start: 0.0, End: 1.0},
		{Speaker: 1, Text: "hi", Start: 1.0, End: 1.3},
	}
	if len(outcome.Turns) != len(want) {
		t.Fatalf("turns = %+v, want %+v", outcome.Turns, want)
	}
	for i := range want {
		if outcome.Turns[i] != want[i] {
			t.Errorf("turn %d = %+v, want %+v", i, outcome.Turns[i], want[i])
		}
	}

	if c.State() != Completed {
		t.Errorf("state = %s, want completed", c.State())
	}
	if c.Busy() {
		t.Error("Busy() = true after completion, want false")
	}

	// The submitted container must decode back to exactly the captured PCM.
	requests := adapter.Requests()
	if len(requests) != 1 {
		t.Fatalf("adapter received %d requests, want 1", len(requests))
	}
	decoded, format, err := audio.Decode(requests[0])
	if err != nil {
		t.Fatalf("Decode(submitted) error = %v", err)
	}
	if !bytes.Equal(decoded, payload) {
		t.Errorf("submitted payload = %d bytes, want %d captured bytes", len(decoded), len(payload))
	}
	if format != audio.DefaultFormat() {
		t.Errorf("submitted format = %+v, want default", format)
	}
}

func TestControllerRejectsStartWhileBusy(t *testing.T) {
	source := &testutil.FakeSource{Frames: [][]byte{{0x01, 0x02}}}
	adapter := &testutil.FakeAdapter{Result: testutil.DiarizedResult()}
	c := newController(source, adapter)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := c.Start(context.Background()); err != ErrBusy {
		t.Errorf("second Start() error = %v, want ErrBusy", err)
	}
	if source.StartCount() != 1 {
		t.Errorf("source started %d times, want 1", source.StartCount())
	}

	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	waitOutcome(t, c)

	// Terminal state accepts a new session.
	if err := c.Start(context.Background()); err != nil {
		t.Errorf("Start() after completion error = %v", err)
	}
	c.Cancel()
}

func TestControllerStopWithoutSession(t *testing.T) {
	c := newController(&testutil.FakeSource{}, &testutil.FakeAdapter{})

	if err := c.Stop(context.Background()); err != ErrNoSession {
		t.Errorf("Stop() error = %v, want ErrNoSession", err)
	}
}

func TestControllerDeviceUnavailable(t *testing.T) {
	source := &testutil.FakeSource{
		Err: fmt.Errorf("%w: pw-record not found", recording.ErrDeviceUnavailable),
	}
	c := newController(source, &testutil.FakeAdapter{})

	if err := c.Start(context.Background()); err == nil {
		t.Fatal("Start() should fail when the device is unavailable")
	}

	outcome := waitOutcome(t, c)
	if !outcome.Failed() || outcome.Failure.Kind != DeviceUnavailable {
		t.Errorf("outcome = %+v, want DeviceUnavailable failure", outcome)
	}
	if c.State() != Failed {
		t.Errorf("state = %s, want failed", c.State())
	}
}

func TestControllerFailureKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{
			name: "service error",
			err:  &transcriber.ServiceError{Message: "Deepgram error: invalid auth"},
			want: ServiceError,
		},
		{
			name: "malformed response",
			err:  &transcriber.MalformedResponseError{Err: fmt.Errorf("unexpected shape")},
			want: MalformedResponse,
		},
		{
			name: "transport failure",
			err:  &transcriber.TransportError{Err: fmt.Errorf("connection refused")},
			want: TransportFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &testutil.FakeSource{Frames: [][]byte{{0x01, 0x02}}}
			adapter := &testutil.FakeAdapter{Err: tt.err}
			c := newController(source, adapter)

			if err := c.Start(context.Background()); err != nil {
				t.Fatalf("Start() error = %v", err)
			}
			if err := c.Stop(context.Background()); err == nil {
				t.Fatal("Stop() should surface the adapter error")
			}

			outcome := waitOutcome(t, c)
			if !outcome.Failed() || outcome.Failure.Kind != tt.want {
				t.Errorf("outcome = %+v, want %s failure", outcome, tt.want)
			}
			if outcome.Failure != nil && outcome.Failure.Detail == "" {
				t.Error("failure detail should carry the service message")
			}
		})
	}
}

func TestControllerEmptyOutcome(t *testing.T) {
	source := &testutil.FakeSource{Frames: [][]byte{{0x01, 0x02}}}
	adapter := &testutil.FakeAdapter{Result: &transcriber.Result{}}
	c := newController(source, adapter)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	outcome := waitOutcome(t, c)
	if outcome.Failed() {
		t.Fatalf("outcome failed: %v", outcome.Failure)
	}
	if !outcome.Empty {
		t.Error("outcome.Empty = false for no-speech response, want true")
	}
	if len(outcome.Turns) != 0 {
		t.Errorf("turns = %+v, want none", outcome.Turns)
	}
}

func TestControllerUndiarizedResultKeepsTranscript(t *testing.T) {
	source := &testutil.FakeSource{Frames: [][]byte{{0x01, 0x02}}}
	adapter := &testutil.FakeAdapter{Result: &transcriber.Result{
		Transcript: "plain whisper text",
		Words: []transcript.Word{
			{Text: "plain", Start: 0, End: 0.4},
			{Text: "whisper", Start: 0.4, End: 0.9},
			{Text: "text", Start: 0.9, End: 1.2},
		},
	}}
	c := newController(source, adapter)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	outcome := waitOutcome(t, c)
	if outcome.Empty || outcome.Failed() {
		t.Fatalf("outcome = %+v, want plain success", outcome)
	}
	if len(outcome.Turns) != 0 {
		t.Errorf("turns = %+v, want none without speaker ids", outcome.Turns)
	}
	if outcome.Transcript != "plain whisper text" {
		t.Errorf("transcript = %q, want flat text preserved", outcome.Transcript)
	}
}

func TestControllerStaleResultDropped(t *testing.T) {
	source := &testutil.FakeSource{Frames: [][]byte{{0x01, 0x02}}}
	adapter := &testutil.FakeAdapter{
		Result: testutil.DiarizedResult(),
		Delay:  200 * time.Millisecond,
	}
	c := newController(source, adapter)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	stopDone := make(chan error, 1)
	go func() { stopDone <- c.Stop(context.Background()) }()

	if err := testutil.Eventually(2*time.Second, func() bool {
		return c.State() == Submitting
	}); err != nil {
		t.Fatal(err)
	}

	// Cancel while the request is in flight; its late result must not
	// overwrite the newer (idle) state or publish an outcome.
	c.Cancel()
	if err := <-stopDone; err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	select {
	case outcome := <-c.Outcomes():
		t.Errorf("stale session published outcome %+v, want none", outcome)
	case <-time.After(100 * time.Millisecond):
	}

	if c.State() != Idle {
		t.Errorf("state = %s, want idle after cancel", c.State())
	}
}

func TestControllerBufferResetBetweenSessions(t *testing.T) {
	first := bytes.Repeat([]byte{0xAA}, 64)
	second := bytes.Repeat([]byte{0xBB}, 32)

	adapter := &testutil.FakeAdapter{Result: testutil.DiarizedResult()}
	sourceOne := &testutil.FakeSource{Frames: testutil.Frames(first, 2)}
	c := newController(sourceOne, adapter)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	waitOutcome(t, c)

	// Second session through the same controller must contain only its own
	// audio.
	sourceOne.Frames = testutil.Frames(second, 1)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
	waitOutcome(t, c)

	requests := adapter.Requests()
	if len(requests) != 2 {
		t.Fatalf("adapter received %d requests, want 2", len(requests))
	}
	decoded, _, err := audio.Decode(requests[1])
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(decoded, second) {
		t.Errorf("second session payload = %d bytes, want %d bytes of fresh audio", len(decoded), len(second))
	}
}

func TestControllerEmptyRecordingStillSubmits(t *testing.T) {
	// Zero captured bytes produce a legal header-only container; whether
	// that is "no speech" is the service's call.
	source := &testutil.FakeSource{}
	adapter := &testutil.FakeAdapter{Result: &transcriber.Result{}}
	c := newController(source, adapter)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	outcome := waitOutcome(t, c)
	if !outcome.Empty {
		t.Errorf("outcome = %+v, want empty success", outcome)
	}

	requests := adapter.Requests()
	if len(requests) != 1 {
		t.Fatalf("adapter received %d requests, want 1", len(requests))
	}
	if len(requests[0]) != audio.HeaderSize {
		t.Errorf("submitted container = %d bytes, want header-only %d", len(requests[0]), audio.HeaderSize)
	}
}

func TestControllerStagesContainer(t *testing.T) {
	dir := t.TempDir()
	source := &testutil.FakeSource{Frames: [][]byte{{0x01, 0x02, 0x03, 0x04}}}
	adapter := &testutil.FakeAdapter{Result: testutil.DiarizedResult()}
	c := New(source, adapter, Options{Logger: testLogger(), StageDir: dir})

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	outcome := waitOutcome(t, c)
	if outcome.Failed() {
		t.Fatalf("outcome failed: %v", outcome.Failure)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("staged %d files, want 1", len(entries))
	}
	if filepath.Ext(entries[0].Name()) != ".wav" {
		t.Errorf("staged file = %q, want .wav extension", entries[0].Name())
	}
}
