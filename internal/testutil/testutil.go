// Package testutil provides shared fixtures and fakes for tests.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/turnscribe/turnscribe/internal/config"
	"github.com/turnscribe/turnscribe/internal/recording"
	"github.com/turnscribe/turnscribe/internal/transcriber"
	"github.com/turnscribe/turnscribe/internal/transcript"
)

// TestConfig returns a valid configuration for testing.
func TestConfig() *config.Config {
	return &config.Config{
		Recording: config.RecordingConfig{
			SampleRate:        16000,
			Channels:          1,
			Format:            "s16",
			BufferSize:        8192,
			Device:            "",
			ChannelBufferSize: 30,
			Timeout:           5 * time.Minute,
		},
		Transcription: config.TranscriptionConfig{
			Provider: "relay",
			Endpoint: "http://localhost:8000/transcribe",
			Timeout:  30 * time.Second,
		},
		Notifications: config.NotificationsConfig{
			Enabled: true,
			Type:    "log",
		},
		Logging: config.LoggingConfig{
			Level: "debug",
		},
		Providers: map[string]config.ProviderConfig{
			"deepgram": {APIKey: "test-api-key"},
		},
	}
}

// FakeSource implements the pipeline's capture boundary, delivering a fixed
// set of frames and then holding the channel open until stopped.
type FakeSource struct {
	Frames [][]byte
	Err    error // returned from Start when set

	mu      sync.Mutex
	frameCh chan recording.Frame
	errCh   chan error
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started int
	stopped int
}

func (s *FakeSource) Start(ctx context.Context) (<-chan recording.Frame, <-chan error, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return nil, nil, s.Err
	}

	s.started++
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.frameCh = make(chan recording.Frame, len(s.Frames)+1)
	s.errCh = make(chan error, 1)

	frameCh, errCh := s.frameCh, s.errCh
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(frameCh)
		defer close(errCh)

		// The channel is sized to hold every frame, so delivery completes
		// even when the session is stopped immediately after starting.
		for _, data := range s.Frames {
			frameCh <- recording.Frame{Data: data, Timestamp: time.Now()}
		}
		<-runCtx.Done()
	}()

	return frameCh, errCh, nil
}

func (s *FakeSource) Stop() error {
	s.mu.Lock()
	s.stopped++
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}

func (s *FakeSource) Wait() {
	s.wg.Wait()
}

// StartCount reports how many capture sessions were started.
func (s *FakeSource) StartCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// FakeAdapter implements transcriber.Adapter with a canned result.
type FakeAdapter struct {
	Result *transcriber.Result
	Err    error
	Delay  time.Duration // simulated service latency

	mu       sync.Mutex
	requests [][]byte
}

func (a *FakeAdapter) Transcribe(ctx context.Context, wav []byte) (*transcriber.Result, error) {
	a.mu.Lock()
	a.requests = append(a.requests, wav)
	a.mu.Unlock()

	if a.Delay > 0 {
		select {
		case <-time.After(a.Delay):
		case <-ctx.Done():
			return nil, &transcriber.TransportError{Err: ctx.Err()}
		}
	}

	if a.Err != nil {
		return nil, a.Err
	}
	if a.Result == nil {
		return &transcriber.Result{}, nil
	}
	return a.Result, nil
}

// Requests returns the WAV bodies the adapter has received.
func (a *FakeAdapter) Requests() [][]byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([][]byte, len(a.requests))
	copy(out, a.requests)
	return out
}

// DiarizedResult builds a two-speaker result for pipeline tests.
func DiarizedResult() *transcriber.Result {
	s0, s1 := 0, 1
	return &transcriber.Result{
		Transcript: "hello world hi",
		Words: []transcript.Word{
			{Text: "hello", Start: 0.0, End: 0.5, Speaker: &s0},
			{Text: "world", Start: 0.5, End: 1.0, Speaker: &s0},
			{Text: "hi", Start: 1.0, End: 1.3, Speaker: &s1},
		},
	}
}

// Frames splits a payload into n roughly equal capture frames.
func Frames(payload []byte, n int) [][]byte {
	if n <= 0 {
		n = 1
	}
	size := (len(payload) + n - 1) / n
	var frames [][]byte
	for start := 0; start < len(payload); start += size {
		end := start + size
		if end > len(payload) {
			end = len(payload)
		}
		frames = append(frames, payload[start:end])
	}
	return frames
}

// Eventually polls cond until it holds or the timeout elapses.
func Eventually(timeout time.Duration, cond func() bool) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return nil
		}
		time.Sleep(5 * time.Millisecond)
	}
	return fmt.Errorf("condition not met within %v", timeout)
}
