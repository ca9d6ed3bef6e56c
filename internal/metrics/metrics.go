package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments for the recording pipeline.
type Metrics struct {
	SessionsStarted       prometheus.Counter
	SessionsCompleted     prometheus.Counter
	SessionsEmpty         prometheus.Counter
	SessionsFailed        *prometheus.CounterVec
	RecordingDuration     prometheus.Histogram
	TranscriptionDuration prometheus.Histogram
	AudioBytesCaptured    prometheus.Counter
	TurnsEmitted          prometheus.Counter
	Busy                  prometheus.Gauge
}

// New creates and registers all pipeline metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "turnscribe_sessions_started_total",
			Help: "Total number of recording sessions started",
		}),
		SessionsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "turnscribe_sessions_completed_total",
			Help: "Total number of sessions that produced a transcript",
		}),
		SessionsEmpty: factory.NewCounter(prometheus.CounterOpts{
			Name: "turnscribe_sessions_empty_total",
			Help: "Total number of sessions where no speech was detected",
		}),
		SessionsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "turnscribe_sessions_failed_total",
			Help: "Total number of failed sessions by error kind",
		}, []string{"kind"}),
		RecordingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "turnscribe_recording_duration_seconds",
			Help:    "Duration of recording sessions",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~17 minutes
		}),
		TranscriptionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "turnscribe_transcription_duration_seconds",
			Help:    "Latency of transcription requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),
		AudioBytesCaptured: factory.NewCounter(prometheus.CounterOpts{
			Name: "turnscribe_audio_bytes_captured_total",
			Help: "Total raw PCM bytes accumulated across sessions",
		}),
		TurnsEmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "turnscribe_speaker_turns_total",
			Help: "Total speaker turns emitted by the segmenter",
		}),
		Busy: factory.NewGauge(prometheus.GaugeOpts{
			Name: "turnscribe_pipeline_busy",
			Help: "Whether a recording session is currently active (0 or 1)",
		}),
	}
}

// Default registers on the global Prometheus registry.
func Default() *Metrics {
	return New(prometheus.DefaultRegisterer)
}

// Serve exposes /metrics on addr until the context is cancelled.
func Serve(ctx context.Context, addr string, log *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("metrics listener started", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
