package pipeline

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/turnscribe/turnscribe/internal/recording"
	"github.com/turnscribe/turnscribe/internal/transcriber"
	"github.com/turnscribe/turnscribe/internal/transcript"
)

// State of the recording session owned by the controller.
type State string

const (
	Idle       State = "idle"
	Capturing  State = "capturing"
	Encoding   State = "encoding"
	Submitting State = "submitting"
	Completed  State = "completed"
	Failed     State = "failed"
)

// ErrorKind is the failure taxonomy reported to the presentation layer.
type ErrorKind string

const (
	DeviceUnavailable ErrorKind = "device_unavailable"
	FormatUnsupported ErrorKind = "format_unsupported"
	FileIOFailure     ErrorKind = "file_io_failure"
	TransportFailure  ErrorKind = "transport_failure"
	ServiceError      ErrorKind = "service_error"
	MalformedResponse ErrorKind = "malformed_response"
)

// Failure is a typed error with a human-readable detail string. Failures
// are never silently swallowed: every one reaches the outcome channel.
type Failure struct {
	Kind   ErrorKind
	Detail string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Detail)
}

// classify maps component errors onto the failure taxonomy.
func classify(err error) *Failure {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure
	}

	switch {
	case errors.Is(err, recording.ErrDeviceUnavailable):
		return &Failure{Kind: DeviceUnavailable, Detail: err.Error()}
	case transcriber.IsServiceError(err):
		return &Failure{Kind: ServiceError, Detail: err.Error()}
	case transcriber.IsMalformedResponse(err):
		return &Failure{Kind: MalformedResponse, Detail: err.Error()}
	case transcriber.IsTransportError(err):
		return &Failure{Kind: TransportFailure, Detail: err.Error()}
	default:
		return &Failure{Kind: TransportFailure, Detail: err.Error()}
	}
}

// Outcome is published once per session that reaches a terminal state:
// speaker turns, a successful-but-empty result, or a typed failure.
type Outcome struct {
	Session    uuid.UUID
	Turns      []transcript.Turn
	Transcript string // flat transcript; set even when no words carry speakers
	Empty      bool
	Failure    *Failure
}

func (o Outcome) Failed() bool {
	return o.Failure != nil
}
