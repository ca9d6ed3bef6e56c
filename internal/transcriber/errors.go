package transcriber

import (
	"errors"
	"fmt"
)

// TransportError marks a network-level failure: the service was never
// reached or the connection broke before a response arrived.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	if e == nil || e.Err == nil {
		return "transport error"
	}
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ServiceError marks a reachable service that answered with a non-success
// status or an explicit error payload. Message carries the service's own
// wording verbatim.
type ServiceError struct {
	Status  int
	Message string
}

func (e *ServiceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("service error (status %d): %s", e.Status, e.Message)
	}
	return e.Message
}

// MalformedResponseError marks a success status whose payload did not parse
// into the expected shape.
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	if e == nil || e.Err == nil {
		return "malformed response"
	}
	return fmt.Sprintf("malformed response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

func IsServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}

func IsMalformedResponse(err error) bool {
	var me *MalformedResponseError
	return errors.As(err, &me)
}
