package stream

import (
	"context"
	"errors"
	"fmt"
)

// ErrAborted is returned by Reader.Next once the caller's context has been
// canceled. It marks a graceful stop, not a failure.
var ErrAborted = errors.New("stream aborted")

// TransportError is a stream-level failure: the connection broke, the body
// could not be read, or the upstream answered with a non-2xx status.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("stream transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// FrameParseError reports a single frame whose payload is not valid JSON. It
// is only ever delivered as a Diagnostic; the stream continues.
type FrameParseError struct {
	Payload string
	Err     error
}

func (e *FrameParseError) Error() string {
	return fmt.Sprintf("parsing frame payload: %v", e.Err)
}

func (e *FrameParseError) Unwrap() error {
	return e.Err
}

// IsAbort reports whether err means the caller canceled the stream. Deadlines
// are not aborts, and neither is a real failure that happens to race a cancel.
func IsAbort(err error) bool {
	return errors.Is(err, ErrAborted) || errors.Is(err, context.Canceled)
}

// FormatError renders err as the human-readable text delivered to OnData when
// a stream fails.
func FormatError(err error) string {
	return "[error] " + err.Error()
}
