package stream

// DiagnosticKind classifies a Diagnostic.
type DiagnosticKind string

const (
	// DiagnosticFrameParse: a frame's payload was not valid JSON.
	DiagnosticFrameParse DiagnosticKind = "frame_parse"

	// DiagnosticErrorFrame: the upstream reported an error in-band
	// ({"error": ...}) instead of failing the HTTP response.
	DiagnosticErrorFrame DiagnosticKind = "error_frame"
)

// Diagnostic describes a frame that was dropped without ending the stream.
type Diagnostic struct {
	Kind    DiagnosticKind
	Payload string
	Err     error
}

// DiagnosticFunc receives diagnostics synchronously from the reading
// goroutine. It must not block.
type DiagnosticFunc func(Diagnostic)
