// Package stream consumes a chat completion event stream and turns it into
// content deltas.
//
// A Reader moves through one state machine per stream:
//
//	STREAMING ──▶ OK_DONE   body exhausted
//	    │
//	    ├──────▶ ABORTED   caller canceled the context
//	    │
//	    └──────▶ ERRORED   transport failure
//
// Malformed frames never leave STREAMING: they are reported as Diagnostics and
// dropped.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/mathai/pkg/logger"
	"github.com/papercomputeco/mathai/pkg/sse"
)

// DefaultChunkSize is the size of a single body read.
const DefaultChunkSize = 32 * 1024

// Delta is a non-empty fragment of generated text.
type Delta struct {
	Text string
}

type state int

const (
	stateStreaming state = iota
	stateDone
	stateAborted
	stateErrored
)

// Option configures a Reader.
type Option func(*options)

type options struct {
	logger      *zap.Logger
	diagnostics DiagnosticFunc
	chunkSize   int
}

// WithLogger sets the logger used for dropped frames and terminal states.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithDiagnostics subscribes fn to dropped-frame diagnostics.
func WithDiagnostics(fn DiagnosticFunc) Option {
	return func(o *options) {
		o.diagnostics = fn
	}
}

// WithChunkSize overrides the size of a single body read.
func WithChunkSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

// Reader decodes an event stream body into Deltas. It owns its frame buffer
// and accumulated content; use one Reader per stream.
type Reader struct {
	ctx  context.Context
	body io.Reader
	opts options

	decoder *sse.Decoder
	buf     []byte
	pending []string
	content strings.Builder

	state state
	err   error
}

// NewReader returns a Reader over body. ctx is the cancellation signal: once
// it is canceled the Reader stops without attempting another read.
func NewReader(ctx context.Context, body io.Reader, opts ...Option) *Reader {
	o := options{
		logger:    logger.Nop(),
		chunkSize: DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Reader{
		ctx:     ctx,
		body:    body,
		opts:    o,
		decoder: sse.NewDecoder(),
		buf:     make([]byte, o.chunkSize),
	}
}

// Next returns the next non-empty delta. At the end of the stream it returns
// (nil, nil); after cancellation (nil, ErrAborted); after a transport failure
// (nil, *TransportError). Terminal results repeat on further calls.
func (r *Reader) Next() (*Delta, error) {
	for {
		for len(r.pending) > 0 {
			frame := r.pending[0]
			r.pending = r.pending[1:]

			if text := r.handleFrame(frame); text != "" {
				r.content.WriteString(text)
				return &Delta{Text: text}, nil
			}
		}

		switch r.state {
		case stateDone:
			return nil, nil
		case stateAborted:
			return nil, ErrAborted
		case stateErrored:
			return nil, r.err
		}

		if errors.Is(r.ctx.Err(), context.Canceled) {
			r.abort()
			continue
		}

		n, err := r.body.Read(r.buf)
		if n > 0 {
			r.pending = r.decoder.Write(r.buf[:n])
		}

		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			r.finish()
		case IsAbort(err), errors.Is(r.ctx.Err(), context.Canceled):
			// A body read interrupted by the cancel may fail with any error.
			r.abort()
		default:
			r.fail(err)
		}
	}
}

// Content returns everything delivered so far, concatenated.
func (r *Reader) Content() string {
	return r.content.String()
}

func (r *Reader) finish() {
	r.state = stateDone
	if rest := r.decoder.Flush(); strings.TrimSpace(rest) != "" {
		r.opts.logger.Debug("dropping unterminated frame at end of stream",
			zap.Int("bytes", len(rest)),
		)
	}
	r.opts.logger.Debug("stream complete",
		zap.Int("content_length", r.content.Len()),
	)
}

func (r *Reader) abort() {
	r.state = stateAborted
	r.pending = nil
	r.opts.logger.Debug("stream aborted",
		zap.Int("content_length", r.content.Len()),
	)
}

func (r *Reader) fail(err error) {
	r.state = stateErrored
	r.err = &TransportError{Err: err}
	r.opts.logger.Debug("stream failed",
		zap.Error(err),
		zap.Int("content_length", r.content.Len()),
	)
}

// handleFrame returns the delta text carried by frame, or "" when the frame
// is non-conforming, the sentinel, malformed, or simply empty.
func (r *Reader) handleFrame(frame string) string {
	payload, ok := sse.Parse(frame)
	if !ok || sse.IsDone(payload) {
		return ""
	}

	var chunk any
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		parseErr := &FrameParseError{Payload: payload, Err: err}
		r.opts.logger.Warn("failed to parse stream frame",
			zap.Error(err),
			zap.String("payload", payload),
		)
		r.diagnose(Diagnostic{Kind: DiagnosticFrameParse, Payload: payload, Err: parseErr})
		return ""
	}

	if msg, ok := upstreamError(chunk); ok {
		r.opts.logger.Warn("upstream reported an error in stream",
			zap.String("message", msg),
		)
		r.diagnose(Diagnostic{Kind: DiagnosticErrorFrame, Payload: payload, Err: errors.New(msg)})
	}

	return deltaContent(chunk)
}

func (r *Reader) diagnose(d Diagnostic) {
	if r.opts.diagnostics != nil {
		r.opts.diagnostics(d)
	}
}

// deltaContent extracts choices[0].delta.content. Every level is optional.
func deltaContent(chunk any) string {
	obj, ok := chunk.(map[string]any)
	if !ok {
		return ""
	}
	choices, ok := obj["choices"].([]any)
	if !ok || len(choices) == 0 {
		return ""
	}
	choice, ok := choices[0].(map[string]any)
	if !ok {
		return ""
	}
	delta, ok := choice["delta"].(map[string]any)
	if !ok {
		return ""
	}
	content, _ := delta["content"].(string)
	return content
}

// upstreamError recognizes {"error": "msg"} and {"error": {"message": "msg"}}.
func upstreamError(chunk any) (string, bool) {
	obj, ok := chunk.(map[string]any)
	if !ok {
		return "", false
	}
	switch e := obj["error"].(type) {
	case string:
		return e, true
	case map[string]any:
		if msg, ok := e["message"].(string); ok {
			return msg, true
		}
		return "unknown upstream error", true
	}
	return "", false
}
