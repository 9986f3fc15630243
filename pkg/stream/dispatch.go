package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
)

// Callbacks is the collaborator contract of a streaming call.
//
// OnData is called zero or more times with (text, false), then exactly once
// with ("", true) or (error text, true). OnComplete is called at most once,
// after the final OnData, with the full concatenated content. Both are
// optional.
type Callbacks struct {
	OnData     func(text string, final bool)
	OnComplete func(ctx context.Context, full string) error
}

func (cb Callbacks) data(text string, final bool) {
	if cb.OnData != nil {
		cb.OnData(text, final)
	}
}

// Finish runs the terminal transition for a stream that ended with err:
//
//   - nil or an abort: OnData("", true), then OnComplete(content). Returns the
//     completion error, if any.
//   - anything else: OnData(FormatError(err), true), then returns err.
//
// OnComplete receives a context that is no longer canceled with ctx, so work
// done on completion (saving the answer, say) survives an abort.
func (cb Callbacks) Finish(ctx context.Context, content string, err error) error {
	if err != nil && !IsAbort(err) {
		cb.data(FormatError(err), true)
		return err
	}

	cb.data("", true)
	if cb.OnComplete == nil {
		return nil
	}
	if err := cb.OnComplete(context.WithoutCancel(ctx), content); err != nil {
		return fmt.Errorf("completion callback: %w", err)
	}
	return nil
}

// Dispatch reads body to a terminal state, invoking cb along the way.
//
// It returns nil when the stream completes or is canceled, and the
// *TransportError otherwise, after OnData has reported it.
func Dispatch(ctx context.Context, body io.Reader, cb Callbacks, opts ...Option) error {
	r := NewReader(ctx, body, opts...)
	for {
		d, err := r.Next()
		if err == nil && d != nil {
			cb.data(d.Text, false)
			continue
		}
		return cb.Finish(ctx, r.Content(), err)
	}
}

// Deltas returns the stream as a sequence. It yields every non-empty delta in
// order and then ends; the end of the sequence replaces the final ("", true)
// callback. A transport failure is yielded once as (Delta{}, err). Cancellation
// ends the sequence cleanly.
func Deltas(ctx context.Context, body io.Reader, opts ...Option) iter.Seq2[Delta, error] {
	return func(yield func(Delta, error) bool) {
		r := NewReader(ctx, body, opts...)
		for {
			d, err := r.Next()
			switch {
			case errors.Is(err, ErrAborted):
				return
			case err != nil:
				yield(Delta{}, err)
				return
			case d == nil:
				return
			}
			if !yield(*d, nil) {
				return
			}
		}
	}
}
