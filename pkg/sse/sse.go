// Package sse splits a text/event-stream response body into frames.
//
// The backend emits one JSON payload per frame:
//
//	data: {"choices":[{"delta":{"content":"Hel"}}]}\n\n
//	data: [DONE]\n\n
//
// Network chunks do not respect frame or character boundaries, so the Decoder
// carries both an undecoded UTF-8 tail and an unterminated frame tail from one
// chunk to the next.
//
// Event stream format:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

import "strings"

const (
	// Prefix starts every conforming frame.
	Prefix = "data: "

	// Separator terminates a frame.
	Separator = "\n\n"

	// DoneSentinel is the payload signaling that no more frames will follow.
	DoneSentinel = "[DONE]"
)

// Parse strips the frame prefix and surrounding whitespace. It returns false
// for frames that do not start with Prefix; those are ignored, not errors.
func Parse(frame string) (string, bool) {
	payload, ok := strings.CutPrefix(frame, Prefix)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(payload), true
}

// IsDone reports whether payload is the termination sentinel.
func IsDone(payload string) bool {
	return payload == DoneSentinel
}
