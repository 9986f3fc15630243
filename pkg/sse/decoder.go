package sse

import (
	"errors"
	"slices"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// scratchSize bounds a single Transform call. Any value above utf8.UTFMax
// works; larger values just mean fewer iterations per chunk.
const scratchSize = 4096

// Decoder turns raw body chunks into complete frames.
//
// A Decoder owns its buffers and is not safe for concurrent use. Each stream
// gets its own.
type Decoder struct {
	utf8    transform.Transformer
	carry   []byte
	buffer  string
	scratch []byte
}

// NewDecoder returns a Decoder with empty buffers. Invalid UTF-8 decodes to
// U+FFFD and a leading byte order mark is dropped.
func NewDecoder() *Decoder {
	return &Decoder{
		utf8:    unicode.UTF8BOM.NewDecoder(),
		scratch: make([]byte, scratchSize),
	}
}

// Write decodes chunk, appends it to the pending buffer, and returns every
// frame the separator has terminated so far, in order. The unterminated tail
// stays buffered for the next Write.
func (d *Decoder) Write(chunk []byte) []string {
	src := chunk
	if len(d.carry) > 0 {
		src = append(d.carry, chunk...)
		d.carry = nil
	}

	d.buffer += d.decode(src, false)

	parts := strings.Split(d.buffer, Separator)
	d.buffer = parts[len(parts)-1]
	return parts[:len(parts)-1]
}

// Flush returns whatever was never terminated by a separator, including any
// incomplete UTF-8 tail decoded as U+FFFD, and resets the decoder.
func (d *Decoder) Flush() string {
	rest := d.buffer + d.decode(d.carry, true)
	d.buffer = ""
	d.carry = nil
	d.utf8.Reset()
	return rest
}

// decode runs src through the UTF-8 transformer. When atEOF is false an
// incomplete trailing sequence is kept in d.carry instead of being replaced.
func (d *Decoder) decode(src []byte, atEOF bool) string {
	var out strings.Builder
	for {
		nDst, nSrc, err := d.utf8.Transform(d.scratch, src, atEOF)
		out.Write(d.scratch[:nDst])
		src = src[nSrc:]

		switch {
		case errors.Is(err, transform.ErrShortDst):
			continue
		case errors.Is(err, transform.ErrShortSrc):
			// src may alias the caller's read buffer.
			d.carry = slices.Clone(src)
			return out.String()
		default:
			return out.String()
		}
	}
}
