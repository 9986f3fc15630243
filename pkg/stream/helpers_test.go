package stream_test

import (
	"context"
	"io"
	"sync"
)

// chunkReader delivers scripted chunks, one per Read, then err (io.EOF when
// nil).
type chunkReader struct {
	chunks [][]byte
	err    error
	reads  int
}

func newChunkReader(chunks ...string) *chunkReader {
	r := &chunkReader{}
	for _, c := range chunks {
		r.chunks = append(r.chunks, []byte(c))
	}
	return r
}

func (r *chunkReader) Read(p []byte) (int, error) {
	r.reads++
	if len(r.chunks) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	if len(r.chunks[0]) == 0 {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

// blockingReader delivers its chunks and then blocks until ctx is done, the
// way an HTTP body does when the request context is canceled mid-read.
type blockingReader struct {
	ctx    context.Context
	chunks *chunkReader
}

func (r *blockingReader) Read(p []byte) (int, error) {
	if len(r.chunks.chunks) > 0 {
		return r.chunks.Read(p)
	}
	<-r.ctx.Done()
	return 0, r.ctx.Err()
}

// recorder captures callback invocations in order.
type recorder struct {
	mu        sync.Mutex
	events    []event
	completed []string
}

type event struct {
	Text  string
	Final bool
}

func (r *recorder) onData(text string, final bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{Text: text, Final: final})
}

func (r *recorder) onComplete(_ context.Context, full string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, full)
	return nil
}

func frame(content string) string {
	return `data: {"choices":[{"delta":{"content":"` + content + `"}}]}` + "\n\n"
}
