package output

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"sync"
)

// Sink is the destination a rendering session writes to. It models a client
// connection: bytes, response headers and two flush points. Flushing is a
// synchronous hand-off with no acknowledgment.
type Sink interface {
	io.Writer

	// HeadersSent reports whether the response headers have been committed.
	HeadersSent() bool

	// SetHeader replaces a response header. Implementations ignore the call
	// once headers are sent.
	SetHeader(name, value string)

	// FlushBuffer pushes anything the sink itself buffers toward the connection.
	FlushBuffer() error

	// FlushConnection forces buffered bytes out to the client.
	FlushConnection() error
}

// HTTPSink adapts an http.ResponseWriter. Headers count as sent after the
// first Write or WriteHeader.
type HTTPSink struct {
	w           http.ResponseWriter
	logger      *slog.Logger
	headersSent bool
	warnOnce    sync.Once
}

// NewHTTPSink wraps w. A nil logger discards.
func NewHTTPSink(w http.ResponseWriter, logger *slog.Logger) *HTTPSink {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &HTTPSink{w: w, logger: logger}
}

// Write sends p to the client, committing the headers on first use.
func (s *HTTPSink) Write(p []byte) (int, error) {
	s.headersSent = true
	return s.w.Write(p)
}

// WriteHeader commits the status code and headers.
func (s *HTTPSink) WriteHeader(code int) {
	if s.headersSent {
		return
	}
	s.headersSent = true
	s.w.WriteHeader(code)
}

// HeadersSent reports whether the status line has gone out.
func (s *HTTPSink) HeadersSent() bool { return s.headersSent }

// SetHeader sets a response header. It is dropped once headers are sent.
func (s *HTTPSink) SetHeader(name, value string) {
	if s.headersSent {
		return
	}
	s.w.Header().Set(name, value)
}

// FlushBuffer is a no-op: net/http has no user-visible buffer separate from
// the connection flush.
func (s *HTTPSink) FlushBuffer() error { return nil }

// FlushConnection sends buffered bytes to the client when the ResponseWriter
// supports http.Flusher. Writers that cannot flush are written through as-is.
func (s *HTTPSink) FlushConnection() error {
	flusher, ok := s.w.(http.Flusher)
	if !ok {
		s.warnOnce.Do(func() {
			s.logger.Warn("ResponseWriter does not support flushing, response will be sent at once.")
		})
		return nil
	}
	s.headersSent = true
	flusher.Flush()
	return nil
}

// BufferSink captures everything written to it in memory. Headers are
// recorded but never "sent", so SetHeader always applies.
type BufferSink struct {
	buf     bytes.Buffer
	headers http.Header
	flushes int
}

// NewBufferSink returns an empty in-memory sink.
func NewBufferSink() *BufferSink {
	return &BufferSink{headers: http.Header{}}
}

// Write appends p to the buffer.
func (s *BufferSink) Write(p []byte) (int, error) { return s.buf.Write(p) }

// HeadersSent always reports false; headers are only recorded.
func (s *BufferSink) HeadersSent() bool { return false }

// SetHeader records a header for later inspection.
func (s *BufferSink) SetHeader(name, value string) { s.headers.Set(name, value) }

// FlushBuffer is a no-op.
func (s *BufferSink) FlushBuffer() error { return nil }

// FlushConnection counts the flush and returns nil.
func (s *BufferSink) FlushConnection() error {
	s.flushes++
	return nil
}

// Bytes returns the captured output. The slice aliases the sink's buffer.
func (s *BufferSink) Bytes() []byte { return s.buf.Bytes() }

// String returns everything written so far as a string.
func (s *BufferSink) String() string { return s.buf.String() }

// Len returns the number of bytes written.
func (s *BufferSink) Len() int { return s.buf.Len() }

// Header returns the recorded response headers.
func (s *BufferSink) Header() http.Header { return s.headers }

// Flushes counts FlushConnection calls.
func (s *BufferSink) Flushes() int { return s.flushes }

// WriterSink writes to a plain io.Writer, such as standard output. It has no
// headers; SetHeader is ignored. FlushConnection calls the writer's Flush
// method, or Sync, when it has one.
type WriterSink struct {
	w io.Writer
}

// NewWriterSink wraps w as a sink without headers.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Write passes p through to the underlying writer.
func (s *WriterSink) Write(p []byte) (int, error) { return s.w.Write(p) }

// HeadersSent always reports true, so header writes are skipped.
func (s *WriterSink) HeadersSent() bool { return true }

// SetHeader discards the header.
func (s *WriterSink) SetHeader(string, string) {}

// FlushBuffer is a no-op.
func (s *WriterSink) FlushBuffer() error { return nil }

// FlushConnection calls Flush or Sync on w when it has one.
func (s *WriterSink) FlushConnection() error {
	switch f := s.w.(type) {
	case interface{ Flush() error }:
		return f.Flush()
	case interface{ Sync() error }:
		// Terminals and pipes reject fsync; there is nothing more to do then.
		_ = f.Sync()
	}
	return nil
}
