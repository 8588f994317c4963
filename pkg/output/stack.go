package output

import (
	"bytes"
	"errors"
)

// ErrClosed is returned when a level is used after it was closed or discarded.
var ErrClosed = errors.New("output level already closed")

// Stack is a stack of in-memory buffer levels in front of a Sink. Writes go to
// the topmost level, or straight to the sink when no level is open.
//
// Levels always close in LIFO order. Closing, flushing or discarding a level
// that is not on top first unwinds every level above it, flushing their bytes
// down, so a forgotten inner level can never strand output.
//
// A Stack belongs to one rendering session and is not safe for concurrent use.
type Stack struct {
	sink   Sink
	levels []*Level
}

// Level is one buffer on a Stack.
type Level struct {
	stack  *Stack
	index  int
	buf    bytes.Buffer
	closed bool
}

// NewStack returns an empty stack writing to sink.
func NewStack(sink Sink) *Stack {
	return &Stack{sink: sink}
}

// Sink returns the sink at the bottom of the stack.
func (s *Stack) Sink() Sink { return s.sink }

// Depth reports how many levels are open.
func (s *Stack) Depth() int { return len(s.levels) }

func (s *Stack) Write(p []byte) (int, error) {
	if n := len(s.levels); n > 0 {
		return s.levels[n-1].buf.Write(p)
	}
	return s.sink.Write(p)
}

// WriteString is Write for strings.
func (s *Stack) WriteString(str string) (int, error) {
	return s.Write([]byte(str))
}

// Push opens a new level on top of the stack.
func (s *Stack) Push() *Level {
	l := &Level{stack: s, index: len(s.levels)}
	s.levels = append(s.levels, l)
	return l
}

// Capture runs fn with a fresh level on top and returns whatever fn wrote.
// The level is popped whether or not fn fails, and its bytes never reach the
// levels below.
func (s *Stack) Capture(fn func() error) ([]byte, error) {
	l := s.Push()
	err := fn()
	data, takeErr := l.take()
	if err != nil {
		return data, err
	}
	return data, takeErr
}

// Reset drops every open level without writing anything to the sink.
func (s *Stack) Reset() {
	for _, l := range s.levels {
		l.closed = true
	}
	s.levels = nil
}

// Len reports the number of bytes buffered in the level.
func (l *Level) Len() int { return l.buf.Len() }

// Bytes returns the buffered bytes. The slice is only valid until the next write.
func (l *Level) Bytes() []byte { return l.buf.Bytes() }

// Write appends directly to this level, bypassing whatever is above it.
func (l *Level) Write(p []byte) (int, error) {
	if l.closed {
		return 0, ErrClosed
	}
	return l.buf.Write(p)
}

// Flush writes the buffered bytes one step down, to the level below or to the
// sink, and keeps the level open. A bottom level also asks the sink to flush
// its own buffer.
func (l *Level) Flush() error {
	if l.closed {
		return ErrClosed
	}
	if err := l.unwind(); err != nil {
		return err
	}
	return l.flushDown()
}

// Close flushes the level and pops it.
func (l *Level) Close() error {
	if err := l.Flush(); err != nil {
		return err
	}
	l.pop()
	return nil
}

// Discard pops the level and every level above it, dropping their bytes.
func (l *Level) Discard() {
	if l.closed {
		return
	}
	s := l.stack
	for _, above := range s.levels[l.index:] {
		above.closed = true
	}
	s.levels = s.levels[:l.index]
}

// unwind closes every level above l, flushing each into the one below.
func (l *Level) unwind() error {
	s := l.stack
	for len(s.levels) > l.index+1 {
		if err := s.levels[len(s.levels)-1].Close(); err != nil {
			return err
		}
	}
	return nil
}

func (l *Level) flushDown() error {
	s := l.stack
	if l.buf.Len() > 0 {
		var err error
		if l.index == 0 {
			_, err = s.sink.Write(l.buf.Bytes())
		} else {
			_, err = s.levels[l.index-1].buf.Write(l.buf.Bytes())
		}
		l.buf.Reset()
		if err != nil {
			return err
		}
	}
	if l.index == 0 {
		return s.sink.FlushBuffer()
	}
	return nil
}

func (l *Level) pop() {
	l.closed = true
	l.stack.levels = l.stack.levels[:l.index]
}

// take unwinds, copies the level's bytes and pops it without writing down.
func (l *Level) take() ([]byte, error) {
	if l.closed {
		return nil, ErrClosed
	}
	err := l.unwind()
	data := append([]byte(nil), l.buf.Bytes()...)
	l.pop()
	return data, err
}
