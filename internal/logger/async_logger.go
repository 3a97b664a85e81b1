// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// AsyncLogger decouples log producers from the disk by pushing lines through
// a buffered channel drained by a single background goroutine. When the
// buffer is full new lines are dropped rather than blocking the caller.
type AsyncLogger struct {
	out  io.WriteCloser
	ch   chan []byte
	done chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewAsyncLogger wraps out with a background writer holding at most
// bufferSize pending lines.
func NewAsyncLogger(out io.WriteCloser, bufferSize int) *AsyncLogger {
	l := &AsyncLogger{
		out:  out,
		ch:   make(chan []byte, bufferSize),
		done: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *AsyncLogger) run() {
	defer close(l.done)
	for p := range l.ch {
		if _, err := l.out.Write(p); err != nil {
			fmt.Fprintf(os.Stderr, "asynclogger: write failed: %v\n", err)
		}
	}
}

// Write queues p for the background writer. It never blocks; p is dropped
// with a warning when the buffer is full. The returned length always covers
// the whole input since the caller cannot usefully retry.
func (l *AsyncLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0, os.ErrClosed
	}

	// The channel owns the copy; log.Logger reuses its buffer.
	cp := make([]byte, len(p))
	copy(cp, p)
	select {
	case l.ch <- cp:
	default:
		fmt.Fprintln(os.Stderr, "asynclogger: log buffer is full, dropping message.")
	}
	return len(p), nil
}

// Close flushes all queued lines and closes the underlying writer. Further
// writes fail with os.ErrClosed.
func (l *AsyncLogger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	close(l.ch)
	<-l.done
	return l.out.Close()
}
