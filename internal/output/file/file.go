package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/crimson-sun/phrasefit/internal/model"
)

const defaultBufSize = 64 * 1024 // 64KB

// Option configures a file Output.
type Option func(*Output)

// WithBufSize sets the bufio.Writer buffer size. Default: 64KB.
func WithBufSize(bytes int) Option {
	return func(o *Output) { o.bufSize = bytes }
}

// WithTruncate empties an existing file instead of appending to it.
func WithTruncate() Option {
	return func(o *Output) { o.flag = os.O_TRUNC }
}

// Output appends predictions to a file as NDJSON with buffered I/O.
type Output struct {
	w       *bufio.Writer
	f       *os.File
	mu      sync.Mutex
	bufSize int
	flag    int // os.O_APPEND or os.O_TRUNC
}

// New opens (or creates) path for writing.
func New(path string, opts ...Option) (*Output, error) {
	o := &Output{bufSize: defaultBufSize, flag: os.O_APPEND}
	for _, opt := range opts {
		opt(o)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|o.flag, 0644)
	if err != nil {
		return nil, fmt.Errorf("file output: open %s: %w", path, err)
	}
	o.f = f
	o.w = bufio.NewWriterSize(f, o.bufSize)
	return o, nil
}

// Write JSON-encodes the prediction and appends it as a line.
func (o *Output) Write(_ context.Context, p model.Prediction) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("file output: marshal: %w", err)
	}
	data = append(data, '\n')

	o.mu.Lock()
	defer o.mu.Unlock()
	if _, err := o.w.Write(data); err != nil {
		return fmt.Errorf("file output: write: %w", err)
	}
	return nil
}

// Close flushes the buffer and closes the file.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.w.Flush(); err != nil {
		o.f.Close()
		return fmt.Errorf("file output: flush: %w", err)
	}
	return o.f.Close()
}
