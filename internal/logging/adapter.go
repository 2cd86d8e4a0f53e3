package logging

import (
	"bufio"
	"bytes"
	"context"
	"log"
	"log/slog"
	"sync"
)

// StdLogger bridges a slog.Logger to the standard library *log.Logger that
// http.Server.ErrorLog and the MCP stdio server expect.
// If logger is nil, slog.Default() is used.
func StdLogger(logger *slog.Logger, level slog.Level) *log.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return slog.NewLogLogger(logger.Handler(), level)
}

// LineWriter is an io.Writer that emits every complete line it receives as a
// log record. It is used to capture the output of child processes.
type LineWriter struct {
	logger *slog.Logger
	level  slog.Level
	msg    string

	mu  sync.Mutex
	buf bytes.Buffer
}

// NewLineWriter creates a LineWriter logging each line under msg with a "line" attribute.
func NewLineWriter(logger *slog.Logger, level slog.Level, msg string) *LineWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LineWriter{logger: logger, level: level, msg: msg}
}

// Write implements io.Writer.
func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// partial line, keep it for the next write
			w.buf.Reset()
			w.buf.WriteString(line)
			break
		}
		w.emit(line[:len(line)-1])
	}
	return len(p), nil
}

// Flush logs any buffered partial line.
func (w *LineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	sc := bufio.NewScanner(&w.buf)
	for sc.Scan() {
		w.emit(sc.Text())
	}
	w.buf.Reset()
}

func (w *LineWriter) emit(line string) {
	if line == "" {
		return
	}
	w.logger.Log(context.Background(), w.level, w.msg, slog.String("line", line))
}
