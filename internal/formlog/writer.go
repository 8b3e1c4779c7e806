package formlog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"wax-intake/internal/domain/submission"
	"wax-intake/pkg/logger"
)

// Writer appends submission records to a shared JSON-array file.
// All appends flow through one consumer goroutine, so writes are
// totally ordered and never interleave. The visible file is only ever
// replaced by a rename of a fully serialized temp file, so a reader
// can never observe a half-written document. One append's failure is
// reported to its own caller; the chain keeps draining.
type Writer struct {
	path string
	log  *logger.Logger

	jobs      chan job
	closeOnce sync.Once
	done      chan struct{}
}

type job struct {
	entry submission.LogEntry
	reply chan error
}

func NewWriter(path string, log *logger.Logger) *Writer {
	w := &Writer{
		path: path,
		log:  log,
		jobs: make(chan job, 64),
		done: make(chan struct{}),
	}
	go w.run()
	return w
}

// Append enqueues one entry behind all previously enqueued appends
// and waits for its individual outcome.
func (w *Writer) Append(ctx context.Context, entry submission.LogEntry) error {
	j := job{entry: entry, reply: make(chan error, 1)}
	select {
	case w.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-j.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the consumer after draining every enqueued append.
func (w *Writer) Close() {
	w.closeOnce.Do(func() {
		close(w.jobs)
		<-w.done
	})
}

func (w *Writer) run() {
	defer close(w.done)
	for j := range w.jobs {
		j.reply <- w.append(j.entry)
	}
}

func (w *Writer) append(entry submission.LogEntry) error {
	entries := w.readCurrent()
	entries = append(entries, entry)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal form log: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("create form log dir: %w", err)
	}

	tempPath := w.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return fmt.Errorf("write form log temp: %w", err)
	}
	if err := os.Rename(tempPath, w.path); err != nil {
		return fmt.Errorf("swap form log: %w", err)
	}
	return nil
}

// readCurrent tolerates a missing or corrupt file by starting over
// from an empty array, logging the corruption.
func (w *Writer) readCurrent() []submission.LogEntry {
	data, err := os.ReadFile(w.path)
	if err != nil {
		if !os.IsNotExist(err) && w.log != nil {
			w.log.Errorf("form log read failed, starting fresh: %v", err)
		}
		return nil
	}
	var entries []submission.LogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		if w.log != nil {
			w.log.Errorf("form log corrupt, starting fresh: %v", err)
		}
		return nil
	}
	return entries
}
