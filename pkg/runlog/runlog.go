// Package runlog keeps the ordered, append-only audit trail of a run.
// Entries are never mutated once appended; an optional JSONL sink mirrors
// the log to disk for post-mortem analysis.
package runlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Kind classifies a log line.
type Kind string

const (
	KindCommand  Kind = "command"
	KindOutput   Kind = "output"
	KindError    Kind = "error"
	KindSuccess  Kind = "success"
	KindInfo     Kind = "info"
	KindStep     Kind = "step"
	KindVariable Kind = "variable"
)

// Entry is one immutable line of the run log.
type Entry struct {
	Seq  int       `json:"seq"`
	Time time.Time `json:"time"`
	Kind Kind      `json:"kind"`
	Step string    `json:"step,omitempty"`
	Text string    `json:"text"`
}

// Log is an append-only sequence of entries. Appends are serialized so the
// sink sees them in the same order readers do.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	sink    *FileSink
}

// New creates an empty log. sink may be nil.
func New(sink *FileSink) *Log {
	return &Log{sink: sink}
}

// Append adds an entry and mirrors it to the sink. Sink write failures are
// reported on stderr but never fail the run.
func (l *Log) Append(kind Kind, step, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := Entry{
		Seq:  len(l.entries),
		Time: time.Now(),
		Kind: kind,
		Step: step,
		Text: text,
	}
	l.entries = append(l.entries, e)
	if l.sink != nil {
		if err := l.sink.Write(e); err != nil {
			fmt.Fprintf(os.Stderr, "runlog: sink write error: %v\n", err)
		}
	}
}

// Entries returns a copy of the log so far.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries appended so far.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// FileSink writes entries as JSONL, flushing at every append so the file is
// useful even after a crash mid-run.
type FileSink struct {
	file   *os.File
	writer *bufio.Writer
	enc    *json.Encoder
}

// NewFileSink opens (or creates) a JSONL sink at path.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open run log file: %w", err)
	}
	w := bufio.NewWriter(f)
	return &FileSink{file: f, writer: w, enc: json.NewEncoder(w)}, nil
}

// Write appends one entry and flushes to disk.
func (s *FileSink) Write(e Entry) error {
	if err := s.enc.Encode(e); err != nil {
		return fmt.Errorf("encode run log entry: %w", err)
	}
	if err := s.writer.Flush(); err != nil {
		return fmt.Errorf("flush run log: %w", err)
	}
	return s.file.Sync()
}

// Close flushes and closes the sink file.
func (s *FileSink) Close() error {
	if err := s.writer.Flush(); err != nil {
		return err
	}
	return s.file.Close()
}
