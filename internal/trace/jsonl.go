package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/cwbudde/robustsolve/internal/opt"
	"github.com/cwbudde/robustsolve/internal/roots"
)

// Entry represents one solver iteration in a trace file.
// Each entry is serialized as a JSON line.
type Entry struct {
	K int `json:"k"`

	// X is the midpoint (bisection) or the center after the step (pattern search)
	X []float64 `json:"x"`

	// Size is the bracket width or the step size after the iteration
	Size float64 `json:"size"`

	// FX is f at the midpoint, bisection only
	FX *float64 `json:"fx,omitempty"`

	Action      string `json:"action,omitempty"`
	Evaluations int    `json:"evaluations,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// Writer writes trace entries to a JSONL file.
// It uses buffered I/O and is safe for concurrent use.
// The first write error is kept and returned by Close.
type Writer struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	path   string
	err    error
}

// NewWriter creates (or truncates) the trace file at path.
func NewWriter(path string) (*Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}

	return &Writer{
		file:   file,
		writer: bufio.NewWriterSize(file, 64*1024),
		path:   path,
	}, nil
}

// Write appends an entry to the file.
// The entry is buffered and will be written on Close.
func (tw *Writer) Write(entry Entry) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.err != nil {
		return tw.err
	}

	data, err := json.Marshal(entry)
	if err != nil {
		tw.err = fmt.Errorf("failed to marshal trace entry: %w", err)
		return tw.err
	}

	data = append(data, '\n')
	if _, err := tw.writer.Write(data); err != nil {
		tw.err = fmt.Errorf("failed to write trace entry: %w", err)
	}
	return tw.err
}

// Iteration writes one bisection step. It fits roots.Settings.OnIter.
func (tw *Writer) Iteration(it roots.Iteration) {
	fx := it.FMid
	tw.Write(Entry{
		K:         it.K,
		X:         []float64{it.Mid},
		Size:      it.Width,
		FX:        &fx,
		Timestamp: time.Now(),
	})
}

// Step writes one pattern search step. It fits opt.PatternSearch.OnStep.
func (tw *Writer) Step(s opt.Step) {
	tw.Write(Entry{
		K:           s.K,
		X:           s.Center,
		Size:        s.Size,
		Action:      s.Action.String(),
		Evaluations: s.Evaluations,
		Timestamp:   time.Now(),
	})
}

// Close flushes buffered data and closes the trace file.
func (tw *Writer) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if err := tw.writer.Flush(); err != nil {
		tw.file.Close() // Try to close anyway
		return fmt.Errorf("failed to flush on close: %w", err)
	}

	if err := tw.file.Close(); err != nil {
		return fmt.Errorf("failed to close trace file: %w", err)
	}

	return tw.err
}

// Path returns the filesystem path to the trace file.
func (tw *Writer) Path() string {
	return tw.path
}

// ReadFile reads all trace entries from a JSONL file.
func ReadFile(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	defer file.Close()

	return Read(file)
}

// Read decodes trace entries from r until EOF.
func Read(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var entries []Entry
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal trace entry %d: %w", len(entries)+1, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan trace line: %w", err)
	}

	return entries, nil
}
