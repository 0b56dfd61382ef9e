package trace

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cwbudde/robustsolve/internal/opt"
	"github.com/cwbudde/robustsolve/internal/roots"
)

func TestWriter_Bisection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")

	writer, err := NewWriter(path)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}

	rec := NewRecorder(0)
	s := roots.DefaultSettings()
	s.OnIter = func(it roots.Iteration) {
		rec.Iteration(it)
		writer.Iteration(it)
	}

	if _, err := roots.Bisect(0, 1, roots.FromNaN(func(x float64) float64 { return x - 0.3 }), s); err != nil {
		t.Fatalf("Bisect failed: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	entries, err := ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read entries: %v", err)
	}

	iterations := rec.Iterations()
	if len(entries) != len(iterations) {
		t.Fatalf("Expected %d entries, got %d", len(iterations), len(entries))
	}
	for i, e := range entries {
		it := iterations[i]
		if e.K != it.K || e.Size != it.Width || len(e.X) != 1 || e.X[0] != it.Mid {
			t.Errorf("Entry %d does not match iteration: %+v vs %+v", i, e, it)
		}
		if e.FX == nil || *e.FX != it.FMid {
			t.Errorf("Entry %d: expected f(mid) %g", i, it.FMid)
		}
		if e.Action != "" {
			t.Errorf("Entry %d: bisection entries have no action, got %q", i, e.Action)
		}
	}
}

func TestWriter_PatternSearch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")

	writer, err := NewWriter(path)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}
	if writer.Path() != path {
		t.Errorf("Expected path %s, got %s", path, writer.Path())
	}

	ps := opt.NewPatternSearch()
	ps.OnStep = writer.Step
	if _, err := ps.Minimize(opt.FromNaN(func(x []float64) float64 {
		return x[0]*x[0] + x[1]*x[1]
	}), []float64{0.3, -0.2}); err != nil {
		t.Fatalf("Minimize failed: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	entries, err := ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read entries: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("Expected trace entries")
	}

	settled := 0
	for _, e := range entries {
		if e.Action == opt.Settled.String() {
			settled++
		}
	}
	if settled == 0 {
		t.Error("Expected at least one settled step")
	}

	last := entries[len(entries)-1]
	if len(last.X) != 2 {
		t.Errorf("Expected 2-D center, got %v", last.X)
	}
	if last.FX != nil {
		t.Error("Pattern search entries have no f(mid)")
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Evaluations <= entries[i-1].Evaluations {
			t.Errorf("Evaluations should grow: %d -> %d", entries[i-1].Evaluations, entries[i].Evaluations)
		}
	}
}

func TestRead_Malformed(t *testing.T) {
	input := `{"k":1,"x":[0.5],"size":0.5,"timestamp":"2024-01-01T00:00:00Z"}
not json
`
	if _, err := Read(strings.NewReader(input)); err == nil {
		t.Error("Expected error for malformed line")
	}

	entries, err := Read(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Empty input should not fail: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no entries, got %d", len(entries))
	}
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.jsonl"))
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
}
