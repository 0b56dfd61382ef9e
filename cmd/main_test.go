package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/robustsolve/internal/server"
	"github.com/cwbudde/robustsolve/internal/trace"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func parseFloat(t *testing.T, s string) float64 {
	t.Helper()
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	require.NoError(t, err)
	return v
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "robustsolve version "+version+"\n", out)
}

func TestBisect(t *testing.T) {
	out, err := execute(t, "bisect", "--expr", "log(x) - 1", "--left=-10", "--right", "10")
	require.NoError(t, err)
	assert.InDelta(t, math.E, parseFloat(t, out), 1e-12)
}

func TestBisectFull(t *testing.T) {
	out, err := execute(t, "bisect", "--expr", "x - 0.25", "--left", "0", "--right", "1", "--full")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.InDelta(t, 0.25, parseFloat(t, strings.TrimPrefix(lines[0], "root")), 1e-14)
	assert.Equal(t, "converged  true", lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "iterations "))
}

func TestBisectTrace(t *testing.T) {
	out, err := execute(t, "bisect", "--expr", "x - 0.3", "--left", "0", "--right", "1",
		"--max-iter", "5", "--trace")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	// header, 4 steps (the end point evaluations count against the budget), root
	require.Len(t, lines, 6)
	assert.Contains(t, lines[0], "width")
}

func TestBisectNoSignChange(t *testing.T) {
	_, err := execute(t, "bisect", "--expr", "x**2 + 1", "--left=-1", "--right", "1")
	assert.Error(t, err)

	out, err := execute(t, "bisect", "--expr", "x**2 + 1", "--left=-1", "--right", "1", "--ignore-errors")
	require.NoError(t, err)
	assert.Equal(t, "NaN\n", out)
}

func TestBisectRequiresExpr(t *testing.T) {
	_, err := execute(t, "bisect", "--left", "0", "--right", "1")
	assert.Error(t, err)
}

func TestBisectInvalidExpr(t *testing.T) {
	_, err := execute(t, "bisect", "--expr", "x +", "--left", "0", "--right", "1")
	assert.Error(t, err)
}

func TestBisectPlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.png")
	_, err := execute(t, "bisect", "--expr", "sqrt(x) - 1", "--left=-2", "--right", "3", "--plot", path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestNarrow(t *testing.T) {
	out, err := execute(t, "narrow", "--expr", "log(x)", "--left=-1", "--right", "2", "--full")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	fields := strings.Fields(lines[0])
	require.Len(t, fields, 2)

	left := parseFloat(t, fields[0])
	assert.Greater(t, left, 0.0)
	assert.Less(t, left, 1e-10)
	assert.Equal(t, 2.0, parseFloat(t, fields[1]))
	assert.True(t, strings.HasPrefix(lines[1], "iterations "))
}

func TestRoots(t *testing.T) {
	out, err := execute(t, "roots", "--expr", "sin(x)", "--left=-1", "--right", "7", "--samples", "81")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	for i, want := range []float64{0, math.Pi, 2 * math.Pi} {
		assert.InDelta(t, want, parseFloat(t, lines[i]), 1e-9)
	}
}

func TestFmin(t *testing.T) {
	out, err := execute(t, "fmin", "--expr", "(x - 1)**2 + (y + 2)**2", "--x0", "0,0")
	require.NoError(t, err)

	fields := strings.Fields(out)
	require.Len(t, fields, 2)
	assert.InDelta(t, 1, parseFloat(t, fields[0]), 1e-6)
	assert.InDelta(t, -2, parseFloat(t, fields[1]), 1e-6)
}

func TestFminTraceAndPlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steps.png")
	out, err := execute(t, "fmin", "--expr", "x**2 + y**2", "--x0", "0.5,0.5",
		"--trace", "--plot", path)
	require.NoError(t, err)

	assert.Contains(t, out, "action")
	assert.Contains(t, out, "settled")

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestFminUndefinedStart(t *testing.T) {
	_, err := execute(t, "fmin", "--expr", "log(x) + y**2", "--x0=-1,0")
	assert.Error(t, err)

	out, err := execute(t, "fmin", "--expr", "log(x) + y**2", "--x0=-1,0", "--ignore-errors")
	require.NoError(t, err)
	assert.Equal(t, "NaN NaN\n", out)
}

func TestStatus(t *testing.T) {
	s := server.NewServer("localhost:0")
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	out, err := execute(t, "status", "--server", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "No jobs found\n", out)

	_, err = execute(t, "status", "--server", srv.URL, "nonexistent")
	assert.ErrorContains(t, err, "job not found")

	body := `{"kind": "bisect", "expr": "x**2 - 4", "left": 0, "right": 5}`
	resp, err := http.Post(srv.URL+"/api/v1/jobs", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	var job server.Job
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&job))
	resp.Body.Close()

	require.Eventually(t, func() bool {
		out, err := execute(t, "status", "--server", srv.URL, job.ID)
		return err == nil && strings.Contains(out, "State: completed")
	}, 10*time.Second, 20*time.Millisecond)

	out, err = execute(t, "status", "--server", srv.URL, job.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Root: ")

	out, err = execute(t, "status", "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Found 1 job(s)")
	assert.Contains(t, out, job.ID)
}

func TestBisectTraceFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")
	out, err := execute(t, "bisect", "--expr", "x**3 - 2", "--left", "0", "--right", "2",
		"--trace-file", path, "--full")
	require.NoError(t, err)

	entries, err := trace.ReadFile(path)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	// end point evaluations are counted but not traced
	assert.Contains(t, out, fmt.Sprintf("iterations %d\n", len(entries)+2))
	assert.InDelta(t, math.Cbrt(2), entries[len(entries)-1].X[0], 1e-13)
}

func TestBisectInvalidTolerance(t *testing.T) {
	_, err := execute(t, "bisect", "--expr", "x - 0.25", "--left", "0", "--right", "1", "--xtol", "0")
	assert.ErrorContains(t, err, "invalid settings")

	out, err := execute(t, "roots", "--expr", "x - 0.25", "--left", "0", "--right", "1", "--max-iter=-1",
		"--ignore-errors")
	require.NoError(t, err)
	assert.Equal(t, "NaN\n", out)
}

func TestRootsFull(t *testing.T) {
	out, err := execute(t, "roots", "--expr", "x - 0.3", "--left", "0", "--right", "1",
		"--samples", "4", "--full")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.InDelta(t, 0.3, parseFloat(t, lines[0]), 1e-13)
	assert.Equal(t, "count 1", lines[1])
	n, err := strconv.Atoi(strings.TrimPrefix(lines[2], "iterations "))
	require.NoError(t, err)
	assert.Greater(t, n, 4, "samples and bisection calls are both counted")
}

func TestFminTraceFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steps.jsonl")
	out, err := execute(t, "fmin", "--expr", "(x - 1)**2 + (y + 2)**2", "--x0", "0,0",
		"--trace-file", path)
	require.NoError(t, err)

	entries, err := trace.ReadFile(path)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	fields := strings.Fields(out)
	require.Len(t, fields, 2)
	last := entries[len(entries)-1]
	require.Len(t, last.X, 2)
	assert.InDelta(t, parseFloat(t, fields[0]), last.X[0], 1e-6)
	assert.InDelta(t, parseFloat(t, fields[1]), last.X[1], 1e-6)
}

func TestFminTraceFileUnwritable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "steps.jsonl")
	_, err := execute(t, "fmin", "--expr", "x**2 + y**2", "--x0", "1,1", "--trace-file", path)
	assert.Error(t, err)
}
