package server

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/robustsolve/internal/opt"
	"github.com/cwbudde/robustsolve/internal/roots"
)

// JobState represents the current state of a job
type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
	StateCancelled JobState = "cancelled"
)

// Done reports whether the state is final.
func (s JobState) Done() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Job kinds
const (
	KindBisect   = "bisect"
	KindNarrow   = "narrow"
	KindRoots    = "roots"
	KindMinimize = "minimize"
)

const (
	defaultSamples     = 100
	defaultMinimizeMax = 100000
)

// JobConfig describes what a job solves.
// Zero numeric fields are replaced by defaults when the job is created.
type JobConfig struct {
	Kind string `json:"kind"` // bisect, narrow, roots, minimize
	Expr string `json:"expr"` // function of x, or of x and y for minimize

	// bisect, narrow, roots
	Left    float64 `json:"left"`
	Right   float64 `json:"right"`
	Samples int     `json:"samples,omitempty"` // roots only
	XTol    float64 `json:"xtol,omitempty"`

	// minimize
	X0           []float64 `json:"x0,omitempty"`
	RTol         float64   `json:"rtol,omitempty"`
	ATol         float64   `json:"atol,omitempty"`
	NodesOneSide int       `json:"nodesOneSide,omitempty"`
	InitStep     float64   `json:"initStep,omitempty"`

	MaxIter int `json:"maxIter,omitempty"`
}

// ApplyDefaults fills in zero fields.
func (c *JobConfig) ApplyDefaults() {
	if c.Kind == KindMinimize {
		ps := opt.NewPatternSearch()
		if c.RTol <= 0 {
			c.RTol = ps.RTol
		}
		if c.ATol <= 0 {
			c.ATol = ps.ATol
		}
		if c.NodesOneSide <= 0 {
			c.NodesOneSide = ps.NodesOneSide
		}
		if c.InitStep <= 0 {
			c.InitStep = ps.InitStep
		}
		if c.MaxIter <= 0 {
			c.MaxIter = defaultMinimizeMax
		}
		return
	}

	s := roots.DefaultSettings()
	if c.XTol <= 0 {
		c.XTol = s.XTol
	}
	if c.MaxIter <= 0 {
		c.MaxIter = s.MaxIter
	}
	if c.Kind == KindRoots && c.Samples <= 0 {
		c.Samples = defaultSamples
	}
}

// Validate checks that the config describes a solvable job.
func (c JobConfig) Validate() error {
	switch c.Kind {
	case KindBisect, KindNarrow, KindRoots:
		if c.Kind == KindRoots && c.Samples < 2 {
			return fmt.Errorf("samples must be at least 2, got %d", c.Samples)
		}
	case KindMinimize:
		if len(c.X0) != 2 {
			return fmt.Errorf("x0 must have 2 coordinates, got %d", len(c.X0))
		}
	default:
		return fmt.Errorf("unknown kind: %q", c.Kind)
	}
	if c.Expr == "" {
		return fmt.Errorf("expr is required")
	}
	return nil
}

// JobResult holds the outcome of a completed job.
// Only the fields of the job's kind are set.
type JobResult struct {
	Root      *float64        `json:"root,omitempty"`
	Tol       *float64        `json:"tol,omitempty"`
	Converged *bool           `json:"converged,omitempty"`
	Interval  *roots.Interval `json:"interval,omitempty"`
	Roots     []float64       `json:"roots,omitempty"`
	Minimum   []float64       `json:"minimum,omitempty"`
}

// Job represents a solver job
type Job struct {
	ID         string     `json:"id"`
	State      JobState   `json:"state"`
	Config     JobConfig  `json:"config"`
	Result     *JobResult `json:"result,omitempty"`
	Iterations int        `json:"iterations"`
	StartTime  time.Time  `json:"startTime"`
	EndTime    *time.Time `json:"endTime,omitempty"`
	Error      string     `json:"error,omitempty"`

	// History holds bracket widths (1-D kinds) or step sizes (minimize).
	History []float64 `json:"-"`
}

func (j *Job) clone() *Job {
	c := *j
	c.Config.X0 = slices.Clone(j.Config.X0)
	c.History = slices.Clone(j.History)
	if j.EndTime != nil {
		end := *j.EndTime
		c.EndTime = &end
	}
	if j.Result != nil {
		r := *j.Result
		r.Roots = slices.Clone(j.Result.Roots)
		r.Minimum = slices.Clone(j.Result.Minimum)
		c.Result = &r
	}
	return &c
}

// JobManager manages the lifecycle of jobs
type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	broadcaster *EventBroadcaster
}

// NewJobManager creates a new JobManager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:        make(map[string]*Job),
		broadcaster: NewEventBroadcaster(),
	}
}

// CreateJob creates a new job with the given configuration and returns a snapshot of it
func (jm *JobManager) CreateJob(config JobConfig) *Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job := &Job{
		ID:        uuid.New().String(),
		State:     StatePending,
		Config:    config,
		StartTime: time.Now(),
	}

	jm.jobs[job.ID] = job
	return job.clone()
}

// GetJob retrieves a snapshot of a job by ID
func (jm *JobManager) GetJob(id string) (*Job, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, exists := jm.jobs[id]
	if !exists {
		return nil, false
	}
	return job.clone(), true
}

// ListJobs returns snapshots of all jobs, oldest first
func (jm *JobManager) ListJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	jobs := make([]*Job, 0, len(jm.jobs))
	for _, job := range jm.jobs {
		jobs = append(jobs, job.clone())
	}
	slices.SortFunc(jobs, func(a, b *Job) int {
		return a.StartTime.Compare(b.StartTime)
	})
	return jobs
}

// UpdateJob atomically updates a job using the provided function
func (jm *JobManager) UpdateJob(id string, updateFn func(*Job)) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, exists := jm.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	updateFn(job)
	return nil
}

// GetRunningJobs returns all jobs currently in the running state
func (jm *JobManager) GetRunningJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	runningJobs := make([]*Job, 0)
	for _, job := range jm.jobs {
		if job.State == StateRunning {
			runningJobs = append(runningJobs, job.clone())
		}
	}
	return runningJobs
}
