package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// runJob executes a solver job.
// Progress is published to the job and to its stream subscribers after every iteration.
func runJob(ctx context.Context, jm *JobManager, jobID string) error {
	// Get the job
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	// Check for cancellation before starting
	select {
	case <-ctx.Done():
		markJobCancelled(jm, jobID)
		return ctx.Err()
	default:
	}

	// Update state to running
	err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateRunning
	})
	if err != nil {
		return err
	}

	slog.Info("Starting job", "job_id", jobID, "kind", job.Config.Kind, "expr", job.Config.Expr)

	progress := func(iterations int, value float64) {
		jm.UpdateJob(jobID, func(j *Job) {
			j.Iterations = iterations
		})
		jm.broadcaster.Broadcast(ProgressEvent{
			JobID:      jobID,
			State:      StateRunning,
			Iterations: iterations,
			Value:      value,
			Timestamp:  time.Now(),
		})
	}

	start := time.Now()
	result, iterations, history, err := solve(job.Config, slog.Default().With("job_id", jobID), progress)
	elapsed := time.Since(start)
	if err != nil {
		jm.UpdateJob(jobID, func(j *Job) {
			j.Iterations = iterations
			j.History = history
		})
		markJobFailed(jm, jobID, err)
		return err
	}

	// Check for cancellation after solving
	select {
	case <-ctx.Done():
		markJobCancelled(jm, jobID)
		return ctx.Err()
	default:
	}

	// Update job with results
	endTime := time.Now()
	err = jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.Result = result
		j.Iterations = iterations
		j.History = history
		j.EndTime = &endTime
	})
	if err != nil {
		return err
	}

	slog.Info("Job completed",
		"job_id", jobID,
		"elapsed", elapsed,
		"iterations", iterations,
	)

	jm.broadcaster.Finish(ProgressEvent{
		JobID:      jobID,
		State:      StateCompleted,
		Iterations: iterations,
		Timestamp:  time.Now(),
	})

	return nil
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	jm.broadcaster.Finish(ProgressEvent{JobID: jobID, State: StateFailed, Timestamp: endTime})
	slog.Error("Job failed", "job_id", jobID, "error", err)
}

// markJobCancelled marks a job as cancelled
func markJobCancelled(jm *JobManager, jobID string) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &endTime
	})
	jm.broadcaster.Finish(ProgressEvent{JobID: jobID, State: StateCancelled, Timestamp: endTime})
	slog.Info("Job cancelled", "job_id", jobID)
}
