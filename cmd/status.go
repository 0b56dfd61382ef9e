package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/robustsolve/internal/server"
)

// jobStatus mirrors the body of GET /api/v1/jobs/:id/status
type jobStatus struct {
	server.Job
	Elapsed float64 `json:"elapsed"`
}

func newStatusCmd() *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "status [job-id]",
		Short: "Query server status or specific job",
		Long: `Queries the server for job status information.
If no job-id is provided, lists all jobs.
If job-id is provided, shows detailed status for that job.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base := strings.TrimSuffix(serverURL, "/")
			if len(args) == 0 {
				return listJobs(cmd.OutOrStdout(), base+"/api/v1/jobs")
			}
			jobID := args[0]
			return getJobStatus(cmd.OutOrStdout(), fmt.Sprintf("%s/api/v1/jobs/%s/status", base, jobID), jobID)
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	return cmd
}

func getJSON(url string, v any) (int, error) {
	resp, err := http.Get(url)
	if err != nil {
		return 0, fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf("server returned error: %s", strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, nil
}

func listJobs(w io.Writer, url string) error {
	var jobs []server.Job
	if _, err := getJSON(url, &jobs); err != nil {
		return err
	}

	if len(jobs) == 0 {
		fmt.Fprintln(w, "No jobs found")
		return nil
	}

	fmt.Fprintf(w, "Found %d job(s):\n\n", len(jobs))
	for _, job := range jobs {
		fmt.Fprintf(w, "Job ID: %s\n", job.ID)
		fmt.Fprintf(w, "  State: %s\n", job.State)
		fmt.Fprintf(w, "  Kind: %s\n", job.Config.Kind)
		fmt.Fprintf(w, "  Expr: %s\n", job.Config.Expr)
		fmt.Fprintln(w)
	}

	return nil
}

func getJobStatus(w io.Writer, url, jobID string) error {
	var status jobStatus
	code, err := getJSON(url, &status)
	if code == http.StatusNotFound {
		return fmt.Errorf("job not found: %s", jobID)
	}
	if err != nil {
		return err
	}

	// Display status
	fmt.Fprintf(w, "Job: %s\n", status.ID)
	fmt.Fprintf(w, "State: %s\n", status.State)
	fmt.Fprintln(w)

	c := status.Config
	fmt.Fprintln(w, "Configuration:")
	fmt.Fprintf(w, "  Kind: %s\n", c.Kind)
	fmt.Fprintf(w, "  Expr: %s\n", c.Expr)
	if c.Kind == server.KindMinimize {
		fmt.Fprintf(w, "  Start: %v\n", c.X0)
	} else {
		fmt.Fprintf(w, "  Interval: [%g, %g]\n", c.Left, c.Right)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Progress:")
	fmt.Fprintf(w, "  Iterations: %d\n", status.Iterations)
	elapsed := time.Duration(status.Elapsed * float64(time.Second))
	fmt.Fprintf(w, "  Elapsed: %s\n", elapsed.Round(time.Millisecond))

	if r := status.Result; r != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Result:")
		switch {
		case r.Root != nil:
			fmt.Fprintf(w, "  Root: %.17g\n", *r.Root)
			if r.Tol != nil {
				fmt.Fprintf(w, "  Tol: %g\n", *r.Tol)
			}
		case r.Interval != nil:
			fmt.Fprintf(w, "  Interval: [%.17g, %.17g]\n", r.Interval.Left, r.Interval.Right)
		case r.Minimum != nil:
			fmt.Fprintf(w, "  Minimum: %v\n", r.Minimum)
		default:
			fmt.Fprintf(w, "  Roots: %v\n", r.Roots)
		}
	}

	if status.Error != "" {
		fmt.Fprintf(w, "\nError: %s\n", status.Error)
	}

	return nil
}
