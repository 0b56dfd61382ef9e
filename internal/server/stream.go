package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// subscriberBuffer is the number of progress events a slow stream client may lag behind.
const subscriberBuffer = 10

// pingInterval keeps idle streams open through proxies.
const pingInterval = 30 * time.Second

// ProgressEvent is one update pushed to the stream subscribers of a job.
// Value is the latest bracket width (1-D kinds) or step size (minimize).
type ProgressEvent struct {
	JobID      string    `json:"jobId"`
	State      JobState  `json:"state"`
	Iterations int       `json:"iterations"`
	Value      float64   `json:"value,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// EventBroadcaster fans job progress out to stream subscribers.
//
// Progress events are dropped for subscribers that fall behind. The final event of a job is
// always delivered by Finish, which then closes the subscriber channels and forgets the job.
type EventBroadcaster struct {
	mu     sync.Mutex
	subs   map[string]map[chan ProgressEvent]struct{}
	latest map[string]ProgressEvent
}

// NewEventBroadcaster returns a broadcaster without subscribers.
func NewEventBroadcaster() *EventBroadcaster {
	return &EventBroadcaster{
		subs:   make(map[string]map[chan ProgressEvent]struct{}),
		latest: make(map[string]ProgressEvent),
	}
}

// Subscribe registers a channel for the events of a job.
// A running job's latest progress event is queued right away.
func (eb *EventBroadcaster) Subscribe(jobID string) chan ProgressEvent {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan ProgressEvent, subscriberBuffer)
	if eb.subs[jobID] == nil {
		eb.subs[jobID] = make(map[chan ProgressEvent]struct{})
	}
	eb.subs[jobID][ch] = struct{}{}
	if event, ok := eb.latest[jobID]; ok {
		ch <- event
	}

	slog.Debug("Stream subscribed", "job_id", jobID, "subscribers", len(eb.subs[jobID]))
	return ch
}

// Unsubscribe closes ch unless Finish already did.
func (eb *EventBroadcaster) Unsubscribe(jobID string, ch chan ProgressEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	set := eb.subs[jobID]
	if _, ok := set[ch]; !ok {
		return
	}
	delete(set, ch)
	close(ch)
	if len(set) == 0 {
		delete(eb.subs, jobID)
	}
	slog.Debug("Stream unsubscribed", "job_id", jobID)
}

// Broadcast publishes a progress event and remembers it for late subscribers.
func (eb *EventBroadcaster) Broadcast(event ProgressEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.latest[event.JobID] = event
	for ch := range eb.subs[event.JobID] {
		select {
		case ch <- event:
		default:
			slog.Debug("Stream subscriber is behind, dropping event", "job_id", event.JobID)
		}
	}
}

// Finish delivers the final event of a job to every subscriber, evicting the oldest queued
// progress event where a buffer is full, and closes the subscriber channels.
func (eb *EventBroadcaster) Finish(event ProgressEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	delete(eb.latest, event.JobID)
	for ch := range eb.subs[event.JobID] {
		// Finish and Broadcast are the only senders and both hold mu.
		for sent := false; !sent; {
			select {
			case ch <- event:
				sent = true
			default:
				select {
				case <-ch:
				default:
				}
			}
		}
		close(ch)
	}
	delete(eb.subs, event.JobID)
}

// handleJobStream streams the progress of a job as server-sent events.
// The stream ends once the job is done.
func (s *Server) handleJobStream(w http.ResponseWriter, r *http.Request, jobID string) {
	if _, ok := s.jobManager.GetJob(jobID); !ok {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")

	// Subscribe before reading the state so a job finishing in between is not missed.
	events := s.jobManager.broadcaster.Subscribe(jobID)
	defer s.jobManager.broadcaster.Unsubscribe(jobID, events)

	job, _ := s.jobManager.GetJob(jobID)
	current := ProgressEvent{
		JobID:      job.ID,
		State:      job.State,
		Iterations: job.Iterations,
		Timestamp:  time.Now(),
	}
	if n := len(job.History); n > 0 {
		current.Value = job.History[n-1]
	}
	if err := writeSSEEvent(w, current); err != nil {
		slog.Error("Failed to write stream event", "job_id", jobID, "error", err)
		return
	}
	flusher.Flush()
	if job.State.Done() {
		return
	}

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			slog.Debug("Stream client went away", "job_id", jobID)
			return

		case event, ok := <-events:
			if !ok {
				return
			}
			if err := writeSSEEvent(w, event); err != nil {
				slog.Error("Failed to write stream event", "job_id", jobID, "error", err)
				return
			}
			flusher.Flush()
			if event.State.Done() {
				return
			}

		case <-ping.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

// writeSSEEvent writes event as a single "data:" frame.
func writeSSEEvent(w http.ResponseWriter, event ProgressEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
