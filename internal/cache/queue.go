package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Import job kinds.
const (
	JobEPG = "epg"
)

// ImportJob is a queued background import.
type ImportJob struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	URL        string    `json:"url"`
	SourceID   *int64    `json:"source_id,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Job states.
const (
	JobQueued  = "queued"
	JobRunning = "running"
	JobDone    = "done"
	JobFailed  = "failed"
)

// JobStatus is the last known state of an ImportJob.
type JobStatus struct {
	ID        string          `json:"id"`
	State     string          `json:"state"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

const jobStatusTTL = 24 * time.Hour

// QueueKey is the Redis list holding import jobs.
func (r *Redis) QueueKey() string { return r.Key("jobs", "imports") }

func (r *Redis) jobKey(id string) string { return r.Key("jobs", "status", id) }

// Enqueue pushes a job onto the left side of the queue and records it as queued.
func Enqueue(ctx context.Context, r *Redis, job ImportJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue marshal: %w", err)
	}
	if err := SetJobStatus(ctx, r, JobStatus{ID: job.ID, State: JobQueued, UpdatedAt: job.EnqueuedAt}); err != nil {
		return err
	}
	return r.client.LPush(ctx, r.QueueKey(), data).Err()
}

// Dequeue blocks until a job is available or timeout expires. A timeout
// or a cancelled ctx returns (nil, nil) so the caller can loop and check
// for shutdown.
func Dequeue(ctx context.Context, r *Redis, timeout time.Duration) (*ImportJob, error) {
	result, err := r.client.BRPop(ctx, timeout, r.QueueKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || ctx.Err() != nil {
			return nil, nil
		}
		return nil, fmt.Errorf("queue dequeue: %w", err)
	}
	// BRPop returns [key, value].
	if len(result) < 2 {
		return nil, nil
	}
	var job ImportJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("queue unmarshal: %w", err)
	}
	return &job, nil
}

// SetJobStatus stores st for a day.
func SetJobStatus(ctx context.Context, r *Redis, st JobStatus) error {
	return Set(ctx, r, r.jobKey(st.ID), st, jobStatusTTL)
}

// GetJobStatus returns the stored status; IsMiss(err) for unknown ids.
func GetJobStatus(ctx context.Context, r *Redis, id string) (JobStatus, error) {
	return Get[JobStatus](ctx, r, r.jobKey(id))
}
